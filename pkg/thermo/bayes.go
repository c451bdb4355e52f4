package thermo

import (
	"math"
)

const logSqrt2Pi = 0.9189385332046727 // 0.5·ln(2π)

// LogLikelihoods evaluates the penalized Gaussian log-likelihood of each
// observed figure of merit against the physically expected value
// zT = S²σT/κ:
//
//	ln L = −0.5·((zT_obs − zT_phys)/σ_zT)² − ln(σ_zT) − 0.5·ln(2π) − Φ_WF
//
// where Φ_WF is the Wiedemann-Franz penalty (see WFPenalty).
func LogLikelihoods(s, sigma, kappa, t, ztObs, sigmaZT []float64, lambdaWF float64) ([]float64, error) {
	n := len(s)
	for _, f := range []struct {
		name string
		v    []float64
	}{
		{"sigma", sigma}, {"kappa", kappa}, {"t", t}, {"zt_obs", ztObs}, {"sigma_zt", sigmaZT},
	} {
		if len(f.v) != n {
			return nil, &ShapeMismatchError{Field: f.name, Want: n, Got: len(f.v)}
		}
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		ztPhys := (s[i] * s[i] * sigma[i] * t[i]) / kappa[i]
		residual := (ztObs[i] - ztPhys) / sigmaZT[i]
		out[i] = -0.5*residual*residual - math.Log(sigmaZT[i]) - logSqrt2Pi -
			WFPenalty(sigma[i], kappa[i], t[i], lambdaWF)
	}
	return out, nil
}

// PosteriorCredibility computes the normalized Bayesian posterior over a
// batch of observations, stabilized with the log-sum-exp trick so the
// normalization constant stays strictly positive definite. It returns the
// posterior probabilities in [0,1] and the normalized log-posteriors.
//
// A posterior space that collapses entirely (all unnormalized
// log-posteriors −Inf or NaN) cannot be normalized and is rejected.
func PosteriorCredibility(s, sigma, kappa, t, ztObs, sigmaZT, prior []float64, lambdaWF float64) (posterior, logPosterior []float64, err error) {
	if len(prior) != len(s) {
		return nil, nil, &ShapeMismatchError{Field: "prior", Want: len(s), Got: len(prior)}
	}

	logL, err := LogLikelihoods(s, sigma, kappa, t, ztObs, sigmaZT, lambdaWF)
	if err != nil {
		return nil, nil, err
	}
	if len(logL) == 0 {
		return []float64{}, []float64{}, nil
	}

	unnorm := make([]float64, len(logL))
	maxLog := math.Inf(-1)
	for i, ll := range logL {
		unnorm[i] = ll + math.Log(prior[i])
		if unnorm[i] > maxLog {
			maxLog = unnorm[i]
		}
	}
	if math.IsInf(maxLog, -1) || math.IsNaN(maxLog) {
		return nil, nil, &RangeViolationError{Reason: "log-posterior space collapsed to zero probability, cannot normalize"}
	}

	sumExp := 0.0
	for _, lp := range unnorm {
		sumExp += math.Exp(lp - maxLog)
	}
	lse := maxLog + math.Log(sumExp)
	if math.IsInf(lse, 0) || math.IsNaN(lse) {
		return nil, nil, &RangeViolationError{Reason: "log-sum-exp normalization is not finite"}
	}

	posterior = make([]float64, len(unnorm))
	logPosterior = make([]float64, len(unnorm))
	for i, lp := range unnorm {
		logPosterior[i] = lp - lse
		posterior[i] = math.Exp(logPosterior[i])
	}
	return posterior, logPosterior, nil
}
