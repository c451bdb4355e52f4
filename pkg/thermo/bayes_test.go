package thermo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLikelihoods_PerfectObservation(t *testing.T) {
	// zT_obs equals S²σT/κ exactly: the residual term vanishes and only
	// the normalization constant remains.
	s := []float64{200e-6}
	sigma := []float64{1e5}
	kappa := []float64{1.5}
	temp := []float64{600}
	ztObs := []float64{1.6}
	sigmaZT := []float64{1.0}

	ll, err := LogLikelihoods(s, sigma, kappa, temp, ztObs, sigmaZT, 1.0)
	require.NoError(t, err)
	require.Len(t, ll, 1)
	assert.InDelta(t, -0.5*math.Log(2*math.Pi), ll[0], 1e-9)
}

func TestLogLikelihoods_ResidualLowersLikelihood(t *testing.T) {
	s := []float64{200e-6, 200e-6}
	sigma := []float64{1e5, 1e5}
	kappa := []float64{1.5, 1.5}
	temp := []float64{600, 600}
	ztObs := []float64{1.6, 2.6} // second observation is one sigma off
	sigmaZT := []float64{1.0, 1.0}

	ll, err := LogLikelihoods(s, sigma, kappa, temp, ztObs, sigmaZT, 1.0)
	require.NoError(t, err)
	assert.InDelta(t, ll[0]-0.5, ll[1], 1e-9)
}

func TestLogLikelihoods_WFPenaltyApplied(t *testing.T) {
	// kappa = 1.0 below kappa_e = 7.32 incurs the quadratic penalty.
	s := []float64{200e-6}
	sigma := []float64{1e6}
	kappa := []float64{1.0}
	temp := []float64{300}
	ztObs := []float64{(200e-6 * 200e-6 * 1e6 * 300) / 1.0}
	sigmaZT := []float64{1.0}

	clean, err := LogLikelihoods(s, sigma, kappa, temp, ztObs, sigmaZT, 0)
	require.NoError(t, err)
	penalized, err := LogLikelihoods(s, sigma, kappa, temp, ztObs, sigmaZT, 1.0)
	require.NoError(t, err)

	assert.InDelta(t, clean[0]-6.32*6.32, penalized[0], 1e-9)
}

func TestLogLikelihoods_ShapeMismatch(t *testing.T) {
	_, err := LogLikelihoods([]float64{1, 2}, []float64{1}, []float64{1, 2},
		[]float64{1, 2}, []float64{1, 2}, []float64{1, 2}, 0)
	var sm *ShapeMismatchError
	assert.ErrorAs(t, err, &sm)
}

func TestPosteriorCredibility_Normalizes(t *testing.T) {
	s := []float64{200e-6, 200e-6, 200e-6}
	sigma := []float64{1e5, 1e5, 1e5}
	kappa := []float64{1.5, 1.5, 1.5}
	temp := []float64{600, 600, 600}
	ztObs := []float64{1.6, 1.8, 3.0}
	sigmaZT := []float64{0.2, 0.2, 0.2}
	prior := []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}

	post, logPost, err := PosteriorCredibility(s, sigma, kappa, temp, ztObs, sigmaZT, prior, 0)
	require.NoError(t, err)
	require.Len(t, post, 3)

	sum := 0.0
	for i, p := range post {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		assert.InDelta(t, math.Log(p), logPost[i], 1e-9)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	// The consistent observation dominates the seven-sigma outlier.
	assert.Greater(t, post[0], post[2])
}

func TestPosteriorCredibility_ExtremeMagnitudesStable(t *testing.T) {
	// Residuals this large underflow a naive normalization; log-sum-exp
	// must keep the result finite.
	s := []float64{200e-6, 200e-6}
	sigma := []float64{1e5, 1e5}
	kappa := []float64{1.5, 1.5}
	temp := []float64{600, 600}
	ztObs := []float64{1.6, 500.0}
	sigmaZT := []float64{1e-3, 1e-3}
	prior := []float64{0.5, 0.5}

	post, _, err := PosteriorCredibility(s, sigma, kappa, temp, ztObs, sigmaZT, prior, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, post[0], 1e-12)
	assert.InDelta(t, 0.0, post[1], 1e-12)
}

func TestPosteriorCredibility_CollapseRejected(t *testing.T) {
	s := []float64{200e-6}
	sigma := []float64{1e5}
	kappa := []float64{1.5}
	temp := []float64{600}
	ztObs := []float64{1.6}
	sigmaZT := []float64{1.0}
	prior := []float64{0} // ln(0) = -Inf everywhere

	_, _, err := PosteriorCredibility(s, sigma, kappa, temp, ztObs, sigmaZT, prior, 0)
	var rv *RangeViolationError
	assert.ErrorAs(t, err, &rv)
}

func TestPosteriorCredibility_PriorShapeMismatch(t *testing.T) {
	_, _, err := PosteriorCredibility([]float64{1}, []float64{1}, []float64{1},
		[]float64{1}, []float64{1}, []float64{1}, []float64{0.5, 0.5}, 0)
	var sm *ShapeMismatchError
	assert.ErrorAs(t, err, &sm)
}
