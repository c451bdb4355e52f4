package thermo

import (
	"fmt"
	"math"
	"sort"
)

// Span is a contiguous, half-open [Start, End) index range into a flat
// observation array, mapping one manifold (typically one material) to its
// slice of the batch.
type Span struct {
	Start int
	End   int
}

// GroupSpans partitions key-sorted rows into contiguous spans in a single
// linear pass, returning the spans and the distinct keys in first-seen
// order. Rows must already be ordered by key; the function never emits an
// empty span.
func GroupSpans(keys []string) ([]Span, []string) {
	if len(keys) == 0 {
		return nil, nil
	}
	spans := make([]Span, 0, 16)
	ids := make([]string, 0, 16)
	start := 0
	current := keys[0]
	for i, k := range keys {
		if k != current {
			spans = append(spans, Span{Start: start, End: i})
			ids = append(ids, current)
			current = k
			start = i
		}
	}
	spans = append(spans, Span{Start: start, End: len(keys)})
	ids = append(ids, current)
	return spans, ids
}

// GapParams configures the binned temperature domain and the gap score
// weights.
type GapParams struct {
	DomainMin float64 `json:"domain_min" yaml:"domain_min"` // inclusive lower bound (K)
	DomainMax float64 `json:"domain_max" yaml:"domain_max"` // exclusive upper bound (K)
	Bins      int     `json:"bins" yaml:"bins"`
	Gamma1    float64 `json:"gamma1" yaml:"gamma1"` // entropy weight
	Gamma2    float64 `json:"gamma2" yaml:"gamma2"` // KL-divergence weight
}

// DefaultGapParams covers the common solid-state measurement regime.
func DefaultGapParams() GapParams {
	return GapParams{DomainMin: 300, DomainMax: 1200, Bins: 10, Gamma1: 1, Gamma2: 1}
}

func (p GapParams) validate() error {
	if p.Bins <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("bin count must be positive, got %d", p.Bins)}
	}
	if !(p.DomainMax > p.DomainMin) {
		return &ConfigurationError{Reason: fmt.Sprintf("domain max %g must exceed domain min %g", p.DomainMax, p.DomainMin)}
	}
	return nil
}

// GapEvaluation is the per-manifold epistemic coverage result.
type GapEvaluation struct {
	ManifoldID   string  `json:"manifold_id" yaml:"manifold_id"`
	Entropy      float64 `json:"entropy" yaml:"entropy"`
	KLDivergence float64 `json:"kl_divergence" yaml:"kl_divergence"`
	GapScore     float64 `json:"gap_score" yaml:"gap_score"`
}

// epsilon is the smallest positive double: it guards ln(0) without
// materially perturbing non-zero bins.
const epsilon = math.SmallestNonzeroFloat64

// DetectGaps computes, per manifold, the Shannon entropy H of the binned
// empirical temperature distribution, its KL-divergence from the uniform
// reference u_k = 1/K, and the weighted gap score G = γ₁H + γ₂D_KL.
//
// An empty manifold yields (0, 0, 0); it represents neither confidence nor
// void and is not an error. Results are sorted by gap score descending
// (highest = greatest value of acquiring new data there), ties broken by
// manifold id ascending.
func DetectGaps(temps []float64, spans []Span, ids []string, p GapParams) ([]GapEvaluation, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if len(ids) != len(spans) {
		return nil, &ShapeMismatchError{Field: "manifold ids", Want: len(spans), Got: len(ids)}
	}
	if err := checkSpans(spans, len(temps)); err != nil {
		return nil, err
	}

	out := make([]GapEvaluation, len(spans))
	for i, sp := range spans {
		h, dkl := evalManifold(temps[sp.Start:sp.End], p)
		out[i] = GapEvaluation{
			ManifoldID:   ids[i],
			Entropy:      h,
			KLDivergence: dkl,
			GapScore:     p.Gamma1*h + p.Gamma2*dkl,
		}
	}
	sortGapEvaluations(out)
	return out, nil
}

func sortGapEvaluations(evals []GapEvaluation) {
	sort.Slice(evals, func(i, j int) bool {
		if evals[i].GapScore != evals[j].GapScore {
			return evals[i].GapScore > evals[j].GapScore
		}
		return evals[i].ManifoldID < evals[j].ManifoldID
	})
}

func checkSpans(spans []Span, n int) error {
	for _, sp := range spans {
		if sp.Start > sp.End || sp.End > n || sp.Start < 0 {
			return &ShapeMismatchError{Field: fmt.Sprintf("span [%d,%d)", sp.Start, sp.End), Want: n, Got: sp.End}
		}
	}
	return nil
}

// evalManifold computes (H, D_KL) for one manifold.
func evalManifold(temps []float64, p GapParams) (entropy, klDivergence float64) {
	n := len(temps)
	if n == 0 {
		return 0, 0
	}

	counts := histogram(temps, p)
	uniform := 1.0 / float64(p.Bins)
	total := float64(n)

	for _, c := range counts {
		pk := float64(c) / total
		entropy -= pk * math.Log(pk+epsilon)
		if pk > 0 {
			// Terms with p_k == 0 contribute exactly 0 by the
			// analytical limit, not an undefined value.
			klDivergence += pk * math.Log(pk/uniform)
		}
	}
	return entropy, klDivergence
}

// histogram bins observations over [DomainMin, DomainMax). Observations
// marginally outside the domain are clamped to the terminal bins so the
// total experimental effort n_k is preserved.
func histogram(temps []float64, p GapParams) []int {
	counts := make([]int, p.Bins)
	delta := (p.DomainMax - p.DomainMin) / float64(p.Bins)
	for _, t := range temps {
		idx := int(math.Floor((t - p.DomainMin) / delta))
		if idx < 0 {
			idx = 0
		} else if idx >= p.Bins {
			idx = p.Bins - 1
		}
		counts[idx]++
	}
	return counts
}

// AcquisitionGradient returns, per bin, the marginal contribution to the
// KL-divergence of adding one observation there: ln(max(p_k, ε)/u_k)/N.
// Its minimizer is the analytically optimal next acquisition target; when
// exactly one bin is empty, that bin attains the minimum.
func AcquisitionGradient(temps []float64, p GapParams) ([]float64, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	n := len(temps)
	if n == 0 {
		return nil, &ConfigurationError{Reason: "acquisition gradient undefined for an empty manifold"}
	}

	counts := histogram(temps, p)
	uniform := 1.0 / float64(p.Bins)
	total := float64(n)

	grad := make([]float64, p.Bins)
	for k, c := range counts {
		pk := math.Max(float64(c)/total, epsilon)
		grad[k] = math.Log(pk/uniform) / total
	}
	return grad, nil
}
