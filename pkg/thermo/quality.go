package thermo

import (
	"fmt"
	"math"
)

// QualityClass is the ordinal classification of a composite quality score.
type QualityClass string

const (
	QualityClassA QualityClass = "Class A" // score >= 0.90
	QualityClassB QualityClass = "Class B" // score >= 0.80
	QualityClassC QualityClass = "Class C" // score >= 0.65
	QualityClassD QualityClass = "Class D" // score >= 0.50
	QualityReject QualityClass = "Reject"
)

// qualityVectorN is the fixed dimensionality of the quality model.
const qualityVectorN = 6

// ClassifyQuality maps a composite score to its quality class.
func ClassifyQuality(score float64) QualityClass {
	switch {
	case score >= 0.90:
		return QualityClassA
	case score >= 0.80:
		return QualityClassB
	case score >= 0.65:
		return QualityClassC
	case score >= 0.50:
		return QualityClassD
	default:
		return QualityReject
	}
}

// QualityVector holds the six independent quality dimensions of a record,
// in order: completeness, credibility, physics consistency, error
// magnitude, smoothness, metadata. Construct it with NewQualityVector; the
// zero value is valid (all dimensions zero) but conveys no information.
type QualityVector struct {
	q [qualityVectorN]float64
}

// NewQualityVector rejects any component that is NaN or outside [0,1].
// There is no silent clamping at input time.
func NewQualityVector(completeness, credibility, physics, errMagnitude, smoothness, metadata float64) (QualityVector, error) {
	v := [qualityVectorN]float64{completeness, credibility, physics, errMagnitude, smoothness, metadata}
	for i, c := range v {
		if math.IsNaN(c) {
			return QualityVector{}, &RangeViolationError{Reason: fmt.Sprintf("quality component %d is NaN", i)}
		}
		if c < 0 || c > 1 {
			return QualityVector{}, &RangeViolationError{Reason: fmt.Sprintf("quality component %d = %g outside [0,1]", i, c)}
		}
	}
	return QualityVector{q: v}, nil
}

// Components returns the ordered component array.
func (v QualityVector) Components() [qualityVectorN]float64 {
	return v.q
}

// Weights is a fixed 6-element non-negative weight vector summing to 1.
type Weights struct {
	w [qualityVectorN]float64
}

const weightSumTolerance = 1e-6

// NewWeights rejects vectors that do not have exactly 6 non-negative
// elements summing to 1.0 within 1e-6.
func NewWeights(w []float64) (Weights, error) {
	if len(w) != qualityVectorN {
		return Weights{}, &ConfigurationError{Reason: fmt.Sprintf("expected exactly %d weights, got %d", qualityVectorN, len(w))}
	}
	sum := 0.0
	for i, v := range w {
		if v < 0 || math.IsNaN(v) {
			return Weights{}, &ConfigurationError{Reason: fmt.Sprintf("weight %d = %g must be a non-negative number", i, v)}
		}
		sum += v
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return Weights{}, &ConfigurationError{Reason: fmt.Sprintf("weights must sum to 1.0 +/- %g, got %.6f", weightSumTolerance, sum)}
	}
	var out Weights
	copy(out.w[:], w)
	return out, nil
}

// DefaultWeights returns the standard weight distribution: completeness and
// credibility 0.25 each, physics 0.20, error magnitude 0.15, smoothness
// 0.10, metadata 0.05.
func DefaultWeights() Weights {
	return Weights{w: [qualityVectorN]float64{0.25, 0.25, 0.20, 0.15, 0.10, 0.05}}
}

// QualityScorer aggregates a QualityVector into a bounded composite score.
// The weight vector is fixed for the lifetime of the scorer.
type QualityScorer struct {
	weights Weights
}

// NewQualityScorer returns a scorer with the given weight configuration.
func NewQualityScorer(w Weights) *QualityScorer {
	return &QualityScorer{weights: w}
}

// Linear computes the weighted dot product Σ wᵢqᵢ. A false gate forces the
// result to exactly 0 regardless of the components.
func (s *QualityScorer) Linear(gate bool, q QualityVector) float64 {
	if !gate {
		return 0
	}
	out := 0.0
	for i, c := range q.q {
		out += s.weights.w[i] * c
	}
	return out
}

// Multiplicative computes Π qᵢ^wᵢ, the weakest-link aggregation: a single
// zero component with positive weight collapses the score to zero.
func (s *QualityScorer) Multiplicative(gate bool, q QualityVector) float64 {
	if !gate {
		return 0
	}
	out := 1.0
	for i, c := range q.q {
		// math.Pow(0, w) = 0 for w > 0 and 1 for w == 0, which is the
		// required convention for both cases.
		out *= math.Pow(c, s.weights.w[i])
	}
	return out
}

// EntropyRegularized computes the linear score minus lambda·H(q) where
// H(q) = −Σ qᵢ·ln(qᵢ) with the convention 0·ln(0) = 0, clamped to [0,1].
// A NaN produced mid-computation is fatal, never suppressed.
func (s *QualityScorer) EntropyRegularized(gate bool, q QualityVector, lambda float64) (float64, error) {
	if !gate {
		return 0, nil
	}
	base := s.Linear(true, q)
	entropy := 0.0
	for _, c := range q.q {
		if c > 0 {
			entropy -= c * math.Log(c)
		}
	}
	out := base - lambda*entropy
	if math.IsNaN(out) {
		return 0, &RangeViolationError{Reason: "entropy-regularized score produced NaN"}
	}
	return clamp01(out), nil
}

// RiskAdjusted computes E[S] − gamma·sqrt(Var(S)) with E[S] = Σ wᵢμᵢ and
// Var(S) = Σ wᵢ²σᵢ² under componentwise independence, clamped to [0,1].
// A negative variance is structurally impossible with valid inputs and is
// treated as a fatal defect.
func (s *QualityScorer) RiskAdjusted(gate bool, mu, sigma QualityVector, gamma float64) (float64, error) {
	if !gate {
		return 0, nil
	}
	expected := 0.0
	variance := 0.0
	for i := range mu.q {
		w := s.weights.w[i]
		expected += w * mu.q[i]
		variance += w * w * sigma.q[i] * sigma.q[i]
	}
	if variance < 0 {
		return 0, &RangeViolationError{Reason: fmt.Sprintf("risk-adjusted variance is negative: %g", variance)}
	}
	return clamp01(expected - gamma*math.Sqrt(variance)), nil
}

// ParetoDominates reports whether q1 dominates q2: q1 >= q2 in every
// component and q1 > q2 in at least one. The relation is irreflexive and
// asymmetric.
func ParetoDominates(q1, q2 QualityVector) bool {
	strictly := false
	for i := range q1.q {
		if q1.q[i] < q2.q[i] {
			return false
		}
		if q1.q[i] > q2.q[i] {
			strictly = true
		}
	}
	return strictly
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
