package thermo

import (
	"fmt"
	"math"
)

// CredibilityClass is the ordinal classification of a credibility score.
type CredibilityClass string

const (
	CredibilityClassA CredibilityClass = "Class A" // score >= 0.90
	CredibilityClassB CredibilityClass = "Class B" // score >= 0.75
	CredibilityClassC CredibilityClass = "Class C" // score >= 0.50
	CredibilityClassD CredibilityClass = "Class D"
)

// ClassifyCredibility maps a credibility score to its class.
func ClassifyCredibility(score float64) CredibilityClass {
	switch {
	case score >= 0.90:
		return CredibilityClassA
	case score >= 0.75:
		return CredibilityClassB
	case score >= 0.50:
		return CredibilityClassC
	default:
		return CredibilityClassD
	}
}

// CredibilityParams holds the decay and saturation constants of the
// credibility model.
type CredibilityParams struct {
	Alpha      float64 `json:"alpha" yaml:"alpha"`             // physical-violation decay rate
	N0         float64 `json:"n0" yaml:"n0"`                   // statistical robustness half-saturation
	Beta       float64 `json:"beta" yaml:"beta"`               // model-fidelity decay rate
	LambdaTime float64 `json:"lambda_time" yaml:"lambda_time"` // recency decay rate per year
}

// DefaultCredibilityParams returns the standard model constants.
func DefaultCredibilityParams() CredibilityParams {
	return CredibilityParams{Alpha: 1.0, N0: 10.0, Beta: 1.0, LambdaTime: 0.05}
}

func (p CredibilityParams) validate() error {
	if !(p.N0 > 0) {
		return &ConfigurationError{Reason: fmt.Sprintf("statistical half-saturation n0 must be positive, got %g", p.N0)}
	}
	if !(p.Alpha >= 0) {
		return &ConfigurationError{Reason: fmt.Sprintf("physical-violation decay rate alpha must be non-negative, got %g", p.Alpha)}
	}
	if !(p.Beta >= 0) {
		return &ConfigurationError{Reason: fmt.Sprintf("model-fidelity decay rate beta must be non-negative, got %g", p.Beta)}
	}
	if !(p.LambdaTime >= 0) {
		return &ConfigurationError{Reason: fmt.Sprintf("recency decay rate lambda must be non-negative, got %g", p.LambdaTime)}
	}
	return nil
}

// CredibilityInput carries the provenance and statistical priors of a
// single record.
type CredibilityInput struct {
	SourceWeight     float64 // bounded [0,1]
	Reproductions    int     // independent confirmation count
	Transparency     float64 // discrete: 0, 0.5, or 1.0
	PhysicsViolation float64 // magnitude of physical constraint violation
	SampleSize       int     // n, for statistical robustness
	CVError          float64 // cross-validation error of the surrogate model
	Now              float64 // current time (years)
	Published        float64 // publication time (years)
}

// CredibilityScore computes the composite credibility of a record as the
// product of seven monotone factors; the weakest factor dominates the
// result. The final score is clamped to [0,1].
//
//	source · (1−e^(−n_rep)) · transparency · e^(−αΔ_phys) ·
//	n/(n+n₀) · e^(−β·e_cv) · e^(−λ·max(0, now−published))
//
// A future publication date never rewards: the recency factor saturates
// at 1.
func CredibilityScore(in CredibilityInput, p CredibilityParams) (float64, error) {
	if err := p.validate(); err != nil {
		return 0, err
	}
	if math.IsNaN(in.SourceWeight) || in.SourceWeight < 0 || in.SourceWeight > 1 {
		return 0, &RangeViolationError{Reason: fmt.Sprintf("source weight %g outside [0,1]", in.SourceWeight)}
	}
	if in.Transparency != 0 && in.Transparency != 0.5 && in.Transparency != 1.0 {
		return 0, &ConfigurationError{Reason: fmt.Sprintf("uncertainty transparency must be exactly 0, 0.5 or 1.0, got %g", in.Transparency)}
	}
	if in.SampleSize < 0 {
		return 0, &ConstraintViolationError{Constraint: fmt.Sprintf("sample size >= 0 (got %d)", in.SampleSize), Violations: 1}
	}
	if in.Reproductions < 0 {
		return 0, &ConstraintViolationError{Constraint: fmt.Sprintf("reproduction count >= 0 (got %d)", in.Reproductions), Violations: 1}
	}

	wRep := 0.0
	if in.Reproductions >= 1 {
		wRep = 1 - math.Exp(-float64(in.Reproductions))
	}

	wPhys := 1.0
	if in.PhysicsViolation > 0 {
		wPhys = math.Exp(-p.Alpha * in.PhysicsViolation)
	}

	n := float64(in.SampleSize)
	wStat := n / (n + p.N0)

	wModel := math.Exp(-p.Beta * in.CVError)
	wTime := math.Exp(-p.LambdaTime * math.Max(0, in.Now-in.Published))

	score := in.SourceWeight * wRep * in.Transparency * wPhys * wStat * wModel * wTime
	return clamp01(score), nil
}
