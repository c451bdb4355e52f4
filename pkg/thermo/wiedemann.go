package thermo

import (
	"fmt"
	"math"
)

// Transport consistency constants for the Wiedemann-Franz relation.
const (
	// L0Sommerfeld is the free-electron Lorenz number in W·Ω·K⁻².
	L0Sommerfeld = 2.44e-8

	// Admissible Lorenz number range.
	LorenzMin = 1e-9
	LorenzMax = 1e-7
)

// Empirical plausibility bounds for transport observables. These are
// looser than the hard thermodynamic constraints and apply at ingestion,
// not inside the validity gate.
const (
	SeebeckMaxAbs = 1000e-6 // |S| in V/K (1000 µV/K)
	SigmaMax      = 1e7     // S/m
	KappaMax      = 100.0   // W/(m·K)
	TempMin       = 100.0   // K
	TempMax       = 2000.0  // K
)

// CheckEmpiricalBounds rejects observations outside the realistic
// magnitude regime. Violations are rejected rather than clamped: clamping
// injects zero gradients and density spikes into downstream entropy
// calculations.
func CheckEmpiricalBounds(s, sigma, kappa, t float64) error {
	if math.Abs(s) > SeebeckMaxAbs {
		return &RangeViolationError{Reason: fmt.Sprintf("|S| = %g V/K exceeds %g", math.Abs(s), SeebeckMaxAbs)}
	}
	if sigma > SigmaMax {
		return &RangeViolationError{Reason: fmt.Sprintf("sigma = %g S/m exceeds %g", sigma, SigmaMax)}
	}
	if kappa > KappaMax {
		return &RangeViolationError{Reason: fmt.Sprintf("kappa = %g W/mK exceeds %g", kappa, KappaMax)}
	}
	if t < TempMin || t > TempMax {
		return &RangeViolationError{Reason: fmt.Sprintf("T = %g K outside operational regime [%g, %g]", t, TempMin, TempMax)}
	}
	return nil
}

// ThermalDecomposition is the Wiedemann-Franz split of total thermal
// conductivity into its electronic and lattice contributions.
type ThermalDecomposition struct {
	KappaE float64 `json:"kappa_e" yaml:"kappa_e"` // electronic, L·σ·T
	KappaL float64 `json:"kappa_l" yaml:"kappa_l"` // lattice, κ − κ_e
	Lorenz float64 `json:"lorenz" yaml:"lorenz"`
}

// WiedemannFranzDecomposition splits κ into κ_e = LσT and κ_l = κ − κ_e.
// Pass lorenz <= 0 to use the Sommerfeld value. A negative lattice
// contribution violates the coupling constraint and is rejected.
func WiedemannFranzDecomposition(sigma, kappa, t, lorenz float64) (ThermalDecomposition, error) {
	if sigma <= 0 {
		return ThermalDecomposition{}, &ConstraintViolationError{Constraint: fmt.Sprintf("sigma > 0 (got %g)", sigma), Violations: 1}
	}
	if kappa <= 0 {
		return ThermalDecomposition{}, &ConstraintViolationError{Constraint: fmt.Sprintf("kappa > 0 (got %g)", kappa), Violations: 1}
	}
	if t <= 0 {
		return ThermalDecomposition{}, &ConstraintViolationError{Constraint: fmt.Sprintf("T > 0 (got %g)", t), Violations: 1}
	}

	l := lorenz
	if l <= 0 {
		l = L0Sommerfeld
	}
	if l <= LorenzMin || l >= LorenzMax {
		return ThermalDecomposition{}, &RangeViolationError{Reason: fmt.Sprintf("Lorenz number %g outside admissible range (%g, %g)", l, LorenzMin, LorenzMax)}
	}

	kappaE := l * sigma * t
	kappaL := kappa - kappaE
	if kappaL < 0 {
		return ThermalDecomposition{}, &ConstraintViolationError{Constraint: fmt.Sprintf("lattice thermal conductivity >= 0 (got %g)", kappaL), Violations: 1}
	}
	return ThermalDecomposition{KappaE: kappaE, KappaL: kappaL, Lorenz: l}, nil
}

// WFPenalty is the quadratic Wiedemann-Franz consistency penalty
// λ·max(0, κ_e − κ)² applied when the observed total thermal conductivity
// falls below the minimum electronic contribution L₀σT.
func WFPenalty(sigma, kappa, t, lambda float64) float64 {
	kappaE := L0Sommerfeld * sigma * t
	diff := kappaE - kappa
	if diff <= 0 {
		return 0
	}
	return lambda * diff * diff
}
