package thermo

import (
	"fmt"
	"math"
)

// Quantities holds the four SI-unit transport observables of a single
// measurement: absolute temperature (K), Seebeck coefficient (V/K),
// electrical conductivity (S/m), and thermal conductivity (W/(m·K)).
type Quantities struct {
	T     float64 `json:"t" yaml:"t"`
	S     float64 `json:"s" yaml:"s"`
	Sigma float64 `json:"sigma" yaml:"sigma"`
	Kappa float64 `json:"kappa" yaml:"kappa"`
}

// NewQuantities validates hard positivity constraints before construction.
func NewQuantities(t, s, sigma, kappa float64) (Quantities, error) {
	switch {
	case !(t > 0):
		return Quantities{}, &ConstraintViolationError{Constraint: fmt.Sprintf("T > 0 (got %g K)", t), Violations: 1}
	case !(sigma > 0):
		return Quantities{}, &ConstraintViolationError{Constraint: fmt.Sprintf("sigma > 0 (got %g S/m)", sigma), Violations: 1}
	case !(kappa > 0):
		return Quantities{}, &ConstraintViolationError{Constraint: fmt.Sprintf("kappa > 0 (got %g W/mK)", kappa), Violations: 1}
	}
	return Quantities{T: t, S: s, Sigma: sigma, Kappa: kappa}, nil
}

// Uncertainties holds the 1-sigma standard uncertainties paired with a
// Quantities value. Each component must be >= 0.
type Uncertainties struct {
	T     float64 `json:"u_t" yaml:"u_t"`
	S     float64 `json:"u_s" yaml:"u_s"`
	Sigma float64 `json:"u_sigma" yaml:"u_sigma"`
	Kappa float64 `json:"u_kappa" yaml:"u_kappa"`
}

// NewUncertainties rejects negative standard uncertainties.
func NewUncertainties(t, s, sigma, kappa float64) (Uncertainties, error) {
	n := 0
	for _, v := range []float64{t, s, sigma, kappa} {
		if v < 0 {
			n++
		}
	}
	if n > 0 {
		return Uncertainties{}, &ConstraintViolationError{Constraint: "uncertainty >= 0", Violations: n}
	}
	return Uncertainties{T: t, S: s, Sigma: sigma, Kappa: kappa}, nil
}

// ZTInput carries the aligned observable arrays for a batch figure of merit
// computation. The four Err slices are optional: nil means a zero
// uncertainty contribution for that variable.
type ZTInput struct {
	S     []float64
	Sigma []float64
	Kappa []float64
	T     []float64

	ErrS     []float64
	ErrSigma []float64
	ErrKappa []float64
	ErrT     []float64
}

func (in ZTInput) checkShape() error {
	n := len(in.S)
	for _, f := range []struct {
		name string
		v    []float64
	}{
		{"sigma", in.Sigma}, {"kappa", in.Kappa}, {"t", in.T},
	} {
		if len(f.v) != n {
			return &ShapeMismatchError{Field: f.name, Want: n, Got: len(f.v)}
		}
	}
	for _, f := range []struct {
		name string
		v    []float64
	}{
		{"err_s", in.ErrS}, {"err_sigma", in.ErrSigma}, {"err_kappa", in.ErrKappa}, {"err_t", in.ErrT},
	} {
		if f.v != nil && len(f.v) != n {
			return &ShapeMismatchError{Field: f.name, Want: n, Got: len(f.v)}
		}
	}
	return nil
}

func errAt(errs []float64, i int) float64 {
	if errs == nil {
		return 0
	}
	return errs[i]
}

// ComputeFigureOfMerit evaluates zT = S²σT/κ element-wise, together with
// its first-order propagated standard uncertainty assuming independent
// variables:
//
//	∂zT/∂S = 2SσT/κ   ∂zT/∂σ = S²T/κ   ∂zT/∂T = S²σ/κ   ∂zT/∂κ = −S²σT/κ²
//	zT_err = sqrt(Σ (∂zT/∂x · err_x)²)
//
// A zero kappa never panics or errors here: the element yields NaN and is
// rejected later by the validity gate in Validate. Shape mismatches are
// fatal; inputs are never broadcast.
func ComputeFigureOfMerit(in ZTInput) (zt, ztErr []float64, err error) {
	if err := in.checkShape(); err != nil {
		return nil, nil, err
	}

	n := len(in.S)
	zt = make([]float64, n)
	ztErr = make([]float64, n)

	for i := 0; i < n; i++ {
		s, sigma, kappa, t := in.S[i], in.Sigma[i], in.Kappa[i], in.T[i]
		if kappa == 0 {
			// Deferred to the validity gate; division here would
			// produce an Inf that masks the non-physical input.
			zt[i] = math.NaN()
			ztErr[i] = math.NaN()
			continue
		}

		zt[i] = (s * s * sigma * t) / kappa

		dzdS := (2 * s * sigma * t) / kappa
		dzdSigma := (s * s * t) / kappa
		dzdT := (s * s * sigma) / kappa
		dzdKappa := -(s * s * sigma * t) / (kappa * kappa)

		varZT := sq(dzdS*errAt(in.ErrS, i)) +
			sq(dzdSigma*errAt(in.ErrSigma, i)) +
			sq(dzdT*errAt(in.ErrT, i)) +
			sq(dzdKappa*errAt(in.ErrKappa, i))
		ztErr[i] = math.Sqrt(varZT)
	}
	return zt, ztErr, nil
}

func sq(x float64) float64 { return x * x }

// ValidatedState is the derived, per-measurement outcome of Validate. It is
// constructed only by Validate and must not be mutated afterwards. Invalid
// elements are retained with Valid[i] == false, never silently dropped.
type ValidatedState struct {
	T     []float64
	S     []float64
	Sigma []float64
	Kappa []float64
	ZT    []float64
	ZTErr []float64
	Valid []bool
}

// ViolationCount returns the number of elements failing the validity gate.
func (v *ValidatedState) ViolationCount() int {
	n := 0
	for _, ok := range v.Valid {
		if !ok {
			n++
		}
	}
	return n
}

// Validate computes the figure of merit and evaluates the conjoined hard
// constraints T > 0, sigma > 0, kappa > 0, zT >= 0 and zT finite. A NaN in
// any dependent quantity forces that element invalid.
//
// With strict set, any invalid element aborts the batch with a
// ConstraintViolationError carrying the violation count; no partial result
// is returned. Otherwise the full array set is returned with a boolean
// mask and retention is the caller's decision.
func Validate(in ZTInput, strict bool) (*ValidatedState, error) {
	if err := checkUncertainties(in); err != nil {
		return nil, err
	}

	zt, ztErr, err := ComputeFigureOfMerit(in)
	if err != nil {
		return nil, err
	}

	n := len(in.S)
	valid := make([]bool, n)
	violations := 0
	for i := 0; i < n; i++ {
		ok := in.T[i] > 0 &&
			in.Sigma[i] > 0 &&
			in.Kappa[i] > 0 &&
			zt[i] >= 0 && // false for NaN
			!math.IsNaN(zt[i]) && !math.IsInf(zt[i], 0)
		valid[i] = ok
		if !ok {
			violations++
		}
	}

	if strict && violations > 0 {
		return nil, &ConstraintViolationError{
			Constraint: "T > 0, sigma > 0, kappa > 0, zT >= 0 and finite",
			Violations: violations,
		}
	}

	return &ValidatedState{
		T:     in.T,
		S:     in.S,
		Sigma: in.Sigma,
		Kappa: in.Kappa,
		ZT:    zt,
		ZTErr: ztErr,
		Valid: valid,
	}, nil
}

func checkUncertainties(in ZTInput) error {
	n := 0
	for _, errs := range [][]float64{in.ErrS, in.ErrSigma, in.ErrKappa, in.ErrT} {
		for _, v := range errs {
			if v < 0 {
				n++
			}
		}
	}
	if n > 0 {
		return &ConstraintViolationError{Constraint: "uncertainty >= 0", Violations: n}
	}
	return nil
}
