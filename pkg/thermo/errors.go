package thermo

import "fmt"

// ShapeMismatchError indicates that input slices which must share an
// identical length do not. Inputs are never broadcast.
type ShapeMismatchError struct {
	Field string
	Want  int
	Got   int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: %s has length %d, want %d", e.Field, e.Got, e.Want)
}

// MissingFieldError indicates that a required record key was absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// ConstraintViolationError indicates that one or more elements violated a
// hard physical constraint (T<=0, sigma<=0, kappa<=0, zT<0, or a negative
// uncertainty). Violations carries the count of offending elements.
type ConstraintViolationError struct {
	Constraint string
	Violations int
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("constraint violated: %s (%d offending elements)", e.Constraint, e.Violations)
}

// RangeViolationError indicates a bounded value outside its admissible
// range, or a NaN where a finite number is required.
type RangeViolationError struct {
	Reason string
}

func (e *RangeViolationError) Error() string {
	return "range violation: " + e.Reason
}

// ConfigurationError indicates a malformed weight vector, invalid bin or
// threshold parameters, or an invalid discrete-valued factor.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// BackendFailureError re-signals a failure from an injected batch executor
// through the engine's own taxonomy. The foreign error is preserved for
// unwrapping but never surfaced raw.
type BackendFailureError struct {
	Op  string
	Err error
}

func (e *BackendFailureError) Error() string {
	return fmt.Sprintf("backend failure in %s: %v", e.Op, e.Err)
}

func (e *BackendFailureError) Unwrap() error {
	return e.Err
}
