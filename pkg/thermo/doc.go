// Package thermo implements the scoring and validation engine for
// thermoelectric transport measurements: figure of merit computation with
// propagated uncertainty, hard physical admissibility checks, bounded
// quality and credibility scoring with discrete classification,
// entropy/KL-divergence gap detection over the temperature domain, and
// citation-aware entropy-regularized material ranking.
//
// Everything in this package is pure and stateless: functions operate on
// complete in-memory slices supplied by the caller and never touch a
// database, a file, or a network. Parallelism across independent groups is
// available through [Executor] implementations.
package thermo
