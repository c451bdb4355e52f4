package thermo

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Executor is the batch evaluation contract of the engine. Implementations
// must honor the exact formulas and edge-case policies of the reference
// functions in this package; an accelerated implementation is a
// performance substitution, never a semantic one.
type Executor interface {
	FigureOfMerit(ctx context.Context, in ZTInput) (zt, ztErr []float64, err error)
	DetectGaps(ctx context.Context, temps []float64, spans []Span, ids []string, p GapParams) ([]GapEvaluation, error)
	RankMaterials(ctx context.Context, p, zt, citations []float64, spans []Span, ids []string, params RankParams) ([]RankEntry, error)
}

// Reference is the sequential executor: a thin context-aware adapter over
// the package-level functions. It defines the semantic truth any other
// executor is measured against.
type Reference struct{}

// NewReference returns the sequential reference executor.
func NewReference() Reference { return Reference{} }

func (Reference) FigureOfMerit(ctx context.Context, in ZTInput) ([]float64, []float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return ComputeFigureOfMerit(in)
}

func (Reference) DetectGaps(ctx context.Context, temps []float64, spans []Span, ids []string, p GapParams) ([]GapEvaluation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return DetectGaps(temps, spans, ids, p)
}

func (Reference) RankMaterials(ctx context.Context, p, zt, citations []float64, spans []Span, ids []string, params RankParams) ([]RankEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return RankMaterials(p, zt, citations, spans, ids, params)
}

// Parallel fans work out across group boundaries only: each manifold or
// material group is evaluated by the same sequential per-group code as the
// reference, and results land in index-addressed slots. Within-group
// reductions are never reordered, so results are bit-identical to a
// sequential run and the deterministic execution mode holds by
// construction.
type Parallel struct {
	workers int
}

// NewParallel returns a parallel executor with the given fan-out; zero or
// negative means GOMAXPROCS.
func NewParallel(workers int) *Parallel {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Parallel{workers: workers}
}

// FigureOfMerit is element-independent; chunks of rows are computed
// concurrently into disjoint regions of the output arrays.
func (e *Parallel) FigureOfMerit(ctx context.Context, in ZTInput) ([]float64, []float64, error) {
	if err := in.checkShape(); err != nil {
		return nil, nil, err
	}
	n := len(in.S)
	if n == 0 {
		return []float64{}, []float64{}, nil
	}

	chunk := (n + e.workers - 1) / e.workers
	zt := make([]float64, n)
	ztErr := make([]float64, n)

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			z, ze, err := ComputeFigureOfMerit(sliceInput(in, start, end))
			if err != nil {
				return err
			}
			copy(zt[start:end], z)
			copy(ztErr[start:end], ze)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return zt, ztErr, nil
}

func sliceInput(in ZTInput, start, end int) ZTInput {
	sl := func(v []float64) []float64 {
		if v == nil {
			return nil
		}
		return v[start:end]
	}
	return ZTInput{
		S: in.S[start:end], Sigma: in.Sigma[start:end], Kappa: in.Kappa[start:end], T: in.T[start:end],
		ErrS: sl(in.ErrS), ErrSigma: sl(in.ErrSigma), ErrKappa: sl(in.ErrKappa), ErrT: sl(in.ErrT),
	}
}

func (e *Parallel) DetectGaps(ctx context.Context, temps []float64, spans []Span, ids []string, p GapParams) ([]GapEvaluation, error) {
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
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, sp := range spans {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			h, dkl := evalManifold(temps[sp.Start:sp.End], p)
			out[i] = GapEvaluation{
				ManifoldID:   ids[i],
				Entropy:      h,
				KLDivergence: dkl,
				GapScore:     p.Gamma1*h + p.Gamma2*dkl,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sortGapEvaluations(out)
	return out, nil
}

func (e *Parallel) RankMaterials(ctx context.Context, p, zt, citations []float64, spans []Span, ids []string, params RankParams) ([]RankEntry, error) {
	// Validation and ordering must match the reference exactly; only the
	// per-group evaluation is concurrent.
	n := len(p)
	if len(zt) != n {
		return nil, &ShapeMismatchError{Field: "zt", Want: n, Got: len(zt)}
	}
	if len(citations) != n {
		return nil, &ShapeMismatchError{Field: "citations", Want: n, Got: len(citations)}
	}
	if len(ids) != len(spans) {
		return nil, &ShapeMismatchError{Field: "material ids", Want: len(spans), Got: len(ids)}
	}
	if err := checkSpans(spans, n); err != nil {
		return nil, err
	}
	for i, sp := range spans {
		if sp.Start == sp.End {
			return nil, &ConfigurationError{Reason: "empty material group " + ids[i] + " must be excluded upstream"}
		}
	}

	out := make([]RankEntry, len(spans))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, sp := range spans {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = RankEntry{
				MaterialID: ids[i],
				Score:      rankGroup(p[sp.Start:sp.End], zt[sp.Start:sp.End], citations[sp.Start:sp.End], params),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sortRankEntries(out)
	return out, nil
}

// Checked wraps a non-reference executor and enforces the engine's error
// taxonomy at the boundary: any failure is re-signaled as a
// BackendFailureError and output-dimension mismatches are fatal, never
// coerced.
type Checked struct {
	inner Executor
}

// NewChecked wraps an injected executor.
func NewChecked(inner Executor) *Checked {
	return &Checked{inner: inner}
}

func (c *Checked) FigureOfMerit(ctx context.Context, in ZTInput) ([]float64, []float64, error) {
	zt, ztErr, err := c.inner.FigureOfMerit(ctx, in)
	if err != nil {
		return nil, nil, backendErr("figure_of_merit", err)
	}
	if len(zt) != len(in.S) || len(ztErr) != len(in.S) {
		return nil, nil, &BackendFailureError{Op: "figure_of_merit", Err: &ShapeMismatchError{Field: "backend output", Want: len(in.S), Got: len(zt)}}
	}
	return zt, ztErr, nil
}

func (c *Checked) DetectGaps(ctx context.Context, temps []float64, spans []Span, ids []string, p GapParams) ([]GapEvaluation, error) {
	out, err := c.inner.DetectGaps(ctx, temps, spans, ids, p)
	if err != nil {
		return nil, backendErr("detect_gaps", err)
	}
	if len(out) != len(spans) {
		return nil, &BackendFailureError{Op: "detect_gaps", Err: &ShapeMismatchError{Field: "backend output", Want: len(spans), Got: len(out)}}
	}
	return out, nil
}

func (c *Checked) RankMaterials(ctx context.Context, p, zt, citations []float64, spans []Span, ids []string, params RankParams) ([]RankEntry, error) {
	out, err := c.inner.RankMaterials(ctx, p, zt, citations, spans, ids, params)
	if err != nil {
		return nil, backendErr("rank_materials", err)
	}
	if len(out) != len(spans) {
		return nil, &BackendFailureError{Op: "rank_materials", Err: &ShapeMismatchError{Field: "backend output", Want: len(spans), Got: len(out)}}
	}
	return out, nil
}

func backendErr(op string, err error) error {
	return &BackendFailureError{Op: op, Err: err}
}
