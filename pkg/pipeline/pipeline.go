// Package pipeline orchestrates the end-to-end run: load measurements and
// provenance from the store, validate physics, score quality and
// credibility, compute Bayesian posteriors, detect coverage gaps, rank
// materials and persist everything under a content-addressed run id.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/thermognosis/thermopulse/pkg/config"
	"github.com/thermognosis/thermopulse/pkg/data"
	"github.com/thermognosis/thermopulse/pkg/thermo"
)

const (
	// minSigmaZT keeps the Gaussian likelihood finite for observations
	// reported without uncertainties.
	minSigmaZT = 1e-3

	// minPrior keeps gated-out rows from collapsing the group posterior.
	minPrior = 1e-12

	runIDLength = 12
)

// Result is the immutable summary of one pipeline execution. Counts and
// durations are validated before the result leaves the pipeline.
type Result struct {
	RunID             string  `json:"run_id" yaml:"run_id"`
	ResultHash        string  `json:"result_hash" yaml:"result_hash"`
	TotalProcessed    int     `json:"total_processed" yaml:"total_processed"`
	TotalFailed       int     `json:"total_failed" yaml:"total_failed"`
	TotalInserted     int     `json:"total_inserted" yaml:"total_inserted"`
	AverageScore      float64 `json:"average_score" yaml:"average_score"`
	PhysicsViolations int     `json:"physics_violations" yaml:"physics_violations"`
	Duration          string  `json:"duration" yaml:"duration"`

	durationSeconds float64
}

// Validate rejects results whose counts or duration are logically
// impossible. A frozen summary must never carry a negative count.
func (r *Result) Validate() error {
	if r.TotalProcessed < 0 {
		return &thermo.RangeViolationError{Reason: fmt.Sprintf("total processed count is negative: %d", r.TotalProcessed)}
	}
	if r.TotalFailed < 0 {
		return &thermo.RangeViolationError{Reason: fmt.Sprintf("total failed count is negative: %d", r.TotalFailed)}
	}
	if r.TotalInserted < 0 {
		return &thermo.RangeViolationError{Reason: fmt.Sprintf("total inserted count is negative: %d", r.TotalInserted)}
	}
	if r.PhysicsViolations < 0 {
		return &thermo.RangeViolationError{Reason: fmt.Sprintf("physics violation count is negative: %d", r.PhysicsViolations)}
	}
	if r.durationSeconds < 0 {
		return &thermo.RangeViolationError{Reason: fmt.Sprintf("duration is negative: %g", r.durationSeconds)}
	}
	return nil
}

// Pipeline binds the store, the engine configuration and the batch
// executor for one or more runs.
type Pipeline struct {
	db   *data.DB
	cfg  *config.Config
	exec thermo.Executor
}

// New builds a pipeline from the store and config. Deterministic mode
// forces the sequential reference executor; otherwise group evaluation
// fans out over the configured worker count.
func New(db *data.DB, cfg *config.Config) *Pipeline {
	var exec thermo.Executor
	if cfg.Deterministic {
		exec = thermo.NewReference()
	} else {
		exec = thermo.NewChecked(thermo.NewParallel(cfg.Workers))
	}
	return &Pipeline{db: db, cfg: cfg, exec: exec}
}

// Evaluation carries every intermediate artifact of one pipeline pass.
// Nothing in it has been persisted.
type Evaluation struct {
	Measurements []*data.Measurement
	State        *thermo.ValidatedState
	Scores       []*data.ScoreRecord
	Failed       int
	Gaps         []thermo.GapEvaluation
	Ranks        []thermo.RankEntry
}

// Evaluate runs the engine stages over everything currently in the store
// without persisting anything.
func (p *Pipeline) Evaluate(ctx context.Context) (*Evaluation, error) {
	measurements, err := data.ListMeasurements(p.db)
	if err != nil {
		return nil, fmt.Errorf("failed to load measurements: %w", err)
	}
	if len(measurements) == 0 {
		return &Evaluation{}, nil
	}

	papers, err := loadPaperIndex(p.db)
	if err != nil {
		return nil, err
	}

	in, keys := buildBatch(measurements)

	state, err := thermo.Validate(in, p.cfg.Strict)
	if err != nil {
		return nil, fmt.Errorf("physics validation failed: %w", err)
	}
	slog.Info("validated measurements",
		"rows", len(measurements), "violations", state.ViolationCount())

	scores, failed, err := p.scoreRows(measurements, state, papers)
	if err != nil {
		return nil, err
	}

	posteriors, err := p.computePosteriors(measurements, state, scores, keys)
	if err != nil {
		return nil, err
	}
	for i, s := range scores {
		if s != nil {
			s.Posterior = posteriors[i]
		}
	}

	gaps, ranks, err := p.aggregate(ctx, measurements, state, posteriors, papers, keys)
	if err != nil {
		return nil, err
	}

	return &Evaluation{
		Measurements: measurements,
		State:        state,
		Scores:       scores,
		Failed:       failed,
		Gaps:         gaps,
		Ranks:        ranks,
	}, nil
}

// Run executes the full pipeline over everything currently in the store
// and persists the outcome under a content-addressed run id.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	ev, err := p.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	if len(ev.Measurements) == 0 {
		res := &Result{Duration: time.Since(start).String()}
		slog.Warn("no measurements in store, nothing to run")
		return res, res.Validate()
	}

	res := &Result{
		TotalProcessed:    len(ev.Measurements),
		TotalFailed:       ev.Failed,
		PhysicsViolations: ev.State.ViolationCount(),
		AverageScore:      meanValidZT(ev.State),
	}

	hash, err := resultHash(res, ev.Gaps, ev.Ranks)
	if err != nil {
		return nil, err
	}
	res.ResultHash = hash
	res.RunID = hash[:runIDLength]

	inserted, err := p.persist(res, ev.Measurements, ev.State, ev.Scores, ev.Gaps, ev.Ranks, start)
	if err != nil {
		return nil, err
	}
	res.TotalInserted = inserted
	res.durationSeconds = time.Since(start).Seconds()
	res.Duration = time.Since(start).String()

	if err := res.Validate(); err != nil {
		return nil, err
	}
	slog.Info("pipeline run complete", "run", res.RunID, "inserted", inserted)
	return res, nil
}

// buildBatch flattens the material-ordered measurements into the engine's
// columnar input plus the grouping keys.
func buildBatch(ms []*data.Measurement) (thermo.ZTInput, []string) {
	n := len(ms)
	in := thermo.ZTInput{
		S:        make([]float64, n),
		Sigma:    make([]float64, n),
		Kappa:    make([]float64, n),
		T:        make([]float64, n),
		ErrS:     make([]float64, n),
		ErrSigma: make([]float64, n),
		ErrKappa: make([]float64, n),
		ErrT:     make([]float64, n),
	}
	keys := make([]string, n)
	for i, m := range ms {
		in.S[i] = m.Seebeck
		in.Sigma[i] = m.Sigma
		in.Kappa[i] = m.Kappa
		in.T[i] = m.Temp
		in.ErrS[i] = m.ErrSeebeck
		in.ErrSigma[i] = m.ErrSigma
		in.ErrKappa[i] = m.ErrKappa
		in.ErrT[i] = m.ErrTemp
		keys[i] = m.MaterialID
	}
	return in, keys
}

func loadPaperIndex(db *data.DB) (map[string]*data.Paper, error) {
	papers, err := data.ListPapers(db)
	if err != nil {
		return nil, fmt.Errorf("failed to load papers: %w", err)
	}
	idx := make(map[string]*data.Paper, len(papers))
	for _, p := range papers {
		idx[p.ID] = p
	}
	return idx, nil
}

// scoreRows computes the quality and credibility of every row. Rows whose
// credibility model rejects the paper priors are counted as failed and
// skipped, never aborting the batch.
func (p *Pipeline) scoreRows(ms []*data.Measurement, state *thermo.ValidatedState, papers map[string]*data.Paper) ([]*data.ScoreRecord, int, error) {
	weights, err := thermo.NewWeights(p.cfg.Weights)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid weight configuration: %w", err)
	}
	scorer := thermo.NewQualityScorer(weights)
	now := float64(time.Now().UTC().Year())

	scores := make([]*data.ScoreRecord, len(ms))
	failed := 0
	for i, m := range ms {
		paper := papers[m.PaperID]
		cred, err := thermo.CredibilityScore(credibilityInput(paper, now), p.cfg.Credibility)
		if err != nil {
			failed++
			slog.Warn("rejecting row with invalid provenance priors",
				"material", m.MaterialID, "paper", m.PaperID, "error", err)
			continue
		}

		q, err := qualityVector(m, state, i, cred, paper)
		if err != nil {
			failed++
			slog.Warn("rejecting row with invalid quality components",
				"material", m.MaterialID, "error", err)
			continue
		}

		score, err := p.applyStrategy(scorer, state.Valid[i], q)
		if err != nil {
			return nil, 0, fmt.Errorf("quality scoring failed: %w", err)
		}

		scores[i] = &data.ScoreRecord{
			MaterialID:       m.MaterialID,
			PaperID:          m.PaperID,
			Temp:             m.Temp,
			Quality:          score,
			QualityClass:     string(thermo.ClassifyQuality(score)),
			Credibility:      cred,
			CredibilityClass: string(thermo.ClassifyCredibility(cred)),
		}
	}
	return scores, failed, nil
}

func (p *Pipeline) applyStrategy(scorer *thermo.QualityScorer, gate bool, q thermo.QualityVector) (float64, error) {
	switch p.cfg.Scoring {
	case "", "linear":
		return scorer.Linear(gate, q), nil
	case "multiplicative":
		return scorer.Multiplicative(gate, q), nil
	case "entropy":
		return scorer.EntropyRegularized(gate, q, p.cfg.LambdaEntropy)
	case "risk":
		// Componentwise score uncertainty is not tracked at this layer,
		// so the risk adjustment reduces to the expected score.
		zero := thermo.QualityVector{}
		return scorer.RiskAdjusted(gate, q, zero, p.cfg.GammaRisk)
	default:
		return 0, &thermo.ConfigurationError{
			Reason: fmt.Sprintf("unknown scoring strategy %q, want linear, multiplicative, entropy or risk", p.cfg.Scoring),
		}
	}
}

// qualityVector derives the six quality dimensions of one row.
func qualityVector(m *data.Measurement, state *thermo.ValidatedState, i int, cred float64, paper *data.Paper) (thermo.QualityVector, error) {
	present := 0
	for _, u := range []float64{m.ErrTemp, m.ErrSeebeck, m.ErrSigma, m.ErrKappa} {
		if u > 0 {
			present++
		}
	}
	completeness := float64(present) / 4.0

	physics := 0.0
	if state.Valid[i] {
		physics = 1.0
	}

	errMag := 0.0
	if !math.IsNaN(state.ZTErr[i]) {
		errMag = 1.0 / (1.0 + state.ZTErr[i])
	}

	metadata := 0.0
	if paper != nil {
		metadata = 0.5
		if paper.DOI != "" {
			metadata = 1.0
		}
	}

	// Smoothness needs the whole curve; a single point is trivially
	// smooth.
	const smoothness = 1.0

	return thermo.NewQualityVector(completeness, cred, physics, errMag, smoothness, metadata)
}

func credibilityInput(paper *data.Paper, now float64) thermo.CredibilityInput {
	if paper == nil {
		// Unknown provenance gets the neutral priors: usable but never
		// credible enough to dominate.
		return thermo.CredibilityInput{
			SourceWeight:  0.5,
			Reproductions: 1,
			Transparency:  0.5,
			SampleSize:    1,
			Now:           now,
			Published:     now,
		}
	}
	return thermo.CredibilityInput{
		SourceWeight:  paper.SourceWeight,
		Reproductions: paper.Reproductions,
		Transparency:  paper.Transparency,
		SampleSize:    paper.SampleSize,
		CVError:       paper.CVError,
		Now:           now,
		Published:     paper.Published,
	}
}

// computePosteriors normalizes the Bayesian posterior within each material
// group over its valid rows. Invalid or unscored rows carry posterior 0.
func (p *Pipeline) computePosteriors(ms []*data.Measurement, state *thermo.ValidatedState, scores []*data.ScoreRecord, keys []string) ([]float64, error) {
	out := make([]float64, len(ms))
	spans, _ := thermo.GroupSpans(keys)

	for _, sp := range spans {
		var idx []int
		for i := sp.Start; i < sp.End; i++ {
			if state.Valid[i] && scores[i] != nil {
				idx = append(idx, i)
			}
		}
		if len(idx) == 0 {
			continue
		}

		n := len(idx)
		s := make([]float64, n)
		sigma := make([]float64, n)
		kappa := make([]float64, n)
		temp := make([]float64, n)
		ztObs := make([]float64, n)
		sigmaZT := make([]float64, n)
		prior := make([]float64, n)
		for j, i := range idx {
			s[j] = ms[i].Seebeck
			sigma[j] = ms[i].Sigma
			kappa[j] = ms[i].Kappa
			temp[j] = ms[i].Temp
			ztObs[j] = state.ZT[i]
			sigmaZT[j] = math.Max(state.ZTErr[i], minSigmaZT)
			prior[j] = math.Max(scores[i].Credibility, minPrior)
		}

		post, _, err := thermo.PosteriorCredibility(s, sigma, kappa, temp, ztObs, sigmaZT, prior, p.cfg.LambdaWF)
		if err != nil {
			return nil, fmt.Errorf("posterior computation failed for %s: %w", keys[sp.Start], err)
		}
		for j, i := range idx {
			out[i] = post[j]
		}
	}
	return out, nil
}

// aggregate runs the per-material coverage and ranking stages over the
// valid subset of the batch.
func (p *Pipeline) aggregate(ctx context.Context, ms []*data.Measurement, state *thermo.ValidatedState, posteriors []float64, papers map[string]*data.Paper, keys []string) ([]thermo.GapEvaluation, []thermo.RankEntry, error) {
	var (
		temps     []float64
		post      []float64
		zt        []float64
		citations []float64
		validKeys []string
	)
	for i := range ms {
		if !state.Valid[i] {
			continue
		}
		temps = append(temps, ms[i].Temp)
		post = append(post, posteriors[i])
		zt = append(zt, state.ZT[i])
		c := 0.0
		if paper := papers[ms[i].PaperID]; paper != nil {
			c = float64(paper.Citations)
		}
		citations = append(citations, c)
		validKeys = append(validKeys, keys[i])
	}
	if len(validKeys) == 0 {
		slog.Warn("no valid rows survived the physics gate")
		return nil, nil, nil
	}

	spans, ids := thermo.GroupSpans(validKeys)

	gaps, err := p.exec.DetectGaps(ctx, temps, spans, ids, p.cfg.Gaps)
	if err != nil {
		return nil, nil, fmt.Errorf("gap detection failed: %w", err)
	}

	ranks, err := p.exec.RankMaterials(ctx, post, zt, citations, spans, ids, p.cfg.Rank)
	if err != nil {
		return nil, nil, fmt.Errorf("material ranking failed: %w", err)
	}
	return gaps, ranks, nil
}

func finiteOrZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func meanValidZT(state *thermo.ValidatedState) float64 {
	sum := 0.0
	n := 0
	for i, ok := range state.Valid {
		if ok {
			sum += state.ZT[i]
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// resultHash content-addresses the run: the digest covers the summary
// counts plus the full gap and rank outputs.
func resultHash(res *Result, gaps []thermo.GapEvaluation, ranks []thermo.RankEntry) (string, error) {
	return CanonicalHash(map[string]any{
		"total_processed":    res.TotalProcessed,
		"total_failed":       res.TotalFailed,
		"physics_violations": res.PhysicsViolations,
		"average_score":      res.AverageScore,
		"gaps":               gaps,
		"ranks":              ranks,
	})
}

func (p *Pipeline) persist(res *Result, ms []*data.Measurement, state *thermo.ValidatedState, scores []*data.ScoreRecord, gaps []thermo.GapEvaluation, ranks []thermo.RankEntry, start time.Time) (int, error) {
	paramsJSON, err := CanonicalSerialize(map[string]any{
		"strict":  p.cfg.Strict,
		"scoring": p.cfg.Scoring,
		"weights": p.cfg.Weights,
	})
	if err != nil {
		return 0, err
	}

	if err := data.SaveRun(p.db, &data.Run{
		ID:         res.RunID,
		CreatedAt:  start.UTC(),
		ResultHash: res.ResultHash,
		Params:     string(paramsJSON),
	}); err != nil {
		return 0, fmt.Errorf("failed to persist run: %w", err)
	}

	validations := make([]*data.ValidationRecord, len(ms))
	for i, m := range ms {
		// NaN markers do not round-trip through every SQL driver; the
		// valid flag already carries the signal, so store zero.
		validations[i] = &data.ValidationRecord{
			RunID:      res.RunID,
			MaterialID: m.MaterialID,
			PaperID:    m.PaperID,
			Temp:       m.Temp,
			ZT:         finiteOrZero(state.ZT[i]),
			ZTErr:      finiteOrZero(state.ZTErr[i]),
			Valid:      state.Valid[i],
		}
	}
	if err := data.SaveValidations(p.db, validations); err != nil {
		return 0, fmt.Errorf("failed to persist validations: %w", err)
	}

	kept := make([]*data.ScoreRecord, 0, len(scores))
	for _, s := range scores {
		if s == nil {
			continue
		}
		s.RunID = res.RunID
		kept = append(kept, s)
	}
	if err := data.SaveScores(p.db, kept); err != nil {
		return 0, fmt.Errorf("failed to persist scores: %w", err)
	}

	gapRecords := make([]*data.GapRecord, len(gaps))
	for i, g := range gaps {
		gapRecords[i] = &data.GapRecord{
			RunID:        res.RunID,
			MaterialID:   g.ManifoldID,
			Entropy:      g.Entropy,
			KLDivergence: g.KLDivergence,
			GapScore:     g.GapScore,
		}
	}
	if err := data.SaveGaps(p.db, gapRecords); err != nil {
		return 0, fmt.Errorf("failed to persist gaps: %w", err)
	}

	rankRecords := make([]*data.RankRecord, len(ranks))
	for i, r := range ranks {
		rankRecords[i] = &data.RankRecord{
			RunID:      res.RunID,
			MaterialID: r.MaterialID,
			Score:      r.Score,
			Position:   i + 1,
		}
	}
	if err := data.SaveRanks(p.db, rankRecords); err != nil {
		return 0, fmt.Errorf("failed to persist ranks: %w", err)
	}

	return len(kept), nil
}
