package thermo

import (
	"fmt"
	"math"
	"sort"
)

// RankParams configures the citation weighting and entropy regularization
// of the material ranking model.
type RankParams struct {
	Alpha float64 `json:"alpha" yaml:"alpha"` // citation weight log scale
	Beta  float64 `json:"beta" yaml:"beta"`   // entropy penalty multiplier
}

// DefaultRankParams returns the standard ranking constants.
func DefaultRankParams() RankParams {
	return RankParams{Alpha: 1.0, Beta: 0.1}
}

// A negative alpha would break the wᵢ >= 1 citation weight guarantee.
func (p RankParams) validate() error {
	if !(p.Alpha >= 0) {
		return &ConfigurationError{Reason: fmt.Sprintf("citation weight scale alpha must be non-negative, got %g", p.Alpha)}
	}
	if !(p.Beta >= 0) {
		return &ConfigurationError{Reason: fmt.Sprintf("entropy penalty beta must be non-negative, got %g", p.Beta)}
	}
	return nil
}

// RankEntry is the derived per-material aggregate rank score. It is not
// independently constructible; RankMaterials is its only producer.
type RankEntry struct {
	MaterialID string  `json:"material_id" yaml:"material_id"`
	Score      float64 `json:"score" yaml:"score"`
}

// RankMaterials aggregates, per material group, the aligned posterior
// credibility, figure of merit and citation count sequences into an
// entropy-regularized, citation-weighted rank score:
//
//	wᵢ = 1 + α·ln(1 + cᵢ)            (always >= 1, so Σwᵢ > 0)
//	Rₘ = Σ(wᵢ·pᵢ·zTᵢ) / Σwᵢ
//	Hₘ = −Σ pᵢ·ln(pᵢ + ε)            (raw dispersion penalty, not renormalized)
//	R  = Rₘ − β·Hₘ
//
// Groups are processed independently. Empty groups must be excluded
// upstream and are rejected here. Results are sorted by score descending,
// ties broken by material id ascending.
func RankMaterials(p, zt, citations []float64, spans []Span, ids []string, params RankParams) ([]RankEntry, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
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

	out := make([]RankEntry, len(spans))
	for i, sp := range spans {
		if sp.Start == sp.End {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("empty material group %q must be excluded upstream", ids[i])}
		}
		out[i] = RankEntry{
			MaterialID: ids[i],
			Score:      rankGroup(p[sp.Start:sp.End], zt[sp.Start:sp.End], citations[sp.Start:sp.End], params),
		}
	}
	sortRankEntries(out)
	return out, nil
}

func sortRankEntries(out []RankEntry) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].MaterialID < out[j].MaterialID
	})
}

func rankGroup(p, zt, citations []float64, params RankParams) float64 {
	sumWPZ := 0.0
	sumW := 0.0
	entropy := 0.0
	for i := range p {
		c := math.Max(citations[i], 0)
		w := 1 + params.Alpha*math.Log(1+c)
		sumWPZ += w * p[i] * zt[i]
		sumW += w
		entropy -= p[i] * math.Log(p[i]+epsilon)
	}
	return sumWPZ/sumW - params.Beta*entropy
}
