package thermo

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankMaterials_SingleObservation(t *testing.T) {
	// One observation, zero citations: w = 1, R = p·zT − β·(−p·ln(p)).
	p := []float64{0.8}
	zt := []float64{1.5}
	cites := []float64{0}

	entries, err := RankMaterials(p, zt, cites, []Span{{0, 1}}, []string{"m1"}, DefaultRankParams())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	want := 0.8*1.5 - 0.1*(-0.8*math.Log(0.8))
	assert.InDelta(t, want, entries[0].Score, 1e-12)
}

func TestRankMaterials_CitationsShiftWeight(t *testing.T) {
	// Two observations with different zT: citing the higher one more
	// heavily must raise the aggregate score.
	p := []float64{0.9, 0.9}
	zt := []float64{0.5, 2.0}
	spans := []Span{{0, 2}}
	ids := []string{"m"}

	flat, err := RankMaterials(p, zt, []float64{0, 0}, spans, ids, DefaultRankParams())
	require.NoError(t, err)

	skewed, err := RankMaterials(p, zt, []float64{0, 500}, spans, ids, DefaultRankParams())
	require.NoError(t, err)

	assert.Greater(t, skewed[0].Score, flat[0].Score)
}

func TestRankMaterials_NegativeCitationsTreatedAsZero(t *testing.T) {
	p := []float64{0.9}
	zt := []float64{1.0}
	spans := []Span{{0, 1}}
	ids := []string{"m"}

	a, err := RankMaterials(p, zt, []float64{0}, spans, ids, DefaultRankParams())
	require.NoError(t, err)
	b, err := RankMaterials(p, zt, []float64{-7}, spans, ids, DefaultRankParams())
	require.NoError(t, err)

	assert.Equal(t, a[0].Score, b[0].Score)
}

func TestRankMaterials_EntropyPenalty(t *testing.T) {
	// Same weighted mean, but dispersed credibilities carry a larger raw
	// entropy term and therefore a lower final score.
	zt := []float64{1.0, 1.0}
	cites := []float64{0, 0}
	spans := []Span{{0, 2}}
	ids := []string{"m"}

	confident, err := RankMaterials([]float64{0.999, 0.001}, zt, cites, spans, ids, DefaultRankParams())
	require.NoError(t, err)
	dispersed, err := RankMaterials([]float64{0.5, 0.5}, zt, cites, spans, ids, DefaultRankParams())
	require.NoError(t, err)

	assert.Greater(t, confident[0].Score, dispersed[0].Score)
}

func TestRankMaterials_EmptyGroupRejected(t *testing.T) {
	_, err := RankMaterials([]float64{0.5}, []float64{1}, []float64{0},
		[]Span{{0, 1}, {1, 1}}, []string{"m1", "m2"}, DefaultRankParams())
	var ce *ConfigurationError
	assert.ErrorAs(t, err, &ce)
}

func TestRankMaterials_ShapeChecks(t *testing.T) {
	var sm *ShapeMismatchError

	_, err := RankMaterials([]float64{0.5}, []float64{1, 2}, []float64{0},
		[]Span{{0, 1}}, []string{"m"}, DefaultRankParams())
	assert.ErrorAs(t, err, &sm)

	_, err = RankMaterials([]float64{0.5}, []float64{1}, []float64{0, 0},
		[]Span{{0, 1}}, []string{"m"}, DefaultRankParams())
	assert.ErrorAs(t, err, &sm)

	_, err = RankMaterials([]float64{0.5}, []float64{1}, []float64{0},
		[]Span{{0, 1}}, []string{"m1", "m2"}, DefaultRankParams())
	assert.ErrorAs(t, err, &sm)
}

func TestRankMaterials_TiesBreakByMaterialID(t *testing.T) {
	p := []float64{0.5, 0.5}
	zt := []float64{1.0, 1.0}
	cites := []float64{0, 0}
	spans := []Span{{0, 1}, {1, 2}}

	entries, err := RankMaterials(p, zt, cites, spans, []string{"zeta", "alpha"}, DefaultRankParams())
	require.NoError(t, err)
	assert.Equal(t, "alpha", entries[0].MaterialID)
	assert.Equal(t, "zeta", entries[1].MaterialID)
}

func TestRankMaterials_ReferenceMaterialsSurface(t *testing.T) {
	// A large noisy background of poor performers must not displace two
	// well-cited, high-credibility reference materials from the top.
	const background = 1000

	var p, zt, cites []float64
	var keys []string
	for i := 0; i < background; i++ {
		id := fmt.Sprintf("bg-%04d", i)
		for j := 0; j < 3; j++ {
			p = append(p, 0.4)
			zt = append(zt, 0.05+0.0002*float64(i%100))
			cites = append(cites, float64(i%5))
			keys = append(keys, id)
		}
	}
	for _, ref := range []string{"ref-bi2te3", "ref-pbte"} {
		for j := 0; j < 3; j++ {
			p = append(p, 0.95)
			zt = append(zt, 1.2+0.1*float64(j))
			cites = append(cites, 2000)
			keys = append(keys, ref)
		}
	}

	spans, ids := GroupSpans(keys)
	entries, err := RankMaterials(p, zt, cites, spans, ids, DefaultRankParams())
	require.NoError(t, err)
	require.Len(t, entries, background+2)

	top := map[string]bool{}
	for _, e := range entries[:10] {
		top[e.MaterialID] = true
	}
	assert.True(t, top["ref-bi2te3"])
	assert.True(t, top["ref-pbte"])
}

func TestRankMaterials_InvalidParams(t *testing.T) {
	p := []float64{0.8}
	zt := []float64{1.5}
	cites := []float64{10}
	spans := []Span{{0, 1}}
	ids := []string{"m1"}

	for name, params := range map[string]RankParams{
		"negative alpha": {Alpha: -1, Beta: 0.1},
		"negative beta":  {Alpha: 1, Beta: -0.1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := RankMaterials(p, zt, cites, spans, ids, params)
			var ce *ConfigurationError
			assert.ErrorAs(t, err, &ce)
		})
	}
}
