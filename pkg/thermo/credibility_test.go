package thermo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pristineCredibilityInput() CredibilityInput {
	return CredibilityInput{
		SourceWeight:     1.0,
		Reproductions:    20,
		Transparency:     1.0,
		PhysicsViolation: 0,
		SampleSize:       10000,
		CVError:          0,
		Now:              2026,
		Published:        2026,
	}
}

func TestCredibilityScore_PristineRecord(t *testing.T) {
	score, err := CredibilityScore(pristineCredibilityInput(), DefaultCredibilityParams())
	require.NoError(t, err)

	// Only the statistical factor n/(n+n0) keeps a pristine record below 1.
	assert.InDelta(t, 10000.0/10010.0, score, 1e-6)
	assert.Equal(t, CredibilityClassA, ClassifyCredibility(score))
}

func TestCredibilityScore_ZeroFactorsCollapse(t *testing.T) {
	params := DefaultCredibilityParams()

	for name, mutate := range map[string]func(*CredibilityInput){
		"no reproductions":  func(in *CredibilityInput) { in.Reproductions = 0 },
		"opaque errors":     func(in *CredibilityInput) { in.Transparency = 0 },
		"zero sample":       func(in *CredibilityInput) { in.SampleSize = 0 },
		"zero source trust": func(in *CredibilityInput) { in.SourceWeight = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			in := pristineCredibilityInput()
			mutate(&in)
			score, err := CredibilityScore(in, params)
			require.NoError(t, err)
			assert.Zero(t, score)
		})
	}
}

func TestCredibilityScore_PhysicsViolationDecay(t *testing.T) {
	params := DefaultCredibilityParams()
	in := pristineCredibilityInput()
	clean, err := CredibilityScore(in, params)
	require.NoError(t, err)

	in.PhysicsViolation = 0.5
	violated, err := CredibilityScore(in, params)
	require.NoError(t, err)
	assert.InDelta(t, clean*math.Exp(-0.5), violated, 1e-12)

	// Negative violation magnitudes never reward.
	in.PhysicsViolation = -3
	rewarded, err := CredibilityScore(in, params)
	require.NoError(t, err)
	assert.InDelta(t, clean, rewarded, 1e-12)
}

func TestCredibilityScore_RecencyDecay(t *testing.T) {
	params := DefaultCredibilityParams()
	in := pristineCredibilityInput()
	in.Published = 2016 // ten years back

	score, err := CredibilityScore(in, params)
	require.NoError(t, err)
	assert.InDelta(t, (10000.0/10010.0)*math.Exp(-0.5), score, 1e-6)

	// Future publication dates saturate at 1 rather than inflating.
	in.Published = 2030
	future, err := CredibilityScore(in, params)
	require.NoError(t, err)
	assert.InDelta(t, 10000.0/10010.0, future, 1e-6)
}

func TestCredibilityScore_MonotoneInSampleSize(t *testing.T) {
	params := DefaultCredibilityParams()
	in := pristineCredibilityInput()
	prev := -1.0
	for _, n := range []int{1, 5, 10, 100, 10000} {
		in.SampleSize = n
		score, err := CredibilityScore(in, params)
		require.NoError(t, err)
		assert.Greater(t, score, prev, "sample size %d", n)
		prev = score
	}
}

func TestCredibilityScore_InputValidation(t *testing.T) {
	params := DefaultCredibilityParams()

	in := pristineCredibilityInput()
	in.SourceWeight = 1.5
	_, err := CredibilityScore(in, params)
	var rv *RangeViolationError
	assert.ErrorAs(t, err, &rv)

	in = pristineCredibilityInput()
	in.Transparency = 0.7
	_, err = CredibilityScore(in, params)
	var ce *ConfigurationError
	assert.ErrorAs(t, err, &ce)

	in = pristineCredibilityInput()
	in.SampleSize = -1
	_, err = CredibilityScore(in, params)
	var cv *ConstraintViolationError
	assert.ErrorAs(t, err, &cv)

	in = pristineCredibilityInput()
	in.Reproductions = -1
	_, err = CredibilityScore(in, params)
	assert.ErrorAs(t, err, &cv)
}

func TestClassifyCredibility(t *testing.T) {
	assert.Equal(t, CredibilityClassA, ClassifyCredibility(0.90))
	assert.Equal(t, CredibilityClassB, ClassifyCredibility(0.80))
	assert.Equal(t, CredibilityClassC, ClassifyCredibility(0.60))
	assert.Equal(t, CredibilityClassD, ClassifyCredibility(0.49))
}

func TestCredibilityScore_InvalidParams(t *testing.T) {
	in := pristineCredibilityInput()

	for name, params := range map[string]CredibilityParams{
		"zero n0":         {Alpha: 1, N0: 0, Beta: 1, LambdaTime: 0.05},
		"negative n0":     {Alpha: 1, N0: -10, Beta: 1, LambdaTime: 0.05},
		"NaN n0":          {Alpha: 1, N0: math.NaN(), Beta: 1, LambdaTime: 0.05},
		"negative alpha":  {Alpha: -1, N0: 10, Beta: 1, LambdaTime: 0.05},
		"negative beta":   {Alpha: 1, N0: 10, Beta: -1, LambdaTime: 0.05},
		"negative lambda": {Alpha: 1, N0: 10, Beta: 1, LambdaTime: -0.05},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := CredibilityScore(in, params)
			var ce *ConfigurationError
			assert.ErrorAs(t, err, &ce)
		})
	}
}

func TestCredibilityScore_ZeroHalfSaturationNeverLeaksNaN(t *testing.T) {
	// n/(n+n0) with n = n0 = 0 is 0/0; the parameter check has to reject
	// it before the model can emit NaN with a nil error.
	in := pristineCredibilityInput()
	in.SampleSize = 0
	params := DefaultCredibilityParams()
	params.N0 = 0

	score, err := CredibilityScore(in, params)
	require.Error(t, err)
	assert.False(t, math.IsNaN(score))
}
