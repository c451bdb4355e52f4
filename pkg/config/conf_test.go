package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	dir := t.TempDir()

	c1, err := ReadOrCreate(dir)
	require.NoError(t, err)
	require.NotNil(t, c1)

	// First read materializes the defaults.
	assert.Equal(t, "linear", c1.Scoring)
	assert.Len(t, c1.Weights, 6)
	assert.Equal(t, 10.0, c1.Credibility.N0)
	assert.Equal(t, 300.0, c1.Gaps.DomainMin)

	c1.Strict = true
	c1.Scoring = "multiplicative"
	c1.Workers = 4
	c1.LambdaWF = 2.5

	require.NoError(t, Save(dir, c1))

	c2, err := ReadOrCreate(dir)
	require.NoError(t, err)
	require.NotNil(t, c2)
	assert.Equal(t, c1.Strict, c2.Strict)
	assert.Equal(t, c1.Scoring, c2.Scoring)
	assert.Equal(t, c1.Workers, c2.Workers)
	assert.Equal(t, c1.LambdaWF, c2.LambdaWF)
	assert.Equal(t, c1.Weights, c2.Weights)
}

func TestConfig_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fresh")
	c, err := ReadOrCreate(dir)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestConfig_EmptyDir(t *testing.T) {
	_, err := ReadOrCreate("")
	assert.Error(t, err)
	assert.Error(t, Save("", getDefaultConfig()))
	assert.Error(t, Save(t.TempDir(), nil))
}
