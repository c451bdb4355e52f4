package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPapers() []*Paper {
	return []*Paper{
		{ID: "p1", DOI: "10.1000/xyz", Title: "Transport in Bi2Te3", SourceWeight: 0.9,
			Transparency: 1.0, SampleSize: 40, Reproductions: 3, CVError: 0.05, Citations: 210, Published: 2018},
		{ID: "p2", SourceWeight: 0.5, Transparency: 0.5, SampleSize: 12, Citations: 8, Published: 2024},
	}
}

func TestSavePapers_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, SavePapers(db, testPapers()))

	p, err := GetPaper(db, "p1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "10.1000/xyz", p.DOI)
	assert.Equal(t, 210, p.Citations)
	assert.Equal(t, 0.9, p.SourceWeight)

	list, err := ListPapers(db)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p1", list[0].ID)
	assert.Equal(t, "p2", list[1].ID)
}

func TestSavePapers_UpsertReplaces(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, SavePapers(db, testPapers()))

	update := testPapers()[:1]
	update[0].Citations = 400
	require.NoError(t, SavePapers(db, update))

	p, err := GetPaper(db, "p1")
	require.NoError(t, err)
	assert.Equal(t, 400, p.Citations)
}

func TestGetPaper_Unknown(t *testing.T) {
	db := setupTestDB(t)
	p, err := GetPaper(db, "missing")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestPapers_NilDB(t *testing.T) {
	assert.Error(t, SavePapers(nil, testPapers()))
	_, err := GetPaper(nil, "p1")
	assert.Error(t, err)
	_, err = ListPapers(nil)
	assert.Error(t, err)
}
