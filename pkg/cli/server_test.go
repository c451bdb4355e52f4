package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thermognosis/thermopulse/pkg/config"
	"github.com/thermognosis/thermopulse/pkg/data"
)

func setupServer(t *testing.T) (*httptest.Server, *data.DB) {
	t.Helper()
	db, err := data.Open(filepath.Join(t.TempDir(), data.DataFileName))
	require.NoError(t, err)
	require.NoError(t, db.Init())

	conf := config.Default()
	conf.Deterministic = true

	srv := httptest.NewServer(makeRouter(db, conf))
	t.Cleanup(func() {
		srv.Close()
		_ = db.Close()
	})
	return srv, db
}

func seedServer(t *testing.T, db *data.DB) {
	t.Helper()
	require.NoError(t, data.SavePapers(db, []*data.Paper{
		{ID: "p1", DOI: "10.1000/p1", SourceWeight: 0.9, Transparency: 1.0,
			SampleSize: 100, Reproductions: 3, Citations: 50, Published: 2024},
	}))
	require.NoError(t, data.SaveMeasurements(db, []*data.Measurement{
		{MaterialID: "bi2te3", PaperID: "p1", Temp: 300, Seebeck: 200e-6, Sigma: 1e5, Kappa: 1.5},
		{MaterialID: "bi2te3", PaperID: "p1", Temp: 350, Seebeck: 210e-6, Sigma: 9.5e4, Kappa: 1.4},
	}))
}

func getJSON[T any](t *testing.T, url string, target *T) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
	}
	return resp.StatusCode
}

func TestServer_Health(t *testing.T) {
	srv, _ := setupServer(t)

	var body map[string]string
	code := getJSON(t, srv.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestServer_Materials(t *testing.T) {
	srv, db := setupServer(t)
	seedServer(t, db)

	var list []*data.MaterialSummary
	code := getJSON(t, srv.URL+"/data/materials", &list)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, list, 1)
	assert.Equal(t, "bi2te3", list[0].MaterialID)
	assert.Equal(t, 2, list[0].Observations)

	var ms []*data.Measurement
	code = getJSON(t, srv.URL+"/data/materials/bi2te3", &ms)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, ms, 2)

	var errBody map[string]string
	code = getJSON(t, srv.URL+"/data/materials/nope", &errBody)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServer_RunAndResults(t *testing.T) {
	srv, db := setupServer(t)
	seedServer(t, db)

	resp, err := http.Post(srv.URL+"/run", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res struct {
		RunID          string `json:"run_id"`
		TotalProcessed int    `json:"total_processed"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, 2, res.TotalProcessed)
	require.NotEmpty(t, res.RunID)

	var ranks []*data.RankRecord
	code := getJSON(t, srv.URL+"/data/runs/"+res.RunID+"/ranks", &ranks)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, ranks, 1)
	assert.Equal(t, "bi2te3", ranks[0].MaterialID)

	var gaps []*data.GapRecord
	code = getJSON(t, srv.URL+"/data/runs/"+res.RunID+"/gaps", &gaps)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, gaps, 1)

	var scores []*data.ScoreRecord
	code = getJSON(t, srv.URL+"/data/runs/"+res.RunID+"/scores", &scores)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, scores, 2)

	var run data.Run
	code = getJSON(t, srv.URL+"/data/runs/"+res.RunID, &run)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, res.RunID, run.ID)

	var errBody map[string]string
	code = getJSON(t, srv.URL+"/data/runs/missing", &errBody)
	assert.Equal(t, http.StatusNotFound, code)
}
