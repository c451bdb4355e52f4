package cli

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thermognosis/thermopulse/pkg/data"
)

func TestImportPapersURL(t *testing.T) {
	db, err := data.Open(filepath.Join(t.TempDir(), data.DataFileName))
	require.NoError(t, err)
	require.NoError(t, db.Init())
	t.Cleanup(func() { _ = db.Close() })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": "p-remote", "doi": "10.1000/remote", "source_weight": 0.8,
			 "transparency": 1.0, "sample_size": 12, "reproductions": 2,
			 "cv_error": 0.05, "citations": 40, "published": 2021}
		]`))
	}))
	defer srv.Close()

	n, err := importPapersURL(db, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	p, err := data.GetPaper(db, "p-remote")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "10.1000/remote", p.DOI)
	assert.Equal(t, 40, p.Citations)
}

func TestImportPapersURL_BadEndpoint(t *testing.T) {
	db, err := data.Open(filepath.Join(t.TempDir(), data.DataFileName))
	require.NoError(t, err)
	require.NoError(t, db.Init())
	t.Cleanup(func() { _ = db.Close() })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err = importPapersURL(db, srv.URL)
	require.Error(t, err)
}
