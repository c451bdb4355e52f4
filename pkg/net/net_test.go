package net

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPClient(t *testing.T) {
	client, err := GetHTTPClient()
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.NotNil(t, client.Jar)
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mat_id,paper_id,temp\nbi2te3,p1,300\n"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "measurements.csv")
	require.NoError(t, Download(srv.URL, path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "bi2te3")
}

func TestDownload_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := Download(srv.URL, filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, ErrorURLNotFound)
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"p1","citations":12}`))
	}))
	defer srv.Close()

	var out struct {
		ID        string `json:"id"`
		Citations int    `json:"citations"`
	}
	require.NoError(t, GetJSON(srv.URL, &out))
	assert.Equal(t, "p1", out.ID)
	assert.Equal(t, 12, out.Citations)
}
