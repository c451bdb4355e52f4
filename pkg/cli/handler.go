package cli

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/thermognosis/thermopulse/pkg/config"
	"github.com/thermognosis/thermopulse/pkg/data"
	"github.com/thermognosis/thermopulse/pkg/pipeline"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryParamInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func healthAPIHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version})
}

func materialsAPIHandler(db *data.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		like := r.URL.Query().Get("like")
		limit := queryParamInt(r, "limit", queryResultLimitDefault)
		list, err := data.ListMaterials(db, like, limit)
		if err != nil {
			slog.Error("failed to list materials", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list materials")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func materialAPIHandler(db *data.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		list, err := data.ListMaterialMeasurements(db, id)
		if err != nil {
			slog.Error("failed to list measurements", "material", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list measurements")
			return
		}
		if len(list) == 0 {
			writeError(w, http.StatusNotFound, "material not found")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func papersAPIHandler(db *data.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		list, err := data.ListPapers(db)
		if err != nil {
			slog.Error("failed to list papers", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list papers")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func runAPIHandler(db *data.DB, conf *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := pipeline.New(db, conf).Run(r.Context())
		if err != nil {
			slog.Error("pipeline run failed", "error", err)
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func runDetailAPIHandler(db *data.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		run, err := data.GetRun(db, id)
		if err != nil {
			slog.Error("failed to get run", "run", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get run")
			return
		}
		if run == nil {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

func gapsAPIHandler(db *data.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		limit := queryParamInt(r, "limit", queryResultLimitDefault)
		list, err := data.TopGaps(db, id, limit)
		if err != nil {
			slog.Error("failed to list gaps", "run", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list gaps")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func ranksAPIHandler(db *data.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		limit := queryParamInt(r, "limit", queryResultLimitDefault)
		list, err := data.TopRanks(db, id, limit)
		if err != nil {
			slog.Error("failed to list ranks", "run", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list ranks")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func scoresAPIHandler(db *data.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		list, err := data.ListScores(db, id)
		if err != nil {
			slog.Error("failed to list scores", "run", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list scores")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
