package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/codeshift/internal/batch"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (g *Gateway) handleListRuns() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		runs := []batch.Run{}
		if g.runs != nil {
			runs = g.runs.List()
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

// handleStartRun starts a batch run and answers 202 with its ID. The run
// outlives the request; it ends with the gateway.
func (g *Gateway) handleStartRun() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.runs == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{"runs are not available"})
			return
		}
		run, err := g.runs.Start(g.ctx, "api")
		switch {
		case errors.Is(err, batch.ErrRunInProgress):
			writeJSON(w, http.StatusConflict, errorResponse{err.Error()})
		case err != nil:
			writeJSON(w, http.StatusInternalServerError, errorResponse{err.Error()})
		default:
			g.logger.Info("run started over HTTP", "run", run.ID)
			w.Header().Set("Location", "/api/runs/"+run.ID)
			writeJSON(w, http.StatusAccepted, run)
		}
	}
}

func (g *Gateway) handleGetRun() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if g.runs == nil {
			writeJSON(w, http.StatusNotFound, errorResponse{"run not found"})
			return
		}
		run, ok := g.runs.Get(id)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorResponse{"run not found"})
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}
