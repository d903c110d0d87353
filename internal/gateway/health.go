package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/flemzord/codeshift/internal/provider"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status    string                  `json:"status"` // "ok" or "degraded"
	Providers []provider.HealthReport `json:"providers"`
}

// handleHealth answers 200 while at least one provider of the chain is
// usable and 503 otherwise.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok", Providers: []provider.HealthReport{}}
		if g.chain != nil {
			resp.Providers = g.chain.Health()
			if !anyUsable(resp.Providers) {
				resp.Status = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func anyUsable(reports []provider.HealthReport) bool {
	for _, r := range reports {
		if r.State != provider.StateDead.String() {
			return true
		}
	}
	return len(reports) == 0
}
