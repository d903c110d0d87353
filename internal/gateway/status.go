package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/flemzord/codeshift/internal/provider"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime           int64                   `json:"uptime_seconds"`
	RunActive        bool                    `json:"run_active"`
	Runs             int                     `json:"runs"`
	EventSubscribers int                     `json:"event_subscribers"`
	EventsDropped    int64                   `json:"events_dropped"`
	Providers        []provider.HealthReport `json:"providers"`
}

func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Uptime:           int64(time.Since(g.startedAt).Seconds()),
			EventSubscribers: g.hub.Subscribers(),
			EventsDropped:    g.hub.Dropped(),
			Providers:        []provider.HealthReport{},
		}
		if g.runs != nil {
			resp.RunActive = g.runs.Active()
			resp.Runs = len(g.runs.List())
		}
		if g.chain != nil {
			resp.Providers = g.chain.Health()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
