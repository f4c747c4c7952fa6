package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/yndnr/respkv/internal/infra/buildinfo"
	"github.com/yndnr/respkv/internal/telemetry/metric"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string         `json:"status"`
	Time          string         `json:"time"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Build         buildinfo.Info `json:"build"`
	Keys          *int           `json:"keys,omitempty"`
	ExpiredKeys   *int           `json:"expired_keys,omitempty"`
}

type healthHandler struct {
	stats metric.StatsSource
	start time.Time
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	resp := HealthResponse{
		Status:        "ok",
		Time:          now.UTC().Format(time.RFC3339),
		UptimeSeconds: int64(now.Sub(h.start).Seconds()),
		Build:         buildinfo.Get(),
	}
	if h.stats != nil {
		st := h.stats.Stats(r.Context())
		resp.Keys = &st.Keys
		resp.ExpiredKeys = &st.Expired
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
