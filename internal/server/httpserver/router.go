package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yndnr/respkv/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Metrics backs GET /metrics. Nil disables the route.
	Metrics *metric.Registry

	// Stats reports store counts in GET /health. May be nil.
	Stats metric.StatsSource

	// Logger for request logging.
	Logger *slog.Logger

	// StartTime is reported as uptime in GET /health.
	StartTime time.Time
}

// NewRouter creates the ops router:
//
//	GET /metrics  Prometheus exposition
//	GET /health   liveness with build info
func NewRouter(cfg *RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := cfg.StartTime
	if start.IsZero() {
		start = time.Now()
	}

	mux := http.NewServeMux()
	mux.Handle("GET /health", &healthHandler{stats: cfg.Stats, start: start})
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}

	// Order: Recover -> RequestID -> AccessLog -> mux
	return Chain(mux, Recover(logger), RequestID(), AccessLog(logger))
}
