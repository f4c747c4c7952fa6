// Package metric provides Prometheus metrics for respkv.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Registry with command, error and connection metrics
//   - collector.go: StoreCollector reading store sizes at scrape time
//
// Metrics are exposed at /metrics in Prometheus format by the ops HTTP server.
package metric
