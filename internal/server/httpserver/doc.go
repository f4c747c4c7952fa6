// Package httpserver serves the respkv ops endpoint.
//
// Routes:
//
//	GET /metrics  Prometheus metrics
//	GET /health   liveness, build info and store counts
//
// The RESP data path does not go through HTTP.
package httpserver
