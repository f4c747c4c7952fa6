// Package main provides the entry point for respkv-server.
//
// respkv-server serves PING, ECHO, GET and SET over RESP from an in-memory
// store with per-key expiry. An optional HTTP ops endpoint exposes
// Prometheus metrics and a health check.
//
// Usage:
//
//	respkv-server [flags]
//	respkv-server -config /path/to/config.yaml
//
// Settings come from defaults, then the YAML file, then RESPKV_*
// environment variables (RESPKV_SERVER_REDIS_ADDR=0.0.0.0:6379). Changes
// to log.level in the file take effect without a restart.
package main
