// Package config defines the respkv-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default configuration values
//   - verify.go: validation
//
// Configuration is loaded via internal/infra/confloader from a YAML file and
// RESPKV_ environment variables on top of Default().
package config
