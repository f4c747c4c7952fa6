// Package confloader loads configuration with koanf.
//
// Sources, lowest priority first:
//
//  1. Values already set in the target struct (defaults)
//  2. A YAML configuration file
//  3. Environment variables (RESPKV_ prefix)
//
// Environment variable names are matched against the koanf tags of the
// target, so RESPKV_SERVER_REDIS_READ_TIMEOUT sets server.redis.read_timeout.
//
// Watcher reports changes to a configuration file through fsnotify, which
// the server uses to apply a new log level without a restart.
package confloader
