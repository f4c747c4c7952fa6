package config

import (
	"log/slog"
	"time"
)

// ServerConfig is the root configuration for respkv-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Storage  StorageSection  `koanf:"storage"`
	Log      LogSection      `koanf:"log"`
	Shutdown ShutdownSection `koanf:"shutdown"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	Redis RedisConfig `koanf:"redis"`
	HTTP  HTTPConfig  `koanf:"http"`
	Local LocalConfig `koanf:"local"`
}

// RedisConfig configures the RESP listener.
type RedisConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
	// RateLimit is commands per second per remote IP; 0 disables it.
	RateLimit     int `koanf:"rate_limit"`
	MaxBufferSize int `koanf:"max_buffer_size"`
}

// HTTPConfig configures the ops endpoint serving /metrics and /health.
type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// LocalConfig configures the Unix socket listener. It serves the same
// RESP sessions as the TCP listener.
type LocalConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// StorageSection configures the in-memory store.
type StorageSection struct {
	// Shards is the number of independently locked partitions (power of two).
	Shards int `koanf:"shards"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ShutdownSection configures graceful shutdown.
type ShutdownSection struct {
	Timeout time.Duration `koanf:"timeout"`
}

// LogValue implements slog.LogValuer so the effective configuration can be
// logged at startup as one structured attribute.
func (c *ServerConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("redis_addr", c.Server.Redis.Addr),
		slog.Duration("read_timeout", c.Server.Redis.ReadTimeout),
		slog.Duration("write_timeout", c.Server.Redis.WriteTimeout),
		slog.Duration("idle_timeout", c.Server.Redis.IdleTimeout),
		slog.Int("rate_limit", c.Server.Redis.RateLimit),
		slog.Int("max_buffer_size", c.Server.Redis.MaxBufferSize),
		slog.Bool("http_enabled", c.Server.HTTP.Enabled),
		slog.String("http_addr", c.Server.HTTP.Addr),
		slog.Bool("local_enabled", c.Server.Local.Enabled),
		slog.String("local_path", c.Server.Local.Path),
		slog.Int("shards", c.Storage.Shards),
		slog.String("log_level", c.Log.Level),
		slog.String("log_format", c.Log.Format),
		slog.Duration("shutdown_timeout", c.Shutdown.Timeout),
	)
}
