package config

import "time"

// Default configuration values.
const (
	DefaultRedisAddr     = "127.0.0.1:6379"
	DefaultReadTimeout   = 30 * time.Second
	DefaultWriteTimeout  = 30 * time.Second
	DefaultIdleTimeout   = 5 * time.Minute
	DefaultMaxBufferSize = 1 << 20

	DefaultHTTPAddr = "127.0.0.1:9121"

	DefaultLocalPath = "/tmp/respkv.sock"

	DefaultShards = 1

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultShutdownTimeout = 10 * time.Second
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Redis: RedisConfig{
				Addr:          DefaultRedisAddr,
				ReadTimeout:   DefaultReadTimeout,
				WriteTimeout:  DefaultWriteTimeout,
				IdleTimeout:   DefaultIdleTimeout,
				RateLimit:     0,
				MaxBufferSize: DefaultMaxBufferSize,
			},
			HTTP: HTTPConfig{
				Enabled: true,
				Addr:    DefaultHTTPAddr,
			},
			Local: LocalConfig{
				Enabled: false,
				Path:    DefaultLocalPath,
			},
		},
		Storage: StorageSection{
			Shards: DefaultShards,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Shutdown: ShutdownSection{
			Timeout: DefaultShutdownTimeout,
		},
	}
}
