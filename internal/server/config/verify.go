package config

import (
	"errors"
	"fmt"
	"net"

	"github.com/yndnr/respkv/internal/telemetry/logger"
)

// MaxShards bounds storage.shards.
const MaxShards = 4096

// Verify validates the configuration and reports every problem found.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifyStorage(&cfg.Storage),
		verifyLog(&cfg.Log),
		verifyShutdown(&cfg.Shutdown),
	)
}

func verifyServer(cfg *ServerSection) error {
	var errs []error

	if err := verifyAddr("server.redis.addr", cfg.Redis.Addr); err != nil {
		errs = append(errs, err)
	}
	for name, d := range map[string]int64{
		"server.redis.read_timeout":  int64(cfg.Redis.ReadTimeout),
		"server.redis.write_timeout": int64(cfg.Redis.WriteTimeout),
		"server.redis.idle_timeout":  int64(cfg.Redis.IdleTimeout),
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if cfg.Redis.RateLimit < 0 {
		errs = append(errs, errors.New("server.redis.rate_limit must not be negative"))
	}
	if cfg.Redis.MaxBufferSize < 1024 {
		errs = append(errs, errors.New("server.redis.max_buffer_size must be at least 1024"))
	}

	if cfg.HTTP.Enabled {
		if err := verifyAddr("server.http.addr", cfg.HTTP.Addr); err != nil {
			errs = append(errs, err)
		} else if cfg.HTTP.Addr == cfg.Redis.Addr {
			errs = append(errs, errors.New("server.http.addr must differ from server.redis.addr"))
		}
	}

	if cfg.Local.Enabled && cfg.Local.Path == "" {
		errs = append(errs, errors.New("server.local.path is required when server.local.enabled is set"))
	}

	return errors.Join(errs...)
}

func verifyAddr(name, addr string) error {
	if addr == "" {
		return fmt.Errorf("%s is required", name)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.Shards < 1 || cfg.Shards > MaxShards || cfg.Shards&(cfg.Shards-1) != 0 {
		return fmt.Errorf("storage.shards must be a power of two between 1 and %d, got %d", MaxShards, cfg.Shards)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	var errs []error
	if !logger.ValidLevel(cfg.Level) {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", cfg.Level))
	}
	if !logger.ValidFormat(cfg.Format) {
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", cfg.Format))
	}
	return errors.Join(errs...)
}

func verifyShutdown(cfg *ShutdownSection) error {
	if cfg.Timeout <= 0 {
		return errors.New("shutdown.timeout must be positive")
	}
	return nil
}
