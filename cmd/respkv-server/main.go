package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/yndnr/respkv/internal/infra/buildinfo"
	"github.com/yndnr/respkv/internal/infra/confloader"
	"github.com/yndnr/respkv/internal/infra/shutdown"
	"github.com/yndnr/respkv/internal/server/config"
	"github.com/yndnr/respkv/internal/server/httpserver"
	"github.com/yndnr/respkv/internal/server/localserver"
	"github.com/yndnr/respkv/internal/server/redisserver"
	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/internal/telemetry/logger"
	"github.com/yndnr/respkv/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		_           = flag.String("addr", "", "RESP listen address (overrides server.redis.addr)")
		_           = flag.String("http-addr", "", "Ops HTTP listen address (overrides server.http.addr)")
		_           = flag.String("socket", "", "Enable the local socket at this path (overrides server.local)")
		_           = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides log.level)")
		_           = flag.Int("shards", 0, "Store shard count, a power of two (overrides storage.shards)")
	)
	flag.Parse()
	overrides := flagOverrides(flag.CommandLine)

	if *showVersion {
		fmt.Printf("respkv-server %s\n", buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile, overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slogLogger := log.Slog()

	info := buildinfo.Get()
	log.Info("starting respkv-server",
		"version", info.Version,
		"commit", info.Commit,
		"config_file", *configFile,
		"config", cfg)

	startTime := time.Now()
	ctx := context.Background()

	store := memory.New(memory.WithShardCount(cfg.Storage.Shards))

	metrics := metric.NewRegistry()
	if err := metrics.Register(metric.NewStoreCollector(store)); err != nil {
		return fmt.Errorf("register store metrics: %w", err)
	}

	shutdownHandler := shutdown.NewHandler(cfg.Shutdown.Timeout, slogLogger)

	// Hooks run in reverse order of registration.
	respServer := redisserver.New(redisConfig(cfg), store, metrics, slogLogger)
	if err := respServer.Start(ctx); err != nil {
		return fmt.Errorf("start resp server: %w", err)
	}

	if cfg.Server.Local.Enabled {
		localServer := localserver.New(cfg.Server.Local.Path, respServer, slogLogger)
		if err := localServer.Start(ctx); err != nil {
			_ = respServer.Shutdown(ctx)
			return fmt.Errorf("start local server: %w", err)
		}
		shutdownHandler.OnShutdown("local server", localServer.Shutdown)
	}
	// Closes local socket sessions as well, so it runs before the local hook.
	shutdownHandler.OnShutdown("resp server", respServer.Shutdown)

	if cfg.Server.HTTP.Enabled {
		router := httpserver.NewRouter(&httpserver.RouterConfig{
			Metrics:   metrics,
			Stats:     store,
			Logger:    slogLogger,
			StartTime: startTime,
		})
		opsServer := httpserver.New(cfg.Server.HTTP.Addr, router, slogLogger)
		if err := opsServer.Start(); err != nil {
			_ = respServer.Shutdown(ctx)
			return fmt.Errorf("start http server: %w", err)
		}
		shutdownHandler.OnShutdown("http server", opsServer.Shutdown)
	}

	if *configFile != "" {
		watcher, err := watchConfig(*configFile, overrides, slogLogger)
		if err != nil {
			log.Warn("config reload disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// flagOverrides returns the config values of the flags set on the command
// line, keyed by dotted config path. Unset flags are left out so they do
// not mask the file or environment.
func flagOverrides(fs *flag.FlagSet) map[string]any {
	overrides := make(map[string]any)
	fs.Visit(func(f *flag.Flag) {
		value := f.Value.String()
		switch f.Name {
		case "addr":
			overrides["server.redis.addr"] = value
		case "http-addr":
			overrides["server.http.addr"] = value
		case "socket":
			overrides["server.local.enabled"] = true
			overrides["server.local.path"] = value
		case "log-level":
			overrides["log.level"] = value
		case "shards":
			overrides["storage.shards"] = value
		}
	})
	return overrides
}

// loadConfig loads configuration from file, environment and flag overrides.
func loadConfig(configFile string, overrides map[string]any) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithOverrides(overrides)}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// initLogger creates the redacting logger and installs it as the default.
func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, err
	}

	logger.SetDefault(log)
	return log, nil
}

func redisConfig(cfg *config.ServerConfig) *redisserver.Config {
	r := cfg.Server.Redis
	return &redisserver.Config{
		Addr:          r.Addr,
		ReadTimeout:   r.ReadTimeout,
		WriteTimeout:  r.WriteTimeout,
		IdleTimeout:   r.IdleTimeout,
		RateLimit:     r.RateLimit,
		MaxBufferSize: r.MaxBufferSize,
	}
}

// watchConfig reloads the log level whenever the config file changes.
// Other settings need a restart. A -log-level flag still wins.
func watchConfig(path string, overrides map[string]any, log *slog.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(path); err != nil {
		_ = watcher.Stop()
		return nil, err
	}

	watcher.OnChange(func(string) {
		cfg, err := loadConfig(path, overrides)
		if err != nil {
			log.Warn("config reload rejected", "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	watcher.StartAsync()

	return watcher, nil
}
