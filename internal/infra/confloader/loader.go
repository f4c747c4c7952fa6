package confloader

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "RESPKV_"

// Loader loads configuration from multiple sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	overrides map[string]any

	// envKeys maps "server_redis_read_timeout" to "server.redis.read_timeout".
	envKeys map[string]string
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithOverrides sets values that take precedence over every other source,
// typically command-line flags. Keys may be dotted paths.
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) {
		l.overrides = values
	}
}

// WithKnownKeys registers dotted keys whose segments contain underscores,
// so the matching environment variables resolve to them.
func WithKnownKeys(keys ...string) Option {
	return func(l *Loader) {
		l.addKnownKeys(keys)
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
		envKeys:   make(map[string]string),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load loads configuration from all sources and unmarshals into target.
// Loading order (later sources override earlier):
//  1. Values already present in target (defaults)
//  2. Configuration file (YAML)
//  3. Environment variables
//  4. Overrides (WithOverrides)
//
// The koanf tags of target are registered as known keys before loading.
func (l *Loader) Load(target any) error {
	l.addKnownKeys(KeysOf(target))

	if l.filePath != "" {
		if err := l.LoadFile(l.filePath); err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.LoadEnv(); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	if len(l.overrides) > 0 {
		if err := l.LoadMap(l.overrides); err != nil {
			return fmt.Errorf("load overrides: %w", err)
		}
	}

	if err := l.Unmarshal(target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// LoadFile loads configuration from a YAML file.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}

	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}

	return nil
}

// LoadEnv loads configuration from environment variables.
// Environment variables use the format: RESPKV_SECTION_KEY (uppercase, underscores).
// Example: RESPKV_SERVER_REDIS_READ_TIMEOUT=10s -> server.redis.read_timeout
//
// Names matching a known key map to it; any other name has every
// underscore turned into a dot.
func (l *Loader) LoadEnv() error {
	provider := env.Provider(l.envPrefix, ".", l.envKey)
	if err := l.k.Load(provider, nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	return nil
}

func (l *Loader) envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, l.envPrefix))
	if key, ok := l.envKeys[s]; ok {
		return key
	}
	return strings.ReplaceAll(s, "_", ".")
}

func (l *Loader) addKnownKeys(keys []string) {
	for _, key := range keys {
		l.envKeys[strings.ReplaceAll(key, ".", "_")] = key
	}
}

// LoadMap loads configuration from a map.
// Keys may be nested maps or dotted paths.
func (l *Loader) LoadMap(data map[string]any) error {
	if err := l.k.Load(mapProvider(data), nil); err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	return nil
}

// Unmarshal unmarshals the loaded configuration into the target struct.
// Uses koanf tags for struct field mapping; durations accept "30s" strings.
func (l *Loader) Unmarshal(target any) error {
	return l.k.Unmarshal("", target)
}
