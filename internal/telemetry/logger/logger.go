package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is the logging surface used across respkv. Servers that take a
// *slog.Logger get one from Slog, so both share a handler and level.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	Slog() *slog.Logger
}

// Config holds logger configuration. It mirrors the log section of the
// server config.
type Config struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string
	// Format is json or text.
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
	// AddSource adds file:line to each record.
	AddSource bool
}

// levels maps accepted level names to slog levels. "warning" is an alias.
var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// globalLevel is shared by every logger built with New, so a config
// reload can change verbosity without rebuilding the handler chain.
var globalLevel = new(slog.LevelVar)

var defaultLogger atomic.Pointer[slogLogger]

func init() {
	defaultLogger.Store(&slogLogger{logger: slog.Default()})
}

type slogLogger struct {
	logger *slog.Logger
}

// New builds a redacting logger and sets the shared level.
// Unknown levels and formats are rejected.
func New(cfg Config) (Logger, error) {
	level, ok := levels[strings.ToLower(cfg.Level)]
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", cfg.Level)
	}
	if !ValidFormat(cfg.Format) {
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	globalLevel.Set(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	return FromSlog(slog.New(newHandler(output, cfg.Format, cfg.AddSource))), nil
}

func newHandler(w io.Writer, format string, addSource bool) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     globalLevel,
		AddSource: addSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// FromSlog wraps l. A nil l wraps slog.Default().
func FromSlog(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{logger: l}
}

// SetLevel changes the shared level. Unknown names are ignored.
func SetLevel(level string) {
	if lv, ok := levels[strings.ToLower(level)]; ok {
		globalLevel.Set(lv)
	}
}

// GetLevel returns the shared level's canonical name.
func GetLevel() string {
	return strings.ToLower(globalLevel.Level().String())
}

// ValidLevel reports whether level names a known log level.
func ValidLevel(level string) bool {
	_, ok := levels[strings.ToLower(level)]
	return ok
}

// ValidFormat reports whether format is json or text. Empty means json.
func ValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case "", "json", "text":
		return true
	}
	return false
}

func (l *slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...)}
}

func (l *slogLogger) Slog() *slog.Logger {
	return l.logger
}

// SetDefault installs l as the fallback for L and as the slog default.
func SetDefault(l Logger) {
	if sl, ok := l.(*slogLogger); ok {
		defaultLogger.Store(sl)
		slog.SetDefault(sl.logger)
	}
}

// Default returns the logger installed by SetDefault.
func Default() Logger {
	return defaultLogger.Load()
}
