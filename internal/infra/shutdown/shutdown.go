package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Hook releases one resource during shutdown.
type Hook func(context.Context) error

type namedHook struct {
	name string
	fn   Hook
}

// Handler handles graceful shutdown.
type Handler struct {
	timeout time.Duration
	signals []os.Signal
	logger  *slog.Logger

	mu    sync.Mutex
	hooks []namedHook

	trigger     chan string
	triggerOnce sync.Once
	done        chan struct{}
}

// Option configures a Handler.
type Option func(*Handler)

// WithSignals overrides the signals that start shutdown.
func WithSignals(sigs ...os.Signal) Option {
	return func(h *Handler) {
		h.signals = sigs
	}
}

// NewHandler creates a new shutdown handler. logger may be nil.
func NewHandler(timeout time.Duration, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		timeout: timeout,
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		logger:  logger,
		hooks:   make([]namedHook, 0),
		trigger: make(chan string, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnShutdown registers a shutdown hook.
// Hooks are called in reverse order of registration.
func (h *Handler) OnShutdown(name string, hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, namedHook{name: name, fn: hook})
}

// Trigger starts shutdown without a signal, e.g. after a fatal server error.
// Only the first reason is kept.
func (h *Handler) Trigger(reason string) {
	h.triggerOnce.Do(func() {
		h.trigger <- reason
	})
}

// Wait blocks until a signal, Trigger or ctx cancellation, then runs the
// hooks. It returns every hook error joined.
func (h *Handler) Wait(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	if len(h.signals) > 0 {
		signal.Notify(sigCh, h.signals...)
		defer signal.Stop(sigCh)
	}

	var reason string
	select {
	case sig := <-sigCh:
		reason = "signal " + sig.String()
	case reason = <-h.trigger:
	case <-ctx.Done():
		reason = "context done"
	}
	h.logger.Info("shutting down", "reason", reason, "timeout", h.timeout)

	return h.run()
}

func (h *Handler) run() error {
	defer close(h.done)

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.mu.Lock()
	hooks := make([]namedHook, len(h.hooks))
	copy(hooks, h.hooks)
	h.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		start := time.Now()
		if err := hooks[i].fn(ctx); err != nil {
			h.logger.Error("shutdown hook failed", "hook", hooks[i].name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", hooks[i].name, err))
			continue
		}
		h.logger.Debug("shutdown hook done", "hook", hooks[i].name, "duration", time.Since(start))
	}
	return errors.Join(errs...)
}

// Done returns a channel that closes when shutdown is complete.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
