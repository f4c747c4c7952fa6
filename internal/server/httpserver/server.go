package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server is the ops HTTP server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	ln         net.Listener
	errCh      chan error
}

// New creates a new HTTP server.
func New(addr string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		logger: logger,
		errCh:  make(chan error, 1),
	}
}

// Start binds the listener and serves in the background.
// Bind errors are returned directly.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("http server listening", "address", ln.Addr().String())

	go func() {
		err := s.httpServer.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			s.logger.Error("http server error", "error", err)
		}
		s.errCh <- err
	}()
	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	if s.ln == nil {
		return nil
	}
	select {
	case err := <-s.errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
