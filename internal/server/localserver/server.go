package localserver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
)

// SessionServer runs one session on an accepted connection and closes it
// when done. *redisserver.Server implements it.
type SessionServer interface {
	ServeConn(ctx context.Context, nc net.Conn)
}

// Server represents the local socket server.
type Server struct {
	path     string
	sessions SessionServer
	logger   *slog.Logger

	listener net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup
}

// New creates a new local server. logger may be nil.
func New(socketPath string, sessions SessionServer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		path:     socketPath,
		sessions: sessions,
		logger:   logger,
	}
}

// Start listens on the socket path and accepts in the background. A stale
// socket file left by a previous process is replaced; any other existing
// file is an error.
func (s *Server) Start(ctx context.Context) error {
	if err := removeStaleSocket(s.path); err != nil {
		return err
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return err
	}
	if err := os.Chmod(s.path, 0600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod %s: %w", s.path, err)
	}

	s.listener = ln
	s.running.Store(true)
	s.logger.Info("local server listening", "path", s.path)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ctx); err != nil {
			s.logger.Error("local accept loop error", "error", err)
		}
	}()
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.sessions.ServeConn(ctx, conn)
		}()
	}
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.path
}

// Shutdown stops accepting and waits for accepted sessions, which end when
// the session server closes them. The socket file is removed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var closeErr error
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			closeErr = err
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return closeErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func removeStaleSocket(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode()&fs.ModeSocket == 0 {
		return fmt.Errorf("%s exists and is not a socket", path)
	}
	return os.Remove(path)
}
