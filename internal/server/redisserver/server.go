package redisserver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/respkv/internal/core/domain"
	"github.com/yndnr/respkv/internal/telemetry/logger"
	"github.com/yndnr/respkv/internal/telemetry/metric"
)

// readChunk is the size of a single socket read.
const readChunk = 4096

// Config holds the RESP server configuration.
type Config struct {
	// Addr is the TCP listen address.
	Addr string
	// ReadTimeout bounds the time to receive the rest of a message once its
	// first bytes have arrived (slowloris protection).
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing replies.
	WriteTimeout time.Duration
	// IdleTimeout is how long a connection may stay silent between messages.
	IdleTimeout time.Duration
	// RateLimit is the maximum number of commands per second per remote IP.
	// Set to 0 to disable rate limiting.
	RateLimit int
	// MaxBufferSize caps unconsumed input per connection. A connection whose
	// pending bytes exceed it is closed.
	MaxBufferSize int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:          "127.0.0.1:6379",
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   5 * time.Minute,
		RateLimit:     0,
		MaxBufferSize: 1 << 20,
	}
}

// Server accepts RESP connections and serves each one on its own goroutine.
type Server struct {
	cfg      *Config
	handler  *CommandHandler
	logger   *slog.Logger
	metrics  *metric.Registry
	limiters *limiterRegistry

	ln      net.Listener
	running atomic.Bool
	wg      sync.WaitGroup

	mu    sync.Mutex
	conns map[*Conn]struct{}
}

// Conn is a single client connection.
type Conn struct {
	id      string
	netConn net.Conn
	bw      *bufio.Writer
	closed  atomic.Bool

	// framed is set after a message is consumed and cleared by an error
	// reply. Bytes starting with '$' right after a message are surplus
	// elements of that message's array.
	framed bool
}

func newConn(c net.Conn) *Conn {
	return &Conn{
		id:      ulid.Make().String(),
		netConn: c,
		bw:      bufio.NewWriter(c),
	}
}

// ID returns the connection's ULID.
func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// New creates a new RESP server over store. metrics may be nil.
func New(cfg *Config, store Store, metrics *metric.Registry, logger *slog.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		handler: NewCommandHandler(store, metrics),
		logger:  logger,
		metrics: metrics,
		conns:   make(map[*Conn]struct{}),
	}
	if cfg.RateLimit > 0 {
		s.limiters = newLimiterRegistry(cfg.RateLimit)
	}
	return s
}

// Start binds the listener and runs the accept loop in the background.
// Bind errors are returned directly.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.running.Store(true)

	s.logger.Info("resp server listening", "address", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ctx, ln); err != nil && s.running.Load() {
			s.logger.Error("resp accept loop error", "error", err)
		}
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

// Shutdown stops accepting, closes open connections and waits for their
// goroutines to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var firstErr error
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			firstErr = err
		}
	}

	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return firstErr
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if !s.running.Load() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ServeConn(ctx, c)
		}()
	}
}

// ServeConn runs a session on nc until the peer disconnects, an I/O error
// or timeout occurs, or the server shuts down. It closes nc on return.
func (s *Server) ServeConn(ctx context.Context, nc net.Conn) {
	c := newConn(nc)
	if !s.track(c) {
		_ = c.Close()
		return
	}
	defer s.untrack(c)
	defer c.Close()

	s.metrics.ConnOpened()
	defer s.metrics.ConnClosed()

	var limiter *rate.Limiter
	if s.limiters != nil {
		ip := remoteIP(c.RemoteAddr())
		limiter = s.limiters.Acquire(ip)
		defer s.limiters.Release(ip)
	}

	ctx = logger.WithConnID(ctx, c.id)
	ctx = logger.WithLogger(ctx, logger.FromSlog(s.logger))
	log := logger.L(ctx)
	log.Debug("connection opened", "remote", c.RemoteAddr().String())
	defer log.Debug("connection closed")

	buf := make([]byte, 0, readChunk)
	chunk := make([]byte, readChunk)

	for {
		// Idle timeout while waiting for a new message; read timeout while a
		// partial one is buffered.
		timeout := s.idleTimeout()
		if len(buf) > 0 {
			timeout = s.readTimeout()
		}
		if err := c.netConn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return
		}

		n, readErr := c.netConn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)

			var fatal bool
			buf, fatal = s.process(ctx, c, limiter, buf)

			if err := c.netConn.SetWriteDeadline(time.Now().Add(s.writeTimeout())); err != nil {
				return
			}
			if err := c.bw.Flush(); err != nil {
				log.Debug("connection write error", "error", err)
				return
			}
			if fatal {
				return
			}
			if s.cfg.MaxBufferSize > 0 && len(buf) > s.cfg.MaxBufferSize {
				log.Warn("connection buffer limit exceeded", "pending", len(buf))
				return
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) || errors.Is(readErr, net.ErrClosed) {
				return
			}
			var netErr net.Error
			if errors.As(readErr, &netErr) && netErr.Timeout() {
				if len(buf) == 0 {
					log.Debug("connection timed out")
					return
				}
				// A message that never completes is answered like any
				// malformed one, and the session goes back to idle.
				log.Debug("incomplete message timed out", "discarded", len(buf))
				buf = buf[:0]
				c.framed = false
				s.metrics.IncError(domain.Category(domain.ErrProtocol))
				_ = WriteResult(c.bw, Error(domain.ErrProtocol.WithDetails("incomplete message")))
				if err := c.netConn.SetWriteDeadline(time.Now().Add(s.writeTimeout())); err != nil {
					return
				}
				if err := c.bw.Flush(); err != nil {
					log.Debug("connection write error", "error", err)
					return
				}
				continue
			}
			log.Debug("connection read error", "error", readErr)
			return
		}
	}
}

// process answers every complete message in buf and returns the unconsumed
// tail. A protocol error discards the rest of buf; fatal reports that the
// connection must be closed. Surplus elements following an answered message
// are dropped without a reply, so each request gets exactly one.
func (s *Server) process(ctx context.Context, c *Conn, limiter *rate.Limiter, buf []byte) (rest []byte, fatal bool) {
	pending := buf
	for len(pending) > 0 {
		var (
			req *Request
			n   int
			err error
		)
		if c.framed && pending[0] == '$' {
			// Surplus element of the message just answered.
			_, n, err = readBulkString(pending, 0)
			if err == nil {
				logger.L(ctx).Debug("surplus array element discarded", "bytes", n)
				pending = pending[n:]
				continue
			}
		} else {
			req, n, err = decodeFrame(pending)
		}
		if errors.Is(err, errIncomplete) {
			break
		}
		if err != nil {
			c.framed = false
			s.metrics.IncError(domain.Category(err))
			_ = WriteResult(c.bw, Error(err))
			if errors.Is(err, domain.ErrLimitExceeded) {
				logger.L(ctx).Warn("protocol limit exceeded", "remote", c.RemoteAddr().String(), "error", err)
				return buf[:0], true
			}
			logger.L(ctx).Debug("protocol error", "error", err, "discarded", len(pending))
			return buf[:0], false
		}
		pending = pending[n:]
		c.framed = true

		if limiter != nil && !limiter.Allow() {
			s.metrics.IncError(domain.Category(domain.ErrRateLimited))
			_ = WriteResult(c.bw, Error(domain.ErrRateLimited))
			continue
		}

		if err := WriteResult(c.bw, s.handler.Handle(ctx, req)); err != nil {
			return buf[:0], true
		}
	}

	// Move the incomplete tail to the front so buf does not grow without bound.
	return append(buf[:0], pending...), false
}

func (s *Server) track(c *Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil && !s.running.Load() {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c *Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

func (s *Server) readTimeout() time.Duration {
	if s.cfg.ReadTimeout > 0 {
		return s.cfg.ReadTimeout
	}
	return 30 * time.Second
}

func (s *Server) writeTimeout() time.Duration {
	if s.cfg.WriteTimeout > 0 {
		return s.cfg.WriteTimeout
	}
	return 30 * time.Second
}

func (s *Server) idleTimeout() time.Duration {
	if s.cfg.IdleTimeout > 0 {
		return s.cfg.IdleTimeout
	}
	return 5 * time.Minute
}
