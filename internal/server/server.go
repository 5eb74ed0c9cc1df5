// Package server is the ping listener: a raw TCP accept loop that answers
// one minimal HTTP/1.1 request per connection.
package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/d4z3x/pingd/internal/config"
	"github.com/d4z3x/pingd/internal/db"
	"github.com/d4z3x/pingd/internal/metrics"
	"github.com/d4z3x/pingd/internal/probe"
	"github.com/d4z3x/pingd/internal/wire"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const acceptBackoff = 50 * time.Millisecond

// History receives one record per probe. Write errors are logged only.
type History interface {
	InsertProbe(r *db.ProbeRecord) error
}

type Server struct {
	prober      probe.Prober
	timeout     time.Duration
	defaultHost string
	readTimeout time.Duration
	workers     int
	history     History
	metrics     *metrics.Metrics
	logger      *zap.Logger

	// ctx is handed to probes and cancelled only when Shutdown runs out of time.
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	ln      net.Listener
	closing atomic.Bool
	served  atomic.Int64
}

// New builds a server from cfg. history, m and logger may be nil.
func New(cfg *config.Config, prober probe.Prober, history History, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaultHost := cfg.DefaultHost
	if defaultHost == "" {
		defaultHost = probe.DefaultHost
	}
	timeout := cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		prober:      prober,
		timeout:     timeout,
		defaultHost: defaultHost,
		readTimeout: cfg.ReadTimeout,
		workers:     cfg.Workers,
		history:     history,
		metrics:     m,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Listen binds addr with SO_REUSEADDR set. The accept backlog is the kernel
// default (somaxconn).
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	lc := net.ListenConfig{Control: reuseAddr}
	return lc.Listen(ctx, "tcp", addr)
}

// Serve accepts connections on ln until Shutdown is called. With one worker
// each connection is read, answered and closed before the next Accept. With
// more, Accept blocks until a worker is free. Serve must be called once.
func (s *Server) Serve(ln net.Listener) error {
	defer close(s.done)

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	if s.closing.Load() {
		return ln.Close()
	}

	if s.workers <= 1 {
		return s.acceptLoop(ln, s.handle)
	}

	conns := make(chan net.Conn)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for conn := range conns {
				s.handle(conn)
			}
		}()
	}

	err := s.acceptLoop(ln, func(conn net.Conn) { conns <- conn })
	close(conns)
	wg.Wait()
	return err
}

func (s *Server) acceptLoop(ln net.Listener, dispatch func(net.Conn)) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closing.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("accept failed", zap.Error(err))
			time.Sleep(acceptBackoff)
			continue
		}
		dispatch(conn)
	}
}

// Shutdown stops accepting and waits for in-flight connections. If ctx
// expires first, running probes are cancelled and ctx's error is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closing.Store(true)

	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return nil
	}
	ln.Close()

	select {
	case <-s.done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

// Addr is the bound address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Served counts responses written since start.
func (s *Server) Served() int64 {
	return s.served.Load()
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	start := time.Now()
	if s.readTimeout > 0 {
		_ = conn.SetReadDeadline(start.Add(s.readTimeout))
	}

	req, err := wire.ReadRequest(conn)
	if err != nil {
		s.logger.Debug("dropped connection", zap.Stringer("remote", conn.RemoteAddr()), zap.Error(err))
		return
	}

	log := s.logger.With(zap.String("request_id", uuid.NewString()))
	resp := s.route(s.ctx, req, log)

	if _, err := resp.WriteTo(conn); err != nil {
		log.Warn("write failed", zap.Stringer("remote", conn.RemoteAddr()), zap.Error(err))
	}
	s.served.Add(1)
	s.metrics.ObserveRequest(resp.Status)

	log.Debug("request",
		zap.String("method", req.Method),
		zap.String("target", req.Target),
		zap.Int("status", resp.Status),
		zap.Duration("took", time.Since(start)))
}
