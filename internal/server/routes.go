package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/d4z3x/pingd/internal/db"
	"github.com/d4z3x/pingd/internal/probe"
	"github.com/d4z3x/pingd/internal/wire"
	"go.uber.org/zap"
)

// route matches on the target path; the query string never affects which
// handler runs.
func (s *Server) route(ctx context.Context, req *wire.Request, log *zap.Logger) wire.Response {
	if req.Method != http.MethodGet {
		return wire.JSONError(http.StatusBadRequest, "Only GET supported")
	}

	// Query strings are stripped first: /health?x=1 is a health check.
	switch path := req.Path(); {
	case path == "/" || path == "/health" || path == "/healthz":
		return wire.Text(http.StatusOK, "OK\n")
	case strings.HasPrefix(path, "/ping"):
		return s.ping(ctx, req, log)
	}
	return wire.JSONError(http.StatusNotFound, "Not found")
}

func (s *Server) ping(ctx context.Context, req *wire.Request, log *zap.Logger) wire.Response {
	host, ok := req.Query("host")
	if !ok {
		host = s.defaultHost
	}
	if !probe.ValidHost(host) {
		return wire.JSONError(http.StatusBadRequest, "Invalid host")
	}

	latency, err := s.prober.Probe(ctx, host, s.timeout)
	s.record(host, latency, err, log)
	if err != nil {
		log.Warn("ping failed", zap.String("host", host), zap.Error(err))
		return wire.JSONError(http.StatusInternalServerError, "Ping failed")
	}

	return wire.JSON(http.StatusOK, probe.NewResult(host, latency))
}

func (s *Server) record(host string, latency time.Duration, err error, log *zap.Logger) {
	if s.history == nil {
		return
	}
	if herr := s.history.InsertProbe(db.NewRecord(host, db.SourceRequest, latency, err)); herr != nil {
		log.Error("recording probe failed", zap.String("host", host), zap.Error(herr))
	}
}
