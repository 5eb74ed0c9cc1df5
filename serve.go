package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/d4z3x/pingd/internal/api"
	"github.com/d4z3x/pingd/internal/auth"
	"github.com/d4z3x/pingd/internal/config"
	"github.com/d4z3x/pingd/internal/db"
	"github.com/d4z3x/pingd/internal/logging"
	"github.com/d4z3x/pingd/internal/metrics"
	"github.com/d4z3x/pingd/internal/probe"
	"github.com/d4z3x/pingd/internal/server"
	"github.com/d4z3x/pingd/internal/watch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ping listener and the management API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe blocks until SIGINT or SIGTERM. Startup failures exit with status 1.
func runServe() error {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	// Open database
	var database *db.DB
	var serverHistory server.History
	var watchHistory watch.History
	if cfg.DBPath != "" {
		database, err = db.Open(cfg.DBPath, cfg.HistoryLimit)
		if err != nil {
			logger.Fatal("database", zap.String("path", cfg.DBPath), zap.Error(err))
		}
		defer database.Close()
		serverHistory, watchHistory = database, database
	} else {
		logger.Info("probe history disabled")
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg)
	if err != nil {
		logger.Fatal("metrics", zap.Error(err))
	}

	// Prober: instrumented, then deduplicated and paced
	base, err := probe.FromConfig(cfg)
	if err != nil {
		logger.Fatal("prober", zap.Error(err))
	}
	prober := probe.NewLimited(metrics.Instrument(m, cfg.Prober, base), cfg.ProbeRate, cfg.ProbeBurst)

	// Ping listener
	srv := server.New(cfg, prober, serverHistory, m, logger.Named("server"))
	ln, err := server.Listen(context.Background(), cfg.ListenAddr())
	if err != nil {
		logger.Fatal("listen", zap.String("addr", cfg.ListenAddr()), zap.Error(err))
	}

	// Watcher
	var watcher *watch.Watcher
	if len(cfg.WatchHosts) > 0 {
		watcher = watch.New(cfg.WatchHosts, prober, cfg.ProbeTimeout, watchHistory, logger.Named("watch"))
		if err := watcher.Start(cfg.WatchSchedule); err != nil {
			logger.Fatal("watcher", zap.Error(err))
		}
		defer watcher.Stop()
		logger.Info("watcher started", zap.Strings("hosts", watcher.Hosts()), zap.String("schedule", cfg.WatchSchedule))
	}

	// Management API
	var adminServer *http.Server
	if cfg.AdminAddr != "" {
		router := api.NewRouter(database, watcher, srv, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), cfg)
		adminServer = &http.Server{
			Addr:         cfg.AdminAddr,
			Handler:      auth.BasicAuth(cfg.AdminUser, cfg.AdminPasswordHash, router),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			ErrorLog:     zap.NewStdLog(logger.Named("api")),
		}

		go func() {
			logger.Info("management API listening", zap.String("addr", cfg.AdminAddr), zap.Bool("auth", cfg.AdminUser != ""))
			if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("management API error", zap.Error(err))
			}
		}()
	}

	go func() {
		logger.Info("ping server listening",
			zap.String("addr", ln.Addr().String()),
			zap.String("prober", cfg.Prober),
			zap.Int("workers", cfg.Workers))
		logger.Info(fmt.Sprintf("try: curl 'http://127.0.0.1:%d/ping?host=%s'", cfg.Port, cfg.DefaultHost))
		if err := srv.Serve(ln); err != nil {
			logger.Error("ping server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("ping server shutdown", zap.Error(err))
	}
	shutdownAdmin(ctx, adminServer, logger)

	logger.Info("shutdown complete")
	return nil
}

// shutdownAdmin is a no-op when the management API is disabled.
func shutdownAdmin(ctx context.Context, srv *http.Server, logger *zap.Logger) {
	if srv == nil {
		return
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("management API shutdown", zap.Error(err))
	}
}
