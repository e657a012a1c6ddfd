package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/eventdex/internal/adapters/http/api"
	"github.com/okian/eventdex/internal/adapters/http/swagger"
	"github.com/okian/eventdex/internal/adapters/source"
	"github.com/okian/eventdex/internal/bootstrap"
	"github.com/okian/eventdex/internal/config"
	"github.com/okian/eventdex/pkg/logger"
	"github.com/okian/eventdex/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	if err := logger.InitWithFile(cfg.LogFile); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	pipeline, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	svc := bootstrap.NewService(pipeline, cfg, log)
	if err := svc.Start(ctx); err != nil {
		_ = pipeline.Close()
		return err
	}

	go startSystemMetricsUpdater(ctx)

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	watchDone := closedChan()
	if cfg.WatchSource {
		watchDone = watchSource(watchCtx, cfg.SourceDir, svc, log)
	}

	mux := newMux(svc, cfg)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	stopWatch()
	<-watchDone
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

type indexService interface {
	api.Dependencies
	api.StatsProvider
	api.PostHooks
}

func newMux(svc indexService, cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(mux)
	api.NewServer(svc, svc, cfg.MaxEventsLimit, api.WithHooks(svc)).Register(mux)
	return mux
}

// watchSource feeds document file changes in dir to hooks until ctx is done.
// The returned channel closes once the watcher has stopped.
func watchSource(ctx context.Context, dir string, hooks source.ChangeHooks, log logger.Logger) <-chan struct{} {
	w, err := source.NewWatcher(dir, hooks, log)
	if err != nil {
		log.Warn(ctx, "source watcher disabled", logger.String("dir", dir), logger.Error(err))
		return closedChan()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	return done
}

func closedChan() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
