package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"VolTune/internal/domain/models"
	"VolTune/internal/middleware"
	"VolTune/internal/usecase"
	pkgch "VolTune/pkg/clickhouse"
	"VolTune/pkg/config"
	xhttp "VolTune/pkg/http"
	pkgkafka "VolTune/pkg/kafka"
	applogger "VolTune/pkg/logger"

	"github.com/google/uuid"
)

// App encapsulates the entire application lifecycle: HTTP API, Kafka job
// intake, progress fan-out and the tuning runner. Shutdown is deterministic:
// intake stops first so no new runs start, then the HTTP server, then
// infrastructure clients.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	runner     *usecase.TuneRunner
	progress   *middleware.ProgressPipeline
	consumer   *pkgkafka.Consumer
	jobs       pkgkafka.MessageHandler
	chClient   *pkgch.Client
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	runner *usecase.TuneRunner,
	progress *middleware.ProgressPipeline,
	consumer *pkgkafka.Consumer,
	jobs pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	handler xhttp.Handler,
) *App {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithRequestMetrics(log, 2*time.Second))
	}
	httpServer := xhttp.NewServer(handler, opts...)
	return &App{
		cfg:        cfg,
		log:        log,
		runner:     runner,
		progress:   progress,
		consumer:   consumer,
		jobs:       jobs,
		chClient:   chClient,
		httpServer: httpServer,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.progress.Start(ctx)

	if a.consumer != nil && a.jobs != nil {
		a.consumer.RegisterHandler(a.jobs)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka job intake started", applogger.String("topic", a.jobs.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	if a.cfg.Tuning.RunOnStart {
		a.startupRun(ctx)
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// startupRun submits one run with configured defaults over the full panel.
func (a *App) startupRun(ctx context.Context) {
	req := models.TuneRequest{
		RunID: uuid.NewString(),
		To:    time.Now().UTC(),
	}
	if err := a.runner.Submit(ctx, req); err != nil {
		a.log.Error("startup run submit error", applogger.Error(err))
		return
	}
	a.log.Info("startup run submitted", applogger.String("run_id", req.RunID))
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	// stop job intake first so no new runs start mid-shutdown
	if a.consumer != nil {
		stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := a.consumer.Stop(stopCtx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
		cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	a.progress.Stop()

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
