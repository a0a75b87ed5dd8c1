package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	jobapi "github.com/aliskhannn/background-remover/internal/api/handlers/job"
	"github.com/aliskhannn/background-remover/internal/api/router"
	"github.com/aliskhannn/background-remover/internal/api/server"
	"github.com/aliskhannn/background-remover/internal/config"
	"github.com/aliskhannn/background-remover/internal/queue/consumer"
	"github.com/aliskhannn/background-remover/internal/queue/producer"
	jobsvc "github.com/aliskhannn/background-remover/internal/service/job"
	"github.com/aliskhannn/background-remover/internal/status"
	"github.com/aliskhannn/background-remover/internal/storage/file"
	"github.com/aliskhannn/background-remover/internal/transform"
	"github.com/aliskhannn/background-remover/internal/webhook"
	"github.com/aliskhannn/background-remover/internal/worker"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config")

	// Retry strategy for Kafka and other external calls.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Status store (Redis, TTL'd records).
	statusStore := status.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.StatusTTL)

	// Artifact storage (MinIO / S3-compatible).
	storage, err := file.NewStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.BucketName, cfg.Storage.Region, cfg.Storage.UseSSL)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
	}

	// Background-removal adapter: external inference service or the built-in
	// color-keying pass.
	var remover transform.Remover
	switch cfg.Worker.Remover {
	case "http":
		remover = transform.NewHTTPRemover(cfg.Worker.RemoverEndpoint, cfg.Worker.JobTimeout)
	default:
		remover = transform.NewChromaRemover(0)
	}

	// Queue producer/consumer pair over the two priority lanes.
	p := producer.New(&cfg.Kafka, strategy)
	c := consumer.New(&cfg.Kafka)

	// Webhook notifier for terminal-status callbacks.
	notifier := webhook.New(10 * time.Second)

	// Worker pool driving the per-job state machine.
	w := worker.New(statusStore, storage, remover, notifier, strategy, cfg.Worker.Count, cfg.Worker.JobTimeout)

	var wg sync.WaitGroup
	w.Run(ctx, &wg, c)

	// Service and HTTP surface.
	service := jobsvc.NewService(p, statusStore, cfg.Server.InlineFetch)
	handler := jobapi.NewHandler(service)

	r := router.Setup(handler)
	s := server.New(cfg.Server.HTTPPort, r)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Wait for worker goroutines to finish their in-flight jobs.
	wg.Wait()

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Close queue clients and the status store.
	if err := p.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka producer clients")
	}
	if err := c.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer clients")
	}
	if err := statusStore.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close status store")
	}
}
