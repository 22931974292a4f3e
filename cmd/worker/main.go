package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/luckylad/invoiceflow/internal/bootstrap"
	"github.com/luckylad/invoiceflow/internal/config"
	"github.com/luckylad/invoiceflow/internal/observability/logging"
	"github.com/luckylad/invoiceflow/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	pipelineMetrics := metrics.NewPipelineMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: pipelineMetrics.Handler(),
	}
	go func() {
		slog.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	// Bounded concurrency: the semaphore caps how many documents the
	// worker processes at once so the external services see at most
	// WorkerPoolSize parallel calls from this instance.
	poolSize := cfg.WorkerPoolSize
	if poolSize <= 0 {
		poolSize = 1
	}
	sem := make(chan struct{}, poolSize)

	slog.Info("worker subscribed", "subject", cfg.NATSSubject, "pool_size", poolSize)
	err = app.Queue.SubscribeDocumentReceived(ctx, func(handlerCtx context.Context, documentID string) error {
		select {
		case sem <- struct{}{}:
		case <-handlerCtx.Done():
			return handlerCtx.Err()
		}
		defer func() { <-sem }()

		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		pipelineMetrics.StartDocument()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, documentID)
		pipelineMetrics.FinishDocument("worker", time.Since(start), processErr)

		if processErr == nil {
			if doc, err := app.Repo.GetByID(processCtx, documentID); err == nil {
				pipelineMetrics.RecordRouted("worker", string(doc.Status), string(doc.Type))
			}
		}
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
