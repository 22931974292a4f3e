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

	"github.com/go-co-op/gocron"
	"github.com/joho/godotenv"

	"github.com/luckylad/invoiceflow/internal/bootstrap"
	"github.com/luckylad/invoiceflow/internal/config"
	"github.com/luckylad/invoiceflow/internal/observability/logging"
	"github.com/luckylad/invoiceflow/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("scheduler", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	pipelineMetrics := metrics.NewPipelineMetrics("scheduler")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.SchedulerMetricsPort,
		Handler: pipelineMetrics.Handler(),
	}
	go func() {
		slog.Info("scheduler metrics listening", "port", cfg.SchedulerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	runRetrain := func() {
		runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()

		submitted, err := app.RetrainUC.Run(runCtx)
		pipelineMetrics.RecordRetrainRun("scheduler", submitted, err)
		if err != nil {
			slog.Error("retraining run failed", "error", err)
			return
		}
		if submitted > 0 {
			slog.Info("retraining batch submitted", "items", submitted)
		}
	}

	scheduler := gocron.NewScheduler(time.UTC)
	if _, err := scheduler.Every(cfg.RetrainInterval).Do(runRetrain); err != nil {
		log.Fatalf("schedule retraining job: %v", err)
	}

	slog.Info("scheduler started", "retrain_interval", cfg.RetrainInterval.String())
	scheduler.StartAsync()

	<-ctx.Done()
	scheduler.Stop()
}
