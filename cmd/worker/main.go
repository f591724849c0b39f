package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/launchdeck/launchdeck/internal/bootstrap"
	"github.com/launchdeck/launchdeck/internal/config"
	"github.com/launchdeck/launchdeck/internal/core/domain"
	"github.com/launchdeck/launchdeck/internal/observability/logging"
	"github.com/launchdeck/launchdeck/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.Error("bootstrap error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeGenerationRequested(ctx, func(handlerCtx context.Context, job domain.GenerationJob) error {
		jobCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		start := time.Now()
		workerMetrics.StartGeneration()

		module, err := app.Modules.GetModule(jobCtx, job.ModuleID)
		if err != nil {
			workerMetrics.FinishGeneration("worker", string(job.Format), time.Since(start), true)
			return err
		}

		opts := domain.WorkflowOptions{
			ProjectID:  module.ProjectID,
			ModuleType: module.Type,
			Generation: domain.GenerationOptions{Format: job.Format},
		}
		if job.Enrich {
			opts.Enrichment = &domain.EnrichmentOptions{Instructions: job.Instructions}
		}

		result := app.Orchestrator.Execute(jobCtx, module.Steps, nil, opts)
		failed := result.Status != domain.DocumentCompleted
		workerMetrics.FinishGeneration("worker", string(job.Format), time.Since(start), failed)
		workerMetrics.ObserveEnrichment("worker", result.Enriched)

		if failed {
			logger.Error("generation job failed",
				"module_id", job.ModuleID,
				"document_id", result.DocumentID,
				"error", result.Error,
			)
		} else {
			logger.Info("generation job completed",
				"module_id", job.ModuleID,
				"document_id", result.DocumentID,
				"processing_time_ms", result.ProcessingTimeMS,
			)
		}
		return nil
	})
	if err != nil {
		logger.Error("worker subscribe error", "error", err)
		os.Exit(1)
	}
}
