package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/launchdeck/launchdeck/internal/adapters/http"
	"github.com/launchdeck/launchdeck/internal/bootstrap"
	"github.com/launchdeck/launchdeck/internal/config"
	"github.com/launchdeck/launchdeck/internal/core/domain"
	"github.com/launchdeck/launchdeck/internal/observability/logging"
	"github.com/launchdeck/launchdeck/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.Error("bootstrap error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(
		app.Modules,
		app.Steps,
		app.Progression,
		app.Documents,
		app.Orchestrator,
		app.Queue,
		app.Storage,
		httpadapter.RouterConfig{
			DefaultFormat:     domain.DocumentFormat(cfg.DefaultFormat),
			APIRateLimitRPS:   cfg.APIRateLimitRPS,
			APIRateLimitBurst: cfg.APIRateLimitBurst,
			Metrics:           metrics.NewHTTPMetrics("api"),
		},
	)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown error", "error", err)
	}
}
