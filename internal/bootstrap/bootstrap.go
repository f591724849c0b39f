package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/launchdeck/launchdeck/internal/config"
	"github.com/launchdeck/launchdeck/internal/core/ports"
	"github.com/launchdeck/launchdeck/internal/core/usecase"
	"github.com/launchdeck/launchdeck/internal/infrastructure/enrichment/ollama"
	"github.com/launchdeck/launchdeck/internal/infrastructure/queue/nats"
	"github.com/launchdeck/launchdeck/internal/infrastructure/renderer"
	"github.com/launchdeck/launchdeck/internal/infrastructure/repository/postgres"
	"github.com/launchdeck/launchdeck/internal/infrastructure/resilience"
	"github.com/launchdeck/launchdeck/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Modules   ports.ModuleRepository
	Steps     ports.StepRepository
	Documents *usecase.DocumentService

	Progression  *usecase.Progression
	Orchestrator *usecase.Orchestrator

	Queue   ports.GenerationQueue
	Storage *localfs.Storage

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath, cfg.PublicBaseURL, cfg.SigningSecret)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init generation queue: %w", err)
	}

	moduleRepo := postgres.NewModuleRepository(db)
	stepRepo := postgres.NewStepRepository(db)
	documentRepo := postgres.NewDocumentRepository(db)
	templateRepo := postgres.NewTemplateRepository(db)

	engine := renderer.New(cfg.RendererURL, time.Duration(cfg.RendererTimeoutSeconds)*time.Second, executor)

	var enricher ports.ContextEnricher
	if cfg.EnrichmentEnabled {
		enricher = ollama.New(cfg.OllamaURL, cfg.OllamaModel)
	}

	documentService := usecase.NewDocumentService(
		documentRepo,
		templateRepo,
		storage,
		engine,
		cfg.DocumentsRoot,
		time.Duration(cfg.SignedURLTTLSeconds)*time.Second,
	)
	generator := usecase.NewDocumentGenerator(documentService)

	return &App{
		Config: cfg,

		Modules:   moduleRepo,
		Steps:     stepRepo,
		Documents: documentService,

		Progression:  usecase.NewProgression(moduleRepo, stepRepo),
		Orchestrator: usecase.NewOrchestrator(enricher, generator),

		Queue:   queue,
		Storage: storage,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
