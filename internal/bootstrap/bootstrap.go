package bootstrap

import (
	"context"
	"fmt"

	"github.com/luckylad/invoiceflow/internal/config"
	"github.com/luckylad/invoiceflow/internal/core/ports"
	"github.com/luckylad/invoiceflow/internal/core/usecase"
	archivefs "github.com/luckylad/invoiceflow/internal/infrastructure/archive/localfs"
	"github.com/luckylad/invoiceflow/internal/infrastructure/extraction/docai"
	"github.com/luckylad/invoiceflow/internal/infrastructure/extractor/pdftext"
	"github.com/luckylad/invoiceflow/internal/infrastructure/llm/vertex"
	"github.com/luckylad/invoiceflow/internal/infrastructure/queue/nats"
	"github.com/luckylad/invoiceflow/internal/infrastructure/repository/postgres"
	"github.com/luckylad/invoiceflow/internal/infrastructure/resilience"
	"github.com/luckylad/invoiceflow/internal/infrastructure/storage/localfs"
	"github.com/luckylad/invoiceflow/internal/infrastructure/vector/qdrant"
)

// App wires the adapters behind the ports and exposes the use cases the
// three binaries share. Each binary picks what it needs and ignores the
// rest.
type App struct {
	Config config.Config

	Queue   ports.MessageQueue
	Repo    ports.DocumentRepository
	Reviews ports.ReviewRepository

	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	ReviewUC  ports.ReviewService
	RetrainUC ports.RetrainingRunner

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure documents schema: %w", err)
	}
	reviews := postgres.NewReviewRepository(db)
	if err := reviews.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure review schema: %w", err)
	}
	warehouse := postgres.NewWarehouseRepository(db, cfg.InvoiceLookback)
	if err := warehouse.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure warehouse schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	archiver, err := archivefs.New(cfg.ArchivePath, storage)
	if err != nil {
		return nil, fmt.Errorf("init archiver: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	extraction := docai.New(cfg.ExtractionURL, cfg.ExtractionAPIKey, docai.Options{
		Timeout:            cfg.ExtractionTimeout,
		RequestsPerSecond:  cfg.ExtractionRateLimit,
		ResilienceExecutor: executor,
	})
	trainer := docai.NewTrainer(extraction, cfg.RetrainingDataset)

	validation := vertex.New(cfg.ValidationURL, cfg.ValidationAPIKey, cfg.ValidationModel, cfg.ValidationEmbedModel, vertex.Options{
		Timeout:            cfg.ValidationTimeout,
		RequestsPerSecond:  cfg.ValidationRateLimit,
		ResilienceExecutor: executor,
	})
	validator := vertex.NewValidator(validation)
	embedder := vertex.NewEmbedder(validation)

	index := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	textExtractor := pdftext.New()

	classifier := usecase.NewClassifier(cfg.StatementIndicators)
	confidence := usecase.NewConfidenceEvaluator(
		usecase.ConfidenceThresholds{High: cfg.ConfidenceHigh, Medium: cfg.ConfidenceMedium},
		cfg.InvoiceCriticalFields,
		cfg.StatementCriticalFields,
	)
	orchestrator := usecase.NewValidationOrchestrator(validator)
	checker := usecase.NewDiscrepancyChecker(warehouse, cfg.StatementTolerance, cfg.InvoiceLookback)

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(
		repo, reviews, storage, warehouse, archiver,
		extraction, textExtractor, embedder, index,
		classifier, confidence, orchestrator, checker,
		usecase.RouterConfig{
			RetrievalTopK:          cfg.RetrievalTopK,
			RetrievalMinSimilarity: cfg.RetrievalMinSimilarity,
		},
	)
	reviewUC := usecase.NewReviewUseCase(reviews, repo, embedder, index)
	retrainUC := usecase.NewRetrainUseCase(reviews, repo, trainer, usecase.RetrainConfig{
		MinBatch: cfg.RetrainMinBatch,
		Cooldown: cfg.RetrainCooldown,
	})

	return &App{
		Config:  cfg,
		Queue:   queue,
		Repo:    repo,
		Reviews: reviews,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		ReviewUC:  reviewUC,
		RetrainUC: retrainUC,

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
