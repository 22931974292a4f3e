package ports

import (
	"context"
	"io"

	"github.com/luckylad/invoiceflow/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document intake.
type DocumentIngestor interface {
	Ingest(ctx context.Context, filename string, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor runs the classification/validation/routing pipeline
// for one received document.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// ReviewService is the inbound contract for the human-correction queue.
type ReviewService interface {
	ListPending(ctx context.Context) ([]domain.ReviewItem, error)
	GetByID(ctx context.Context, id string) (*domain.ReviewItem, error)
	ApplyCorrections(ctx context.Context, id string, corrections map[string]string) (*domain.ReviewItem, error)
	AuditTrail(ctx context.Context) ([]domain.ReviewItem, error)
}

// RetrainingRunner is the periodic retraining entry point. Run is an
// idempotent no-op when the volume threshold or cooldown is unsatisfied.
type RetrainingRunner interface {
	Run(ctx context.Context) (int, error)
}
