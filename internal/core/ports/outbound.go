package ports

import (
	"context"
	"io"
	"time"

	"github.com/luckylad/invoiceflow/internal/core/domain"
)

// DocumentRepository persists and reads per-document pipeline state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveClassification(ctx context.Context, id string, docType domain.DocumentType, tier domain.ConfidenceTier) error
}

// ReviewRepository persists review items across process restarts.
// MarkSubmitted must be a compare-and-set on the per-item submitted flag
// so two concurrent scheduler runs cannot double-submit an item.
type ReviewRepository interface {
	Create(ctx context.Context, item *domain.ReviewItem) error
	GetByID(ctx context.Context, id string) (*domain.ReviewItem, error)
	ListByStatus(ctx context.Context, status domain.ReviewStatus) ([]domain.ReviewItem, error)
	SaveCorrections(ctx context.Context, id string, corrections map[string]string, reviewedAt time.Time) error
	MarkSubmitted(ctx context.Context, id string, submittedAt time.Time) (bool, error)
	LastSubmissionTime(ctx context.Context) (time.Time, error)
	RecordSubmission(ctx context.Context, submittedAt time.Time, itemCount int) error
}

// Warehouse writes accepted records to the relational warehouse and
// answers the invoice-number lookback used by statement cross-validation.
type Warehouse interface {
	InsertInvoice(ctx context.Context, documentID string, rec *domain.InvoiceRecord) error
	InsertStatement(ctx context.Context, documentID string, rec *domain.StatementRecord) error
	HasInvoiceNumber(ctx context.Context, invoiceNumber string, since time.Time) (bool, error)
}

// FieldExtractor is the external document-extraction service: PDF bytes
// in, field name to (value, confidence) out.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, pdf []byte) (domain.FieldMap, error)
}

// TextExtractor pulls raw text from a stored PDF for classification and
// embedding.
type TextExtractor interface {
	ExtractText(ctx context.Context, pdf []byte) (string, error)
}

// Embedder builds the embedding vector for a document's combined text.
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
}

// SimilarityIndex is the nearest-neighbor store of previously corrected
// documents. Retrieve returns up to k entries with similarity >=
// minSimilarity, most-similar first; an empty result is valid and means
// "no precedent". Upsert replaces any prior entry for the same identity
// and must tolerate concurrent callers (last write wins per identity).
type SimilarityIndex interface {
	Retrieve(ctx context.Context, vector []float32, k int, minSimilarity float64) ([]domain.SimilarDocument, error)
	Upsert(ctx context.Context, documentID, filename string, docType domain.DocumentType, vector []float32, fields map[string]string) error
}

// ValidationModel is the external generative model used to standardize
// extracted fields. The response is expected to be a JSON document
// matching the canonical schema embedded in the prompt.
type ValidationModel interface {
	GenerateJSON(ctx context.Context, instruction, prompt string) (string, error)
}

// RetrainingService accepts a batch of corrected ground-truth examples
// for the extraction-improvement dataset. A batch either fully succeeds
// or fully fails; partial acceptance is not part of the contract.
type RetrainingService interface {
	SubmitBatch(ctx context.Context, examples []domain.RetrainingExample) error
}

// MessageQueue carries document-received events from ingestion to the
// processing worker.
type MessageQueue interface {
	PublishDocumentReceived(ctx context.Context, documentID string) error
	SubscribeDocumentReceived(ctx context.Context, handler func(context.Context, string) error) error
}

// ObjectStorage stores source PDFs.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Archiver performs physical placement of an accepted document. The
// directory-hierarchy policy lives behind this port.
type Archiver interface {
	Archive(ctx context.Context, doc *domain.Document, rec *domain.StandardizedRecord) (string, error)
}
