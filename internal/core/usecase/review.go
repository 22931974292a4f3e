package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/luckylad/invoiceflow/internal/core/domain"
	"github.com/luckylad/invoiceflow/internal/core/ports"
)

// ReviewUseCase exposes the human correction queue. Applying corrections
// moves an item to REVIEWED and feeds the corrected record into the
// similarity index so the next similar document retrieves it as context.
type ReviewUseCase struct {
	reviews  ports.ReviewRepository
	docs     ports.DocumentRepository
	embedder ports.Embedder
	index    ports.SimilarityIndex
	nowFn    func() time.Time
}

func NewReviewUseCase(
	reviews ports.ReviewRepository,
	docs ports.DocumentRepository,
	embedder ports.Embedder,
	index ports.SimilarityIndex,
) *ReviewUseCase {
	return &ReviewUseCase{
		reviews:  reviews,
		docs:     docs,
		embedder: embedder,
		index:    index,
		nowFn:    time.Now,
	}
}

func (uc *ReviewUseCase) ListPending(ctx context.Context) ([]domain.ReviewItem, error) {
	items, err := uc.reviews.ListByStatus(ctx, domain.ReviewPending)
	if err != nil {
		return nil, fmt.Errorf("list pending review items: %w", err)
	}
	return items, nil
}

func (uc *ReviewUseCase) GetByID(ctx context.Context, id string) (*domain.ReviewItem, error) {
	item, err := uc.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch review item: %w", err)
	}
	return item, nil
}

// AuditTrail returns every review item regardless of status, creation
// order within each status, for the audit export.
func (uc *ReviewUseCase) AuditTrail(ctx context.Context) ([]domain.ReviewItem, error) {
	var all []domain.ReviewItem
	for _, status := range []domain.ReviewStatus{domain.ReviewPending, domain.ReviewReviewed, domain.ReviewSubmitted} {
		items, err := uc.reviews.ListByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("list %s review items: %w", status, err)
		}
		all = append(all, items...)
	}
	return all, nil
}

// ApplyCorrections records reviewer-corrected field values on a pending
// item and indexes the corrected document for future retrieval. Only
// corrected records reach the index; auto-accepted documents never do.
func (uc *ReviewUseCase) ApplyCorrections(ctx context.Context, id string, corrections map[string]string) (*domain.ReviewItem, error) {
	item, err := uc.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch review item: %w", err)
	}
	if item.Status != domain.ReviewPending {
		return nil, domain.WrapError(domain.ErrInvalidInput, "apply corrections",
			fmt.Errorf("review item %s is %s, expected %s", id, item.Status, domain.ReviewPending))
	}

	cleaned := make(map[string]string, len(corrections))
	for name, value := range corrections {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cleaned[name] = strings.TrimSpace(value)
	}

	reviewedAt := uc.nowFn().UTC()
	if err := uc.reviews.SaveCorrections(ctx, id, cleaned, reviewedAt); err != nil {
		return nil, fmt.Errorf("save corrections: %w", err)
	}

	item.CorrectedFields = cleaned
	item.Status = domain.ReviewReviewed
	item.ReviewedAt = &reviewedAt

	uc.indexCorrected(ctx, item)

	slog.Info("corrections applied",
		"review_item", item.ID, "document_id", item.DocumentID, "corrected_fields", len(cleaned))
	return item, nil
}

// indexCorrected is best effort: a down embedding service or index must
// not block the reviewer, the item stays REVIEWED either way.
func (uc *ReviewUseCase) indexCorrected(ctx context.Context, item *domain.ReviewItem) {
	groundTruth := item.GroundTruthFields()

	filename := ""
	if doc, err := uc.docs.GetByID(ctx, item.DocumentID); err == nil {
		filename = doc.Filename
	}

	vector, err := uc.embedder.EmbedDocument(ctx, embeddingText(item.TextSnippet, groundTruth))
	if err != nil {
		slog.Warn("embedding corrected document failed",
			"review_item", item.ID, "document_id", item.DocumentID, "error", err)
		return
	}
	if err := uc.index.Upsert(ctx, item.DocumentID, filename, item.Type, vector, groundTruth); err != nil {
		slog.Warn("indexing corrected document failed",
			"review_item", item.ID, "document_id", item.DocumentID, "error", err)
		return
	}
	slog.Info("corrected document indexed", "review_item", item.ID, "document_id", item.DocumentID)
}
