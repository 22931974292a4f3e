package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/luckylad/invoiceflow/internal/core/domain"
	"github.com/luckylad/invoiceflow/internal/core/ports"
)

// RetrainConfig gates retraining submissions: a run submits only when at
// least MinBatch reviewed items are waiting and the previous submission
// is older than Cooldown.
type RetrainConfig struct {
	MinBatch int
	Cooldown time.Duration
}

// RetrainUseCase closes the feedback loop: reviewed corrections become
// ground-truth examples for the extraction service's improvement dataset.
type RetrainUseCase struct {
	reviews ports.ReviewRepository
	docs    ports.DocumentRepository
	service ports.RetrainingService
	cfg     RetrainConfig
	nowFn   func() time.Time
}

func NewRetrainUseCase(
	reviews ports.ReviewRepository,
	docs ports.DocumentRepository,
	service ports.RetrainingService,
	cfg RetrainConfig,
) *RetrainUseCase {
	return &RetrainUseCase{
		reviews: reviews,
		docs:    docs,
		service: service,
		cfg:     cfg,
		nowFn:   time.Now,
	}
}

// Run submits the waiting reviewed items as one batch and returns how
// many were marked submitted. It returns (0, nil) when the batch is too
// small or the cooldown has not elapsed. Items are marked submitted only
// after the service accepts the batch, so a failed submission leaves
// every item eligible for the next run.
func (uc *RetrainUseCase) Run(ctx context.Context) (int, error) {
	now := uc.nowFn().UTC()

	items, err := uc.reviews.ListByStatus(ctx, domain.ReviewReviewed)
	if err != nil {
		return 0, fmt.Errorf("list reviewed items: %w", err)
	}
	if len(items) < uc.cfg.MinBatch {
		slog.Info("retraining skipped, batch below threshold",
			"reviewed", len(items), "min_batch", uc.cfg.MinBatch)
		return 0, nil
	}

	last, err := uc.reviews.LastSubmissionTime(ctx)
	if err != nil {
		return 0, fmt.Errorf("read last submission time: %w", err)
	}
	if !last.IsZero() && now.Sub(last) < uc.cfg.Cooldown {
		slog.Info("retraining skipped, cooldown active",
			"last_submission", last, "cooldown", uc.cfg.Cooldown)
		return 0, nil
	}

	examples := make([]domain.RetrainingExample, 0, len(items))
	for i := range items {
		examples = append(examples, uc.buildExample(ctx, &items[i]))
	}

	if err := uc.service.SubmitBatch(ctx, examples); err != nil {
		return 0, fmt.Errorf("submit retraining batch: %w", err)
	}

	submitted := 0
	for i := range items {
		ok, err := uc.reviews.MarkSubmitted(ctx, items[i].ID, now)
		if err != nil {
			slog.Warn("marking item submitted failed", "review_item", items[i].ID, "error", err)
			continue
		}
		if ok {
			submitted++
		}
	}

	if err := uc.reviews.RecordSubmission(ctx, now, submitted); err != nil {
		slog.Warn("recording submission run failed", "error", err)
	}

	slog.Info("retraining batch submitted", "items", submitted)
	return submitted, nil
}

func (uc *RetrainUseCase) buildExample(ctx context.Context, item *domain.ReviewItem) domain.RetrainingExample {
	storagePath := ""
	if doc, err := uc.docs.GetByID(ctx, item.DocumentID); err == nil {
		storagePath = doc.StoragePath
	} else {
		slog.Warn("source document lookup failed for retraining example",
			"review_item", item.ID, "document_id", item.DocumentID, "error", err)
	}

	groundTruth := item.GroundTruthFields()
	names := make([]string, 0, len(groundTruth))
	for name := range groundTruth {
		names = append(names, name)
	}
	sort.Strings(names)

	entities := make([]domain.GroundTruthEntity, 0, len(names))
	for _, name := range names {
		entities = append(entities, domain.GroundTruthEntity{
			Type:        name,
			MentionText: groundTruth[name],
		})
	}

	return domain.RetrainingExample{
		ReviewItemID: item.ID,
		DocumentID:   item.DocumentID,
		StoragePath:  storagePath,
		Entities:     entities,
	}
}
