package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/luckylad/invoiceflow/internal/core/domain"
)

func newReviewedItem(id string) *domain.ReviewItem {
	reviewedAt := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	return &domain.ReviewItem{
		ID:         id,
		DocumentID: "doc-" + id,
		Type:       domain.TypeInvoice,
		Reasons:    []domain.ReviewReason{domain.ReasonLowConfidence},
		ExtractedFields: domain.FieldMap{
			"invoice_number": {Value: "INV-44II", Confidence: 0.45},
		},
		CorrectedFields: map[string]string{"invoice_number": "INV-4411"},
		Status:          domain.ReviewReviewed,
		ReviewedAt:      &reviewedAt,
	}
}

func newRetrainFixture(items ...*domain.ReviewItem) (*RetrainUseCase, *fakeReviewRepo, *fakeRetrainingService) {
	reviews := newFakeReviewRepo(items...)
	docs := newFakeDocumentRepo()
	for _, it := range items {
		docs.docs[it.DocumentID] = &domain.Document{
			ID:          it.DocumentID,
			StoragePath: it.DocumentID + ".pdf",
		}
	}
	service := &fakeRetrainingService{}
	uc := NewRetrainUseCase(reviews, docs, service, RetrainConfig{
		MinBatch: 5,
		Cooldown: 7 * 24 * time.Hour,
	})
	uc.nowFn = func() time.Time { return time.Date(2025, 6, 10, 3, 0, 0, 0, time.UTC) }
	return uc, reviews, service
}

func reviewedBatch(n int) []*domain.ReviewItem {
	items := make([]*domain.ReviewItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, newReviewedItem(fmt.Sprintf("rev-%d", i)))
	}
	return items
}

func TestRunBelowThresholdIsNoop(t *testing.T) {
	uc, _, service := newRetrainFixture(reviewedBatch(4)...)

	n, err := uc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n != 0 {
		t.Fatalf("Run() = %d, want 0 below threshold", n)
	}
	if len(service.batches) != 0 {
		t.Fatal("no batch must be submitted below threshold")
	}
}

func TestRunFifthReviewTriggersSubmission(t *testing.T) {
	uc, reviews, service := newRetrainFixture(reviewedBatch(5)...)

	n, err := uc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n != 5 {
		t.Fatalf("Run() = %d, want 5", n)
	}
	if len(service.batches) != 1 || len(service.batches[0]) != 5 {
		t.Fatalf("batches = %+v, want one batch of 5", service.batches)
	}

	ex := service.batches[0][0]
	if ex.StoragePath == "" {
		t.Fatal("example missing storage path")
	}
	found := false
	for _, ent := range ex.Entities {
		if ent.Type == "invoice_number" && ent.MentionText == "INV-4411" {
			found = true
		}
	}
	if !found {
		t.Fatalf("entities %+v missing corrected ground truth", ex.Entities)
	}

	for id, item := range reviews.items {
		if !item.Submitted || item.Status != domain.ReviewSubmitted {
			t.Fatalf("item %s not marked submitted: %+v", id, item)
		}
	}
	if len(reviews.submissions) != 1 || reviews.submissions[0] != 5 {
		t.Fatalf("recorded submissions = %v, want [5]", reviews.submissions)
	}
}

func TestRunCooldownBlocksSubmission(t *testing.T) {
	uc, reviews, service := newRetrainFixture(reviewedBatch(6)...)
	reviews.lastSubmission = time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC) // 2 days ago

	n, err := uc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n != 0 {
		t.Fatalf("Run() = %d, want 0 during cooldown", n)
	}
	if len(service.batches) != 0 {
		t.Fatal("no batch must be submitted during cooldown")
	}
}

func TestRunCooldownElapsedSubmits(t *testing.T) {
	uc, reviews, _ := newRetrainFixture(reviewedBatch(5)...)
	reviews.lastSubmission = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) // 9 days ago

	n, err := uc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n != 5 {
		t.Fatalf("Run() = %d, want 5 after cooldown", n)
	}
}

func TestRunServiceFailureLeavesItemsEligible(t *testing.T) {
	uc, reviews, service := newRetrainFixture(reviewedBatch(5)...)
	service.err = errors.New("dataset service unavailable")

	if _, err := uc.Run(context.Background()); err == nil {
		t.Fatal("Run() error = nil, want submission failure")
	}
	for id, item := range reviews.items {
		if item.Submitted {
			t.Fatalf("item %s marked submitted despite failed batch", id)
		}
	}
	if len(reviews.submissions) != 0 {
		t.Fatal("failed run must not record a submission")
	}
}

func TestRunSecondPassDoesNotDoubleSubmit(t *testing.T) {
	uc, _, service := newRetrainFixture(reviewedBatch(5)...)

	if _, err := uc.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	// All items are now SUBMITTED; the next run sees an empty reviewed set.
	n, err := uc.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if n != 0 {
		t.Fatalf("second Run() = %d, want 0", n)
	}
	if len(service.batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(service.batches))
	}
}
