package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/luckylad/invoiceflow/internal/core/domain"
	"github.com/luckylad/invoiceflow/internal/core/ports"
)

// RouterConfig holds the routing thresholds injected at construction.
type RouterConfig struct {
	RetrievalTopK          int
	RetrievalMinSimilarity float64
}

// ProcessDocumentUseCase drives one document through classification,
// extraction-confidence evaluation, similarity retrieval, validation and
// routing. Every document ends either auto-accepted with a warehouse
// write or represented by exactly one open review item.
type ProcessDocumentUseCase struct {
	repo       ports.DocumentRepository
	reviews    ports.ReviewRepository
	storage    ports.ObjectStorage
	warehouse  ports.Warehouse
	archiver   ports.Archiver
	extractor  ports.FieldExtractor
	text       ports.TextExtractor
	embedder   ports.Embedder
	index      ports.SimilarityIndex
	classifier *Classifier
	confidence *ConfidenceEvaluator
	validator  *ValidationOrchestrator
	checker    *DiscrepancyChecker
	cfg        RouterConfig
	nowFn      func() time.Time
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	reviews ports.ReviewRepository,
	storage ports.ObjectStorage,
	warehouse ports.Warehouse,
	archiver ports.Archiver,
	extractor ports.FieldExtractor,
	text ports.TextExtractor,
	embedder ports.Embedder,
	index ports.SimilarityIndex,
	classifier *Classifier,
	confidence *ConfidenceEvaluator,
	validator *ValidationOrchestrator,
	checker *DiscrepancyChecker,
	cfg RouterConfig,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:       repo,
		reviews:    reviews,
		storage:    storage,
		warehouse:  warehouse,
		archiver:   archiver,
		extractor:  extractor,
		text:       text,
		embedder:   embedder,
		index:      index,
		classifier: classifier,
		confidence: confidence,
		validator:  validator,
		checker:    checker,
		cfg:        cfg,
		nowFn:      time.Now,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	pdf, err := uc.loadPDF(ctx, doc)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	rawText := uc.extractText(ctx, doc, pdf)
	doc.Type = uc.classifier.Classify(doc.Filename, rawText)

	fields, err := uc.extractor.ExtractFields(ctx, pdf)
	if err != nil || len(fields) == 0 {
		// Extraction exhausted its retries or returned nothing: escalate
		// as the worst case rather than dropping the document.
		if err != nil {
			slog.Warn("field extraction failed", "document_id", doc.ID, "error", err)
		}
		if saveErr := uc.repo.SaveClassification(ctx, doc.ID, doc.Type, domain.TierLow); saveErr != nil {
			return fmt.Errorf("save classification: %w", saveErr)
		}
		return uc.queueForReview(ctx, doc, domain.TierLow, fields, rawText,
			[]domain.ReviewReason{domain.ReasonLowConfidence})
	}

	tier, lowFields := uc.confidence.Evaluate(doc.Type, fields)
	if len(lowFields) > 0 {
		slog.Info("low-confidence fields detected",
			"document_id", doc.ID, "tier", tier, "fields", lowFields)
	}

	similar := uc.retrieveSimilar(ctx, doc, rawText, fields)

	rec, validationErr := uc.validator.Validate(ctx, doc.Type, fields, rawText, similar)

	var reasons []domain.ReviewReason
	if len(similar) == 0 {
		reasons = append(reasons, domain.ReasonNewType)
	}
	if tier == domain.TierLow {
		reasons = append(reasons, domain.ReasonLowConfidence)
	}
	if validationErr != nil {
		slog.Warn("validation failed", "document_id", doc.ID, "error", validationErr)
		tier = domain.TierLow
		if !hasReason(reasons, domain.ReasonLowConfidence) {
			reasons = append(reasons, domain.ReasonLowConfidence)
		}
	}
	if doc.Type == domain.TypeStatement && rec != nil {
		if findings := uc.checker.Check(ctx, rec.Statement); len(findings) > 0 {
			slog.Info("statement discrepancy detected", "document_id", doc.ID, "findings", findings)
			reasons = append(reasons, domain.ReasonStatementDiscrepancy)
		}
	}

	if err := uc.repo.SaveClassification(ctx, doc.ID, doc.Type, tier); err != nil {
		return fmt.Errorf("save classification: %w", err)
	}

	if len(reasons) > 0 {
		return uc.queueForReview(ctx, doc, tier, fields, rawText, reasons)
	}
	return uc.accept(ctx, doc, rec)
}

func (uc *ProcessDocumentUseCase) loadPDF(ctx context.Context, doc *domain.Document) ([]byte, error) {
	reader, err := uc.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	pdf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read source document: %w", err)
	}
	return pdf, nil
}

func (uc *ProcessDocumentUseCase) extractText(ctx context.Context, doc *domain.Document, pdf []byte) string {
	text, err := uc.text.ExtractText(ctx, pdf)
	if err != nil {
		slog.Warn("text extraction failed", "document_id", doc.ID, "error", err)
		return ""
	}
	return text
}

// retrieveSimilar fails closed: any embedding or index failure degrades
// to an empty result, which downstream reads as "no precedent".
func (uc *ProcessDocumentUseCase) retrieveSimilar(
	ctx context.Context,
	doc *domain.Document,
	rawText string,
	fields domain.FieldMap,
) []domain.SimilarDocument {
	vector, err := uc.embedder.EmbedDocument(ctx, embeddingText(rawText, fields.Values()))
	if err != nil {
		slog.Warn("embedding unavailable, treating document as novel", "document_id", doc.ID, "error", err)
		return nil
	}

	similar, err := uc.index.Retrieve(ctx, vector, uc.cfg.RetrievalTopK, uc.cfg.RetrievalMinSimilarity)
	if err != nil {
		slog.Warn("similarity retrieval unavailable, treating document as novel", "document_id", doc.ID, "error", err)
		return nil
	}
	return similar
}

func (uc *ProcessDocumentUseCase) accept(ctx context.Context, doc *domain.Document, rec *domain.StandardizedRecord) error {
	var err error
	switch {
	case rec.Invoice != nil:
		err = uc.warehouse.InsertInvoice(ctx, doc.ID, rec.Invoice)
	case rec.Statement != nil:
		err = uc.warehouse.InsertStatement(ctx, doc.ID, rec.Statement)
	}
	if domain.IsKind(err, domain.ErrDuplicateInvoice) {
		slog.Info("skipping duplicate invoice", "document_id", doc.ID)
		err = nil
	}
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("warehouse write: %w; mark failed status: %v", err, failErr)
		}
		return fmt.Errorf("warehouse write: %w", err)
	}

	if path, archiveErr := uc.archiver.Archive(ctx, doc, rec); archiveErr != nil {
		slog.Warn("archive placement failed", "document_id", doc.ID, "error", archiveErr)
	} else {
		slog.Info("document archived", "document_id", doc.ID, "path", path)
	}

	if err := uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusAutoAccepted, ""); err != nil {
		return fmt.Errorf("set status=auto_accepted: %w", err)
	}
	slog.Info("document auto-accepted", "document_id", doc.ID, "type", doc.Type)
	return nil
}

func (uc *ProcessDocumentUseCase) queueForReview(
	ctx context.Context,
	doc *domain.Document,
	tier domain.ConfidenceTier,
	fields domain.FieldMap,
	rawText string,
	reasons []domain.ReviewReason,
) error {
	if fields == nil {
		fields = domain.FieldMap{}
	}
	now := uc.nowFn().UTC()
	item := &domain.ReviewItem{
		ID:              domain.NewReviewItemID(now, doc.Type),
		DocumentID:      doc.ID,
		Type:            doc.Type,
		Reasons:         reasons,
		ExtractedFields: fields,
		TextSnippet:     truncate(rawText, 1000),
		Status:          domain.ReviewPending,
		CreatedAt:       now,
	}

	if err := uc.reviews.Create(ctx, item); err != nil {
		return fmt.Errorf("create review item: %w", err)
	}
	if err := uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusPendingReview, ""); err != nil {
		return fmt.Errorf("set status=pending_review: %w", err)
	}
	slog.Info("document queued for review",
		"document_id", doc.ID, "review_item", item.ID, "reasons", reasons)
	return nil
}

func hasReason(reasons []domain.ReviewReason, reason domain.ReviewReason) bool {
	for _, r := range reasons {
		if r == reason {
			return true
		}
	}
	return false
}

// embeddingText combines raw text with extracted field pairs, matching
// the representation stored in the similarity index.
func embeddingText(rawText string, fields map[string]string) string {
	parts := []string{truncate(rawText, 1000)}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	// Stable ordering keeps the embedding deterministic per document.
	sort.Strings(names)
	for _, name := range names {
		parts = append(parts, name+": "+fields[name])
	}
	return strings.Join(parts, "\n")
}
