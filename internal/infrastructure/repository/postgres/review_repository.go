package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/luckylad/invoiceflow/internal/core/domain"
)

type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026090102)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS review_items (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	doc_type TEXT NOT NULL,
	reasons JSONB NOT NULL DEFAULT '[]'::jsonb,
	extracted_fields JSONB NOT NULL DEFAULT '{}'::jsonb,
	corrected_fields JSONB,
	text_snippet TEXT,
	status TEXT NOT NULL,
	submitted BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	reviewed_at TIMESTAMPTZ,
	submitted_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_review_items_status ON review_items(status);
CREATE INDEX IF NOT EXISTS idx_review_items_document_id ON review_items(document_id);

CREATE TABLE IF NOT EXISTS retraining_runs (
	id BIGSERIAL PRIMARY KEY,
	submitted_at TIMESTAMPTZ NOT NULL,
	item_count INTEGER NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ReviewRepository) Create(ctx context.Context, item *domain.ReviewItem) error {
	reasonsJSON, err := json.Marshal(item.Reasons)
	if err != nil {
		return fmt.Errorf("marshal reasons: %w", err)
	}
	fieldsJSON, err := json.Marshal(item.ExtractedFields)
	if err != nil {
		return fmt.Errorf("marshal extracted fields: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO review_items (
	id, document_id, doc_type, reasons, extracted_fields, text_snippet, status, submitted, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		item.ID, item.DocumentID, string(item.Type), reasonsJSON, fieldsJSON,
		item.TextSnippet, string(item.Status), item.Submitted, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review item: %w", err)
	}
	return nil
}

const reviewItemColumns = `
id, document_id, doc_type, reasons, extracted_fields, corrected_fields, text_snippet, status, submitted, created_at, reviewed_at, submitted_at`

func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.ReviewItem, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT`+reviewItemColumns+`
FROM review_items
WHERE id = $1
`, id)

	item, err := scanReviewItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrReviewItemNotFound, "get review item", fmt.Errorf("id %s", id))
		}
		return nil, err
	}
	return item, nil
}

func (r *ReviewRepository) ListByStatus(ctx context.Context, status domain.ReviewStatus) ([]domain.ReviewItem, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT`+reviewItemColumns+`
FROM review_items
WHERE status = $1
ORDER BY created_at ASC
`, string(status))
	if err != nil {
		return nil, fmt.Errorf("query review items: %w", err)
	}
	defer rows.Close()

	var out []domain.ReviewItem
	for rows.Next() {
		item, err := scanReviewItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review items: %w", err)
	}
	return out, nil
}

func (r *ReviewRepository) SaveCorrections(ctx context.Context, id string, corrections map[string]string, reviewedAt time.Time) error {
	correctionsJSON, err := json.Marshal(corrections)
	if err != nil {
		return fmt.Errorf("marshal corrections: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE review_items
SET corrected_fields = $2, status = $3, reviewed_at = $4
WHERE id = $1
`, id, correctionsJSON, string(domain.ReviewReviewed), reviewedAt)
	if err != nil {
		return fmt.Errorf("save corrections: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("corrections rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrReviewItemNotFound, "save corrections", fmt.Errorf("id %s", id))
	}
	return nil
}

// MarkSubmitted is a compare-and-set on the submitted flag. A false
// return means another run already claimed the item.
func (r *ReviewRepository) MarkSubmitted(ctx context.Context, id string, submittedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE review_items
SET submitted = TRUE, status = $2, submitted_at = $3
WHERE id = $1 AND submitted = FALSE
`, id, string(domain.ReviewSubmitted), submittedAt)
	if err != nil {
		return false, fmt.Errorf("mark submitted: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark submitted rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *ReviewRepository) LastSubmissionTime(ctx context.Context) (time.Time, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT submitted_at FROM retraining_runs ORDER BY submitted_at DESC LIMIT 1
`)

	var last time.Time
	if err := row.Scan(&last); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("scan last submission: %w", err)
	}
	return last, nil
}

func (r *ReviewRepository) RecordSubmission(ctx context.Context, submittedAt time.Time, itemCount int) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO retraining_runs (submitted_at, item_count) VALUES ($1,$2)
`, submittedAt, itemCount)
	if err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReviewItem(row rowScanner) (*domain.ReviewItem, error) {
	var item domain.ReviewItem
	var docType, status string
	var reasonsRaw, fieldsRaw []byte
	var correctionsRaw sql.NullString
	var snippet sql.NullString
	var reviewedAt, submittedAt sql.NullTime

	err := row.Scan(
		&item.ID, &item.DocumentID, &docType, &reasonsRaw, &fieldsRaw, &correctionsRaw,
		&snippet, &status, &item.Submitted, &item.CreatedAt, &reviewedAt, &submittedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan review item: %w", err)
	}

	if err := json.Unmarshal(reasonsRaw, &item.Reasons); err != nil {
		return nil, fmt.Errorf("unmarshal reasons: %w", err)
	}
	if err := json.Unmarshal(fieldsRaw, &item.ExtractedFields); err != nil {
		return nil, fmt.Errorf("unmarshal extracted fields: %w", err)
	}
	if correctionsRaw.Valid && correctionsRaw.String != "" {
		if err := json.Unmarshal([]byte(correctionsRaw.String), &item.CorrectedFields); err != nil {
			return nil, fmt.Errorf("unmarshal corrected fields: %w", err)
		}
	}

	item.Type = domain.DocumentType(docType)
	item.Status = domain.ReviewStatus(status)
	item.TextSnippet = snippet.String
	if reviewedAt.Valid {
		t := reviewedAt.Time
		item.ReviewedAt = &t
	}
	if submittedAt.Valid {
		t := submittedAt.Time
		item.SubmittedAt = &t
	}
	return &item, nil
}
