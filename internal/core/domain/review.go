package domain

import (
	"fmt"
	"strconv"
	"time"
)

type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "pending_review"
	ReviewReviewed  ReviewStatus = "reviewed"
	ReviewSubmitted ReviewStatus = "submitted"
)

type ReviewReason string

const (
	ReasonNewType              ReviewReason = "NEW_TYPE"
	ReasonLowConfidence        ReviewReason = "LOW_CONFIDENCE"
	ReasonStatementDiscrepancy ReviewReason = "STATEMENT_DISCREPANCY"
)

// ReviewItem is the persisted record of a document awaiting or having
// undergone human correction. Reasons are a set: a document can be queued
// for several conditions at once, and no transition ever removes one.
// Items are never deleted; they remain as the audit trail.
type ReviewItem struct {
	ID              string            `json:"id"`
	DocumentID      string            `json:"document_id"`
	Type            DocumentType      `json:"type"`
	Reasons         []ReviewReason    `json:"reasons"`
	ExtractedFields FieldMap          `json:"extracted_fields"`
	CorrectedFields map[string]string `json:"corrected_fields,omitempty"`
	TextSnippet     string            `json:"text_snippet,omitempty"`
	Status          ReviewStatus      `json:"status"`
	Submitted       bool              `json:"submitted"`
	CreatedAt       time.Time         `json:"created_at"`
	ReviewedAt      *time.Time        `json:"reviewed_at,omitempty"`
	SubmittedAt     *time.Time        `json:"submitted_at,omitempty"`
}

// HasReason reports whether the item carries the given routing reason.
func (it *ReviewItem) HasReason(reason ReviewReason) bool {
	for _, r := range it.Reasons {
		if r == reason {
			return true
		}
	}
	return false
}

// GroundTruthFields merges the original extraction with human corrections,
// corrections winning. This is what the retraining batch carries.
func (it *ReviewItem) GroundTruthFields() map[string]string {
	out := it.ExtractedFields.Values()
	for name, value := range it.CorrectedFields {
		out[name] = value
	}
	return out
}

// NewReviewItemID builds the stable identifier for a queued document:
// UTC timestamp plus document type, sortable by creation time.
func NewReviewItemID(now time.Time, docType DocumentType) string {
	return fmt.Sprintf("rev_%s_%s", now.UTC().Format("20060102T150405.000000000"), docType)
}

// GroundTruthEntity is one corrected field in the extraction service's
// dataset format.
type GroundTruthEntity struct {
	Type        string `json:"type"`
	MentionText string `json:"mention_text"`
}

// RetrainingExample pairs a source document reference with its corrected
// ground truth.
type RetrainingExample struct {
	ReviewItemID string              `json:"review_item_id"`
	DocumentID   string              `json:"document_id"`
	StoragePath  string              `json:"storage_path"`
	Entities     []GroundTruthEntity `json:"entities"`
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
