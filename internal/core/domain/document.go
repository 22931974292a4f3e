package domain

import "time"

type DocumentType string

const (
	TypeInvoice   DocumentType = "INVOICE"
	TypeStatement DocumentType = "STATEMENT"
)

type DocumentStatus string

const (
	StatusReceived      DocumentStatus = "received"
	StatusProcessing    DocumentStatus = "processing"
	StatusAutoAccepted  DocumentStatus = "auto_accepted"
	StatusPendingReview DocumentStatus = "pending_review"
	StatusFailed        DocumentStatus = "failed"
)

type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "HIGH"
	TierMedium ConfidenceTier = "MEDIUM"
	TierLow    ConfidenceTier = "LOW"
)

// ExtractedField is one field as returned by the document-extraction
// service: the raw text value plus the service's confidence in it.
type ExtractedField struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

type FieldMap map[string]ExtractedField

// Values flattens a FieldMap to plain name/value pairs.
func (m FieldMap) Values() map[string]string {
	out := make(map[string]string, len(m))
	for name, f := range m {
		out[name] = f.Value
	}
	return out
}

// Document tracks one source file through the pipeline. Type is set once
// by the indicator classifier and never changed afterward; the record is
// finalized once status reaches auto_accepted or pending_review.
type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	StoragePath string         `json:"storage_path"`
	Type        DocumentType   `json:"type,omitempty"`
	Status      DocumentStatus `json:"status"`
	Tier        ConfidenceTier `json:"tier,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
