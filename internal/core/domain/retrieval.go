package domain

import "time"

// SimilarDocument is one nearest-neighbor hit from the similarity index:
// the standardized fields of a previously accepted or corrected document,
// most-similar first in any retrieval result.
type SimilarDocument struct {
	DocumentID string            `json:"document_id"`
	Filename   string            `json:"filename"`
	Type       DocumentType      `json:"type"`
	Fields     map[string]string `json:"fields"`
	Similarity float64           `json:"similarity"`
	CreatedAt  time.Time         `json:"created_at"`
}
