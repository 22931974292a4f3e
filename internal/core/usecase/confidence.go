package usecase

import (
	"sort"

	"github.com/luckylad/invoiceflow/internal/core/domain"
)

// ConfidenceThresholds define the per-field tier boundaries. Values come
// from configuration so tests and deployments can tune them per document
// type without code changes.
type ConfidenceThresholds struct {
	High   float64
	Medium float64
}

// ConfidenceEvaluator maps per-field extraction confidence to tiers.
// The overall document tier is the minimum tier across the critical
// fields for the document's type: one low critical field forces LOW
// regardless of every other score.
type ConfidenceEvaluator struct {
	thresholds ConfidenceThresholds
	critical   map[domain.DocumentType][]string
}

func NewConfidenceEvaluator(
	thresholds ConfidenceThresholds,
	invoiceCritical, statementCritical []string,
) *ConfidenceEvaluator {
	return &ConfidenceEvaluator{
		thresholds: thresholds,
		critical: map[domain.DocumentType][]string{
			domain.TypeInvoice:   invoiceCritical,
			domain.TypeStatement: statementCritical,
		},
	}
}

// FieldTier buckets a single confidence score.
func (e *ConfidenceEvaluator) FieldTier(confidence float64) domain.ConfidenceTier {
	switch {
	case confidence >= e.thresholds.High:
		return domain.TierHigh
	case confidence >= e.thresholds.Medium:
		return domain.TierMedium
	default:
		return domain.TierLow
	}
}

// Evaluate returns the overall tier plus the names of fields below the
// HIGH threshold, sorted for stable output. A critical field missing from
// the extraction counts as LOW: absence is worse than low confidence.
func (e *ConfidenceEvaluator) Evaluate(docType domain.DocumentType, fields domain.FieldMap) (domain.ConfidenceTier, []string) {
	overall := domain.TierHigh
	var low []string

	for name, f := range fields {
		if tier := e.FieldTier(f.Confidence); tier != domain.TierHigh {
			low = append(low, name)
		}
	}

	for _, name := range e.critical[docType] {
		f, ok := fields[name]
		if !ok {
			overall = domain.TierLow
			continue
		}
		overall = minTier(overall, e.FieldTier(f.Confidence))
	}

	sort.Strings(low)
	return overall, low
}

func minTier(a, b domain.ConfidenceTier) domain.ConfidenceTier {
	rank := map[domain.ConfidenceTier]int{
		domain.TierLow:    0,
		domain.TierMedium: 1,
		domain.TierHigh:   2,
	}
	if rank[b] < rank[a] {
		return b
	}
	return a
}
