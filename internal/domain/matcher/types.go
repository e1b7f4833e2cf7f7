package matcher

import (
	"github.com/eshaffer321/invoice-reconciler/internal/domain/documents"
)

// NoMatchReason is the sole reason reported when no candidate is admitted.
const NoMatchReason = "No matching purchase orders found"

// Config holds matcher configuration
type Config struct {
	DescriptionThreshold float64 // Min description similarity, default: 0.85
	QuantityTolerance    float64 // Max relative quantity diff, default: 0.02 (2%)
	PriceTolerance       float64 // Max relative unit price diff, default: 0.02 (2%)
	ConfidenceThreshold  float64 // Min candidate confidence, default: 0.90
	MaxAlternatives      int     // Runner-up candidates reported, default: 3

	// ClampItemScores clamps each pair score to [0,1] before averaging.
	ClampItemScores bool

	// CompletenessPenalty scales confidence by matched/total line items.
	// Off by default: a candidate matching 1 of 10 items perfectly scores
	// the same as one matching all 10.
	CompletenessPenalty bool

	// ConvertAtInvoiceDate requests rates as of the invoice date instead of latest.
	ConvertAtInvoiceDate bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		DescriptionThreshold: 0.85,
		QuantityTolerance:    0.02,
		PriceTolerance:       0.02,
		ConfidenceThreshold:  0.90,
		MaxAlternatives:      3,
	}
}

// MatchScore is the aggregate score of one invoice against one purchase order.
type MatchScore struct {
	Confidence   float64 `json:"confidence"`
	MatchedItems int     `json:"matched_items"`
	TotalItems   int     `json:"total_items"`
}

// MatchCandidate is a ranked purchase order.
type MatchCandidate struct {
	PurchaseOrder documents.PurchaseOrder `json:"purchase_order"`
	Score         MatchScore              `json:"score"`
}

// ItemPair records which PO line item represented an invoice line item.
type ItemPair struct {
	InvoiceItemID         string  `json:"invoice_item_id"`
	POItemID              string  `json:"po_item_id"`
	Score                 float64 `json:"score"`
	DescriptionSimilarity float64 `json:"description_similarity"`
	QuantityDiff          float64 `json:"quantity_diff"`
	PriceDiff             float64 `json:"price_diff"`
}

// CandidateEvaluation is the full scoring record for one candidate, kept for audit.
type CandidateEvaluation struct {
	PurchaseOrderID string     `json:"purchase_order_id"`
	Score           MatchScore `json:"score"`
	Pairs           []ItemPair `json:"pairs"`
	Admitted        bool       `json:"admitted"`
}

// MatchResult contains match information
type MatchResult struct {
	BestMatch    *documents.PurchaseOrder `json:"best_match"`
	Confidence   float64                  `json:"confidence"`
	Alternatives []MatchCandidate         `json:"alternatives"`
	Reasons      []string                 `json:"reasons"`

	// Evaluated holds every candidate's score in input order.
	Evaluated []CandidateEvaluation `json:"evaluated"`
}

// Matched reports whether a best match was selected.
func (r *MatchResult) Matched() bool {
	return r != nil && r.BestMatch != nil
}

// TopEvaluatedConfidence is the highest confidence seen, admitted or not.
func (r *MatchResult) TopEvaluatedConfidence() float64 {
	top := 0.0
	for _, e := range r.Evaluated {
		if e.Score.Confidence > top {
			top = e.Score.Confidence
		}
	}
	return top
}
