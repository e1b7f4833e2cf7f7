package dto

import (
	"time"

	"github.com/eshaffer321/invoice-reconciler/internal/application/service"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/rules"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/storage"
)

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// CandidateResponse is one ranked or evaluated purchase order.
type CandidateResponse struct {
	PurchaseOrderID string  `json:"purchase_order_id"`
	PONumber        string  `json:"po_number,omitempty"`
	Confidence      float64 `json:"confidence"`
	MatchedItems    int     `json:"matched_items"`
	TotalItems      int     `json:"total_items"`
	Admitted        bool    `json:"admitted"`
}

// RuleResultResponse is the outcome of one tolerance rule.
type RuleResultResponse struct {
	Rule     string         `json:"rule"`
	Passed   bool           `json:"passed"`
	Severity string         `json:"severity"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
}

// ReconcileResponse is returned for every reconciled invoice.
type ReconcileResponse struct {
	AuditID         string               `json:"audit_id,omitempty"`
	Decision        string               `json:"decision"`
	PurchaseOrderID string               `json:"purchase_order_id,omitempty"`
	Confidence      float64              `json:"confidence"`
	Reasons         []string             `json:"reasons"`
	Pairs           []matcher.ItemPair   `json:"pairs,omitempty"`
	Alternatives    []CandidateResponse  `json:"alternatives"`
	Evaluated       []CandidateResponse  `json:"evaluated"`
	Rules           []RuleResultResponse `json:"rules"`
	Violation       string               `json:"violation,omitempty"`
}

// BatchEntryResponse is one entry of a batch response. Exactly one of
// Result and Error is set.
type BatchEntryResponse struct {
	Index  int                `json:"index"`
	Result *ReconcileResponse `json:"result,omitempty"`
	Error  *APIError          `json:"error,omitempty"`
}

// BatchReconcileResponse is returned by the batch endpoint.
type BatchReconcileResponse struct {
	Results   []BatchEntryResponse `json:"results"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
}

// AuditResponse represents a stored audit record.
type AuditResponse struct {
	ID              string                   `json:"id"`
	InvoiceID       string                   `json:"invoice_id"`
	InvoiceNumber   string                   `json:"invoice_number,omitempty"`
	SupplierID      string                   `json:"supplier_id,omitempty"`
	SupplierName    string                   `json:"supplier_name,omitempty"`
	Currency        string                   `json:"currency"`
	InvoiceTotal    float64                  `json:"invoice_total"`
	PurchaseOrderID string                   `json:"purchase_order_id,omitempty"`
	Confidence      float64                  `json:"confidence"`
	Decision        string                   `json:"decision"`
	Violation       string                   `json:"violation,omitempty"`
	CreatedAt       string                   `json:"created_at"`
	Reasons         []string                 `json:"reasons"`
	Candidates      []storage.CandidateScore `json:"candidates"`
	RuleResults     []storage.RuleOutcome    `json:"rule_results"`
}

// AuditListResponse is returned when listing audit records.
type AuditListResponse struct {
	Audits     []AuditResponse `json:"audits"`
	TotalCount int             `json:"total_count"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
}

// StatsResponse is returned by the stats endpoint.
type StatsResponse struct {
	TotalAudits       int            `json:"total_audits"`
	ByDecision        map[string]int `json:"by_decision"`
	AverageConfidence float64        `json:"average_confidence"`
	ViolationCount    int            `json:"violation_count"`
	SupplierCount     int            `json:"supplier_count"`
}

// CacheClearResponse is returned after the rate cache is cleared.
type CacheClearResponse struct {
	Cleared int `json:"cleared"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// NewReconcileResponse flattens a service outcome for the wire.
func NewReconcileResponse(outcome *service.Outcome) ReconcileResponse {
	resp := ReconcileResponse{
		AuditID:      outcome.AuditID,
		Decision:     string(outcome.Decision),
		Reasons:      outcome.Reasons,
		Alternatives: []CandidateResponse{},
		Evaluated:    []CandidateResponse{},
		Rules:        []RuleResultResponse{},
	}
	if resp.Reasons == nil {
		resp.Reasons = []string{}
	}

	match := outcome.Match
	if match == nil {
		return resp
	}

	resp.Confidence = match.Confidence
	if match.Matched() {
		resp.PurchaseOrderID = match.BestMatch.ID
	}

	for _, alt := range match.Alternatives {
		resp.Alternatives = append(resp.Alternatives, CandidateResponse{
			PurchaseOrderID: alt.PurchaseOrder.ID,
			PONumber:        alt.PurchaseOrder.PONumber,
			Confidence:      alt.Score.Confidence,
			MatchedItems:    alt.Score.MatchedItems,
			TotalItems:      alt.Score.TotalItems,
			Admitted:        true,
		})
	}

	for _, e := range match.Evaluated {
		resp.Evaluated = append(resp.Evaluated, CandidateResponse{
			PurchaseOrderID: e.PurchaseOrderID,
			Confidence:      e.Score.Confidence,
			MatchedItems:    e.Score.MatchedItems,
			TotalItems:      e.Score.TotalItems,
			Admitted:        e.Admitted,
		})
		if match.Matched() && e.PurchaseOrderID == match.BestMatch.ID {
			resp.Pairs = e.Pairs
		}
	}

	var results []rules.RuleResult
	switch {
	case outcome.Violation != nil:
		resp.Violation = outcome.Violation.Error()
		results = outcome.Violation.Results
	case outcome.Rules != nil:
		results = outcome.Rules.Results
	}
	for _, r := range results {
		resp.Rules = append(resp.Rules, RuleResultResponse{
			Rule:     r.Rule,
			Passed:   r.Passed,
			Severity: string(r.Severity),
			Message:  r.Message,
			Details:  r.Details,
		})
	}

	return resp
}

// NewAuditResponse converts a stored audit record.
func NewAuditResponse(record *storage.AuditRecord) AuditResponse {
	resp := AuditResponse{
		ID:              record.ID,
		InvoiceID:       record.InvoiceID,
		InvoiceNumber:   record.InvoiceNumber,
		SupplierID:      record.SupplierID,
		SupplierName:    record.SupplierName,
		Currency:        record.Currency,
		InvoiceTotal:    record.InvoiceTotal,
		PurchaseOrderID: record.PurchaseOrderID,
		Confidence:      record.Confidence,
		Decision:        record.Decision,
		Violation:       record.Violation,
		CreatedAt:       record.CreatedAt.UTC().Format(time.RFC3339),
		Reasons:         record.Reasons,
		Candidates:      record.Candidates,
		RuleResults:     record.RuleResults,
	}
	if resp.Reasons == nil {
		resp.Reasons = []string{}
	}
	if resp.Candidates == nil {
		resp.Candidates = []storage.CandidateScore{}
	}
	if resp.RuleResults == nil {
		resp.RuleResults = []storage.RuleOutcome{}
	}
	return resp
}

// NewStatsResponse converts repository statistics.
func NewStatsResponse(stats *storage.Stats) StatsResponse {
	byDecision := stats.ByDecision
	if byDecision == nil {
		byDecision = map[string]int{}
	}
	return StatsResponse{
		TotalAudits:       stats.TotalAudits,
		ByDecision:        byDecision,
		AverageConfidence: stats.AverageConfidence,
		ViolationCount:    stats.ViolationCount,
		SupplierCount:     stats.SupplierCount,
	}
}
