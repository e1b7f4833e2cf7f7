package storage

import (
	"time"
)

// AuditRecord is the immutable trail of one reconciliation decision.
type AuditRecord struct {
	ID              string    `json:"id"`
	InvoiceID       string    `json:"invoice_id"`
	InvoiceNumber   string    `json:"invoice_number"`
	SupplierID      string    `json:"supplier_id"`
	SupplierName    string    `json:"supplier_name"`
	Currency        string    `json:"currency"`
	InvoiceTotal    float64   `json:"invoice_total"`
	PurchaseOrderID string    `json:"purchase_order_id,omitempty"`
	Confidence      float64   `json:"confidence"`
	Decision        string    `json:"decision"`
	Violation       string    `json:"violation,omitempty"`
	CreatedAt       time.Time `json:"created_at"`

	// Detailed data stored as JSON
	Reasons     []string         `json:"reasons"`
	Candidates  []CandidateScore `json:"candidates"`
	RuleResults []RuleOutcome    `json:"rule_results"`
}

// CandidateScore records how one purchase order scored against the invoice.
type CandidateScore struct {
	PurchaseOrderID string  `json:"purchase_order_id"`
	Confidence      float64 `json:"confidence"`
	MatchedItems    int     `json:"matched_items"`
	Admitted        bool    `json:"admitted"`
}

// RuleOutcome records one rule result.
type RuleOutcome struct {
	Rule     string `json:"rule"`
	Passed   bool   `json:"passed"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Stats contains aggregate audit statistics
type Stats struct {
	TotalAudits       int            `json:"total_audits"`
	ByDecision        map[string]int `json:"by_decision"`
	AverageConfidence float64        `json:"average_confidence"`
	ViolationCount    int            `json:"violation_count"`
	SupplierCount     int            `json:"supplier_count"`
}
