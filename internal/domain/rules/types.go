// Package rules evaluates reconciliation tolerance rules against an invoice
// and the purchase order it was matched to.
//
// Rules run in registration order. The first failure with error severity
// stops evaluation and is returned as a *BusinessRuleViolationError; callers
// should route that invoice to manual review rather than treat it as a crash.
//
// Example usage:
//
//	engine := rules.NewEngine().
//		AddRule(rules.NewToleranceRule(2, "totalAmount")).
//		AddRule(rules.NewToleranceRule(0, "lineItemCount"))
//	result, err := engine.Evaluate(rules.Context{Invoice: inv, PurchaseOrder: po})
package rules

import (
	"github.com/eshaffer321/invoice-reconciler/internal/domain/documents"
)

// Severity classifies a rule outcome.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// RuleResult is the outcome of one rule against one context.
type RuleResult struct {
	Rule     string         `json:"rule"`
	Passed   bool           `json:"passed"`
	Message  string         `json:"message"`
	Severity Severity       `json:"severity"`
	Details  map[string]any `json:"details,omitempty"`
}

// EvaluationResult is the outcome of a full rule run without violations.
type EvaluationResult struct {
	Passed   bool         `json:"passed"`
	Results  []RuleResult `json:"results"`
	Warnings []RuleResult `json:"warnings"`
}

// Context is the input to rule evaluation: the invoice, the purchase order
// chosen for it, and free-form extensions supplied by the caller.
type Context struct {
	Invoice       documents.Document
	PurchaseOrder documents.Document
	Extensions    map[string]any
}

// Rule is a single business check.
type Rule interface {
	Evaluate(ctx Context) RuleResult
	Explain() string
}
