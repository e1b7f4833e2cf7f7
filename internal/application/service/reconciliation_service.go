// Package service orchestrates a reconciliation run: document validation,
// candidate matching, tolerance rules, the final decision and its audit
// record.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/currency"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/documents"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/money"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/rules"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/validator"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/storage"
)

// Decision is the routing outcome for an invoice.
type Decision string

const (
	DecisionAutoMatched  Decision = "auto_matched"
	DecisionManualReview Decision = "manual_review"
	DecisionNoMatch      Decision = "no_match"
)

// Config holds service settings
type Config struct {
	ReviewThreshold  float64 // Near-miss confidence routed to review, default: 0.70
	BatchConcurrency int     // Parallel reconciliations in a batch, default: 4
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		ReviewThreshold:  0.70,
		BatchConcurrency: 4,
	}
}

// RateService resolves exchange rates and owns their cache.
type RateService interface {
	currency.RateProvider
	ClearCache()
	CacheSize() int
}

// Request is one invoice with the purchase orders it may match.
type Request struct {
	Invoice    documents.Invoice
	Candidates []documents.PurchaseOrder
	Extensions map[string]any
}

// Outcome is the result of reconciling one invoice.
type Outcome struct {
	AuditID   string
	Decision  Decision
	Match     *matcher.MatchResult
	Rules     *rules.EvaluationResult
	Violation *rules.BusinessRuleViolationError
	Reasons   []string
}

// BatchResult pairs a batch entry with its outcome or error.
type BatchResult struct {
	Index   int
	Outcome *Outcome
	Err     error
}

// ReconciliationService runs reconciliations. It is safe for concurrent use.
type ReconciliationService struct {
	matcher *matcher.Matcher
	rules   *rules.Engine
	rates   RateService
	store   storage.AuditRepository
	config  Config
	logger  *slog.Logger
}

// NewReconciliationService wires the service. rates may be nil for
// single-currency use and store may be nil to skip audit records.
func NewReconciliationService(
	m *matcher.Matcher,
	engine *rules.Engine,
	rates RateService,
	store storage.AuditRepository,
	config Config,
	logger *slog.Logger,
) *ReconciliationService {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = rules.NewEngine()
	}
	if config.BatchConcurrency <= 0 {
		config.BatchConcurrency = DefaultConfig().BatchConcurrency
	}
	return &ReconciliationService{
		matcher: m,
		rules:   engine,
		rates:   rates,
		store:   store,
		config:  config,
		logger:  logger,
	}
}

// Reconcile validates, matches and rules-checks one invoice, records the
// decision and returns it. Invalid documents and rate failures are
// returned as errors and leave no audit record.
func (s *ReconciliationService) Reconcile(ctx context.Context, req Request) (*Outcome, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	match, err := s.matcher.MatchInvoice(ctx, req.Invoice, req.Candidates)
	if err != nil {
		s.logger.Error("matching failed", "invoice_id", req.Invoice.ID, "error", err)
		return nil, fmt.Errorf("match invoice %s: %w", req.Invoice.ID, err)
	}

	outcome := &Outcome{
		Match:   match,
		Reasons: append([]string(nil), match.Reasons...),
	}

	if match.Matched() {
		if err := s.applyRules(ctx, req, outcome); err != nil {
			return nil, err
		}
	} else {
		s.decideUnmatched(outcome)
	}

	if s.store != nil {
		record := buildAuditRecord(req.Invoice, outcome)
		if err := s.store.SaveAudit(record); err != nil {
			s.logger.Error("failed to save audit record", "invoice_id", req.Invoice.ID, "error", err)
			return nil, fmt.Errorf("save audit for invoice %s: %w", req.Invoice.ID, err)
		}
		outcome.AuditID = record.ID
	}

	s.logger.Info("invoice reconciled",
		"invoice_id", req.Invoice.ID,
		"decision", outcome.Decision,
		"confidence", match.Confidence,
		"po_id", bestMatchID(match),
		"candidates", len(req.Candidates),
		"audit_id", outcome.AuditID,
	)

	return outcome, nil
}

// ReconcileBatch reconciles every request with bounded parallelism. One
// failing entry does not stop the others; results keep request order.
func (s *ReconciliationService) ReconcileBatch(ctx context.Context, reqs []Request) []BatchResult {
	results := make([]BatchResult, len(reqs))

	var g errgroup.Group
	g.SetLimit(s.config.BatchConcurrency)

	for i, req := range reqs {
		g.Go(func() error {
			outcome, err := s.Reconcile(ctx, req)
			results[i] = BatchResult{Index: i, Outcome: outcome, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// applyRules evaluates rules against the invoice expressed in the best
// match's currency and sets the decision.
func (s *ReconciliationService) applyRules(ctx context.Context, req Request, outcome *Outcome) error {
	po := *outcome.Match.BestMatch

	normalized, err := s.normalizeInvoice(ctx, req.Invoice, po.Currency)
	if err != nil {
		return fmt.Errorf("normalize invoice %s: %w", req.Invoice.ID, err)
	}

	evaluation, err := s.rules.Evaluate(rules.Context{
		Invoice:       normalized,
		PurchaseOrder: po,
		Extensions:    req.Extensions,
	})

	var violation *rules.BusinessRuleViolationError
	switch {
	case errors.As(err, &violation):
		outcome.Decision = DecisionManualReview
		outcome.Violation = violation
		outcome.Reasons = append(outcome.Reasons, "Rule violation: "+violation.Result.Message)
		return nil
	case err != nil:
		return fmt.Errorf("evaluate rules for invoice %s: %w", req.Invoice.ID, err)
	}

	outcome.Rules = evaluation
	if len(evaluation.Warnings) > 0 {
		outcome.Decision = DecisionManualReview
		for _, w := range evaluation.Warnings {
			outcome.Reasons = append(outcome.Reasons, "Rule warning: "+w.Message)
		}
		return nil
	}

	outcome.Decision = DecisionAutoMatched
	return nil
}

// decideUnmatched routes near misses to review and everything else to no_match.
func (s *ReconciliationService) decideUnmatched(outcome *Outcome) {
	top := outcome.Match.TopEvaluatedConfidence()
	if top > 0 && top >= s.config.ReviewThreshold {
		outcome.Decision = DecisionManualReview
		outcome.Reasons = append(outcome.Reasons, fmt.Sprintf(
			"Closest candidate scored %.1f%%, below the %.1f%% match threshold",
			top*100, s.matcher.Config().ConfidenceThreshold*100))
		return
	}
	outcome.Decision = DecisionNoMatch
}

// normalizeInvoice returns a copy of inv with every amount in target.
// The caller's invoice is never modified.
func (s *ReconciliationService) normalizeInvoice(ctx context.Context, inv documents.Invoice, target money.Code) (documents.Invoice, error) {
	if inv.Currency == target {
		return inv, nil
	}
	if s.rates == nil {
		return documents.Invoice{}, fmt.Errorf("no rate provider configured for %s->%s", inv.Currency, target)
	}

	var asOf *time.Time
	if s.matcher.Config().ConvertAtInvoiceDate && !inv.Date.IsZero() {
		date := inv.Date
		asOf = &date
	}

	rate, err := s.rates.Rate(ctx, inv.Currency, target, asOf)
	if err != nil {
		return documents.Invoice{}, err
	}

	convert := func(m money.Money) (money.Money, error) {
		if m.Currency == "" {
			return m, nil
		}
		return currency.Apply(m.Amount, rate)
	}

	out := inv
	out.Currency = target
	if out.Total, err = convert(inv.Total); err != nil {
		return documents.Invoice{}, err
	}

	out.LineItems = make([]documents.LineItem, len(inv.LineItems))
	for i, item := range inv.LineItems {
		converted := item
		if converted.UnitPrice, err = convert(item.UnitPrice); err != nil {
			return documents.Invoice{}, err
		}
		if converted.Total, err = convert(item.Total); err != nil {
			return documents.Invoice{}, err
		}
		out.LineItems[i] = converted
	}

	return out, nil
}

// ClearRateCache drops every cached exchange rate.
func (s *ReconciliationService) ClearRateCache() int {
	if s.rates == nil {
		return 0
	}
	cleared := s.rates.CacheSize()
	s.rates.ClearCache()
	return cleared
}

// GetAudit returns a stored audit record.
func (s *ReconciliationService) GetAudit(id string) (*storage.AuditRecord, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return s.store.GetAudit(id)
}

// ListAudits returns stored audit records.
func (s *ReconciliationService) ListAudits(filters storage.AuditFilters) (*storage.AuditListResult, error) {
	if s.store == nil {
		return &storage.AuditListResult{Audits: []*storage.AuditRecord{}}, nil
	}
	return s.store.ListAudits(filters)
}

// Stats returns aggregate audit statistics.
func (s *ReconciliationService) Stats() (*storage.Stats, error) {
	if s.store == nil {
		return &storage.Stats{ByDecision: map[string]int{}}, nil
	}
	return s.store.GetStats()
}

func validateRequest(req Request) error {
	if err := validator.ValidateInvoice(req.Invoice).Err(); err != nil {
		return err
	}
	for _, po := range req.Candidates {
		if err := validator.ValidatePurchaseOrder(po).Err(); err != nil {
			return err
		}
	}
	return nil
}

func bestMatchID(match *matcher.MatchResult) string {
	if !match.Matched() {
		return ""
	}
	return match.BestMatch.ID
}

func buildAuditRecord(inv documents.Invoice, outcome *Outcome) *storage.AuditRecord {
	record := &storage.AuditRecord{
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		SupplierID:      inv.Supplier.ID,
		SupplierName:    inv.Supplier.Name,
		Currency:        string(inv.Currency),
		InvoiceTotal:    inv.Total.Float64(),
		PurchaseOrderID: bestMatchID(outcome.Match),
		Confidence:      outcome.Match.Confidence,
		Decision:        string(outcome.Decision),
		Reasons:         outcome.Reasons,
		Candidates:      make([]storage.CandidateScore, 0, len(outcome.Match.Evaluated)),
	}

	for _, e := range outcome.Match.Evaluated {
		record.Candidates = append(record.Candidates, storage.CandidateScore{
			PurchaseOrderID: e.PurchaseOrderID,
			Confidence:      e.Score.Confidence,
			MatchedItems:    e.Score.MatchedItems,
			Admitted:        e.Admitted,
		})
	}

	var results []rules.RuleResult
	switch {
	case outcome.Violation != nil:
		record.Violation = outcome.Violation.Error()
		results = outcome.Violation.Results
	case outcome.Rules != nil:
		results = outcome.Rules.Results
	}
	for _, r := range results {
		record.RuleResults = append(record.RuleResults, storage.RuleOutcome{
			Rule:     r.Rule,
			Passed:   r.Passed,
			Severity: string(r.Severity),
			Message:  r.Message,
		})
	}

	return record
}
