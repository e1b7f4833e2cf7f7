// Package matcher reconciles supplier invoices against candidate purchase
// orders.
//
// Matching criteria per line item:
//   - Description similarity at least 0.85 (normalized Levenshtein)
//   - Quantity within 2% of the PO quantity
//   - Unit price within 2% of the PO price, after currency conversion
//
// A candidate's confidence is the mean score of its paired line items. Only
// candidates at or above the confidence threshold (0.90) are ranked.
//
// Example usage:
//
//	m := matcher.NewMatcher(matcher.DefaultConfig(), converter, nil, logger)
//	result, err := m.MatchInvoice(ctx, invoice, purchaseOrders)
//	if result.Matched() {
//		po := result.BestMatch
//	}
package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/currency"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/documents"
)

// Matcher matches invoices with purchase orders
type Matcher struct {
	config   Config
	rates    currency.RateProvider
	strategy PairingStrategy
	logger   *slog.Logger
}

// NewMatcher creates a new matcher. A nil strategy pairs greedily.
func NewMatcher(config Config, rates currency.RateProvider, strategy PairingStrategy, logger *slog.Logger) *Matcher {
	if strategy == nil {
		strategy = GreedyPairing{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		config:   config,
		rates:    rates,
		strategy: strategy,
		logger:   logger,
	}
}

// Config returns the matcher configuration.
func (m *Matcher) Config() Config {
	return m.config
}

// MatchInvoice scores invoice against every candidate and ranks those that
// clear the confidence threshold. Exchange rates are pinned for the
// duration of the call. A rate fetch failure aborts the whole call and is
// returned unchanged.
//
// Finding nothing is not an error: the result has a nil BestMatch and a
// single explanatory reason.
func (m *Matcher) MatchInvoice(ctx context.Context, invoice documents.Invoice, candidates []documents.PurchaseOrder) (*MatchResult, error) {
	var rates currency.RateProvider
	if m.rates != nil {
		rates = currency.NewSnapshot(m.rates)
	}
	scorer := NewLineItemScorer(m.config, rates)
	if m.config.ConvertAtInvoiceDate && !invoice.Date.IsZero() {
		asOf := invoice.Date
		scorer = scorer.WithAsOf(&asOf)
	}

	result := &MatchResult{
		Alternatives: make([]MatchCandidate, 0),
		Evaluated:    make([]CandidateEvaluation, 0, len(candidates)),
	}

	admitted := make([]MatchCandidate, 0, len(candidates))
	for _, po := range candidates {
		eval, err := m.evaluateCandidate(ctx, scorer, invoice, po)
		if err != nil {
			m.logger.Warn("candidate scoring failed",
				"invoice_id", invoice.ID,
				"po_id", po.ID,
				"error", err)
			return nil, err
		}

		eval.Admitted = eval.Score.Confidence >= m.config.ConfidenceThreshold
		result.Evaluated = append(result.Evaluated, eval)

		m.logger.Debug("candidate scored",
			"invoice_id", invoice.ID,
			"po_id", po.ID,
			"confidence", eval.Score.Confidence,
			"matched_items", eval.Score.MatchedItems,
			"admitted", eval.Admitted)

		if eval.Admitted {
			admitted = append(admitted, MatchCandidate{PurchaseOrder: po, Score: eval.Score})
		}
	}

	// Stable so that equal confidences keep input order.
	sort.SliceStable(admitted, func(i, j int) bool {
		return admitted[i].Score.Confidence > admitted[j].Score.Confidence
	})

	if len(admitted) == 0 {
		result.Reasons = []string{NoMatchReason}
		return result, nil
	}

	best := admitted[0]
	bestPO := best.PurchaseOrder
	result.BestMatch = &bestPO
	result.Confidence = best.Score.Confidence

	rest := admitted[1:]
	if m.config.MaxAlternatives >= 0 && len(rest) > m.config.MaxAlternatives {
		rest = rest[:m.config.MaxAlternatives]
	}
	result.Alternatives = append(result.Alternatives, rest...)
	result.Reasons = buildReasons(invoice, best)

	return result, nil
}

// evaluateCandidate builds the pair matrix for one purchase order, lets the
// pairing strategy choose pairs, and averages their scores.
func (m *Matcher) evaluateCandidate(ctx context.Context, scorer *LineItemScorer, invoice documents.Invoice, po documents.PurchaseOrder) (CandidateEvaluation, error) {
	invItems := invoice.LineItems
	poItems := po.LineItems

	matrix := PairMatrix{
		Eligible: make([][]bool, len(invItems)),
		Scores:   make([][]float64, len(invItems)),
	}
	comparisons := make([][]Comparison, len(invItems))

	for i, inv := range invItems {
		matrix.Eligible[i] = make([]bool, len(poItems))
		matrix.Scores[i] = make([]float64, len(poItems))
		comparisons[i] = make([]Comparison, len(poItems))

		for j, item := range poItems {
			c, err := scorer.Compare(ctx, inv, item)
			if err != nil {
				return CandidateEvaluation{}, err
			}
			comparisons[i][j] = c
			matrix.Eligible[i][j] = scorer.eligible(c)
			matrix.Scores[i][j] = scorer.score(c)
		}
	}

	pairings := m.strategy.Pair(matrix)

	eval := CandidateEvaluation{
		PurchaseOrderID: po.ID,
		Pairs:           make([]ItemPair, 0, len(pairings)),
		Score: MatchScore{
			MatchedItems: len(pairings),
			TotalItems:   len(invItems),
		},
	}

	sum := 0.0
	for _, p := range pairings {
		c := comparisons[p.Row][p.Col]
		s := matrix.Scores[p.Row][p.Col]
		sum += s
		eval.Pairs = append(eval.Pairs, ItemPair{
			InvoiceItemID:         invItems[p.Row].ID,
			POItemID:              poItems[p.Col].ID,
			Score:                 s,
			DescriptionSimilarity: c.DescriptionSimilarity,
			QuantityDiff:          c.QuantityDiff,
			PriceDiff:             c.PriceDiff,
		})
	}

	if len(pairings) > 0 {
		confidence := sum / float64(len(pairings))
		if m.config.CompletenessPenalty && len(invItems) > 0 {
			confidence *= float64(len(pairings)) / float64(len(invItems))
		}
		eval.Score.Confidence = confidence
	}

	return eval, nil
}

func buildReasons(invoice documents.Invoice, best MatchCandidate) []string {
	reasons := []string{
		fmt.Sprintf("Matched %d of %d line items", best.Score.MatchedItems, best.Score.TotalItems),
		fmt.Sprintf("Overall confidence: %.1f%%", best.Score.Confidence*100),
	}
	if invoice.Currency != best.PurchaseOrder.Currency {
		reasons = append(reasons, fmt.Sprintf("Currency conversion applied: %s to %s", invoice.Currency, best.PurchaseOrder.Currency))
	}
	return reasons
}
