package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/eshaffer321/invoice-reconciler/internal/api/dto"
	"github.com/eshaffer321/invoice-reconciler/internal/application/service"
)

// Summary counts the outcomes of one run.
type Summary struct {
	AutoMatched  int
	ManualReview int
	NoMatch      int
	Errors       int
}

// Add records one result.
func (s *Summary) Add(outcome *service.Outcome, err error) {
	if err != nil {
		s.Errors++
		return
	}
	switch outcome.Decision {
	case service.DecisionAutoMatched:
		s.AutoMatched++
	case service.DecisionManualReview:
		s.ManualReview++
	default:
		s.NoMatch++
	}
}

// Total is the number of results recorded.
func (s Summary) Total() int {
	return s.AutoMatched + s.ManualReview + s.NoMatch + s.Errors
}

// PrintHeader prints the application header
func PrintHeader(w io.Writer, requests int, audit bool) {
	mode := "audited"
	if !audit {
		mode = "no audit"
	}
	fmt.Fprintf(w, "invoice-reconciler: %d invoice(s) (%s)\n\n", requests, mode)
}

// PrintOutcome prints one reconciled invoice. Reasons are listed only when
// verbose is set or the invoice needs attention.
func PrintOutcome(w io.Writer, invoiceID string, outcome *service.Outcome, verbose bool) {
	resp := dto.NewReconcileResponse(outcome)

	po := resp.PurchaseOrderID
	if po == "" {
		po = "-"
	}
	fmt.Fprintf(w, "%-16s %-14s PO=%-12s confidence=%5.1f%%",
		invoiceID, strings.ToUpper(resp.Decision), po, resp.Confidence*100)
	if resp.AuditID != "" {
		fmt.Fprintf(w, " audit=%s", resp.AuditID)
	}
	fmt.Fprintln(w)

	if !verbose && outcome.Decision == service.DecisionAutoMatched {
		return
	}
	for _, reason := range resp.Reasons {
		fmt.Fprintf(w, "  - %s\n", reason)
	}
	if verbose {
		for _, alt := range resp.Alternatives {
			fmt.Fprintf(w, "  alternative %s confidence=%.1f%%\n", alt.PurchaseOrderID, alt.Confidence*100)
		}
		for _, r := range resp.Rules {
			fmt.Fprintf(w, "  rule %s [%s] %s\n", r.Rule, r.Severity, r.Message)
		}
	}
}

// PrintFailure prints an invoice that could not be reconciled.
func PrintFailure(w io.Writer, invoiceID string, err error) {
	fmt.Fprintf(w, "%-16s %-14s %v\n", invoiceID, "ERROR", err)
}

// PrintSummary prints the run summary
func PrintSummary(w io.Writer, s Summary) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Summary: Reconciled=%d AutoMatched=%d Review=%d NoMatch=%d Errors=%d\n",
		s.Total()-s.Errors,
		s.AutoMatched,
		s.ManualReview,
		s.NoMatch,
		s.Errors)
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
