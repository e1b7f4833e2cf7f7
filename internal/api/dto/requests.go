package dto

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/documents"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/money"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/storage"
)

// DateLayout is the format of document dates in requests.
const DateLayout = "2006-01-02"

// ErrMalformedRequest indicates a request that cannot be turned into
// documents at all, such as an unparseable date.
var ErrMalformedRequest = errors.New("malformed request")

// SupplierRequest identifies the supplier on a document.
type SupplierRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LineItemRequest is one line of a document. Amounts are in the document
// currency. A missing total is quantity times unit price.
type LineItemRequest struct {
	ID          string           `json:"id"`
	Description string           `json:"description"`
	Quantity    int              `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	Total       *decimal.Decimal `json:"total,omitempty"`
}

// InvoiceRequest is an invoice as accepted by the API and the CLI.
type InvoiceRequest struct {
	ID            string            `json:"id"`
	InvoiceNumber string            `json:"invoice_number"`
	Date          string            `json:"date"`
	DueDate       string            `json:"due_date,omitempty"`
	Supplier      SupplierRequest   `json:"supplier"`
	Currency      string            `json:"currency"`
	Total         *decimal.Decimal  `json:"total,omitempty"`
	LineItems     []LineItemRequest `json:"line_items"`
}

// PurchaseOrderRequest is a candidate purchase order.
type PurchaseOrderRequest struct {
	ID        string            `json:"id"`
	PONumber  string            `json:"po_number"`
	Date      string            `json:"date"`
	Supplier  SupplierRequest   `json:"supplier"`
	Currency  string            `json:"currency"`
	Status    string            `json:"status,omitempty"`
	Total     *decimal.Decimal  `json:"total,omitempty"`
	LineItems []LineItemRequest `json:"line_items"`
}

// ReconcileRequest is the body of POST /api/reconcile.
type ReconcileRequest struct {
	Invoice    InvoiceRequest         `json:"invoice"`
	Candidates []PurchaseOrderRequest `json:"candidates"`
	Extensions map[string]any         `json:"extensions,omitempty"`
}

// BatchReconcileRequest is the body of POST /api/reconcile/batch.
type BatchReconcileRequest struct {
	Requests []ReconcileRequest `json:"requests"`
}

// AuditListParams represents query parameters for listing audit records.
type AuditListParams struct {
	Decision   string `json:"decision"`
	SupplierID string `json:"supplier_id"`
	InvoiceID  string `json:"invoice_id"`
	Since      string `json:"since"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
}

// DefaultAuditListParams returns default values for audit list params.
func DefaultAuditListParams() AuditListParams {
	return AuditListParams{
		Limit:  storage.DefaultListLimit,
		Offset: 0,
	}
}

// Filters converts the params into repository filters. Since accepts a
// date or an RFC 3339 timestamp.
func (p AuditListParams) Filters() (storage.AuditFilters, error) {
	filters := storage.AuditFilters{
		Decision:   p.Decision,
		SupplierID: p.SupplierID,
		InvoiceID:  p.InvoiceID,
		Limit:      p.Limit,
		Offset:     p.Offset,
	}
	if p.Since != "" {
		since, err := parseTimestamp(p.Since)
		if err != nil {
			return storage.AuditFilters{}, fmt.Errorf("invalid since: %w", err)
		}
		filters.Since = since
	}
	return filters, nil
}

// ToInvoice converts the request into a domain invoice. Amount and
// currency checks are left to the validator.
func (r InvoiceRequest) ToInvoice() (documents.Invoice, error) {
	code := parseCode(r.Currency)

	date, err := parseDate(r.Date)
	if err != nil {
		return documents.Invoice{}, fmt.Errorf("%w: invoice %s: date: %v", ErrMalformedRequest, r.ID, err)
	}
	due, err := parseDate(r.DueDate)
	if err != nil {
		return documents.Invoice{}, fmt.Errorf("%w: invoice %s: due_date: %v", ErrMalformedRequest, r.ID, err)
	}

	items, sum := toLineItems(r.LineItems, code)
	return documents.Invoice{
		ID:            r.ID,
		InvoiceNumber: r.InvoiceNumber,
		Date:          date,
		DueDate:       due,
		Supplier:      documents.Supplier(r.Supplier),
		LineItems:     items,
		Total:         documentTotal(r.Total, sum, code),
		Currency:      code,
	}, nil
}

// ToPurchaseOrder converts the request into a domain purchase order.
// Status defaults to open.
func (r PurchaseOrderRequest) ToPurchaseOrder() (documents.PurchaseOrder, error) {
	code := parseCode(r.Currency)

	date, err := parseDate(r.Date)
	if err != nil {
		return documents.PurchaseOrder{}, fmt.Errorf("%w: purchase order %s: date: %v", ErrMalformedRequest, r.ID, err)
	}

	status := documents.POStatus(r.Status)
	if status == "" {
		status = documents.POStatusOpen
	}

	items, sum := toLineItems(r.LineItems, code)
	return documents.PurchaseOrder{
		ID:        r.ID,
		PONumber:  r.PONumber,
		Date:      date,
		Supplier:  documents.Supplier(r.Supplier),
		LineItems: items,
		Total:     documentTotal(r.Total, sum, code),
		Currency:  code,
		Status:    status,
	}, nil
}

// ToDocuments converts the invoice and every candidate.
func (r ReconcileRequest) ToDocuments() (documents.Invoice, []documents.PurchaseOrder, error) {
	invoice, err := r.Invoice.ToInvoice()
	if err != nil {
		return documents.Invoice{}, nil, err
	}

	candidates := make([]documents.PurchaseOrder, 0, len(r.Candidates))
	for _, c := range r.Candidates {
		po, err := c.ToPurchaseOrder()
		if err != nil {
			return documents.Invoice{}, nil, err
		}
		candidates = append(candidates, po)
	}
	return invoice, candidates, nil
}

func toLineItems(reqs []LineItemRequest, code money.Code) ([]documents.LineItem, decimal.Decimal) {
	items := make([]documents.LineItem, 0, len(reqs))
	sum := decimal.Zero
	for _, r := range reqs {
		total := r.UnitPrice.Mul(decimal.NewFromInt(int64(r.Quantity)))
		if r.Total != nil {
			total = *r.Total
		}
		sum = sum.Add(total)
		items = append(items, documents.LineItem{
			ID:          r.ID,
			Description: r.Description,
			Quantity:    r.Quantity,
			UnitPrice:   amount(r.UnitPrice, code),
			Total:       amount(total, code),
		})
	}
	return items, sum
}

func documentTotal(explicit *decimal.Decimal, sum decimal.Decimal, code money.Code) money.Money {
	if explicit != nil {
		return amount(*explicit, code)
	}
	return amount(sum, code)
}

func amount(d decimal.Decimal, code money.Code) money.Money {
	return money.Money{Amount: money.Round(d), Currency: code}
}

func parseCode(s string) money.Code {
	return money.Code(strings.ToUpper(strings.TrimSpace(s)))
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return parseTimestamp(s)
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
