// Package documents defines the commercial documents being reconciled:
// supplier invoices and the purchase orders they may settle.
//
// Documents are owned by the caller. Nothing in the reconciler mutates them;
// helpers that need an altered view return a copy.
package documents

import (
	"time"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/money"
)

// MaxDescriptionLength is the longest line item description accepted, in runes.
const MaxDescriptionLength = 500

// LineItem is a single priced line on an invoice or purchase order.
type LineItem struct {
	ID          string      `json:"id"`
	Description string      `json:"description"`
	Quantity    int         `json:"quantity"`
	UnitPrice   money.Money `json:"unit_price"`
	Total       money.Money `json:"total"`
}

// Supplier identifies the vendor on a document.
type Supplier struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// POStatus is the lifecycle state of a purchase order.
type POStatus string

const (
	POStatusOpen     POStatus = "open"
	POStatusPartial  POStatus = "partially_received"
	POStatusReceived POStatus = "received"
	POStatusClosed   POStatus = "closed"
)

// Invoice is a supplier bill awaiting reconciliation.
type Invoice struct {
	ID            string      `json:"id"`
	InvoiceNumber string      `json:"invoice_number"`
	Date          time.Time   `json:"date"`
	DueDate       time.Time   `json:"due_date"`
	Supplier      Supplier    `json:"supplier"`
	LineItems     []LineItem  `json:"line_items"`
	Total         money.Money `json:"total"`
	Currency      money.Code  `json:"currency"`
}

// PurchaseOrder is a buyer-issued order an invoice may be matched against.
type PurchaseOrder struct {
	ID        string      `json:"id"`
	PONumber  string      `json:"po_number"`
	Date      time.Time   `json:"date"`
	Supplier  Supplier    `json:"supplier"`
	LineItems []LineItem  `json:"line_items"`
	Total     money.Money `json:"total"`
	Currency  money.Code  `json:"currency"`
	Status    POStatus    `json:"status"`
}

// Document is the read-only view shared by invoices and purchase orders.
type Document interface {
	GetID() string
	GetLineItems() []LineItem
	GetTotal() money.Money
	GetCurrency() money.Code
}

func (i Invoice) GetID() string            { return i.ID }
func (i Invoice) GetLineItems() []LineItem { return i.LineItems }
func (i Invoice) GetTotal() money.Money    { return i.Total }
func (i Invoice) GetCurrency() money.Code  { return i.Currency }

func (p PurchaseOrder) GetID() string            { return p.ID }
func (p PurchaseOrder) GetLineItems() []LineItem { return p.LineItems }
func (p PurchaseOrder) GetTotal() money.Money    { return p.Total }
func (p PurchaseOrder) GetCurrency() money.Code  { return p.Currency }

// TotalQuantity sums quantities across all line items of d.
func TotalQuantity(d Document) int {
	total := 0
	for _, item := range d.GetLineItems() {
		total += item.Quantity
	}
	return total
}
