// Package validator checks invoices and purchase orders before they are
// reconciled.
//
// Validation collects every problem rather than stopping at the first one,
// so a rejected document can be fixed in a single pass.
package validator

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/documents"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/money"
)

// ErrInvalidDocument is wrapped by DocumentValidation.Err.
var ErrInvalidDocument = errors.New("invalid document")

// DocumentValidation contains the result of validating one document.
type DocumentValidation struct {
	// Valid is true if no problems were found
	Valid bool

	// DocumentID identifies the validated document
	DocumentID string

	// Problems lists every violation found, in document order
	Problems []string
}

// Err returns nil for a valid document, otherwise an error wrapping
// ErrInvalidDocument that lists the problems.
func (v *DocumentValidation) Err() error {
	if v.Valid {
		return nil
	}
	return fmt.Errorf("%w %q: %s", ErrInvalidDocument, v.DocumentID, strings.Join(v.Problems, "; "))
}

// ValidateInvoice checks an invoice's identity, currency and line items.
func ValidateInvoice(inv documents.Invoice) *DocumentValidation {
	return validate("invoice", inv)
}

// ValidatePurchaseOrder checks a purchase order's identity, currency and line items.
func ValidatePurchaseOrder(po documents.PurchaseOrder) *DocumentValidation {
	return validate("purchase order", po)
}

func validate(kind string, doc documents.Document) *DocumentValidation {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(doc.GetID()) == "" {
		addf("%s id is required", kind)
	}

	cur := doc.GetCurrency()
	if !cur.Valid() {
		addf("%s currency %q is not supported", kind, cur)
	}

	total := doc.GetTotal()
	if total.Amount.IsNegative() {
		addf("%s total is negative", kind)
	}
	if total.Currency != "" && total.Currency != cur {
		addf("%s total is in %s, document is in %s", kind, total.Currency, cur)
	}

	items := doc.GetLineItems()
	if len(items) == 0 {
		addf("%s has no line items", kind)
	}

	for i, item := range items {
		label := item.ID
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}

		n := utf8.RuneCountInString(item.Description)
		switch {
		case strings.TrimSpace(item.Description) == "":
			addf("line item %s: description is required", label)
		case n > documents.MaxDescriptionLength:
			addf("line item %s: description is %d characters, limit is %d", label, n, documents.MaxDescriptionLength)
		}

		if item.Quantity <= 0 {
			addf("line item %s: quantity must be positive, got %d", label, item.Quantity)
		}

		checkAmount(addf, label, "unit price", item.UnitPrice, cur)
		if item.Total.Currency != "" {
			checkAmount(addf, label, "total", item.Total, cur)
		}
	}

	return &DocumentValidation{
		Valid:      len(problems) == 0,
		DocumentID: doc.GetID(),
		Problems:   problems,
	}
}

func checkAmount(addf func(string, ...any), label, name string, m money.Money, cur money.Code) {
	if m.Amount.IsNegative() {
		addf("line item %s: %s is negative", label, name)
	}
	if m.Currency != cur {
		addf("line item %s: %s is in %q, document is in %s", label, name, m.Currency, cur)
	}
}
