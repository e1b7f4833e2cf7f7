package matcher

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/currency"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/documents"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/money"
)

// Helper to create a test line item
func makeItem(id, description string, qty int, unitPrice string, cur money.Code) documents.LineItem {
	price := money.MustNew(unitPrice, cur)
	total, _ := money.New(price.Amount.Mul(decimal.NewFromInt(int64(qty))), cur)
	return documents.LineItem{
		ID:          id,
		Description: description,
		Quantity:    qty,
		UnitPrice:   price,
		Total:       total,
	}
}

func makeInvoice(id string, cur money.Code, items ...documents.LineItem) documents.Invoice {
	return documents.Invoice{
		ID:            id,
		InvoiceNumber: "INV-" + id,
		Date:          time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC),
		Supplier:      documents.Supplier{ID: "sup-1", Name: "Acme Supplies"},
		LineItems:     items,
		Currency:      cur,
	}
}

func makePO(id string, cur money.Code, items ...documents.LineItem) documents.PurchaseOrder {
	return documents.PurchaseOrder{
		ID:        id,
		PONumber:  "PO-" + id,
		Date:      time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
		Supplier:  documents.Supplier{ID: "sup-1", Name: "Acme Supplies"},
		LineItems: items,
		Currency:  cur,
		Status:    documents.POStatusOpen,
	}
}

// MockRateProvider for testing
type MockRateProvider struct {
	mock.Mock
}

func (m *MockRateProvider) Rate(ctx context.Context, from, to money.Code, asOf *time.Time) (currency.ExchangeRate, error) {
	args := m.Called(ctx, from, to, asOf)
	return args.Get(0).(currency.ExchangeRate), args.Error(1)
}

func rate(from, to money.Code, r string) currency.ExchangeRate {
	return currency.ExchangeRate{From: from, To: to, Rate: decimal.RequireFromString(r)}
}
