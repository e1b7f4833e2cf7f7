package rules

import (
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/documents"
)

// Field names a numeric property shared by invoices and purchase orders.
type Field string

const (
	FieldTotalAmount      Field = "totalAmount"
	FieldLineItemCount    Field = "lineItemCount"
	FieldTotalQuantity    Field = "totalQuantity"
	FieldAverageUnitPrice Field = "averageUnitPrice"
)

var fieldAccessors = map[Field]func(documents.Document) (decimal.Decimal, bool){
	FieldTotalAmount: func(d documents.Document) (decimal.Decimal, bool) {
		return d.GetTotal().Amount, true
	},
	FieldLineItemCount: func(d documents.Document) (decimal.Decimal, bool) {
		return decimal.NewFromInt(int64(len(d.GetLineItems()))), true
	},
	FieldTotalQuantity: func(d documents.Document) (decimal.Decimal, bool) {
		return decimal.NewFromInt(int64(documents.TotalQuantity(d))), true
	},
	FieldAverageUnitPrice: func(d documents.Document) (decimal.Decimal, bool) {
		items := d.GetLineItems()
		if len(items) == 0 {
			return decimal.Zero, false
		}
		sum := decimal.Zero
		for _, item := range items {
			sum = sum.Add(item.UnitPrice.Amount)
		}
		return sum.Div(decimal.NewFromInt(int64(len(items)))), true
	},
}

// Known reports whether f has an accessor.
func (f Field) Known() bool {
	_, ok := fieldAccessors[f]
	return ok
}

// Value reads f from d. The second result is false when the field is
// unknown or has no numeric value on d.
func (f Field) Value(d documents.Document) (decimal.Decimal, bool) {
	access, ok := fieldAccessors[f]
	if !ok || d == nil {
		return decimal.Zero, false
	}
	return access(d)
}
