package matcher

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/currency"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/documents"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/similarity"
)

// Score weights.
const (
	descriptionWeight = 0.4
	quantityWeight    = 0.3
	priceWeight       = 0.3
)

var errNoRateProvider = errors.New("no rate provider configured for cross-currency comparison")

// Comparison holds the raw measurements between two line items.
type Comparison struct {
	DescriptionSimilarity float64
	QuantityDiff          float64 // |inv-po|/po, 1.0 when po is zero
	PriceDiff             float64 // same, on unit price in the PO currency
	QuantityComparable    bool    // false when the PO quantity is zero
	PriceComparable       bool    // false when the PO unit price is zero
	Converted             bool    // invoice price was converted
}

// LineItemScorer compares an invoice line item to a purchase order line item.
type LineItemScorer struct {
	config Config
	rates  currency.RateProvider
	asOf   *time.Time
}

// NewLineItemScorer creates a scorer. rates may be nil when every comparison
// is in a single currency.
func NewLineItemScorer(config Config, rates currency.RateProvider) *LineItemScorer {
	return &LineItemScorer{
		config: config,
		rates:  rates,
	}
}

// WithAsOf returns a copy of the scorer that converts at the given date.
func (s *LineItemScorer) WithAsOf(asOf *time.Time) *LineItemScorer {
	clone := *s
	clone.asOf = asOf
	return &clone
}

// Compare measures description similarity and relative quantity and price
// differences, converting the invoice unit price into the PO currency first
// when they differ.
func (s *LineItemScorer) Compare(ctx context.Context, inv, po documents.LineItem) (Comparison, error) {
	c := Comparison{
		DescriptionSimilarity: similarity.Similarity(inv.Description, po.Description),
	}

	c.QuantityDiff, c.QuantityComparable = relativeDiff(
		decimal.NewFromInt(int64(inv.Quantity)),
		decimal.NewFromInt(int64(po.Quantity)),
	)

	invPrice := inv.UnitPrice
	if invPrice.Currency != po.UnitPrice.Currency {
		if s.rates == nil {
			return Comparison{}, errNoRateProvider
		}
		rate, err := s.rates.Rate(ctx, invPrice.Currency, po.UnitPrice.Currency, s.asOf)
		if err != nil {
			return Comparison{}, err
		}
		invPrice, err = currency.Apply(invPrice.Amount, rate)
		if err != nil {
			return Comparison{}, err
		}
		c.Converted = true
	}
	c.PriceDiff, c.PriceComparable = relativeDiff(invPrice.Amount, po.UnitPrice.Amount)

	return c, nil
}

// Matches reports whether po is eligible to represent inv: description
// similarity, quantity and price all within the configured thresholds. A
// zero PO quantity or price never matches.
func (s *LineItemScorer) Matches(ctx context.Context, inv, po documents.LineItem) (bool, error) {
	c, err := s.Compare(ctx, inv, po)
	if err != nil {
		return false, err
	}
	return s.eligible(c), nil
}

// Score returns 0.4*desc + 0.3*(1-qtyDiff) + 0.3*(1-priceDiff). The value is
// negative when a relative diff exceeds 1 unless ClampItemScores is set.
func (s *LineItemScorer) Score(ctx context.Context, inv, po documents.LineItem) (float64, error) {
	c, err := s.Compare(ctx, inv, po)
	if err != nil {
		return 0, err
	}
	return s.score(c), nil
}

func (s *LineItemScorer) eligible(c Comparison) bool {
	return c.DescriptionSimilarity >= s.config.DescriptionThreshold &&
		c.QuantityComparable && c.QuantityDiff <= s.config.QuantityTolerance &&
		c.PriceComparable && c.PriceDiff <= s.config.PriceTolerance
}

func (s *LineItemScorer) score(c Comparison) float64 {
	v := descriptionWeight*c.DescriptionSimilarity +
		quantityWeight*(1-c.QuantityDiff) +
		priceWeight*(1-c.PriceDiff)
	if s.config.ClampItemScores {
		v = math.Max(0, math.Min(1, v))
	}
	return v
}

// relativeDiff returns |actual-reference|/reference. A zero reference is
// not comparable and reports a diff of 1.
func relativeDiff(actual, reference decimal.Decimal) (float64, bool) {
	if reference.IsZero() {
		return 1.0, false
	}
	diff := actual.Sub(reference).Abs().Div(reference.Abs())
	return diff.InexactFloat64(), true
}
