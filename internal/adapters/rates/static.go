package rates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/currency"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/money"
)

type pair struct {
	from money.Code
	to   money.Code
}

// StaticSource serves rates from a fixed table. The inverse of every
// configured pair is derived as 1/rate unless configured explicitly.
// The table ignores asOf.
type StaticSource struct {
	rates map[pair]decimal.Decimal
	now   func() time.Time
}

var _ currency.RateSource = (*StaticSource)(nil)

// NewStaticSource parses a table keyed by "FROM/TO".
func NewStaticSource(table map[string]float64) (*StaticSource, error) {
	s := &StaticSource{
		rates: make(map[pair]decimal.Decimal, len(table)*2),
		now:   time.Now,
	}

	explicit := make(map[pair]bool, len(table))
	for key, value := range table {
		p, err := parsePair(key)
		if err != nil {
			return nil, err
		}
		if value <= 0 {
			return nil, fmt.Errorf("static rate %s must be positive, got %v", key, value)
		}
		s.rates[p] = decimal.NewFromFloat(value)
		explicit[p] = true
	}

	for p := range explicit {
		inverse := pair{from: p.to, to: p.from}
		if explicit[inverse] {
			continue
		}
		s.rates[inverse] = decimal.NewFromInt(1).DivRound(s.rates[p], 8)
	}

	return s, nil
}

// FetchRate looks up the from->to pair.
func (s *StaticSource) FetchRate(ctx context.Context, from, to money.Code, asOf *time.Time) (currency.Quote, error) {
	if err := ctx.Err(); err != nil {
		return currency.Quote{}, currency.NewRateFetchError(from, to, asOf, err)
	}

	value, ok := s.rates[pair{from: from, to: to}]
	if !ok {
		return currency.Quote{}, currency.NewRateFetchError(from, to, asOf, fmt.Errorf("no static rate configured"))
	}

	at := s.now().UTC()
	if asOf != nil {
		at = *asOf
	}
	return currency.Quote{Rate: value, AsOf: at}, nil
}

// Len returns the number of pairs served, inverses included.
func (s *StaticSource) Len() int {
	return len(s.rates)
}

func parsePair(key string) (pair, error) {
	parts := strings.Split(key, "/")
	if len(parts) != 2 {
		return pair{}, fmt.Errorf("static rate key %q must look like USD/EUR", key)
	}
	from, err := money.ParseCode(parts[0])
	if err != nil {
		return pair{}, err
	}
	to, err := money.ParseCode(parts[1])
	if err != nil {
		return pair{}, err
	}
	if from == to {
		return pair{}, fmt.Errorf("static rate key %q maps a currency to itself", key)
	}
	return pair{from: from, to: to}, nil
}
