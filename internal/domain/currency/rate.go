// Package currency converts monetary amounts between the supported
// currencies, caching exchange rates fetched from an external source.
//
// Example usage:
//
//	cache := currency.NewMemoryRateCache(time.Hour, nil)
//	conv := currency.NewConverter(source, cache, currency.DefaultConverterConfig(), logger)
//	eur, err := conv.Convert(ctx, decimal.NewFromInt(100), money.USD, money.EUR, nil)
package currency

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/money"
)

// LatestKey is the as-of component of a cache key when no date was requested.
const LatestKey = "latest"

// ExchangeRate is the price of one unit of From expressed in To.
type ExchangeRate struct {
	From      money.Code      `json:"from"`
	To        money.Code      `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	Timestamp time.Time       `json:"timestamp"`
}

// Quote is what a RateSource returns for a single pair.
type Quote struct {
	Rate decimal.Decimal
	AsOf time.Time
}

// RateSource fetches exchange rates from an external service. asOf is nil
// for the latest available rate.
type RateSource interface {
	FetchRate(ctx context.Context, from, to money.Code, asOf *time.Time) (Quote, error)
}

// RateProvider resolves an exchange rate, from cache or source.
type RateProvider interface {
	Rate(ctx context.Context, from, to money.Code, asOf *time.Time) (ExchangeRate, error)
}

// CacheKey identifies a cached rate.
type CacheKey struct {
	From money.Code
	To   money.Code
	AsOf string
}

// NewCacheKey builds the key for a pair on a given date, or "latest".
func NewCacheKey(from, to money.Code, asOf *time.Time) CacheKey {
	key := CacheKey{From: from, To: to, AsOf: LatestKey}
	if asOf != nil {
		key.AsOf = asOf.UTC().Format(time.DateOnly)
	}
	return key
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.From, k.To, k.AsOf)
}

// Apply converts amount with rate, rounded to money.Precision.
func Apply(amount decimal.Decimal, rate ExchangeRate) (money.Money, error) {
	return money.New(amount.Mul(rate.Rate), rate.To)
}

// RateFetchError reports that a rate could not be obtained from the source.
// The converter never retries; callers may retry the whole operation.
type RateFetchError struct {
	From money.Code
	To   money.Code
	AsOf string
	Err  error
}

// NewRateFetchError wraps err for the given pair.
func NewRateFetchError(from, to money.Code, asOf *time.Time, err error) *RateFetchError {
	return &RateFetchError{
		From: from,
		To:   to,
		AsOf: NewCacheKey(from, to, asOf).AsOf,
		Err:  err,
	}
}

func (e *RateFetchError) Error() string {
	return fmt.Sprintf("fetch exchange rate %s->%s (%s): %v", e.From, e.To, e.AsOf, e.Err)
}

func (e *RateFetchError) Unwrap() error {
	return e.Err
}
