package currency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/money"
)

// ConverterConfig holds converter settings.
type ConverterConfig struct {
	FetchTimeout time.Duration // Default: 10s, 0 disables
}

// DefaultConverterConfig returns sensible defaults
func DefaultConverterConfig() ConverterConfig {
	return ConverterConfig{
		FetchTimeout: 10 * time.Second,
	}
}

// Converter converts amounts between currencies using cached rates.
// It is safe for concurrent use.
type Converter struct {
	source RateSource
	cache  RateCache
	config ConverterConfig
	group  singleflight.Group
	logger *slog.Logger
}

var _ RateProvider = (*Converter)(nil)

// NewConverter creates a converter backed by source and cache.
func NewConverter(source RateSource, cache RateCache, config ConverterConfig, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{
		source: source,
		cache:  cache,
		config: config,
		logger: logger,
	}
}

// Convert expresses amount (denominated in from) in the to currency.
// Identical currencies return the amount untouched without consulting the
// cache or the source.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to money.Code, asOf *time.Time) (money.Money, error) {
	if from == to {
		return money.Money{Amount: amount, Currency: to}, nil
	}

	rate, err := c.Rate(ctx, from, to, asOf)
	if err != nil {
		return money.Money{}, err
	}
	return Apply(amount, rate)
}

// Rate returns the from->to rate, fetching and caching it on a miss.
// Concurrent misses on the same key share a single fetch that is not tied
// to any one caller's cancellation; each caller stops waiting when its own
// ctx is done. Identity rates carry no timestamp.
func (c *Converter) Rate(ctx context.Context, from, to money.Code, asOf *time.Time) (ExchangeRate, error) {
	if !from.Valid() || !to.Valid() {
		return ExchangeRate{}, fmt.Errorf("%w: %s->%s", money.ErrUnsupportedCurrency, from, to)
	}
	if from == to {
		return ExchangeRate{From: from, To: to, Rate: decimal.NewFromInt(1)}, nil
	}

	key := NewCacheKey(from, to, asOf)
	if rate, ok := c.cache.Get(key); ok {
		c.logger.Debug("rate cache hit", "key", key.String())
		return rate, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key.String(), func() (any, error) {
		// Another caller may have filled the entry while we waited.
		if rate, ok := c.cache.Get(key); ok {
			return rate, nil
		}
		return c.fetch(fetchCtx, key, asOf)
	})

	select {
	case <-ctx.Done():
		return ExchangeRate{}, NewRateFetchError(from, to, asOf, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return ExchangeRate{}, res.Err
		}
		if res.Shared {
			c.logger.Debug("rate fetch shared", "key", key.String())
		}
		return res.Val.(ExchangeRate), nil
	}
}

// ClearCache drops every cached rate. Calls already holding a rate keep it.
func (c *Converter) ClearCache() {
	c.cache.Clear()
	c.logger.Info("rate cache cleared")
}

// CacheSize returns the number of cached entries.
func (c *Converter) CacheSize() int {
	return c.cache.Size()
}

func (c *Converter) fetch(ctx context.Context, key CacheKey, asOf *time.Time) (ExchangeRate, error) {
	if c.config.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.FetchTimeout)
		defer cancel()
	}

	c.logger.Debug("fetching exchange rate", "key", key.String())

	quote, err := c.source.FetchRate(ctx, key.From, key.To, asOf)
	if err != nil {
		var fetchErr *RateFetchError
		if errors.As(err, &fetchErr) {
			return ExchangeRate{}, err
		}
		return ExchangeRate{}, NewRateFetchError(key.From, key.To, asOf, err)
	}
	if !quote.Rate.IsPositive() {
		return ExchangeRate{}, NewRateFetchError(key.From, key.To, asOf,
			fmt.Errorf("non-positive rate %s", quote.Rate))
	}

	rate := ExchangeRate{
		From:      key.From,
		To:        key.To,
		Rate:      quote.Rate,
		Timestamp: quote.AsOf,
	}
	c.cache.Set(key, rate)

	return rate, nil
}
