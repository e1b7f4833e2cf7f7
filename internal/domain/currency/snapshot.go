package currency

import (
	"context"
	"sync"
	"time"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/money"
)

// Snapshot pins every rate it resolves for its own lifetime, so a single
// reconciliation never sees two different rates for the same pair even if
// the shared cache expires midway.
type Snapshot struct {
	provider RateProvider

	mu    sync.Mutex
	rates map[CacheKey]ExchangeRate
}

var _ RateProvider = (*Snapshot)(nil)

// NewSnapshot wraps provider with a per-call memo.
func NewSnapshot(provider RateProvider) *Snapshot {
	return &Snapshot{
		provider: provider,
		rates:    make(map[CacheKey]ExchangeRate),
	}
}

// Rate returns the pinned rate for the pair, resolving it on first use.
func (s *Snapshot) Rate(ctx context.Context, from, to money.Code, asOf *time.Time) (ExchangeRate, error) {
	key := NewCacheKey(from, to, asOf)

	s.mu.Lock()
	rate, ok := s.rates[key]
	s.mu.Unlock()
	if ok {
		return rate, nil
	}

	rate, err := s.provider.Rate(ctx, from, to, asOf)
	if err != nil {
		return ExchangeRate{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if pinned, ok := s.rates[key]; ok {
		return pinned, nil
	}
	s.rates[key] = rate
	return rate, nil
}

// Pairs returns the number of distinct pairs pinned so far.
func (s *Snapshot) Pairs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rates)
}
