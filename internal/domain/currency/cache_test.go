package currency

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/money"
)

func TestMemoryRateCache_GetSetExpire(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := NewMemoryRateCache(10*time.Second, clock)
	key := NewCacheKey(money.USD, money.EUR, nil)
	rate := ExchangeRate{From: money.USD, To: money.EUR, Rate: decimal.RequireFromString("0.9")}

	_, found := cache.Get(key)
	assert.False(t, found)

	cache.Set(key, rate)
	got, found := cache.Get(key)
	require.True(t, found)
	assert.True(t, got.Rate.Equal(rate.Rate))

	clock.Advance(10 * time.Second)
	_, found = cache.Get(key)
	assert.False(t, found, "entry expires exactly at TTL")
	assert.Equal(t, 1, cache.Size())
}

func TestMemoryRateCache_Clear(t *testing.T) {
	cache := NewMemoryRateCache(time.Minute, nil)
	cache.Set(NewCacheKey(money.USD, money.EUR, nil), ExchangeRate{Rate: decimal.NewFromInt(1)})
	cache.Set(NewCacheKey(money.USD, money.GBP, nil), ExchangeRate{Rate: decimal.NewFromInt(1)})
	require.Equal(t, 2, cache.Size())

	cache.Clear()

	assert.Equal(t, 0, cache.Size())
}

func TestMemoryRateCache_DefaultTTL(t *testing.T) {
	cache := NewMemoryRateCache(0, nil)
	assert.Equal(t, DefaultTTL, cache.TTL())
}

func TestNewCacheKey(t *testing.T) {
	date := time.Date(2025, 3, 9, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, "USD:EUR:latest", NewCacheKey(money.USD, money.EUR, nil).String())
	assert.Equal(t, "USD:EUR:2025-03-09", NewCacheKey(money.USD, money.EUR, &date).String())
}

func TestSnapshot_PinsFirstResolvedRate(t *testing.T) {
	provider := new(mockProvider)
	provider.On("Rate", mock.Anything, money.EUR, money.USD, mock.Anything).
		Return(ExchangeRate{From: money.EUR, To: money.USD, Rate: decimal.RequireFromString("1.10")}, nil).Once()
	provider.On("Rate", mock.Anything, money.EUR, money.USD, mock.Anything).
		Return(ExchangeRate{From: money.EUR, To: money.USD, Rate: decimal.RequireFromString("1.20")}, nil)

	snap := NewSnapshot(provider)
	first, err := snap.Rate(context.Background(), money.EUR, money.USD, nil)
	require.NoError(t, err)
	second, err := snap.Rate(context.Background(), money.EUR, money.USD, nil)
	require.NoError(t, err)

	assert.Equal(t, "1.1", first.Rate.String())
	assert.Equal(t, "1.1", second.Rate.String())
	assert.Equal(t, 1, snap.Pairs())
	provider.AssertNumberOfCalls(t, "Rate", 1)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Rate(ctx context.Context, from, to money.Code, asOf *time.Time) (ExchangeRate, error) {
	args := m.Called(ctx, from, to, asOf)
	return args.Get(0).(ExchangeRate), args.Error(1)
}
