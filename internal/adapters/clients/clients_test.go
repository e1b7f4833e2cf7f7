package clients

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/invoice-reconciler/internal/adapters/rates"
	"github.com/eshaffer321/invoice-reconciler/internal/application/service"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/documents"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/money"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/config"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/logging"
)

func staticConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Rates.Provider = config.RateProviderStatic
	cfg.Rates.Static = map[string]float64{"EUR/USD": 1.10}
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "audit.db")
	return cfg
}

func TestNewClients_Success(t *testing.T) {
	// Arrange
	cfg := staticConfig(t)

	// Act
	clients, err := NewClients(cfg, logging.Discard(), Options{})

	// Assert
	require.NoError(t, err)
	defer clients.Close()
	assert.NotNil(t, clients.Converter)
	assert.NotNil(t, clients.Matcher)
	assert.Len(t, clients.Rules.Rules(), 1)
	assert.NotNil(t, clients.Store)
	assert.NotNil(t, clients.Service)
}

func TestNewClients_NoAudit(t *testing.T) {
	cfg := staticConfig(t)

	clients, err := NewClients(cfg, logging.Discard(), Options{NoAudit: true})

	require.NoError(t, err)
	assert.Nil(t, clients.Store)
	assert.NoError(t, clients.Close())
	assert.NoFileExists(t, cfg.Storage.DatabasePath)
}

func TestNewClients_EndToEnd(t *testing.T) {
	cfg := staticConfig(t)
	clients, err := NewClients(cfg, logging.Discard(), Options{})
	require.NoError(t, err)
	defer clients.Close()

	item := func(id string, price money.Money) documents.LineItem {
		total := money.Money{Amount: price.Amount.Mul(decimal.NewFromInt(10)), Currency: price.Currency}
		return documents.LineItem{ID: id, Description: "Steel bolts M8", Quantity: 10, UnitPrice: price, Total: total}
	}
	inv := documents.Invoice{
		ID:        "inv-eu",
		Supplier:  documents.Supplier{ID: "sup-1", Name: "Bolt GmbH"},
		LineItems: []documents.LineItem{item("i1", money.MustNew("10", money.EUR))},
		Total:     money.MustNew("100", money.EUR),
		Currency:  money.EUR,
	}
	po := documents.PurchaseOrder{
		ID:        "po-us",
		LineItems: []documents.LineItem{item("p1", money.MustNew("11", money.USD))},
		Total:     money.MustNew("110", money.USD),
		Currency:  money.USD,
		Status:    documents.POStatusOpen,
	}

	outcome, err := clients.Service.Reconcile(context.Background(), service.Request{
		Invoice:    inv,
		Candidates: []documents.PurchaseOrder{po},
	})

	require.NoError(t, err)
	assert.Equal(t, service.DecisionAutoMatched, outcome.Decision)
	assert.Equal(t, 1, clients.Converter.CacheSize())

	stored, err := clients.Store.GetAudit(outcome.AuditID)
	require.NoError(t, err)
	assert.Equal(t, "po-us", stored.PurchaseOrderID)
}

func TestNewClients_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *config.Config)
		wantErr string
	}{
		{
			name:    "unknown rate provider",
			mutate:  func(cfg *config.Config) { cfg.Rates.Provider = "carrier-pigeon" },
			wantErr: "unknown rate provider",
		},
		{
			name:    "bad static table",
			mutate:  func(cfg *config.Config) { cfg.Rates.Static = map[string]float64{"USD-EUR": 0.9} },
			wantErr: "static rates",
		},
		{
			name:    "unknown pairing",
			mutate:  func(cfg *config.Config) { cfg.Matching.Pairing = "random" },
			wantErr: "unknown pairing strategy",
		},
		{
			name: "unknown rule field",
			mutate: func(cfg *config.Config) {
				cfg.Rules = []config.RuleConfig{{Field: "taxAmount", TolerancePct: 1}}
			},
			wantErr: "build rules",
		},
		{
			name:    "unopenable database",
			mutate:  func(cfg *config.Config) { cfg.Storage.DatabasePath = filepath.Join(cfg.Storage.DatabasePath, "missing", "audit.db") },
			wantErr: "open audit store",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := staticConfig(t)
			tt.mutate(cfg)

			_, err := NewClients(cfg, logging.Discard(), Options{})

			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNewRateSource(t *testing.T) {
	httpSource, err := NewRateSource(config.Defaults().Rates, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &rates.HTTPSource{}, httpSource)

	cfg := config.Defaults().Rates
	cfg.Provider = config.RateProviderStatic
	cfg.Static = map[string]float64{"USD/EUR": 0.92}
	staticSource, err := NewRateSource(cfg, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &rates.StaticSource{}, staticSource)
}

func TestPairingStrategy(t *testing.T) {
	greedy, err := PairingStrategy(config.PairingGreedy)
	require.NoError(t, err)
	assert.IsType(t, matcher.GreedyPairing{}, greedy)

	optimal, err := PairingStrategy(config.PairingOptimal)
	require.NoError(t, err)
	assert.IsType(t, matcher.OptimalPairing{}, optimal)
}

func TestMatcherConfig_ConvertsPercentages(t *testing.T) {
	cfg := config.Defaults().Matching
	cfg.PriceTolerancePct = 5
	cfg.CompletenessPenalty = true

	got := MatcherConfig(cfg)

	assert.InDelta(t, 0.05, got.PriceTolerance, 1e-12)
	assert.InDelta(t, 0.02, got.QuantityTolerance, 1e-12)
	assert.Equal(t, 0.85, got.DescriptionThreshold)
	assert.True(t, got.CompletenessPenalty)
	assert.Equal(t, matcher.DefaultConfig().MaxAlternatives, got.MaxAlternatives)
}
