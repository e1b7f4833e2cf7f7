// Package clients provides centralized component initialization with
// dependency injection.
//
// Both binaries build the same graph from configuration: rate source, rate
// cache, converter, matcher, rule engine, audit store and the
// reconciliation service on top.
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	clients, err := clients.NewClients(cfg, logger, clients.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer clients.Close()
//	outcome, err := clients.Service.Reconcile(ctx, req)
package clients

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/eshaffer321/invoice-reconciler/internal/adapters/rates"
	"github.com/eshaffer321/invoice-reconciler/internal/application/service"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/currency"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/rules"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/config"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/logging"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/storage"
)

// Options adjusts how the graph is built.
type Options struct {
	NoAudit bool // Skip opening the audit database
}

// Clients holds all initialized components
type Clients struct {
	Converter *currency.Converter
	Matcher   *matcher.Matcher
	Rules     *rules.Engine
	Store     storage.Repository // nil when NoAudit
	Service   *service.ReconciliationService
}

// NewClients initializes all components from configuration.
// Returns error if the configuration names an unknown provider, strategy
// or rule field, or the audit database cannot be opened.
func NewClients(cfg *config.Config, logger *slog.Logger, opts Options) (*Clients, error) {
	if logger == nil {
		logger = slog.Default()
	}

	source, err := NewRateSource(cfg.Rates, logging.WithComponent(logger, "rates"))
	if err != nil {
		return nil, err
	}

	cache := currency.NewMemoryRateCache(time.Duration(cfg.Rates.CacheTTLSeconds)*time.Second, nil)
	converter := currency.NewConverter(source, cache, currency.ConverterConfig{
		FetchTimeout: time.Duration(cfg.Rates.TimeoutSeconds) * time.Second,
	}, logging.WithComponent(logger, "converter"))

	strategy, err := PairingStrategy(cfg.Matching.Pairing)
	if err != nil {
		return nil, err
	}
	m := matcher.NewMatcher(MatcherConfig(cfg.Matching), converter, strategy, logging.WithComponent(logger, "matcher"))

	defs := make([]rules.Definition, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		defs = append(defs, rules.Definition{Field: r.Field, TolerancePercent: r.TolerancePct})
	}
	engine, err := rules.FromConfig(defs)
	if err != nil {
		return nil, fmt.Errorf("build rules: %w", err)
	}

	c := &Clients{
		Converter: converter,
		Matcher:   m,
		Rules:     engine,
	}

	// A nil interface, not a typed nil, when auditing is off
	var audit storage.AuditRepository
	if !opts.NoAudit {
		store, err := storage.NewStorage(cfg.Storage.DatabasePath, logging.WithComponent(logger, "storage"))
		if err != nil {
			return nil, fmt.Errorf("open audit store: %w", err)
		}
		c.Store = store
		audit = store
	}

	svcConfig := service.DefaultConfig()
	svcConfig.ReviewThreshold = cfg.Matching.ReviewThreshold
	c.Service = service.NewReconciliationService(m, engine, converter, audit, svcConfig, logging.WithComponent(logger, "service"))

	return c, nil
}

// Close releases the audit store, if one was opened.
func (c *Clients) Close() error {
	if c.Store == nil {
		return nil
	}
	return c.Store.Close()
}

// NewRateSource builds the configured exchange rate source.
func NewRateSource(cfg config.RatesConfig, logger *slog.Logger) (currency.RateSource, error) {
	switch cfg.Provider {
	case config.RateProviderHTTP, "":
		return rates.NewHTTPSource(rates.HTTPConfig{
			BaseURL:           cfg.BaseURL,
			Timeout:           time.Duration(cfg.TimeoutSeconds) * time.Second,
			MaxRetries:        cfg.MaxRetries,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}, logger), nil
	case config.RateProviderStatic:
		source, err := rates.NewStaticSource(cfg.Static)
		if err != nil {
			return nil, fmt.Errorf("static rates: %w", err)
		}
		return source, nil
	default:
		return nil, fmt.Errorf("unknown rate provider %q", cfg.Provider)
	}
}

// PairingStrategy resolves a strategy name.
func PairingStrategy(name string) (matcher.PairingStrategy, error) {
	switch name {
	case config.PairingGreedy, "":
		return matcher.GreedyPairing{}, nil
	case config.PairingOptimal:
		return matcher.OptimalPairing{}, nil
	default:
		return nil, fmt.Errorf("unknown pairing strategy %q", name)
	}
}

// MatcherConfig converts configured percentages into matcher fractions.
func MatcherConfig(cfg config.MatchingConfig) matcher.Config {
	return matcher.Config{
		DescriptionThreshold: cfg.DescriptionThreshold,
		QuantityTolerance:    cfg.QuantityTolerancePct / 100,
		PriceTolerance:       cfg.PriceTolerancePct / 100,
		ConfidenceThreshold:  cfg.ConfidenceThreshold,
		MaxAlternatives:      cfg.MaxAlternatives,
		ClampItemScores:      cfg.ClampItemScores,
		CompletenessPenalty:  cfg.CompletenessPenalty,
		ConvertAtInvoiceDate: cfg.ConvertAtInvoiceDate,
	}
}
