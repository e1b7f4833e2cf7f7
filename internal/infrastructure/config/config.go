// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml), layered over the defaults
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	threshold := cfg.Matching.ConfidenceThreshold
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rate provider names.
const (
	RateProviderHTTP   = "http"
	RateProviderStatic = "static"
)

// Pairing strategy names.
const (
	PairingGreedy  = "greedy"
	PairingOptimal = "optimal"
)

// Config represents the entire application configuration
type Config struct {
	Matching      MatchingConfig      `yaml:"matching"`
	Rates         RatesConfig         `yaml:"rates"`
	Rules         []RuleConfig        `yaml:"rules"`
	Storage       StorageConfig       `yaml:"storage"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// MatchingConfig holds line item scoring and candidate ranking settings.
// Tolerances are percentages, thresholds are fractions in [0,1].
type MatchingConfig struct {
	DescriptionThreshold float64 `yaml:"description_threshold"`
	PriceTolerancePct    float64 `yaml:"price_tolerance_pct"`
	QuantityTolerancePct float64 `yaml:"quantity_tolerance_pct"`
	ConfidenceThreshold  float64 `yaml:"confidence_threshold"`
	ReviewThreshold      float64 `yaml:"review_threshold"`
	MaxAlternatives      int     `yaml:"max_alternatives"`
	Pairing              string  `yaml:"pairing"`
	ClampItemScores      bool    `yaml:"clamp_item_scores"`
	CompletenessPenalty  bool    `yaml:"completeness_penalty"`
	ConvertAtInvoiceDate bool    `yaml:"convert_at_invoice_date"`
}

// RatesConfig holds exchange rate source settings
type RatesConfig struct {
	Provider          string             `yaml:"provider"`
	BaseURL           string             `yaml:"base_url"`
	TimeoutSeconds    int                `yaml:"timeout_seconds"`
	CacheTTLSeconds   int                `yaml:"cache_ttl_seconds"`
	MaxRetries        int                `yaml:"max_retries"`
	RequestsPerSecond float64            `yaml:"requests_per_second"`
	Static            map[string]float64 `yaml:"static"`
}

// RuleConfig declares one tolerance rule
type RuleConfig struct {
	Field        string  `yaml:"field"`
	TolerancePct float64 `yaml:"tolerance_pct"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// APIConfig holds HTTP server settings
type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() *Config {
	return &Config{
		Matching: MatchingConfig{
			DescriptionThreshold: 0.85,
			PriceTolerancePct:    2.0,
			QuantityTolerancePct: 2.0,
			ConfidenceThreshold:  0.90,
			ReviewThreshold:      0.70,
			MaxAlternatives:      3,
			Pairing:              PairingGreedy,
		},
		Rates: RatesConfig{
			Provider:          RateProviderHTTP,
			BaseURL:           "https://api.frankfurter.app",
			TimeoutSeconds:    10,
			CacheTTLSeconds:   3600,
			MaxRetries:        2,
			RequestsPerSecond: 5,
		},
		Rules: []RuleConfig{
			{Field: "totalAmount", TolerancePct: 2.0},
		},
		Storage: StorageConfig{
			DatabasePath: "reconciler.db",
		},
		API: APIConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "console",
			},
		},
	}
}

// Load reads and parses the config file. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${RATES_BASE_URL})
	expanded := os.ExpandEnv(string(data))

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := Defaults()

	cfg.Matching.DescriptionThreshold = getEnvFloat("RECONCILER_DESCRIPTION_THRESHOLD", cfg.Matching.DescriptionThreshold)
	cfg.Matching.PriceTolerancePct = getEnvFloat("RECONCILER_PRICE_TOLERANCE_PCT", cfg.Matching.PriceTolerancePct)
	cfg.Matching.QuantityTolerancePct = getEnvFloat("RECONCILER_QUANTITY_TOLERANCE_PCT", cfg.Matching.QuantityTolerancePct)
	cfg.Matching.ConfidenceThreshold = getEnvFloat("RECONCILER_CONFIDENCE_THRESHOLD", cfg.Matching.ConfidenceThreshold)
	cfg.Matching.ReviewThreshold = getEnvFloat("RECONCILER_REVIEW_THRESHOLD", cfg.Matching.ReviewThreshold)
	cfg.Matching.MaxAlternatives = getEnvInt("RECONCILER_MAX_ALTERNATIVES", cfg.Matching.MaxAlternatives)
	cfg.Matching.Pairing = getEnv("RECONCILER_PAIRING", cfg.Matching.Pairing)

	cfg.Rates.Provider = getEnv("RATES_PROVIDER", cfg.Rates.Provider)
	cfg.Rates.BaseURL = getEnv("RATES_BASE_URL", cfg.Rates.BaseURL)
	cfg.Rates.TimeoutSeconds = getEnvInt("RATES_TIMEOUT_SECONDS", cfg.Rates.TimeoutSeconds)
	cfg.Rates.CacheTTLSeconds = getEnvInt("RATES_CACHE_TTL_SECONDS", cfg.Rates.CacheTTLSeconds)

	cfg.Storage.DatabasePath = getEnv("RECONCILER_DB_PATH", cfg.Storage.DatabasePath)
	cfg.API.Port = getEnvInt("RECONCILER_PORT", cfg.API.Port)
	if origins := os.Getenv("RECONCILER_ALLOWED_ORIGINS"); origins != "" {
		cfg.API.AllowedOrigins = strings.Split(origins, ",")
	}

	cfg.Observability.Logging.Level = getEnv("LOG_LEVEL", cfg.Observability.Logging.Level)
	cfg.Observability.Logging.Format = getEnv("LOG_FORMAT", cfg.Observability.Logging.Format)

	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	m := c.Matching
	check(inRange(m.DescriptionThreshold, 0, 1), "matching.description_threshold must be in [0,1], got %v", m.DescriptionThreshold)
	check(inRange(m.ConfidenceThreshold, 0, 1), "matching.confidence_threshold must be in [0,1], got %v", m.ConfidenceThreshold)
	check(inRange(m.ReviewThreshold, 0, m.ConfidenceThreshold), "matching.review_threshold must be in [0,confidence_threshold], got %v", m.ReviewThreshold)
	check(inRange(m.PriceTolerancePct, 0, 100), "matching.price_tolerance_pct must be in [0,100], got %v", m.PriceTolerancePct)
	check(inRange(m.QuantityTolerancePct, 0, 100), "matching.quantity_tolerance_pct must be in [0,100], got %v", m.QuantityTolerancePct)
	check(m.MaxAlternatives >= 0, "matching.max_alternatives must not be negative, got %d", m.MaxAlternatives)
	check(m.Pairing == PairingGreedy || m.Pairing == PairingOptimal, "matching.pairing must be %q or %q, got %q", PairingGreedy, PairingOptimal, m.Pairing)

	r := c.Rates
	check(r.Provider == RateProviderHTTP || r.Provider == RateProviderStatic, "rates.provider must be %q or %q, got %q", RateProviderHTTP, RateProviderStatic, r.Provider)
	check(r.CacheTTLSeconds > 0, "rates.cache_ttl_seconds must be positive, got %d", r.CacheTTLSeconds)
	check(r.TimeoutSeconds >= 0, "rates.timeout_seconds must not be negative, got %d", r.TimeoutSeconds)
	check(r.MaxRetries >= 0, "rates.max_retries must not be negative, got %d", r.MaxRetries)
	if r.Provider == RateProviderStatic {
		check(len(r.Static) > 0, "rates.static must list at least one pair when provider is %q", RateProviderStatic)
	}

	for i, rule := range c.Rules {
		check(rule.Field != "", "rules[%d].field is required", i)
		check(inRange(rule.TolerancePct, 0, 100), "rules[%d].tolerance_pct must be in [0,100], got %v", i, rule.TolerancePct)
	}

	check(c.API.Port > 0 && c.API.Port < 65536, "api.port must be a valid port, got %d", c.API.Port)

	return errors.Join(errs...)
}

func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.Atoi(val); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvFloat retrieves a float environment variable with a fallback default
func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.ParseFloat(val, 64); err == nil {
			return result
		}
	}
	return fallback
}
