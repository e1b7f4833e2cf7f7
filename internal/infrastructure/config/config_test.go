package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadExampleConfig(t *testing.T) {
	// The example config shipped at the repository root must always load
	cfg, err := Load("../../../config.example.yaml")
	if os.IsNotExist(err) {
		t.Skip("config.example.yaml not found")
	}

	require.NoError(t, err)
	assert.Equal(t, RateProviderStatic, cfg.Rates.Provider)
	assert.NotEmpty(t, cfg.Rates.Static)
	assert.NotEmpty(t, cfg.Rules)
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, 0.85, cfg.Matching.DescriptionThreshold)
	assert.Equal(t, 2.0, cfg.Matching.PriceTolerancePct)
	assert.Equal(t, 2.0, cfg.Matching.QuantityTolerancePct)
	assert.Equal(t, 0.90, cfg.Matching.ConfidenceThreshold)
	assert.Equal(t, 3, cfg.Matching.MaxAlternatives)
	assert.Equal(t, 3600, cfg.Rates.CacheTTLSeconds)
	assert.Equal(t, []RuleConfig{{Field: "totalAmount", TolerancePct: 2.0}}, cfg.Rules)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
matching:
  confidence_threshold: 0.95
  pairing: optimal
rules:
  - field: totalQuantity
    tolerance_pct: 0
  - field: totalAmount
    tolerance_pct: 1.5
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 0.95, cfg.Matching.ConfidenceThreshold)
	assert.Equal(t, PairingOptimal, cfg.Matching.Pairing)
	assert.Equal(t, 0.85, cfg.Matching.DescriptionThreshold)
	assert.Equal(t, RateProviderHTTP, cfg.Rates.Provider)
	require.Len(t, cfg.Rules, 2)
	assert.Equal(t, "totalQuantity", cfg.Rules[0].Field)
	assert.Equal(t, 1.5, cfg.Rules[1].TolerancePct)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "threshold out of range",
			content: "matching:\n  confidence_threshold: 1.5\n",
			wantErr: "confidence_threshold",
		},
		{
			name:    "unknown pairing",
			content: "matching:\n  pairing: random\n",
			wantErr: "matching.pairing",
		},
		{
			name:    "zero ttl",
			content: "rates:\n  cache_ttl_seconds: 0\n",
			wantErr: "cache_ttl_seconds",
		},
		{
			name:    "static provider without table",
			content: "rates:\n  provider: static\n",
			wantErr: "rates.static",
		},
		{
			name:    "negative rule tolerance",
			content: "rules:\n  - field: totalAmount\n    tolerance_pct: -1\n",
			wantErr: "rules[0].tolerance_pct",
		},
		{
			name:    "malformed yaml",
			content: "matching: [",
			wantErr: "parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RECONCILER_DB_PATH", "test.db")
	t.Setenv("RECONCILER_CONFIDENCE_THRESHOLD", "0.8")
	t.Setenv("RECONCILER_MAX_ALTERNATIVES", "5")
	t.Setenv("RATES_PROVIDER", "static")
	t.Setenv("RECONCILER_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg := LoadFromEnv()

	assert.Equal(t, "test.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 0.8, cfg.Matching.ConfidenceThreshold)
	assert.Equal(t, 5, cfg.Matching.MaxAlternatives)
	assert.Equal(t, RateProviderStatic, cfg.Rates.Provider)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.API.AllowedOrigins)
}

func TestLoadFromEnv_IgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("RECONCILER_PORT", "not-a-port")

	cfg := LoadFromEnv()

	assert.Equal(t, 8080, cfg.API.Port)
}

func TestLoadOrEnv_FallbackToEnv(t *testing.T) {
	t.Setenv("RECONCILER_DB_PATH", "fallback.db")

	cfg := LoadOrEnvWithPath("nonexistent.yaml")

	assert.NotNil(t, cfg)
	assert.Equal(t, "fallback.db", cfg.Storage.DatabasePath)
}

func TestEnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "expanded.db")
	t.Setenv("TEST_RATES_URL", "http://rates.internal")

	path := writeConfig(t, `
storage:
  database_path: "${TEST_DB_PATH}"
rates:
  base_url: "${TEST_RATES_URL}"
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "expanded.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "http://rates.internal", cfg.Rates.BaseURL)
}
