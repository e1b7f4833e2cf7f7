package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/invoice-reconciler/internal/api/dto"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/config"
)

const batchInput = `{"requests": [
	{
		"invoice": {"id": "inv-1", "currency": "USD",
			"line_items": [{"id": "i1", "description": "Copper pipe 15mm", "quantity": 12, "unit_price": "4.50"}]},
		"candidates": [{"id": "po-1", "currency": "USD",
			"line_items": [{"id": "p1", "description": "Copper pipe 15mm", "quantity": 12, "unit_price": "4.50"}]}]
	},
	{
		"invoice": {"id": "inv-2", "currency": "USD",
			"line_items": [{"id": "i1", "description": "Copper pipe 15mm", "quantity": 12, "unit_price": "4.50"}]},
		"candidates": [{"id": "po-2", "currency": "USD",
			"line_items": [{"id": "p1", "description": "Brass elbow joint", "quantity": 3, "unit_price": "19.00"}]}]
	},
	{
		"invoice": {"id": "inv-3", "date": "yesterday", "currency": "USD", "line_items": []},
		"candidates": []
	}
]}`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Rates.Provider = config.RateProviderStatic
	cfg.Rates.Static = map[string]float64{"EUR/USD": 1.10}
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "audit.db")
	return cfg
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseReconcileFlags(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		flags, err := ParseReconcileFlags(nil, io.Discard)

		require.NoError(t, err)
		assert.Equal(t, "-", flags.Input)
		assert.Empty(t, flags.ConfigPath)
		assert.False(t, flags.NoAudit)
		assert.False(t, flags.JSON)
	})

	t.Run("all flags", func(t *testing.T) {
		flags, err := ParseReconcileFlags([]string{
			"-config", "c.yaml", "-input", "in.json", "-no-audit", "-verbose", "-json",
		}, io.Discard)

		require.NoError(t, err)
		assert.Equal(t, &ReconcileFlags{
			ConfigPath: "c.yaml",
			Input:      "in.json",
			NoAudit:    true,
			Verbose:    true,
			JSON:       true,
		}, flags)
	})

	t.Run("unknown flag", func(t *testing.T) {
		_, err := ParseReconcileFlags([]string{"-bogus"}, io.Discard)
		assert.Error(t, err)
	})

	t.Run("stray arguments", func(t *testing.T) {
		_, err := ParseReconcileFlags([]string{"invoice.json"}, io.Discard)
		assert.ErrorContains(t, err, "unexpected arguments")
	})
}

func TestParseServeFlags(t *testing.T) {
	flags, err := ParseServeFlags([]string{"-port", "9090"}, io.Discard)

	require.NoError(t, err)
	assert.Equal(t, 9090, flags.Port)
}

func TestLoadConfig(t *testing.T) {
	t.Run("explicit bad file fails", func(t *testing.T) {
		path := writeInput(t, "matching:\n  pairing: sideways\n")

		_, err := LoadConfig(path)

		assert.ErrorContains(t, err, "matching.pairing")
	})

	t.Run("explicit missing file fails", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestReadRequests(t *testing.T) {
	single := `{"invoice": {"id": "inv-1"}, "candidates": []}`

	tests := []struct {
		name    string
		input   string
		wantIDs []string
		wantErr error
	}{
		{name: "single object", input: single, wantIDs: []string{"inv-1"}},
		{name: "array", input: "[" + single + "," + strings.Replace(single, "inv-1", "inv-2", 1) + "]", wantIDs: []string{"inv-1", "inv-2"}},
		{name: "batch body", input: `{"requests": [` + single + `]}`, wantIDs: []string{"inv-1"}},
		{name: "empty input", input: "  \n", wantErr: ErrNoRequests},
		{name: "empty array", input: "[]", wantErr: ErrNoRequests},
		{name: "unrelated object", input: `{"foo": 1}`, wantErr: ErrNoRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqs, err := ReadRequests(strings.NewReader(tt.input))

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			ids := make([]string, 0, len(reqs))
			for _, r := range reqs {
				ids = append(ids, r.Invoice.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}

	t.Run("malformed JSON", func(t *testing.T) {
		_, err := ReadRequests(strings.NewReader(`{"invoice":`))
		assert.ErrorContains(t, err, "decode")
	})
}

func TestRunReconcile_HumanOutput(t *testing.T) {
	// Arrange
	cfg := testConfig(t)
	flags := &ReconcileFlags{Input: writeInput(t, batchInput)}
	var stdout, stderr bytes.Buffer

	// Act
	err := RunReconcile(context.Background(), cfg, flags, &stdout, &stderr)

	// Assert
	assert.ErrorIs(t, err, ErrEntriesFailed)
	assert.Equal(t, 1, ExitCode(err))

	out := stdout.String()
	assert.Contains(t, out, "invoice-reconciler: 3 invoice(s) (audited)")
	assert.Regexp(t, `inv-1\s+AUTO_MATCHED\s+PO=po-1`, out)
	assert.Regexp(t, `inv-2\s+NO_MATCH`, out)
	assert.Contains(t, out, "No matching purchase orders found")
	assert.Regexp(t, `inv-3\s+ERROR\s+malformed request`, out)
	assert.Contains(t, out, "Summary: Reconciled=2 AutoMatched=1 Review=0 NoMatch=1 Errors=1")
	assert.FileExists(t, cfg.Storage.DatabasePath)
}

func TestRunReconcile_JSONOutput(t *testing.T) {
	cfg := testConfig(t)
	flags := &ReconcileFlags{Input: writeInput(t, batchInput), JSON: true, NoAudit: true}
	var stdout, stderr bytes.Buffer

	err := RunReconcile(context.Background(), cfg, flags, &stdout, &stderr)

	assert.ErrorIs(t, err, ErrEntriesFailed)
	var resp dto.BatchReconcileResponse
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	require.Len(t, resp.Results, 3)
	assert.Equal(t, 2, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, "auto_matched", resp.Results[0].Result.Decision)
	assert.Empty(t, resp.Results[0].Result.AuditID, "no audit ID without a store")
	assert.Equal(t, dto.ErrCodeBadRequest, resp.Results[2].Error.Code)
	assert.NoFileExists(t, cfg.Storage.DatabasePath)
}

func TestRunReconcile_AllSucceed(t *testing.T) {
	cfg := testConfig(t)
	input := `{
		"invoice": {"id": "inv-eu", "currency": "EUR",
			"line_items": [{"description": "Copper pipe 15mm", "quantity": 10, "unit_price": 10}]},
		"candidates": [{"id": "po-us", "currency": "USD",
			"line_items": [{"description": "Copper pipe 15mm", "quantity": 10, "unit_price": 11}]}]
	}`
	flags := &ReconcileFlags{Input: writeInput(t, input), NoAudit: true, Verbose: true}
	var stdout, stderr bytes.Buffer

	err := RunReconcile(context.Background(), cfg, flags, &stdout, &stderr)

	require.NoError(t, err)
	assert.Equal(t, 0, ExitCode(err))
	assert.Regexp(t, `inv-eu\s+AUTO_MATCHED\s+PO=po-us`, stdout.String())
	assert.Contains(t, stdout.String(), "rule tolerance:totalAmount [info]")
}

func TestRunReconcile_InputErrors(t *testing.T) {
	cfg := testConfig(t)

	err := RunReconcile(context.Background(), cfg, &ReconcileFlags{Input: filepath.Join(t.TempDir(), "missing.json")}, io.Discard, io.Discard)
	assert.ErrorContains(t, err, "open input")
	assert.Equal(t, 2, ExitCode(err))

	err = RunReconcile(context.Background(), cfg, &ReconcileFlags{Input: writeInput(t, "[]")}, io.Discard, io.Discard)
	assert.ErrorIs(t, err, ErrNoRequests)
}

func TestSummary(t *testing.T) {
	var s Summary
	s.Add(nil, errors.New("boom"))

	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, 1, s.Total())
}
