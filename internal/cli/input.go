package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/eshaffer321/invoice-reconciler/internal/api/dto"
)

// ErrNoRequests indicates an input without any invoice to reconcile.
var ErrNoRequests = errors.New("input contains no reconcile requests")

// OpenInput opens path for reading, or stdin for "-".
func OpenInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

// ReadRequests decodes one of three shapes: a single request object, a
// JSON array of requests, or an object with a "requests" array (the batch
// endpoint body).
func ReadRequests(r io.Reader) ([]dto.ReconcileRequest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrNoRequests
	}

	if data[0] == '[' {
		var list []dto.ReconcileRequest
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode request list: %w", err)
		}
		if len(list) == 0 {
			return nil, ErrNoRequests
		}
		return list, nil
	}

	var probe struct {
		Requests []dto.ReconcileRequest `json:"requests"`
		Invoice  json.RawMessage        `json:"invoice"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	if len(probe.Requests) > 0 {
		return probe.Requests, nil
	}
	if len(probe.Invoice) == 0 {
		return nil, ErrNoRequests
	}

	var single dto.ReconcileRequest
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return []dto.ReconcileRequest{single}, nil
}
