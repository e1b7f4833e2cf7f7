// Package rates provides the exchange rate sources used by the currency
// converter: an HTTP client for a Frankfurter-compatible API and a fixed
// table for offline use.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/currency"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/money"
)

// DefaultBaseURL is the public Frankfurter endpoint.
const DefaultBaseURL = "https://api.frankfurter.app"

// HTTPConfig holds HTTP source settings.
type HTTPConfig struct {
	BaseURL           string        // Default: DefaultBaseURL
	Timeout           time.Duration // Default: 10s, per request attempt
	MaxRetries        int           // Default: 2
	RequestsPerSecond float64       // Default: 5, 0 disables throttling
}

// DefaultHTTPConfig returns sensible defaults
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		BaseURL:           DefaultBaseURL,
		Timeout:           10 * time.Second,
		MaxRetries:        2,
		RequestsPerSecond: 5,
	}
}

// ratesResponse is the JSON body returned by the API.
type ratesResponse struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// HTTPSource fetches rates over HTTP.
type HTTPSource struct {
	baseURL string
	client  *retryablehttp.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ currency.RateSource = (*HTTPSource)(nil)

// NewHTTPSource creates an HTTP rate source.
func NewHTTPSource(config HTTPConfig, logger *slog.Logger) *HTTPSource {
	if logger == nil {
		logger = slog.Default()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}

	client := retryablehttp.NewClient()
	client.RetryMax = config.MaxRetries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = config.Timeout
	client.Logger = logger

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	return &HTTPSource{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		client:  client,
		limiter: limiter,
		logger:  logger,
	}
}

// FetchRate requests the from->to rate for asOf, or the latest rate when
// asOf is nil. Every failure is returned as a *currency.RateFetchError.
func (s *HTTPSource) FetchRate(ctx context.Context, from, to money.Code, asOf *time.Time) (currency.Quote, error) {
	quote, err := s.fetch(ctx, from, to, asOf)
	if err != nil {
		return currency.Quote{}, currency.NewRateFetchError(from, to, asOf, err)
	}
	return quote, nil
}

func (s *HTTPSource) fetch(ctx context.Context, from, to money.Code, asOf *time.Time) (currency.Quote, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return currency.Quote{}, fmt.Errorf("rate limiter: %w", err)
		}
	}

	endpoint := s.endpoint(from, to, asOf)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return currency.Quote{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	s.logger.Debug("fetching exchange rate", "from", from, "to", to, "url", endpoint)

	resp, err := s.client.Do(req)
	if err != nil {
		return currency.Quote{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return currency.Quote{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return currency.Quote{}, fmt.Errorf("decode response: %w", err)
	}

	value, ok := payload.Rates[string(to)]
	if !ok {
		return currency.Quote{}, fmt.Errorf("response has no rate for %s", to)
	}

	quote := currency.Quote{Rate: value, AsOf: time.Now().UTC()}
	if payload.Date != "" {
		if date, err := time.Parse(time.DateOnly, payload.Date); err == nil {
			quote.AsOf = date
		}
	}
	return quote, nil
}

func (s *HTTPSource) endpoint(from, to money.Code, asOf *time.Time) string {
	path := currency.LatestKey
	if asOf != nil {
		path = asOf.UTC().Format(time.DateOnly)
	}

	q := url.Values{}
	q.Set("from", string(from))
	q.Set("to", string(to))
	return fmt.Sprintf("%s/%s?%s", s.baseURL, path, q.Encode())
}
