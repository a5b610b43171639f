package eodfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jpillora/backoff"
	"golang.org/x/time/rate"

	"insiderAlpha/internal/domain"
	"insiderAlpha/internal/ports"
)

const (
	dateFormat        = "2006-01-02"
	defaultBaseURL    = "https://eodhd.com/api"
	defaultTimeout    = 30 * time.Second
	defaultRateLimit  = 10 // requests per second
	defaultMaxRetries = 3
)

// Client implements the ports.PriceFeed interface against an EODHD-style
// end-of-day price API. Requests are rate limited and transient failures
// are retried with jittered exponential backoff.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     ports.Logger
	maxRetries int
}

// Config holds configuration specific to the EOD feed adapter.
type Config struct {
	BaseURL           string
	APIKey            string
	Logger            ports.Logger
	RequestsPerSecond int           // Provider-side request budget
	Timeout           time.Duration // Per-request HTTP timeout
	MaxRetries        int           // Retries on transient failures
}

// New creates a new EOD feed client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for EOD feed client")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for EOD feed client: %w", ports.ErrConfigurationError)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRateLimit
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
		logger:     cfg.Logger,
		maxRetries: maxRetries,
	}, nil
}

// eodBar is one row of the provider's daily close payload.
type eodBar struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// FetchDailyCloses retrieves the daily close series for symbol over the
// inclusive [from, to] window.
func (c *Client) FetchDailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]domain.DailyClose, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol must not be empty: %w", ports.ErrInvalidInput)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("to %s precedes from %s: %w", to.Format(dateFormat), from.Format(dateFormat), ports.ErrInvalidInput)
	}

	params := url.Values{}
	params.Set("from", from.UTC().Format(dateFormat))
	params.Set("to", to.UTC().Format(dateFormat))
	params.Set("period", "d")
	params.Set("fmt", "json")
	params.Set("api_token", c.apiKey)
	reqURL := fmt.Sprintf("%s/eod/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	body, err := c.getWithRetry(ctx, reqURL, "FetchDailyCloses", symbol)
	if err != nil {
		return nil, err
	}

	var bars []eodBar
	if err := json.Unmarshal(body, &bars); err != nil {
		return nil, fmt.Errorf("failed to decode EOD payload for %s: %w", symbol, err)
	}

	closes := make([]domain.DailyClose, 0, len(bars))
	for _, bar := range bars {
		day, err := time.ParseInLocation(dateFormat, bar.Date, time.UTC)
		if err != nil {
			c.logger.Warn(ctx, "Skipping EOD bar with malformed date", map[string]interface{}{"symbol": symbol, "date": bar.Date})
			continue
		}
		if bar.Close <= 0 {
			c.logger.Warn(ctx, "Skipping EOD bar with non-positive close", map[string]interface{}{"symbol": symbol, "date": bar.Date, "close": bar.Close})
			continue
		}
		closes = append(closes, domain.DailyClose{Symbol: symbol, Day: day, Close: bar.Close})
	}
	c.logger.Debug(ctx, "Fetched daily closes", map[string]interface{}{"symbol": symbol, "count": len(closes)})
	return closes, nil
}

// getWithRetry performs a rate-limited GET, retrying transient failures
// (network errors, 429, 5xx) with jittered exponential backoff. Permanent
// failures are translated into ports errors immediately.
func (c *Client) getWithRetry(ctx context.Context, reqURL, operation, symbol string) ([]byte, error) {
	boff := &backoff.Backoff{Min: 500 * time.Millisecond, Max: 10 * time.Second, Jitter: true}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%s canceled during backoff: %w", operation, ports.ErrContextCanceled)
			case <-time.After(boff.Duration()):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s rate limit wait: %w", operation, ports.ErrContextCanceled)
		}

		body, retryable, err := c.getOnce(ctx, reqURL, operation, symbol)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
		c.logger.Warn(ctx, operation+": transient feed failure, will retry", map[string]interface{}{
			"symbol": symbol, "attempt": attempt + 1, "maxRetries": c.maxRetries, "error": err.Error(),
		})
	}
	return nil, fmt.Errorf("%s exhausted %d retries: %w", operation, c.maxRetries, lastErr)
}

// getOnce performs a single GET and classifies the outcome.
func (c *Client) getOnce(ctx context.Context, reqURL, operation, symbol string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%s failed to build request: %w", operation, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, false, fmt.Errorf("%s request canceled: %w", operation, ports.ErrContextCanceled)
		}
		return nil, true, fmt.Errorf("%s request failed: %w", operation, ports.ErrFeedUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, fmt.Errorf("%s failed to read response body: %w", operation, ports.ErrFeedUnavailable)
		}
		return data, false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("%s for %s: %w", operation, symbol, ports.ErrRateLimited)
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("%s: unknown symbol %s: %w", operation, symbol, ports.ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, fmt.Errorf("%s rejected (status %d), check API key: %w", operation, resp.StatusCode, ports.ErrConfigurationError)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("%s: provider error (status %d): %w", operation, resp.StatusCode, ports.ErrFeedUnavailable)
	default:
		return nil, false, fmt.Errorf("%s: unexpected status %d: %w", operation, resp.StatusCode, ports.ErrUnknown)
	}
}
