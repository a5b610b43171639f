// Package edgar implements the ports.DisclosureSource interface against the
// SEC EDGAR full-text archives: ticker-to-CIK resolution via the public
// company_tickers.json map, filing discovery via the submissions index, and
// Form 4 ownershipDocument parsing.
package edgar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"insiderAlpha/internal/ports"
)

const (
	defaultArchiveBaseURL = "https://www.sec.gov"
	defaultDataBaseURL    = "https://data.sec.gov"
	defaultTimeout        = 30 * time.Second
	defaultRateLimit      = 5 // requests per second; SEC fair-access cap is 10
)

// Client implements the ports.DisclosureSource interface.
type Client struct {
	archiveBaseURL string
	dataBaseURL    string
	userAgent      string
	httpClient     *http.Client
	limiter        *rate.Limiter
	logger         ports.Logger

	mu          sync.Mutex
	cikBySymbol map[string]string // lazy-loaded ticker -> zero-padded CIK map
}

// Config holds configuration specific to the EDGAR adapter.
type Config struct {
	// UserAgent identifies the caller to the SEC, which rejects anonymous
	// clients. Format: "app-name/version contact@example.com".
	UserAgent         string
	Logger            ports.Logger
	RequestsPerSecond int
	Timeout           time.Duration
	ArchiveBaseURL    string // Override for tests
	DataBaseURL       string // Override for tests
}

// New creates a new EDGAR client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for EDGAR client")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user agent is required for EDGAR client: %w", ports.ErrConfigurationError)
	}
	archiveBaseURL := cfg.ArchiveBaseURL
	if archiveBaseURL == "" {
		archiveBaseURL = defaultArchiveBaseURL
	}
	dataBaseURL := cfg.DataBaseURL
	if dataBaseURL == "" {
		dataBaseURL = defaultDataBaseURL
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRateLimit
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		archiveBaseURL: archiveBaseURL,
		dataBaseURL:    dataBaseURL,
		userAgent:      cfg.UserAgent,
		httpClient:     &http.Client{Timeout: timeout},
		limiter:        rate.NewLimiter(rate.Limit(rps), rps),
		logger:         cfg.Logger,
	}, nil
}

// tickerEntry is one row of company_tickers.json.
type tickerEntry struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
}

// submissionsIndex is the slice of the submissions JSON the client needs.
type submissionsIndex struct {
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			FilingDate      []string `json:"filingDate"`
			Form            []string `json:"form"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// FetchDisclosures retrieves up to limit recent Form 4 transaction rows for
// the given issuer symbol, newest filings first. A filing that fails to
// download or parse is skipped with a warning; one bad filing never fails
// the whole fetch.
func (c *Client) FetchDisclosures(ctx context.Context, symbol string, limit int) ([]ports.RawDisclosure, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol must not be empty: %w", ports.ErrInvalidInput)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d: %w", limit, ports.ErrInvalidInput)
	}

	cik, err := c.resolveCIK(ctx, symbol)
	if err != nil {
		return nil, err
	}

	index, err := c.fetchSubmissions(ctx, cik)
	if err != nil {
		return nil, err
	}

	recent := index.Filings.Recent
	disclosures := make([]ports.RawDisclosure, 0)
	fetched := 0
	for i := range recent.Form {
		if recent.Form[i] != "4" {
			continue
		}
		if fetched >= limit {
			break
		}
		fetched++

		rows, err := c.fetchFiling(ctx, cik, recent.AccessionNumber[i], recent.PrimaryDocument[i], recent.FilingDate[i])
		if err != nil {
			if errors.Is(err, ports.ErrContextCanceled) {
				return nil, err
			}
			c.logger.Warn(ctx, "Skipping unreadable Form 4 filing", map[string]interface{}{
				"symbol": symbol, "accession": recent.AccessionNumber[i], "error": err.Error(),
			})
			continue
		}
		disclosures = append(disclosures, rows...)
	}

	c.logger.Info(ctx, "Fetched Form 4 disclosures", map[string]interface{}{
		"symbol": symbol, "filings": fetched, "transactions": len(disclosures),
	})
	return disclosures, nil
}

// resolveCIK maps a ticker to its zero-padded CIK, loading the SEC ticker
// map on first use and caching it for the client's lifetime.
func (c *Client) resolveCIK(ctx context.Context, symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cikBySymbol == nil {
		body, err := c.get(ctx, c.archiveBaseURL+"/files/company_tickers.json", "resolveCIK")
		if err != nil {
			return "", err
		}
		var entries map[string]tickerEntry
		if err := json.Unmarshal(body, &entries); err != nil {
			return "", fmt.Errorf("failed to decode company ticker map: %w", err)
		}
		c.cikBySymbol = make(map[string]string, len(entries))
		for _, e := range entries {
			c.cikBySymbol[strings.ToUpper(e.Ticker)] = fmt.Sprintf("%010d", e.CIK)
		}
		c.logger.Debug(ctx, "Loaded SEC ticker map", map[string]interface{}{"tickers": len(c.cikBySymbol)})
	}

	cik, ok := c.cikBySymbol[symbol]
	if !ok {
		return "", fmt.Errorf("no CIK known for ticker %s: %w", symbol, ports.ErrNotFound)
	}
	return cik, nil
}

// fetchSubmissions downloads the filing index for one issuer.
func (c *Client) fetchSubmissions(ctx context.Context, cik string) (*submissionsIndex, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/submissions/CIK%s.json", c.dataBaseURL, cik), "fetchSubmissions")
	if err != nil {
		return nil, err
	}
	index := &submissionsIndex{}
	if err := json.Unmarshal(body, index); err != nil {
		return nil, fmt.Errorf("failed to decode submissions index for CIK %s: %w", cik, err)
	}
	return index, nil
}

// fetchFiling downloads and parses one Form 4 primary document.
func (c *Client) fetchFiling(ctx context.Context, cik, accession, primaryDocument, filingDate string) ([]ports.RawDisclosure, error) {
	cikNum := strings.TrimLeft(cik, "0")
	accessionPath := strings.ReplaceAll(accession, "-", "")
	docURL := fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s", c.archiveBaseURL, cikNum, accessionPath, primaryDocument)

	body, err := c.get(ctx, docURL, "fetchFiling")
	if err != nil {
		return nil, err
	}
	return parseForm4(body, accession, filingDate)
}

// get performs a single rate-limited GET with the mandatory User-Agent.
func (c *Client) get(ctx context.Context, reqURL, operation string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s rate limit wait: %w", operation, ports.ErrContextCanceled)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s failed to build request: %w", operation, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s request canceled: %w", operation, ports.ErrContextCanceled)
		}
		return nil, fmt.Errorf("%s request failed: %w", operation, ports.ErrSourceUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%s failed to read response body: %w", operation, ports.ErrSourceUnavailable)
		}
		return data, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden:
		// The SEC responds 403 to clients exceeding the fair-access rate.
		return nil, fmt.Errorf("%s throttled (status %d): %w", operation, resp.StatusCode, ports.ErrRateLimited)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %s not found: %w", operation, reqURL, ports.ErrNotFound)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%s: EDGAR error (status %d): %w", operation, resp.StatusCode, ports.ErrSourceUnavailable)
	default:
		return nil, fmt.Errorf("%s: unexpected status %d: %w", operation, resp.StatusCode, ports.ErrUnknown)
	}
}
