package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"insiderAlpha/internal/domain"
	"insiderAlpha/internal/ports"
)

// dateFormat is the wire format for dates in disclosure filings.
const dateFormat = "2006-01-02"

// Normalizer converts raw disclosure records into canonical domain Trades.
// Normalization is a pure function of the raw record: applying it twice to
// the same input yields identical Trades, which makes re-ingestion after a
// partial failure safe.
type Normalizer struct {
	lookback time.Duration
	now      func() time.Time
}

// Config holds configuration for the normalizer.
type Config struct {
	LookbackYears int              // Trades older than this are rejected; <= 0 disables the cut
	Now           func() time.Time // Clock override for tests; defaults to time.Now
}

// New creates a new normalizer.
func New(cfg Config) *Normalizer {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	var lookback time.Duration
	if cfg.LookbackYears > 0 {
		lookback = time.Duration(cfg.LookbackYears) * 365 * 24 * time.Hour
	}
	return &Normalizer{lookback: lookback, now: now}
}

// Normalize converts one raw disclosure row into a canonical Trade.
//
// Returns ErrMalformedRecord when shares or price are not positive, dates
// are unparsable or out of order, or the transaction code is not an
// open-market buy ("P") or sell ("S"). Returns ErrStaleDisclosure when the
// trade falls outside the lookback window. Both are drop-and-log
// conditions; neither reaches aggregation.
func (n *Normalizer) Normalize(raw ports.RawDisclosure) (*domain.Trade, error) {
	var side domain.TradeSide
	switch strings.TrimSpace(raw.TransactionCode) {
	case "P":
		side = domain.Buy
	case "S":
		side = domain.Sell
	default:
		// A (grants), M (option exercises), G (gifts) and the rest carry no
		// open-market price signal.
		return nil, fmt.Errorf("unsupported transaction code %q: %w", raw.TransactionCode, ports.ErrMalformedRecord)
	}

	shares, err := strconv.ParseFloat(strings.TrimSpace(raw.Shares), 64)
	if err != nil {
		return nil, fmt.Errorf("unparsable share count %q: %w", raw.Shares, ports.ErrMalformedRecord)
	}
	if shares <= 0 || shares != math.Trunc(shares) {
		return nil, fmt.Errorf("share count must be a positive whole number, got %q: %w", raw.Shares, ports.ErrMalformedRecord)
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(raw.PricePerShare), 64)
	if err != nil {
		return nil, fmt.Errorf("unparsable price per share %q: %w", raw.PricePerShare, ports.ErrMalformedRecord)
	}
	if price <= 0 {
		return nil, fmt.Errorf("price per share must be positive, got %q: %w", raw.PricePerShare, ports.ErrMalformedRecord)
	}

	tradeDate, err := parseDate(raw.TransactionDate)
	if err != nil {
		return nil, fmt.Errorf("unparsable transaction date %q: %w", raw.TransactionDate, ports.ErrMalformedRecord)
	}
	filingDate, err := parseDate(raw.FilingDate)
	if err != nil {
		return nil, fmt.Errorf("unparsable filing date %q: %w", raw.FilingDate, ports.ErrMalformedRecord)
	}
	if filingDate.Before(tradeDate) {
		return nil, fmt.Errorf("filing date %s precedes trade date %s: %w", raw.FilingDate, raw.TransactionDate, ports.ErrMalformedRecord)
	}

	if n.lookback > 0 && n.now().Sub(tradeDate) > n.lookback {
		return nil, fmt.Errorf("trade dated %s is outside the lookback window: %w", raw.TransactionDate, ports.ErrStaleDisclosure)
	}

	if strings.TrimSpace(raw.InsiderID) == "" || strings.TrimSpace(raw.Symbol) == "" {
		return nil, fmt.Errorf("missing insider ID or symbol: %w", ports.ErrMalformedRecord)
	}

	return &domain.Trade{
		InsiderID:       strings.TrimSpace(raw.InsiderID),
		InsiderName:     strings.TrimSpace(raw.InsiderName),
		Symbol:          strings.ToUpper(strings.TrimSpace(raw.Symbol)),
		Side:            side,
		Shares:          int64(shares),
		PricePerShare:   price,
		AmountUSD:       shares * price,
		TradeDate:       tradeDate,
		FilingDate:      filingDate,
		AccessionNumber: strings.TrimSpace(raw.AccessionNumber),
	}, nil
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateFormat, strings.TrimSpace(s), time.UTC)
}
