package alpha

import (
	"context"
	"errors"
	"fmt"
	"time"

	"insiderAlpha/internal/domain"
	"insiderAlpha/internal/ports"
)

// maxForwardSearchDays bounds the walk from a calendar date to the next
// trading day. A requested date more than this many days from any stored
// close is a genuine gap in the series, not a weekend or holiday.
const maxForwardSearchDays = 5

// Calculator computes forward excess returns for single trades against the
// benchmark over fixed horizons.
type Calculator struct {
	prices    ports.PriceSource
	benchmark string
}

// NewCalculator creates a new alpha calculator.
func NewCalculator(prices ports.PriceSource, benchmark string) (*Calculator, error) {
	if prices == nil {
		return nil, fmt.Errorf("price source is required for alpha calculator")
	}
	if benchmark == "" {
		return nil, fmt.Errorf("benchmark symbol is required for alpha calculator")
	}
	return &Calculator{prices: prices, benchmark: benchmark}, nil
}

// Compute calculates the alpha sample for one trade over one horizon.
//
// insiderReturn = (close[t+h] - close[t]) / close[t], with both closes
// resolved to the first trading day on or after the requested date. For
// sells the excess return is sign-flipped (alpha = benchmark - insider) so
// that avoiding a subsequent decline scores positive, symmetric with buys.
//
// Returns ErrInsufficientHistory when the horizon extends beyond the latest
// known close for either series — a retry-later condition, not a data
// error. A hole inside an otherwise covered window is ErrInconsistentSeries.
func (c *Calculator) Compute(ctx context.Context, trade *domain.Trade, h domain.Horizon) (*domain.AlphaSample, error) {
	start := trade.TradeDate
	end := start.AddDate(0, 0, h.Days())

	for _, symbol := range []string{trade.Symbol, c.benchmark} {
		latest, err := c.prices.LatestDay(ctx, symbol)
		if err != nil {
			if errors.Is(err, ports.ErrPriceNotAvailable) {
				return nil, fmt.Errorf("no price series for %s: %w", symbol, ports.ErrInsufficientHistory)
			}
			return nil, fmt.Errorf("failed to resolve latest close day for %s: %w", symbol, err)
		}
		if end.After(latest) {
			return nil, fmt.Errorf("horizon %dd for trade %d ends %s, beyond latest %s close %s: %w",
				h.Days(), trade.ID, end.Format("2006-01-02"), symbol, latest.Format("2006-01-02"), ports.ErrInsufficientHistory)
		}
	}

	insiderStart, err := c.closeOnOrAfter(ctx, trade.Symbol, start)
	if err != nil {
		return nil, err
	}
	insiderEnd, err := c.closeOnOrAfter(ctx, trade.Symbol, end)
	if err != nil {
		return nil, err
	}
	benchStart, err := c.closeOnOrAfter(ctx, c.benchmark, start)
	if err != nil {
		return nil, err
	}
	benchEnd, err := c.closeOnOrAfter(ctx, c.benchmark, end)
	if err != nil {
		return nil, err
	}

	insiderReturn := (insiderEnd - insiderStart) / insiderStart
	benchmarkReturn := (benchEnd - benchStart) / benchStart

	// The single most important rule in the engine: a sell "wins" when the
	// stock underperforms the benchmark afterwards.
	alpha := insiderReturn - benchmarkReturn
	if trade.Side == domain.Sell {
		alpha = benchmarkReturn - insiderReturn
	}

	return &domain.AlphaSample{
		TradeID:         trade.ID,
		Horizon:         h,
		InsiderReturn:   insiderReturn,
		BenchmarkReturn: benchmarkReturn,
		Alpha:           alpha,
	}, nil
}

// closeOnOrAfter resolves day to the first trading day with a stored close,
// walking forward at most maxForwardSearchDays calendar days. The caller
// has already established that the series reaches past the window, so
// exhausting the walk means the series has a hole.
func (c *Calculator) closeOnOrAfter(ctx context.Context, symbol string, day time.Time) (float64, error) {
	for offset := 0; offset <= maxForwardSearchDays; offset++ {
		price, err := c.prices.GetClose(ctx, symbol, day.AddDate(0, 0, offset))
		if err == nil {
			return price, nil
		}
		if !errors.Is(err, ports.ErrPriceNotAvailable) {
			return 0, fmt.Errorf("failed to read close for %s: %w", symbol, err)
		}
	}
	return 0, fmt.Errorf("no %s close within %d days of %s: %w",
		symbol, maxForwardSearchDays, day.Format("2006-01-02"), ports.ErrInconsistentSeries)
}
