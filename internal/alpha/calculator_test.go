package alpha

import (
	"context"
	"fmt"
	"testing"
	"time"

	"insiderAlpha/internal/domain"
	"insiderAlpha/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dayFormat = "2006-01-02"

// stubPrices implements ports.PriceSource over an in-memory map.
type stubPrices struct {
	closes map[string]map[string]float64 // symbol -> day -> close
	latest map[string]time.Time
}

func newStubPrices() *stubPrices {
	return &stubPrices{
		closes: make(map[string]map[string]float64),
		latest: make(map[string]time.Time),
	}
}

func (s *stubPrices) add(symbol, day string, close float64) {
	if s.closes[symbol] == nil {
		s.closes[symbol] = make(map[string]float64)
	}
	s.closes[symbol][day] = close
	d, err := time.ParseInLocation(dayFormat, day, time.UTC)
	if err != nil {
		panic(err)
	}
	if d.After(s.latest[symbol]) {
		s.latest[symbol] = d
	}
}

// addRange fills every weekday in [from, to] with a constant close.
func (s *stubPrices) addRange(symbol, from, to string, close float64) {
	start, _ := time.ParseInLocation(dayFormat, from, time.UTC)
	end, _ := time.ParseInLocation(dayFormat, to, time.UTC)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		s.add(symbol, d.Format(dayFormat), close)
	}
}

func (s *stubPrices) GetClose(ctx context.Context, symbol string, day time.Time) (float64, error) {
	price, ok := s.closes[symbol][day.Format(dayFormat)]
	if !ok {
		return 0, fmt.Errorf("no close for %s on %s: %w", symbol, day.Format(dayFormat), ports.ErrPriceNotAvailable)
	}
	return price, nil
}

func (s *stubPrices) LatestDay(ctx context.Context, symbol string) (time.Time, error) {
	latest, ok := s.latest[symbol]
	if !ok {
		return time.Time{}, fmt.Errorf("no series for %s: %w", symbol, ports.ErrPriceNotAvailable)
	}
	return latest, nil
}

func testTrade(side domain.TradeSide) *domain.Trade {
	return &domain.Trade{
		ID:        42,
		InsiderID: "0001214156",
		Symbol:    "AAPL",
		Side:      side,
		TradeDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), // a Tuesday
	}
}

func TestCompute_SellAvoidingDeclineScoresPositive(t *testing.T) {
	prices := newStubPrices()
	// Stock declines 10% over the window while the benchmark stays flat.
	prices.addRange("AAPL", "2024-01-01", "2024-01-31", 100)
	prices.addRange("AAPL", "2024-02-01", "2024-03-15", 90)
	prices.addRange("SPY", "2024-01-01", "2024-03-15", 400)

	calc, err := NewCalculator(prices, "SPY")
	require.NoError(t, err)

	sample, err := calc.Compute(context.Background(), testTrade(domain.Sell), domain.Horizon30d)
	require.NoError(t, err)

	assert.Equal(t, int64(42), sample.TradeID)
	assert.Equal(t, domain.Horizon30d, sample.Horizon)
	assert.InDelta(t, -0.10, sample.InsiderReturn, 1e-9)
	assert.InDelta(t, 0.0, sample.BenchmarkReturn, 1e-9)
	assert.InDelta(t, 0.10, sample.Alpha, 1e-9)
}

func TestCompute_BuyIntoDeclineScoresNegative(t *testing.T) {
	prices := newStubPrices()
	prices.addRange("AAPL", "2024-01-01", "2024-01-31", 100)
	prices.addRange("AAPL", "2024-02-01", "2024-03-15", 90)
	prices.addRange("SPY", "2024-01-01", "2024-03-15", 400)

	calc, err := NewCalculator(prices, "SPY")
	require.NoError(t, err)

	sample, err := calc.Compute(context.Background(), testTrade(domain.Buy), domain.Horizon30d)
	require.NoError(t, err)

	assert.InDelta(t, -0.10, sample.Alpha, 1e-9)
}

func TestCompute_BenchmarkRelative(t *testing.T) {
	prices := newStubPrices()
	// Stock up 5%, benchmark up 2%: buy alpha is the 3% excess.
	prices.addRange("AAPL", "2024-01-01", "2024-01-31", 100)
	prices.addRange("AAPL", "2024-02-01", "2024-03-15", 105)
	prices.addRange("SPY", "2024-01-01", "2024-01-31", 400)
	prices.addRange("SPY", "2024-02-01", "2024-03-15", 408)

	calc, err := NewCalculator(prices, "SPY")
	require.NoError(t, err)

	sample, err := calc.Compute(context.Background(), testTrade(domain.Buy), domain.Horizon30d)
	require.NoError(t, err)

	assert.InDelta(t, 0.05, sample.InsiderReturn, 1e-9)
	assert.InDelta(t, 0.02, sample.BenchmarkReturn, 1e-9)
	assert.InDelta(t, 0.03, sample.Alpha, 1e-9)
}

func TestCompute_WeekendResolvesToNextTradingDay(t *testing.T) {
	prices := newStubPrices()
	prices.addRange("AAPL", "2024-01-01", "2024-03-15", 100)
	prices.addRange("SPY", "2024-01-01", "2024-03-15", 400)

	calc, err := NewCalculator(prices, "SPY")
	require.NoError(t, err)

	// 2024-01-06 is a Saturday; both endpoint lookups must walk forward.
	trade := testTrade(domain.Buy)
	trade.TradeDate = time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)

	sample, err := calc.Compute(context.Background(), trade, domain.Horizon30d)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sample.Alpha, 1e-9)
}

func TestCompute_HorizonBeyondHistory(t *testing.T) {
	prices := newStubPrices()
	// Series ends well before the 180d horizon elapses.
	prices.addRange("AAPL", "2024-01-01", "2024-02-15", 100)
	prices.addRange("SPY", "2024-01-01", "2024-02-15", 400)

	calc, err := NewCalculator(prices, "SPY")
	require.NoError(t, err)

	_, err = calc.Compute(context.Background(), testTrade(domain.Buy), domain.Horizon180d)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrInsufficientHistory)
}

func TestCompute_NoSeriesAtAll(t *testing.T) {
	prices := newStubPrices()
	prices.addRange("SPY", "2024-01-01", "2024-03-15", 400)

	calc, err := NewCalculator(prices, "SPY")
	require.NoError(t, err)

	_, err = calc.Compute(context.Background(), testTrade(domain.Buy), domain.Horizon30d)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrInsufficientHistory)
}

func TestCompute_HoleInsideSeries(t *testing.T) {
	prices := newStubPrices()
	// Closes exist at the window edges but a two-week hole covers the
	// horizon end date, longer than the forward search tolerates.
	prices.addRange("AAPL", "2024-01-01", "2024-01-25", 100)
	prices.addRange("AAPL", "2024-02-12", "2024-03-15", 100)
	prices.addRange("SPY", "2024-01-01", "2024-03-15", 400)

	calc, err := NewCalculator(prices, "SPY")
	require.NoError(t, err)

	_, err = calc.Compute(context.Background(), testTrade(domain.Buy), domain.Horizon30d)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrInconsistentSeries)
}

func TestNewCalculator_Validation(t *testing.T) {
	_, err := NewCalculator(nil, "SPY")
	assert.Error(t, err)

	_, err = NewCalculator(newStubPrices(), "")
	assert.Error(t, err)
}
