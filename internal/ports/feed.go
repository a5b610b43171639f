package ports

import (
	"context"
	"time"

	"insiderAlpha/internal/domain"
)

// PriceFeed defines the interface for fetching end-of-day close prices from
// an external market data provider. Implementations must supply
// trading-day-aligned closes; the core never interpolates missing days.
// Calls are cancellable and timeout-bounded via ctx — an incomplete or slow
// feed surfaces as a retryable error, never as an indefinite block.
type PriceFeed interface {
	// FetchDailyCloses retrieves the daily close series for symbol over the
	// inclusive [from, to] window. Days the market was closed are simply
	// absent from the result.
	FetchDailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]domain.DailyClose, error)
}

// PriceSource provides read access to the locally stored price series.
type PriceSource interface {
	// GetClose returns the stored close for symbol on day.
	// Returns ErrPriceNotAvailable when no close is stored for that day.
	GetClose(ctx context.Context, symbol string, day time.Time) (float64, error)
	// LatestDay returns the most recent day with a stored close for symbol.
	// Returns ErrPriceNotAvailable when the series is empty.
	LatestDay(ctx context.Context, symbol string) (time.Time, error)
}
