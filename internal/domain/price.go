package domain

import "time"

// DailyClose represents a single end-of-day close price point in a
// per-symbol price series. Series are append-only and strictly increasing
// by day; the engine never interpolates missing days.
type DailyClose struct {
	Symbol string    // Ticker or benchmark symbol
	Day    time.Time // Trading day, truncated to midnight UTC
	Close  float64   // Closing price
}
