package domain

import "time"

// InsiderRecord is the aggregate performance record over all of one
// insider's trades. Records are always rebuilt from the full trade set and
// replaced atomically; no field is ever mutated in place.
//
// Invariants: Wins <= TotalTrades and TotalBuys + TotalSells == TotalTrades.
type InsiderRecord struct {
	InsiderID string // Reporting owner CIK
	Name      string // Insider name from the most recent filing
	Company   string // Ticker of the most recently traded company

	TotalTrades int
	TotalBuys   int
	TotalSells  int
	Wins        int // Trades whose primary-horizon alpha cleared the win threshold
	BuyWins     int
	SellWins    int

	// Mean alpha per horizon across all resolved samples. Unresolved
	// samples (insufficient history) are absent from the mean, never zero.
	Alpha30d  float64
	Alpha90d  float64
	Alpha180d float64
	Alpha1y   float64

	// Buy/sell efficiency: mean 180d alpha restricted to that side.
	BuyAlpha180d  float64
	SellAlpha180d float64

	WinRate float64 // Wins / TotalTrades, 0 when no trades have resolved
	Score   float64 // Composite ranking metric, human-readable magnitude

	LastUpdated time.Time
}
