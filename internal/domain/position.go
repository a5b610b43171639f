package domain

import "time"

// Position represents one cost-basis lot in a user's tracked portfolio.
// Positions are owned exclusively by one session, created on explicit add
// and destroyed on explicit removal. Multiple lots for the same ticker are
// distinct positions and are never merged.
type Position struct {
	ID        string    // Unique identifier (UUID)
	SessionID string    // Owning user session
	Ticker    string    // Tracked symbol
	CostBasis float64   // Per-share cost at open, always positive
	OpenedAt  time.Time // When the position was added
}
