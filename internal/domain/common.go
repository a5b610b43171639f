package domain

// TradeSide represents the side of a disclosed transaction (BUY or SELL).
type TradeSide string

const (
	Buy  TradeSide = "BUY"
	Sell TradeSide = "SELL"
)

// Horizon is a fixed forward-looking window, in calendar days, over which
// a trade's return is measured against the benchmark.
type Horizon int

const (
	Horizon30d  Horizon = 30
	Horizon90d  Horizon = 90
	Horizon180d Horizon = 180
	Horizon1y   Horizon = 365

	// PrimaryHorizon is the horizon used for win/loss classification.
	PrimaryHorizon = Horizon180d
)

// Horizons lists every supported horizon in ascending order.
var Horizons = []Horizon{Horizon30d, Horizon90d, Horizon180d, Horizon1y}

// Days returns the horizon length in calendar days.
func (h Horizon) Days() int { return int(h) }
