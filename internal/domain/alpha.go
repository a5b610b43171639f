package domain

// AlphaSample is the result of comparing one trade's forward return to the
// benchmark's forward return over a single horizon. Samples are derived
// data: they are recomputed whenever the backing price series is extended
// and are never stored alongside the trade.
type AlphaSample struct {
	TradeID         int64   // Trade this sample was computed for
	Horizon         Horizon // Window the returns cover
	InsiderReturn   float64 // Raw forward return of the traded stock
	BenchmarkReturn float64 // Forward return of the benchmark over the same window
	Alpha           float64 // Excess return; sign-flipped for sells so a good sell is positive
}
