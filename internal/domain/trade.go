package domain

import "time"

// Trade represents one disclosed insider transaction, canonicalized from a
// raw regulatory filing. A Trade is immutable once ingested.
type Trade struct {
	ID              int64     // Unique identifier for the trade (usually from DB)
	InsiderID       string    // Reporting owner CIK
	InsiderName     string    // Reporting owner name as filed
	Symbol          string    // Ticker of the issuer the insider traded
	Side            TradeSide // BUY or SELL
	Shares          int64     // Number of shares, always positive
	PricePerShare   float64   // Transaction price per share, always positive
	AmountUSD       float64   // Shares * PricePerShare
	TradeDate       time.Time // Date the transaction occurred
	FilingDate      time.Time // Date the filing was submitted, never before TradeDate
	AccessionNumber string    // Accession number of the source filing (dedupe key component)
}

// IsBuy checks if the trade is an open-market purchase.
func (t *Trade) IsBuy() bool {
	return t.Side == Buy
}
