package ports

import "context"

// RawDisclosure is one transaction row exactly as delivered by a disclosure
// source, before normalization. Numeric and date fields are kept as
// source-typed strings; the ingest normalizer owns parsing and validation.
type RawDisclosure struct {
	InsiderID       string // Reporting owner CIK
	InsiderName     string // Reporting owner name as filed
	Symbol          string // Issuer trading symbol
	TransactionCode string // Form 4 transaction code ("P", "S", "A", "M", ...)
	Shares          string // Number of shares transacted
	PricePerShare   string // Transaction price per share
	TransactionDate string // YYYY-MM-DD
	FilingDate      string // YYYY-MM-DD
	AccessionNumber string // Accession number of the source filing
}

// DisclosureSource defines the interface for fetching raw insider trade
// disclosures. Delivery is at-least-once and may arrive out of
// chronological order; the normalizer's idempotence and the aggregator's
// order-independence exist specifically to tolerate this.
type DisclosureSource interface {
	// FetchDisclosures retrieves up to limit recent disclosure rows for the
	// given issuer symbol, newest filings first.
	FetchDisclosures(ctx context.Context, symbol string, limit int) ([]RawDisclosure, error)
}
