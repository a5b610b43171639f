package ports

import (
	"context"

	"insiderAlpha/internal/domain"
)

// TradeRepository defines the interface for storing and retrieving
// canonical insider trades.
type TradeRepository interface {
	// CreateTrade saves a new trade and returns its assigned ID.
	// Returns ErrDuplicateEntry when the same disclosure was already
	// ingested (safe re-ingestion after partial failures).
	CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error)
	// FindByInsider retrieves all trades for one insider, ordered by trade
	// date ascending.
	FindByInsider(ctx context.Context, insiderID string) ([]*domain.Trade, error)
	// FindInsiderIDs retrieves the distinct insider IDs present in the store.
	FindInsiderIDs(ctx context.Context) ([]string, error)
	// FindSymbols retrieves the distinct traded symbols present in the store.
	FindSymbols(ctx context.Context) ([]string, error)
}

// PriceRepository stores the append-only per-symbol daily close series and
// serves reads over it.
type PriceRepository interface {
	PriceSource

	// SaveCloses appends close points to the series. Re-saving an existing
	// (symbol, day) point is a no-op, so feed syncs are safely repeatable.
	SaveCloses(ctx context.Context, closes []domain.DailyClose) error
}

// RecordRepository defines the interface for storing aggregated insider
// performance records.
type RecordRepository interface {
	// ReplaceRecord publishes a rebuilt record as a single atomic swap,
	// inserting it if the insider has no record yet.
	ReplaceRecord(ctx context.Context, rec *domain.InsiderRecord) error
	// FindRecord retrieves the record for one insider.
	// Returns nil, nil if the insider has no record yet.
	FindRecord(ctx context.Context, insiderID string) (*domain.InsiderRecord, error)
	// FindAllRecords retrieves a consistent snapshot of all records.
	FindAllRecords(ctx context.Context) ([]*domain.InsiderRecord, error)
}

// PositionRepository defines the optional persistence collaborator for the
// portfolio ledger. Without it, positions are ephemeral session state.
type PositionRepository interface {
	// CreatePosition saves a new position.
	CreatePosition(ctx context.Context, pos *domain.Position) error
	// DeletePosition removes a position owned by the given session.
	// Returns ErrNotFound when no such position exists.
	DeletePosition(ctx context.Context, sessionID, id string) error
	// FindBySession retrieves all positions for one session, ordered by
	// open time ascending.
	FindBySession(ctx context.Context, sessionID string) ([]*domain.Position, error)
}
