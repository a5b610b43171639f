package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"insiderAlpha/internal/domain"
	"insiderAlpha/internal/ports"

	"github.com/mattn/go-sqlite3"
)

// dayFormat is the storage format for trading days in the prices table.
const dayFormat = "2006-01-02"

// Repository implements the ports.TradeRepository, ports.PriceRepository,
// ports.RecordRepository and ports.PositionRepository interfaces using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/insider_alpha.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Open database connection
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close() // Close the connection if ping fails
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Set connection pool settings (important for SQLite)
	db.SetMaxOpenConns(1) // SQLite handles concurrency internally, but Go driver benefits from limiting connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
// NOTE: This is a basic approach. A proper migration tool is recommended for production.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		insider_id TEXT NOT NULL,
		insider_name TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		shares INTEGER NOT NULL,
		price_per_share REAL NOT NULL,
		amount_usd REAL NOT NULL,
		trade_date TIMESTAMP NOT NULL,
		filing_date TIMESTAMP NOT NULL,
		accession_number TEXT NOT NULL,
		UNIQUE (accession_number, trade_date, symbol, amount_usd)
	);

	CREATE TABLE IF NOT EXISTS prices (
		symbol TEXT NOT NULL,
		day TEXT NOT NULL,
		close REAL NOT NULL,
		PRIMARY KEY (symbol, day)
	);

	CREATE TABLE IF NOT EXISTS insider_records (
		insider_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		company TEXT NOT NULL,
		total_trades INTEGER NOT NULL,
		total_buys INTEGER NOT NULL,
		total_sells INTEGER NOT NULL,
		wins INTEGER NOT NULL,
		buy_wins INTEGER NOT NULL,
		sell_wins INTEGER NOT NULL,
		alpha_30d REAL NOT NULL DEFAULT 0,
		alpha_90d REAL NOT NULL DEFAULT 0,
		alpha_180d REAL NOT NULL DEFAULT 0,
		alpha_1y REAL NOT NULL DEFAULT 0,
		buy_alpha_180d REAL NOT NULL DEFAULT 0,
		sell_alpha_180d REAL NOT NULL DEFAULT 0,
		win_rate REAL NOT NULL DEFAULT 0,
		score REAL NOT NULL DEFAULT 0,
		last_updated TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS positions (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		ticker TEXT NOT NULL,
		cost_basis REAL NOT NULL,
		opened_at TIMESTAMP NOT NULL
	);

	-- Add indexes for common lookups
	CREATE INDEX IF NOT EXISTS idx_trades_insider ON trades (insider_id, trade_date);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades (symbol, trade_date);
	CREATE INDEX IF NOT EXISTS idx_positions_session ON positions (session_id, opened_at);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// isConstraintErr reports whether err is a SQLite uniqueness violation.
func isConstraintErr(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

// --- TradeRepository Implementation ---

// CreateTrade saves a new trade and returns its assigned ID.
func (r *Repository) CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	const query = `
	INSERT INTO trades (insider_id, insider_name, symbol, side, shares, price_per_share,
	                    amount_usd, trade_date, filing_date, accession_number)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		trade.InsiderID, trade.InsiderName, trade.Symbol, string(trade.Side), trade.Shares,
		trade.PricePerShare, trade.AmountUSD, trade.TradeDate, trade.FilingDate, trade.AccessionNumber)
	if err != nil {
		if isConstraintErr(err) {
			return 0, fmt.Errorf("trade from filing %s already ingested: %w", trade.AccessionNumber, ports.ErrDuplicateEntry)
		}
		return 0, fmt.Errorf("failed to insert trade for insider %s: %w", trade.InsiderID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for trade (insider %s): %w", trade.InsiderID, err)
	}
	trade.ID = id // Update the domain object with the ID
	r.logger.Debug(ctx, "Trade created", map[string]interface{}{"tradeID": id, "insiderID": trade.InsiderID, "symbol": trade.Symbol})
	return id, nil
}

// FindByInsider retrieves all trades for one insider, ordered by trade date ascending.
func (r *Repository) FindByInsider(ctx context.Context, insiderID string) ([]*domain.Trade, error) {
	const query = `
	SELECT id, insider_id, insider_name, symbol, side, shares, price_per_share,
	       amount_usd, trade_date, filing_date, accession_number
	FROM trades
	WHERE insider_id = ?
	ORDER BY trade_date ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, insiderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades for insider %s: %w", insiderID, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade during FindByInsider: %w", err)
		}
		trades = append(trades, trade)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

// FindInsiderIDs retrieves the distinct insider IDs present in the store.
func (r *Repository) FindInsiderIDs(ctx context.Context) ([]string, error) {
	return r.queryStrings(ctx, `SELECT DISTINCT insider_id FROM trades ORDER BY insider_id`, "insider IDs")
}

// FindSymbols retrieves the distinct traded symbols present in the store.
func (r *Repository) FindSymbols(ctx context.Context) ([]string, error) {
	return r.queryStrings(ctx, `SELECT DISTINCT symbol FROM trades ORDER BY symbol`, "symbols")
}

func (r *Repository) queryStrings(ctx context.Context, query, what string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct %s: %w", what, err)
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", what, err)
		}
		values = append(values, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", what, err)
	}
	return values, nil
}

// --- PriceRepository Implementation ---

// SaveCloses appends close points to the per-symbol series.
// Existing (symbol, day) points are left untouched: the series is append-only.
func (r *Repository) SaveCloses(ctx context.Context, closes []domain.DailyClose) error {
	if len(closes) == 0 {
		return nil
	}
	const query = `INSERT OR IGNORE INTO prices (symbol, day, close) VALUES (?, ?, ?)`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin price insert transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare price insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range closes {
		if _, err := stmt.ExecContext(ctx, c.Symbol, c.Day.UTC().Format(dayFormat), c.Close); err != nil {
			return fmt.Errorf("failed to insert close for %s on %s: %w", c.Symbol, c.Day.Format(dayFormat), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit price inserts: %w", err)
	}
	r.logger.Debug(ctx, "Price closes saved", map[string]interface{}{"count": len(closes), "symbol": closes[0].Symbol})
	return nil
}

// GetClose returns the stored close for symbol on day.
func (r *Repository) GetClose(ctx context.Context, symbol string, day time.Time) (float64, error) {
	const query = `SELECT close FROM prices WHERE symbol = ? AND day = ?`
	var price float64
	err := r.db.QueryRowContext(ctx, query, symbol, day.UTC().Format(dayFormat)).Scan(&price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("no close for %s on %s: %w", symbol, day.Format(dayFormat), ports.ErrPriceNotAvailable)
		}
		return 0, fmt.Errorf("failed to query close for %s: %w", symbol, err)
	}
	return price, nil
}

// LatestDay returns the most recent day with a stored close for symbol.
func (r *Repository) LatestDay(ctx context.Context, symbol string) (time.Time, error) {
	const query = `SELECT MAX(day) FROM prices WHERE symbol = ?`
	var dayStr sql.NullString
	err := r.db.QueryRowContext(ctx, query, symbol).Scan(&dayStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest day for %s: %w", symbol, err)
	}
	if !dayStr.Valid {
		return time.Time{}, fmt.Errorf("no price series for %s: %w", symbol, ports.ErrPriceNotAvailable)
	}
	day, err := time.ParseInLocation(dayFormat, dayStr.String, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed day value '%s' for %s: %w", dayStr.String, symbol, err)
	}
	return day, nil
}

// --- RecordRepository Implementation ---

// ReplaceRecord publishes a rebuilt record as a single atomic swap.
func (r *Repository) ReplaceRecord(ctx context.Context, rec *domain.InsiderRecord) error {
	const query = `
	INSERT OR REPLACE INTO insider_records (
		insider_id, name, company, total_trades, total_buys, total_sells,
		wins, buy_wins, sell_wins, alpha_30d, alpha_90d, alpha_180d, alpha_1y,
		buy_alpha_180d, sell_alpha_180d, win_rate, score, last_updated)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		rec.InsiderID, rec.Name, rec.Company, rec.TotalTrades, rec.TotalBuys, rec.TotalSells,
		rec.Wins, rec.BuyWins, rec.SellWins, rec.Alpha30d, rec.Alpha90d, rec.Alpha180d, rec.Alpha1y,
		rec.BuyAlpha180d, rec.SellAlpha180d, rec.WinRate, rec.Score, rec.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to replace record for insider %s: %w", rec.InsiderID, err)
	}
	r.logger.Debug(ctx, "Insider record replaced", map[string]interface{}{"insiderID": rec.InsiderID, "score": rec.Score, "totalTrades": rec.TotalTrades})
	return nil
}

// FindRecord retrieves the record for one insider. Returns nil, nil when absent.
func (r *Repository) FindRecord(ctx context.Context, insiderID string) (*domain.InsiderRecord, error) {
	const query = recordSelect + ` WHERE insider_id = ?`

	row := r.db.QueryRowContext(ctx, query, insiderID)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query record for insider %s: %w", insiderID, err)
	}
	return rec, nil
}

// FindAllRecords retrieves a consistent snapshot of all records.
func (r *Repository) FindAllRecords(ctx context.Context) ([]*domain.InsiderRecord, error) {
	const query = recordSelect + ` ORDER BY insider_id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query all records: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.InsiderRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record during FindAllRecords: %w", err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating record rows: %w", err)
	}
	return records, nil
}

// --- PositionRepository Implementation ---

// CreatePosition saves a new portfolio position.
func (r *Repository) CreatePosition(ctx context.Context, pos *domain.Position) error {
	const query = `
	INSERT INTO positions (id, session_id, ticker, cost_basis, opened_at)
	VALUES (?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, pos.ID, pos.SessionID, pos.Ticker, pos.CostBasis, pos.OpenedAt)
	if err != nil {
		if isConstraintErr(err) {
			return fmt.Errorf("position %s already exists: %w", pos.ID, ports.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to insert position %s: %w", pos.ID, err)
	}
	r.logger.Debug(ctx, "Position created", map[string]interface{}{"positionID": pos.ID, "sessionID": pos.SessionID, "ticker": pos.Ticker})
	return nil
}

// DeletePosition removes a position owned by the given session.
func (r *Repository) DeletePosition(ctx context.Context, sessionID, id string) error {
	const query = `DELETE FROM positions WHERE session_id = ? AND id = ?`

	result, err := r.db.ExecContext(ctx, query, sessionID, id)
	if err != nil {
		return fmt.Errorf("failed to delete position %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for delete position %s: %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("position %s not found for session %s: %w", id, sessionID, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Position deleted", map[string]interface{}{"positionID": id, "sessionID": sessionID})
	return nil
}

// FindBySession retrieves all positions for one session, ordered by open time ascending.
func (r *Repository) FindBySession(ctx context.Context, sessionID string) ([]*domain.Position, error) {
	const query = `
	SELECT id, session_id, ticker, cost_basis, opened_at
	FROM positions
	WHERE session_id = ?
	ORDER BY opened_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	positions := make([]*domain.Position, 0)
	for rows.Next() {
		pos := &domain.Position{}
		if err := rows.Scan(&pos.ID, &pos.SessionID, &pos.Ticker, &pos.CostBasis, &pos.OpenedAt); err != nil {
			return nil, fmt.Errorf("failed to scan position during FindBySession: %w", err)
		}
		positions = append(positions, pos)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position rows: %w", err)
	}
	return positions, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

const recordSelect = `
	SELECT insider_id, name, company, total_trades, total_buys, total_sells,
	       wins, buy_wins, sell_wins, alpha_30d, alpha_90d, alpha_180d, alpha_1y,
	       buy_alpha_180d, sell_alpha_180d, win_rate, score, last_updated
	FROM insider_records`

// scanTrade scans a row into a domain.Trade struct.
func scanTrade(s scanner) (*domain.Trade, error) {
	t := &domain.Trade{}
	var side string
	err := s.Scan(
		&t.ID, &t.InsiderID, &t.InsiderName, &t.Symbol, &side, &t.Shares, &t.PricePerShare,
		&t.AmountUSD, &t.TradeDate, &t.FilingDate, &t.AccessionNumber)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	t.Side = domain.TradeSide(side) // Convert string to domain type
	return t, nil
}

// scanRecord scans a row into a domain.InsiderRecord struct.
func scanRecord(s scanner) (*domain.InsiderRecord, error) {
	rec := &domain.InsiderRecord{}
	err := s.Scan(
		&rec.InsiderID, &rec.Name, &rec.Company, &rec.TotalTrades, &rec.TotalBuys, &rec.TotalSells,
		&rec.Wins, &rec.BuyWins, &rec.SellWins, &rec.Alpha30d, &rec.Alpha90d, &rec.Alpha180d, &rec.Alpha1y,
		&rec.BuyAlpha180d, &rec.SellAlpha180d, &rec.WinRate, &rec.Score, &rec.LastUpdated)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	return rec, nil
}
