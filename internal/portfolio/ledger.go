package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"insiderAlpha/internal/domain"
	"insiderAlpha/internal/ports"
)

// Point is one day of the mark-to-benchmark comparison series: the
// portfolio's aggregate return since window open, alongside the benchmark's
// and the leaderboard-insider-composite's return over the same window.
type Point struct {
	Day             time.Time
	PortfolioReturn float64
	BenchmarkReturn float64
	InsiderReturn   float64
}

// Ledger maintains one user session's cost-basis positions and projects
// them into comparison series for charting. Positions are scoped to the
// session and never shared; the ledger is ephemeral unless a persistence
// collaborator is supplied.
type Ledger struct {
	sessionID        string
	prices           ports.PriceSource
	benchmark        string
	compositeSymbols []string
	repo             ports.PositionRepository // nil means in-memory only
	logger           ports.Logger
	now              func() time.Time

	mu        sync.Mutex
	positions []*domain.Position
}

// Config holds configuration for a portfolio ledger.
type Config struct {
	SessionID        string
	Prices           ports.PriceSource
	BenchmarkSymbol  string
	CompositeSymbols []string                 // Tickers of the top-ranked insiders' companies
	Repository       ports.PositionRepository // Optional persistence collaborator
	Logger           ports.Logger
	Now              func() time.Time // Clock override for tests; defaults to time.Now
}

// NewLedger creates a ledger for one session. When a repository is
// configured, previously persisted positions for the session are loaded.
func NewLedger(ctx context.Context, cfg Config) (*Ledger, error) {
	if cfg.SessionID == "" {
		return nil, fmt.Errorf("session ID is required for portfolio ledger")
	}
	if cfg.Prices == nil {
		return nil, fmt.Errorf("price source is required for portfolio ledger")
	}
	if cfg.BenchmarkSymbol == "" {
		return nil, fmt.Errorf("benchmark symbol is required for portfolio ledger")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for portfolio ledger")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	l := &Ledger{
		sessionID:        cfg.SessionID,
		prices:           cfg.Prices,
		benchmark:        cfg.BenchmarkSymbol,
		compositeSymbols: cfg.CompositeSymbols,
		repo:             cfg.Repository,
		logger:           cfg.Logger,
		now:              now,
		positions:        make([]*domain.Position, 0),
	}

	if l.repo != nil {
		persisted, err := l.repo.FindBySession(ctx, l.sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted positions for session %s: %w", l.sessionID, err)
		}
		l.positions = persisted
		l.logger.Debug(ctx, "Loaded persisted positions", map[string]interface{}{"sessionID": l.sessionID, "count": len(persisted)})
	}

	return l, nil
}

// AddPosition appends a new cost-basis lot. A second lot for the same
// ticker is a distinct position, never merged into an existing one.
func (l *Ledger) AddPosition(ctx context.Context, ticker string, costBasis float64) (*domain.Position, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker must not be empty: %w", ports.ErrInvalidInput)
	}
	if costBasis <= 0 {
		return nil, fmt.Errorf("cost basis must be positive, got %v: %w", costBasis, ports.ErrInvalidInput)
	}

	pos := &domain.Position{
		ID:        uuid.NewString(),
		SessionID: l.sessionID,
		Ticker:    ticker,
		CostBasis: costBasis,
		OpenedAt:  l.now().UTC(),
	}

	if l.repo != nil {
		if err := l.repo.CreatePosition(ctx, pos); err != nil {
			return nil, fmt.Errorf("failed to persist position: %w", err)
		}
	}

	l.mu.Lock()
	l.positions = append(l.positions, pos)
	l.mu.Unlock()

	l.logger.Info(ctx, "Position added", map[string]interface{}{"positionID": pos.ID, "ticker": ticker, "costBasis": costBasis})
	return pos, nil
}

// RemovePosition destroys one position by ID. Unknown IDs fail with
// ErrNotFound and leave every other position untouched.
func (l *Ledger) RemovePosition(ctx context.Context, id string) error {
	l.mu.Lock()
	idx := -1
	for i, pos := range l.positions {
		if pos.ID == id {
			idx = i
			break
		}
	}
	l.mu.Unlock()
	if idx == -1 {
		return fmt.Errorf("position %s: %w", id, ports.ErrNotFound)
	}

	if l.repo != nil {
		if err := l.repo.DeletePosition(ctx, l.sessionID, id); err != nil {
			return fmt.Errorf("failed to delete persisted position %s: %w", id, err)
		}
	}

	l.mu.Lock()
	// Re-locate: the slice may have shifted while the repo call ran.
	for i, pos := range l.positions {
		if pos.ID == id {
			l.positions = append(l.positions[:i], l.positions[i+1:]...)
			break
		}
	}
	l.mu.Unlock()

	l.logger.Info(ctx, "Position removed", map[string]interface{}{"positionID": id, "sessionID": l.sessionID})
	return nil
}

// Positions returns a snapshot copy of the current positions.
func (l *Ledger) Positions() []*domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	snapshot := make([]*domain.Position, len(l.positions))
	copy(snapshot, l.positions)
	return snapshot
}

// ValueSeries projects the portfolio into a per-trading-day comparison
// series over [from, asOf]. The projection is pure: it never mutates
// positions, and identical inputs against an unchanged price history yield
// identical output, so callers may cache freely.
//
// Portfolio return is the cost-basis-weighted mean of each lot's return
// versus its own cost basis. Benchmark and insider-composite returns are
// measured from the first trading day of the window. Days without a
// benchmark close (market closed) are omitted; the core never interpolates.
func (l *Ledger) ValueSeries(ctx context.Context, from, asOf time.Time) ([]Point, error) {
	if asOf.Before(from) {
		return nil, fmt.Errorf("asOf %s precedes from %s: %w",
			asOf.Format("2006-01-02"), from.Format("2006-01-02"), ports.ErrInvalidInput)
	}
	positions := l.Positions()

	// Baseline closes are taken on the first trading day of the window.
	var (
		benchBase float64
		baseDay   time.Time
		foundBase bool
	)
	for day := from; !day.After(asOf); day = day.AddDate(0, 0, 1) {
		price, err := l.prices.GetClose(ctx, l.benchmark, day)
		if err != nil {
			if errors.Is(err, ports.ErrPriceNotAvailable) {
				continue
			}
			return nil, fmt.Errorf("failed to read benchmark close: %w", err)
		}
		benchBase, baseDay, foundBase = price, day, true
		break
	}
	if !foundBase {
		return nil, fmt.Errorf("no benchmark closes in window %s..%s: %w",
			from.Format("2006-01-02"), asOf.Format("2006-01-02"), ports.ErrInsufficientHistory)
	}

	compositeBases := make(map[string]float64)
	for _, symbol := range l.compositeSymbols {
		price, err := l.prices.GetClose(ctx, symbol, baseDay)
		if err != nil {
			if errors.Is(err, ports.ErrPriceNotAvailable) {
				continue // symbol has no history at window open; excluded deterministically
			}
			return nil, fmt.Errorf("failed to read composite close for %s: %w", symbol, err)
		}
		compositeBases[symbol] = price
	}

	series := make([]Point, 0)
	for day := baseDay; !day.After(asOf); day = day.AddDate(0, 0, 1) {
		benchClose, err := l.prices.GetClose(ctx, l.benchmark, day)
		if err != nil {
			if errors.Is(err, ports.ErrPriceNotAvailable) {
				continue // non-trading day
			}
			return nil, fmt.Errorf("failed to read benchmark close: %w", err)
		}

		point := Point{
			Day:             day,
			BenchmarkReturn: (benchClose - benchBase) / benchBase,
		}

		// Cost-basis-weighted portfolio return over the lots priceable today.
		var gain, totalCost float64
		for _, pos := range positions {
			price, err := l.prices.GetClose(ctx, pos.Ticker, day)
			if err != nil {
				if errors.Is(err, ports.ErrPriceNotAvailable) {
					continue
				}
				return nil, fmt.Errorf("failed to read close for position %s: %w", pos.Ticker, err)
			}
			gain += price - pos.CostBasis
			totalCost += pos.CostBasis
		}
		if totalCost > 0 {
			point.PortfolioReturn = gain / totalCost
		}

		// Equal-weighted insider composite.
		var compositeSum float64
		var compositeCount int
		for _, symbol := range l.compositeSymbols {
			base, ok := compositeBases[symbol]
			if !ok {
				continue
			}
			price, err := l.prices.GetClose(ctx, symbol, day)
			if err != nil {
				if errors.Is(err, ports.ErrPriceNotAvailable) {
					continue
				}
				return nil, fmt.Errorf("failed to read composite close for %s: %w", symbol, err)
			}
			compositeSum += (price - base) / base
			compositeCount++
		}
		if compositeCount > 0 {
			point.InsiderReturn = compositeSum / float64(compositeCount)
		}

		series = append(series, point)
	}

	return series, nil
}
