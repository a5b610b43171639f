package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"insiderAlpha/config"
	"insiderAlpha/internal/domain"
	"insiderAlpha/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dayFormat = "2006-01-02"

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// memStore is an in-memory stand-in for the SQLite repository, implementing
// the trade, price and record repositories with the same semantics.
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	trades  []*domain.Trade
	closes  map[string]map[string]float64
	records map[string]*domain.InsiderRecord
}

func newMemStore() *memStore {
	return &memStore{
		closes:  make(map[string]map[string]float64),
		records: make(map[string]*domain.InsiderRecord),
	}
}

func (m *memStore) CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.trades {
		if t.AccessionNumber == trade.AccessionNumber && t.TradeDate.Equal(trade.TradeDate) &&
			t.Symbol == trade.Symbol && t.AmountUSD == trade.AmountUSD {
			return 0, fmt.Errorf("already ingested: %w", ports.ErrDuplicateEntry)
		}
	}
	m.nextID++
	cp := *trade
	cp.ID = m.nextID
	m.trades = append(m.trades, &cp)
	trade.ID = cp.ID
	return cp.ID, nil
}

func (m *memStore) FindByInsider(ctx context.Context, insiderID string) ([]*domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Trade, 0)
	for _, t := range m.trades {
		if t.InsiderID == insiderID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TradeDate.Before(out[j].TradeDate) })
	return out, nil
}

func (m *memStore) FindInsiderIDs(ctx context.Context) ([]string, error) {
	return m.distinct(func(t *domain.Trade) string { return t.InsiderID }), nil
}

func (m *memStore) FindSymbols(ctx context.Context) ([]string, error) {
	return m.distinct(func(t *domain.Trade) string { return t.Symbol }), nil
}

func (m *memStore) distinct(key func(*domain.Trade) string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, t := range m.trades {
		if k := key(t); !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (m *memStore) SaveCloses(ctx context.Context, closes []domain.DailyClose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range closes {
		if m.closes[c.Symbol] == nil {
			m.closes[c.Symbol] = make(map[string]float64)
		}
		day := c.Day.UTC().Format(dayFormat)
		if _, exists := m.closes[c.Symbol][day]; !exists {
			m.closes[c.Symbol][day] = c.Close
		}
	}
	return nil
}

func (m *memStore) GetClose(ctx context.Context, symbol string, day time.Time) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	price, ok := m.closes[symbol][day.UTC().Format(dayFormat)]
	if !ok {
		return 0, fmt.Errorf("no close for %s: %w", symbol, ports.ErrPriceNotAvailable)
	}
	return price, nil
}

func (m *memStore) LatestDay(ctx context.Context, symbol string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest string
	for day := range m.closes[symbol] {
		if day > latest {
			latest = day
		}
	}
	if latest == "" {
		return time.Time{}, fmt.Errorf("no series for %s: %w", symbol, ports.ErrPriceNotAvailable)
	}
	return time.ParseInLocation(dayFormat, latest, time.UTC)
}

func (m *memStore) ReplaceRecord(ctx context.Context, rec *domain.InsiderRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.records[rec.InsiderID] = &cp
	return nil
}

func (m *memStore) FindRecord(ctx context.Context, insiderID string) (*domain.InsiderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[insiderID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *memStore) FindAllRecords(ctx context.Context) ([]*domain.InsiderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.InsiderRecord, 0, len(m.records))
	for _, rec := range m.records {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InsiderID < out[j].InsiderID })
	return out, nil
}

// fakeSource serves canned disclosure rows per symbol.
type fakeSource struct {
	rows map[string][]ports.RawDisclosure
}

func (f *fakeSource) FetchDisclosures(ctx context.Context, symbol string, limit int) ([]ports.RawDisclosure, error) {
	return f.rows[symbol], nil
}

// fakeFeed serves a flat weekday close series for any symbol.
type fakeFeed struct {
	price float64
}

func (f *fakeFeed) FetchDailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]domain.DailyClose, error) {
	closes := make([]domain.DailyClose, 0)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		closes = append(closes, domain.DailyClose{Symbol: symbol, Day: d, Close: f.price})
	}
	return closes, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Universe:          []string{"AAPL"},
		BenchmarkSymbol:   "SPY",
		LookbackYears:     3,
		MinTradesForScore: 0,
		FilingsPerSymbol:  10,
		RefreshInterval:   time.Minute,
	}
}

// rawFor builds a disclosure dated far enough back that every horizon has
// elapsed but still inside the lookback window.
func rawFor(insiderID, code, accession string, daysAgo int) ports.RawDisclosure {
	tradeDate := time.Now().UTC().AddDate(0, 0, -daysAgo)
	return ports.RawDisclosure{
		InsiderID:       insiderID,
		InsiderName:     "DOE JANE",
		Symbol:          "AAPL",
		TransactionCode: code,
		Shares:          "100",
		PricePerShare:   "50",
		TransactionDate: tradeDate.Format(dayFormat),
		FilingDate:      tradeDate.AddDate(0, 0, 1).Format(dayFormat),
		AccessionNumber: accession,
	}
}

func newTestService(t *testing.T, store *memStore, source ports.DisclosureSource) *ScoringService {
	t.Helper()
	svc, err := NewScoringService(testConfig(), &mockLogger{}, source, &fakeFeed{price: 100}, store, store, store)
	require.NoError(t, err)
	return svc
}

func TestNewScoringService_Validation(t *testing.T) {
	store := newMemStore()
	source := &fakeSource{}
	feed := &fakeFeed{price: 100}
	logger := &mockLogger{}

	_, err := NewScoringService(nil, logger, source, feed, store, store, store)
	assert.Error(t, err)

	_, err = NewScoringService(testConfig(), logger, nil, feed, store, store, store)
	assert.Error(t, err)

	cfg := testConfig()
	cfg.Universe = nil
	_, err = NewScoringService(cfg, logger, source, feed, store, store, store)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.RefreshInterval = 0
	_, err = NewScoringService(cfg, logger, source, feed, store, store, store)
	assert.Error(t, err)
}

func TestRunCycle_EndToEnd(t *testing.T) {
	store := newMemStore()
	source := &fakeSource{rows: map[string][]ports.RawDisclosure{
		"AAPL": {
			rawFor("0001111111", "S", "acc-001", 500),
			rawFor("0001111111", "P", "acc-002", 450),
			rawFor("0009999999", "P", "acc-003", 480),
			rawFor("0009999999", "M", "acc-004", 470), // option exercise, dropped
		},
	}}
	svc := newTestService(t, store, source)
	ctx := context.Background()

	require.NoError(t, svc.RunCycle(ctx))

	// The M-coded row never becomes a trade.
	ids, err := store.FindInsiderIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001111111", "0009999999"}, ids)
	assert.Len(t, store.trades, 3)

	// Prices synced for benchmark and traded symbol alike.
	_, err = store.LatestDay(ctx, "SPY")
	assert.NoError(t, err)
	_, err = store.LatestDay(ctx, "AAPL")
	assert.NoError(t, err)

	// Every insider got a record.
	rec, err := store.FindRecord(ctx, "0001111111")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.TotalTrades)
	assert.Equal(t, 1, rec.TotalBuys)
	assert.Equal(t, 1, rec.TotalSells)
	// Flat prices: no excess return anywhere, no wins.
	assert.Zero(t, rec.Wins)
	assert.InDelta(t, 0.0, rec.Alpha1y, 1e-9)

	rec, err = store.FindRecord(ctx, "0009999999")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.TotalTrades)
}

func TestRunCycle_Reingestion(t *testing.T) {
	store := newMemStore()
	source := &fakeSource{rows: map[string][]ports.RawDisclosure{
		"AAPL": {
			rawFor("0001111111", "S", "acc-001", 500),
			rawFor("0001111111", "P", "acc-002", 450),
		},
	}}
	svc := newTestService(t, store, source)
	ctx := context.Background()

	require.NoError(t, svc.RunCycle(ctx))
	require.NoError(t, svc.RunCycle(ctx))

	// The same filings fetched twice insert exactly once.
	assert.Len(t, store.trades, 2)

	rec, err := store.FindRecord(ctx, "0001111111")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.TotalTrades)
}

func TestLeaderboard(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.ReplaceRecord(context.Background(), &domain.InsiderRecord{
		InsiderID: "0000000001", Company: "AAPL", Score: 3.0, TotalTrades: 5,
	}))
	require.NoError(t, store.ReplaceRecord(context.Background(), &domain.InsiderRecord{
		InsiderID: "0000000002", Company: "TSLA", Score: 7.0, TotalTrades: 8,
	}))

	svc := newTestService(t, store, &fakeSource{})

	page, err := svc.Leaderboard(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "0000000002", page[0].InsiderID)

	companies, err := svc.TopCompanies(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"TSLA"}, companies)
}
