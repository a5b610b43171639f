package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"insiderAlpha/config"
	"insiderAlpha/internal/aggregate"
	"insiderAlpha/internal/alpha"
	"insiderAlpha/internal/domain"
	"insiderAlpha/internal/ingest"
	"insiderAlpha/internal/leaderboard"
	"insiderAlpha/internal/ports"
)

const (
	// rescoreWorkers bounds the concurrent per-insider rebuilds. Reads hit
	// SQLite, which serializes anyway; this mainly bounds memory.
	rescoreWorkers = 4
	// priceWindowPaddingYears keeps enough history before the lookback cut
	// to price the longest horizon of the oldest admissible trade.
	priceWindowPaddingYears = 2
)

// ScoringService orchestrates the engine's refresh cycle: ingest new
// disclosures, sync price history, recompute every insider's record.
type ScoringService struct {
	cfg        *config.Config
	logger     ports.Logger
	source     ports.DisclosureSource
	feed       ports.PriceFeed
	trades     ports.TradeRepository
	prices     ports.PriceRepository
	records    ports.RecordRepository
	normalizer *ingest.Normalizer
	calc       *alpha.Calculator
}

// NewScoringService creates a new application service instance.
func NewScoringService(
	cfg *config.Config,
	logger ports.Logger,
	source ports.DisclosureSource,
	feed ports.PriceFeed,
	trades ports.TradeRepository,
	prices ports.PriceRepository,
	records ports.RecordRepository,
) (*ScoringService, error) {

	// Validate dependencies
	if cfg == nil || logger == nil || source == nil || feed == nil || trades == nil || prices == nil || records == nil {
		return nil, fmt.Errorf("missing required dependencies for ScoringService")
	}

	// Validate config values needed by the service
	if len(cfg.Universe) == 0 {
		return nil, fmt.Errorf("configuration Universe must list at least one ticker")
	}
	if cfg.BenchmarkSymbol == "" {
		return nil, fmt.Errorf("configuration BenchmarkSymbol must be set")
	}
	if cfg.FilingsPerSymbol <= 0 {
		return nil, fmt.Errorf("configuration FilingsPerSymbol must be positive")
	}
	if cfg.RefreshInterval <= 0 {
		return nil, fmt.Errorf("configuration RefreshInterval must be positive")
	}

	calc, err := alpha.NewCalculator(prices, cfg.BenchmarkSymbol)
	if err != nil {
		return nil, fmt.Errorf("failed to build alpha calculator: %w", err)
	}

	return &ScoringService{
		cfg:     cfg,
		logger:  logger,
		source:  source,
		feed:    feed,
		trades:  trades,
		prices:  prices,
		records: records,
		normalizer: ingest.New(ingest.Config{
			LookbackYears: cfg.LookbackYears,
		}),
		calc: calc,
	}, nil
}

// Start begins the engine's refresh loop. The first cycle runs immediately;
// subsequent cycles run every RefreshInterval until the context is canceled
// or a shutdown signal arrives.
func (s *ScoringService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting Scoring Service...", map[string]interface{}{
		"universe":  s.cfg.Universe,
		"benchmark": s.cfg.BenchmarkSymbol,
		"interval":  s.cfg.RefreshInterval.String(),
	})

	// Create a context that can be canceled by signals
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
		cancel()
	}()

	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		if err := s.RunCycle(ctx); err != nil {
			if errors.Is(err, ports.ErrContextCanceled) || ctx.Err() != nil {
				break
			}
			// A failed cycle leaves the previous records serving; retry on
			// the next tick rather than crashing the process.
			s.logger.Error(ctx, err, "Refresh cycle failed, previous leaderboard remains live")
		}

		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Main context cancelled, shutting down...")
			s.logger.Info(ctx, "Scoring Service stopped.")
			return nil
		case <-ticker.C:
		}
	}

	s.logger.Info(ctx, "Scoring Service stopped.")
	return nil
}

// RunCycle executes one full refresh: ingest, price sync, rescore.
// Each phase degrades per-item; only infrastructure failures abort the cycle.
func (s *ScoringService) RunCycle(ctx context.Context) error {
	op := "RunCycle"
	started := time.Now()
	s.logger.Info(ctx, op+": Starting refresh cycle")

	// 1. Pull fresh Form 4 disclosures for the universe.
	ingested, err := s.ingestUniverse(ctx)
	if err != nil {
		return fmt.Errorf("ingestion phase failed: %w", err)
	}

	// 2. Extend the price series for every symbol the engine knows about.
	if err := s.syncPrices(ctx); err != nil {
		return fmt.Errorf("price sync phase failed: %w", err)
	}

	// 3. Rebuild every insider's record from scratch.
	rescored, err := s.rescoreAll(ctx)
	if err != nil {
		return fmt.Errorf("rescore phase failed: %w", err)
	}

	s.logger.Info(ctx, op+": Refresh cycle complete", map[string]interface{}{
		"newTrades": ingested,
		"rescored":  rescored,
		"elapsed":   time.Since(started).String(),
	})
	return nil
}

// ingestUniverse fetches recent disclosures for every universe ticker,
// normalizes them, and stores the new trades. Returns the number of trades
// actually inserted (duplicates excluded).
func (s *ScoringService) ingestUniverse(ctx context.Context) (int, error) {
	op := "ingestUniverse"
	inserted := 0

	for _, symbol := range s.cfg.Universe {
		if ctx.Err() != nil {
			return inserted, fmt.Errorf("%s interrupted: %w", op, ports.ErrContextCanceled)
		}

		raws, err := s.source.FetchDisclosures(ctx, symbol, s.cfg.FilingsPerSymbol)
		if err != nil {
			if errors.Is(err, ports.ErrContextCanceled) {
				return inserted, err
			}
			// One unreachable issuer never blocks the rest of the universe.
			s.logger.Warn(ctx, op+": Failed to fetch disclosures, skipping symbol", map[string]interface{}{
				"symbol": symbol, "error": err.Error(),
			})
			continue
		}

		for _, raw := range raws {
			trade, err := s.normalizer.Normalize(raw)
			if err != nil {
				switch {
				case errors.Is(err, ports.ErrStaleDisclosure):
					s.logger.Debug(ctx, op+": Dropping stale disclosure", map[string]interface{}{
						"symbol": symbol, "accession": raw.AccessionNumber,
					})
				case errors.Is(err, ports.ErrMalformedRecord):
					s.logger.Debug(ctx, op+": Dropping unusable disclosure row", map[string]interface{}{
						"symbol": symbol, "accession": raw.AccessionNumber, "reason": err.Error(),
					})
				default:
					s.logger.Warn(ctx, op+": Unexpected normalization failure", map[string]interface{}{
						"symbol": symbol, "accession": raw.AccessionNumber, "error": err.Error(),
					})
				}
				continue
			}

			if _, err := s.trades.CreateTrade(ctx, trade); err != nil {
				if errors.Is(err, ports.ErrDuplicateEntry) {
					s.logger.Debug(ctx, op+": Disclosure already ingested", map[string]interface{}{
						"accession": trade.AccessionNumber, "symbol": trade.Symbol,
					})
					continue
				}
				return inserted, fmt.Errorf("failed to store trade %s/%s: %w", trade.Symbol, trade.AccessionNumber, err)
			}
			inserted++
		}
	}

	s.logger.Info(ctx, op+": Ingestion complete", map[string]interface{}{"newTrades": inserted})
	return inserted, nil
}

// syncPrices extends the stored close series for the benchmark, the
// configured universe, and every symbol seen in stored trades. Each symbol
// is fetched from the day after its latest stored close; symbols with no
// history yet get the full lookback window plus horizon padding.
func (s *ScoringService) syncPrices(ctx context.Context) error {
	op := "syncPrices"

	traded, err := s.trades.FindSymbols(ctx)
	if err != nil {
		return fmt.Errorf("failed to list traded symbols: %w", err)
	}

	symbols := make([]string, 0, len(traded)+len(s.cfg.Universe)+1)
	seen := make(map[string]bool)
	for _, sym := range append(append([]string{s.cfg.BenchmarkSymbol}, s.cfg.Universe...), traded...) {
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		symbols = append(symbols, sym)
	}

	now := time.Now().UTC()
	fullWindowStart := now.AddDate(-(s.cfg.LookbackYears + priceWindowPaddingYears), 0, 0)

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			return fmt.Errorf("%s interrupted: %w", op, ports.ErrContextCanceled)
		}

		from := fullWindowStart
		latest, err := s.prices.LatestDay(ctx, symbol)
		if err == nil {
			from = latest.AddDate(0, 0, 1)
		} else if !errors.Is(err, ports.ErrPriceNotAvailable) {
			return fmt.Errorf("failed to resolve latest close day for %s: %w", symbol, err)
		}
		if from.After(now) {
			continue // series already current
		}

		closes, err := s.feed.FetchDailyCloses(ctx, symbol, from, now)
		if err != nil {
			if errors.Is(err, ports.ErrContextCanceled) {
				return err
			}
			// Stale prices degrade scores for this symbol only; keep going.
			s.logger.Warn(ctx, op+": Failed to fetch closes, series left stale", map[string]interface{}{
				"symbol": symbol, "error": err.Error(),
			})
			continue
		}
		if err := s.prices.SaveCloses(ctx, closes); err != nil {
			return fmt.Errorf("failed to store closes for %s: %w", symbol, err)
		}
	}

	s.logger.Info(ctx, op+": Price sync complete", map[string]interface{}{"symbols": len(symbols)})
	return nil
}

// rescoreAll rebuilds every insider's record from its full trade set.
// Insiders are processed by a small worker pool; a failure on one insider
// leaves that insider's previous record serving and never aborts the rest.
func (s *ScoringService) rescoreAll(ctx context.Context) (int, error) {
	op := "rescoreAll"

	insiderIDs, err := s.trades.FindInsiderIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list insiders: %w", err)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		rescored int
	)
	sem := make(chan struct{}, rescoreWorkers)

	for _, insiderID := range insiderIDs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(insiderID string) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.rescoreInsider(ctx, insiderID); err != nil {
				s.logger.Warn(ctx, op+": Failed to rebuild record, previous record remains", map[string]interface{}{
					"insiderID": insiderID, "error": err.Error(),
				})
				return
			}
			mu.Lock()
			rescored++
			mu.Unlock()
		}(insiderID)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return rescored, fmt.Errorf("%s interrupted: %w", op, ports.ErrContextCanceled)
	}
	return rescored, nil
}

// rescoreInsider recomputes one insider's alpha samples and publishes the
// rebuilt record. Samples that cannot be resolved yet (horizon not elapsed,
// prices not synced) are excluded from the rebuild, not zeroed.
func (s *ScoringService) rescoreInsider(ctx context.Context, insiderID string) error {
	trades, err := s.trades.FindByInsider(ctx, insiderID)
	if err != nil {
		return fmt.Errorf("failed to load trades: %w", err)
	}
	if len(trades) == 0 {
		return nil
	}

	samples := make(map[int64][]domain.AlphaSample)
	for _, trade := range trades {
		for _, h := range domain.Horizons {
			sample, err := s.calc.Compute(ctx, trade, h)
			if err != nil {
				if errors.Is(err, ports.ErrInsufficientHistory) {
					// Expected for recent trades; the sample resolves on a
					// later cycle once the horizon has elapsed.
					s.logger.Debug(ctx, "Alpha sample not yet resolvable", map[string]interface{}{
						"insiderID": insiderID, "tradeID": trade.ID, "horizonDays": h.Days(),
					})
					continue
				}
				if ports.IsRetryable(err) {
					s.logger.Warn(ctx, "Excluding unresolvable sample until next cycle", map[string]interface{}{
						"insiderID": insiderID, "tradeID": trade.ID, "symbol": trade.Symbol,
						"horizonDays": h.Days(), "error": err.Error(),
					})
					continue
				}
				return fmt.Errorf("failed to compute alpha for trade %d horizon %dd: %w", trade.ID, h.Days(), err)
			}
			samples[trade.ID] = append(samples[trade.ID], *sample)
		}
	}

	rec, err := aggregate.BuildRecord(trades, samples, aggregate.Options{
		WinThreshold: s.cfg.WinAlphaThreshold,
		MinTrades:    s.cfg.MinTradesForScore,
		Weights: aggregate.Weights{
			Alpha1y:       s.cfg.WeightAlpha1y,
			BuyAlpha180d:  s.cfg.WeightBuyAlpha,
			SellAlpha180d: s.cfg.WeightSellAlpha,
			WinRate:       s.cfg.WeightWinRate,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to aggregate record: %w", err)
	}

	if err := s.records.ReplaceRecord(ctx, rec); err != nil {
		return fmt.Errorf("failed to publish record: %w", err)
	}
	return nil
}

// Leaderboard returns one ranked page of insider records.
func (s *ScoringService) Leaderboard(ctx context.Context, offset, limit int) ([]*domain.InsiderRecord, error) {
	records, err := s.records.FindAllRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	return leaderboard.Page(records, offset, limit), nil
}

// TopCompanies returns the distinct tickers of the highest-ranked insiders,
// the composite the portfolio ledger compares against.
func (s *ScoringService) TopCompanies(ctx context.Context, n int) ([]string, error) {
	records, err := s.records.FindAllRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	return leaderboard.TopCompanies(records, n), nil
}
