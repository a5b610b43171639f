package aggregate

import (
	"fmt"
	"time"

	"insiderAlpha/internal/domain"
	"insiderAlpha/internal/ports"
)

// Weights are the composite score weights applied to an insider's mean
// alphas and win rate. The weighted sum is scaled x100 for readability.
type Weights struct {
	Alpha1y       float64
	BuyAlpha180d  float64
	SellAlpha180d float64
	WinRate       float64
}

// DefaultWeights is the canonical score weighting.
var DefaultWeights = Weights{Alpha1y: 0.4, BuyAlpha180d: 0.3, SellAlpha180d: 0.2, WinRate: 0.1}

// Options configures a record build.
type Options struct {
	// WinThreshold is the primary-horizon alpha a trade must exceed to
	// count as a win. Zero means any positive alpha wins.
	WinThreshold float64
	// MinTrades zeroes the composite score for insiders with fewer trades
	// (too little evidence to rank). Zero disables the gate.
	MinTrades int
	// Weights for the composite score; zero value falls back to DefaultWeights.
	Weights Weights
	// Now is a clock override for tests; defaults to time.Now.
	Now func() time.Time
}

// BuildRecord folds one insider's trades and their resolved alpha samples
// into a single InsiderRecord.
//
// The fold is a pure function of the trade/sample multiset: ingestion order
// never affects the result, so records can be rebuilt from disclosures that
// arrived out of chronological order and always come out identical.
// Unresolved samples (still awaiting price history) are simply absent from
// the horizon means — never counted as zero.
func BuildRecord(trades []*domain.Trade, samples map[int64][]domain.AlphaSample, opts Options) (*domain.InsiderRecord, error) {
	if len(trades) == 0 {
		return nil, fmt.Errorf("cannot build a record from zero trades: %w", ports.ErrInvalidInput)
	}
	insiderID := trades[0].InsiderID
	for _, t := range trades {
		if t.InsiderID != insiderID {
			return nil, fmt.Errorf("trades span insiders %s and %s: %w", insiderID, t.InsiderID, ports.ErrInvalidInput)
		}
	}
	weights := opts.Weights
	if weights == (Weights{}) {
		weights = DefaultWeights
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	rec := &domain.InsiderRecord{InsiderID: insiderID}

	var (
		sums                = make(map[domain.Horizon]float64)
		counts              = make(map[domain.Horizon]int)
		buySum, sellSum     float64
		buyCount, sellCount int
		latest              *domain.Trade
	)

	for _, t := range trades {
		rec.TotalTrades++
		if t.IsBuy() {
			rec.TotalBuys++
		} else {
			rec.TotalSells++
		}
		if latest == nil || filedAfter(t, latest) {
			latest = t
		}

		for _, s := range samples[t.ID] {
			sums[s.Horizon] += s.Alpha
			counts[s.Horizon]++

			if s.Horizon == domain.PrimaryHorizon {
				if t.IsBuy() {
					buySum += s.Alpha
					buyCount++
				} else {
					sellSum += s.Alpha
					sellCount++
				}
				if s.Alpha > opts.WinThreshold {
					rec.Wins++
					if t.IsBuy() {
						rec.BuyWins++
					} else {
						rec.SellWins++
					}
				}
			}
		}
	}

	// Identity comes from the most recent filing so stale names don't stick.
	rec.Name = latest.InsiderName
	rec.Company = latest.Symbol

	rec.Alpha30d = mean(sums[domain.Horizon30d], counts[domain.Horizon30d])
	rec.Alpha90d = mean(sums[domain.Horizon90d], counts[domain.Horizon90d])
	rec.Alpha180d = mean(sums[domain.Horizon180d], counts[domain.Horizon180d])
	rec.Alpha1y = mean(sums[domain.Horizon1y], counts[domain.Horizon1y])
	rec.BuyAlpha180d = mean(buySum, buyCount)
	rec.SellAlpha180d = mean(sellSum, sellCount)
	rec.WinRate = mean(float64(rec.Wins), rec.TotalTrades)

	if opts.MinTrades <= 0 || rec.TotalTrades >= opts.MinTrades {
		rec.Score = (weights.Alpha1y*rec.Alpha1y +
			weights.BuyAlpha180d*rec.BuyAlpha180d +
			weights.SellAlpha180d*rec.SellAlpha180d +
			weights.WinRate*rec.WinRate) * 100.0
	}

	rec.LastUpdated = now()
	return rec, nil
}

// filedAfter reports whether a's filing is more recent than b's, with
// deterministic tie-breaks so the fold stays order-independent.
func filedAfter(a, b *domain.Trade) bool {
	if !a.FilingDate.Equal(b.FilingDate) {
		return a.FilingDate.After(b.FilingDate)
	}
	if !a.TradeDate.Equal(b.TradeDate) {
		return a.TradeDate.After(b.TradeDate)
	}
	return a.AccessionNumber > b.AccessionNumber
}

func mean(sum float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
