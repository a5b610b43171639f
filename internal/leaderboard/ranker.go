package leaderboard

import (
	"sort"

	"insiderAlpha/internal/domain"
)

// Rank returns the records ordered for display: descending by composite
// score, ties broken by descending trade count (more evidence ranks
// higher), then ascending insider ID for full determinism. The input slice
// is never modified; the ranker is a pure view over a snapshot of records
// and holds no state of its own.
func Rank(records []*domain.InsiderRecord) []*domain.InsiderRecord {
	ranked := make([]*domain.InsiderRecord, len(records))
	copy(ranked, records)
	sort.Slice(ranked, func(i, j int) bool {
		return less(ranked[i], ranked[j])
	})
	return ranked
}

// Page returns one page of the ranked order. Offsets past the end yield an
// empty page; a non-positive limit yields everything from offset on.
func Page(records []*domain.InsiderRecord, offset, limit int) []*domain.InsiderRecord {
	ranked := Rank(records)
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ranked) {
		return []*domain.InsiderRecord{}
	}
	end := len(ranked)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return ranked[offset:end]
}

// TopCompanies returns the distinct company tickers of the top-ranked
// insiders, in rank order. The portfolio ledger uses this set as the
// equal-weighted "insider composite" comparison series.
func TopCompanies(records []*domain.InsiderRecord, n int) []string {
	seen := make(map[string]bool)
	companies := make([]string, 0, n)
	for _, rec := range Rank(records) {
		if n > 0 && len(companies) >= n {
			break
		}
		if rec.Company == "" || seen[rec.Company] {
			continue
		}
		seen[rec.Company] = true
		companies = append(companies, rec.Company)
	}
	return companies
}

// less is the total order over records: no two records with different
// (score, totalTrades, insiderID) tuples compare equal.
func less(a, b *domain.InsiderRecord) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.TotalTrades != b.TotalTrades {
		return a.TotalTrades > b.TotalTrades
	}
	return a.InsiderID < b.InsiderID
}
