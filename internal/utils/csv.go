package utils

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"insiderAlpha/internal/domain"
)

func WriteLeaderboardToCSV(records []*domain.InsiderRecord, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"insider_id", "name", "company", "score", "total_trades", "buys", "sells", "win_rate", "alpha_30d", "alpha_90d", "alpha_180d", "alpha_1y", "buy_alpha_180d", "sell_alpha_180d", "last_updated"})

	for _, r := range records {
		writer.Write([]string{
			r.InsiderID,
			r.Name,
			r.Company,
			strconv.FormatFloat(r.Score, 'f', -1, 64),
			strconv.Itoa(r.TotalTrades),
			strconv.Itoa(r.TotalBuys),
			strconv.Itoa(r.TotalSells),
			strconv.FormatFloat(r.WinRate, 'f', -1, 64),
			strconv.FormatFloat(r.Alpha30d, 'f', -1, 64),
			strconv.FormatFloat(r.Alpha90d, 'f', -1, 64),
			strconv.FormatFloat(r.Alpha180d, 'f', -1, 64),
			strconv.FormatFloat(r.Alpha1y, 'f', -1, 64),
			strconv.FormatFloat(r.BuyAlpha180d, 'f', -1, 64),
			strconv.FormatFloat(r.SellAlpha180d, 'f', -1, 64),
			r.LastUpdated.Format(time.RFC3339),
		})
	}
	return writer.Error()
}
