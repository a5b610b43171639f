package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"insiderAlpha/config"
	"insiderAlpha/internal/adapters/edgar"
	"insiderAlpha/internal/adapters/logger"
	"insiderAlpha/internal/adapters/sqlite"
	"insiderAlpha/internal/ingest"
	"insiderAlpha/internal/ports"
)

// One-shot Form 4 ingestion for the configured universe. Useful for seeding
// a fresh database without waiting for the service's refresh loop.
func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStructuredLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer repo.Close()

	// 4. Initialize Disclosure Source (EDGAR Adapter)
	edgarClient, err := edgar.New(edgar.Config{
		UserAgent:         cfg.EdgarUserAgent,
		Logger:            appLogger,
		RequestsPerSecond: cfg.EdgarRequestsPerSecond,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize EDGAR client")
		log.Fatalf("FATAL: Failed to initialize EDGAR client: %v", err)
	}

	normalizer := ingest.New(ingest.Config{LookbackYears: cfg.LookbackYears})

	ctx := context.Background()
	totalInserted := 0
	for _, symbol := range cfg.Universe {
		fmt.Printf("Fetching up to %d Form 4 filings for %s...\n", cfg.FilingsPerSymbol, symbol)
		raws, err := edgarClient.FetchDisclosures(ctx, symbol, cfg.FilingsPerSymbol)
		if err != nil {
			appLogger.Error(ctx, err, "Error fetching disclosures", map[string]interface{}{"symbol": symbol})
			continue
		}

		inserted, dropped, dupes := 0, 0, 0
		for _, raw := range raws {
			trade, err := normalizer.Normalize(raw)
			if err != nil {
				dropped++
				continue
			}
			if _, err := repo.CreateTrade(ctx, trade); err != nil {
				if errors.Is(err, ports.ErrDuplicateEntry) {
					dupes++
					continue
				}
				appLogger.Error(ctx, err, "Error storing trade", map[string]interface{}{"accession": trade.AccessionNumber})
				log.Fatalf("Error storing trade: %v", err)
			}
			inserted++
		}
		totalInserted += inserted
		appLogger.Info(ctx, "Symbol ingested", map[string]interface{}{
			"symbol": symbol, "inserted": inserted, "dropped": dropped, "duplicates": dupes,
		})
	}

	appLogger.Info(ctx, "Ingestion finished", map[string]interface{}{"newTrades": totalInserted})
}
