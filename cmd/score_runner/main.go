package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"insiderAlpha/config"
	"insiderAlpha/internal/adapters/edgar"
	"insiderAlpha/internal/adapters/eodfeed"
	"insiderAlpha/internal/adapters/logger"
	"insiderAlpha/internal/adapters/sqlite"
	"insiderAlpha/internal/app"
	"insiderAlpha/internal/utils"
)

// Runs a single refresh cycle and exports the resulting leaderboard to CSV.
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

	// 5. Initialize Price Feed (EOD Feed Adapter)
	feedClient, err := eodfeed.New(eodfeed.Config{
		BaseURL:           cfg.FeedBaseURL,
		APIKey:            cfg.FeedAPIKey,
		Logger:            appLogger,
		RequestsPerSecond: cfg.FeedRequestsPerSecond,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize EOD price feed")
		log.Fatalf("FATAL: Failed to initialize EOD price feed: %v", err)
	}

	// 6. Initialize Application Service
	scoringService, err := app.NewScoringService(cfg, appLogger, edgarClient, feedClient, repo, repo, repo)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize scoring service")
		log.Fatalf("FATAL: Failed to initialize scoring service: %v", err)
	}

	// 7. Run one cycle and export the ranked leaderboard
	ctx := context.Background()
	if err := scoringService.RunCycle(ctx); err != nil {
		appLogger.Error(ctx, err, "Refresh cycle failed")
		log.Fatalf("Refresh cycle failed: %v", err)
	}

	records, err := scoringService.Leaderboard(ctx, 0, 0)
	if err != nil {
		appLogger.Error(ctx, err, "Error loading leaderboard")
		log.Fatalf("Error loading leaderboard: %v", err)
	}

	filename := fmt.Sprintf("data/leaderboard_%s.csv", time.Now().UTC().Format("20060102"))
	if err := utils.WriteLeaderboardToCSV(records, filename); err != nil {
		appLogger.Error(ctx, err, "Error writing CSV")
		log.Fatalf("Error writing CSV: %v", err)
	}
	appLogger.Info(ctx, "Leaderboard exported", map[string]interface{}{"filename": filename, "insiders": len(records)})
}
