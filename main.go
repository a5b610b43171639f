package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"insiderAlpha/config"
	"insiderAlpha/internal/adapters/edgar"
	"insiderAlpha/internal/adapters/eodfeed"
	"insiderAlpha/internal/adapters/logger"
	"insiderAlpha/internal/adapters/sqlite"
	"insiderAlpha/internal/app"
)

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
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err) // Also log to stderr
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()
	appLogger.Info(context.Background(), "Database repository initialized")

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
	appLogger.Info(context.Background(), "EDGAR client initialized")

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
	appLogger.Info(context.Background(), "EOD price feed initialized")

	// 6. Initialize Application Service
	scoringService, err := app.NewScoringService(
		cfg,
		appLogger,
		edgarClient, // Pass the concrete implementation, service expects the interface
		feedClient,  // Pass the concrete implementation, service expects the interface
		repo,        // Pass the concrete implementation, service expects the interface
		repo,        // Pass the concrete implementation, service expects the interface
		repo,        // Pass the concrete implementation, service expects the interface
	)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize scoring service")
		log.Fatalf("FATAL: Failed to initialize scoring service: %v", err)
	}
	appLogger.Info(context.Background(), "Scoring service initialized")

	// 7. Start the Service
	// Use context.Background() as the base context for the application run
	if err := scoringService.Start(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "Scoring service exited with error")
		log.Fatalf("FATAL: Scoring service exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
