package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"insiderAlpha/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Universe / Benchmark
	Universe        []string // Tickers whose insider filings are ingested
	BenchmarkSymbol string   // Benchmark index proxy (e.g. "SPY")

	// Scoring Parameters
	LookbackYears     int     // Trades older than this are ignored at ingest
	WinAlphaThreshold float64 // Primary-horizon alpha above this counts as a win
	MinTradesForScore int     // Below this many trades the composite score is zeroed
	WeightAlpha1y     float64 // Composite score weight: mean 1y alpha
	WeightBuyAlpha    float64 // Composite score weight: 180d buy efficiency
	WeightSellAlpha   float64 // Composite score weight: 180d sell efficiency
	WeightWinRate     float64 // Composite score weight: win rate

	// Ingestion
	FilingsPerSymbol int           // Recent Form 4 filings fetched per ticker per cycle
	RefreshInterval  time.Duration // Delay between scoring cycles

	// EOD Price Feed
	FeedBaseURL           string
	FeedAPIKey            string
	FeedRequestsPerSecond int

	// SEC EDGAR
	EdgarUserAgent         string // SEC requires an identifying User-Agent
	EdgarRequestsPerSecond int

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel // Use the LogLevel type from the logger adapter
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Universe / Benchmark
	universeStr := getEnv("UNIVERSE", "AAPL,TSLA,MSFT,NVDA,META")
	for _, t := range strings.Split(universeStr, ",") {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			cfg.Universe = append(cfg.Universe, t)
		}
	}
	if len(cfg.Universe) == 0 {
		errs = append(errs, "UNIVERSE must list at least one ticker")
	}

	cfg.BenchmarkSymbol = strings.ToUpper(getEnv("BENCHMARK_SYMBOL", "SPY"))
	if cfg.BenchmarkSymbol == "" {
		errs = append(errs, "BENCHMARK_SYMBOL must be set")
	}

	// Scoring Parameters
	cfg.LookbackYears, err = getEnvAsIntRequired("LOOKBACK_YEARS", 3)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid LOOKBACK_YEARS: %v", err))
	} else if cfg.LookbackYears <= 0 {
		errs = append(errs, "LOOKBACK_YEARS must be positive")
	}

	cfg.WinAlphaThreshold, err = getEnvAsFloatRequired("WIN_ALPHA_THRESHOLD", 0.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid WIN_ALPHA_THRESHOLD: %v", err))
	} else if cfg.WinAlphaThreshold < 0 || cfg.WinAlphaThreshold >= 1.0 {
		errs = append(errs, "WIN_ALPHA_THRESHOLD must be in [0.0, 1.0)")
	}

	cfg.MinTradesForScore, err = getEnvAsIntRequired("MIN_TRADES_FOR_SCORE", 3)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_TRADES_FOR_SCORE: %v", err))
	} else if cfg.MinTradesForScore < 0 {
		errs = append(errs, "MIN_TRADES_FOR_SCORE cannot be negative")
	}

	cfg.WeightAlpha1y = getEnvAsFloat("SCORE_WEIGHT_ALPHA_1Y", 0.4)
	cfg.WeightBuyAlpha = getEnvAsFloat("SCORE_WEIGHT_BUY_ALPHA_180D", 0.3)
	cfg.WeightSellAlpha = getEnvAsFloat("SCORE_WEIGHT_SELL_ALPHA_180D", 0.2)
	cfg.WeightWinRate = getEnvAsFloat("SCORE_WEIGHT_WIN_RATE", 0.1)
	if cfg.WeightAlpha1y < 0 || cfg.WeightBuyAlpha < 0 || cfg.WeightSellAlpha < 0 || cfg.WeightWinRate < 0 {
		errs = append(errs, "score weights cannot be negative")
	}
	if cfg.WeightAlpha1y+cfg.WeightBuyAlpha+cfg.WeightSellAlpha+cfg.WeightWinRate <= 0 {
		errs = append(errs, "at least one score weight must be positive")
	}

	// Ingestion
	cfg.FilingsPerSymbol, err = getEnvAsIntRequired("FILINGS_PER_SYMBOL", 40)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid FILINGS_PER_SYMBOL: %v", err))
	} else if cfg.FilingsPerSymbol <= 0 {
		errs = append(errs, "FILINGS_PER_SYMBOL must be positive")
	}

	refreshMinutes := getEnvAsInt("REFRESH_INTERVAL_MINUTES", 60)
	if refreshMinutes <= 0 {
		errs = append(errs, "REFRESH_INTERVAL_MINUTES must be positive")
	}
	cfg.RefreshInterval = time.Duration(refreshMinutes) * time.Minute

	// EOD Price Feed
	cfg.FeedBaseURL = getEnv("FEED_BASE_URL", "https://eodhd.com/api")
	if cfg.FeedBaseURL == "" {
		errs = append(errs, "FEED_BASE_URL must be set")
	}
	cfg.FeedAPIKey = getEnv("FEED_API_KEY", "")
	if cfg.FeedAPIKey == "" {
		errs = append(errs, "FEED_API_KEY must be set")
	}
	cfg.FeedRequestsPerSecond = getEnvAsInt("FEED_RATE_LIMIT", 10)
	if cfg.FeedRequestsPerSecond <= 0 {
		errs = append(errs, "FEED_RATE_LIMIT must be positive")
	}

	// SEC EDGAR
	cfg.EdgarUserAgent = getEnv("EDGAR_USER_AGENT", "")
	if cfg.EdgarUserAgent == "" {
		// SEC rejects requests without an identifying User-Agent
		errs = append(errs, "EDGAR_USER_AGENT must be set (e.g. \"app-name/1.0 contact@example.com\")")
	}
	cfg.EdgarRequestsPerSecond = getEnvAsInt("EDGAR_RATE_LIMIT", 5)
	if cfg.EdgarRequestsPerSecond <= 0 || cfg.EdgarRequestsPerSecond > 10 {
		errs = append(errs, "EDGAR_RATE_LIMIT must be between 1 and 10 (SEC fair-access limit)")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/insider_alpha.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// For non-required fields, the default is acceptable.
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}
