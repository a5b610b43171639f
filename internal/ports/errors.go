package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidInput       = errors.New("invalid input parameters")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Ingest Errors
	ErrMalformedRecord = errors.New("malformed disclosure record")
	ErrStaleDisclosure = errors.New("disclosure is older than the lookback window")

	// Alpha / Price Series Errors
	ErrInsufficientHistory = errors.New("price history does not cover the horizon yet")
	ErrInconsistentSeries  = errors.New("gap detected in price series inside required window")
	ErrPriceNotAvailable   = errors.New("close price not available for requested day")

	// Feed / Source Specific Errors
	ErrFeedUnavailable   = errors.New("market data feed is unavailable")
	ErrSourceUnavailable = errors.New("disclosure source is unavailable")
	ErrRateLimited       = errors.New("API rate limit exceeded")

	// Database Specific Errors
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrDBConnection   = errors.New("database connection error")
	ErrQueryFailed    = errors.New("database query failed")
	ErrUpdateFailed   = errors.New("database update failed")
	ErrDeleteFailed   = errors.New("database delete failed")
)

// IsRetryable reports whether err is a temporarily-unavailable condition
// that may resolve once the price feed or disclosure source catches up.
// Malformed input and portfolio command errors are never retryable, so
// callers do not waste retries on permanently invalid data.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrInsufficientHistory) ||
		errors.Is(err, ErrInconsistentSeries) ||
		errors.Is(err, ErrPriceNotAvailable) ||
		errors.Is(err, ErrFeedUnavailable) ||
		errors.Is(err, ErrSourceUnavailable) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout)
}
