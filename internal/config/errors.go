package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and ParseCIDs, and can be
// matched with errors.Is().
var (
	// ErrNoTarget is returned when no compound identifier is specified.
	ErrNoTarget = errors.New("no target specified: provide at least one compound identifier (CID)")

	// ErrInvalidCID is returned when an argument is not a positive integer.
	ErrInvalidCID = errors.New("invalid compound identifier: must be a positive integer")

	// ErrInvalidBaseURL is returned when the PubChem base URL is empty or
	// not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("invalid base URL: must be an absolute http or https URL")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDelay is returned when the delay bounds are negative or
	// the minimum exceeds the maximum.
	ErrInvalidDelay = errors.New("invalid delay: min and max must be non-negative and min <= max")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidRetries is returned when the retry count is negative.
	ErrInvalidRetries = errors.New("invalid retries: must be non-negative")

	// ErrInvalidRateLimit is returned when the rate limit is negative.
	// Use 0 to disable client-side limiting.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrConflictingReportFormats is returned when more than one of --json,
	// --markdown and --text is specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: choose one of --json, --markdown, --text")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidCacheTTL is returned when the cache TTL is negative.
	ErrInvalidCacheTTL = errors.New("invalid cache TTL: must be non-negative")
)
