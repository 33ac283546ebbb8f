package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so that callers can use
// errors.Is() to react to a specific problem.
var (
	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidCheckTimeout is returned when the auxiliary check timeout is not positive.
	ErrInvalidCheckTimeout = errors.New("invalid check timeout: must be positive")

	// ErrInvalidMaxDepth is returned when the crawl depth is negative.
	// Depth 0 is valid and means only the seed page is fetched.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidMaxConcurrency is returned when the concurrency limit is not positive.
	ErrInvalidMaxConcurrency = errors.New("invalid max concurrency: must be positive")

	// ErrInvalidMaxAttempts is returned when the fetch attempt count is not positive.
	ErrInvalidMaxAttempts = errors.New("invalid max attempts: must be at least 1")

	// ErrInvalidRetryBackoff is returned when the retry backoff is negative.
	ErrInvalidRetryBackoff = errors.New("invalid retry backoff: must be non-negative")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	// Use 0 for no delay between requests.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to fall back to the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidMaxPages is returned when the page limit is negative.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrUnknownReportFormat is returned when the report format is not one of
	// simple, json, markdown or csv.
	ErrUnknownReportFormat = errors.New("unknown report format: use simple, json, markdown or csv")

	// ErrEmptyUserAgent is returned when the User-Agent header would be empty.
	ErrEmptyUserAgent = errors.New("user agent must not be empty")
)
