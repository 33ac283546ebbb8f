package fetcher

import "errors"

var (
	// ErrRetriesExhausted is the cause of a degraded outcome after every
	// attempt failed.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrInvalidURL is returned for URLs that cannot be normalized into an
	// absolute http(s) URL with a host.
	ErrInvalidURL = errors.New("invalid URL")
)
