package engine

import (
	"errors"

	"github.com/nao1215/seocheck/internal/router"
)

var (
	// ErrSeedRequired is returned by New when the seed URL is empty.
	ErrSeedRequired = errors.New("requires a valid URL")

	// ErrInvalidSeed is returned by New when the seed URL cannot be normalized.
	ErrInvalidSeed = errors.New("invalid seed URL")

	// ErrAlreadyRunning is returned by Start when a crawl is in progress.
	ErrAlreadyRunning = errors.New("crawl already running")

	// ErrNotStarted is returned by Wait before the first Start.
	ErrNotStarted = errors.New("crawl not started")

	// ErrStopped is the result of a crawl ended by Stop.
	ErrStopped = errors.New("crawl stopped")

	// ErrSiteNotFound is the result of a crawl whose seed host did not resolve.
	ErrSiteNotFound = router.ErrSiteNotFound
)
