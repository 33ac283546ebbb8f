package router

import (
	"errors"
	"fmt"
)

var (
	// ErrSiteNotFound is the cause of a run aborted because the site host
	// could not be resolved.
	ErrSiteNotFound = errors.New("site could not be found")

	// ErrFatalEvent is the cause of a run aborted by an ErrorPolicy for any
	// other reason.
	ErrFatalEvent = errors.New("fatal crawl event")
)

// SiteNotFoundError reports the seed URL of a site whose host did not
// resolve. It matches ErrSiteNotFound with errors.Is.
type SiteNotFoundError struct {
	// Site is the seed URL.
	Site string

	// Err is the underlying resolution error.
	Err error
}

func (e *SiteNotFoundError) Error() string {
	return fmt.Sprintf("Site %q could not be found.", e.Site)
}

// Unwrap returns ErrSiteNotFound and the resolution error.
func (e *SiteNotFoundError) Unwrap() []error {
	return []error{ErrSiteNotFound, e.Err}
}
