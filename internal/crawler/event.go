package crawler

import (
	"context"
	"net/url"

	"github.com/nao1215/seocheck/internal/config"
)

// EventKind identifies what happened to a crawled URL.
type EventKind int

const (
	// EventComplete means the page was fetched. Body holds the response body.
	EventComplete EventKind = iota

	// EventNotFound means the server answered 404.
	EventNotFound

	// EventTimeout means the request timed out or the server answered 408.
	EventTimeout

	// EventGone means the server answered 410.
	EventGone

	// EventFetchError means the server answered with another error status.
	EventFetchError

	// EventClientError means the request failed before a response arrived.
	// Err holds the cause; it wraps ErrHostNotFound for DNS failures.
	EventClientError

	// EventDisallowed means robots.txt forbids fetching the URL.
	EventDisallowed

	// EventDone means the crawl finished. It is the last event of a run.
	EventDone
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventComplete:
		return "complete"
	case EventNotFound:
		return "not_found"
	case EventTimeout:
		return "timeout"
	case EventGone:
		return "gone"
	case EventFetchError:
		return "fetch_error"
	case EventClientError:
		return "client_error"
	case EventDisallowed:
		return "disallowed"
	case EventDone:
		return "done"
	default:
		return "unknown"
	}
}

// Event is one crawl outcome.
type Event struct {
	// Kind is what happened.
	Kind EventKind

	// URL is the URL the event refers to.
	URL string

	// StatusCode is the response status, when a response was received.
	StatusCode int

	// ContentType is the response Content-Type, for EventComplete.
	ContentType string

	// Body is the response body, for EventComplete.
	Body []byte

	// Err is the transport error, for EventClientError and EventTimeout.
	Err error
}

// Crawler crawls one site and reports every outcome through emit.
// Run returns after emitting EventDone, or early with the context error
// when ctx is cancelled. emit is never called concurrently.
type Crawler interface {
	Run(ctx context.Context, emit func(Event)) error
}

// Factory creates a Crawler for one run starting at seed.
// cfg already carries the overrides for the seed host.
type Factory func(seed *url.URL, cfg *config.Config) (Crawler, error)
