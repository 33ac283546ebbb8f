package router

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/nao1215/seocheck/internal/crawler"
	"github.com/nao1215/seocheck/internal/fetcher"
	"github.com/nao1215/seocheck/internal/log"
	"github.com/nao1215/seocheck/internal/metrics"
	"github.com/nao1215/seocheck/internal/model"
)

// Disposition is what happens to a crawler error event.
type Disposition int

const (
	// Emit publishes the error as an error event; the crawl continues.
	Emit Disposition = iota

	// Absorb drops the error silently; the crawl continues.
	Absorb

	// Fatal aborts the run.
	Fatal
)

// ErrorPolicy decides the disposition of a crawler error event.
type ErrorPolicy func(crawler.Event) Disposition

// DefaultErrorPolicy aborts the run when the host cannot be resolved and
// emits every other error.
func DefaultErrorPolicy(ev crawler.Event) Disposition {
	if ev.Kind == crawler.EventClientError && errors.Is(ev.Err, crawler.ErrHostNotFound) {
		return Fatal
	}
	return Emit
}

// Sink receives the routed events. The engine implements it.
type Sink interface {
	Add(url string)
	Ignore(ev model.IgnoreEvent)
	Error(ev model.ErrorEvent)
	Done()
	Fatal(err error)
}

// noIndexPattern matches a meta tag carrying a noindex directive.
var noIndexPattern = regexp.MustCompile(`(?is)<meta[^>]*noindex[^>]*>`)

// Router routes the events of one crawl run.
type Router struct {
	site    string
	policy  ErrorPolicy
	store   *PageStore
	sink    Sink
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Router.
type Option func(*Router)

// WithErrorPolicy replaces DefaultErrorPolicy.
func WithErrorPolicy(policy ErrorPolicy) Option {
	return func(r *Router) {
		if policy != nil {
			r.policy = policy
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = log.OrDiscard(logger)
	}
}

// WithMetrics counts routed events in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// New creates a Router for the crawl of site. Accepted pages are appended
// to store and every outcome is delivered to sink.
func New(site string, store *PageStore, sink Sink, opts ...Option) *Router {
	r := &Router{
		site:   site,
		policy: DefaultErrorPolicy,
		store:  store,
		sink:   sink,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle routes one crawler event. It must not be called concurrently.
func (r *Router) Handle(ev crawler.Event) {
	switch ev.Kind {
	case crawler.EventNotFound:
		r.handleError(ev, model.NewErrorEvent(http.StatusNotFound, ev.URL))
	case crawler.EventTimeout:
		r.handleError(ev, model.NewErrorEvent(http.StatusRequestTimeout, ev.URL))
	case crawler.EventGone:
		r.handleError(ev, model.NewErrorEvent(http.StatusGone, ev.URL))
	case crawler.EventFetchError:
		r.handleError(ev, model.NewErrorEvent(ev.StatusCode, ev.URL))
	case crawler.EventClientError:
		msg := http.StatusText(http.StatusBadRequest)
		if ev.Err != nil {
			msg = ev.Err.Error()
		}
		r.handleError(ev, model.ErrorEvent{Code: http.StatusBadRequest, Message: msg, URL: ev.URL})
	case crawler.EventDisallowed:
		r.ignore(ev.URL, model.IgnoreDisallowed)
	case crawler.EventComplete:
		r.handleComplete(ev)
	case crawler.EventDone:
		r.logger.Debug("crawl finished", "site", r.site, "pages", r.store.Len())
		r.sink.Done()
	default:
		r.logger.Warn("unknown crawler event", "kind", ev.Kind, "url", ev.URL)
	}
}

func (r *Router) handleComplete(ev crawler.Event) {
	switch {
	case noIndexPattern.Match(ev.Body):
		r.ignore(ev.URL, model.IgnoreNoIndex)
	case fetcher.IsValidURL(ev.URL):
		r.store.Append(model.PageRecord{URL: ev.URL, Body: string(ev.Body)})
		r.metrics.PageAdded()
		r.logger.Debug("page added", "url", ev.URL)
		r.sink.Add(ev.URL)
	default:
		r.emitError(model.NewErrorEvent(http.StatusNotFound, ev.URL))
	}
}

func (r *Router) handleError(ev crawler.Event, errEv model.ErrorEvent) {
	switch r.policy(ev) {
	case Absorb:
		r.logger.Debug("crawl error absorbed", "url", ev.URL, "kind", ev.Kind)
	case Fatal:
		r.sink.Fatal(r.fatalError(ev))
	default:
		r.emitError(errEv)
	}
}

func (r *Router) fatalError(ev crawler.Event) error {
	if errors.Is(ev.Err, crawler.ErrHostNotFound) {
		return &SiteNotFoundError{Site: r.site, Err: ev.Err}
	}
	if ev.Err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrFatalEvent, ev.Kind, ev.URL, ev.Err)
	}
	return fmt.Errorf("%w: %s %s", ErrFatalEvent, ev.Kind, ev.URL)
}

func (r *Router) emitError(ev model.ErrorEvent) {
	r.metrics.CrawlError(ev.Code)
	r.logger.Debug("crawl error", "url", ev.URL, "code", ev.Code)
	r.sink.Error(ev)
}

func (r *Router) ignore(url string, reason model.IgnoreReason) {
	r.metrics.PageIgnored(string(reason))
	r.logger.Debug("page ignored", "url", url, "reason", reason)
	r.sink.Ignore(model.IgnoreEvent{URL: url, Reason: reason})
}
