package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nao1215/seocheck/internal/aggregator"
	"github.com/nao1215/seocheck/internal/analyzer"
	"github.com/nao1215/seocheck/internal/checker"
	"github.com/nao1215/seocheck/internal/config"
	"github.com/nao1215/seocheck/internal/crawler"
	"github.com/nao1215/seocheck/internal/fetcher"
	"github.com/nao1215/seocheck/internal/log"
	"github.com/nao1215/seocheck/internal/metrics"
	"github.com/nao1215/seocheck/internal/model"
	"github.com/nao1215/seocheck/internal/router"
)

// Engine crawls one site and reports on it.
// All methods are safe for concurrent use.
type Engine struct {
	seed    *url.URL
	site    string
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	factory     crawler.Factory
	fetcher     *fetcher.Fetcher
	aggregator  *aggregator.Aggregator
	errorPolicy router.ErrorPolicy

	adds    topic[string]
	ignores topic[model.IgnoreEvent]
	errs    topic[model.ErrorEvent]
	dones   topic[*model.Report]
	nextSub atomic.Uint64

	mu      sync.Mutex
	state   State
	current *run
	last    *run
	store   *router.PageStore
}

// run is one Start call.
type run struct {
	cancel  context.CancelFunc
	store   *router.PageStore
	done    chan struct{}
	stopped atomic.Bool

	// fatal is set by the router when the crawl must abort.
	fatalMu sync.Mutex
	fatal   error

	// report and err are the result, valid once done is closed.
	report *model.Report
	err    error
}

func (r *run) setFatal(err error) {
	r.fatalMu.Lock()
	defer r.fatalMu.Unlock()
	if r.fatal == nil {
		r.fatal = err
	}
}

func (r *run) fatalErr() error {
	r.fatalMu.Lock()
	defer r.fatalMu.Unlock()
	return r.fatal
}

// New creates an Engine for seed. A seed without scheme gets "http://".
func New(seed string, opts ...Option) (*Engine, error) {
	if strings.TrimSpace(seed) == "" {
		return nil, ErrSeedRequired
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	site, err := fetcher.Normalize(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	u, err := url.Parse(site)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}

	base := o.cfg
	if base == nil {
		base = config.NewConfig()
	}
	cfg := base.ForSite(u.Hostname())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := log.OrDiscard(o.logger).With("site", site)
	client := o.client
	if client == nil {
		client = &http.Client{}
	}

	fetchOpts := []fetcher.Option{
		fetcher.WithHTTPClient(client),
		fetcher.WithHeaders(cfg.HeadersFor(u.Hostname())),
		fetcher.WithLogger(logger),
		fetcher.WithMetrics(o.metrics),
	}
	if o.retry != nil {
		fetchOpts = append(fetchOpts, fetcher.WithRetryPolicy(*o.retry))
	}
	f := fetcher.NewFromConfig(cfg, fetchOpts...)

	prober := o.prober
	if prober == nil {
		prober = checker.NewHTTPProber(client, checker.WithProberUserAgent(cfg.UserAgent))
	}
	grader := o.grader
	if grader == nil {
		grader = checker.NewHandshakeGrader(checker.WithDialTimeout(cfg.CheckTimeout))
	}
	checks := checker.New(prober, grader,
		checker.WithTimeout(cfg.CheckTimeout),
		checker.WithUserAgent(cfg.UserAgent),
		checker.WithLogger(logger),
		checker.WithMetrics(o.metrics),
	)

	pa := o.analyzer
	if pa == nil {
		pa = analyzer.NewCoordinator(analyzer.WithLogger(logger))
	}

	factory := o.factory
	if factory == nil {
		factory = crawler.NewFactory(client, logger)
	}

	return &Engine{
		seed:        u,
		site:        site,
		cfg:         cfg,
		logger:      logger,
		metrics:     o.metrics,
		factory:     factory,
		fetcher:     f,
		errorPolicy: o.errorPolicy,
		aggregator: aggregator.New(site, f, checks, pa,
			aggregator.WithConcurrency(cfg.MaxConcurrency),
			aggregator.WithLogger(logger),
			aggregator.WithMetrics(o.metrics),
		),
		store: router.NewPageStore(),
	}, nil
}

// Site returns the normalized seed URL.
func (e *Engine) Site() string {
	return e.site
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg.Clone()
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start begins a crawl in the background and returns immediately.
// The pages of the previous crawl are discarded. Cancelling ctx stops the
// crawl like Stop does.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return ErrAlreadyRunning
	}

	c, err := e.factory(e.seed, e.cfg.Clone())
	if err != nil {
		return fmt.Errorf("create crawler: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		cancel: cancel,
		store:  router.NewPageStore(),
		done:   make(chan struct{}),
	}
	e.state = StateCrawling
	e.current = r
	e.last = r
	e.store = r.store

	e.metrics.CrawlStarted()
	e.logger.Info("crawl started", "max_depth", e.cfg.MaxDepth, "max_concurrency", e.cfg.MaxConcurrency)

	go e.crawl(runCtx, r, c)
	return nil
}

// Stop cancels the running crawl. Pages collected so far stay available
// through Pages; no report is built. Stop while idle does nothing.
// Stop does not wait for handlers: an event whose handlers are already
// running completes, but no event is dispatched after that. Handlers may
// call Stop.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateIdle || e.current == nil {
		return nil
	}

	e.current.stopped.Store(true)
	e.current.cancel()
	e.current = nil
	e.state = StateIdle
	e.logger.Info("crawl stopped")
	return nil
}

// Wait blocks until the last started crawl ends and returns its report.
// It returns ErrStopped for a stopped crawl and ErrSiteNotFound when the
// seed host did not resolve.
func (e *Engine) Wait(ctx context.Context) (*model.Report, error) {
	e.mu.Lock()
	r := e.last
	e.mu.Unlock()

	if r == nil {
		return nil, ErrNotStarted
	}

	select {
	case <-r.done:
		return r.report, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Pages returns the pages accepted by the current or last crawl.
func (e *Engine) Pages() []model.PageRecord {
	e.mu.Lock()
	store := e.store
	e.mu.Unlock()
	return store.Records()
}

// Load fetches one page body, retrying according to the retry policy.
// It returns "" when every attempt failed.
func (e *Engine) Load(ctx context.Context, rawURL string) string {
	return e.fetcher.Load(ctx, rawURL)
}

// Analyze builds a report for urls without crawling. When bodies is nil
// the URLs are fetched first.
func (e *Engine) Analyze(ctx context.Context, urls, bodies []string) model.Outcome[*model.Report] {
	return e.aggregator.Aggregate(ctx, urls, bodies)
}

// OnAdd registers a handler called with the URL of every accepted page.
func (e *Engine) OnAdd(fn func(url string)) Subscription {
	return subscribe(e, &e.adds, EventAdd, fn)
}

// OnIgnore registers a handler called for every ignored page.
func (e *Engine) OnIgnore(fn func(model.IgnoreEvent)) Subscription {
	return subscribe(e, &e.ignores, EventIgnore, fn)
}

// OnError registers a handler called for every per-page crawl error.
func (e *Engine) OnError(fn func(model.ErrorEvent)) Subscription {
	return subscribe(e, &e.errs, EventError, fn)
}

// OnDone registers a handler called with the report of a finished crawl.
// The engine stays in StateCompleting until every done handler returned,
// so a done handler must not call Wait.
func (e *Engine) OnDone(fn func(*model.Report)) Subscription {
	return subscribe(e, &e.dones, EventDone, fn)
}

// Off removes a handler. It reports whether the handler was registered.
func (e *Engine) Off(sub Subscription) bool {
	switch sub.event {
	case EventAdd:
		return e.adds.unsubscribe(sub.id)
	case EventIgnore:
		return e.ignores.unsubscribe(sub.id)
	case EventError:
		return e.errs.unsubscribe(sub.id)
	case EventDone:
		return e.dones.unsubscribe(sub.id)
	default:
		return false
	}
}

func subscribe[T any](e *Engine, t *topic[T], event Event, fn func(T)) Subscription {
	if fn == nil {
		return Subscription{}
	}
	id := e.nextSub.Add(1)
	t.subscribe(id, fn)
	return Subscription{id: id, event: event}
}

// crawl runs the crawler, then builds and publishes the report.
func (e *Engine) crawl(ctx context.Context, r *run, c crawler.Crawler) {
	defer r.cancel()
	start := time.Now()

	rt := router.New(e.site, r.store, &runSink{engine: e, run: r},
		router.WithErrorPolicy(e.errorPolicy),
		router.WithLogger(e.logger),
		router.WithMetrics(e.metrics),
	)

	err := c.Run(ctx, func(ev crawler.Event) {
		// Events racing a Stop or a fatal error are dropped.
		if ctx.Err() != nil || r.stopped.Load() {
			return
		}
		rt.Handle(ev)
	})

	if fatal := r.fatalErr(); fatal != nil {
		e.finish(r, nil, fatal)
		return
	}
	if r.stopped.Load() {
		e.finish(r, nil, ErrStopped)
		return
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			e.finish(r, nil, err)
			return
		}
		e.finish(r, nil, fmt.Errorf("crawl: %w", err))
		return
	}

	e.complete(r)

	records := r.store.Records()
	urls, bodies := model.SplitRecords(records)
	e.logger.Info("crawl finished", "pages", len(records), "elapsed", time.Since(start))

	out := e.aggregator.Aggregate(ctx, urls, bodies)
	if r.stopped.Load() {
		e.finish(r, nil, ErrStopped)
		return
	}
	if !out.OK {
		e.finish(r, nil, out.Err())
		return
	}

	e.dones.publish(out.Value)
	e.finish(r, out.Value, nil)
}

// complete moves a crawling run to StateCompleting.
func (e *Engine) complete(r *run) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == r && e.state == StateCrawling {
		e.state = StateCompleting
	}
}

// finish records the run result and returns the engine to StateIdle.
func (e *Engine) finish(r *run, report *model.Report, err error) {
	e.mu.Lock()
	if e.current == r {
		e.current = nil
		e.state = StateIdle
	}
	r.report = report
	r.err = err
	close(r.done)
	e.mu.Unlock()

	e.metrics.CrawlFinished()
	if err != nil && !errors.Is(err, ErrStopped) {
		e.logger.Warn("crawl failed", "error", err)
	}
}

// runSink delivers the events of one run to the engine subscribers.
type runSink struct {
	engine *Engine
	run    *run
}

// Events of a stopped run are dropped here as well as before routing, so
// only a dispatch already running when Stop was called can still finish.
func (s *runSink) Add(url string) {
	if s.run.stopped.Load() {
		return
	}
	s.engine.adds.publish(url)
}

func (s *runSink) Ignore(ev model.IgnoreEvent) {
	if s.run.stopped.Load() {
		return
	}
	s.engine.ignores.publish(ev)
}

func (s *runSink) Error(ev model.ErrorEvent) {
	if s.run.stopped.Load() {
		return
	}
	s.engine.errs.publish(ev)
}

func (s *runSink) Done() {
	s.engine.complete(s.run)
}

func (s *runSink) Fatal(err error) {
	s.run.setFatal(err)
	s.run.cancel()
}
