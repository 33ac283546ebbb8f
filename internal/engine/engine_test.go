package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/seocheck/internal/config"
	"github.com/nao1215/seocheck/internal/crawler"
	"github.com/nao1215/seocheck/internal/fetcher"
	"github.com/nao1215/seocheck/internal/model"
	"github.com/nao1215/seocheck/internal/router"
)

// fakeCrawler is a crawler.Crawler backed by a function.
type fakeCrawler struct {
	run func(ctx context.Context, emit func(crawler.Event)) error
}

func (f *fakeCrawler) Run(ctx context.Context, emit func(crawler.Event)) error {
	return f.run(ctx, emit)
}

func crawlerOf(run func(ctx context.Context, emit func(crawler.Event)) error) crawler.Factory {
	return func(*url.URL, *config.Config) (crawler.Crawler, error) {
		return &fakeCrawler{run: run}, nil
	}
}

// emitAll returns a crawler run that emits events and finishes.
func emitAll(events ...crawler.Event) func(context.Context, func(crawler.Event)) error {
	return func(_ context.Context, emit func(crawler.Event)) error {
		for _, ev := range events {
			emit(ev)
		}
		emit(crawler.Event{Kind: crawler.EventDone})
		return nil
	}
}

// mockProber is a checker.Prober backed by a function.
type mockProber struct {
	existsFunc func(ctx context.Context, url string) (bool, error)
}

func (m *mockProber) Exists(ctx context.Context, url string) (bool, error) {
	return m.existsFunc(ctx, url)
}

// mockGrader is a checker.Grader backed by a function.
type mockGrader struct {
	gradeFunc func(ctx context.Context, host string) (*model.HostGrade, error)
}

func (m *mockGrader) Grade(ctx context.Context, host string) (*model.HostGrade, error) {
	return m.gradeFunc(ctx, host)
}

func noFiles() *mockProber {
	return &mockProber{existsFunc: func(context.Context, string) (bool, error) { return false, nil }}
}

func grades(gs ...string) *mockGrader {
	return &mockGrader{gradeFunc: func(_ context.Context, host string) (*model.HostGrade, error) {
		hg := &model.HostGrade{Host: host}
		for _, g := range gs {
			hg.Endpoints = append(hg.Endpoints, model.Endpoint{Grade: g})
		}
		return hg, nil
	}}
}

// newTestEngine creates an engine whose checks never touch the network.
func newTestEngine(t *testing.T, seed string, opts ...Option) *Engine {
	t.Helper()
	base := []Option{WithProber(noFiles()), WithGrader(grades("A"))}
	e, err := New(seed, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// recorder collects published events.
type recorder struct {
	mu      sync.Mutex
	adds    []string
	ignores []model.IgnoreEvent
	errs    []model.ErrorEvent
	dones   []*model.Report
}

func record(e *Engine) *recorder {
	r := &recorder{}
	e.OnAdd(func(u string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.adds = append(r.adds, u)
	})
	e.OnIgnore(func(ev model.IgnoreEvent) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.ignores = append(r.ignores, ev)
	})
	e.OnError(func(ev model.ErrorEvent) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.errs = append(r.errs, ev)
	})
	e.OnDone(func(rep *model.Report) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.dones = append(r.dones, rep)
	})
	return r
}

func (r *recorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.adds) + len(r.ignores) + len(r.errs) + len(r.dones)
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestNew tests engine construction.
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("valid seed never errors", func(t *testing.T) {
		t.Parallel()

		for _, seed := range []string{"http://example.com", "https://www.example.com/", "example.com/blog"} {
			if _, err := New(seed); err != nil {
				t.Errorf("New(%q): unexpected error: %v", seed, err)
			}
		}
	})

	t.Run("empty seed is rejected", func(t *testing.T) {
		t.Parallel()

		for _, seed := range []string{"", "   "} {
			_, err := New(seed)
			if !errors.Is(err, ErrSeedRequired) {
				t.Errorf("New(%q): expected ErrSeedRequired, got %v", seed, err)
			}
		}
		if ErrSeedRequired.Error() != "requires a valid URL" {
			t.Errorf("unexpected message %q", ErrSeedRequired.Error())
		}
	})

	t.Run("schemeless seed gets http", func(t *testing.T) {
		t.Parallel()

		e := newTestEngine(t, "Example.com/blog/")
		if e.Site() != "http://example.com/blog/" {
			t.Errorf("unexpected site %q", e.Site())
		}
	})

	t.Run("upper-case scheme keeps the seed host", func(t *testing.T) {
		t.Parallel()

		e := newTestEngine(t, "HTTPS://Example.com/")
		if e.Site() != "https://example.com/" {
			t.Errorf("unexpected site %q", e.Site())
		}
	})

	t.Run("seed without host is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := New("http://")
		if !errors.Is(err, ErrInvalidSeed) {
			t.Errorf("expected ErrInvalidSeed, got %v", err)
		}
		if !errors.Is(err, fetcher.ErrInvalidURL) {
			t.Errorf("expected the normalizer error to be kept, got %v", err)
		}
	})

	t.Run("invalid configuration is rejected", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.Timeout = 0
		_, err := New("example.com", WithConfig(cfg))
		if !errors.Is(err, config.ErrInvalidTimeout) {
			t.Errorf("expected ErrInvalidTimeout, got %v", err)
		}
	})

	t.Run("configuration is copied", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		e := newTestEngine(t, "example.com", WithConfig(cfg))
		cfg.MaxDepth = 42
		if e.Config().MaxDepth != config.DefaultMaxDepth {
			t.Errorf("expected engine config to be unaffected, got depth %d", e.Config().MaxDepth)
		}
	})
}

// TestEngineCrawl tests a complete crawl from events to report.
func TestEngineCrawl(t *testing.T) {
	t.Parallel()

	seed := "http://example.com/"
	events := []crawler.Event{
		{Kind: crawler.EventComplete, URL: seed, Body: []byte("<html><title>Home</title></html>")},
		{Kind: crawler.EventComplete, URL: seed + "hidden", Body: []byte(`<meta name="robots" content="noindex">`)},
		{Kind: crawler.EventNotFound, URL: seed + "missing"},
		{Kind: crawler.EventDisallowed, URL: seed + "private"},
		{Kind: crawler.EventComplete, URL: "::bad", Body: []byte("x")},
	}

	e := newTestEngine(t, seed, WithCrawler(crawlerOf(emitAll(events...))), WithGrader(grades("A", "", "B")))
	rec := record(e)

	if err := e.Start(t.Context()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	report, err := e.Wait(waitCtx(t))
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if e.State() != StateIdle {
		t.Errorf("expected idle after the report, got %s", e.State())
	}
	if report.Site != seed {
		t.Errorf("unexpected site %q", report.Site)
	}
	if report.PageCount() != 1 || report.Pages[0].URL != seed {
		t.Errorf("expected only the seed page, got %+v", report.Pages)
	}

	sitemap := report.Issues.Notices.Sitemap
	if sitemap.Value != false || sitemap.Summary != "Sitemap.xml not found" {
		t.Errorf("unexpected sitemap result %+v", sitemap)
	}
	ssl := report.Issues.Warnings.SSL
	if !slices.Equal(ssl.Grades, []string{"A", "B"}) || ssl.Summary != "" {
		t.Errorf("unexpected ssl result %+v", ssl)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !slices.Equal(rec.adds, []string{seed}) {
		t.Errorf("unexpected add events %v", rec.adds)
	}
	wantIgnores := []model.IgnoreEvent{
		{URL: seed + "hidden", Reason: model.IgnoreNoIndex},
		{URL: seed + "private", Reason: model.IgnoreDisallowed},
	}
	if !slices.Equal(rec.ignores, wantIgnores) {
		t.Errorf("unexpected ignore events %v", rec.ignores)
	}
	wantErrs := []model.ErrorEvent{
		{Code: 404, Message: "Not Found", URL: seed + "missing"},
		{Code: 404, Message: "Not Found", URL: "::bad"},
	}
	if !slices.Equal(rec.errs, wantErrs) {
		t.Errorf("unexpected error events %v", rec.errs)
	}
	if len(rec.dones) != 1 || rec.dones[0] != report {
		t.Errorf("expected the report to be published once, got %d", len(rec.dones))
	}

	pages := e.Pages()
	if len(pages) != 1 || pages[0].URL != seed {
		t.Errorf("unexpected pages %v", pages)
	}
}

// TestEngineStop tests stopping.
func TestEngineStop(t *testing.T) {
	t.Parallel()

	t.Run("stop while idle is silent", func(t *testing.T) {
		t.Parallel()

		e := newTestEngine(t, "example.com")
		rec := record(e)

		if err := e.Stop(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if e.State() != StateIdle {
			t.Errorf("expected idle, got %s", e.State())
		}
		if rec.total() != 0 {
			t.Error("expected no events")
		}
		if _, err := e.Wait(t.Context()); !errors.Is(err, ErrNotStarted) {
			t.Errorf("expected ErrNotStarted, got %v", err)
		}
	})

	t.Run("start while crawling is rejected", func(t *testing.T) {
		t.Parallel()

		added := make(chan struct{}, 1)
		blocking := func(ctx context.Context, emit func(crawler.Event)) error {
			emit(crawler.Event{Kind: crawler.EventComplete, URL: "http://example.com/", Body: []byte("x")})
			<-ctx.Done()
			// Events after Stop are dropped.
			emit(crawler.Event{Kind: crawler.EventComplete, URL: "http://example.com/late", Body: []byte("x")})
			return ctx.Err()
		}
		e := newTestEngine(t, "example.com", WithCrawler(crawlerOf(blocking)))
		rec := record(e)
		e.OnAdd(func(string) { added <- struct{}{} })

		if err := e.Start(t.Context()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		<-added

		if e.State() != StateCrawling {
			t.Errorf("expected crawling, got %s", e.State())
		}
		if err := e.Start(t.Context()); !errors.Is(err, ErrAlreadyRunning) {
			t.Errorf("expected ErrAlreadyRunning, got %v", err)
		}
		if n := len(e.Pages()); n != 1 {
			t.Errorf("expected 1 page, got %d", n)
		}

		if err := e.Stop(); err != nil {
			t.Fatalf("Stop: %v", err)
		}
		if e.State() != StateIdle {
			t.Errorf("expected idle after stop, got %s", e.State())
		}
		if _, err := e.Wait(waitCtx(t)); !errors.Is(err, ErrStopped) {
			t.Errorf("expected ErrStopped, got %v", err)
		}
		if n := len(e.Pages()); n != 1 {
			t.Errorf("expected pages to survive stop, got %d", n)
		}

		rec.mu.Lock()
		defer rec.mu.Unlock()
		if len(rec.dones) != 0 {
			t.Error("expected no report after stop")
		}
		if len(rec.adds) != 1 {
			t.Errorf("expected 1 add event, got %v", rec.adds)
		}
	})

	t.Run("handler may stop the crawl and later events are dropped", func(t *testing.T) {
		t.Parallel()

		seed := "http://example.com/"
		e := newTestEngine(t, seed, WithCrawler(crawlerOf(emitAll(
			crawler.Event{Kind: crawler.EventComplete, URL: seed, Body: []byte("x")},
			crawler.Event{Kind: crawler.EventNotFound, URL: seed + "missing"},
			crawler.Event{Kind: crawler.EventComplete, URL: seed + "about", Body: []byte("x")},
		))))
		rec := record(e)
		e.OnAdd(func(string) { _ = e.Stop() })

		if err := e.Start(t.Context()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if _, err := e.Wait(waitCtx(t)); !errors.Is(err, ErrStopped) {
			t.Errorf("expected ErrStopped, got %v", err)
		}

		rec.mu.Lock()
		defer rec.mu.Unlock()
		if !slices.Equal(rec.adds, []string{seed}) || len(rec.errs) != 0 || len(rec.dones) != 0 {
			t.Errorf("expected only the first add, got adds %v errors %v dones %d", rec.adds, rec.errs, len(rec.dones))
		}
	})

	t.Run("events of a stopped run are not published", func(t *testing.T) {
		t.Parallel()

		e := newTestEngine(t, "example.com")
		rec := record(e)
		r := &run{cancel: func() {}}
		r.stopped.Store(true)
		sink := &runSink{engine: e, run: r}

		sink.Add("http://example.com/")
		sink.Ignore(model.IgnoreEvent{URL: "http://example.com/a", Reason: model.IgnoreNoIndex})
		sink.Error(model.NewErrorEvent(404, "http://example.com/b"))

		if rec.total() != 0 {
			t.Errorf("expected no events, got %d", rec.total())
		}
	})

	t.Run("cancelled start context ends the crawl", func(t *testing.T) {
		t.Parallel()

		blocking := func(ctx context.Context, _ func(crawler.Event)) error {
			<-ctx.Done()
			return ctx.Err()
		}
		e := newTestEngine(t, "example.com", WithCrawler(crawlerOf(blocking)))

		ctx, cancel := context.WithCancel(t.Context())
		if err := e.Start(ctx); err != nil {
			t.Fatalf("Start: %v", err)
		}
		cancel()

		if _, err := e.Wait(waitCtx(t)); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if e.State() != StateIdle {
			t.Errorf("expected idle, got %s", e.State())
		}
	})
}

// TestEngineRestart tests that a new crawl discards the previous pages.
func TestEngineRestart(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	run := func(_ context.Context, emit func(crawler.Event)) error {
		n := calls.Add(1)
		for i := range n {
			emit(crawler.Event{
				Kind: crawler.EventComplete,
				URL:  fmt.Sprintf("http://example.com/%d", i),
				Body: []byte("x"),
			})
		}
		emit(crawler.Event{Kind: crawler.EventDone})
		return nil
	}
	e := newTestEngine(t, "example.com", WithCrawler(crawlerOf(run)))

	for want := 1; want <= 2; want++ {
		if err := e.Start(t.Context()); err != nil {
			t.Fatalf("Start %d: %v", want, err)
		}
		report, err := e.Wait(waitCtx(t))
		if err != nil {
			t.Fatalf("Wait %d: %v", want, err)
		}
		if report.PageCount() != want || len(e.Pages()) != want {
			t.Errorf("run %d: expected %d pages, got report %d store %d", want, want, report.PageCount(), len(e.Pages()))
		}
	}
}

// TestEngineFatal tests crawls aborted by the error policy.
func TestEngineFatal(t *testing.T) {
	t.Parallel()

	unresolvable := func(ctx context.Context, emit func(crawler.Event)) error {
		emit(crawler.Event{
			Kind: crawler.EventClientError,
			URL:  "http://nowhere.invalid/",
			Err:  fmt.Errorf("%w: no such host", crawler.ErrHostNotFound),
		})
		<-ctx.Done()
		return ctx.Err()
	}

	t.Run("unresolvable site aborts the crawl", func(t *testing.T) {
		t.Parallel()

		e := newTestEngine(t, "http://nowhere.invalid/", WithCrawler(crawlerOf(unresolvable)))
		rec := record(e)

		if err := e.Start(t.Context()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		_, err := e.Wait(waitCtx(t))
		if !errors.Is(err, ErrSiteNotFound) {
			t.Fatalf("expected ErrSiteNotFound, got %v", err)
		}
		if err.Error() != `Site "http://nowhere.invalid/" could not be found.` {
			t.Errorf("unexpected message %q", err.Error())
		}
		if rec.total() != 0 {
			t.Error("expected no events")
		}
		if e.State() != StateIdle {
			t.Errorf("expected idle, got %s", e.State())
		}
	})

	t.Run("policy can turn it into an error event", func(t *testing.T) {
		t.Parallel()

		emitOnly := func(crawler.Event) router.Disposition { return router.Emit }
		run := func(ctx context.Context, emit func(crawler.Event)) error {
			emit(crawler.Event{Kind: crawler.EventClientError, URL: "http://nowhere.invalid/", Err: crawler.ErrHostNotFound})
			emit(crawler.Event{Kind: crawler.EventDone})
			return nil
		}
		e := newTestEngine(t, "http://nowhere.invalid/", WithCrawler(crawlerOf(run)), WithErrorPolicy(emitOnly))
		rec := record(e)

		if err := e.Start(t.Context()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if _, err := e.Wait(waitCtx(t)); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		rec.mu.Lock()
		defer rec.mu.Unlock()
		if len(rec.errs) != 1 || rec.errs[0].Code != http.StatusBadRequest {
			t.Errorf("expected one 400 error event, got %v", rec.errs)
		}
	})

	t.Run("crawler factory error is returned by start", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		factory := func(*url.URL, *config.Config) (crawler.Crawler, error) { return nil, boom }
		e := newTestEngine(t, "example.com", WithCrawler(factory))

		if err := e.Start(t.Context()); !errors.Is(err, boom) {
			t.Errorf("expected factory error, got %v", err)
		}
		if e.State() != StateIdle {
			t.Errorf("expected idle, got %s", e.State())
		}
	})
}

// TestEngineSubscriptions tests On and Off.
func TestEngineSubscriptions(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, "example.com", WithCrawler(crawlerOf(emitAll(
		crawler.Event{Kind: crawler.EventComplete, URL: "http://example.com/", Body: []byte("x")},
	))))

	var first, second atomic.Int32
	sub := e.OnAdd(func(string) { first.Add(1) })
	e.OnAdd(func(string) { second.Add(1) })

	if sub.Event() != EventAdd {
		t.Errorf("unexpected subscription event %q", sub.Event())
	}
	if !e.Off(sub) {
		t.Error("expected Off to remove the handler")
	}
	if e.Off(sub) {
		t.Error("expected second Off to report nothing removed")
	}
	if e.Off(Subscription{}) {
		t.Error("expected zero subscription to remove nothing")
	}
	if got := e.OnDone(nil); got != (Subscription{}) {
		t.Error("expected nil handler to be ignored")
	}
	if e.dones.len() != 0 {
		t.Errorf("expected no done handlers, got %d", e.dones.len())
	}

	if err := e.Start(t.Context()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := e.Wait(waitCtx(t)); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if first.Load() != 0 || second.Load() != 1 {
		t.Errorf("expected only the remaining handler to run, got %d and %d", first.Load(), second.Load())
	}
}

// TestEngineLoad tests the manual page fetch.
func TestEngineLoad(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("page " + r.URL.Path))
	}))
	t.Cleanup(srv.Close)

	t.Run("schemeless URL is fetched over http", func(t *testing.T) {
		t.Parallel()

		e := newTestEngine(t, "example.com")
		got := e.Load(t.Context(), strings.TrimPrefix(srv.URL, "http://")+"/About")
		if got != "page /About" {
			t.Errorf("unexpected body %q", got)
		}
	})

	t.Run("permanent failure returns empty after four attempts", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32
		client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			attempts.Add(1)
			return nil, errors.New("connection refused")
		})}
		e := newTestEngine(t, "example.com", WithHTTPClient(client))

		if got := e.Load(t.Context(), "http://example.com/"); got != "" {
			t.Errorf("expected empty body, got %q", got)
		}
		if attempts.Load() != 4 {
			t.Errorf("expected 4 attempts, got %d", attempts.Load())
		}
	})

	t.Run("retry policy is injectable", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32
		client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			attempts.Add(1)
			return nil, errors.New("connection refused")
		})}
		policy := fetcher.RetryPolicy{MaxAttempts: 2, Backoff: fetcher.NoBackoff()}
		e := newTestEngine(t, "example.com", WithHTTPClient(client), WithRetryPolicy(policy))

		e.Load(t.Context(), "http://example.com/")
		if attempts.Load() != 2 {
			t.Errorf("expected 2 attempts, got %d", attempts.Load())
		}
	})
}

// TestEngineAnalyze tests the manual analysis path.
func TestEngineAnalyze(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><head><title>%s</title></head><body><h1>x</h1></body></html>", r.URL.Path)
	}))
	t.Cleanup(srv.Close)

	urls := []string{srv.URL + "/a", srv.URL + "/b"}
	bodies := []string{
		"<html><head><title>/a</title></head><body><h1>x</h1></body></html>",
		"<html><head><title>/b</title></head><body><h1>x</h1></body></html>",
	}
	e := newTestEngine(t, srv.URL)

	fetched := e.Analyze(t.Context(), urls, nil)
	manual := e.Analyze(t.Context(), urls, bodies)
	if !fetched.OK || !manual.OK {
		t.Fatalf("expected OK outcomes, got %q and %q", fetched.DegradedReason, manual.DegradedReason)
	}

	fetched.Value.GeneratedAt = time.Time{}
	manual.Value.GeneratedAt = time.Time{}
	if !reflect.DeepEqual(fetched.Value, manual.Value) {
		t.Errorf("expected identical reports\nfetched: %+v\nmanual:  %+v", fetched.Value, manual.Value)
	}

	mismatch := e.Analyze(t.Context(), urls, bodies[:1])
	if mismatch.OK {
		t.Error("expected mismatched bodies to fail")
	}
	if e.State() != StateIdle {
		t.Errorf("expected analyze to leave the engine idle, got %s", e.State())
	}
}

// TestStateString tests state names.
func TestStateString(t *testing.T) {
	t.Parallel()

	tests := map[State]string{
		StateIdle:       "idle",
		StateCrawling:   "crawling",
		StateCompleting: "completing",
		State(99):       "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
