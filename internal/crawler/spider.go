package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/temoto/robotstxt"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nao1215/seocheck/internal/config"
	"github.com/nao1215/seocheck/internal/log"
)

// Spider crawls one site breadth first and reports every URL as an Event.
type Spider struct {
	seed   *url.URL
	client *http.Client
	logger *slog.Logger

	// maxDepth limits how deep to crawl from the seed.
	// 0 means only the seed page, 1 means one level of links, etc.
	maxDepth int

	// maxPages limits the total number of requests. 0 means no limit.
	maxPages int

	// delay is the minimum interval between two requests.
	delay time.Duration

	// concurrency is the number of in-flight requests per depth level.
	concurrency int

	userAgent           string
	timeout             time.Duration
	maxBodySize         int64
	respectRobots       bool
	downloadUnsupported bool
	headers             map[string]string
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of pages to request.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithDelay sets the minimum interval between requests.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithConcurrency sets the number of concurrent requests.
func WithConcurrency(n int) SpiderOption {
	return func(s *Spider) {
		s.concurrency = n
	}
}

// WithUserAgent sets the User-Agent header and the robots.txt agent name.
func WithUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		s.userAgent = ua
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.timeout = d
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		s.maxBodySize = size
	}
}

// WithRespectRobots controls robots.txt handling.
func WithRespectRobots(respect bool) SpiderOption {
	return func(s *Spider) {
		s.respectRobots = respect
	}
}

// WithDownloadUnsupported makes the spider report non-HTML responses too.
func WithDownloadUnsupported(download bool) SpiderOption {
	return func(s *Spider) {
		s.downloadUnsupported = download
	}
}

// WithHeaders adds extra request headers.
func WithHeaders(headers map[string]string) SpiderOption {
	return func(s *Spider) {
		s.headers = headers
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = log.OrDiscard(logger)
	}
}

// OptionsFromConfig translates cfg into spider options.
func OptionsFromConfig(cfg *config.Config, host string) []SpiderOption {
	return []SpiderOption{
		WithMaxDepth(cfg.MaxDepth),
		WithMaxPages(cfg.MaxPages),
		WithDelay(cfg.CrawlDelay),
		WithConcurrency(cfg.MaxConcurrency),
		WithUserAgent(cfg.UserAgent),
		WithTimeout(cfg.Timeout),
		WithMaxBodySize(cfg.EffectiveMaxBodySize()),
		WithRespectRobots(cfg.RespectRobotsTxt),
		WithDownloadUnsupported(cfg.DownloadUnsupported),
		WithHeaders(cfg.HeadersFor(host)),
	}
}

// NewSpider creates a Spider starting at seed. A nil client uses a new
// http.Client.
func NewSpider(seed *url.URL, client *http.Client, opts ...SpiderOption) *Spider {
	if client == nil {
		client = &http.Client{}
	}
	s := &Spider{
		seed:          seed,
		client:        client,
		logger:        log.Discard(),
		maxDepth:      config.DefaultMaxDepth,
		maxPages:      config.DefaultMaxPages,
		delay:         config.DefaultCrawlDelay,
		concurrency:   config.DefaultMaxConcurrency,
		userAgent:     config.DefaultUserAgent,
		timeout:       config.DefaultTimeout,
		maxBodySize:   config.DefaultMaxBodySize,
		respectRobots: config.DefaultRespectRobotsTxt,
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.concurrency < 1 {
		s.concurrency = 1
	}

	return s
}

// NewFactory returns a Factory that creates spiders sharing client.
func NewFactory(client *http.Client, logger *slog.Logger) Factory {
	return func(seed *url.URL, cfg *config.Config) (Crawler, error) {
		if seed == nil || seed.Host == "" {
			return nil, ErrInvalidSeed
		}
		opts := append(OptionsFromConfig(cfg, seed.Hostname()), WithLogger(logger))
		return NewSpider(seed, client, opts...), nil
	}
}

// run holds the state of one Run call.
type run struct {
	emitMu    sync.Mutex
	emit      func(Event)
	visited   mapset.Set[string]
	requested atomic.Int64
	robots    *robotstxt.Group
	limiter   *rate.Limiter
}

func (r *run) send(ev Event) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	r.emit(ev)
}

// Run crawls the site and emits one event per URL, then EventDone.
func (s *Spider) Run(ctx context.Context, emit func(Event)) error {
	r := &run{
		emit:    emit,
		visited: mapset.NewSet[string](),
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	if s.delay > 0 {
		r.limiter = rate.NewLimiter(rate.Every(s.delay), 1)
	}
	if s.respectRobots {
		r.robots = s.robotsGroup(ctx)
	}

	start := s.seed.String()
	r.visited.Add(visitKey(start))
	frontier := []string{start}

	for depth := 0; len(frontier) > 0; depth++ {
		next := s.crawlLevel(ctx, r, frontier, depth < s.maxDepth)
		if err := ctx.Err(); err != nil {
			return err
		}
		frontier = next
	}

	r.send(Event{Kind: EventDone, URL: start})
	return nil
}

// crawlLevel fetches every URL of one depth level and returns the unvisited
// links found on them, in page order.
func (s *Spider) crawlLevel(ctx context.Context, r *run, frontier []string, follow bool) []string {
	found := make([][]string, len(frontier))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, target := range frontier {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			found[i] = s.visit(ctx, r, target)
			return nil
		})
	}
	_ = g.Wait()

	if !follow {
		return nil
	}

	next := make([]string, 0)
	for _, links := range found {
		for _, link := range links {
			if r.visited.Add(visitKey(link)) {
				next = append(next, link)
			}
		}
	}
	return next
}

// visit handles one URL and returns the internal links of the page.
func (s *Spider) visit(ctx context.Context, r *run, target string) []string {
	if r.robots != nil && !r.robots.Test(pathOf(target)) {
		r.send(Event{Kind: EventDisallowed, URL: target})
		return nil
	}

	if s.maxPages > 0 && r.requested.Add(1) > int64(s.maxPages) {
		s.logger.Debug("page limit reached", "url", target, "max_pages", s.maxPages)
		return nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil
	}

	ev, ok := s.fetch(ctx, target)
	if !ok {
		return nil
	}
	r.send(ev)

	if ev.Kind != EventComplete || !isHTML(ev.ContentType) {
		return nil
	}
	return s.links(target, ev.Body)
}

// fetch requests target and converts the outcome into an event. The second
// return value is false when nothing should be reported.
func (s *Spider) fetch(ctx context.Context, target string) (Event, bool) {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return Event{Kind: EventClientError, URL: target, Err: err}, true
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Event{}, false
		}
		return s.transportEvent(target, err), true
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Event{Kind: EventNotFound, URL: target, StatusCode: resp.StatusCode}, true
	case resp.StatusCode == http.StatusRequestTimeout:
		return Event{Kind: EventTimeout, URL: target, StatusCode: resp.StatusCode}, true
	case resp.StatusCode == http.StatusGone:
		return Event{Kind: EventGone, URL: target, StatusCode: resp.StatusCode}, true
	case resp.StatusCode >= http.StatusBadRequest:
		return Event{Kind: EventFetchError, URL: target, StatusCode: resp.StatusCode}, true
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTML(contentType) && !s.downloadUnsupported {
		s.logger.Debug("skipping unsupported content", "url", target, "content_type", contentType)
		return Event{}, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		if ctx.Err() != nil {
			return Event{}, false
		}
		return s.transportEvent(target, err), true
	}

	return Event{
		Kind:        EventComplete,
		URL:         target,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
	}, true
}

func (s *Spider) transportEvent(target string, err error) Event {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return Event{Kind: EventClientError, URL: target, Err: fmt.Errorf("%w: %w", ErrHostNotFound, err)}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return Event{Kind: EventTimeout, URL: target, StatusCode: http.StatusRequestTimeout, Err: err}
	}

	return Event{Kind: EventClientError, URL: target, Err: err}
}

// links parses body and returns its followable same-host links.
func (s *Spider) links(pageURL string, body []byte) []string {
	parser, err := NewParser(pageURL)
	if err != nil {
		return nil
	}
	result, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		s.logger.Debug("failed to parse page", "url", pageURL, "error", err)
		return nil
	}
	if result.NoFollow {
		return nil
	}

	links := make([]string, 0, len(result.InternalLinks))
	for _, link := range result.InternalLinks {
		if s.isSameSite(link) {
			links = append(links, link)
		}
	}
	return links
}

// robotsGroup loads robots.txt for the seed origin and returns the group
// for the spider's user agent. A missing or broken file allows everything.
func (s *Spider) robotsGroup(ctx context.Context) *robotstxt.Group {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	robotsURL := s.seed.Scheme + "://" + s.seed.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug("robots.txt unavailable", "url", robotsURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		s.logger.Debug("robots.txt unreadable", "url", robotsURL, "error", err)
		return nil
	}
	return data.FindGroup(s.userAgent)
}

func (s *Spider) isSameSite(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, s.seed.Host)
}

// visitKey normalizes a URL for deduplication: fragment dropped, scheme and
// host lower-cased, empty path treated as "/".
func visitKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

func pathOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return "/"
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}
