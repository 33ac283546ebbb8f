package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/sync/singleflight"

	"github.com/nao1215/seocheck/internal/config"
	"github.com/nao1215/seocheck/internal/log"
	"github.com/nao1215/seocheck/internal/metrics"
	"github.com/nao1215/seocheck/internal/model"
)

// Fetcher loads page bodies with retries.
// A Fetcher is safe for concurrent use.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	lowercase   bool
	policy      RetryPolicy
	timeout     time.Duration
	maxBodySize int64
	headers     map[string]string
	logger      *slog.Logger
	metrics     *metrics.Metrics

	// group shares one fetch between concurrent callers of the same URL.
	// waiting counts the callers of each in-flight URL and cancels holds
	// the cancel func of its shared fetch, which runs until the last
	// caller leaves.
	group   singleflight.Group
	mu      sync.Mutex
	waiting map[string]int
	cancels map[string]context.CancelFunc
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithLowercaseURLs lower-cases URLs before fetching them.
func WithLowercaseURLs(lowercase bool) Option {
	return func(f *Fetcher) {
		f.lowercase = lowercase
	}
}

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(f *Fetcher) {
		f.policy = policy.normalized()
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = timeout
	}
}

// WithMaxBodySize limits how many body bytes are read per response.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = size
	}
}

// WithHeaders adds extra request headers.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) {
		f.headers = headers
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = log.OrDiscard(logger)
	}
}

// WithMetrics records fetch attempts in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fetcher) {
		f.metrics = m
	}
}

// New creates a Fetcher with default settings, then applies opts.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{},
		userAgent:   config.DefaultUserAgent,
		policy:      DefaultRetryPolicy(),
		timeout:     config.DefaultTimeout,
		maxBodySize: config.DefaultMaxBodySize,
		logger:      log.Discard(),
		waiting:     make(map[string]int),
		cancels:     make(map[string]context.CancelFunc),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// NewFromConfig creates a Fetcher configured from cfg. Options in opts are
// applied after the configuration.
func NewFromConfig(cfg *config.Config, opts ...Option) *Fetcher {
	base := []Option{
		WithUserAgent(cfg.UserAgent),
		WithLowercaseURLs(cfg.LowercaseURLs),
		WithRetryPolicy(PolicyFromConfig(cfg)),
		WithTimeout(cfg.Timeout),
		WithMaxBodySize(cfg.EffectiveMaxBodySize()),
	}
	return New(append(base, opts...)...)
}

// Load fetches rawURL and returns its body, or "" when every attempt failed.
func (f *Fetcher) Load(ctx context.Context, rawURL string) string {
	return f.Fetch(ctx, rawURL).Value
}

// Fetch fetches rawURL and returns the body as an outcome.
// The URL gets an http:// prefix when it has no scheme and is lower-cased
// when the fetcher was configured to do so.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) model.Outcome[string] {
	target := f.Prepare(rawURL)

	for {
		outcome, err := f.join(ctx, target)
		if err != nil {
			return model.Degraded("", err)
		}
		// The shared fetch was cancelled because every other caller left
		// while ctx is still live: start a new one.
		if !outcome.OK && errors.Is(outcome.Err(), context.Canceled) && ctx.Err() == nil {
			continue
		}
		return outcome
	}
}

// join waits for the shared fetch of target. It returns early with
// ctx.Err() when ctx ends, without affecting the other callers.
func (f *Fetcher) join(ctx context.Context, target string) (model.Outcome[string], error) {
	f.mu.Lock()
	f.waiting[target]++
	f.mu.Unlock()
	defer f.leave(target)

	ch := f.group.DoChan(target, func() (any, error) {
		return f.shared(ctx, target), nil
	})

	select {
	case res := <-ch:
		outcome, ok := res.Val.(model.Outcome[string])
		if !ok {
			return model.Outcome[string]{}, fmt.Errorf("unexpected fetch result for %s", target)
		}
		return outcome, nil
	case <-ctx.Done():
		return model.Outcome[string]{}, ctx.Err()
	}
}

// shared runs the fetch of target detached from the caller that started
// it. It is cancelled once no caller waits for it.
func (f *Fetcher) shared(ctx context.Context, target string) model.Outcome[string] {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	f.mu.Lock()
	if f.waiting[target] == 0 {
		cancel()
	} else {
		f.cancels[target] = cancel
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.cancels, target)
		f.mu.Unlock()
	}()

	return f.fetchWithRetry(runCtx, target)
}

func (f *Fetcher) leave(target string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.waiting[target]--
	if f.waiting[target] > 0 {
		return
	}
	delete(f.waiting, target)
	if cancel, ok := f.cancels[target]; ok {
		cancel()
	}
}

// Prepare applies scheme defaulting and optional lower-casing to rawURL.
func (f *Fetcher) Prepare(rawURL string) string {
	target := EnsureScheme(strings.TrimSpace(rawURL))
	if f.lowercase {
		target = strings.ToLower(target)
	}
	return target
}

// Policy returns the retry policy in use.
func (f *Fetcher) Policy() RetryPolicy {
	return f.policy
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, target string) model.Outcome[string] {
	var lastErr error

	for attempt := 1; attempt <= f.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, f.policy.Backoff(attempt-1)); err != nil {
				return model.Degraded("", err).WithAttempts(attempt - 1)
			}
		}

		body, err := f.get(ctx, target)
		f.metrics.FetchAttempt(err == nil)
		if err == nil {
			return model.Succeeded(body).WithAttempts(attempt)
		}

		lastErr = err
		f.logger.Debug("fetch attempt failed",
			"url", target,
			"attempt", attempt,
			"max_attempts", f.policy.MaxAttempts,
			"error", err,
		)

		if ctx.Err() != nil {
			return model.Degraded("", ctx.Err()).WithAttempts(attempt)
		}
	}

	f.metrics.FetchGaveUp()
	f.logger.Warn("giving up on page", "url", target, "attempts", f.policy.MaxAttempts, "error", lastErr)

	cause := fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, f.policy.MaxAttempts, lastErr)
	return model.Degraded("", cause).WithAttempts(f.policy.MaxAttempts)
}

// get performs a single attempt. Only transport errors are returned;
// any HTTP status yields the body as received.
func (f *Fetcher) get(ctx context.Context, target string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	reader, err := charset.NewReader(io.LimitReader(resp.Body, f.maxBodySize), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("failed to decode body: %w", err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}

	return string(body), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
