package engine

import (
	"log/slog"
	"net/http"

	"github.com/nao1215/seocheck/internal/analyzer"
	"github.com/nao1215/seocheck/internal/checker"
	"github.com/nao1215/seocheck/internal/config"
	"github.com/nao1215/seocheck/internal/crawler"
	"github.com/nao1215/seocheck/internal/fetcher"
	"github.com/nao1215/seocheck/internal/metrics"
	"github.com/nao1215/seocheck/internal/router"
)

// options collects the Option values before the engine's components are
// built, because most components depend on the final configuration.
type options struct {
	cfg         *config.Config
	logger      *slog.Logger
	factory     crawler.Factory
	analyzer    analyzer.PageAnalyzer
	grader      checker.Grader
	prober      checker.Prober
	client      *http.Client
	retry       *fetcher.RetryPolicy
	metrics     *metrics.Metrics
	errorPolicy router.ErrorPolicy
}

// Option configures an Engine.
type Option func(*options)

// WithConfig sets the configuration. The engine keeps its own copy with the
// per-site overrides for the seed host applied.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCrawler replaces the built-in spider.
func WithCrawler(factory crawler.Factory) Option {
	return func(o *options) {
		o.factory = factory
	}
}

// WithAnalyzer replaces the built-in page analyzer.
func WithAnalyzer(a analyzer.PageAnalyzer) Option {
	return func(o *options) {
		o.analyzer = a
	}
}

// WithGrader replaces the built-in TLS grader.
func WithGrader(g checker.Grader) Option {
	return func(o *options) {
		o.grader = g
	}
}

// WithProber replaces the built-in URL existence prober.
func WithProber(p checker.Prober) Option {
	return func(o *options) {
		o.prober = p
	}
}

// WithHTTPClient sets the client shared by the crawler, fetcher and prober.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithRetryPolicy overrides the fetch retry policy derived from the
// configuration.
func WithRetryPolicy(policy fetcher.RetryPolicy) Option {
	return func(o *options) {
		o.retry = &policy
	}
}

// WithMetrics records engine activity in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithErrorPolicy decides which crawler errors are emitted, absorbed, or
// abort the crawl. See router.DefaultErrorPolicy.
func WithErrorPolicy(policy router.ErrorPolicy) Option {
	return func(o *options) {
		o.errorPolicy = policy
	}
}
