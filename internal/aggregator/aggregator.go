package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/seocheck/internal/analyzer"
	"github.com/nao1215/seocheck/internal/config"
	"github.com/nao1215/seocheck/internal/fetcher"
	"github.com/nao1215/seocheck/internal/log"
	"github.com/nao1215/seocheck/internal/metrics"
	"github.com/nao1215/seocheck/internal/model"
)

// BodyFetcher fetches one page body. *fetcher.Fetcher implements it.
type BodyFetcher interface {
	Fetch(ctx context.Context, rawURL string) model.Outcome[string]
}

// Checks runs the auxiliary site checks. *checker.Checker implements it.
type Checks interface {
	Sitemap(ctx context.Context, origin string) *model.CheckResult
	Robots(ctx context.Context, origin string) *model.CheckResult
	TLS(ctx context.Context, host string) *model.TLSResult
}

// Aggregator merges page analysis and auxiliary checks into one report.
type Aggregator struct {
	// site is the report site, usually the normalized seed URL.
	site string

	// origin is "scheme://host[:port]" of site, the base of the file checks.
	origin string

	// host is the bare host name graded by the TLS check.
	host string

	fetcher     BodyFetcher
	checks      Checks
	analyzer    analyzer.PageAnalyzer
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithConcurrency bounds the number of bodies fetched at once.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = log.OrDiscard(logger)
	}
}

// WithMetrics counts built reports in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// New creates an Aggregator for site.
func New(site string, f BodyFetcher, checks Checks, pa analyzer.PageAnalyzer, opts ...Option) *Aggregator {
	a := &Aggregator{
		site:        site,
		origin:      site,
		fetcher:     f,
		checks:      checks,
		analyzer:    pa,
		concurrency: config.DefaultMaxConcurrency,
		logger:      log.Discard(),
	}
	if origin, err := fetcher.Origin(site); err == nil {
		a.origin = origin
	}
	if u, err := url.Parse(a.origin); err == nil {
		a.host = u.Hostname()
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate builds the report for urls.
//
// When bodies is nil every URL is fetched first; a URL whose fetch degraded
// contributes an empty body. Otherwise bodies[i] must be the body of urls[i].
// The outcome is OK only when a report was built.
func (a *Aggregator) Aggregate(ctx context.Context, urls, bodies []string) model.Outcome[*model.Report] {
	start := time.Now()

	if bodies != nil && len(bodies) != len(urls) {
		err := fmt.Errorf("%w: %d urls, %d bodies", ErrBodyCountMismatch, len(urls), len(bodies))
		return a.fail(err)
	}

	if bodies == nil {
		bodies = a.fetchAll(ctx, urls)
	}
	if err := ctx.Err(); err != nil {
		return a.fail(err)
	}

	var (
		sitemap     *model.CheckResult
		robots      *model.CheckResult
		tls         *model.TLSResult
		analysis    *model.PageAnalysis
		analysisErr error
	)

	// Tasks never return an error so that no task cancels another.
	var g errgroup.Group
	g.Go(func() error {
		sitemap = a.checks.Sitemap(ctx, a.origin)
		return nil
	})
	g.Go(func() error {
		robots = a.checks.Robots(ctx, a.origin)
		return nil
	})
	g.Go(func() error {
		tls = a.checks.TLS(ctx, a.host)
		return nil
	})
	g.Go(func() error {
		analysis, analysisErr = a.analyzer.AnalyzePages(ctx, urls, bodies)
		return nil
	})
	_ = g.Wait()

	if analysisErr != nil {
		return a.fail(fmt.Errorf("%w: %w", ErrAnalysisFailed, analysisErr))
	}
	if err := analyzer.Validate(analysis); err != nil {
		return a.fail(err)
	}

	report := model.NewReport(a.site, analysis)
	report.Issues.Notices.Sitemap = sitemap
	report.Issues.Notices.Robots = robots
	report.Issues.Warnings.SSL = tls

	a.metrics.ReportBuilt(true)
	a.logger.Info("report built",
		"site", a.site,
		"pages", report.PageCount(),
		"findings", len(report.Issues.All()),
		"elapsed", time.Since(start),
	)
	return model.Succeeded(report)
}

// fetchAll fetches every URL, keeping the result at the URL's index.
func (a *Aggregator) fetchAll(ctx context.Context, urls []string) []string {
	bodies := make([]string, len(urls))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			outcome := a.fetcher.Fetch(ctx, u)
			if !outcome.OK {
				a.logger.Debug("body unavailable", "url", u, "attempts", outcome.Attempts, "reason", outcome.DegradedReason)
			}
			bodies[i] = outcome.Value
			return nil
		})
	}
	_ = g.Wait()

	return bodies
}

func (a *Aggregator) fail(err error) model.Outcome[*model.Report] {
	a.metrics.ReportBuilt(false)
	a.logger.Warn("report not built", "site", a.site, "error", err)
	return model.Degraded[*model.Report](nil, err)
}
