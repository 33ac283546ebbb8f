package checker

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/nao1215/seocheck/internal/config"
	"github.com/nao1215/seocheck/internal/log"
	"github.com/nao1215/seocheck/internal/metrics"
	"github.com/nao1215/seocheck/internal/model"
)

// Check names used in logs and metrics.
const (
	NameSitemap = "sitemap"
	NameRobots  = "robots"
	NameTLS     = "ssl"
)

// Checker runs the auxiliary site checks.
// The zero value is not usable; create one with New.
type Checker struct {
	prober    Prober
	grader    Grader
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Checker.
type Option func(*Checker)

// WithTimeout bounds each check. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		c.timeout = d
	}
}

// WithUserAgent sets the agent name matched against robots.txt groups.
func WithUserAgent(ua string) Option {
	return func(c *Checker) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = log.OrDiscard(logger)
	}
}

// WithMetrics records check durations in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Checker) {
		c.metrics = m
	}
}

// New creates a Checker that probes with prober and grades with grader.
func New(prober Prober, grader Grader, opts ...Option) *Checker {
	c := &Checker{
		prober:    prober,
		grader:    grader,
		timeout:   config.DefaultCheckTimeout,
		userAgent: config.DefaultUserAgent,
		logger:    log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sitemap checks whether <origin>/sitemap.xml exists.
func (c *Checker) Sitemap(ctx context.Context, origin string) *model.CheckResult {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	start := time.Now()

	exists, err := c.prober.Exists(ctx, joinPath(origin, "sitemap.xml"))
	result := existenceResult(exists, err, model.SummarySitemapFound, model.SummarySitemapNotFound)

	c.finish(NameSitemap, start, result.OK, err)
	return result
}

// Robots checks whether <origin>/robots.txt exists. When the prober can
// return bodies, the file is parsed and its sitemap count and whether the
// configured agent may fetch "/" are attached as metadata.
func (c *Checker) Robots(ctx context.Context, origin string) *model.CheckResult {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	start := time.Now()

	target := joinPath(origin, "robots.txt")

	var (
		exists bool
		body   []byte
		err    error
	)
	if bp, ok := c.prober.(BodyProber); ok {
		exists, body, err = bp.Body(ctx, target)
	} else {
		exists, err = c.prober.Exists(ctx, target)
	}

	result := existenceResult(exists, err, model.SummaryRobotsFound, model.SummaryRobotsNotFound)
	if exists && len(body) > 0 {
		c.attachRobotsMetadata(result, body)
	}

	c.finish(NameRobots, start, result.OK, err)
	return result
}

// TLS grades host. Endpoint grades are collected in endpoint order,
// skipping endpoints without a grade.
func (c *Checker) TLS(ctx context.Context, host string) *model.TLSResult {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	start := time.Now()

	result := &model.TLSResult{Grades: make([]string, 0)}

	graded, err := c.grader.Grade(ctx, host)
	result.Value = graded
	if err != nil {
		if graded == nil {
			result.Value = &model.HostGrade{Host: host, Endpoints: []model.Endpoint{}}
		}
		result.DegradedReason = err.Error()
		c.finish(NameTLS, start, false, err)
		return result
	}

	if graded != nil {
		for _, endpoint := range graded.Endpoints {
			if endpoint.Grade == "" {
				continue
			}
			result.Grades = append(result.Grades, endpoint.Grade)
		}
	}
	if len(result.Grades) == 0 {
		result.Summary = model.SummaryNoCertificate
	}
	result.OK = true

	c.finish(NameTLS, start, true, nil)
	return result
}

func (c *Checker) attachRobotsMetadata(result *model.CheckResult, body []byte) {
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		result.SetMetadata("parse_error", err.Error())
		return
	}
	result.SetMetadata("sitemaps", len(data.Sitemaps))
	result.SetMetadata("root_allowed", data.TestAgent("/", c.userAgent))
}

func existenceResult(exists bool, err error, found, notFound string) *model.CheckResult {
	if err != nil {
		return &model.CheckResult{Summary: notFound, Value: false, DegradedReason: err.Error()}
	}
	if exists {
		return &model.CheckResult{Summary: found, Value: true, OK: true}
	}
	return &model.CheckResult{Summary: notFound, Value: false, OK: true}
}

func (c *Checker) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Checker) finish(name string, start time.Time, ok bool, err error) {
	elapsed := time.Since(start)
	c.metrics.CheckFinished(name, elapsed, ok)
	if err != nil {
		c.logger.Warn("check degraded", "check", name, "duration", elapsed, "error", err)
		return
	}
	c.logger.Debug("check finished", "check", name, "duration", elapsed)
}

func joinPath(origin, file string) string {
	return strings.TrimSuffix(origin, "/") + "/" + file
}
