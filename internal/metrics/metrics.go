package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "seocheck"

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	PagesAdded      prometheus.Counter
	PagesIgnored    *prometheus.CounterVec
	CrawlErrors     *prometheus.CounterVec
	FetchAttempts   *prometheus.CounterVec
	FetchExhausted  prometheus.Counter
	CheckDuration   *prometheus.HistogramVec
	CheckDegraded   *prometheus.CounterVec
	ReportsTotal    *prometheus.CounterVec
	ActiveCrawls    prometheus.Gauge
	HTTPRequests    *prometheus.CounterVec
	HTTPReqDuration *prometheus.HistogramVec
}

// New registers all metrics with reg and returns them.
// Use prometheus.NewRegistry() in tests to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PagesAdded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_added_total",
			Help:      "Pages accepted into the page store.",
		}),
		PagesIgnored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_ignored_total",
			Help:      "Pages skipped, by reason.",
		}, []string{"reason"}), // noindex, disallowed
		CrawlErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawl_errors_total",
			Help:      "Crawl error events, by status code.",
		}, []string{"code"}),
		FetchAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Page fetch attempts, by result.",
		}, []string{"result"}), // success, failure
		FetchExhausted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_exhausted_total",
			Help:      "Page fetches that failed on every attempt.",
		}),
		CheckDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "Duration of auxiliary checks.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"check"}),
		CheckDegraded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_degraded_total",
			Help:      "Auxiliary checks that did not complete cleanly.",
		}, []string{"check"}),
		ReportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Aggregated reports, by status.",
		}, []string{"status"}), // ok, failed
		ActiveCrawls: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_crawls",
			Help:      "Crawls currently running.",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests, by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPReqDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// PageAdded records an accepted page.
func (m *Metrics) PageAdded() {
	if m == nil {
		return
	}
	m.PagesAdded.Inc()
}

// PageIgnored records a skipped page.
func (m *Metrics) PageIgnored(reason string) {
	if m == nil {
		return
	}
	m.PagesIgnored.WithLabelValues(reason).Inc()
}

// CrawlError records a crawl error event.
func (m *Metrics) CrawlError(code int) {
	if m == nil {
		return
	}
	m.CrawlErrors.WithLabelValues(strconv.Itoa(code)).Inc()
}

// FetchAttempt records one fetch attempt.
func (m *Metrics) FetchAttempt(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.FetchAttempts.WithLabelValues(result).Inc()
}

// FetchGaveUp records a fetch that exhausted its retries.
func (m *Metrics) FetchGaveUp() {
	if m == nil {
		return
	}
	m.FetchExhausted.Inc()
}

// CheckFinished records the duration and result of an auxiliary check.
func (m *Metrics) CheckFinished(check string, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.CheckDuration.WithLabelValues(check).Observe(d.Seconds())
	if !ok {
		m.CheckDegraded.WithLabelValues(check).Inc()
	}
}

// ReportBuilt records the result of an aggregation.
func (m *Metrics) ReportBuilt(ok bool) {
	if m == nil {
		return
	}
	status := "failed"
	if ok {
		status = "ok"
	}
	m.ReportsTotal.WithLabelValues(status).Inc()
}

// CrawlStarted increments the active crawl gauge.
func (m *Metrics) CrawlStarted() {
	if m == nil {
		return
	}
	m.ActiveCrawls.Inc()
}

// CrawlFinished decrements the active crawl gauge.
func (m *Metrics) CrawlFinished() {
	if m == nil {
		return
	}
	m.ActiveCrawls.Dec()
}

// HTTPRequest records one API request.
func (m *Metrics) HTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPReqDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
