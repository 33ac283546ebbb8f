package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nao1215/seocheck/internal/engine"
	"github.com/nao1215/seocheck/internal/log"
	"github.com/nao1215/seocheck/internal/metrics"
	"github.com/nao1215/seocheck/internal/model"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// History stores finished reports and crawl error events.
// *database.HistoryDB implements it.
type History interface {
	SaveReport(ctx context.Context, report *model.Report) (int64, error)
	SaveErrorEvent(ctx context.Context, site string, ev model.ErrorEvent) error
	LatestReport(ctx context.Context, site string) (*model.Report, error)
}

// Server holds the dependencies of the HTTP API.
type Server struct {
	addr         string
	logger       *slog.Logger
	metrics      *metrics.Metrics
	gatherer     prometheus.Gatherer
	history      History
	engineOpts   []engine.Option
	requestLimit time.Duration
	handler      http.Handler
	httpServer   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics records request metrics in m and serves gatherer on /metrics.
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// WithHistory stores every report built by the server in h.
func WithHistory(h History) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithEngineOptions sets the options passed to every engine the server
// creates.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(s *Server) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

// WithRequestTimeout bounds every request, including synchronous scans.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.requestLimit = d
	}
}

// New creates a Server.
func New(opts ...Option) *Server {
	s := &Server{
		addr:         DefaultAddr,
		gatherer:     prometheus.DefaultGatherer,
		requestLimit: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.OrDiscard(s.logger)
	s.handler = s.setupRouter()
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.requestLimit + 10*time.Second,
	}
	return s
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and blocks until the server
// stops. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	s.logger.Info("api listening", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server. Start returns after Shutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
