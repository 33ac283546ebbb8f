package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/nao1215/seocheck/internal/aggregator"
	"github.com/nao1215/seocheck/internal/database"
	"github.com/nao1215/seocheck/internal/engine"
	"github.com/nao1215/seocheck/internal/fetcher"
	"github.com/nao1215/seocheck/internal/model"
)

// maxRequestBody bounds request bodies; analyze requests may carry pages.
const maxRequestBody = 32 << 20

// AnalyzeRequest is the body of POST /v1/analyze.
type AnalyzeRequest struct {
	// Site is the report site. Defaults to the first URL.
	Site string `json:"site,omitempty"`

	// URLs are the pages to analyze.
	URLs []string `json:"urls"`

	// Bodies, when present, are used instead of fetching URLs.
	// Index i belongs to URLs[i].
	Bodies []string `json:"bodies,omitempty"`
}

// ScanRequest is the body of POST /v1/scans.
type ScanRequest struct {
	URL string `json:"url"`
}

// ScanResponse is the result of a synchronous scan.
type ScanResponse struct {
	Report  *model.Report       `json:"report"`
	Errors  []model.ErrorEvent  `json:"errors"`
	Ignored []model.IgnoreEvent `json:"ignored"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.URLs) == 0 {
		s.respondWithError(w, http.StatusBadRequest, ErrNoURLs.Error())
		return
	}

	site := req.Site
	if site == "" {
		site = req.URLs[0]
	}
	eng, err := engine.New(site, s.engineOpts...)
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	// An empty bodies list means "fetch the URLs", like an absent one.
	bodies := req.Bodies
	if len(bodies) == 0 {
		bodies = nil
	}

	out := eng.Analyze(r.Context(), req.URLs, bodies)
	if !out.OK {
		err := out.Err()
		switch {
		case errors.Is(err, aggregator.ErrBodyCountMismatch):
			s.respondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			s.respondWithError(w, http.StatusGatewayTimeout, err.Error())
		default:
			s.logger.Error("analysis failed", "site", eng.Site(), "error", err)
			s.respondWithError(w, http.StatusInternalServerError, "analysis failed")
		}
		return
	}

	s.store(r.Context(), out.Value, nil)
	s.respondWithJSON(w, http.StatusOK, out.Value)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	eng, err := engine.New(req.URL, s.engineOpts...)
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		mu   sync.Mutex
		resp = ScanResponse{Errors: []model.ErrorEvent{}, Ignored: []model.IgnoreEvent{}}
	)
	eng.OnError(func(ev model.ErrorEvent) {
		mu.Lock()
		defer mu.Unlock()
		resp.Errors = append(resp.Errors, ev)
	})
	eng.OnIgnore(func(ev model.IgnoreEvent) {
		mu.Lock()
		defer mu.Unlock()
		resp.Ignored = append(resp.Ignored, ev)
	})

	if err := eng.Start(r.Context()); err != nil {
		s.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer func() { _ = eng.Stop() }()

	report, err := eng.Wait(r.Context())
	switch {
	case errors.Is(err, engine.ErrSiteNotFound):
		s.respondWithError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, context.DeadlineExceeded):
		s.respondWithError(w, http.StatusGatewayTimeout, "scan did not finish in time")
		return
	case errors.Is(err, context.Canceled):
		s.respondWithError(w, http.StatusServiceUnavailable, "scan cancelled")
		return
	case err != nil:
		s.logger.Error("scan failed", "site", eng.Site(), "error", err)
		s.respondWithError(w, http.StatusBadGateway, err.Error())
		return
	}

	mu.Lock()
	resp.Report = report
	mu.Unlock()

	s.store(r.Context(), report, resp.Errors)
	s.respondWithJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondWithError(w, http.StatusNotFound, ErrHistoryDisabled.Error())
		return
	}

	raw, err := url.PathUnescape(chi.URLParam(r, "site"))
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid site")
		return
	}
	site, err := fetcher.Normalize(raw)
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.history.LatestReport(r.Context(), site)
	if errors.Is(err, database.ErrReportNotFound) {
		s.respondWithError(w, http.StatusNotFound, "no report stored for "+site)
		return
	}
	if err != nil {
		s.logger.Error("failed to load report", "site", site, "error", err)
		s.respondWithError(w, http.StatusInternalServerError, "could not load report")
		return
	}

	s.respondWithJSON(w, http.StatusOK, report)
}

// store saves report and its error events when a History is configured.
// Storage failures are logged; the caller still gets its report.
func (s *Server) store(ctx context.Context, report *model.Report, events []model.ErrorEvent) {
	if s.history == nil {
		return
	}
	if _, err := s.history.SaveReport(ctx, report); err != nil {
		s.logger.Warn("failed to store report", "site", report.Site, "error", err)
		return
	}
	for _, ev := range events {
		if err := s.history.SaveErrorEvent(ctx, report.Site, ev); err != nil {
			s.logger.Warn("failed to store error event", "site", report.Site, "error", err)
			return
		}
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
