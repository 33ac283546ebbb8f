package model

import (
	"net/url"
	"time"
)

// Summary is a condensed view of a Report used by the text and Markdown
// writers and stored alongside each report in the history database.
type Summary struct {
	// Site is the report site.
	Site string `json:"site"`

	// GeneratedAt is when the report was assembled.
	GeneratedAt time.Time `json:"generated_at"`

	// PagesAnalyzed is the number of pages in the report.
	PagesAnalyzed int `json:"pages_analyzed"`

	// EmptyPages is the number of pages analyzed without a body.
	EmptyPages int `json:"empty_pages"`

	// ErrorCount is the number of error-level findings.
	ErrorCount int `json:"error_count"`

	// WarningCount is the number of warning-level findings.
	WarningCount int `json:"warning_count"`

	// NoticeCount is the number of notice-level findings.
	NoticeCount int `json:"notice_count"`

	// SitemapFound is the sitemap.xml check value.
	SitemapFound bool `json:"sitemap_found"`

	// RobotsFound is the robots.txt check value.
	RobotsFound bool `json:"robots_found"`

	// TLSGrades are the endpoint grades of the TLS check.
	TLSGrades []string `json:"tls_grades,omitempty"`

	// TLSSummary is the TLS check summary.
	TLSSummary string `json:"tls_summary,omitempty"`

	// Degraded lists the checks that did not complete cleanly.
	Degraded []string `json:"degraded,omitempty"`
}

// NewSummary condenses r.
func NewSummary(r *Report) *Summary {
	s := &Summary{
		Site:          r.Site,
		GeneratedAt:   r.GeneratedAt,
		PagesAnalyzed: len(r.Pages),
		ErrorCount:    len(r.Issues.Errors),
		WarningCount:  len(r.Issues.Warnings.Findings),
		NoticeCount:   len(r.Issues.Notices.Findings),
		SitemapFound:  r.Issues.Notices.Sitemap.Exists(),
		RobotsFound:   r.Issues.Notices.Robots.Exists(),
	}

	for _, p := range r.Pages {
		if p.Empty {
			s.EmptyPages++
		}
	}

	if sitemap := r.Issues.Notices.Sitemap; sitemap != nil && !sitemap.OK {
		s.Degraded = append(s.Degraded, "sitemap")
	}
	if robots := r.Issues.Notices.Robots; robots != nil && !robots.OK {
		s.Degraded = append(s.Degraded, "robots")
	}
	if ssl := r.Issues.Warnings.SSL; ssl != nil {
		s.TLSGrades = ssl.Grades
		s.TLSSummary = ssl.Summary
		if !ssl.OK {
			s.Degraded = append(s.Degraded, "ssl")
		}
	}

	return s
}

// TotalFindings returns the total number of findings.
func (s *Summary) TotalFindings() int {
	return s.ErrorCount + s.WarningCount + s.NoticeCount
}

// HasFindings reports whether any finding was raised.
func (s *Summary) HasFindings() bool {
	return s.TotalFindings() > 0
}

// FindingsBySeverity returns the findings of r with the given severity.
func FindingsBySeverity(r *Report, severity Severity) []Finding {
	switch severity {
	case SeverityError:
		return r.Issues.Errors
	case SeverityWarning:
		return r.Issues.Warnings.Findings
	default:
		return r.Issues.Notices.Findings
	}
}

// hostOf returns the host of rawURL, or rawURL itself when it has no host.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Hostname()
}
