package model

import (
	"slices"
	"time"
)

// Finding is a single SEO issue raised by the page analyzer.
type Finding struct {
	// Rule is the finding rule identifier, see severity.go.
	Rule string `json:"rule" csv:"rule"`

	// Severity is the urgency level.
	Severity Severity `json:"severity" csv:"-"`

	// SeverityText is the human-readable severity.
	SeverityText string `json:"severity_text" csv:"severity"`

	// Title is a short description of the finding.
	Title string `json:"title" csv:"title"`

	// URL is the page the finding was raised on. Empty for site-wide findings.
	URL string `json:"url,omitempty" csv:"url"`

	// Value is the offending value, such as an overlong title.
	Value string `json:"value,omitempty" csv:"value"`

	// Recommendation explains how to resolve the finding.
	Recommendation string `json:"recommendation,omitempty" csv:"recommendation"`
}

// NewFinding creates a Finding for rule, filling severity, title and
// recommendation from the rule metadata.
func NewFinding(rule, url, value string) Finding {
	info := GetFindingInfo(rule)
	return Finding{
		Rule:           rule,
		Severity:       info.Severity,
		SeverityText:   info.Severity.String(),
		Title:          info.Title,
		URL:            url,
		Value:          value,
		Recommendation: info.Recommendation,
	}
}

// Notices holds the informational sections of a report.
type Notices struct {
	// Sitemap is the sitemap.xml existence check.
	Sitemap *CheckResult `json:"sitemap,omitempty"`

	// Robots is the robots.txt existence check.
	Robots *CheckResult `json:"robots,omitempty"`

	// Findings are notice-level page findings.
	Findings []Finding `json:"findings"`
}

// Warnings holds the warning sections of a report.
type Warnings struct {
	// SSL is the TLS grading check.
	SSL *TLSResult `json:"ssl,omitempty"`

	// Findings are warning-level page findings.
	Findings []Finding `json:"findings"`
}

// Issues groups findings by severity. Every page analyzer must return a
// non-nil Issues so that the auxiliary checks have a place to go.
type Issues struct {
	Errors   []Finding `json:"errors"`
	Warnings Warnings  `json:"warnings"`
	Notices  Notices   `json:"notices"`
}

// NewIssues returns Issues with all finding slices allocated.
func NewIssues() *Issues {
	return &Issues{
		Errors:   make([]Finding, 0),
		Warnings: Warnings{Findings: make([]Finding, 0)},
		Notices:  Notices{Findings: make([]Finding, 0)},
	}
}

// Add files f under the bucket matching its severity.
func (i *Issues) Add(f Finding) {
	switch f.Severity {
	case SeverityError:
		i.Errors = append(i.Errors, f)
	case SeverityWarning:
		i.Warnings.Findings = append(i.Warnings.Findings, f)
	default:
		i.Notices.Findings = append(i.Notices.Findings, f)
	}
}

// All returns every finding, most severe first.
func (i *Issues) All() []Finding {
	all := make([]Finding, 0, len(i.Errors)+len(i.Warnings.Findings)+len(i.Notices.Findings))
	all = append(all, i.Errors...)
	all = append(all, i.Warnings.Findings...)
	all = append(all, i.Notices.Findings...)
	return all
}

// PageAnalysis is the output of a page analyzer.
type PageAnalysis struct {
	// Pages has one summary per analyzed URL, in input order.
	Pages []PageSummary `json:"pages"`

	// Issues holds the page findings. Must not be nil.
	Issues *Issues `json:"issues"`
}

// Report is the merged SEO/security report.
type Report struct {
	// Site is the normalized seed URL of the crawl or analysis.
	Site string `json:"site"`

	// GeneratedAt is when the report was assembled.
	GeneratedAt time.Time `json:"generated_at"`

	// Pages has one summary per analyzed page.
	Pages []PageSummary `json:"pages"`

	// Issues holds the page findings and the auxiliary check sections.
	Issues Issues `json:"issues"`
}

// NewReport builds a report for site using analysis as its base.
// The analysis is copied so later changes to it do not affect the report.
func NewReport(site string, analysis *PageAnalysis) *Report {
	r := &Report{
		Site:        site,
		GeneratedAt: time.Now(),
		Pages:       slices.Clone(analysis.Pages),
		Issues:      *NewIssues(),
	}
	if analysis.Issues != nil {
		r.Issues.Errors = append(r.Issues.Errors, analysis.Issues.Errors...)
		r.Issues.Warnings.Findings = append(r.Issues.Warnings.Findings, analysis.Issues.Warnings.Findings...)
		r.Issues.Notices.Findings = append(r.Issues.Notices.Findings, analysis.Issues.Notices.Findings...)
	}
	return r
}

// PageCount returns the number of analyzed pages.
func (r *Report) PageCount() int {
	return len(r.Pages)
}

// Host returns the host part of the report site.
func (r *Report) Host() string {
	return hostOf(r.Site)
}
