package model

import (
	"errors"
	"testing"
	"time"
)

// TestOutcome tests the Outcome constructors.
func TestOutcome(t *testing.T) {
	t.Parallel()

	t.Run("succeeded outcome is OK without reason", func(t *testing.T) {
		t.Parallel()

		o := Succeeded("body")
		if !o.OK {
			t.Error("expected OK to be true")
		}
		if o.Value != "body" {
			t.Errorf("expected value 'body', got %q", o.Value)
		}
		if o.DegradedReason != "" {
			t.Errorf("expected empty reason, got %q", o.DegradedReason)
		}
		if o.Err() != nil {
			t.Errorf("expected nil error, got %v", o.Err())
		}
	})

	t.Run("degraded outcome keeps fallback and cause", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("connection refused")
		o := Degraded("", cause).WithAttempts(4)

		if o.OK {
			t.Error("expected OK to be false")
		}
		if o.Value != "" {
			t.Errorf("expected empty fallback, got %q", o.Value)
		}
		if o.DegradedReason != "connection refused" {
			t.Errorf("unexpected reason %q", o.DegradedReason)
		}
		if o.Attempts != 4 {
			t.Errorf("expected 4 attempts, got %d", o.Attempts)
		}
		if !errors.Is(o.Err(), cause) {
			t.Errorf("expected cause to be preserved, got %v", o.Err())
		}
	})

	t.Run("degraded outcome with nil cause still reports an error", func(t *testing.T) {
		t.Parallel()

		o := Degraded(0, nil)
		if o.Err() == nil {
			t.Error("expected non-nil error")
		}
	})
}

// TestNewErrorEvent tests that messages come from the status code.
func TestNewErrorEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code int
		want string
	}{
		{404, "Not Found"},
		{408, "Request Timeout"},
		{410, "Gone"},
		{400, "Bad Request"},
	}

	for _, tt := range tests {
		ev := NewErrorEvent(tt.code, "http://example.com/x")
		if ev.Message != tt.want {
			t.Errorf("code %d: expected message %q, got %q", tt.code, tt.want, ev.Message)
		}
		if ev.URL != "http://example.com/x" {
			t.Errorf("code %d: unexpected url %q", tt.code, ev.URL)
		}
	}
}

// TestIssuesAdd tests that findings are bucketed by severity.
func TestIssuesAdd(t *testing.T) {
	t.Parallel()

	issues := NewIssues()
	issues.Add(NewFinding(RuleTitleMissing, "http://example.com/", ""))
	issues.Add(NewFinding(RuleH1Missing, "http://example.com/", ""))
	issues.Add(NewFinding(RuleCanonicalMissing, "http://example.com/", ""))
	issues.Add(NewFinding("unknown_rule", "http://example.com/", ""))

	if len(issues.Errors) != 1 {
		t.Errorf("expected 1 error, got %d", len(issues.Errors))
	}
	if len(issues.Warnings.Findings) != 1 {
		t.Errorf("expected 1 warning, got %d", len(issues.Warnings.Findings))
	}
	if len(issues.Notices.Findings) != 2 {
		t.Errorf("expected 2 notices, got %d", len(issues.Notices.Findings))
	}

	all := issues.All()
	if len(all) != 4 {
		t.Fatalf("expected 4 findings, got %d", len(all))
	}
	if all[0].Severity != SeverityError {
		t.Errorf("expected most severe finding first, got %s", all[0].SeverityText)
	}
}

// TestNewReport tests that the report copies the analysis base.
func TestNewReport(t *testing.T) {
	t.Parallel()

	analysis := &PageAnalysis{
		Pages:  []PageSummary{{URL: "http://example.com/"}},
		Issues: NewIssues(),
	}
	analysis.Issues.Add(NewFinding(RuleTitleMissing, "http://example.com/", ""))

	report := NewReport("http://example.com/", analysis)

	t.Run("copies pages and findings", func(t *testing.T) {
		t.Parallel()

		if report.PageCount() != 1 {
			t.Errorf("expected 1 page, got %d", report.PageCount())
		}
		if len(report.Issues.Errors) != 1 {
			t.Errorf("expected 1 error finding, got %d", len(report.Issues.Errors))
		}
	})

	t.Run("sets generation time", func(t *testing.T) {
		t.Parallel()

		if time.Since(report.GeneratedAt) > time.Minute {
			t.Error("GeneratedAt is too old")
		}
	})

	t.Run("extracts host", func(t *testing.T) {
		t.Parallel()

		if report.Host() != "example.com" {
			t.Errorf("expected host example.com, got %q", report.Host())
		}
	})
}

// TestNewSummary tests report condensation.
func TestNewSummary(t *testing.T) {
	t.Parallel()

	report := NewReport("https://example.com/", &PageAnalysis{
		Pages:  []PageSummary{{URL: "https://example.com/"}, {URL: "https://example.com/a", Empty: true}},
		Issues: NewIssues(),
	})
	report.Issues.Notices.Sitemap = &CheckResult{Summary: SummarySitemapFound, Value: true, OK: true}
	report.Issues.Notices.Robots = &CheckResult{Summary: SummaryRobotsNotFound, Value: false, OK: false}
	report.Issues.Warnings.SSL = &TLSResult{Grades: []string{"A", "B"}, OK: true}

	s := NewSummary(report)

	if s.PagesAnalyzed != 2 || s.EmptyPages != 1 {
		t.Errorf("unexpected page counts: %d analyzed, %d empty", s.PagesAnalyzed, s.EmptyPages)
	}
	if !s.SitemapFound {
		t.Error("expected sitemap to be found")
	}
	if s.RobotsFound {
		t.Error("expected robots.txt to be missing")
	}
	if len(s.TLSGrades) != 2 {
		t.Errorf("expected 2 grades, got %v", s.TLSGrades)
	}
	if len(s.Degraded) != 1 || s.Degraded[0] != "robots" {
		t.Errorf("expected robots to be degraded, got %v", s.Degraded)
	}
}

// TestCompare tests report comparison.
func TestCompare(t *testing.T) {
	t.Parallel()

	build := func(sitemap bool, rules ...string) *Report {
		issues := NewIssues()
		for _, rule := range rules {
			issues.Add(NewFinding(rule, "http://example.com/", ""))
		}
		r := NewReport("http://example.com/", &PageAnalysis{Issues: issues})
		r.Issues.Notices.Sitemap = &CheckResult{Value: sitemap, OK: true}
		r.Issues.Notices.Robots = &CheckResult{Value: true, OK: true}
		return r
	}

	t.Run("detects new and resolved findings", func(t *testing.T) {
		t.Parallel()

		previous := build(false, RuleTitleMissing, RuleCanonicalMissing)
		current := build(true, RuleCanonicalMissing, RuleLangMissing)

		c := Compare(previous, current)

		if len(c.NewFindings) != 1 || c.NewFindings[0].Rule != RuleLangMissing {
			t.Errorf("unexpected new findings: %v", c.NewFindings)
		}
		if len(c.ResolvedFindings) != 1 || c.ResolvedFindings[0].Rule != RuleTitleMissing {
			t.Errorf("unexpected resolved findings: %v", c.ResolvedFindings)
		}
		if c.UnchangedCount != 1 {
			t.Errorf("expected 1 unchanged finding, got %d", c.UnchangedCount)
		}
		if !c.SitemapChanged {
			t.Error("expected sitemap change")
		}
		if c.Direction != DirectionImproved {
			t.Errorf("expected improved, got %s", c.Direction)
		}
	})

	t.Run("identical reports are unchanged", func(t *testing.T) {
		t.Parallel()

		c := Compare(build(true, RuleH1Missing), build(true, RuleH1Missing))
		if c.Direction != DirectionUnchanged {
			t.Errorf("expected unchanged, got %s", c.Direction)
		}
		if c.GradesChanged {
			t.Error("expected no grade change")
		}
	})
}

// TestSplitRecords tests positional correspondence of split records.
func TestSplitRecords(t *testing.T) {
	t.Parallel()

	urls, bodies := SplitRecords([]PageRecord{
		{URL: "a", Body: "1"},
		{URL: "b", Body: "2"},
	})

	if len(urls) != 2 || urls[0] != "a" || urls[1] != "b" {
		t.Errorf("unexpected urls %v", urls)
	}
	if len(bodies) != 2 || bodies[0] != "1" || bodies[1] != "2" {
		t.Errorf("unexpected bodies %v", bodies)
	}
}
