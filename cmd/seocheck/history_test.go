package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/seocheck/internal/database"
	"github.com/nao1215/seocheck/internal/model"
)

const historySite = "https://example.com/"

// seedHistory creates a database with two reports for historySite and one
// for another site, and returns its directory.
func seedHistory(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	older := historyReport(historySite, base, model.RuleTitleMissing, model.RuleH1Missing)
	newer := historyReport(historySite, base.Add(time.Hour), model.RuleH1Missing, model.RuleCanonicalMissing)
	other := historyReport("https://other.example/", base)

	ctx := t.Context()
	for _, r := range []*model.Report{older, newer, other} {
		if _, err := db.SaveReport(ctx, r); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
	}
	if err := db.SaveErrorEvent(ctx, historySite, model.NewErrorEvent(http.StatusNotFound, historySite+"missing")); err != nil {
		t.Fatalf("failed to save error event: %v", err)
	}
	return dir
}

func historyReport(site string, generatedAt time.Time, rules ...string) *model.Report {
	issues := model.NewIssues()
	for _, rule := range rules {
		issues.Add(model.NewFinding(rule, site, ""))
	}
	r := model.NewReport(site, &model.PageAnalysis{
		Pages:  []model.PageSummary{{URL: site, Title: "Home", WordCount: 42, FindingCount: len(rules)}},
		Issues: issues,
	})
	r.GeneratedAt = generatedAt
	r.Issues.Notices.Sitemap = &model.CheckResult{Summary: model.SummarySitemapFound, Value: true, OK: true}
	r.Issues.Notices.Robots = &model.CheckResult{Summary: model.SummaryRobotsNotFound, Value: false, OK: true}
	r.Issues.Warnings.SSL = &model.TLSResult{Grades: []string{"A"}, OK: true}
	return r
}

func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	cfgPath := writeTestConfig(t)
	dbDir := seedHistory(t)
	history := func(t *testing.T, args ...string) (string, error) {
		t.Helper()
		out, _, err := execute(t, append([]string{"history", "-c", cfgPath, "--db-dir", dbDir}, args...)...)
		return out, err
	}

	t.Run("requires a site", func(t *testing.T) {
		t.Parallel()

		if _, err := history(t); !errors.Is(err, errSiteRequired) {
			t.Errorf("expected errSiteRequired, got %v", err)
		}
	})

	t.Run("lists sites", func(t *testing.T) {
		t.Parallel()

		out, err := history(t, "--list-sites")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Stored sites (2)") || !strings.Contains(out, historySite) {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("lists reports of a site", func(t *testing.T) {
		t.Parallel()

		out, err := history(t, historySite)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Report history for " + historySite, "(2 reports)", "Warnings", "yes"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output %q", want, out)
			}
		}
	})

	t.Run("diff as json", func(t *testing.T) {
		t.Parallel()

		out, err := history(t, "--diff", "-f", "json", historySite)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var c model.Comparison
		if err := json.Unmarshal([]byte(out), &c); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if c.Site != historySite {
			t.Errorf("unexpected site %q", c.Site)
		}
		if len(c.NewFindings) != 1 || c.NewFindings[0].Rule != model.RuleCanonicalMissing {
			t.Errorf("unexpected new findings %+v", c.NewFindings)
		}
		if len(c.ResolvedFindings) != 1 || c.ResolvedFindings[0].Rule != model.RuleTitleMissing {
			t.Errorf("unexpected resolved findings %+v", c.ResolvedFindings)
		}
		if c.Direction != model.DirectionImproved {
			t.Errorf("expected improved, got %q", c.Direction)
		}
	})

	t.Run("diff as text", func(t *testing.T) {
		t.Parallel()

		out, err := history(t, "--diff", historySite)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "SEOCHECK COMPARISON") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("diff with report id from another site fails", func(t *testing.T) {
		t.Parallel()

		_, err := history(t, "--diff", "--with-id", "3", historySite)
		if err == nil || !strings.Contains(err.Error(), "belongs to") {
			t.Errorf("expected site mismatch error, got %v", err)
		}
	})

	t.Run("diff needs two reports", func(t *testing.T) {
		t.Parallel()

		_, err := history(t, "--diff", "https://other.example/")
		if !errors.Is(err, database.ErrNotEnoughHistory) {
			t.Errorf("expected ErrNotEnoughHistory, got %v", err)
		}
	})

	t.Run("diff rejects csv", func(t *testing.T) {
		t.Parallel()

		if _, err := history(t, "--diff", "-f", "csv", historySite); !errors.Is(err, errNoComparison) {
			t.Errorf("expected errNoComparison, got %v", err)
		}
	})

	t.Run("errors as csv", func(t *testing.T) {
		t.Parallel()

		out, err := history(t, "--errors", "-f", "csv", historySite)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 2 || lines[0] != "code,message,url" {
			t.Fatalf("unexpected csv %q", out)
		}
		if !strings.HasPrefix(lines[1], "404,") {
			t.Errorf("unexpected row %q", lines[1])
		}
	})

	t.Run("errors as table", func(t *testing.T) {
		t.Parallel()

		out, err := history(t, "--errors", historySite)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Crawl errors for "+historySite+" (1)") {
			t.Errorf("unexpected output %q", out)
		}
	})
}

func TestHistoryCmdWithoutDatabase(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "history", "-c", writeTestConfig(t), "--db-dir", t.TempDir(), "--list-sites")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No reports stored yet") {
		t.Errorf("unexpected output %q", out)
	}
}
