package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/seocheck/internal/model"
)

// MarkdownWriter outputs reports in GitHub-flavored Markdown, with a
// mermaid chart of the finding severities.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := model.NewSummary(report)

	w.writeHeader(md, summary)
	w.writeSummary(md, summary)
	w.writeChecks(md, report)
	w.writePages(md, report.Pages)
	w.writeFindings(md, report, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummary outputs the summary in Markdown format.
func (w *MarkdownWriter) WriteSummary(summary *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeSummary(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteComparison outputs the differences between two reports.
func (w *MarkdownWriter) WriteComparison(c *model.Comparison) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("seocheck Comparison")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current"},
		Rows: [][]string{
			{"Date", c.Previous.GeneratedAt.Format("2006-01-02 15:04:05 MST"), c.Current.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Errors", strconv.Itoa(c.Previous.ErrorCount), strconv.Itoa(c.Current.ErrorCount)},
			{"Warnings", strconv.Itoa(c.Previous.WarningCount), strconv.Itoa(c.Current.WarningCount)},
			{"Notices", strconv.Itoa(c.Previous.NoticeCount), strconv.Itoa(c.Current.NoticeCount)},
			{"Sitemap.xml", foundText(c.Previous.SitemapFound), foundText(c.Current.SitemapFound)},
			{"Robots.txt", foundText(c.Previous.RobotsFound), foundText(c.Current.RobotsFound)},
			{"TLS grades", joinGrades(c.Previous.TLSGrades), joinGrades(c.Current.TLSGrades)},
		},
	})
	md.PlainText("")

	switch c.Direction {
	case model.DirectionImproved:
		md.Tip("The site improved since the previous report.")
	case model.DirectionWorsened:
		md.Warningf("The site got worse since the previous report: %d new finding(s).", len(c.NewFindings))
	default:
		md.Note("No change in the overall result.")
	}
	md.PlainText("")

	if len(c.NewFindings) > 0 {
		md.H2("New Findings")
		md.PlainText("")
		w.writeFindingsTable(md, c.NewFindings)
	}
	if len(c.ResolvedFindings) > 0 {
		md.H2("Resolved Findings")
		md.PlainText("")
		w.writeFindingsTable(md, c.ResolvedFindings)
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *model.Summary) {
	md.H1("seocheck Report")
	md.PlainText("")

	rows := [][]string{
		{"Site", "`" + s.Site + "`"},
		{"Generated", s.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		{"Pages Analyzed", strconv.Itoa(s.PagesAnalyzed)},
	}
	if s.EmptyPages > 0 {
		rows = append(rows, []string{"Pages Without Body", strconv.Itoa(s.EmptyPages)})
	}
	if len(s.Degraded) > 0 {
		rows = append(rows, []string{"Degraded Checks", strings.Join(s.Degraded, ", ")})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s *model.Summary) {
	md.H2("Severity Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows: [][]string{
			{"🔴 Error", strconv.Itoa(s.ErrorCount)},
			{"🟡 Warning", strconv.Itoa(s.WarningCount)},
			{"🔵 Notice", strconv.Itoa(s.NoticeCount)},
			{"**Total**", "**" + strconv.Itoa(s.TotalFindings()) + "**"},
		},
	})
	md.PlainText("")

	if s.HasFindings() {
		w.writePieChart(md, s)
	}
	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart for the severity distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Finding Severity Distribution"),
		piechart.WithShowData(true),
	)

	if s.ErrorCount > 0 {
		chart.LabelAndIntValue("Error", uint64(s.ErrorCount))
	}
	if s.WarningCount > 0 {
		chart.LabelAndIntValue("Warning", uint64(s.WarningCount))
	}
	if s.NoticeCount > 0 {
		chart.LabelAndIntValue("Notice", uint64(s.NoticeCount))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *model.Summary) {
	switch {
	case s.ErrorCount > 0:
		md.Cautionf("%d finding(s) prevent correct indexing and need attention.", s.ErrorCount)
	case s.WarningCount > 0:
		md.Warningf("%d finding(s) likely hurt ranking or sharing.", s.WarningCount)
	case s.NoticeCount > 0:
		md.Note("Only notices were raised.")
	default:
		md.Tip("No SEO issues detected.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeChecks(md *markdown.Markdown, report *model.Report) {
	md.H2("Checks")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Check", "Result"},
		Rows: [][]string{
			{"Sitemap.xml", checkLine(report.Issues.Notices.Sitemap)},
			{"Robots.txt", checkLine(report.Issues.Notices.Robots)},
			{"SSL", tlsLine(report.Issues.Warnings.SSL)},
		},
	})
	md.PlainText("")

	ssl := report.Issues.Warnings.SSL
	if ssl == nil || ssl.Value == nil || len(ssl.Value.Endpoints) == 0 {
		return
	}

	rows := make([][]string, 0, len(ssl.Value.Endpoints))
	for _, ep := range ssl.Value.Endpoints {
		expires := "-"
		if !ep.NotAfter.IsZero() {
			expires = ep.NotAfter.Format("2006-01-02")
		}
		rows = append(rows, []string{
			ep.IPAddress,
			orDash(ep.Grade),
			orDash(ep.TLSVersion),
			expires,
			orDash(ep.StatusMessage),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Endpoint", "Grade", "Protocol", "Expires", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writePages(md *markdown.Markdown, pages []model.PageSummary) {
	md.H2("Pages")
	md.PlainText("")

	if len(pages) == 0 {
		md.PlainText("No pages were analyzed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(pages))
	for i, p := range pages {
		title := orDash(truncateString(p.Title, 50))
		if p.Empty {
			title = "*(no body)*"
		}
		rows[i] = []string{
			p.URL,
			title,
			strconv.Itoa(p.WordCount),
			strconv.Itoa(p.FindingCount),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Title", "Words", "Findings"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, report *model.Report, s *model.Summary) {
	md.H2("Findings")
	md.PlainText("")

	if !s.HasFindings() {
		md.PlainText("No SEO findings detected.")
		md.PlainText("")
		return
	}

	severities := []struct {
		level  model.Severity
		header string
	}{
		{model.SeverityError, "### 🔴 Error"},
		{model.SeverityWarning, "### 🟡 Warning"},
		{model.SeverityNotice, "### 🔵 Notice"},
	}

	for _, sev := range severities {
		findings := model.FindingsBySeverity(report, sev.level)
		if len(findings) == 0 {
			continue
		}

		md.PlainText(sev.header)
		md.PlainText("")
		w.writeFindingsTable(md, findings)
	}
}

func (w *MarkdownWriter) writeFindingsTable(md *markdown.Markdown, findings []model.Finding) {
	rows := make([][]string, len(findings))
	for i, f := range findings {
		rows[i] = []string{
			f.Title,
			orDash(truncateString(f.URL, 60)),
			orDash(truncateString(f.Value, 50)),
			orDash(truncateString(f.Recommendation, 60)),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Title", "URL", "Value", "Recommendation"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [seocheck](https://github.com/nao1215/seocheck)*")
}
