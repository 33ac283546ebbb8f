package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/rodaine/table"

	"github.com/nao1215/seocheck/internal/model"
)

// SimpleWriter outputs human-readable text reports for the terminal.
// Sections use plain ASCII rules; pages and findings are rendered as
// aligned tables.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no findings are shown.
	showEmpty bool

	// verbose adds recommendations and the page table.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the full report in human-readable format.
func (w *SimpleWriter) Write(report *model.Report) (int, error) {
	var sb strings.Builder

	summary := model.NewSummary(report)
	w.writeHeader(&sb, summary)
	w.writeChecks(&sb, report)
	w.writeCounts(&sb, summary)
	if w.verbose {
		w.writePages(&sb, report.Pages)
	}
	w.writeFindings(&sb, report)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// WriteSummary outputs the summary in human-readable format.
func (w *SimpleWriter) WriteSummary(summary *model.Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	section(&sb, "CHECKS")
	fmt.Fprintf(&sb, "  Sitemap.xml: %s\n", foundText(summary.SitemapFound))
	fmt.Fprintf(&sb, "  Robots.txt:  %s\n", foundText(summary.RobotsFound))
	fmt.Fprintf(&sb, "  TLS grades:  %s\n", orDash(strings.Join(summary.TLSGrades, ", ")))
	sb.WriteString("\n")
	w.writeCounts(&sb, summary)

	return io.WriteString(w.output, sb.String())
}

// WriteComparison outputs the differences between two reports.
func (w *SimpleWriter) WriteComparison(c *model.Comparison) (int, error) {
	var sb strings.Builder

	banner(&sb, "SEOCHECK COMPARISON")
	fmt.Fprintf(&sb, "Site:      %s\n", c.Site)
	fmt.Fprintf(&sb, "Previous:  %s\n", c.Previous.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "Current:   %s\n", c.Current.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "Direction: %s\n\n", strings.ToUpper(c.Direction))

	section(&sb, "CHANGES")
	tbl := table.New("Metric", "Previous", "Current").WithWriter(&sb)
	tbl.AddRow("Errors", c.Previous.ErrorCount, c.Current.ErrorCount)
	tbl.AddRow("Warnings", c.Previous.WarningCount, c.Current.WarningCount)
	tbl.AddRow("Notices", c.Previous.NoticeCount, c.Current.NoticeCount)
	tbl.AddRow("Sitemap.xml", foundText(c.Previous.SitemapFound), foundText(c.Current.SitemapFound))
	tbl.AddRow("Robots.txt", foundText(c.Previous.RobotsFound), foundText(c.Current.RobotsFound))
	tbl.AddRow("TLS grades", joinGrades(c.Previous.TLSGrades), joinGrades(c.Current.TLSGrades))
	tbl.Print()
	sb.WriteString("\n")

	if len(c.NewFindings) > 0 || w.showEmpty {
		section(&sb, "NEW FINDINGS")
		w.findingTable(&sb, c.NewFindings)
	}
	if len(c.ResolvedFindings) > 0 || w.showEmpty {
		section(&sb, "RESOLVED FINDINGS")
		w.findingTable(&sb, c.ResolvedFindings)
	}
	fmt.Fprintf(&sb, "Unchanged findings: %d\n", c.UnchangedCount)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *model.Summary) {
	banner(sb, "SEOCHECK REPORT")
	fmt.Fprintf(sb, "Site:           %s\n", s.Site)
	fmt.Fprintf(sb, "Generated:      %s\n", s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Pages Analyzed: %d", s.PagesAnalyzed)
	if s.EmptyPages > 0 {
		fmt.Fprintf(sb, " (%d without body)", s.EmptyPages)
	}
	sb.WriteString("\n")
	if len(s.Degraded) > 0 {
		fmt.Fprintf(sb, "Degraded:       %s\n", strings.Join(s.Degraded, ", "))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeChecks(sb *strings.Builder, report *model.Report) {
	section(sb, "CHECKS")
	fmt.Fprintf(sb, "  Sitemap.xml: %s\n", checkLine(report.Issues.Notices.Sitemap))
	fmt.Fprintf(sb, "  Robots.txt:  %s\n", checkLine(report.Issues.Notices.Robots))
	fmt.Fprintf(sb, "  SSL:         %s\n", tlsLine(report.Issues.Warnings.SSL))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeCounts(sb *strings.Builder, s *model.Summary) {
	section(sb, "FINDING SUMMARY")
	fmt.Fprintf(sb, "  ERROR:    %d\n", s.ErrorCount)
	fmt.Fprintf(sb, "  WARNING:  %d\n", s.WarningCount)
	fmt.Fprintf(sb, "  NOTICE:   %d\n\n", s.NoticeCount)
	fmt.Fprintf(sb, "  TOTAL:    %d findings\n\n", s.TotalFindings())
}

func (w *SimpleWriter) writePages(sb *strings.Builder, pages []model.PageSummary) {
	if len(pages) == 0 && !w.showEmpty {
		return
	}
	section(sb, "PAGES")
	tbl := table.New("URL", "Title", "Words", "Findings").WithWriter(sb)
	for _, p := range pages {
		title := truncateString(p.Title, 40)
		if p.Empty {
			title = "(no body)"
		}
		tbl.AddRow(p.URL, orDash(title), p.WordCount, p.FindingCount)
	}
	tbl.Print()
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFindings(sb *strings.Builder, report *model.Report) {
	if len(report.Issues.All()) == 0 && !w.showEmpty {
		return
	}

	section(sb, "FINDINGS")
	for _, severity := range []model.Severity{model.SeverityError, model.SeverityWarning, model.SeverityNotice} {
		findings := model.FindingsBySeverity(report, severity)
		if len(findings) == 0 && !w.showEmpty {
			continue
		}
		fmt.Fprintf(sb, "[%s] %s\n", severityIndicator(severity), severity)
		w.findingTable(sb, findings)
	}
}

func (w *SimpleWriter) findingTable(sb *strings.Builder, findings []model.Finding) {
	if len(findings) == 0 {
		sb.WriteString("  No findings\n\n")
		return
	}

	columns := []any{"Finding", "URL", "Value"}
	if w.verbose {
		columns = append(columns, "Recommendation")
	}
	tbl := table.New(columns...).WithWriter(sb)
	for _, f := range findings {
		row := []any{f.Title, orDash(f.URL), orDash(truncateString(f.Value, 50))}
		if w.verbose {
			row = append(row, f.Recommendation)
		}
		tbl.AddRow(row...)
	}
	tbl.Print()
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\nReport generated by seocheck\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

func banner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat(" ", (70-len(title))/2) + title + "\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

func severityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityError:
		return "!!"
	case model.SeverityWarning:
		return "!"
	default:
		return "i"
	}
}

func foundText(found bool) string {
	if found {
		return "found"
	}
	return "missing"
}
