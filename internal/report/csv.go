package report

import (
	"bytes"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/nao1215/seocheck/internal/model"
)

// CSVWriter outputs report data as CSV, one row per record.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// findingRow is a finding with the site it belongs to.
type findingRow struct {
	Site string `csv:"site"`
	model.Finding
}

// pageRow is one analyzed page.
type pageRow struct {
	URL          string `csv:"url"`
	Title        string `csv:"title"`
	Description  string `csv:"description"`
	Canonical    string `csv:"canonical"`
	WordCount    int    `csv:"word_count"`
	Empty        bool   `csv:"empty"`
	FindingCount int    `csv:"finding_count"`
}

// summaryRow is a flattened Summary.
type summaryRow struct {
	Site          string `csv:"site"`
	GeneratedAt   string `csv:"generated_at"`
	PagesAnalyzed int    `csv:"pages_analyzed"`
	ErrorCount    int    `csv:"errors"`
	WarningCount  int    `csv:"warnings"`
	NoticeCount   int    `csv:"notices"`
	SitemapFound  bool   `csv:"sitemap_found"`
	RobotsFound   bool   `csv:"robots_found"`
	TLSGrades     string `csv:"tls_grades"`
}

// Write outputs every finding of report, most severe first.
func (w *CSVWriter) Write(report *model.Report) (int, error) {
	findings := report.Issues.All()
	rows := make([]findingRow, len(findings))
	for i, f := range findings {
		rows[i] = findingRow{Site: report.Site, Finding: f}
	}
	return w.marshal(&rows)
}

// WriteSummary outputs the summary as a single row.
func (w *CSVWriter) WriteSummary(summary *model.Summary) (int, error) {
	rows := []summaryRow{{
		Site:          summary.Site,
		GeneratedAt:   summary.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"),
		PagesAnalyzed: summary.PagesAnalyzed,
		ErrorCount:    summary.ErrorCount,
		WarningCount:  summary.WarningCount,
		NoticeCount:   summary.NoticeCount,
		SitemapFound:  summary.SitemapFound,
		RobotsFound:   summary.RobotsFound,
		TLSGrades:     strings.Join(summary.TLSGrades, " "),
	}}
	return w.marshal(&rows)
}

// WritePages outputs one row per analyzed page.
func (w *CSVWriter) WritePages(pages []model.PageSummary) (int, error) {
	rows := make([]pageRow, len(pages))
	for i, p := range pages {
		rows[i] = pageRow(p)
	}
	return w.marshal(&rows)
}

// WriteErrors outputs crawl error events, for example those collected
// through an engine error subscription.
func (w *CSVWriter) WriteErrors(events []model.ErrorEvent) (int, error) {
	return w.marshal(&events)
}

func (w *CSVWriter) marshal(rows any) (int, error) {
	var buf bytes.Buffer
	if err := gocsv.Marshal(rows, &buf); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}
