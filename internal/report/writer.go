package report

import (
	"fmt"
	"io"

	"github.com/nao1215/seocheck/internal/config"
	"github.com/nao1215/seocheck/internal/model"
)

// Writer outputs reports in one format.
type Writer interface {
	// Write outputs the full report.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.Report) (int, error)

	// WriteSummary outputs the condensed report only.
	WriteSummary(summary *model.Summary) (int, error)
}

// ComparisonWriter is implemented by writers that can render the
// differences between two reports.
type ComparisonWriter interface {
	WriteComparison(c *model.Comparison) (int, error)
}

// NewWriter returns the writer for a configuration format name.
func NewWriter(format string, output io.Writer, verbose bool) (Writer, error) {
	switch format {
	case config.FormatSimple, "":
		return NewSimpleWriter(output, WithVerbose(verbose)), nil
	case config.FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case config.FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case config.FormatCSV:
		return NewCSVWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownReportFormat, format)
	}
}

// MultiWriter writes to multiple Writers, for example the terminal and a file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written. Stops on the first error.
func (m *MultiWriter) Write(report *model.Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteSummary outputs the summary to all configured Writers.
func (m *MultiWriter) WriteSummary(summary *model.Summary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSummary(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// checkLine returns a one-line description of an existence check.
func checkLine(c *model.CheckResult) string {
	if c == nil {
		return "not run"
	}
	if !c.OK {
		return c.Summary + " (check failed: " + c.DegradedReason + ")"
	}
	return c.Summary
}

// tlsLine returns a one-line description of the TLS check.
func tlsLine(r *model.TLSResult) string {
	switch {
	case r == nil:
		return "not run"
	case !r.OK:
		return "grading failed: " + r.DegradedReason
	case len(r.Grades) == 0:
		return r.Summary
	default:
		return joinGrades(r.Grades)
	}
}

func joinGrades(grades []string) string {
	if len(grades) == 0 {
		return "-"
	}
	s := grades[0]
	for _, g := range grades[1:] {
		s += ", " + g
	}
	return s
}

// truncateString truncates s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
