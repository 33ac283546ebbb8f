// Package report writes SEO reports.
//
// Writers for the supported output formats:
//   - SimpleWriter: human-readable text with tables, for the terminal
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: Markdown for sharing and issue trackers
//   - CSVWriter: one row per finding, plus page and error event exports
//
// Writers implement the Writer interface and can be combined with
// MultiWriter. NewWriter selects a writer by configuration format name.
package report
