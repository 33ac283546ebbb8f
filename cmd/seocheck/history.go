package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/nao1215/seocheck/internal/config"
	"github.com/nao1215/seocheck/internal/database"
	"github.com/nao1215/seocheck/internal/fetcher"
	"github.com/nao1215/seocheck/internal/model"
	"github.com/nao1215/seocheck/internal/report"
)

// dateLayout is how report times are shown in history listings.
const dateLayout = "2006-01-02 15:04:05"

var (
	// errSiteRequired is returned when a history operation needs a site.
	errSiteRequired = errors.New("site URL is required (use --list-sites to see stored sites)")

	// errNoComparison is returned when the report format cannot show comparisons.
	errNoComparison = errors.New("format does not support comparisons: use simple, json or markdown")
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show stored reports and compare them",
		Long: `History shows the reports stored in the history database.

Every scan and analysis stores its report unless --no-db is given. This
command lists them and compares the latest report of a site with an
earlier one:
- New findings that appeared since the earlier report
- Resolved findings that are no longer present
- Changes in sitemap.xml, robots.txt and TLS results

Examples:
  # List all sites in the database
  seocheck history --list-sites

  # List stored reports of a site
  seocheck history example.com

  # Compare the latest two reports
  seocheck history --diff example.com

  # Compare the latest report with report 5, as JSON
  seocheck history --diff --with-id 5 -f json example.com

  # Show the crawl errors stored for a site as CSV
  seocheck history --errors -f csv example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-sites", "L", false,
		"List all sites in the database")
	cmd.Flags().Bool("diff", false,
		"Compare the latest report with an earlier one")
	cmd.Flags().Int64P("with-id", "i", 0,
		"Compare with the report of this ID instead of the previous one")
	cmd.Flags().Bool("errors", false,
		"Show the stored crawl errors of the site")
	cmd.Flags().StringP("format", "f", config.FormatSimple,
		"Output format: simple, json, markdown or csv")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	listSites, err := flags.GetBool("list-sites")
	if err != nil {
		return err
	}
	diff, err := flags.GetBool("diff")
	if err != nil {
		return err
	}
	withID, err := flags.GetInt64("with-id")
	if err != nil {
		return err
	}
	showErrors, err := flags.GetBool("errors")
	if err != nil {
		return err
	}
	format, err := flags.GetString("format")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var site string
	if !listSites {
		if len(args) == 0 {
			return errSiteRequired
		}
		if site, err = fetcher.Normalize(args[0]); err != nil {
			return fmt.Errorf("invalid site URL: %w", err)
		}
	}

	dbDir, err := getStringFlag(cmd, "db-dir")
	if err != nil {
		return err
	}
	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if errors.Is(err, database.ErrDatabaseNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "No reports stored yet. Use 'seocheck scan <url>' to create one.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	switch {
	case listSites:
		return listStoredSites(ctx, out, db)
	case diff:
		return compareReports(ctx, out, db, site, withID, format)
	case showErrors:
		return listErrors(ctx, out, db, site, format)
	default:
		return listHistory(ctx, out, db, site)
	}
}

// listStoredSites prints every site with a stored report.
func listStoredSites(ctx context.Context, out io.Writer, db *database.HistoryDB) error {
	sites, err := db.ListSites(ctx)
	if err != nil {
		return err
	}

	if len(sites) == 0 {
		fmt.Fprintln(out, "No sites found in the database.")
		fmt.Fprintln(out, "\nUse 'seocheck scan <url>' to scan a site.")
		return nil
	}

	fmt.Fprintf(out, "Stored sites (%d):\n\n", len(sites))
	for _, site := range sites {
		fmt.Fprintf(out, "  • %s\n", site)
	}
	fmt.Fprintln(out, "\nUse 'seocheck history <url>' to see the reports of a site.")
	return nil
}

// listHistory prints one row per stored report of site, newest first.
func listHistory(ctx context.Context, out io.Writer, db *database.HistoryDB, site string) error {
	history, err := db.History(ctx, site)
	if err != nil {
		return err
	}

	if len(history) == 0 {
		fmt.Fprintf(out, "No reports found for %s\n", site)
		fmt.Fprintln(out, "\nUse 'seocheck scan' to scan this site.")
		return nil
	}

	fmt.Fprintf(out, "Report history for %s (%d reports):\n\n", site, len(history))
	tbl := table.New("ID", "Date", "Pages", "Errors", "Warnings", "Notices", "Sitemap", "Robots", "TLS").WithWriter(out)
	for _, meta := range history {
		s := meta.Summary
		tbl.AddRow(
			meta.ID,
			meta.GeneratedAt.Local().Format(dateLayout),
			s.PagesAnalyzed,
			s.ErrorCount,
			s.WarningCount,
			s.NoticeCount,
			yesNo(s.SitemapFound),
			yesNo(s.RobotsFound),
			gradeList(s.TLSGrades),
		)
	}
	tbl.Print()

	fmt.Fprintln(out, "\nUse 'seocheck history --diff <url>' to compare the latest two reports.")
	return nil
}

// compareReports compares the latest report of site with the previous one,
// or with the report withID when it is set.
func compareReports(ctx context.Context, out io.Writer, db *database.HistoryDB, site string, withID int64, format string) error {
	previous, current, err := reportsToCompare(ctx, db, site, withID)
	if err != nil {
		return err
	}

	writer, err := report.NewWriter(format, out, false)
	if err != nil {
		return err
	}
	cw, ok := writer.(report.ComparisonWriter)
	if !ok {
		return fmt.Errorf("%w: %q", errNoComparison, format)
	}

	_, err = cw.WriteComparison(model.Compare(previous, current))
	return err
}

// reportsToCompare returns the older and the newer report of a comparison.
func reportsToCompare(ctx context.Context, db *database.HistoryDB, site string, withID int64) (*model.Report, *model.Report, error) {
	if withID == 0 {
		previous, current, err := db.LatestTwo(ctx, site)
		if errors.Is(err, database.ErrNotEnoughHistory) {
			return nil, nil, fmt.Errorf("at least 2 reports are required for comparison: %w", err)
		}
		return previous, current, err
	}

	current, err := db.LatestReport(ctx, site)
	if err != nil {
		return nil, nil, err
	}
	previous, err := db.ReportByID(ctx, withID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get report with ID %d: %w", withID, err)
	}
	if previous.Site != site {
		return nil, nil, fmt.Errorf("report ID %d belongs to %s, not %s", withID, previous.Site, site)
	}
	return previous, current, nil
}

// listErrors prints the crawl errors stored for site.
func listErrors(ctx context.Context, out io.Writer, db *database.HistoryDB, site, format string) error {
	events, err := db.ErrorEvents(ctx, site)
	if err != nil {
		return err
	}

	if format == config.FormatCSV {
		_, err := report.NewCSVWriter(out).WriteErrors(events)
		return err
	}

	if len(events) == 0 {
		fmt.Fprintf(out, "No crawl errors stored for %s\n", site)
		return nil
	}

	fmt.Fprintf(out, "Crawl errors for %s (%d):\n\n", site, len(events))
	tbl := table.New("Code", "Message", "URL").WithWriter(out)
	for _, ev := range events {
		tbl.AddRow(ev.Code, ev.Message, ev.URL)
	}
	tbl.Print()
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func gradeList(grades []string) string {
	if len(grades) == 0 {
		return "-"
	}
	return strings.Join(grades, ",")
}
