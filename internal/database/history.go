package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/seocheck/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "seocheck.db"

// HistoryDB stores reports and crawl errors in SQLite.
// It is safe for concurrent use.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// With CreateIfNotExists unset, a missing database file is ErrDatabaseNotFound.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		report_json TEXT NOT NULL,
		summary_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_site ON reports(site);

	CREATE TABLE IF NOT EXISTS report_pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		title TEXT,
		word_count INTEGER,
		empty INTEGER,
		finding_count INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_pages_report ON report_pages(report_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON report_pages(url);

	CREATE TABLE IF NOT EXISTS crawl_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site TEXT NOT NULL,
		code INTEGER NOT NULL,
		message TEXT,
		url TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_errors_site ON crawl_errors(site);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveReport stores report and its pages in one transaction and returns
// the report ID.
func (hdb *HistoryDB) SaveReport(ctx context.Context, report *model.Report) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}
	summaryJSON, err := json.Marshal(model.NewSummary(report))
	if err != nil {
		return 0, fmt.Errorf("failed to serialize summary: %w", err)
	}

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO reports (site, generated_at, report_json, summary_json) VALUES (?, ?, ?, ?)`,
		report.Site,
		report.GeneratedAt.UTC().Format(time.RFC3339Nano),
		string(reportJSON),
		string(summaryJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save report: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read report id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO report_pages (report_id, url, title, word_count, empty, finding_count) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range report.Pages {
		if _, err := stmt.ExecContext(ctx, id, p.URL, p.Title, p.WordCount, p.Empty, p.FindingCount); err != nil {
			return 0, fmt.Errorf("failed to save page %s: %w", p.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit report: %w", err)
	}
	return id, nil
}

// ReportByID returns the stored report with the given ID.
func (hdb *HistoryDB) ReportByID(ctx context.Context, id int64) (*model.Report, error) {
	return hdb.queryReport(ctx, `SELECT report_json FROM reports WHERE id = ?`, id)
}

// LatestReport returns the most recently stored report for site.
func (hdb *HistoryDB) LatestReport(ctx context.Context, site string) (*model.Report, error) {
	return hdb.queryReport(ctx,
		`SELECT report_json FROM reports WHERE site = ? ORDER BY id DESC LIMIT 1`, site)
}

// LatestTwo returns the two most recent reports for site, older first.
func (hdb *HistoryDB) LatestTwo(ctx context.Context, site string) (previous, current *model.Report, err error) {
	rows, err := hdb.db.QueryContext(ctx,
		`SELECT report_json FROM reports WHERE site = ? ORDER BY id DESC LIMIT 2`, site)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []*model.Report
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, nil, fmt.Errorf("failed to scan report: %w", err)
		}
		var r model.Report
		if err := json.Unmarshal([]byte(reportJSON), &r); err != nil {
			return nil, nil, fmt.Errorf("failed to parse report: %w", err)
		}
		reports = append(reports, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	if len(reports) < 2 {
		return nil, nil, fmt.Errorf("%w: %d stored for %s", ErrNotEnoughHistory, len(reports), site)
	}
	return reports[1], reports[0], nil
}

func (hdb *HistoryDB) queryReport(ctx context.Context, query string, args ...any) (*model.Report, error) {
	var reportJSON string
	err := hdb.db.QueryRowContext(ctx, query, args...).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report model.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// ReportMetadata describes a stored report without loading it.
type ReportMetadata struct {
	// ID is the unique identifier of the report in the database.
	ID int64

	// Site is the report site.
	Site string

	// GeneratedAt is when the report was assembled.
	GeneratedAt time.Time

	// Summary holds the finding counts and check results.
	Summary *model.Summary
}

// History returns the metadata of every report stored for site, newest first.
func (hdb *HistoryDB) History(ctx context.Context, site string) ([]ReportMetadata, error) {
	rows, err := hdb.db.QueryContext(ctx,
		`SELECT id, site, generated_at, summary_json FROM reports WHERE site = ? ORDER BY id DESC`, site)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var results []ReportMetadata
	for rows.Next() {
		var (
			meta        ReportMetadata
			generatedAt string
			summaryJSON string
		)
		if err := rows.Scan(&meta.ID, &meta.Site, &generatedAt, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.GeneratedAt = parseTimestamp(generatedAt)
		meta.Summary = &model.Summary{}
		if err := json.Unmarshal([]byte(summaryJSON), meta.Summary); err != nil {
			meta.Summary = &model.Summary{Site: meta.Site, GeneratedAt: meta.GeneratedAt}
		}
		results = append(results, meta)
	}

	return results, rows.Err()
}

// ListSites returns every site with at least one stored report.
func (hdb *HistoryDB) ListSites(ctx context.Context) ([]string, error) {
	rows, err := hdb.db.QueryContext(ctx, `SELECT DISTINCT site FROM reports ORDER BY site`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}

	return sites, rows.Err()
}

// Pages returns the pages stored with a report, in report order.
func (hdb *HistoryDB) Pages(ctx context.Context, reportID int64) ([]model.PageSummary, error) {
	rows, err := hdb.db.QueryContext(ctx,
		`SELECT url, title, word_count, empty, finding_count FROM report_pages WHERE report_id = ? ORDER BY id`,
		reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var pages []model.PageSummary
	for rows.Next() {
		var (
			p     model.PageSummary
			title sql.NullString
		)
		if err := rows.Scan(&p.URL, &title, &p.WordCount, &p.Empty, &p.FindingCount); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		p.Title = title.String
		pages = append(pages, p)
	}

	return pages, rows.Err()
}

// SaveErrorEvent stores a crawl error event of site.
func (hdb *HistoryDB) SaveErrorEvent(ctx context.Context, site string, ev model.ErrorEvent) error {
	_, err := hdb.db.ExecContext(ctx,
		`INSERT INTO crawl_errors (site, code, message, url) VALUES (?, ?, ?, ?)`,
		site, ev.Code, ev.Message, ev.URL)
	if err != nil {
		return fmt.Errorf("failed to save error event: %w", err)
	}
	return nil
}

// ErrorEvents returns the stored crawl error events of site, oldest first.
func (hdb *HistoryDB) ErrorEvents(ctx context.Context, site string) ([]model.ErrorEvent, error) {
	rows, err := hdb.db.QueryContext(ctx,
		`SELECT code, message, url FROM crawl_errors WHERE site = ? ORDER BY id`, site)
	if err != nil {
		return nil, fmt.Errorf("failed to query error events: %w", err)
	}
	defer rows.Close()

	var events []model.ErrorEvent
	for rows.Next() {
		var (
			ev      model.ErrorEvent
			message sql.NullString
			url     sql.NullString
		)
		if err := rows.Scan(&ev.Code, &message, &url); err != nil {
			return nil, fmt.Errorf("failed to scan error event: %w", err)
		}
		ev.Message = message.String
		ev.URL = url.String
		events = append(events, ev)
	}

	return events, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries every format in timestampFormats and returns the
// zero time when none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
