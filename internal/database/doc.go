// Package database provides SQLite-based report history for seocheck.
//
// The HistoryDB stores:
//   - Finished reports as JSON, with their summary for cheap listing
//   - The analyzed pages of every report
//   - Crawl error events, keyed by site
//
// SQLite is accessed through modernc.org/sqlite, which needs no cgo.
// The database is a single file in the XDG data directory.
package database
