package database

import "errors"

var (
	// ErrDatabaseNotFound is returned by Open when the database file does
	// not exist and creation is disabled.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrReportNotFound is returned when no stored report matches a query.
	ErrReportNotFound = errors.New("report not found")

	// ErrNotEnoughHistory is returned by LatestTwo when fewer than two
	// reports are stored for a site.
	ErrNotEnoughHistory = errors.New("at least two reports are required for a comparison")
)
