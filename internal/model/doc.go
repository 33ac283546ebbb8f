// Package model defines the core data structures used throughout seocheck.
//
// This package contains the following main types:
//   - PageRecord: a crawled page accepted into the per-run page store
//   - CheckResult and TLSResult: results of the auxiliary checks
//   - PageAnalysis: the page analyzer output that a Report is built from
//   - Report: the merged SEO/security report handed to callers
//   - ErrorEvent and IgnoreEvent: transient crawl notifications
//   - Outcome: a value paired with a success flag and a degradation reason
//
// Models live in their own package so that crawler, analyzer, aggregator,
// engine, report and database can share them without import cycles.
// All report types serialize to JSON for output and database storage.
package model
