// Package fetcher loads page bodies over HTTP with a configurable retry
// policy and provides the URL helpers shared by the crawler, router and
// checkers.
//
// Fetch never returns an error. A URL that cannot be loaded yields a
// degraded model.Outcome whose value is the empty string, so a batch of
// fetches always completes and callers that care can still tell a failed
// fetch from an empty page.
//
// Concurrent fetches of the same URL share one request.
package fetcher
