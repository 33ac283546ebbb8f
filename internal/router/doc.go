// Package router translates crawler events into the engine's public events
// and owns the page store of a crawl run.
//
// Every crawler event falls into one of four outcomes: the page is accepted
// and recorded, the URL is ignored, a per-item error is emitted, or the run
// is aborted. Which crawler errors abort the run is decided by an
// ErrorPolicy; DefaultErrorPolicy aborts only when the site host cannot be
// resolved.
package router
