// Package engine orchestrates a site crawl and turns it into a report.
//
// An Engine is bound to one seed URL and one configuration snapshot. Start
// launches a crawl in the background; crawler events are routed into a page
// store and published to the add, ignore and error subscribers. When the
// crawler finishes, the stored pages are aggregated with the auxiliary checks
// and the report is published to the done subscribers and returned by Wait.
//
// The manual path, Analyze, skips the crawler: the given URLs are fetched
// (unless bodies are supplied) and aggregated directly.
//
// State machine:
//
//	Idle --Start--> Crawling --crawler done--> Completing --report--> Idle
//	                   |                           |
//	                   +-----------Stop------------+--> Idle
package engine
