// Package aggregator builds the merged SEO/security report of a site.
//
// An aggregation resolves one body per page URL, fetching them when the
// caller did not supply any, then runs the sitemap, robots.txt and TLS checks
// and the page analyzer side by side. The checks never fail the report; a
// failed check is recorded as a degraded section. Only an analyzer error or
// an analyzer result that breaks its contract fails the aggregation.
package aggregator
