// Package server exposes the seocheck engine over HTTP.
//
// Routes:
//
//	POST /v1/analyze                       analyze a URL list, optionally with bodies
//	POST /v1/scans                         crawl a site and return its report
//	GET  /v1/sites/{site}/reports/latest   latest stored report of a site
//	GET  /metrics                          Prometheus metrics
//	GET  /healthz                          liveness probe
//
// Every request builds its own engine, so concurrent scans never share
// state. Finished reports are stored when a History is configured.
package server
