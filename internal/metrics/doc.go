// Package metrics exposes Prometheus instrumentation for crawls, fetches,
// auxiliary checks and report aggregation.
//
// A *Metrics value may be nil; every recording method is then a no-op, so
// components can be used without a registry (for example in tests).
package metrics
