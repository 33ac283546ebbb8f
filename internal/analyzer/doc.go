// Package analyzer turns fetched page bodies into SEO findings.
//
// The aggregator depends only on the PageAnalyzer interface. Coordinator is
// the built-in implementation: it parses every body once with goquery and
// runs a list of page rules and site rules over the parsed documents.
// Rules are independent; a failing rule is logged and skipped so that one
// malformed page never hides the findings of the others.
package analyzer
