package analyzer

import "errors"

var (
	// ErrAnalyzerContract is returned when a PageAnalyzer returns a result
	// the aggregator cannot merge into a report.
	ErrAnalyzerContract = errors.New("page analyzer broke its contract")

	// ErrLengthMismatch is returned when urls and bodies differ in length.
	ErrLengthMismatch = errors.New("urls and bodies differ in length")
)
