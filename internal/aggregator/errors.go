package aggregator

import "errors"

var (
	// ErrBodyCountMismatch is returned when bodies are supplied but their
	// count differs from the URL count.
	ErrBodyCountMismatch = errors.New("body count does not match url count")

	// ErrAnalysisFailed wraps an error returned by the page analyzer.
	ErrAnalysisFailed = errors.New("page analysis failed")
)
