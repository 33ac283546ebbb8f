package model

// PageRecord is one accepted page of a crawl run.
// Records are appended to the page store by the crawl event router and
// never modified afterwards.
type PageRecord struct {
	// URL is the absolute URL the page was fetched from.
	URL string `json:"url"`

	// Body is the decoded response body.
	Body string `json:"body"`
}

// SplitRecords returns the URLs and bodies of records as parallel slices.
// Index i of both slices refers to records[i].
func SplitRecords(records []PageRecord) (urls, bodies []string) {
	urls = make([]string, len(records))
	bodies = make([]string, len(records))
	for i, r := range records {
		urls[i] = r.URL
		bodies[i] = r.Body
	}
	return urls, bodies
}

// PageSummary is the per-page part of a report produced by the page analyzer.
type PageSummary struct {
	// URL is the analyzed page.
	URL string `json:"url"`

	// Title is the document title, if any.
	Title string `json:"title,omitempty"`

	// Description is the meta description, if any.
	Description string `json:"description,omitempty"`

	// Canonical is the canonical link target, if any.
	Canonical string `json:"canonical,omitempty"`

	// WordCount is the number of words in the visible body text.
	WordCount int `json:"word_count"`

	// Empty is true when no body was available for the page
	// (for example because every fetch attempt failed).
	Empty bool `json:"empty,omitempty"`

	// FindingCount is the number of findings raised for this page.
	FindingCount int `json:"finding_count"`
}
