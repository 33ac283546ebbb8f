package model

// Severity represents how urgent an SEO finding is.
// Higher values are more severe, so findings can be compared and sorted.
type Severity int

const (
	// SeverityNotice is informational: the page works but could be improved.
	SeverityNotice Severity = iota

	// SeverityWarning is a problem that likely hurts ranking or sharing.
	SeverityWarning

	// SeverityError is a problem that prevents correct indexing.
	SeverityError
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityNotice:
		return "NOTICE"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FindingInfo contains metadata about a finding rule including severity,
// a title, and a remediation recommendation.
type FindingInfo struct {
	Severity       Severity
	Title          string
	Recommendation string
}

// Finding rule identifiers raised by the built-in page analyzer.
const (
	RuleTitleMissing        = "title_missing"
	RuleTitleTooLong        = "title_too_long"
	RuleTitleDuplicate      = "title_duplicate"
	RuleDescriptionMissing  = "description_missing"
	RuleDescriptionTooLong  = "description_too_long"
	RuleH1Missing           = "h1_missing"
	RuleH1Multiple          = "h1_multiple"
	RuleImageAltMissing     = "image_alt_missing"
	RuleCanonicalMissing    = "canonical_missing"
	RuleLangMissing         = "lang_missing"
	RuleEmptyBody           = "empty_body"
	RuleViewportMissing     = "viewport_missing"
	RuleNoFollowAll         = "nofollow_all"
	RuleMixedContent        = "mixed_content"
	RuleInsecureFormAction  = "insecure_form_action"
	RuleCrawlErrorNotFound  = "crawl_not_found"
	RuleCrawlErrorTransport = "crawl_transport"
)

// findingInfoMapping maps finding rules to their metadata.
var findingInfoMapping = map[string]FindingInfo{
	RuleTitleMissing: {
		Severity:       SeverityError,
		Title:          "Missing <title>",
		Recommendation: "Give every page a unique, descriptive title.",
	},
	RuleEmptyBody: {
		Severity:       SeverityError,
		Title:          "Empty page body",
		Recommendation: "Make sure the page returns content to crawlers.",
	},
	RuleH1Missing: {
		Severity:       SeverityWarning,
		Title:          "Missing <h1>",
		Recommendation: "Add a single top-level heading describing the page.",
	},
	RuleDescriptionMissing: {
		Severity:       SeverityWarning,
		Title:          "Missing meta description",
		Recommendation: "Add a meta description of 50-160 characters.",
	},
	RuleTitleDuplicate: {
		Severity:       SeverityWarning,
		Title:          "Duplicate <title>",
		Recommendation: "Use a different title on each page.",
	},
	RuleImageAltMissing: {
		Severity:       SeverityWarning,
		Title:          "Image without alt text",
		Recommendation: "Describe every meaningful image with an alt attribute.",
	},
	RuleMixedContent: {
		Severity:       SeverityWarning,
		Title:          "Mixed content",
		Recommendation: "Load every sub-resource of an HTTPS page over HTTPS.",
	},
	RuleInsecureFormAction: {
		Severity:       SeverityWarning,
		Title:          "Form posts over plain HTTP",
		Recommendation: "Submit forms to HTTPS endpoints only.",
	},
	RuleNoFollowAll: {
		Severity:       SeverityWarning,
		Title:          "Page-wide nofollow",
		Recommendation: "Remove the nofollow robots directive unless links must not be followed.",
	},
	RuleTitleTooLong: {
		Severity:       SeverityNotice,
		Title:          "Title longer than 60 characters",
		Recommendation: "Shorten the title so it is not truncated in search results.",
	},
	RuleDescriptionTooLong: {
		Severity:       SeverityNotice,
		Title:          "Meta description longer than 160 characters",
		Recommendation: "Shorten the description so it is not truncated in search results.",
	},
	RuleH1Multiple: {
		Severity:       SeverityNotice,
		Title:          "Multiple <h1> elements",
		Recommendation: "Keep one <h1> per page and use <h2>-<h6> for sections.",
	},
	RuleCanonicalMissing: {
		Severity:       SeverityNotice,
		Title:          "Missing canonical link",
		Recommendation: "Declare the preferred URL with <link rel=\"canonical\">.",
	},
	RuleLangMissing: {
		Severity:       SeverityNotice,
		Title:          "Missing html lang attribute",
		Recommendation: "Declare the document language on the <html> element.",
	},
	RuleViewportMissing: {
		Severity:       SeverityNotice,
		Title:          "Missing viewport meta tag",
		Recommendation: "Add <meta name=\"viewport\"> for mobile rendering.",
	},
	RuleCrawlErrorNotFound: {
		Severity:       SeverityError,
		Title:          "Broken page",
		Recommendation: "Fix or redirect URLs that return 4xx responses.",
	},
	RuleCrawlErrorTransport: {
		Severity:       SeverityWarning,
		Title:          "Page could not be fetched",
		Recommendation: "Check server availability and timeouts.",
	},
}

// GetSeverity returns the severity of a finding rule.
// Unknown rules are treated as notices.
func GetSeverity(rule string) Severity {
	return GetFindingInfo(rule).Severity
}

// GetFindingInfo returns the metadata of a finding rule.
func GetFindingInfo(rule string) FindingInfo {
	if info, ok := findingInfoMapping[rule]; ok {
		return info
	}
	return FindingInfo{Severity: SeverityNotice, Title: rule}
}
