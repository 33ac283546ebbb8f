package model

import "time"

// Check result summaries.
const (
	SummarySitemapFound    = "Sitemap.xml was found"
	SummarySitemapNotFound = "Sitemap.xml not found"
	SummaryRobotsFound     = "Robots.txt was found"
	SummaryRobotsNotFound  = "Robots.txt not found"
	SummaryNoCertificate   = "No SSL certificate detected"
)

// CheckResult is the result of an existence check (sitemap.xml, robots.txt).
// Value holds the existence flag.
type CheckResult struct {
	// Summary is a human-readable description of the result.
	Summary string `json:"summary"`

	// Value is the probe result; a bool for existence checks.
	Value any `json:"value"`

	// OK is false when the probe itself failed and Value is a fallback.
	OK bool `json:"ok"`

	// DegradedReason describes the probe failure when OK is false.
	DegradedReason string `json:"degraded_reason,omitempty"`

	// Metadata holds optional details, such as parsed robots.txt facts.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Exists reports whether Value is the boolean true.
func (c *CheckResult) Exists() bool {
	if c == nil {
		return false
	}
	b, ok := c.Value.(bool)
	return ok && b
}

// SetMetadata records a metadata entry, allocating the map when needed.
func (c *CheckResult) SetMetadata(key string, value any) {
	if c.Metadata == nil {
		c.Metadata = make(map[string]any)
	}
	c.Metadata[key] = value
}

// TLSResult is the result of the TLS grading check.
type TLSResult struct {
	// Summary is SummaryNoCertificate when no endpoint was graded, otherwise empty.
	Summary string `json:"summary"`

	// Grades lists the letter grade of every graded endpoint, in endpoint order.
	Grades []string `json:"grades"`

	// Value is the raw grading payload.
	Value *HostGrade `json:"value,omitempty"`

	// OK is false when the grading service failed.
	OK bool `json:"ok"`

	// DegradedReason describes the grading failure when OK is false.
	DegradedReason string `json:"degraded_reason,omitempty"`
}

// HostGrade is the payload returned by a TLS grading service for one host.
type HostGrade struct {
	// Host is the graded host name.
	Host string `json:"host"`

	// Endpoints lists every address the host resolved to.
	Endpoints []Endpoint `json:"endpoints"`

	// TestedAt is when grading finished.
	TestedAt time.Time `json:"tested_at"`
}

// Endpoint is one graded server address.
type Endpoint struct {
	// IPAddress is the endpoint address.
	IPAddress string `json:"ip_address"`

	// Grade is the letter grade. Empty when the endpoint could not be graded.
	Grade string `json:"grade,omitempty"`

	// TLSVersion is the negotiated protocol version, e.g. "TLS 1.3".
	TLSVersion string `json:"tls_version,omitempty"`

	// CipherSuite is the negotiated cipher suite name.
	CipherSuite string `json:"cipher_suite,omitempty"`

	// Subject is the leaf certificate subject common name.
	Subject string `json:"subject,omitempty"`

	// Issuer is the leaf certificate issuer common name.
	Issuer string `json:"issuer,omitempty"`

	// NotAfter is the leaf certificate expiry.
	NotAfter time.Time `json:"not_after,omitzero"`

	// OCSPStatus is "good", "revoked" or "unknown" when a staple was present.
	OCSPStatus string `json:"ocsp_status,omitempty"`

	// StatusMessage explains a missing or lowered grade.
	StatusMessage string `json:"status_message,omitempty"`
}
