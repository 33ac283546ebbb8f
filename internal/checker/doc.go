// Package checker provides the auxiliary site checks that run next to the
// page analyzer: sitemap.xml presence, robots.txt presence and a TLS grade
// for the site host.
//
// # Failure model
//
// Checks never return errors. A probe or grading failure produces a result
// with OK set to false, a benign fallback value and a DegradedReason, so the
// report can still be built. Every check runs under its own timeout.
//
// # Collaborators
//
//   - Prober answers whether a URL exists. HTTPProber sends HEAD and falls
//     back to GET when the server rejects HEAD.
//   - Grader grades the TLS endpoints of a host. HandshakeGrader performs a
//     TLS handshake against every resolved address on port 443.
//
// # Usage
//
//	c := checker.New(checker.NewHTTPProber(client), checker.NewHandshakeGrader())
//	sitemap := c.Sitemap(ctx, "https://example.com")
//	tls := c.TLS(ctx, "example.com")
package checker
