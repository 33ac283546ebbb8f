package checker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"time"

	"golang.org/x/crypto/ocsp"

	"github.com/nao1215/seocheck/internal/model"
)

// Grader grades the TLS endpoints of a host.
type Grader interface {
	Grade(ctx context.Context, host string) (*model.HostGrade, error)
}

// Letter grades assigned by HandshakeGrader.
const (
	GradeA       = "A"
	GradeB       = "B"
	GradeC       = "C"
	GradeExpired = "F"
	GradeTrust   = "T"
)

// OCSP staple states recorded on an endpoint.
const (
	OCSPGood    = "good"
	OCSPRevoked = "revoked"
	OCSPUnknown = "unknown"
)

// ResolveFunc resolves a host name to its addresses.
type ResolveFunc func(ctx context.Context, host string) ([]net.IPAddr, error)

// HandshakeGrader grades a host by performing a TLS handshake against every
// address the host resolves to.
type HandshakeGrader struct {
	resolve     ResolveFunc
	port        string
	roots       *x509.CertPool
	dialTimeout time.Duration
	now         func() time.Time
}

// GraderOption configures a HandshakeGrader.
type GraderOption func(*HandshakeGrader)

// WithResolver replaces the DNS lookup.
func WithResolver(resolve ResolveFunc) GraderOption {
	return func(g *HandshakeGrader) {
		g.resolve = resolve
	}
}

// WithPort sets the TLS port. The default is 443.
func WithPort(port string) GraderOption {
	return func(g *HandshakeGrader) {
		g.port = port
	}
}

// WithRootCAs sets the pool used to verify certificate chains.
// Nil means the system pool.
func WithRootCAs(pool *x509.CertPool) GraderOption {
	return func(g *HandshakeGrader) {
		g.roots = pool
	}
}

// WithDialTimeout bounds each endpoint handshake.
func WithDialTimeout(d time.Duration) GraderOption {
	return func(g *HandshakeGrader) {
		g.dialTimeout = d
	}
}

// NewHandshakeGrader creates a HandshakeGrader using the default resolver.
func NewHandshakeGrader(opts ...GraderOption) *HandshakeGrader {
	g := &HandshakeGrader{
		resolve:     net.DefaultResolver.LookupIPAddr,
		port:        "443",
		dialTimeout: 10 * time.Second,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Grade resolves host and grades every address. Endpoints that cannot be
// reached are kept with an empty grade and a status message. An error is
// returned only when the host cannot be resolved.
func (g *HandshakeGrader) Grade(ctx context.Context, host string) (*model.HostGrade, error) {
	if host == "" {
		return nil, ErrEmptyHost
	}

	addrs, err := g.resolve(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAddresses, host)
	}

	result := &model.HostGrade{
		Host:      host,
		Endpoints: make([]model.Endpoint, 0, len(addrs)),
	}
	for _, addr := range addrs {
		result.Endpoints = append(result.Endpoints, g.gradeEndpoint(ctx, host, addr.IP.String()))
	}
	result.TestedAt = g.now()

	return result, nil
}

func (g *HandshakeGrader) gradeEndpoint(ctx context.Context, host, ip string) model.Endpoint {
	endpoint := model.Endpoint{IPAddress: ip}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: g.dialTimeout},
		Config: &tls.Config{
			ServerName: host,
			MinVersion: tls.VersionTLS10,
			// The chain is verified below so that untrusted endpoints can
			// still be inspected and graded.
			InsecureSkipVerify: true, //nolint:gosec
		},
	}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(ip, g.port))
	if err != nil {
		endpoint.StatusMessage = err.Error()
		return endpoint
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		endpoint.StatusMessage = "not a TLS connection"
		return endpoint
	}
	state := tlsConn.ConnectionState()

	endpoint.TLSVersion = tlsVersionName(state.Version)
	endpoint.CipherSuite = tls.CipherSuiteName(state.CipherSuite)

	if len(state.PeerCertificates) == 0 {
		endpoint.StatusMessage = "no certificate presented"
		return endpoint
	}
	leaf := state.PeerCertificates[0]
	endpoint.Subject = leaf.Subject.CommonName
	endpoint.Issuer = leaf.Issuer.CommonName
	endpoint.NotAfter = leaf.NotAfter

	if len(state.OCSPResponse) > 0 {
		var issuer *x509.Certificate
		if len(state.PeerCertificates) > 1 {
			issuer = state.PeerCertificates[1]
		}
		endpoint.OCSPStatus = ocspStatus(state.OCSPResponse, issuer)
	}

	endpoint.Grade, endpoint.StatusMessage = g.grade(host, state, endpoint.OCSPStatus)
	return endpoint
}

// grade maps the handshake state to a letter grade.
func (g *HandshakeGrader) grade(host string, state tls.ConnectionState, ocspState string) (string, string) {
	leaf := state.PeerCertificates[0]

	if g.now().After(leaf.NotAfter) {
		return GradeExpired, "certificate expired"
	}
	if ocspState == OCSPRevoked {
		return GradeExpired, "certificate revoked"
	}

	intermediates := x509.NewCertPool()
	for _, cert := range state.PeerCertificates[1:] {
		intermediates.AddCert(cert)
	}
	_, err := leaf.Verify(x509.VerifyOptions{
		DNSName:       host,
		Roots:         g.roots,
		Intermediates: intermediates,
		CurrentTime:   g.now(),
	})
	if err != nil {
		return GradeTrust, err.Error()
	}

	switch state.Version {
	case tls.VersionTLS13:
		return GradeA, ""
	case tls.VersionTLS12:
		return GradeB, ""
	default:
		return GradeC, "legacy protocol version"
	}
}

func ocspStatus(staple []byte, issuer *x509.Certificate) string {
	resp, err := ocsp.ParseResponse(staple, issuer)
	if err != nil {
		return OCSPUnknown
	}
	switch resp.Status {
	case ocsp.Good:
		return OCSPGood
	case ocsp.Revoked:
		return OCSPRevoked
	default:
		return OCSPUnknown
	}
}

func tlsVersionName(version uint16) string {
	switch version {
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return "Unknown"
	}
}
