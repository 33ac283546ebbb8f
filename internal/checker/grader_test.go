package checker

import (
	"context"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

// newTLSTarget starts a TLS server and returns a grader pointed at it.
func newTLSTarget(t *testing.T, trusted bool) *HandshakeGrader {
	t.Helper()

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}

	pool := x509.NewCertPool()
	if trusted {
		pool.AddCert(server.Certificate())
	}

	return NewHandshakeGrader(
		WithResolver(func(context.Context, string) ([]net.IPAddr, error) {
			return []net.IPAddr{{IP: net.ParseIP("127.0.0.1")}}, nil
		}),
		WithPort(u.Port()),
		WithRootCAs(pool),
		WithDialTimeout(5*time.Second),
	)
}

// TestHandshakeGrader tests grading against a local TLS server.
func TestHandshakeGrader(t *testing.T) {
	t.Parallel()

	t.Run("trusted TLS 1.3 endpoint grades A", func(t *testing.T) {
		t.Parallel()

		grader := newTLSTarget(t, true)
		result, err := grader.Grade(t.Context(), "example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Endpoints) != 1 {
			t.Fatalf("expected 1 endpoint, got %d", len(result.Endpoints))
		}
		ep := result.Endpoints[0]
		if ep.Grade != GradeA {
			t.Errorf("expected grade A, got %q (%s)", ep.Grade, ep.StatusMessage)
		}
		if ep.TLSVersion != "TLS 1.3" {
			t.Errorf("unexpected version %q", ep.TLSVersion)
		}
		if ep.IPAddress != "127.0.0.1" {
			t.Errorf("unexpected address %q", ep.IPAddress)
		}
		if result.TestedAt.IsZero() {
			t.Error("expected TestedAt to be set")
		}
	})

	t.Run("untrusted certificate grades T", func(t *testing.T) {
		t.Parallel()

		grader := newTLSTarget(t, false)
		result, err := grader.Grade(t.Context(), "example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Endpoints[0].Grade != GradeTrust {
			t.Errorf("expected grade T, got %q", result.Endpoints[0].Grade)
		}
	})

	t.Run("name mismatch grades T", func(t *testing.T) {
		t.Parallel()

		grader := newTLSTarget(t, true)
		result, err := grader.Grade(t.Context(), "other.test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Endpoints[0].Grade != GradeTrust {
			t.Errorf("expected grade T, got %q", result.Endpoints[0].Grade)
		}
	})

	t.Run("expired certificate grades F", func(t *testing.T) {
		t.Parallel()

		grader := newTLSTarget(t, true)
		grader.now = func() time.Time { return time.Now().AddDate(200, 0, 0) }

		result, err := grader.Grade(t.Context(), "example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Endpoints[0].Grade != GradeExpired {
			t.Errorf("expected grade F, got %q", result.Endpoints[0].Grade)
		}
	})

	t.Run("refused endpoint has no grade", func(t *testing.T) {
		t.Parallel()

		grader := NewHandshakeGrader(
			WithResolver(func(context.Context, string) ([]net.IPAddr, error) {
				return []net.IPAddr{{IP: net.ParseIP("127.0.0.1")}}, nil
			}),
			WithPort("1"),
		)
		result, err := grader.Grade(t.Context(), "example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Endpoints[0].Grade != "" {
			t.Errorf("expected no grade, got %q", result.Endpoints[0].Grade)
		}
		if result.Endpoints[0].StatusMessage == "" {
			t.Error("expected a status message")
		}
	})

	t.Run("resolution failure is an error", func(t *testing.T) {
		t.Parallel()

		grader := NewHandshakeGrader(WithResolver(func(context.Context, string) ([]net.IPAddr, error) {
			return nil, errors.New("no such host")
		}))
		if _, err := grader.Grade(t.Context(), "missing.test"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("host without addresses is an error", func(t *testing.T) {
		t.Parallel()

		grader := NewHandshakeGrader(WithResolver(func(context.Context, string) ([]net.IPAddr, error) {
			return nil, nil
		}))
		if _, err := grader.Grade(t.Context(), "empty.test"); !errors.Is(err, ErrNoAddresses) {
			t.Errorf("expected ErrNoAddresses, got %v", err)
		}
	})

	t.Run("empty host is rejected", func(t *testing.T) {
		t.Parallel()

		if _, err := NewHandshakeGrader().Grade(t.Context(), ""); !errors.Is(err, ErrEmptyHost) {
			t.Errorf("expected ErrEmptyHost, got %v", err)
		}
	})
}

func TestOCSPStatusOfGarbage(t *testing.T) {
	t.Parallel()

	if got := ocspStatus([]byte("not der"), nil); got != OCSPUnknown {
		t.Errorf("expected unknown, got %q", got)
	}
}
