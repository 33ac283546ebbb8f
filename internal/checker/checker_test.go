package checker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nao1215/seocheck/internal/metrics"
	"github.com/nao1215/seocheck/internal/model"
)

// mockProber is a Prober backed by a function field.
type mockProber struct {
	existsFunc func(ctx context.Context, url string) (bool, error)
}

func (m *mockProber) Exists(ctx context.Context, url string) (bool, error) {
	return m.existsFunc(ctx, url)
}

// mockGrader is a Grader backed by a function field.
type mockGrader struct {
	gradeFunc func(ctx context.Context, host string) (*model.HostGrade, error)
}

func (m *mockGrader) Grade(ctx context.Context, host string) (*model.HostGrade, error) {
	return m.gradeFunc(ctx, host)
}

func staticProber(exists bool, err error) *mockProber {
	return &mockProber{existsFunc: func(context.Context, string) (bool, error) { return exists, err }}
}

func gradesOf(grades ...string) *mockGrader {
	return &mockGrader{gradeFunc: func(_ context.Context, host string) (*model.HostGrade, error) {
		hg := &model.HostGrade{Host: host}
		for _, g := range grades {
			hg.Endpoints = append(hg.Endpoints, model.Endpoint{Grade: g})
		}
		return hg, nil
	}}
}

// TestCheckerSitemap tests the sitemap.xml check.
func TestCheckerSitemap(t *testing.T) {
	t.Parallel()

	t.Run("missing sitemap reports not found", func(t *testing.T) {
		t.Parallel()

		c := New(staticProber(false, nil), gradesOf())
		result := c.Sitemap(t.Context(), "https://example.com")

		if result.Value != false {
			t.Errorf("expected value false, got %v", result.Value)
		}
		if result.Summary != "Sitemap.xml not found" {
			t.Errorf("unexpected summary %q", result.Summary)
		}
		if !result.OK {
			t.Error("expected OK result for a clean negative probe")
		}
	})

	t.Run("existing sitemap reports found", func(t *testing.T) {
		t.Parallel()

		var probed string
		prober := &mockProber{existsFunc: func(_ context.Context, url string) (bool, error) {
			probed = url
			return true, nil
		}}

		result := New(prober, gradesOf()).Sitemap(t.Context(), "https://example.com/")

		if probed != "https://example.com/sitemap.xml" {
			t.Errorf("unexpected probed URL %q", probed)
		}
		if result.Value != true || result.Summary != "Sitemap.xml was found" {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("probe failure degrades to not found", func(t *testing.T) {
		t.Parallel()

		result := New(staticProber(false, errors.New("dial tcp: refused")), gradesOf()).Sitemap(t.Context(), "https://example.com")

		if result.OK {
			t.Error("expected degraded result")
		}
		if result.Value != false {
			t.Errorf("expected fallback false, got %v", result.Value)
		}
		if result.DegradedReason == "" {
			t.Error("expected degraded reason")
		}
		if result.Summary != model.SummarySitemapNotFound {
			t.Errorf("unexpected summary %q", result.Summary)
		}
	})

	t.Run("probe is bounded by the check timeout", func(t *testing.T) {
		t.Parallel()

		prober := &mockProber{existsFunc: func(ctx context.Context, _ string) (bool, error) {
			<-ctx.Done()
			return false, ctx.Err()
		}}

		start := time.Now()
		result := New(prober, gradesOf(), WithTimeout(20*time.Millisecond)).Sitemap(t.Context(), "https://example.com")

		if time.Since(start) > 5*time.Second {
			t.Error("check was not bounded by its timeout")
		}
		if result.OK {
			t.Error("expected degraded result")
		}
	})
}

// TestCheckerRobots tests the robots.txt check.
func TestCheckerRobots(t *testing.T) {
	t.Parallel()

	t.Run("missing robots reports not found", func(t *testing.T) {
		t.Parallel()

		result := New(staticProber(false, nil), gradesOf()).Robots(t.Context(), "https://example.com")

		if result.Value != false || result.Summary != "Robots.txt not found" {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("found robots is parsed when the prober returns bodies", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/robots.txt" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /\n\nSitemap: https://example.com/sitemap.xml\n"))
		}))
		defer server.Close()

		c := New(NewHTTPProber(server.Client()), gradesOf(), WithUserAgent("seocheck"))
		result := c.Robots(t.Context(), server.URL)

		if !result.Exists() {
			t.Fatalf("expected robots.txt to be found, got %+v", result)
		}
		if result.Summary != "Robots.txt was found" {
			t.Errorf("unexpected summary %q", result.Summary)
		}
		if result.Metadata["sitemaps"] != 1 {
			t.Errorf("expected 1 sitemap directive, got %v", result.Metadata["sitemaps"])
		}
		if result.Metadata["root_allowed"] != false {
			t.Errorf("expected root to be disallowed, got %v", result.Metadata["root_allowed"])
		}
	})
}

// TestCheckerTLS tests TLS grade collection.
func TestCheckerTLS(t *testing.T) {
	t.Parallel()

	t.Run("collects grades skipping empty ones", func(t *testing.T) {
		t.Parallel()

		result := New(staticProber(true, nil), gradesOf("A", "", "B")).TLS(t.Context(), "example.com")

		if len(result.Grades) != 2 || result.Grades[0] != "A" || result.Grades[1] != "B" {
			t.Errorf("expected [A B], got %v", result.Grades)
		}
		if result.Summary != "" {
			t.Errorf("expected empty summary, got %q", result.Summary)
		}
		if !result.OK {
			t.Error("expected OK result")
		}
		if result.Value == nil || len(result.Value.Endpoints) != 3 {
			t.Error("expected raw payload to be kept")
		}
	})

	t.Run("no grades means no certificate", func(t *testing.T) {
		t.Parallel()

		result := New(staticProber(true, nil), gradesOf("", "")).TLS(t.Context(), "example.com")

		if result.Summary != "No SSL certificate detected" {
			t.Errorf("unexpected summary %q", result.Summary)
		}
		if len(result.Grades) != 0 {
			t.Errorf("expected no grades, got %v", result.Grades)
		}
	})

	t.Run("grader failure degrades with empty summary", func(t *testing.T) {
		t.Parallel()

		grader := &mockGrader{gradeFunc: func(context.Context, string) (*model.HostGrade, error) {
			return nil, errors.New("lookup failed")
		}}
		result := New(staticProber(true, nil), grader).TLS(t.Context(), "example.com")

		if result.OK {
			t.Error("expected degraded result")
		}
		if result.Summary != "" {
			t.Errorf("expected empty summary, got %q", result.Summary)
		}
		if result.Grades == nil || len(result.Grades) != 0 {
			t.Errorf("expected empty grade list, got %v", result.Grades)
		}
		if result.DegradedReason != "lookup failed" {
			t.Errorf("unexpected reason %q", result.DegradedReason)
		}
		if result.Value == nil || result.Value.Host != "example.com" || len(result.Value.Endpoints) != 0 {
			t.Errorf("expected host-only value, got %+v", result.Value)
		}

		data, err := json.Marshal(result)
		if err != nil {
			t.Fatalf("failed to marshal: %v", err)
		}
		if !strings.Contains(string(data), `"value":{"host":"example.com"`) {
			t.Errorf("expected value section in %s", data)
		}
	})

	t.Run("records check metrics", func(t *testing.T) {
		t.Parallel()

		m := metrics.New(prometheus.NewRegistry())
		grader := &mockGrader{gradeFunc: func(context.Context, string) (*model.HostGrade, error) {
			return nil, errors.New("boom")
		}}
		New(staticProber(true, nil), grader, WithMetrics(m)).TLS(t.Context(), "example.com")

		if got := testutil.ToFloat64(m.CheckDegraded.WithLabelValues(NameTLS)); got != 1 {
			t.Errorf("expected 1 degraded check, got %v", got)
		}
	})
}

// TestHTTPProber tests existence probing over HTTP.
func TestHTTPProber(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/redirected":
			w.WriteHeader(http.StatusNoContent)
		case "/no-head":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	prober := NewHTTPProber(server.Client())

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "200 exists", path: "/ok", want: true},
		{name: "204 exists", path: "/redirected", want: true},
		{name: "HEAD rejected falls back to GET", path: "/no-head", want: true},
		{name: "404 does not exist", path: "/missing", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := prober.Exists(t.Context(), server.URL+tt.path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	t.Run("transport error is returned", func(t *testing.T) {
		t.Parallel()

		if _, err := prober.Exists(t.Context(), "http://127.0.0.1:1/none"); err == nil {
			t.Error("expected transport error")
		}
	})
}
