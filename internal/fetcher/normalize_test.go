package fetcher

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "adds scheme", input: "example.com", want: "http://example.com"},
		{name: "lower-cases host only", input: "https://Example.COM/About", want: "https://example.com/About"},
		{name: "drops default http port", input: "http://example.com:80/a", want: "http://example.com/a"},
		{name: "drops default https port", input: "https://example.com:443/", want: "https://example.com/"},
		{name: "keeps custom port", input: "http://example.com:8080/", want: "http://example.com:8080/"},
		{name: "drops fragment", input: "http://example.com/a#top", want: "http://example.com/a"},
		{name: "keeps www prefix", input: "www.example.com", want: "http://www.example.com"},
		{name: "encodes IDN host", input: "http://bücher.example/", want: "http://xn--bcher-kva.example/"},
		{name: "trims whitespace", input: "  example.com/  ", want: "http://example.com/"},
		{name: "upper-case https scheme", input: "HTTPS://Example.com", want: "https://example.com"},
		{name: "upper-case http scheme", input: "HTTP://x", want: "http://x"},
		{name: "mixed-case scheme keeps path", input: "HtTpS://Example.com/Path", want: "https://example.com/Path"},
		{name: "empty input", input: "", wantErr: true},
		{name: "missing host", input: "http:///path", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Normalize(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidURL) {
					t.Errorf("expected ErrInvalidURL, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestOrigin(t *testing.T) {
	t.Parallel()

	got, err := Origin("https://Example.com:8443/deep/path?q=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://example.com:8443" {
		t.Errorf("unexpected origin %q", got)
	}
}

func TestIsValidURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"http://example.com/", true},
		{"https://example.com/a?b=c", true},
		{"ftp://example.com/", false},
		{"mailto:user@example.com", false},
		{"/relative/path", false},
		{"http://exa mple.com/", false},
		{"http://", false},
	}

	for _, tt := range tests {
		if got := IsValidURL(tt.input); got != tt.want {
			t.Errorf("IsValidURL(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestEnsureScheme(t *testing.T) {
	t.Parallel()

	if got := EnsureScheme("example.com"); got != "http://example.com" {
		t.Errorf("unexpected %q", got)
	}
	if got := EnsureScheme("https://example.com"); got != "https://example.com" {
		t.Errorf("unexpected %q", got)
	}
	if got := EnsureScheme("HTTPS://Example.com/"); got != "https://Example.com/" {
		t.Errorf("expected upper-case scheme to be kept and lower-cased, got %q", got)
	}
	if got := EnsureScheme("httpbin.org"); got != "http://httpbin.org" {
		t.Errorf("host starting with http must still get a scheme, got %q", got)
	}
}
