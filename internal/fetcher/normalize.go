package fetcher

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// EnsureScheme prefixes rawURL with "http://" unless it already starts
// with an http or https scheme in any letter case. An existing scheme is
// lower-cased.
func EnsureScheme(rawURL string) string {
	for _, scheme := range []string{"http://", "https://"} {
		if len(rawURL) >= len(scheme) && strings.EqualFold(rawURL[:len(scheme)], scheme) {
			return scheme + rawURL[len(scheme):]
		}
	}
	return "http://" + rawURL
}

// Normalize returns the canonical form of rawURL used as a crawl seed:
// a scheme is added when missing, the host is lower-cased and IDNA encoded,
// default ports and the fragment are dropped. The "www." prefix and any
// trailing slash are kept.
func Normalize(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", ErrInvalidURL
	}

	u, err := url.Parse(EnsureScheme(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidURL, rawURL)
	}

	host, err := idna.Lookup.ToASCII(strings.ToLower(u.Hostname()))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host = net.JoinHostPort(host, port)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = host
	u.Fragment = ""
	u.RawFragment = ""

	return u.String(), nil
}

// Origin returns "scheme://host[:port]" for rawURL.
func Origin(rawURL string) (string, error) {
	normalized, err := Normalize(rawURL)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	return u.Scheme + "://" + u.Host, nil
}

// IsValidURL reports whether rawURL is a well-formed absolute http or https
// URL with a host.
func IsValidURL(rawURL string) bool {
	if strings.ContainsAny(rawURL, " \t\r\n") {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Hostname() != ""
}
