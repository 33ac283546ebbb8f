package checker

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/nao1215/seocheck/internal/config"
)

// Prober reports whether a URL exists.
type Prober interface {
	Exists(ctx context.Context, url string) (bool, error)
}

// BodyProber is a Prober that can also return the body of an existing URL.
// The robots.txt check uses it to attach parsed metadata to its result.
type BodyProber interface {
	Prober
	Body(ctx context.Context, url string) (bool, []byte, error)
}

// maxProbeBody limits how much of a probed document is read.
const maxProbeBody = 512 * 1024

// HTTPProber probes URLs over HTTP.
// A URL exists when the server answers with a status below 400.
type HTTPProber struct {
	client    *http.Client
	userAgent string
}

// ProberOption configures an HTTPProber.
type ProberOption func(*HTTPProber)

// WithProberUserAgent sets the User-Agent header sent with probes.
func WithProberUserAgent(ua string) ProberOption {
	return func(p *HTTPProber) {
		p.userAgent = ua
	}
}

// NewHTTPProber creates an HTTPProber. A nil client uses a new http.Client.
func NewHTTPProber(client *http.Client, opts ...ProberOption) *HTTPProber {
	if client == nil {
		client = &http.Client{}
	}
	p := &HTTPProber{
		client:    client,
		userAgent: config.DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Exists sends a HEAD request to url, retrying with GET when the server
// does not allow HEAD.
func (p *HTTPProber) Exists(ctx context.Context, url string) (bool, error) {
	status, err := p.status(ctx, http.MethodHead, url)
	if err != nil {
		return false, err
	}
	if status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
		if status, err = p.status(ctx, http.MethodGet, url); err != nil {
			return false, err
		}
	}
	return status < http.StatusBadRequest, nil
}

// Body fetches url with GET and returns its body when it exists.
func (p *HTTPProber) Body(ctx context.Context, url string) (bool, []byte, error) {
	resp, err := p.do(ctx, http.MethodGet, url)
	if err != nil {
		return false, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return false, nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return true, nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	return true, body, nil
}

func (p *HTTPProber) status(ctx context.Context, method, url string) (int, error) {
	resp, err := p.do(ctx, method, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxProbeBody))
	return resp.StatusCode, nil
}

func (p *HTTPProber) do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	return p.client.Do(req)
}
