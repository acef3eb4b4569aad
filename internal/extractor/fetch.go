package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/doyensec/safeurl"
)

// DefaultFetchTimeout bounds a single page fetch
const DefaultFetchTimeout = 30 * time.Second

// maxPageSize caps how much of a response body is read
const maxPageSize = 10 << 20

const userAgent = "Mozilla/5.0 (compatible; paperboy/1.0; +https://github.com/welldanyogia/paperboy)"

// NewGuardedClient returns an HTTP client that refuses private, loopback and
// link-local targets and only speaks http/https on ports 80 and 443.
func NewGuardedClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

// Page is a fetched HTML document
type Page struct {
	URL  *url.URL
	HTML []byte
}

// Fetch downloads rawURL with the given client and timeout
func Fetch(ctx context.Context, client *http.Client, rawURL string, timeout time.Duration) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q", rawURL)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", u.Redacted(), resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u.Redacted(), err)
	}

	// resolve against the final URL after redirects
	if resp.Request != nil && resp.Request.URL != nil {
		u = resp.Request.URL
	}
	return &Page{URL: u, HTML: body}, nil
}
