package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/Andylive5518/cctv-allin/internal/targets"
)

// Compile-time interface guard.
var _ Checker = (*HTTPChecker)(nil)

// HTTPChecker sends a GET and expects a 2xx response, the same criterion
// as the blackbox http_2xx module. Self-signed certificates are accepted.
type HTTPChecker struct {
	client *http.Client
}

// NewHTTPChecker creates a new HTTP checker with the given timeout.
func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	return &HTTPChecker{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig:   &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: true}, //nolint:gosec // G402: monitoring must work with self-signed certs
				DisableKeepAlives: true,
			},
		},
	}
}

func (c *HTTPChecker) Check(ctx context.Context, check targets.Check) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, check.URL, http.NoBody)
	if err != nil {
		r := failed(check, 0, err)
		return &r, fmt.Errorf("invalid URL %q: %w", check.URL, err)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		r := failed(check, elapsed, err)
		return &r, fmt.Errorf("http get %s: %w", check.URL, err)
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r := failed(check, elapsed, fmt.Errorf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
		return &r, fmt.Errorf("http %s: status %d", check.URL, resp.StatusCode)
	}
	return &Result{Success: true, Latency: elapsed, CheckedAt: time.Now().UTC()}, nil
}
