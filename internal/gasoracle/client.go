// Package gasoracle reads gas prices from the Polygon gas station and the
// Polygonscan gas tracker.
package gasoracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultUserAgent mimics a browser UA; both services sit behind Cloudflare.
const DefaultUserAgent = "Mozilla/5.0"

type httpClient struct {
	name       string
	host       string
	httpClient *http.Client
	userAgent  string
}

func newHTTPClient(name, host, fallback string) (httpClient, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		host = fallback
	}
	host = strings.TrimRight(host, "/")

	u, err := url.Parse(host)
	if err != nil {
		return httpClient{}, fmt.Errorf("%s url parse %q: %w", name, host, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return httpClient{}, fmt.Errorf("%s url must be http(s), got %q", name, host)
	}
	return httpClient{
		name: name,
		host: host,
		httpClient: &http.Client{
			Timeout: 12 * time.Second,
		},
		userAgent: DefaultUserAgent,
	}, nil
}

func (c httpClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyLimit(resp.Body, 8<<10)
		return fmt.Errorf("%s %s: status=%d body=%q", c.name, redact(endpoint), resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", c.name, err)
	}
	return nil
}

// redact drops the query string so API keys never reach error messages.
func redact(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}

func readBodyLimit(r io.Reader, limit int64) string {
	if r == nil {
		return ""
	}
	if limit <= 0 {
		limit = 8 << 10
	}
	b, _ := io.ReadAll(io.LimitReader(r, limit))
	return string(b)
}
