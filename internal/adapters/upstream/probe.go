package upstream

import (
	"context"
	"fmt"
	"net/http"
)

// HTTPProbe checks the inference backend's health endpoint. The request is
// bounded by the caller's context; any non-2xx answer counts as down.
type HTTPProbe struct {
	client *http.Client
	url    string
}

func NewHTTPProbe(url string) *HTTPProbe {
	return &HTTPProbe{client: &http.Client{}, url: url}
}

func (p *HTTPProbe) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("build upstream request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("upstream unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	return nil
}
