package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"event-catalog/core/reconcile"
)

// Feed fetches listings from a JSON endpoint.
type Feed struct {
	name      string
	url       string
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewFeed creates a feed source. A nil client gets one with the given timeout.
func NewFeed(name, url string, client *http.Client, cfg Config) *Feed {
	if client == nil {
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Feed{name: name, url: url, client: client, userAgent: cfg.UserAgent, maxBytes: maxBytes}
}

// Name returns the feed name.
func (f *Feed) Name() string { return f.name }

// Fetch downloads and decodes the feed.
func (f *Feed) Fetch(ctx context.Context) ([]reconcile.RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/ld+json")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", f.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: unexpected status %d", f.url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.url, err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("get %s: response exceeds %d bytes", f.url, f.maxBytes)
	}

	return Decode(body, ".json", f.name)
}
