package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"NewsDigest/internal/domain"
)

const maxBodyBytes = 10 << 20

// fetch downloads rawURL and returns the body of a 2xx response.
func fetch(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, domain.E(domain.KindSource, "build request", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, domain.E(domain.KindTransient, "request "+rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.E(domain.KindSource, "request "+rawURL, fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, domain.E(domain.KindTransient, "read "+rawURL, err)
	}
	return body, nil
}

func defaultClient(client *http.Client) *http.Client {
	if client == nil {
		return &http.Client{Timeout: 30 * time.Second}
	}
	return client
}
