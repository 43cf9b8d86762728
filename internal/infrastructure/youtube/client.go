// Package youtube talks to the YouTube Data API and the public caption endpoints.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"NewsDigest/internal/config"
	"NewsDigest/internal/ports"
)

const maxSearchResults = 50

// Client implements ports.VideoPlatform over the Data API v3 search endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ ports.VideoPlatform = (*Client)(nil)

// NewClient builds a client from configuration. Requests are not retried.
func NewClient(cfg config.YouTubeConfig, timeout time.Duration, userAgent string) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			ChannelID   string `json:"channelId"`
			Title       string `json:"title"`
			Description string `json:"description"`
			PublishedAt string `json:"publishedAt"`
		} `json:"snippet"`
	} `json:"items"`
}

// ResolveChannel maps a custom name or handle to a channel id. An empty id means no match.
func (c *Client) ResolveChannel(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "channel")
	params.Set("maxResults", "1")

	var resp searchResponse
	if err := c.search(ctx, params, &resp); err != nil {
		return "", fmt.Errorf("resolve channel %s: %w", query, err)
	}
	if len(resp.Items) == 0 {
		return "", nil
	}
	return resp.Items[0].Snippet.ChannelID, nil
}

// ListRecentVideos returns the channel's uploads, newest first.
func (c *Client) ListRecentVideos(ctx context.Context, channelID string, max int) ([]ports.Video, error) {
	if max <= 0 {
		return nil, nil
	}
	if max > maxSearchResults {
		max = maxSearchResults
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("channelId", channelID)
	params.Set("order", "date")
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(max))

	var resp searchResponse
	if err := c.search(ctx, params, &resp); err != nil {
		return nil, fmt.Errorf("list videos %s: %w", channelID, err)
	}

	videos := make([]ports.Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		videos = append(videos, ports.Video{
			ID:          item.ID.VideoID,
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			PublishedAt: item.Snippet.PublishedAt,
			ChannelID:   item.Snippet.ChannelID,
		})
	}
	return videos, nil
}

func (c *Client) search(ctx context.Context, params url.Values, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("youtube api key is not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/search?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("youtube error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode search response: %w", err)
	}
	return nil
}
