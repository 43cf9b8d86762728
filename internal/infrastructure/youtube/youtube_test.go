package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
)

func TestClientListRecentVideos(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/search" || q.Get("key") != "secret" {
			t.Errorf("unexpected request: %s", r.URL)
		}
		if q.Get("channelId") != "UC1" || q.Get("order") != "date" || q.Get("type") != "video" || q.Get("maxResults") != "50" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"items":[{"id":{"videoId":"dQw4w9WgXcQ"},"snippet":{"channelId":"UC1","title":"T","description":"D","publishedAt":"2025-09-05T10:00:00Z"}}]}`))
	}))
	defer server.Close()

	c := NewClient(config.YouTubeConfig{APIKey: "secret", Endpoint: server.URL + "/"}, 0, "")
	videos, err := c.ListRecentVideos(context.Background(), "UC1", 80)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(videos) != 1 || videos[0].ID != "dQw4w9WgXcQ" || videos[0].Description != "D" || videos[0].PublishedAt != "2025-09-05T10:00:00Z" {
		t.Fatalf("unexpected videos: %+v", videos)
	}
}

func TestClientResolveChannel(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("type") != "channel" || q.Get("maxResults") != "1" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if ua := r.Header.Get("User-Agent"); ua != "AI-News-Aggregator/1.0 (Educational Project)" {
			t.Errorf("unexpected user agent: %q", ua)
		}
		if q.Get("q") == "OpenAI" {
			_, _ = w.Write([]byte(`{"items":[{"id":{},"snippet":{"channelId":"UCopenai"}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	c := NewClient(config.YouTubeConfig{APIKey: "secret", Endpoint: server.URL}, 0, "AI-News-Aggregator/1.0 (Educational Project)")
	id, err := c.ResolveChannel(context.Background(), "OpenAI")
	if err != nil || id != "UCopenai" {
		t.Fatalf("resolve: id=%q err=%v", id, err)
	}
	id, err = c.ResolveChannel(context.Background(), "nobody")
	if err != nil || id != "" {
		t.Fatalf("expected no match, got id=%q err=%v", id, err)
	}
}

func TestClientErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quotaExceeded"}`, http.StatusForbidden)
	}))
	defer server.Close()

	c := NewClient(config.YouTubeConfig{APIKey: "secret", Endpoint: server.URL}, 0, "")
	if _, err := c.ListRecentVideos(context.Background(), "UC1", 5); err == nil {
		t.Fatalf("expected error on 403")
	}

	unconfigured := NewClient(config.YouTubeConfig{Endpoint: server.URL}, 0, "")
	if _, err := unconfigured.ResolveChannel(context.Background(), "x"); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func newCaptionServer(t *testing.T, tracksJSON string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		tracks := fmt.Sprintf(tracksJSON, server.URL, server.URL)
		fmt.Fprintf(w, `<html><script>var ytInitialPlayerResponse = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":%s,"audioTracks":[]}}};</script></html>`, tracks)
	})
	mux.HandleFunc("/timedtext", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lang") == "en" && r.URL.Query().Get("kind") == "" {
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="utf-8" ?><transcript><text start="0" dur="1">Hello &amp;#39;world&amp;#39;</text><text start="1" dur="1">  </text><text start="2" dur="1">second
line</text></transcript>`))
			return
		}
		_, _ = w.Write([]byte(`<transcript><text start="0">auto</text></transcript>`))
	})
	return server
}

func TestTranscriptPrefersManualTrack(t *testing.T) {
	t.Parallel()

	server := newCaptionServer(t, `[{"baseUrl":"%s/timedtext?lang=en&kind=asr","languageCode":"en","kind":"asr"},{"baseUrl":"%s/timedtext?lang=en","languageCode":"en"}]`)
	f := NewTranscriptFetcher(server.URL+"/watch", server.Client())

	text, err := f.Transcript(context.Background(), "dQw4w9WgXcQ", "en")
	if err != nil {
		t.Fatalf("transcript: %v", err)
	}
	if text != "Hello 'world' second line" {
		t.Fatalf("unexpected transcript: %q", text)
	}
}

func TestTranscriptUnavailable(t *testing.T) {
	t.Parallel()

	server := newCaptionServer(t, `[{"baseUrl":"%s/timedtext?lang=de","languageCode":"de"},{"baseUrl":"%s/timedtext?lang=fr","languageCode":"fr"}]`)
	f := NewTranscriptFetcher(server.URL+"/watch", server.Client())

	_, err := f.Transcript(context.Background(), "dQw4w9WgXcQ", "en")
	if !errors.Is(err, domain.ErrTranscriptUnavailable) {
		t.Fatalf("expected ErrTranscriptUnavailable, got %v", err)
	}

	if tracks := captionTracks([]byte("<html>no captions</html>")); tracks != nil {
		t.Fatalf("expected no tracks, got %v", tracks)
	}
}
