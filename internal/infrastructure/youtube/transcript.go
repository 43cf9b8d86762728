package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

var captionTracksKey = []byte(`"captionTracks":`)

// TranscriptFetcher reads caption tracks advertised on the watch page.
type TranscriptFetcher struct {
	watchURL   string
	httpClient *http.Client
}

var _ ports.TranscriptFetcher = (*TranscriptFetcher)(nil)

// NewTranscriptFetcher uses client for both the watch page and the caption document.
func NewTranscriptFetcher(watchURL string, client *http.Client) *TranscriptFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &TranscriptFetcher{watchURL: watchURL, httpClient: client}
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

type timedText struct {
	Lines []struct {
		Text string `xml:",chardata"`
	} `xml:"text"`
}

// Transcript returns the caption text joined by spaces, or domain.ErrTranscriptUnavailable.
func (t *TranscriptFetcher) Transcript(ctx context.Context, videoID, language string) (string, error) {
	page, err := t.get(ctx, t.watchURL+"?v="+url.QueryEscape(videoID))
	if err != nil {
		return "", fmt.Errorf("watch page %s: %w", videoID, err)
	}

	track, ok := pickTrack(captionTracks(page), language)
	if !ok {
		return "", domain.ErrTranscriptUnavailable
	}

	doc, err := t.get(ctx, track.BaseURL)
	if err != nil {
		return "", fmt.Errorf("caption track %s: %w", videoID, err)
	}

	var tt timedText
	if err := xml.Unmarshal(doc, &tt); err != nil {
		return "", fmt.Errorf("decode captions %s: %w", videoID, err)
	}

	parts := make([]string, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		text := strings.Join(strings.Fields(html.UnescapeString(line.Text)), " ")
		if text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", domain.ErrTranscriptUnavailable
	}
	return strings.Join(parts, " "), nil
}

func captionTracks(page []byte) []captionTrack {
	idx := bytes.Index(page, captionTracksKey)
	if idx < 0 {
		return nil
	}
	var tracks []captionTrack
	dec := json.NewDecoder(bytes.NewReader(page[idx+len(captionTracksKey):]))
	if err := dec.Decode(&tracks); err != nil {
		return nil
	}
	return tracks
}

// pickTrack prefers a manual track over an auto-generated one.
func pickTrack(tracks []captionTrack, language string) (captionTrack, bool) {
	var auto *captionTrack
	for i := range tracks {
		tr := tracks[i]
		if tr.BaseURL == "" || !strings.EqualFold(tr.LanguageCode, language) {
			continue
		}
		if tr.Kind != "asr" {
			return tr, true
		}
		if auto == nil {
			auto = &tracks[i]
		}
	}
	if auto != nil {
		return *auto, true
	}
	return captionTrack{}, false
}

func (t *TranscriptFetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}
