package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const watchURL = "https://www.youtube.com/watch?v="

var (
	videoIDExpr   = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	channelIDExpr = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// VideoConnector lists recent channel uploads and attaches transcripts.
type VideoConnector struct {
	platform    ports.VideoPlatform
	transcripts ports.TranscriptFetcher
	maxItems    int
	language    string
	logger      *slog.Logger
}

var _ ports.SourceConnector = (*VideoConnector)(nil)

// NewVideoConnector wires the platform API and the transcript fetcher.
func NewVideoConnector(platform ports.VideoPlatform, transcripts ports.TranscriptFetcher, maxItems int, language string, logger *slog.Logger) *VideoConnector {
	if logger == nil {
		logger = slog.Default()
	}
	if language == "" {
		language = "en"
	}
	return &VideoConnector{
		platform:    platform,
		transcripts: transcripts,
		maxItems:    maxItems,
		language:    language,
		logger:      logger,
	}
}

// Type identifies the connector inside the registry.
func (v *VideoConnector) Type() domain.SourceType {
	return domain.SourceVideo
}

// Fetch resolves the channel behind sourceURL and returns its newest videos.
func (v *VideoConnector) Fetch(ctx context.Context, sourceURL string, opts domain.Options) ([]domain.RawItem, error) {
	if v.platform == nil {
		return nil, domain.E(domain.KindSource, "fetch videos", errors.New("video platform is not configured"))
	}

	channelID, err := v.channelID(ctx, sourceURL, opts)
	if err != nil {
		return nil, err
	}

	videos, err := v.platform.ListRecentVideos(ctx, channelID, opts.Int("max_videos", v.maxItems))
	if err != nil {
		return nil, domain.E(domain.KindSource, "list videos", err)
	}

	language := opts.String("transcript_language", v.language)
	items := make([]domain.RawItem, 0, len(videos))
	for _, video := range videos {
		published, err := validateVideo(video)
		if err != nil {
			v.logger.Warn("video record dropped", "channel_id", channelID, "video_id", video.ID, "error", err)
			continue
		}

		items = append(items, domain.RawItem{
			Title:       strings.TrimSpace(video.Title),
			URL:         watchURL + video.ID,
			Content:     video.Description,
			Transcript:  v.transcript(ctx, video.ID, language),
			PublishedAt: &published,
		})
	}

	v.logger.Debug("channel listed", "channel_id", channelID, "videos", len(videos), "kept", len(items))
	return items, nil
}

func (v *VideoConnector) channelID(ctx context.Context, sourceURL string, opts domain.Options) (string, error) {
	if id := opts.String("channel_id", ""); id != "" {
		return id, nil
	}

	id, query, err := parseChannelRef(sourceURL)
	if err != nil {
		return "", domain.E(domain.KindSource, "parse channel", err)
	}
	if id != "" {
		return id, nil
	}

	resolved, err := v.platform.ResolveChannel(ctx, query)
	if err != nil {
		return "", domain.E(domain.KindSource, "resolve channel "+query, err)
	}
	if resolved == "" {
		return "", domain.E(domain.KindSource, "resolve channel "+query, domain.ErrNotFound)
	}
	return resolved, nil
}

func (v *VideoConnector) transcript(ctx context.Context, videoID, language string) string {
	if v.transcripts == nil {
		return ""
	}
	text, err := v.transcripts.Transcript(ctx, videoID, language)
	switch {
	case err == nil:
		return text
	case errors.Is(err, domain.ErrTranscriptUnavailable):
		v.logger.Debug("no transcript", "video_id", videoID, "language", language)
	default:
		v.logger.Warn("transcript fetch failed", "video_id", videoID, "error", err)
	}
	return ""
}

// parseChannelRef returns either a canonical channel id or a query that needs resolving.
func parseChannelRef(raw string) (id, query string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", errors.New("empty channel reference")
	}
	if strings.HasPrefix(raw, "@") {
		return "", strings.TrimPrefix(raw, "@"), nil
	}
	if !strings.Contains(raw, "/") {
		if !channelIDExpr.MatchString(raw) {
			return "", "", fmt.Errorf("malformed channel id %q", raw)
		}
		return raw, "", nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse channel url: %w", err)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case len(segments) >= 2 && segments[0] == "channel" && channelIDExpr.MatchString(segments[1]):
		return segments[1], "", nil
	case len(segments) >= 2 && (segments[0] == "c" || segments[0] == "user") && segments[1] != "":
		return "", segments[1], nil
	case len(segments) >= 1 && strings.HasPrefix(segments[0], "@") && len(segments[0]) > 1:
		return "", strings.TrimPrefix(segments[0], "@"), nil
	}
	return "", "", fmt.Errorf("unrecognized channel url %q", raw)
}

func validateVideo(video ports.Video) (time.Time, error) {
	if !videoIDExpr.MatchString(video.ID) {
		return time.Time{}, fmt.Errorf("malformed video id %q", video.ID)
	}
	if strings.TrimSpace(video.Title) == "" {
		return time.Time{}, errors.New("missing title")
	}
	published, err := time.Parse(time.RFC3339, video.PublishedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("publish time: %w", err)
	}
	return published.UTC(), nil
}
