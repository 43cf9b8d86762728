package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SourceType is the protocol tag that selects a connector.
type SourceType string

const (
	SourceFeed  SourceType = "rss"
	SourceVideo SourceType = "youtube"
	SourceWeb   SourceType = "web"
)

// ParseSourceType maps a declared type tag onto a known protocol.
func ParseSourceType(value string) (SourceType, error) {
	switch SourceType(strings.ToLower(strings.TrimSpace(value))) {
	case SourceFeed, "feed":
		return SourceFeed, nil
	case SourceVideo, "video":
		return SourceVideo, nil
	case SourceWeb, "generic-web":
		return SourceWeb, nil
	default:
		return "", fmt.Errorf("unknown source type %q", value)
	}
}

// Options carries opaque per-source connector settings.
type Options map[string]string

// String returns the option value or def when absent.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// Int returns a positive integer option or def.
func (o Options) Int(key string, def int) int {
	v, ok := o[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// Bool returns a boolean option or def.
func (o Options) Bool(key string, def bool) bool {
	v, ok := o[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// Source is a configured content origin. URL is its identity.
type Source struct {
	ID        int64
	Name      string
	Type      SourceType
	URL       string
	Options   Options
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SourceDeclaration is one entry of the declarative sources file.
type SourceDeclaration struct {
	Name    string
	Type    string
	URL     string
	Options Options
	Active  bool
}

// RawItem is what a connector returns before normalization.
type RawItem struct {
	Title       string
	URL         string
	Content     string
	Transcript  string
	PublishedAt *time.Time
}

// Article is a persisted content item. URL is unique across all sources.
type Article struct {
	ID          int64
	SourceID    int64
	Title       string
	URL         string
	Content     string
	Transcript  string
	Summary     string
	PublishedAt *time.Time
	ScrapedAt   time.Time
}

// ArticleSummary is the per-item result of summarization.
type ArticleSummary struct {
	ArticleID int64
	Title     string
	URL       string
	Snippet   string
	KeyPoints []string
}

// DigestSummary is the aggregate over all per-item summaries.
type DigestSummary struct {
	OverallSummary   string
	Insights         []string
	ArticleSummaries []ArticleSummary
}
