package parser

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/htmltext"
	"NewsDigest/internal/ports"
)

const untitled = "No Title"

// FeedConnector reads RSS, Atom and JSON feeds.
type FeedConnector struct {
	client   *http.Client
	maxItems int
	logger   *slog.Logger
}

var _ ports.SourceConnector = (*FeedConnector)(nil)

// NewFeedConnector wires the HTTP client and the default per-source item limit.
func NewFeedConnector(client *http.Client, maxItems int, logger *slog.Logger) *FeedConnector {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedConnector{client: defaultClient(client), maxItems: maxItems, logger: logger}
}

// Type identifies the connector inside the registry.
func (f *FeedConnector) Type() domain.SourceType {
	return domain.SourceFeed
}

// Fetch returns up to max_articles entries in feed order.
func (f *FeedConnector) Fetch(ctx context.Context, sourceURL string, opts domain.Options) ([]domain.RawItem, error) {
	body, err := fetch(ctx, f.client, sourceURL)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		f.logger.Warn("feed document is malformed", "url", sourceURL, "error", err)
		return nil, nil
	}

	limit := opts.Int("max_articles", f.maxItems)
	entries := feed.Items[:min(limit, len(feed.Items))]
	items := make([]domain.RawItem, 0, len(entries))
	for _, entry := range entries {
		item, ok := f.convert(entry)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	f.logger.Debug("feed parsed", "url", sourceURL, "entries", len(feed.Items), "kept", len(items))
	return items, nil
}

func (f *FeedConnector) convert(entry *gofeed.Item) (domain.RawItem, bool) {
	if entry == nil {
		return domain.RawItem{}, false
	}
	link := strings.TrimSpace(entry.Link)
	if link == "" {
		f.logger.Debug("feed entry without link skipped", "title", entry.Title)
		return domain.RawItem{}, false
	}

	title := strings.TrimSpace(entry.Title)
	if title == "" {
		title = untitled
	}

	content := entry.Content
	if strings.TrimSpace(content) == "" {
		content = entry.Description
	}

	published := entry.PublishedParsed
	if published == nil {
		published = entry.UpdatedParsed
	}
	if published != nil {
		utc := published.UTC()
		published = &utc
	}

	return domain.RawItem{
		Title:       title,
		URL:         link,
		Content:     htmltext.ToText(content),
		PublishedAt: published,
	}, true
}
