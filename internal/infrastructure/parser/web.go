package parser

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/htmltext"
	"NewsDigest/internal/ports"
)

const (
	extractorSelector    = "selector"
	extractorReadability = "readability"
)

var (
	contentSelectors = []string{
		"article",
		"main",
		".article-content",
		".post-content",
		".entry-content",
		"#content",
		".content",
		"[role='main']",
	}
	noiseSelector = "script, style, nav, footer, aside, .advertisement"

	dateSelectors = []struct{ selector, attr string }{
		{`meta[property="article:published_time"]`, "content"},
		{`meta[name="publishdate"]`, "content"},
		{`meta[name="date"]`, "content"},
		{"time[datetime]", "datetime"},
	}
	dateLayouts = []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05Z0700",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		time.RFC1123Z,
		time.RFC1123,
	}
)

// WebConnector extracts a single article from an arbitrary page.
type WebConnector struct {
	client    *http.Client
	extractor string
	minLength int
	logger    *slog.Logger
}

var _ ports.SourceConnector = (*WebConnector)(nil)

// NewWebConnector wires the HTTP client. extractor is the default strategy
// ("selector" or "readability"); minLength is the shortest acceptable body.
func NewWebConnector(client *http.Client, extractor string, minLength int, logger *slog.Logger) *WebConnector {
	if logger == nil {
		logger = slog.Default()
	}
	if extractor == "" {
		extractor = extractorSelector
	}
	if minLength <= 0 {
		minLength = 100
	}
	return &WebConnector{client: defaultClient(client), extractor: extractor, minLength: minLength, logger: logger}
}

// Type identifies the connector inside the registry.
func (w *WebConnector) Type() domain.SourceType {
	return domain.SourceWeb
}

// Fetch returns the page as one item, or domain.ErrNoContent when the body is too short.
func (w *WebConnector) Fetch(ctx context.Context, sourceURL string, opts domain.Options) ([]domain.RawItem, error) {
	body, err := fetch(ctx, w.client, sourceURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, domain.E(domain.KindSource, "parse page", err)
	}

	title := extractTitle(doc, sourceURL)
	published := extractPublished(doc)

	var content string
	switch opts.String("extractor", w.extractor) {
	case extractorReadability:
		content = w.readable(body, sourceURL)
		if !w.usable(content) && opts.Bool("fallback", true) {
			w.logger.Debug("readability produced no usable content, falling back to selectors", "url", sourceURL)
			content = w.extractContent(doc)
		}
	default:
		content = w.extractContent(doc)
	}

	if !w.usable(content) {
		w.logger.Warn("page content below threshold", "url", sourceURL, "chars", utf8.RuneCountInString(content), "min", w.minLength)
		return nil, domain.E(domain.KindSource, "extract "+sourceURL, domain.ErrNoContent)
	}

	return []domain.RawItem{{
		Title:       title,
		URL:         sourceURL,
		Content:     content,
		PublishedAt: published,
	}}, nil
}

func (w *WebConnector) usable(content string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(content)) >= w.minLength
}

func (w *WebConnector) readable(body []byte, sourceURL string) string {
	pageURL, err := url.Parse(sourceURL)
	if err != nil {
		pageURL = nil
	}
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		w.logger.Debug("readability failed", "url", sourceURL, "error", err)
		return ""
	}

	var html strings.Builder
	if err := article.RenderHTML(&html); err == nil {
		if text := htmltext.ToText(html.String()); text != "" {
			return text
		}
	}

	var text strings.Builder
	if err := article.RenderText(&text); err != nil {
		return ""
	}
	return strings.TrimSpace(text.String())
}

func extractTitle(doc *goquery.Document, fallback string) string {
	if v, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	if v := collapseText(doc.Find("h1").First().Text()); v != "" {
		return v
	}
	if v := collapseText(doc.Find("title").First().Text()); v != "" {
		return v
	}
	return fallback
}

func extractPublished(doc *goquery.Document) *time.Time {
	for _, candidate := range dateSelectors {
		value, ok := doc.Find(candidate.selector).First().Attr(candidate.attr)
		if !ok {
			continue
		}
		if ts, ok := parseTimestamp(value); ok {
			return &ts
		}
	}
	return nil
}

func parseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// extractContent tries the content selectors in order, skipping areas below the
// length threshold, then concatenates paragraphs.
func (w *WebConnector) extractContent(doc *goquery.Document) string {
	for _, selector := range contentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		sel = sel.Clone()
		sel.Find(noiseSelector).Remove()
		if text := htmltext.FromSelection(sel); w.usable(text) {
			return text
		}
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := collapseText(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, "\n\n")
}

func collapseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
