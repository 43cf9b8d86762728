package usecase

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"NewsDigest/internal/domain"
)

const untitled = "No Title"

var errMissingURL = errors.New("item has no url")

// Normalize turns a connector item into an article owned by source.
// ScrapedAt is left for the caller to stamp.
func Normalize(source domain.Source, raw domain.RawItem) (domain.Article, error) {
	link := strings.TrimSpace(raw.URL)
	if link == "" {
		return domain.Article{}, domain.E(domain.KindSource, "normalize", errMissingURL)
	}
	u, err := url.Parse(link)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return domain.Article{}, domain.E(domain.KindSource, "normalize", fmt.Errorf("invalid url %q", link))
	}

	title := strings.Join(strings.Fields(raw.Title), " ")
	if title == "" {
		title = untitled
	}

	article := domain.Article{
		SourceID:   source.ID,
		Title:      title,
		URL:        link,
		Content:    strings.TrimSpace(raw.Content),
		Transcript: strings.TrimSpace(raw.Transcript),
	}
	if raw.PublishedAt != nil && !raw.PublishedAt.IsZero() {
		published := raw.PublishedAt.UTC()
		article.PublishedAt = &published
	}
	return article, nil
}
