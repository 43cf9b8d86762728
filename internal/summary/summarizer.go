// Package summary turns articles into snippets and snippets into a digest.
package summary

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// Sentinel texts used when the model output cannot be used.
const (
	SnippetNoContent   = "Content not available for analysis."
	SnippetUnavailable = "Unable to generate snippet."
	SnippetFailed      = "Error generating summary."
)

var (
	errNoClient     = errors.New("completion client is not configured")
	errEmptySection = errors.New("model response has no usable section")
)

// Summarizer compresses one article into a snippet and key points.
type Summarizer struct {
	client ports.CompletionClient
	system string
	logger *slog.Logger
}

var _ ports.Summarizer = (*Summarizer)(nil)

// NewSummarizer wires the completion client and system instruction.
func NewSummarizer(client ports.CompletionClient, systemPrompt string, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{client: client, system: systemPrompt, logger: logger}
}

// Summarize always returns a usable summary. A non-nil error is KindSummarization
// and means the snippet is a sentinel text.
func (s *Summarizer) Summarize(ctx context.Context, article domain.Article) (domain.ArticleSummary, error) {
	out := domain.ArticleSummary{
		ArticleID: article.ID,
		Title:     article.Title,
		URL:       article.URL,
		KeyPoints: []string{},
	}

	text := inputText(article)
	if text == "" {
		s.logger.Debug("article has no content", "article_id", article.ID, "url", article.URL)
		out.Snippet = SnippetNoContent
		return out, nil
	}

	if s.client == nil {
		out.Snippet = SnippetFailed
		return out, domain.E(domain.KindSummarization, "summarize article", errNoClient)
	}

	raw, err := s.client.Complete(ctx, ports.CompletionRequest{
		System:      s.system,
		Prompt:      snippetPrompt(article.Title, text),
		Temperature: temperature,
		MaxTokens:   snippetMaxTokens,
	})
	if err != nil {
		s.logger.Warn("snippet generation failed", "article_id", article.ID, "error", err)
		out.Snippet = SnippetFailed
		return out, domain.E(domain.KindSummarization, "summarize article", err)
	}

	parsed := ParseSnippet(strings.TrimSpace(raw))
	out.KeyPoints = parsed.Items
	if parsed.Text == "" {
		s.logger.Warn("model response has no snippet", "article_id", article.ID)
		out.Snippet = SnippetUnavailable
		return out, domain.E(domain.KindSummarization, "parse snippet", errEmptySection)
	}
	out.Snippet = parsed.Text
	return out, nil
}

func inputText(article domain.Article) string {
	switch {
	case strings.TrimSpace(article.Content) != "":
		return truncate(article.Content, InputLimit)
	case strings.TrimSpace(article.Transcript) != "":
		return truncate(article.Transcript, InputLimit)
	default:
		return ""
	}
}
