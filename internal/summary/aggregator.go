package summary

import (
	"context"
	"log/slog"
	"strings"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// Sentinel texts for the overall summary.
const (
	DigestEmpty       = "No articles to summarize."
	DigestUnavailable = "Unable to generate overall summary."
	DigestFailed      = "Error generating overall summary."
)

// Aggregator builds the overall narrative over per-article summaries.
type Aggregator struct {
	client ports.CompletionClient
	system string
	logger *slog.Logger
}

var _ ports.Aggregator = (*Aggregator)(nil)

// NewAggregator wires the completion client and system instruction.
func NewAggregator(client ports.CompletionClient, systemPrompt string, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{client: client, system: systemPrompt, logger: logger}
}

// Aggregate always returns a digest carrying the input summaries. A non-nil error
// is KindSummarization and means the overall summary is a sentinel text.
func (a *Aggregator) Aggregate(ctx context.Context, summaries []domain.ArticleSummary) (domain.DigestSummary, error) {
	out := domain.DigestSummary{
		Insights:         []string{},
		ArticleSummaries: summaries,
	}
	if len(summaries) == 0 {
		out.OverallSummary = DigestEmpty
		out.ArticleSummaries = []domain.ArticleSummary{}
		return out, nil
	}

	if a.client == nil {
		out.OverallSummary = DigestFailed
		return out, domain.E(domain.KindSummarization, "aggregate", errNoClient)
	}

	raw, err := a.client.Complete(ctx, ports.CompletionRequest{
		System:      a.system,
		Prompt:      digestPrompt(summaries),
		Temperature: temperature,
		MaxTokens:   digestMaxTokens,
	})
	if err != nil {
		a.logger.Warn("overall summary failed", "articles", len(summaries), "error", err)
		out.OverallSummary = DigestFailed
		return out, domain.E(domain.KindSummarization, "aggregate", err)
	}

	parsed := ParseDigest(strings.TrimSpace(raw))
	out.Insights = parsed.Items
	if parsed.Text == "" {
		a.logger.Warn("model response has no overall summary")
		out.OverallSummary = DigestUnavailable
		return out, domain.E(domain.KindSummarization, "parse digest", errEmptySection)
	}
	out.OverallSummary = parsed.Text
	return out, nil
}
