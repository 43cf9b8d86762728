package ports

import (
	"context"
	"time"

	"NewsDigest/internal/domain"
)

// SourceConnector fetches raw items for one source of a given protocol.
type SourceConnector interface {
	Type() domain.SourceType
	Fetch(ctx context.Context, sourceURL string, opts domain.Options) ([]domain.RawItem, error)
}

// ArticleSource dispatches a stored source to its connector.
type ArticleSource interface {
	FetchSource(ctx context.Context, source domain.Source) ([]domain.RawItem, error)
}

// SourceRepository persists configured sources.
type SourceRepository interface {
	ActiveSources(ctx context.Context) ([]domain.Source, error)
	SourceByURL(ctx context.Context, url string) (domain.Source, error)
	CreateSource(ctx context.Context, source domain.Source) (domain.Source, error)
}

// ArticleRepository persists articles; URL is the dedup key.
type ArticleRepository interface {
	ArticleByURL(ctx context.Context, url string) (domain.Article, error)
	CreateArticle(ctx context.Context, article domain.Article) (domain.Article, error)
	RecentArticles(ctx context.Context, since time.Time) ([]domain.Article, error)
	UpdateArticleSummary(ctx context.Context, id int64, summary string) error
}

// RunRepository persists the digest run ledger.
type RunRepository interface {
	CreateDigestRun(ctx context.Context, startedAt time.Time) (domain.DigestRun, error)
	CompleteDigestRun(ctx context.Context, id int64, outcome domain.RunOutcome) error
	LastDigestRun(ctx context.Context) (domain.DigestRun, error)
}

// Store is the full persistence contract consumed by the pipeline.
type Store interface {
	SourceRepository
	ArticleRepository
	RunRepository
}

// CompletionRequest is one call to the text-generation model.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// CompletionClient returns free-form model text.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Summarizer compresses one article. A non-nil error still comes with a usable sentinel summary.
type Summarizer interface {
	Summarize(ctx context.Context, article domain.Article) (domain.ArticleSummary, error)
}

// Aggregator builds the digest over per-article summaries.
type Aggregator interface {
	Aggregate(ctx context.Context, summaries []domain.ArticleSummary) (domain.DigestSummary, error)
}

// Video is one channel upload as reported by the video platform.
type Video struct {
	ID          string
	Title       string
	Description string
	PublishedAt string
	ChannelID   string
}

// VideoPlatform resolves channels and lists their uploads.
type VideoPlatform interface {
	ResolveChannel(ctx context.Context, query string) (string, error)
	ListRecentVideos(ctx context.Context, channelID string, max int) ([]Video, error)
}

// TranscriptFetcher returns the spoken text of a video.
type TranscriptFetcher interface {
	Transcript(ctx context.Context, videoID, language string) (string, error)
}

// Delivery sends a finished digest to one outbound channel.
type Delivery interface {
	Name() string
	Deliver(ctx context.Context, digest domain.DigestSummary) error
}

// Metrics observes pipeline progress.
type Metrics interface {
	ArticlesIngested(source string, n int)
	SourceFailed(source string)
	SummaryDegraded(stage string)
	RunFinished(success bool, elapsed time.Duration)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
