package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// NoNewArticles is the overall summary of a run that found nothing to digest.
const NoNewArticles = "No new articles to process."

const defaultRecentWindow = 24 * time.Hour

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Store        ports.Store
	Source       ports.ArticleSource
	Summarizer   ports.Summarizer
	Aggregator   ports.Aggregator
	Deliveries   []ports.Delivery
	Metrics      ports.Metrics
	Declarations []domain.SourceDeclaration
	RecentWindow time.Duration
	Logger       *slog.Logger
}

// Pipeline implements the ingest, summarize and deliver workflow.
type Pipeline struct {
	store        ports.Store
	ingestor     *Ingestor
	ledger       *RunLedger
	summarizer   ports.Summarizer
	aggregator   ports.Aggregator
	deliveries   []ports.Delivery
	metrics      ports.Metrics
	declarations []domain.SourceDeclaration
	window       time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	window := deps.RecentWindow
	if window <= 0 {
		window = defaultRecentWindow
	}
	return &Pipeline{
		store:        deps.Store,
		ingestor:     NewIngestor(deps.Store, deps.Source, deps.Metrics, logger.With("component", "ingest")),
		ledger:       NewRunLedger(deps.Store),
		summarizer:   deps.Summarizer,
		aggregator:   deps.Aggregator,
		deliveries:   deps.Deliveries,
		metrics:      deps.Metrics,
		declarations: deps.Declarations,
		window:       window,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one digest run and returns its ledger record. Fatal errors are
// recorded on the run before being returned.
func (p *Pipeline) Run(ctx context.Context) (domain.DigestRun, error) {
	if p.store == nil || p.summarizer == nil || p.aggregator == nil {
		return domain.DigestRun{}, fmt.Errorf("pipeline is not fully configured")
	}

	started := time.Now()
	entry, err := p.ledger.Open(ctx)
	if err != nil {
		return domain.DigestRun{}, err
	}
	logger := p.logger.With("run_id", entry.ID(), "trace_id", uuid.NewString())
	logger.Info("digest run started")

	outcome, err := p.execute(ctx, logger)
	if err == nil {
		err = entry.Close(ctx, outcome)
	}
	if err != nil {
		logger.Error("digest run failed", "error", err)
		failed := domain.FailedOutcome(err)
		failed.SourcesFailed = outcome.SourcesFailed
		failed.SummariesFailed = outcome.SummariesFailed
		if closeErr := entry.Close(context.WithoutCancel(ctx), failed); closeErr != nil {
			logger.Error("cannot record failed run", "error", closeErr)
		}
		p.finished(false, started)
		return entry.Run(), err
	}

	logger.Info("digest run completed",
		"articles", outcome.ArticlesProcessed,
		"sources_failed", outcome.SourcesFailed,
		"summaries_failed", outcome.SummariesFailed,
		"delivered", outcome.EmailSent)
	p.finished(true, started)
	return entry.Run(), nil
}

func (p *Pipeline) execute(ctx context.Context, logger *slog.Logger) (domain.RunOutcome, error) {
	var outcome domain.RunOutcome

	if len(p.declarations) > 0 {
		if _, err := SyncSources(ctx, p.store, p.declarations, logger.With("component", "sources")); err != nil {
			return outcome, err
		}
	}

	report, err := p.ingestor.IngestAll(ctx)
	outcome.SourcesFailed = report.SourcesFailed
	if err != nil {
		return outcome, err
	}

	articles := report.Articles
	if len(articles) == 0 {
		since := p.now().Add(-p.window)
		logger.Info("no new articles, using recent ones", "since", since)
		articles, err = p.store.RecentArticles(ctx, since)
		if err != nil {
			return outcome, domain.E(domain.KindFatal, "load recent articles", err)
		}
	}
	if len(articles) == 0 {
		logger.Info("nothing to digest")
		outcome.Success = true
		outcome.OverallSummary = NoNewArticles
		return outcome, nil
	}

	summaries := make([]domain.ArticleSummary, 0, len(articles))
	for _, article := range articles {
		if err := ctx.Err(); err != nil {
			return outcome, domain.E(domain.KindFatal, "summarize", err)
		}

		summary, err := p.summarizer.Summarize(ctx, article)
		if err != nil {
			if !domain.IsDegradable(err) {
				return outcome, err
			}
			outcome.SummariesFailed++
			p.degraded("article")
		}
		if err := p.store.UpdateArticleSummary(ctx, article.ID, summary.Snippet); err != nil {
			return outcome, domain.E(domain.KindFatal, "store summary", err)
		}
		summaries = append(summaries, summary)
	}

	digest, err := p.aggregator.Aggregate(ctx, summaries)
	if err != nil {
		if !domain.IsDegradable(err) {
			return outcome, err
		}
		outcome.SummariesFailed++
		p.degraded("digest")
	}

	outcome.Success = true
	outcome.ArticlesProcessed = len(articles)
	outcome.OverallSummary = digest.OverallSummary
	outcome.EmailSent = p.deliver(ctx, digest, logger)
	return outcome, nil
}

// deliver reports whether at least one channel accepted the digest.
func (p *Pipeline) deliver(ctx context.Context, digest domain.DigestSummary, logger *slog.Logger) bool {
	delivered := false
	for _, d := range p.deliveries {
		if err := d.Deliver(ctx, digest); err != nil {
			logger.Warn("delivery failed", "channel", d.Name(), "error", err)
			continue
		}
		logger.Info("digest delivered", "channel", d.Name())
		delivered = true
	}
	if len(p.deliveries) == 0 {
		logger.Warn("no delivery channel configured")
	}
	return delivered
}

func (p *Pipeline) degraded(stage string) {
	if p.metrics != nil {
		p.metrics.SummaryDegraded(stage)
	}
}

func (p *Pipeline) finished(success bool, started time.Time) {
	if p.metrics != nil {
		p.metrics.RunFinished(success, time.Since(started))
	}
}
