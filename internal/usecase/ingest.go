package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// IngestStore is the part of the store the ingestor writes to.
type IngestStore interface {
	ports.SourceRepository
	ports.ArticleRepository
}

// IngestReport summarizes one ingestion pass.
type IngestReport struct {
	// Articles holds the newly inserted rows in source-iteration order.
	Articles      []domain.Article
	Sources       int
	SourcesFailed int
	Duplicates    int
	Skipped       int
}

// Ingestor scrapes every active source and persists unseen URLs.
type Ingestor struct {
	store   IngestStore
	source  ports.ArticleSource
	metrics ports.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewIngestor wires the store with the connector dispatcher.
func NewIngestor(store IngestStore, source ports.ArticleSource, metrics ports.Metrics, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		store:   store,
		source:  source,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// IngestAll runs one pass over the active sources, one at a time. A failing
// source contributes nothing; store failures abort the pass.
func (i *Ingestor) IngestAll(ctx context.Context) (IngestReport, error) {
	var report IngestReport

	sources, err := i.store.ActiveSources(ctx)
	if err != nil {
		return report, domain.E(domain.KindFatal, "load active sources", err)
	}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return report, domain.E(domain.KindFatal, "ingest", err)
		}
		report.Sources++

		items, err := i.source.FetchSource(ctx, src)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrNoContent):
			i.logger.Info("source produced no content", "source", src.Name, "url", src.URL)
			continue
		case domain.IsDegradable(err):
			i.logger.Warn("source failed", "source", src.Name, "url", src.URL, "error", err)
			report.SourcesFailed++
			if i.metrics != nil {
				i.metrics.SourceFailed(src.Name)
			}
			continue
		default:
			return report, err
		}

		inserted, err := i.persist(ctx, src, items, &report)
		if err != nil {
			return report, err
		}
		if i.metrics != nil {
			i.metrics.ArticlesIngested(src.Name, inserted)
		}
		i.logger.Info("source ingested", "source", src.Name, "items", len(items), "new", inserted)
	}

	i.logger.Info("ingestion finished",
		"sources", report.Sources,
		"failed", report.SourcesFailed,
		"new", len(report.Articles),
		"duplicates", report.Duplicates,
		"skipped", report.Skipped)
	return report, nil
}

func (i *Ingestor) persist(ctx context.Context, src domain.Source, items []domain.RawItem, report *IngestReport) (int, error) {
	inserted := 0
	for _, item := range items {
		article, err := Normalize(src, item)
		if err != nil {
			i.logger.Warn("item skipped", "source", src.Name, "title", item.Title, "error", err)
			report.Skipped++
			continue
		}

		if _, err := i.store.ArticleByURL(ctx, article.URL); err == nil {
			i.logger.Debug("article already stored", "url", article.URL)
			report.Duplicates++
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			return inserted, domain.E(domain.KindFatal, "lookup article", err)
		}

		article.ScrapedAt = i.now()
		created, err := i.store.CreateArticle(ctx, article)
		if errors.Is(err, domain.ErrDuplicate) {
			i.logger.Debug("article already stored", "url", article.URL)
			report.Duplicates++
			continue
		}
		if err != nil {
			return inserted, domain.E(domain.KindFatal, "create article", fmt.Errorf("%s: %w", article.URL, err))
		}

		report.Articles = append(report.Articles, created)
		inserted++
	}
	return inserted, nil
}
