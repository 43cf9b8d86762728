package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/email"
	"NewsDigest/internal/infrastructure/httpapi"
	"NewsDigest/internal/infrastructure/httpx"
	"NewsDigest/internal/infrastructure/llm"
	"NewsDigest/internal/infrastructure/parser"
	"NewsDigest/internal/infrastructure/scheduler"
	"NewsDigest/internal/infrastructure/storage"
	"NewsDigest/internal/infrastructure/telegram"
	"NewsDigest/internal/infrastructure/youtube"
	"NewsDigest/internal/logging"
	"NewsDigest/internal/metrics"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/scanner"
	"NewsDigest/internal/summary"
	"NewsDigest/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *storage.SQLStore
	metrics   *metrics.Metrics
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	server    *httpapi.Server
}

// New opens the store and builds every adapter named by cfg.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	decls, err := config.LoadSources(cfg.SourcesPath)
	if errors.Is(err, config.ErrSourcesMissing) {
		baseLogger.Warn("no sources file, using stored sources only", "path", cfg.SourcesPath)
	} else if err != nil {
		_ = store.Close()
		return nil, err
	}

	m := metrics.New()
	httpClient := httpx.NewClient(httpx.Options{
		Timeout:     cfg.Scraping.Timeout,
		UserAgent:   cfg.Scraping.UserAgent,
		Retries:     cfg.Scraping.Retries,
		BackoffBase: cfg.Scraping.BackoffBase,
	}, baseLogger.With("component", "http"))

	registry := scanner.NewRegistry(
		parser.NewFeedConnector(httpClient, cfg.Scraping.MaxArticlesPerSource, baseLogger.With("component", "scanner.feed")),
		parser.NewWebConnector(httpClient, cfg.Scraping.Extractor, cfg.Scraping.MinContentLength, baseLogger.With("component", "scanner.web")),
	)
	if cfg.YouTube.APIKey != "" {
		registry.Register(parser.NewVideoConnector(
			youtube.NewClient(cfg.YouTube, cfg.Scraping.Timeout, cfg.Scraping.UserAgent),
			youtube.NewTranscriptFetcher(cfg.YouTube.WatchURL, httpClient),
			cfg.Scraping.MaxArticlesPerSource,
			cfg.YouTube.TranscriptLanguage,
			baseLogger.With("component", "scanner.video"),
		))
	} else {
		baseLogger.Warn("youtube api key missing, video sources will fail")
	}
	baseLogger.Info("connectors registered", "types", registry.Types())
	source := parser.NewStrategySource(registry, baseLogger.With("component", "source"))

	if cfg.ChatGPT.APIKey == "" {
		baseLogger.Warn("completion api key missing, summaries will use fallback texts")
	}
	completion := llm.NewChatGPTClient(cfg.ChatGPT)

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Store:        store,
		Source:       source,
		Summarizer:   summary.NewSummarizer(completion, cfg.ChatGPT.SystemPrompt, baseLogger.With("component", "summarizer")),
		Aggregator:   summary.NewAggregator(completion, cfg.ChatGPT.SystemPrompt, baseLogger.With("component", "aggregator")),
		Deliveries:   deliveries(cfg.Delivery, baseLogger),
		Metrics:      m,
		Declarations: decls,
		RecentWindow: cfg.Digest.RecentWindow,
		Logger:       baseLogger.With("component", "pipeline"),
	})

	cron := scheduler.NewCronScheduler(
		cfg.Scheduler.CronExpression,
		cfg.Scheduler.Location(),
		cfg.Scheduler.RunOnStart,
		baseLogger.With("component", "scheduler"),
	)

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		store:     store,
		metrics:   m,
		pipeline:  pipeline,
		scheduler: usecase.NewScheduler(cron, pipeline, baseLogger.With("component", "scheduler")),
		server:    httpapi.New(store, store, m.Handler(), baseLogger.With("component", "httpapi")),
	}, nil
}

func deliveries(cfg config.DeliveryConfig, logger *slog.Logger) []ports.Delivery {
	out := make([]ports.Delivery, 0, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		switch ch {
		case "email":
			out = append(out, email.NewSender(cfg.Email, logger.With("component", "delivery.email")))
		case "telegram":
			out = append(out, telegram.NewNotifier(cfg.Telegram, &http.Client{Timeout: 10 * time.Second}))
		}
	}
	return out
}

// Run performs a single pipeline execution.
func (a *Application) Run(ctx context.Context) (domain.DigestRun, error) {
	return a.pipeline.Run(ctx)
}

// Serve runs the scheduler and the operational HTTP server until ctx ends.
func (a *Application) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.scheduler.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return a.scheduler.Stop(stopCtx)
	})
	g.Go(func() error {
		return a.server.Run(gctx, a.cfg.HTTP.Addr)
	})

	err := g.Wait()
	a.logger.Info("service stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// LastRun returns the most recent ledger record.
func (a *Application) LastRun(ctx context.Context) (domain.DigestRun, error) {
	return a.store.LastDigestRun(ctx)
}

// Close releases the store.
func (a *Application) Close() error {
	return a.store.Close()
}
