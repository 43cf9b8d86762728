package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/logging"
)

func seedSources(t *testing.T, store *memStore, urls ...string) []domain.Source {
	t.Helper()
	out := make([]domain.Source, 0, len(urls))
	for _, u := range urls {
		s, err := store.CreateSource(context.Background(), domain.Source{Name: u, Type: domain.SourceFeed, URL: u, Active: true})
		require.NoError(t, err)
		out = append(out, s)
	}
	return out
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	published := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	src := domain.Source{ID: 7}

	a, err := Normalize(src, domain.RawItem{
		Title:       "  Big\n  model   news ",
		URL:         " https://example.com/a ",
		Content:     "  body  ",
		PublishedAt: &published,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), a.SourceID)
	assert.Equal(t, "Big model news", a.Title)
	assert.Equal(t, "https://example.com/a", a.URL)
	assert.Equal(t, "body", a.Content)
	require.NotNil(t, a.PublishedAt)
	assert.Equal(t, time.UTC, a.PublishedAt.Location())

	a, err = Normalize(src, domain.RawItem{URL: "http://example.com/b"})
	require.NoError(t, err)
	assert.Equal(t, "No Title", a.Title)
	assert.Nil(t, a.PublishedAt)

	for _, bad := range []string{"", "/relative", "ftp://example.com/x", "https://"} {
		_, err := Normalize(src, domain.RawItem{URL: bad})
		assert.Equal(t, domain.KindSource, domain.KindOf(err), bad)
	}
}

func TestSyncSourcesIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	decls := []domain.SourceDeclaration{
		{Name: "Blog", Type: "rss", URL: "https://blog.example/feed", Active: true},
		{Name: "Tube", Type: "youtube", URL: "https://youtube.com/@ai", Options: domain.Options{"max_videos": "2"}, Active: true},
		{Name: "Pod", Type: "podcast", URL: "https://pod.example"},
	}

	first, err := SyncSources(context.Background(), store, decls, logging.Discard())
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, domain.SourceVideo, first[1].Type)
	assert.Equal(t, "2", first[1].Options["max_videos"])

	decls[0].Name = "Renamed"
	second, err := SyncSources(context.Background(), store, decls, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, store.sources, 2)
	assert.Equal(t, "Blog", store.sources[0].Name)
}

func TestIngestContainsSourceFailures(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedSources(t, store, "https://a.example/feed", "https://b.example/feed", "https://c.example/feed")
	source := &mapSource{
		items: map[string][]domain.RawItem{
			"https://b.example/feed": {{Title: "B1", URL: "https://b.example/1"}, {Title: "bad", URL: "not a url"}},
			"https://c.example/feed": {{Title: "C1", URL: "https://c.example/1"}},
		},
		errs: map[string]error{
			"https://a.example/feed": domain.E(domain.KindTransient, "fetch", errors.New("timeout")),
		},
	}
	metrics := newRecordingMetrics()

	report, err := NewIngestor(store, source, metrics, logging.Discard()).IngestAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Sources)
	assert.Equal(t, 1, report.SourcesFailed)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Articles, 2)
	assert.Equal(t, "B1", report.Articles[0].Title)
	assert.Equal(t, "C1", report.Articles[1].Title)
	assert.False(t, report.Articles[0].ScrapedAt.IsZero())
	assert.Equal(t, []string{"https://a.example/feed"}, metrics.failed)
	assert.Equal(t, 1, metrics.ingested["https://b.example/feed"])
}

func TestIngestDeduplicatesByURL(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedSources(t, store, "https://a.example/feed", "https://b.example/feed")
	shared := domain.RawItem{Title: "Shared", URL: "https://news.example/story"}
	source := &mapSource{items: map[string][]domain.RawItem{
		"https://a.example/feed": {shared},
		"https://b.example/feed": {{Title: "Other title", URL: shared.URL}},
	}}
	ingestor := NewIngestor(store, source, nil, logging.Discard())

	report, err := ingestor.IngestAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Articles, 1)
	assert.Equal(t, 1, report.Duplicates)

	report, err = ingestor.IngestAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Articles)
	assert.Equal(t, 2, report.Duplicates)

	require.Len(t, store.articles, 1)
	assert.Equal(t, "Shared", store.articles[0].Title)
}

func TestIngestNoContentIsNotAFailure(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedSources(t, store, "https://web.example")
	source := &mapSource{errs: map[string]error{
		"https://web.example": domain.E(domain.KindSource, "extract", domain.ErrNoContent),
	}}

	report, err := NewIngestor(store, source, nil, logging.Discard()).IngestAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.SourcesFailed)
	assert.Empty(t, report.Articles)
}

func TestIngestAbortsOnStoreFailure(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedSources(t, store, "https://a.example/feed")
	store.createArticleErr = errors.New("disk full")
	source := &mapSource{items: map[string][]domain.RawItem{
		"https://a.example/feed": {{Title: "A", URL: "https://a.example/1"}},
	}}

	_, err := NewIngestor(store, source, nil, logging.Discard()).IngestAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.KindFatal, domain.KindOf(err))
}

func TestLedgerClosesExactlyOnce(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ledger := NewRunLedger(store)

	entry, err := ledger.Open(context.Background())
	require.NoError(t, err)
	assert.False(t, entry.Run().Finished())

	require.NoError(t, entry.Close(context.Background(), domain.RunOutcome{Success: true, ArticlesProcessed: 3}))
	assert.True(t, entry.Run().Finished())
	assert.Equal(t, 3, entry.Run().ArticlesProcessed)

	err = entry.Close(context.Background(), domain.FailedOutcome(errors.New("late")))
	assert.ErrorIs(t, err, domain.ErrRunClosed)

	last, err := store.LastDigestRun(context.Background())
	require.NoError(t, err)
	assert.True(t, last.Success)
	assert.Empty(t, last.ErrorMessage)
}

func TestLedgerStaysOpenWhenWriteFails(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	entry, err := NewRunLedger(store).Open(context.Background())
	require.NoError(t, err)

	store.completeRunErr = errors.New("connection reset")
	require.Error(t, entry.Close(context.Background(), domain.RunOutcome{Success: true}))
	assert.False(t, entry.Run().Finished())

	require.NoError(t, entry.Close(context.Background(), domain.FailedOutcome(errors.New("connection reset"))))
	assert.Equal(t, "connection reset", entry.Run().ErrorMessage)
}
