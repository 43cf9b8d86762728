package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

var _ ports.Store = (*memStore)(nil)

// memStore is an in-memory ports.Store keyed the same way as the SQL store.
type memStore struct {
	mu       sync.Mutex
	sources  []domain.Source
	articles []domain.Article
	runs     []domain.DigestRun
	nextID   int64

	createArticleErr error
	updateSummaryErr error
	completeRunErr   error
}

func newMemStore() *memStore { return &memStore{} }

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) ActiveSources(context.Context) ([]domain.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Source
	for _, s := range m.sources {
		if s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) SourceByURL(_ context.Context, url string) (domain.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sources {
		if s.URL == url {
			return s, nil
		}
	}
	return domain.Source{}, domain.ErrNotFound
}

func (m *memStore) CreateSource(_ context.Context, source domain.Source) (domain.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sources {
		if s.URL == source.URL {
			return domain.Source{}, domain.ErrDuplicate
		}
	}
	source.ID = m.id()
	m.sources = append(m.sources, source)
	return source, nil
}

func (m *memStore) ArticleByURL(_ context.Context, url string) (domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.articles {
		if a.URL == url {
			return a, nil
		}
	}
	return domain.Article{}, domain.ErrNotFound
}

func (m *memStore) CreateArticle(_ context.Context, article domain.Article) (domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createArticleErr != nil {
		return domain.Article{}, m.createArticleErr
	}
	for _, a := range m.articles {
		if a.URL == article.URL {
			return domain.Article{}, domain.ErrDuplicate
		}
	}
	article.ID = m.id()
	m.articles = append(m.articles, article)
	return article, nil
}

func (m *memStore) RecentArticles(_ context.Context, since time.Time) ([]domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Article
	for _, a := range m.articles {
		if !a.ScrapedAt.Before(since) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScrapedAt.After(out[j].ScrapedAt) })
	return out, nil
}

func (m *memStore) UpdateArticleSummary(_ context.Context, id int64, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateSummaryErr != nil {
		return m.updateSummaryErr
	}
	for i := range m.articles {
		if m.articles[i].ID == id {
			m.articles[i].Summary = summary
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memStore) CreateDigestRun(_ context.Context, startedAt time.Time) (domain.DigestRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run := domain.DigestRun{ID: m.id(), StartedAt: startedAt}
	m.runs = append(m.runs, run)
	return run, nil
}

func (m *memStore) CompleteDigestRun(_ context.Context, id int64, outcome domain.RunOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completeRunErr != nil {
		err := m.completeRunErr
		m.completeRunErr = nil
		return err
	}
	for i := range m.runs {
		if m.runs[i].ID != id {
			continue
		}
		if m.runs[i].Finished() {
			return domain.ErrRunClosed
		}
		completed := outcome.CompletedAt
		m.runs[i].CompletedAt = &completed
		m.runs[i].Success = outcome.Success
		m.runs[i].ArticlesProcessed = outcome.ArticlesProcessed
		m.runs[i].SourcesFailed = outcome.SourcesFailed
		m.runs[i].SummariesFailed = outcome.SummariesFailed
		m.runs[i].OverallSummary = outcome.OverallSummary
		m.runs[i].ErrorMessage = outcome.ErrorMessage
		m.runs[i].EmailSent = outcome.EmailSent
		return nil
	}
	return domain.ErrNotFound
}

func (m *memStore) LastDigestRun(context.Context) (domain.DigestRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.runs) == 0 {
		return domain.DigestRun{}, domain.ErrNotFound
	}
	return m.runs[len(m.runs)-1], nil
}

// mapSource answers FetchSource from a table keyed by source URL.
type mapSource struct {
	items map[string][]domain.RawItem
	errs  map[string]error
	calls []string
}

func (s *mapSource) FetchSource(_ context.Context, source domain.Source) ([]domain.RawItem, error) {
	s.calls = append(s.calls, source.URL)
	if err := s.errs[source.URL]; err != nil {
		return nil, err
	}
	return s.items[source.URL], nil
}

type recordingMetrics struct {
	mu       sync.Mutex
	ingested map[string]int
	failed   []string
	degraded []string
	runs     []bool
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{ingested: map[string]int{}}
}

func (r *recordingMetrics) ArticlesIngested(source string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ingested[source] += n
}

func (r *recordingMetrics) SourceFailed(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, source)
}

func (r *recordingMetrics) SummaryDegraded(stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.degraded = append(r.degraded, stage)
}

func (r *recordingMetrics) RunFinished(success bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, success)
}

type stubSummarizer struct {
	failFor map[string]bool
}

func (s stubSummarizer) Summarize(_ context.Context, a domain.Article) (domain.ArticleSummary, error) {
	out := domain.ArticleSummary{ArticleID: a.ID, Title: a.Title, URL: a.URL, KeyPoints: []string{}}
	if s.failFor[a.URL] {
		out.Snippet = "Error generating summary."
		return out, domain.E(domain.KindSummarization, "summarize", errors.New("model down"))
	}
	out.Snippet = "snippet of " + a.Title
	return out, nil
}

type stubAggregator struct {
	err  error
	seen []domain.ArticleSummary
}

func (s *stubAggregator) Aggregate(_ context.Context, summaries []domain.ArticleSummary) (domain.DigestSummary, error) {
	s.seen = summaries
	digest := domain.DigestSummary{OverallSummary: "today in AI", Insights: []string{}, ArticleSummaries: summaries}
	if s.err != nil {
		digest.OverallSummary = "Error generating overall summary."
		return digest, s.err
	}
	return digest, nil
}

type stubDelivery struct {
	name string
	err  error
	got  []domain.DigestSummary
}

func (d *stubDelivery) Name() string { return d.name }

func (d *stubDelivery) Deliver(_ context.Context, digest domain.DigestSummary) error {
	d.got = append(d.got, digest)
	return d.err
}
