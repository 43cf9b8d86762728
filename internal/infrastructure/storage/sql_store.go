package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const (
	sqlitePragmas  = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	insertIfAbsent = "ON CONFLICT (url) DO NOTHING RETURNING id"
	returningID    = "RETURNING id"
)

var (
	sourceColumns  = []string{"id", "name", "source_type", "url", "config", "active", "created_at", "updated_at"}
	articleColumns = []string{"id", "source_id", "title", "url", "content", "summary", "transcript", "published_at", "scraped_at"}
	runColumns     = []string{"id", "started_at", "completed_at", "success", "articles_processed", "sources_failed",
		"summaries_failed", "overall_summary", "error_message", "email_sent"}
)

// SQLStore persists sources, articles and digest runs in PostgreSQL or SQLite.
type SQLStore struct {
	db     *sql.DB
	sb     sq.StatementBuilderType
	schema []string
	now    func() time.Time
}

var _ ports.Store = (*SQLStore)(nil)

// Open connects to the configured database and applies the schema.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*SQLStore, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.DSN
	if d.driver == "sqlite" {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driver, err)
	}
	if d.driver == "sqlite" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.driver, err)
	}

	store := newStore(db, d)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an existing connection pool without migrating it.
func New(db *sql.DB, driver string) (*SQLStore, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return newStore(db, d), nil
}

func newStore(db *sql.DB, d dialect) *SQLStore {
	return &SQLStore{
		db:     db,
		sb:     sq.StatementBuilder.PlaceholderFormat(d.placeholder),
		schema: d.schema,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + sqlitePragmas
}

// Migrate creates missing tables and indexes.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Ping checks connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// --- Sources ---

// ActiveSources lists active sources in creation order.
func (s *SQLStore) ActiveSources(ctx context.Context) ([]domain.Source, error) {
	query, args, err := s.sb.Select(sourceColumns...).From("sources").
		Where(sq.Eq{"active": true}).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active sources: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query active sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return sources, nil
}

// SourceByURL returns domain.ErrNotFound when no source has url.
func (s *SQLStore) SourceByURL(ctx context.Context, url string) (domain.Source, error) {
	query, args, err := s.sb.Select(sourceColumns...).From("sources").Where(sq.Eq{"url": url}).ToSql()
	if err != nil {
		return domain.Source{}, fmt.Errorf("build source by url: %w", err)
	}

	src, err := scanSource(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Source{}, domain.ErrNotFound
	}
	return src, err
}

// CreateSource inserts source unless its URL exists, in which case domain.ErrDuplicate is returned.
func (s *SQLStore) CreateSource(ctx context.Context, source domain.Source) (domain.Source, error) {
	cfg, err := json.Marshal(source.Options)
	if err != nil {
		return domain.Source{}, fmt.Errorf("encode source config: %w", err)
	}
	if source.Options == nil {
		cfg = []byte("{}")
	}

	now := s.now()
	query, args, err := s.sb.Insert("sources").
		Columns("name", "source_type", "url", "config", "active", "created_at", "updated_at").
		Values(source.Name, string(source.Type), source.URL, string(cfg), source.Active, now, now).
		Suffix(insertIfAbsent).ToSql()
	if err != nil {
		return domain.Source{}, fmt.Errorf("build insert source: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&source.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Source{}, fmt.Errorf("source %s: %w", source.URL, domain.ErrDuplicate)
		}
		return domain.Source{}, fmt.Errorf("insert source: %w", err)
	}
	source.CreatedAt = now
	source.UpdatedAt = now
	return source, nil
}

// --- Articles ---

// ArticleByURL returns domain.ErrNotFound when no article has url.
func (s *SQLStore) ArticleByURL(ctx context.Context, url string) (domain.Article, error) {
	query, args, err := s.sb.Select(articleColumns...).From("articles").Where(sq.Eq{"url": url}).ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build article by url: %w", err)
	}

	art, err := scanArticle(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, domain.ErrNotFound
	}
	return art, err
}

// CreateArticle inserts article atomically unless its URL exists (domain.ErrDuplicate).
// The existing row is never modified.
func (s *SQLStore) CreateArticle(ctx context.Context, article domain.Article) (domain.Article, error) {
	if article.ScrapedAt.IsZero() {
		article.ScrapedAt = s.now()
	}
	article.ScrapedAt = article.ScrapedAt.UTC()

	query, args, err := s.sb.Insert("articles").
		Columns("source_id", "title", "url", "content", "summary", "transcript", "published_at", "scraped_at").
		Values(article.SourceID, article.Title, article.URL, nullString(article.Content), nullString(article.Summary),
			nullString(article.Transcript), nullTime(article.PublishedAt), article.ScrapedAt).
		Suffix(insertIfAbsent).ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build insert article: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&article.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Article{}, fmt.Errorf("article %s: %w", article.URL, domain.ErrDuplicate)
		}
		return domain.Article{}, fmt.Errorf("insert article: %w", err)
	}
	return article, nil
}

// RecentArticles returns articles ingested at or after since, newest first.
func (s *SQLStore) RecentArticles(ctx context.Context, since time.Time) ([]domain.Article, error) {
	query, args, err := s.sb.Select(articleColumns...).From("articles").
		Where(sq.GtOrEq{"scraped_at": since.UTC()}).OrderBy("scraped_at DESC", "id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent articles: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		art, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, art)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return articles, nil
}

// UpdateArticleSummary stores the generated snippet.
func (s *SQLStore) UpdateArticleSummary(ctx context.Context, id int64, summary string) error {
	query, args, err := s.sb.Update("articles").Set("summary", summary).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build update summary: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("article %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// --- Digest runs ---

// CreateDigestRun opens a ledger record.
func (s *SQLStore) CreateDigestRun(ctx context.Context, startedAt time.Time) (domain.DigestRun, error) {
	run := domain.DigestRun{StartedAt: startedAt.UTC()}
	query, args, err := s.sb.Insert("digest_runs").
		Columns("started_at", "success", "articles_processed", "email_sent").
		Values(run.StartedAt, false, 0, false).
		Suffix(returningID).ToSql()
	if err != nil {
		return domain.DigestRun{}, fmt.Errorf("build insert run: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&run.ID); err != nil {
		return domain.DigestRun{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// CompleteDigestRun writes the terminal state. A run that already completed
// yields domain.ErrRunClosed.
func (s *SQLStore) CompleteDigestRun(ctx context.Context, id int64, outcome domain.RunOutcome) error {
	completed := outcome.CompletedAt
	if completed.IsZero() {
		completed = s.now()
	}

	query, args, err := s.sb.Update("digest_runs").SetMap(map[string]any{
		"completed_at":       completed.UTC(),
		"success":            outcome.Success,
		"articles_processed": outcome.ArticlesProcessed,
		"sources_failed":     outcome.SourcesFailed,
		"summaries_failed":   outcome.SummariesFailed,
		"overall_summary":    nullString(outcome.OverallSummary),
		"error_message":      nullString(outcome.ErrorMessage),
		"email_sent":         outcome.EmailSent,
	}).Where(sq.Eq{"id": id}).Where("completed_at IS NULL").ToSql()
	if err != nil {
		return fmt.Errorf("build complete run: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, lookupErr := s.digestRun(ctx, id); lookupErr != nil {
			return fmt.Errorf("run %d: %w", id, lookupErr)
		}
		return fmt.Errorf("run %d: %w", id, domain.ErrRunClosed)
	}
	return nil
}

// LastDigestRun returns the most recently opened run or domain.ErrNotFound.
func (s *SQLStore) LastDigestRun(ctx context.Context) (domain.DigestRun, error) {
	query, args, err := s.sb.Select(runColumns...).From("digest_runs").OrderBy("id DESC").Limit(1).ToSql()
	if err != nil {
		return domain.DigestRun{}, fmt.Errorf("build last run: %w", err)
	}
	run, err := scanRun(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DigestRun{}, domain.ErrNotFound
	}
	return run, err
}

func (s *SQLStore) digestRun(ctx context.Context, id int64) (domain.DigestRun, error) {
	query, args, err := s.sb.Select(runColumns...).From("digest_runs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.DigestRun{}, fmt.Errorf("build run: %w", err)
	}
	run, err := scanRun(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DigestRun{}, domain.ErrNotFound
	}
	return run, err
}

// --- scanning ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (domain.Source, error) {
	var (
		src     domain.Source
		kind    string
		rawOpts string
	)
	if err := row.Scan(&src.ID, &src.Name, &kind, &src.URL, &rawOpts, &src.Active, &src.CreatedAt, &src.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Source{}, err
		}
		return domain.Source{}, fmt.Errorf("scan source: %w", err)
	}
	src.Type = domain.SourceType(kind)
	src.CreatedAt = src.CreatedAt.UTC()
	src.UpdatedAt = src.UpdatedAt.UTC()
	if rawOpts != "" {
		if err := json.Unmarshal([]byte(rawOpts), &src.Options); err != nil {
			return domain.Source{}, fmt.Errorf("decode source config %s: %w", src.URL, err)
		}
	}
	return src, nil
}

func scanArticle(row rowScanner) (domain.Article, error) {
	var (
		art                          domain.Article
		content, summary, transcript sql.NullString
		published                    sql.NullTime
	)
	if err := row.Scan(&art.ID, &art.SourceID, &art.Title, &art.URL, &content, &summary, &transcript, &published, &art.ScrapedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Article{}, err
		}
		return domain.Article{}, fmt.Errorf("scan article: %w", err)
	}
	art.Content = content.String
	art.Summary = summary.String
	art.Transcript = transcript.String
	art.PublishedAt = timePtr(published)
	art.ScrapedAt = art.ScrapedAt.UTC()
	return art, nil
}

func scanRun(row rowScanner) (domain.DigestRun, error) {
	var (
		run              domain.DigestRun
		completed        sql.NullTime
		summary, errText sql.NullString
	)
	if err := row.Scan(&run.ID, &run.StartedAt, &completed, &run.Success, &run.ArticlesProcessed, &run.SourcesFailed,
		&run.SummariesFailed, &summary, &errText, &run.EmailSent); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DigestRun{}, err
		}
		return domain.DigestRun{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = run.StartedAt.UTC()
	run.CompletedAt = timePtr(completed)
	run.OverallSummary = summary.String
	run.ErrorMessage = errText.String
	return run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}
