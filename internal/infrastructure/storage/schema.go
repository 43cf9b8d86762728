package storage

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

type dialect struct {
	driver      string
	placeholder sq.PlaceholderFormat
	schema      []string
}

var postgresDialect = dialect{
	driver:      "postgres",
	placeholder: sq.Dollar,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS sources (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			source_type TEXT NOT NULL,
			url TEXT NOT NULL UNIQUE,
			config TEXT NOT NULL DEFAULT '{}',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS articles (
			id BIGSERIAL PRIMARY KEY,
			source_id BIGINT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			url TEXT NOT NULL UNIQUE,
			content TEXT,
			summary TEXT,
			transcript TEXT,
			published_at TIMESTAMPTZ,
			scraped_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_scraped_at ON articles (scraped_at)`,
		`CREATE TABLE IF NOT EXISTS digest_runs (
			id BIGSERIAL PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ,
			success BOOLEAN NOT NULL DEFAULT FALSE,
			articles_processed INTEGER NOT NULL DEFAULT 0,
			sources_failed INTEGER NOT NULL DEFAULT 0,
			summaries_failed INTEGER NOT NULL DEFAULT 0,
			overall_summary TEXT,
			error_message TEXT,
			email_sent BOOLEAN NOT NULL DEFAULT FALSE
		)`,
	},
}

var sqliteDialect = dialect{
	driver:      "sqlite",
	placeholder: sq.Question,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS sources (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			source_type TEXT NOT NULL,
			url TEXT NOT NULL UNIQUE,
			config TEXT NOT NULL DEFAULT '{}',
			active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS articles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_id INTEGER NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			url TEXT NOT NULL UNIQUE,
			content TEXT,
			summary TEXT,
			transcript TEXT,
			published_at DATETIME,
			scraped_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_scraped_at ON articles (scraped_at)`,
		`CREATE TABLE IF NOT EXISTS digest_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at DATETIME NOT NULL,
			completed_at DATETIME,
			success BOOLEAN NOT NULL DEFAULT 0,
			articles_processed INTEGER NOT NULL DEFAULT 0,
			sources_failed INTEGER NOT NULL DEFAULT 0,
			summaries_failed INTEGER NOT NULL DEFAULT 0,
			overall_summary TEXT,
			error_message TEXT,
			email_sent BOOLEAN NOT NULL DEFAULT 0
		)`,
	},
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "postgres":
		return postgresDialect, nil
	case "sqlite":
		return sqliteDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}
