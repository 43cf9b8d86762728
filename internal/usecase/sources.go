package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// SyncSources makes sure every declared source exists, keyed by URL.
// Existing rows are returned untouched; entries with an unknown type are skipped.
func SyncSources(ctx context.Context, repo ports.SourceRepository, decls []domain.SourceDeclaration, logger *slog.Logger) ([]domain.Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sources := make([]domain.Source, 0, len(decls))
	for _, decl := range decls {
		kind, err := domain.ParseSourceType(decl.Type)
		if err != nil {
			logger.Warn("source declaration skipped", "name", decl.Name, "url", decl.URL, "error", err)
			continue
		}

		existing, err := repo.SourceByURL(ctx, decl.URL)
		if err == nil {
			sources = append(sources, existing)
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("lookup source %s: %w", decl.URL, err)
		}

		created, err := repo.CreateSource(ctx, domain.Source{
			Name:    decl.Name,
			Type:    kind,
			URL:     decl.URL,
			Options: decl.Options,
			Active:  decl.Active,
		})
		if errors.Is(err, domain.ErrDuplicate) {
			created, err = repo.SourceByURL(ctx, decl.URL)
		}
		if err != nil {
			return nil, fmt.Errorf("create source %s: %w", decl.URL, err)
		}
		logger.Info("source registered", "name", created.Name, "type", created.Type, "url", created.URL)
		sources = append(sources, created)
	}
	return sources, nil
}
