package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/scanner"
)

// StrategySource implements ArticleSource via registered connectors.
type StrategySource struct {
	registry *scanner.Registry
	logger   *slog.Logger
}

var _ ports.ArticleSource = (*StrategySource)(nil)

// NewStrategySource wires the connector registry.
func NewStrategySource(reg *scanner.Registry, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		logger:   log,
	}
}

// FetchSource selects the connector by the source's type tag and runs it.
// Errors that carry no kind are reported as source failures.
func (s *StrategySource) FetchSource(ctx context.Context, source domain.Source) ([]domain.RawItem, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("connector registry is not configured")
	}

	s.debug("process source", "source", source.Name, "type", source.Type, "url", source.URL)
	connector, err := s.registry.Resolve(source.Type)
	if err != nil {
		return nil, domain.E(domain.KindSource, "source "+source.Name, err)
	}

	items, err := connector.Fetch(ctx, source.URL, source.Options)
	if err != nil {
		var categorized *domain.Error
		if !errors.As(err, &categorized) {
			err = domain.E(domain.KindSource, "fetch", err)
		}
		return nil, fmt.Errorf("source %s: %w", source.Name, err)
	}

	s.debug("source produced items", "source", source.Name, "count", len(items))
	return items, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
