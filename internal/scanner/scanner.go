package scanner

import (
	"fmt"
	"slices"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// Registry keeps a mapping from source types to their connectors.
type Registry struct {
	connectors map[domain.SourceType]ports.SourceConnector
}

// NewRegistry builds a registry pre-filled with the given connectors.
func NewRegistry(connectors ...ports.SourceConnector) *Registry {
	r := &Registry{connectors: map[domain.SourceType]ports.SourceConnector{}}
	for _, c := range connectors {
		r.Register(c)
	}
	return r
}

// Register adds or replaces a connector implementation.
func (r *Registry) Register(connector ports.SourceConnector) {
	if connector == nil {
		return
	}
	if r.connectors == nil {
		r.connectors = map[domain.SourceType]ports.SourceConnector{}
	}
	r.connectors[connector.Type()] = connector
}

// Resolve returns the connector for a source type or an error if it is absent.
func (r *Registry) Resolve(sourceType domain.SourceType) (ports.SourceConnector, error) {
	if c, ok := r.connectors[sourceType]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("connector %s is not registered", sourceType)
}

// Types lists registered source types in sorted order.
func (r *Registry) Types() []domain.SourceType {
	types := make([]domain.SourceType, 0, len(r.connectors))
	for t := range r.connectors {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
