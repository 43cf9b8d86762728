package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"NewsDigest/internal/domain"
)

type sourcesFile struct {
	Sources []sourceEntry `yaml:"sources"`
}

type sourceEntry struct {
	Name   string         `yaml:"name"`
	Type   string         `yaml:"type"`
	URL    string         `yaml:"url"`
	Config map[string]any `yaml:"config"`
	Active *bool          `yaml:"active"`
}

// ErrSourcesMissing is returned when the declaration file does not exist.
var ErrSourcesMissing = errors.New("sources declaration not found")

// LoadSources reads the declarative source list in file order.
func LoadSources(path string) ([]domain.SourceDeclaration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourcesMissing, path)
		}
		return nil, fmt.Errorf("read sources %s: %w", path, err)
	}
	return ParseSources(raw)
}

// ParseSources decodes a sources document. Option values are flattened to strings.
func ParseSources(raw []byte) ([]domain.SourceDeclaration, error) {
	var file sourcesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse sources: %w", err)
	}

	decls := make([]domain.SourceDeclaration, 0, len(file.Sources))
	for i, entry := range file.Sources {
		if entry.URL == "" {
			return nil, fmt.Errorf("source #%d (%s): url is required", i+1, entry.Name)
		}
		active := true
		if entry.Active != nil {
			active = *entry.Active
		}
		opts := make(domain.Options, len(entry.Config))
		for k, v := range entry.Config {
			opts[k] = fmt.Sprint(v)
		}
		name := entry.Name
		if name == "" {
			name = entry.URL
		}
		decls = append(decls, domain.SourceDeclaration{
			Name:    name,
			Type:    entry.Type,
			URL:     entry.URL,
			Options: opts,
			Active:  active,
		})
	}
	return decls, nil
}
