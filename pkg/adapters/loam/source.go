package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/aretw0/storyweave/pkg/schema"
)

// watchPattern matches every document format loam understands.
const watchPattern = "**/*.{md,json,yaml,yml}"

// Source adapts a loam repository to ports.GraphSource. Every document in
// the repository is one graph; markdown bodies are kept as the description.
type Source struct {
	Repo *loam.TypedRepository[GraphMetadata]
}

// New wraps an existing typed repository.
func New(repo *loam.TypedRepository[GraphMetadata]) *Source {
	return &Source{Repo: repo}
}

// Open initialises a read-only, strict loam repository at dir.
// Strict mode keeps numbers as json.Number so integers survive untouched.
func Open(dir string) (*Source, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[GraphMetadata](repo)), nil
}

// LoadGraph fetches and decodes the named document.
func (s *Source) LoadGraph(ctx context.Context, name string) (*domain.Graph, error) {
	doc, err := s.Repo.Get(ctx, name)
	if err != nil {
		if known, listErr := s.ListGraphs(ctx); listErr == nil && !contains(known, name) {
			return nil, fmt.Errorf("%w: %s", domain.ErrGraphNotFound, name)
		}
		return nil, fmt.Errorf("loam get failed for %s: %w", name, err)
	}

	g, err := schema.Decode(doc.Data.document())
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", doc.ID, err)
	}
	if g.Name == "" {
		g.Name = trimExtension(doc.ID)
	}
	return g, nil
}

// ListGraphs returns document IDs without extensions, sorted.
// Two documents resolving to the same name are an error.
func (s *Source) ListGraphs(ctx context.Context) ([]string, error) {
	docs, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string, len(docs))
	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		name := trimExtension(doc.ID)
		if existing, ok := seen[name]; ok {
			return nil, fmt.Errorf("collision detected: graph '%s' is defined in both '%s' and '%s'", name, existing, doc.ID)
		}
		seen[name] = doc.ID
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Watch implements ports.Watchable. Loam debounces file events itself.
func (s *Source) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := s.Repo.Watch(ctx, watchPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch, nil
}

func trimExtension(id string) string {
	id = filepath.ToSlash(id)
	return strings.TrimSuffix(id, filepath.Ext(id))
}

func contains(names []string, name string) bool {
	name = trimExtension(name)
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
