package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/storyweave/pkg/domain"
)

// Source implements ports.GraphSource and ports.Watchable over graphs held in memory.
// Graphs are keyed by name and copied on the way in and out.
type Source struct {
	mu       sync.RWMutex
	graphs   map[string]*domain.Graph
	watchers []chan struct{}
}

// NewSource creates a source seeded with graphs.
func NewSource(graphs ...*domain.Graph) *Source {
	s := &Source{graphs: make(map[string]*domain.Graph)}
	for _, g := range graphs {
		if g != nil {
			s.graphs[g.Name] = g.Snapshot()
		}
	}
	return s
}

// Put adds or replaces a graph and signals watchers.
func (s *Source) Put(g *domain.Graph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[g.Name] = g.Snapshot()
	s.notify()
}

// Delete removes a graph and signals watchers. Unknown names are ignored.
func (s *Source) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.graphs[name]; !ok {
		return
	}
	delete(s.graphs, name)
	s.notify()
}

func (s *Source) notify() {
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
			// A reload is already pending.
		}
	}
}

// LoadGraph returns a copy of the named graph.
func (s *Source) LoadGraph(ctx context.Context, name string) (*domain.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.graphs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGraphNotFound, name)
	}
	return g.Snapshot(), nil
}

// ListGraphs returns graph names in sorted order.
func (s *Source) ListGraphs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.graphs))
	for name := range s.graphs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Watch signals on every Put until ctx is done.
func (s *Source) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, w := range s.watchers {
			if w == ch {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}
