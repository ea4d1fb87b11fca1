package project

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/storyweave/pkg/adapters/memory"
	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/google/uuid"
)

// ErrNoGraphSelected is returned by edits made while no graph is current.
var ErrNoGraphSelected = errors.New("no graph selected")

// ErrEdgeNotFound is returned when deleting an unknown edge.
var ErrEdgeNotFound = errors.New("edge not found")

// Project is a mutex-guarded set of editable graphs.
type Project struct {
	mu           sync.RWMutex
	graphs       map[string]*domain.Graph
	current      string
	selectedNode string
	published    *memory.Source
	newID        func() string
}

// New creates an empty project with nothing selected.
func New() *Project {
	return &Project{
		graphs:    make(map[string]*domain.Graph),
		published: memory.NewSource(),
		newID:     uuid.NewString,
	}
}

// AddGraph stores a copy of g under id, replacing any graph with that id.
// The stored graph is named after id.
func (p *Project) AddGraph(id string, g *domain.Graph) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cp := g.Snapshot()
	if cp == nil {
		cp = &domain.Graph{}
	}
	cp.Name = id
	if cp.Variables == nil {
		cp.Variables = []domain.Variable{}
	}
	p.graphs[id] = cp
	p.publish(id)
}

// DeleteGraph removes a graph. When it was current, the first remaining id in
// sorted order becomes current.
func (p *Project) DeleteGraph(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.graphs[id]; !ok {
		return
	}
	delete(p.graphs, id)
	p.published.Delete(id)

	if p.current == id {
		p.current = ""
		p.selectedNode = ""
		if ids := p.sortedIDs(); len(ids) > 0 {
			p.current = ids[0]
		}
	}
}

// SelectGraph makes id current. An empty id deselects; an unknown id leaves
// the selection untouched.
func (p *Project) SelectGraph(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id != "" {
		if _, ok := p.graphs[id]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrGraphNotFound, id)
		}
	}
	if p.current != id {
		p.selectedNode = ""
	}
	p.current = id
	return nil
}

// Current returns the id of the current graph, or "" when none is selected.
func (p *Project) Current() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Graph returns a copy of the graph with the given id.
func (p *Project) Graph(id string) (*domain.Graph, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	g, ok := p.graphs[id]
	if !ok {
		return nil, false
	}
	return g.Snapshot(), true
}

// Snapshot is Graph with an error for unknown ids.
func (p *Project) Snapshot(id string) (*domain.Graph, error) {
	g, ok := p.Graph(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGraphNotFound, id)
	}
	return g, nil
}

// GraphIDs returns the graph ids in sorted order.
func (p *Project) GraphIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sortedIDs()
}

// LoadGraph implements ports.GraphSource.
func (p *Project) LoadGraph(ctx context.Context, name string) (*domain.Graph, error) {
	return p.published.LoadGraph(ctx, name)
}

// ListGraphs implements ports.GraphSource.
func (p *Project) ListGraphs(ctx context.Context) ([]string, error) {
	return p.published.ListGraphs(ctx)
}

// Watch implements ports.Watchable. It signals after every edit.
func (p *Project) Watch(ctx context.Context) (<-chan struct{}, error) {
	return p.published.Watch(ctx)
}

// edit runs fn on the current graph under the write lock and publishes the
// result when fn succeeds.
func (p *Project) edit(fn func(g *domain.Graph) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	g, ok := p.graphs[p.current]
	if p.current == "" || !ok {
		return ErrNoGraphSelected
	}
	if err := fn(g); err != nil {
		return err
	}
	p.publish(p.current)
	return nil
}

func (p *Project) publish(id string) {
	p.published.Put(p.graphs[id])
}

func (p *Project) sortedIDs() []string {
	ids := make([]string, 0, len(p.graphs))
	for id := range p.graphs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
