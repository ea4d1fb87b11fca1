package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/storyweave/pkg/adapters/memory"
	"github.com/aretw0/storyweave/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	name      string
	order     []string
	nodes     map[string]*NodeBuilder
	variables []domain.Variable
}

// New creates a new graph builder.
func New(name string) *Builder {
	return &Builder{
		name:  name,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node:    domain.Node{ID: id},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Variable declares a variable. Its name doubles as its id, and the kind of
// value becomes the variable's kind.
func (b *Builder) Variable(name string, value any) *Builder {
	v, err := domain.ValueOf(value)
	if err != nil {
		v = domain.String(fmt.Sprint(value))
	}
	b.variables = append(b.variables, domain.Variable{ID: name, Name: name, Value: v})
	return b
}

// Build compiles the graph. Nodes keep the order they were added in.
func (b *Builder) Build() (*domain.Graph, error) {
	g := &domain.Graph{
		Name:      b.name,
		Nodes:     make([]domain.Node, 0, len(b.order)),
		Edges:     []domain.Edge{},
		Variables: domain.CloneVariables(b.variables),
		Viewport:  domain.Viewport{Zoom: 1},
	}

	var errs []error
	seen := make(map[string]bool)
	for _, v := range b.variables {
		if seen[v.Name] {
			errs = append(errs, fmt.Errorf("variable %q: %w", v.Name, domain.ErrDuplicateVariable))
		}
		seen[v.Name] = true
	}

	for _, id := range b.order {
		nb := b.nodes[id]
		if nb.node.Data == nil {
			errs = append(errs, fmt.Errorf("node %q has no kind; call Say, Choice, If or Set", id))
			continue
		}
		for _, ref := range nb.vars {
			if !seen[ref] {
				errs = append(errs, fmt.Errorf("node %q references undeclared variable %q", id, ref))
			}
		}
		g.Nodes = append(g.Nodes, nb.node.Clone())
		for i, e := range nb.edges {
			e.ID = fmt.Sprintf("%s-%d", id, i)
			e.Source = id
			g.Edges = append(g.Edges, e)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return g, nil
}

// Source builds the graph and wraps it in an in-memory graph source.
func (b *Builder) Source() (*memory.Source, error) {
	g, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build memory source: %w", err)
	}
	return memory.NewSource(g), nil
}
