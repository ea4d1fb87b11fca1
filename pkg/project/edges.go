package project

import (
	"fmt"
	"slices"

	"github.com/aretw0/storyweave/pkg/domain"
)

// Connection is a request to wire two node handles together.
type Connection struct {
	Source       string
	Target       string
	SourceHandle string
	TargetHandle string
}

// Connect adds an edge to the current graph. Choice edges must leave from a
// "choice-<i>" handle and condition edges from "true" or "false"; both are
// labelled accordingly. Connecting the same handles twice returns the existing
// edge.
func (p *Project) Connect(c Connection) (domain.Edge, error) {
	var edge domain.Edge
	err := p.edit(func(g *domain.Graph) error {
		if c.Source == "" || c.Target == "" {
			return fmt.Errorf("%w: source and target are required", domain.ErrInvalidConnection)
		}
		src, ok := g.Node(c.Source)
		if !ok {
			return fmt.Errorf("%w: %w: %s", domain.ErrInvalidConnection, domain.ErrNodeNotFound, c.Source)
		}
		label, err := edgeLabel(src, c.SourceHandle)
		if err != nil {
			return err
		}

		for _, e := range g.Edges {
			if e.Source == c.Source && e.Target == c.Target &&
				e.SourceHandle == c.SourceHandle && e.TargetHandle == c.TargetHandle {
				edge = e
				return nil
			}
		}

		edge = domain.Edge{
			ID:           p.newID(),
			Source:       c.Source,
			Target:       c.Target,
			SourceHandle: c.SourceHandle,
			TargetHandle: c.TargetHandle,
			Label:        label,
		}
		g.Edges = append(g.Edges, edge)
		return nil
	})
	return edge, err
}

func edgeLabel(src domain.Node, handle string) (string, error) {
	switch data := src.Data.(type) {
	case domain.ChoiceData:
		i, ok := domain.ParseChoiceHandle(handle)
		if !ok {
			return "", fmt.Errorf("%w: choice node %s needs a choice handle, got %q",
				domain.ErrInvalidConnection, src.ID, handle)
		}
		if i >= len(data.Choices) {
			return "", nil
		}
		if data.Choices[i] == "" {
			return fmt.Sprintf("Choice %d", i+1), nil
		}
		return data.Choices[i], nil
	case domain.ConditionData:
		switch handle {
		case domain.HandleTrue:
			return "True", nil
		case domain.HandleFalse:
			return "False", nil
		}
		return "", fmt.Errorf("%w: condition node %s needs a true or false handle, got %q",
			domain.ErrInvalidConnection, src.ID, handle)
	}
	return "", nil
}

// DeleteEdge removes an edge from the current graph.
func (p *Project) DeleteEdge(id string) error {
	return p.edit(func(g *domain.Graph) error {
		i := slices.IndexFunc(g.Edges, func(e domain.Edge) bool { return e.ID == id })
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
		}
		g.Edges = slices.Delete(g.Edges, i, i+1)
		return nil
	})
}
