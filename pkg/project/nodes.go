package project

import (
	"fmt"
	"slices"

	"github.com/aretw0/storyweave/pkg/domain"
)

// AddNode appends a node of the given kind to the current graph, filled with
// the editor defaults, and returns it.
func (p *Project) AddNode(kind domain.NodeKind, pos domain.Position) (domain.Node, error) {
	var node domain.Node
	err := p.edit(func(g *domain.Graph) error {
		data, err := defaultData(kind, g.Variables)
		if err != nil {
			return err
		}
		node = domain.Node{ID: p.newID(), Position: pos, Data: data}
		g.Nodes = append(g.Nodes, node)
		return nil
	})
	if err != nil {
		return domain.Node{}, err
	}
	return node.Clone(), nil
}

func defaultData(kind domain.NodeKind, vars []domain.Variable) (domain.NodeData, error) {
	firstVar := ""
	if len(vars) > 0 {
		firstVar = vars[0].ID
	}
	switch kind {
	case domain.KindDialogue:
		return domain.DialogueData{}, nil
	case domain.KindChoice:
		return domain.ChoiceData{Choices: []string{"Choice 1"}}, nil
	case domain.KindCondition:
		return domain.ConditionData{
			VariableID: firstVar,
			Operator:   domain.OpEqual,
			Value:      domain.ValuePtr(domain.String("")),
		}, nil
	case domain.KindVariableSet:
		return domain.VariableSetData{VariableID: firstVar, NewValue: domain.StringPtr("")}, nil
	}
	return nil, fmt.Errorf("unknown node kind %q", kind)
}

// UpdateNodeData replaces a node's data. The new data must be of the node's kind.
func (p *Project) UpdateNodeData(id string, data domain.NodeData) error {
	if data == nil {
		return fmt.Errorf("node %s: data is required", id)
	}
	return p.edit(func(g *domain.Graph) error {
		i := nodeIndex(g, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
		}
		if got, want := data.Kind(), g.Nodes[i].Kind(); got != want {
			return fmt.Errorf("node %s is a %s node, got %s data", id, want, got)
		}
		g.Nodes[i] = domain.Node{ID: id, Position: g.Nodes[i].Position, Data: data}.Clone()
		return nil
	})
}

// MoveNode sets a node's canvas position.
func (p *Project) MoveNode(id string, pos domain.Position) error {
	return p.edit(func(g *domain.Graph) error {
		i := nodeIndex(g, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
		}
		g.Nodes[i].Position = pos
		return nil
	})
}

// DeleteNode removes a node and every edge touching it.
func (p *Project) DeleteNode(id string) error {
	return p.edit(func(g *domain.Graph) error {
		i := nodeIndex(g, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
		}
		g.Nodes = slices.Delete(g.Nodes, i, i+1)
		g.Edges = slices.DeleteFunc(g.Edges, func(e domain.Edge) bool {
			return e.Source == id || e.Target == id
		})
		if p.selectedNode == id {
			p.selectedNode = ""
		}
		return nil
	})
}

// SelectNode marks a node of the current graph as selected. An empty id clears
// the selection.
func (p *Project) SelectNode(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id != "" {
		g, ok := p.graphs[p.current]
		if !ok {
			return ErrNoGraphSelected
		}
		if nodeIndex(g, id) < 0 {
			return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
		}
	}
	p.selectedNode = id
	return nil
}

// SelectedNode returns the selected node id, or "".
func (p *Project) SelectedNode() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.selectedNode
}

func nodeIndex(g *domain.Graph, id string) int {
	return slices.IndexFunc(g.Nodes, func(n domain.Node) bool { return n.ID == id })
}
