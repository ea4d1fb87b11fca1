package dsl

import (
	"fmt"

	"github.com/aretw0/storyweave/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	edges   []domain.Edge
	vars    []string
	builder *Builder
}

// At places the node on the editor canvas.
func (n *NodeBuilder) At(x, y float64) *NodeBuilder {
	n.node.Position = domain.Position{X: x, Y: y}
	return n
}

// Say makes the node a dialogue line.
func (n *NodeBuilder) Say(character, text string) *NodeBuilder {
	n.node.Data = domain.DialogueData{Character: character, Dialogue: text}
	return n
}

// Choice appends an option to a choice node and wires it to target.
// An empty target adds the option without an edge.
func (n *NodeBuilder) Choice(label, target string) *NodeBuilder {
	data, _ := n.node.Data.(domain.ChoiceData)
	index := len(data.Choices)
	data.Choices = append(append([]string(nil), data.Choices...), label)
	n.node.Data = data
	if target != "" {
		n.edges = append(n.edges, domain.Edge{
			Target:       target,
			SourceHandle: domain.ChoiceHandle(index),
			Label:        label,
		})
	}
	return n
}

// If makes the node a condition comparing a declared variable with value.
func (n *NodeBuilder) If(variable string, op domain.Operator, value any) *NodeBuilder {
	v, err := domain.ValueOf(value)
	if err != nil {
		v = domain.String(fmt.Sprint(value))
	}
	n.node.Data = domain.ConditionData{VariableID: variable, Operator: op, Value: domain.ValuePtr(v)}
	n.vars = append(n.vars, variable)
	return n
}

// True wires the condition's "true" branch.
func (n *NodeBuilder) True(target string) *NodeBuilder {
	n.edges = append(n.edges, domain.Edge{Target: target, SourceHandle: domain.HandleTrue, Label: "True"})
	return n
}

// False wires the condition's "false" branch.
func (n *NodeBuilder) False(target string) *NodeBuilder {
	n.edges = append(n.edges, domain.Edge{Target: target, SourceHandle: domain.HandleFalse, Label: "False"})
	return n
}

// Set makes the node assign literal to a declared variable. The literal is
// coerced to the variable's kind during playback.
func (n *NodeBuilder) Set(variable, literal string) *NodeBuilder {
	n.node.Data = domain.VariableSetData{VariableID: variable, NewValue: domain.StringPtr(literal)}
	n.vars = append(n.vars, variable)
	return n
}

// Go adds an unlabelled edge to target.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.edges = append(n.edges, domain.Edge{Target: target})
	return n
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	return n.node.Clone()
}
