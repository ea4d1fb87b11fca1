package project

import (
	"fmt"
	"slices"

	"github.com/aretw0/storyweave/pkg/domain"
)

// AddVariable declares a variable on the current graph. Names are unique.
func (p *Project) AddVariable(name string, value domain.Value) (domain.Variable, error) {
	var v domain.Variable
	err := p.edit(func(g *domain.Graph) error {
		if name == "" {
			return fmt.Errorf("variable name is required")
		}
		if _, taken := g.VariableByName(name); taken {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateVariable, name)
		}
		v = domain.Variable{ID: p.newID(), Name: name, Value: value}
		g.Variables = append(g.Variables, v)
		return nil
	})
	return v, err
}

// UpdateVariable sets a variable's initial value. The value's kind becomes the
// variable's declared kind.
func (p *Project) UpdateVariable(id string, value domain.Value) error {
	return p.edit(func(g *domain.Graph) error {
		i := variableIndex(g, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", domain.ErrVariableNotFound, id)
		}
		g.Variables[i].Value = value
		return nil
	})
}

// DeleteVariable removes a variable. Condition and VariableSet nodes pointing
// at it are re-pointed at the first remaining variable, or at none.
func (p *Project) DeleteVariable(id string) error {
	return p.edit(func(g *domain.Graph) error {
		i := variableIndex(g, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", domain.ErrVariableNotFound, id)
		}
		g.Variables = slices.Delete(g.Variables, i, i+1)

		fallback := ""
		if len(g.Variables) > 0 {
			fallback = g.Variables[0].ID
		}
		for n := range g.Nodes {
			switch data := g.Nodes[n].Data.(type) {
			case domain.ConditionData:
				if data.VariableID == id {
					data.VariableID = fallback
					g.Nodes[n].Data = data
				}
			case domain.VariableSetData:
				if data.VariableID == id {
					data.VariableID = fallback
					g.Nodes[n].Data = data
				}
			}
		}
		return nil
	})
}

func variableIndex(g *domain.Graph, id string) int {
	return slices.IndexFunc(g.Variables, func(v domain.Variable) bool { return v.ID == id })
}
