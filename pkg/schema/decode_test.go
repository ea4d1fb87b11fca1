package schema

import (
	"testing"

	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var valueComparer = cmp.Comparer(func(a, b domain.Value) bool { return a.Equal(b) })

const tavernYAML = `
name: tavern
viewport: {x: 10, y: 20, zoom: 1.5}
variables:
  - id: v-gold
    name: gold
    value: 3
  - name: drunk
    value: false
  - name: level
    type: number
    value: "7"
nodes:
  - id: start
    type: dialogueNode
    position: {x: 0, y: 100}
    data:
      character: Barkeep
      dialogue: What will it be?
  - id: order
    type: choice
    data:
      choices: [Ale, 42]
  - id: check
    type: condition
    data: {variableId: v-gold, operator: ">=", value: 2}
  - id: drink
    type: variableSetNode
    data: {variableId: drunk, newValue: true}
  - id: leave
    type: editable
edges:
  - {source: start, target: order}
  - {id: e1, source: order, sourceHandle: choice-0, target: check, label: Ale}
  - {source: check, sourceHandle: "true", target: drink}
`

func TestDecode_YAML(t *testing.T) {
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(tavernYAML), &doc))

	g, err := Decode(doc)
	require.NoError(t, err)

	want := &domain.Graph{
		Name:     "tavern",
		Viewport: domain.Viewport{X: 10, Y: 20, Zoom: 1.5},
		Variables: []domain.Variable{
			{ID: "v-gold", Name: "gold", Value: domain.Number(3)},
			{ID: "drunk", Name: "drunk", Value: domain.Bool(false)},
			{ID: "level", Name: "level", Value: domain.Number(7)},
		},
		Nodes: []domain.Node{
			{ID: "start", Position: domain.Position{Y: 100}, Data: domain.DialogueData{Character: "Barkeep", Dialogue: "What will it be?"}},
			{ID: "order", Data: domain.ChoiceData{Choices: []string{"Ale", "42"}}},
			{ID: "check", Data: domain.ConditionData{VariableID: "v-gold", Operator: domain.OpGreaterEqual, Value: domain.ValuePtr(domain.Number(2))}},
			{ID: "drink", Data: domain.VariableSetData{VariableID: "drunk", NewValue: domain.StringPtr("true")}},
			{ID: "leave", Data: domain.DialogueData{}},
		},
		Edges: []domain.Edge{
			{ID: "start->order", Source: "start", Target: "order"},
			{ID: "e1", Source: "order", SourceHandle: "choice-0", Target: "check", Label: "Ale"},
			{ID: "check:true->drink", Source: "check", SourceHandle: "true", Target: "drink"},
		},
	}

	if diff := cmp.Diff(want, g, valueComparer); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeJSON_EditorDocument(t *testing.T) {
	raw := []byte(`{
		"name": "editor",
		"nodes": [
			{"id": "start", "type": "dialogue", "position": {"x": 1, "y": 2}, "data": {"dialogue": "Hi"}},
			{"id": "cond", "type": "condition", "position": {"x": 0, "y": 0}, "data": {"variableId": "v1", "operator": "==", "value": "Ana"}}
		],
		"edges": [{"id": "e", "source": "start", "target": "cond", "sourceHandle": null}],
		"variables": [{"id": "v1", "name": "name", "value": "Ana"}],
		"viewport": {"x": 0, "y": 0, "zoom": 1}
	}`)

	g, err := DecodeJSON(raw)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)

	cond := g.Nodes[1].Data.(domain.ConditionData)
	require.NotNil(t, cond.Value)
	assert.Equal(t, domain.String("Ana"), *cond.Value)
	assert.Equal(t, "e", g.Edges[0].ID)
	assert.Empty(t, g.Edges[0].SourceHandle)
}

func TestDecode_Errors(t *testing.T) {
	doc := map[string]any{
		"nodes": []any{
			map[string]any{"id": "a", "type": "portal"},
			map[string]any{"type": "dialogue"},
			map[string]any{"id": "ok", "type": "dialogue"},
		},
		"variables": []any{
			map[string]any{"name": "x", "type": "date", "value": 1},
		},
	}

	_, err := Decode(doc)
	require.Error(t, err)
	errs := FieldErrors(err)
	require.Len(t, errs, 3)

	var fe *FieldError
	require.ErrorAs(t, errs[0], &fe)
	assert.Equal(t, "nodes[0]", fe.Path)
	assert.Contains(t, err.Error(), "variables[0].type")
}

func TestDecodeNodeData_MissingData(t *testing.T) {
	data, err := DecodeNodeData(domain.KindCondition, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ConditionData{}, data)
}
