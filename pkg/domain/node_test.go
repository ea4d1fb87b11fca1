package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_JSONRoundTrip(t *testing.T) {
	nodes := []Node{
		{ID: "d", Position: Position{X: 1, Y: 2}, Data: DialogueData{Character: "Ana", Dialogue: "Hi"}},
		{ID: "c", Data: ChoiceData{Choices: []string{"Left", "Right"}}},
		{ID: "k", Data: ConditionData{VariableID: "v1", Operator: OpGreaterEqual, Value: ValuePtr(Number(5))}},
		{ID: "s", Data: VariableSetData{VariableID: "v1", NewValue: StringPtr("10")}},
	}

	for _, n := range nodes {
		raw, err := json.Marshal(n)
		require.NoError(t, err)

		var back Node
		require.NoError(t, json.Unmarshal(raw, &back))
		assert.Equal(t, n, back)
	}
}

func TestNode_UnmarshalAliases(t *testing.T) {
	var n Node
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","type":"dialogueNode","position":{"x":0,"y":0},"data":{"dialogue":"x"}}`), &n))
	assert.Equal(t, KindDialogue, n.Kind())

	require.NoError(t, json.Unmarshal([]byte(`{"id":"b","type":"variableSetNode","data":{"variableId":"v","newValue":true}}`), &n))
	assert.Equal(t, KindVariableSet, n.Kind())
	vs := n.Data.(VariableSetData)
	require.NotNil(t, vs.NewValue)
	assert.Equal(t, "true", *vs.NewValue)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"c","type":"choice"}`), &n))
	assert.Equal(t, ChoiceData{}, n.Data)

	assert.Error(t, json.Unmarshal([]byte(`{"id":"x","type":"portal"}`), &n))
}

func TestNode_CloneIsDeep(t *testing.T) {
	orig := Node{ID: "c", Data: ChoiceData{Choices: []string{"A"}}}
	cp := orig.Clone()
	cp.Data.(ChoiceData).Choices[0] = "B"
	assert.Equal(t, "A", orig.Data.(ChoiceData).Choices[0])

	cond := Node{ID: "k", Data: ConditionData{Value: ValuePtr(Number(1))}}
	cc := cond.Clone()
	*cc.Data.(ConditionData).Value = Number(2)
	assert.Equal(t, Number(1), *cond.Data.(ConditionData).Value)
}

type kindNamer struct{}

func (kindNamer) Dialogue(DialogueData) string       { return "dialogue" }
func (kindNamer) Choice(ChoiceData) string           { return "choice" }
func (kindNamer) Condition(ConditionData) string     { return "condition" }
func (kindNamer) VariableSet(VariableSetData) string { return "variableSet" }

func TestVisitNode(t *testing.T) {
	assert.Equal(t, "dialogue", VisitNode[string](DialogueData{}, kindNamer{}))
	assert.Equal(t, "choice", VisitNode[string](&ChoiceData{}, kindNamer{}))
	assert.Equal(t, "condition", VisitNode[string](ConditionData{}, kindNamer{}))
	assert.Equal(t, "variableSet", VisitNode[string](VariableSetData{}, kindNamer{}))
}

func TestChoiceHandle(t *testing.T) {
	assert.Equal(t, "choice-3", ChoiceHandle(3))

	i, ok := ParseChoiceHandle("choice-12")
	assert.True(t, ok)
	assert.Equal(t, 12, i)

	_, ok = ParseChoiceHandle("choice-x")
	assert.False(t, ok)
	_, ok = ParseChoiceHandle("true")
	assert.False(t, ok)
}

func TestGraph_SnapshotIsIndependent(t *testing.T) {
	g := &Graph{
		Name:      "g",
		Nodes:     []Node{{ID: "start", Data: ChoiceData{Choices: []string{"A"}}}},
		Edges:     []Edge{{ID: "e", Source: "start", Target: "x"}},
		Variables: []Variable{{ID: "v", Name: "gold", Value: Number(1)}},
	}
	snap := g.Snapshot()

	g.Nodes[0].Data.(ChoiceData).Choices[0] = "changed"
	g.Edges[0].Target = "y"
	g.Variables[0].Value = Number(9)

	assert.Equal(t, "A", snap.Nodes[0].Data.(ChoiceData).Choices[0])
	assert.Equal(t, "x", snap.Edges[0].Target)
	assert.Equal(t, Number(1), snap.Variables[0].Value)
}

func TestGraph_OutgoingKeepsOrder(t *testing.T) {
	g := &Graph{Edges: []Edge{
		{ID: "1", Source: "a", Target: "b"},
		{ID: "2", Source: "x", Target: "a"},
		{ID: "3", Source: "a", Target: "c"},
	}}
	out := g.Outgoing("a")
	require.Len(t, out, 2)
	assert.Equal(t, "1", out[0].ID)
	assert.Equal(t, "3", out[1].ID)
}
