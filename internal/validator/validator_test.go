package validator

import (
	"testing"

	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(r *Report, sev Severity) []string {
	var out []string
	for _, is := range r.Issues {
		if is.Severity == sev {
			out = append(out, is.Code)
		}
	}
	return out
}

func TestValidateGraph_Valid(t *testing.T) {
	g := &domain.Graph{
		Nodes: []domain.Node{
			{ID: "start", Data: domain.DialogueData{Dialogue: "hi"}},
			{ID: "pick", Data: domain.ChoiceData{Choices: []string{"a", "b"}}},
			{ID: "a", Data: domain.DialogueData{}},
			{ID: "b", Data: domain.DialogueData{}},
		},
		Edges: []domain.Edge{
			{ID: "1", Source: "start", Target: "pick"},
			{ID: "2", Source: "pick", Target: "a", SourceHandle: "choice-0"},
			{ID: "3", Source: "pick", Target: "b", SourceHandle: "choice-1"},
		},
	}

	r := ValidateGraph(g, "")
	assert.Empty(t, r.Issues)
	assert.False(t, r.HasErrors())
}

func TestValidateGraph_Errors(t *testing.T) {
	g := &domain.Graph{
		Nodes: []domain.Node{
			{ID: "a", Data: domain.DialogueData{}},
			{ID: "a", Data: domain.DialogueData{}},
		},
		Edges: []domain.Edge{
			{ID: "e", Source: "a", Target: "ghost"},
		},
		Variables: []domain.Variable{
			{ID: "v", Name: "x", Value: domain.Number(1)},
			{ID: "v", Name: "x", Value: domain.Number(2)},
		},
	}

	r := ValidateGraph(g, "start")
	require.True(t, r.HasErrors())
	assert.ElementsMatch(t, []string{
		"duplicate_node", "missing_entry", "duplicate_variable_id", "duplicate_variable_name", "unknown_target",
	}, codes(r, SeverityError))
	assert.Contains(t, r.Error(), "entry node 'start' not found")
}

func TestValidateGraph_Warnings(t *testing.T) {
	g := &domain.Graph{
		Nodes: []domain.Node{
			{ID: "start", Data: domain.ChoiceData{Choices: []string{"only"}}},
			{ID: "cond", Data: domain.ConditionData{VariableID: "nope", Operator: "~", Value: domain.ValuePtr(domain.Number(1))}},
			{ID: "set", Data: domain.VariableSetData{VariableID: "n", NewValue: domain.StringPtr("many")}},
			{ID: "talk", Data: domain.DialogueData{}},
			{ID: "island", Data: domain.DialogueData{}},
		},
		Edges: []domain.Edge{
			{ID: "1", Source: "start", Target: "cond", SourceHandle: "choice-3"},
			{ID: "2", Source: "cond", Target: "set", SourceHandle: "true"},
			{ID: "3", Source: "set", Target: "talk"},
			{ID: "4", Source: "talk", Target: "start"},
			{ID: "5", Source: "talk", Target: "set"},
		},
		Variables: []domain.Variable{{ID: "n", Name: "n", Value: domain.Number(0)}},
	}

	r := ValidateGraph(g, "start")
	assert.False(t, r.HasErrors())
	assert.ElementsMatch(t, []string{
		"orphan_choice_edge", "unwired_choice",
		"unknown_variable", "bad_operator", "missing_branch",
		"bad_literal",
		"multiple_exits",
		"unreachable",
	}, codes(r, SeverityWarning))
}

func TestValidateGraph_Nil(t *testing.T) {
	assert.True(t, ValidateGraph(nil, "start").HasErrors())
}
