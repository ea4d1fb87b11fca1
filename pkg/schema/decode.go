package schema

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/storyweave/pkg/domain"
)

type graphDoc struct {
	Name      string           `mapstructure:"name"`
	Nodes     []map[string]any `mapstructure:"nodes"`
	Edges     []edgeDoc        `mapstructure:"edges"`
	Variables []variableDoc    `mapstructure:"variables"`
	Viewport  domain.Viewport  `mapstructure:"viewport"`
}

type nodeDoc struct {
	ID       string          `mapstructure:"id"`
	Type     domain.NodeKind `mapstructure:"type"`
	Position domain.Position `mapstructure:"position"`
	Data     map[string]any  `mapstructure:"data"`
}

type edgeDoc struct {
	ID           string `mapstructure:"id"`
	Source       string `mapstructure:"source"`
	Target       string `mapstructure:"target"`
	SourceHandle string `mapstructure:"sourceHandle"`
	TargetHandle string `mapstructure:"targetHandle"`
	Label        string `mapstructure:"label"`
}

type variableDoc struct {
	ID    string       `mapstructure:"id"`
	Name  string       `mapstructure:"name"`
	Type  string       `mapstructure:"type"`
	Value domain.Value `mapstructure:"value"`
}

// Decode builds a graph from a generic document, as produced by yaml.v3 or
// encoding/json. Hand-written documents may omit edge and variable ids; they
// are derived from the other fields. A variable may carry a "type" to force
// its kind ("string", "number", "boolean").
func Decode(doc map[string]any) (*domain.Graph, error) {
	var raw graphDoc
	if err := decode(doc, &raw); err != nil {
		return nil, fmt.Errorf("invalid graph document: %w", err)
	}

	g := &domain.Graph{
		Name:      raw.Name,
		Nodes:     make([]domain.Node, 0, len(raw.Nodes)),
		Edges:     make([]domain.Edge, 0, len(raw.Edges)),
		Variables: make([]domain.Variable, 0, len(raw.Variables)),
		Viewport:  raw.Viewport,
	}

	var errs []error
	for i, n := range raw.Nodes {
		node, err := DecodeNode(n)
		if err != nil {
			errs = append(errs, &FieldError{Path: fmt.Sprintf("nodes[%d]", i), Err: err})
			continue
		}
		g.Nodes = append(g.Nodes, node)
	}

	for _, e := range raw.Edges {
		id := e.ID
		if id == "" {
			id = fmt.Sprintf("%s->%s", e.Source, e.Target)
			if e.SourceHandle != "" {
				id = fmt.Sprintf("%s:%s->%s", e.Source, e.SourceHandle, e.Target)
			}
		}
		g.Edges = append(g.Edges, domain.Edge{
			ID:           id,
			Source:       e.Source,
			Target:       e.Target,
			SourceHandle: e.SourceHandle,
			TargetHandle: e.TargetHandle,
			Label:        e.Label,
		})
	}

	for i, v := range raw.Variables {
		value := v.Value
		if v.Type != "" {
			kind, err := domain.ParseValueKind(v.Type)
			if err != nil {
				errs = append(errs, &FieldError{Path: fmt.Sprintf("variables[%d].type", i), Err: err})
				continue
			}
			value = value.CoerceTo(kind)
		}
		id := v.ID
		if id == "" {
			id = v.Name
		}
		g.Variables = append(g.Variables, domain.Variable{ID: id, Name: v.Name, Value: value})
	}

	if len(errs) > 0 {
		return nil, &AggregateError{Errors: errs}
	}
	return g, nil
}

// DecodeJSON is Decode for a JSON document.
func DecodeJSON(data []byte) (*domain.Graph, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return Decode(doc)
}

// DecodeNode builds a single node from a generic document.
func DecodeNode(doc map[string]any) (domain.Node, error) {
	var raw nodeDoc
	if err := decode(doc, &raw); err != nil {
		return domain.Node{}, err
	}
	return buildNode(raw)
}

func buildNode(n nodeDoc) (domain.Node, error) {
	if n.ID == "" {
		return domain.Node{}, fmt.Errorf("node id is required")
	}
	if n.Type == "" {
		return domain.Node{}, fmt.Errorf("node %s: type is required", n.ID)
	}

	data, err := DecodeNodeData(n.Type, n.Data)
	if err != nil {
		return domain.Node{}, fmt.Errorf("node %s: %w", n.ID, err)
	}
	return domain.Node{ID: n.ID, Position: n.Position, Data: data}, nil
}

// DecodeNodeData decodes the payload of a node of the given kind.
func DecodeNodeData(kind domain.NodeKind, data map[string]any) (domain.NodeData, error) {
	if data == nil {
		data = map[string]any{}
	}
	var (
		out domain.NodeData
		err error
	)
	switch kind {
	case domain.KindDialogue:
		var d domain.DialogueData
		err = decode(data, &d)
		out = d
	case domain.KindChoice:
		var d domain.ChoiceData
		err = decode(data, &d)
		out = d
	case domain.KindCondition:
		var d domain.ConditionData
		err = decode(data, &d)
		out = d
	case domain.KindVariableSet:
		var d domain.VariableSetData
		err = decode(data, &d)
		out = d
	default:
		return nil, fmt.Errorf("unknown node kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s data: %w", kind, err)
	}
	return out, nil
}
