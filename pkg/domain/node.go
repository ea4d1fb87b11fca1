package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NodeKind identifies the narrative role of a node.
type NodeKind string

// Canonical node kinds, as written on the wire.
const (
	// KindDialogue shows a line of dialogue and waits for the reader to advance.
	KindDialogue NodeKind = "dialogue"
	// KindChoice offers a set of choices and waits for one to be picked.
	KindChoice NodeKind = "choice"
	// KindCondition checks a variable and branches on "true"/"false" automatically.
	KindCondition NodeKind = "condition"
	// KindVariableSet writes a variable and continues automatically.
	KindVariableSet NodeKind = "variableSet"
)

// DefaultEntryNodeID is the node playback starts from unless configured otherwise.
const DefaultEntryNodeID = "start"

// ParseNodeKind normalises a wire kind, accepting the editor's legacy aliases.
func ParseNodeKind(s string) (NodeKind, error) {
	switch s {
	case "dialogue", "dialogueNode", "editable":
		return KindDialogue, nil
	case "choice", "choiceNode":
		return KindChoice, nil
	case "condition", "conditionNode":
		return KindCondition, nil
	case "variableSet", "variableSetNode", "variable_set":
		return KindVariableSet, nil
	}
	return "", fmt.Errorf("unknown node kind %q", s)
}

// Operator is a comparison used by condition nodes.
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
)

// Valid reports whether op is one of the six supported comparisons.
func (op Operator) Valid() bool {
	switch op {
	case OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		return true
	}
	return false
}

// Handle names used on multi-output nodes.
const (
	HandleTrue  = "true"
	HandleFalse = "false"

	choiceHandlePrefix = "choice-"
)

// ChoiceHandle returns the source handle for the i-th choice.
func ChoiceHandle(i int) string {
	return choiceHandlePrefix + strconv.Itoa(i)
}

// ParseChoiceHandle extracts the index from a "choice-<i>" handle.
func ParseChoiceHandle(h string) (int, bool) {
	if !strings.HasPrefix(h, choiceHandlePrefix) {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimPrefix(h, choiceHandlePrefix))
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// NodeData is the closed set of per-kind payloads.
// Only types in this package implement it.
type NodeData interface {
	Kind() NodeKind
	clone() NodeData
}

// DialogueData is a line spoken by an optional character.
type DialogueData struct {
	Character string `json:"character,omitempty" mapstructure:"character"`
	Dialogue  string `json:"dialogue,omitempty" mapstructure:"dialogue"`
}

// ChoiceData lists the options offered to the reader, in order.
type ChoiceData struct {
	Choices []string `json:"choices" mapstructure:"choices"`
}

// ConditionData compares a variable with a literal.
type ConditionData struct {
	VariableID string   `json:"variableId,omitempty" mapstructure:"variableId"`
	Operator   Operator `json:"operator,omitempty" mapstructure:"operator"`
	Value      *Value   `json:"value,omitempty" mapstructure:"value"`
}

// VariableSetData assigns an authored string, coerced at playback time.
type VariableSetData struct {
	VariableID string  `json:"variableId,omitempty" mapstructure:"variableId"`
	NewValue   *string `json:"newValue,omitempty" mapstructure:"newValue"`
}

func (DialogueData) Kind() NodeKind    { return KindDialogue }
func (ChoiceData) Kind() NodeKind      { return KindChoice }
func (ConditionData) Kind() NodeKind   { return KindCondition }
func (VariableSetData) Kind() NodeKind { return KindVariableSet }

func (d DialogueData) clone() NodeData { return d }

func (d ChoiceData) clone() NodeData {
	d.Choices = append([]string(nil), d.Choices...)
	return d
}

func (d ConditionData) clone() NodeData {
	if d.Value != nil {
		v := *d.Value
		d.Value = &v
	}
	return d
}

func (d VariableSetData) clone() NodeData {
	if d.NewValue != nil {
		s := *d.NewValue
		d.NewValue = &s
	}
	return d
}

// NodeVisitor dispatches on node data. Every implementation must handle all
// kinds, so adding a kind is a compile error until each visitor is updated.
type NodeVisitor[R any] interface {
	Dialogue(DialogueData) R
	Choice(ChoiceData) R
	Condition(ConditionData) R
	VariableSet(VariableSetData) R
}

// VisitNode routes data to the matching visitor method.
func VisitNode[R any](data NodeData, v NodeVisitor[R]) R {
	switch d := data.(type) {
	case DialogueData:
		return v.Dialogue(d)
	case *DialogueData:
		return v.Dialogue(*d)
	case ChoiceData:
		return v.Choice(d)
	case *ChoiceData:
		return v.Choice(*d)
	case ConditionData:
		return v.Condition(d)
	case *ConditionData:
		return v.Condition(*d)
	case VariableSetData:
		return v.VariableSet(d)
	case *VariableSetData:
		return v.VariableSet(*d)
	}
	panic(fmt.Sprintf("domain: unknown node data %T", data))
}

// Position is the node's location on the editor canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a single narrative unit in the graph.
type Node struct {
	ID       string
	Position Position
	Data     NodeData
}

// Kind returns the node's kind, or "" when it carries no data.
func (n Node) Kind() NodeKind {
	if n.Data == nil {
		return ""
	}
	return n.Data.Kind()
}

// Clone deep-copies the node.
func (n Node) Clone() Node {
	if n.Data != nil {
		n.Data = n.Data.clone()
	}
	return n
}

type nodeWire struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Position Position        `json:"position"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// MarshalJSON writes {id, type, position, data}.
func (n Node) MarshalJSON() ([]byte, error) {
	if n.Data == nil {
		return nil, fmt.Errorf("node %s has no data", n.ID)
	}
	data, err := json.Marshal(n.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data of node %s: %w", n.ID, err)
	}
	return json.Marshal(nodeWire{
		ID:       n.ID,
		Type:     string(n.Data.Kind()),
		Position: n.Position,
		Data:     data,
	})
}

// UnmarshalJSON reads {id, type, position, data}, decoding data by type.
func (n *Node) UnmarshalJSON(b []byte) error {
	var w nodeWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	kind, err := ParseNodeKind(w.Type)
	if err != nil {
		return fmt.Errorf("node %s: %w", w.ID, err)
	}
	raw := w.Data
	if len(raw) == 0 || string(raw) == "null" {
		raw = []byte("{}")
	}

	var data NodeData
	switch kind {
	case KindDialogue:
		var d DialogueData
		err = json.Unmarshal(raw, &d)
		data = d
	case KindChoice:
		var d ChoiceData
		err = json.Unmarshal(raw, &d)
		data = d
	case KindCondition:
		var d ConditionData
		err = json.Unmarshal(raw, &d)
		data = d
	case KindVariableSet:
		// Older documents store newValue as a native scalar; keep its text.
		var aux struct {
			VariableID string `json:"variableId"`
			NewValue   *Value `json:"newValue"`
		}
		err = json.Unmarshal(raw, &aux)
		d := VariableSetData{VariableID: aux.VariableID}
		if aux.NewValue != nil {
			d.NewValue = StringPtr(aux.NewValue.String())
		}
		data = d
	}
	if err != nil {
		return fmt.Errorf("node %s: invalid %s data: %w", w.ID, kind, err)
	}

	*n = Node{ID: w.ID, Position: w.Position, Data: data}
	return nil
}

// StringPtr is a convenience for VariableSetData.NewValue.
func StringPtr(s string) *string { return &s }
