package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/aretw0/storyweave/pkg/project"
)

// ErrGraphExists is returned by Scaffold when the target file is already there.
var ErrGraphExists = errors.New("graph file already exists")

// Scaffold writes a starter graph named name into dir as <name>.json and
// returns its path. The graph exercises every node kind.
func Scaffold(dir, name, entry string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid graph name %q", name)
	}
	path := filepath.Join(dir, name+".json")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%w: %s", ErrGraphExists, path)
	}

	g, err := starterGraph(name, entry)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode graph: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// builder threads the first error through a run of project edits.
type builder struct {
	p   *project.Project
	err error
}

func (b *builder) node(kind domain.NodeKind, x, y float64, data domain.NodeData) string {
	if b.err != nil {
		return ""
	}
	n, err := b.p.AddNode(kind, domain.Position{X: x, Y: y})
	if err != nil {
		b.err = err
		return ""
	}
	b.err = b.p.UpdateNodeData(n.ID, data)
	return n.ID
}

func (b *builder) connect(source, handle, target string) {
	if b.err != nil {
		return
	}
	_, b.err = b.p.Connect(project.Connection{Source: source, SourceHandle: handle, Target: target})
}

func starterGraph(name, entry string) (*domain.Graph, error) {
	if entry == "" {
		entry = domain.DefaultEntryNodeID
	}

	p := project.New()
	p.AddGraph(name, &domain.Graph{
		Nodes: []domain.Node{{
			ID:   entry,
			Data: domain.DialogueData{Character: "Narrator", Dialogue: "The lantern flickers at the mouth of the cave."},
		}},
	})
	if err := p.SelectGraph(name); err != nil {
		return nil, err
	}
	courage, err := p.AddVariable("courage", domain.Number(0))
	if err != nil {
		return nil, err
	}

	b := &builder{p: p}
	pick := b.node(domain.KindChoice, 0, 150, domain.ChoiceData{Choices: []string{"Step inside", "Wait for dawn"}})
	brave := b.node(domain.KindVariableSet, -200, 300, domain.VariableSetData{VariableID: courage.ID, NewValue: domain.StringPtr("1")})
	check := b.node(domain.KindCondition, 0, 450, domain.ConditionData{
		VariableID: courage.ID,
		Operator:   domain.OpGreaterEqual,
		Value:      domain.ValuePtr(domain.Number(1)),
	})
	inside := b.node(domain.KindDialogue, -200, 600, domain.DialogueData{Character: "Narrator", Dialogue: "You find the **old map** where it was promised."})
	dawn := b.node(domain.KindDialogue, 200, 600, domain.DialogueData{Character: "Narrator", Dialogue: "Morning comes, and the cave is silent."})

	b.connect(entry, "", pick)
	b.connect(pick, domain.ChoiceHandle(0), brave)
	b.connect(pick, domain.ChoiceHandle(1), check)
	b.connect(brave, "", check)
	b.connect(check, domain.HandleTrue, inside)
	b.connect(check, domain.HandleFalse, dawn)
	if b.err != nil {
		return nil, fmt.Errorf("failed to build starter graph: %w", b.err)
	}
	return p.Snapshot(name)
}
