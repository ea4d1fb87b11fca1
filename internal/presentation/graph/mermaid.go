package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/storyweave/pkg/domain"
)

// GraphOverlay contains session data to highlight on the graph.
type GraphOverlay struct {
	// EntryNode is drawn as a circle. Defaults to "start".
	EntryNode    string
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid renders a graph as a Mermaid flowchart:
//   - entry node: ((circle))
//   - dialogue: [rectangle] labelled with the character
//   - choice: {{hexagon}}
//   - condition: {rhombus} labelled "var op value"
//   - variable set: [[subroutine]] labelled "var = literal"
//
// Edges carry their label, or their handle when unlabelled.
func GenerateMermaid(g *domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if g == nil {
		return sb.String()
	}

	entry := domain.DefaultEntryNodeID
	if overlay != nil && overlay.EntryNode != "" {
		entry = overlay.EntryNode
	}

	names := variableNames(g)
	for _, node := range g.Nodes {
		label := node.ID
		opener, closer := "[", "]"
		if node.Data != nil {
			shape := domain.VisitNode[nodeShape](node.Data, shaper{names: names})
			opener, closer = shape.opener, shape.closer
			if shape.caption != "" {
				label = node.ID + "<br/>" + shape.caption
			}
		}
		if node.ID == entry {
			opener, closer = "((", "))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(node.ID), opener, escapeLabel(label), closer)
	}

	for _, e := range g.Edges {
		text := e.Label
		if text == "" {
			text = e.SourceHandle
		}
		arrow := "-->"
		if text != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", escapeLabel(text))
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.Source), arrow, sanitizeMermaidID(e.Target))
	}

	if overlay != nil && (len(overlay.VisitedNodes) > 0 || overlay.CurrentNode != "") {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if safeID == "" || seen[safeID] {
				continue
			}
			seen[safeID] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

type nodeShape struct {
	opener, closer, caption string
}

type shaper struct {
	names map[string]string
}

func (s shaper) name(id string) string {
	if n, ok := s.names[id]; ok {
		return n
	}
	if id == "" {
		return "?"
	}
	return id
}

func (s shaper) Dialogue(d domain.DialogueData) nodeShape {
	return nodeShape{"[", "]", d.Character}
}

func (s shaper) Choice(d domain.ChoiceData) nodeShape {
	return nodeShape{"{{", "}}", fmt.Sprintf("%d choices", len(d.Choices))}
}

func (s shaper) Condition(d domain.ConditionData) nodeShape {
	value := "?"
	if d.Value != nil {
		value = d.Value.String()
	}
	op := string(d.Operator)
	if op == "" {
		op = "?"
	}
	return nodeShape{"{", "}", fmt.Sprintf("%s %s %s", s.name(d.VariableID), op, value)}
}

func (s shaper) VariableSet(d domain.VariableSetData) nodeShape {
	value := "?"
	if d.NewValue != nil {
		value = *d.NewValue
	}
	return nodeShape{"[[", "]]", fmt.Sprintf("%s = %s", s.name(d.VariableID), value)}
}

func variableNames(g *domain.Graph) map[string]string {
	names := make(map[string]string, len(g.Variables))
	for _, v := range g.Variables {
		names[v.ID] = v.Name
	}
	return names
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "#quot;")
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_", ":", "_").Replace(id)
}
