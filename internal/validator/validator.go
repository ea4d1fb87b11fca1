package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/storyweave/pkg/domain"
)

// Severity grades an issue. Errors make strict mode reject the graph;
// warnings describe conventions playback tolerates.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single finding about a graph.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	NodeID   string   `json:"node_id,omitempty"`
	EdgeID   string   `json:"edge_id,omitempty"`
	Message  string   `json:"message"`
}

// Report collects the issues found in a graph.
type Report struct {
	Graph  string  `json:"graph,omitempty"`
	Issues []Issue `json:"issues"`
}

// HasErrors reports whether any issue has error severity.
func (r *Report) HasErrors() bool {
	return r.Count(SeverityError) > 0
}

// Count returns how many issues have severity s.
func (r *Report) Count(s Severity) int {
	n := 0
	for _, is := range r.Issues {
		if is.Severity == s {
			n++
		}
	}
	return n
}

// Error makes a report usable as the cause of a rejected graph.
func (r *Report) Error() string {
	var lines []string
	for _, is := range r.Issues {
		if is.Severity == SeverityError {
			lines = append(lines, is.Message)
		}
	}
	return fmt.Sprintf("found %d errors:\n- %s", len(lines), strings.Join(lines, "\n- "))
}

func (r *Report) add(sev Severity, code, nodeID, edgeID, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{
		Severity: sev,
		Code:     code,
		NodeID:   nodeID,
		EdgeID:   edgeID,
		Message:  fmt.Sprintf(format, args...),
	})
}

// ValidateGraph checks structure, authoring conventions and reachability from entryNodeID.
func ValidateGraph(g *domain.Graph, entryNodeID string) *Report {
	r := &Report{Issues: []Issue{}}
	if g == nil {
		r.add(SeverityError, "empty_graph", "", "", "graph is nil")
		return r
	}
	r.Graph = g.Name
	if entryNodeID == "" {
		entryNodeID = domain.DefaultEntryNodeID
	}

	nodes := make(map[string]domain.Node, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := nodes[n.ID]; dup {
			r.add(SeverityError, "duplicate_node", n.ID, "", "duplicate node id '%s'", n.ID)
			continue
		}
		nodes[n.ID] = n
		if n.Data == nil {
			r.add(SeverityError, "missing_data", n.ID, "", "node '%s' has no data", n.ID)
		}
	}

	if _, ok := nodes[entryNodeID]; !ok {
		r.add(SeverityError, "missing_entry", entryNodeID, "", "entry node '%s' not found", entryNodeID)
	}

	checkVariables(r, g.Variables)

	outgoing := make(map[string][]domain.Edge)
	for _, e := range g.Edges {
		if _, ok := nodes[e.Source]; !ok {
			r.add(SeverityError, "unknown_source", "", e.ID, "edge '%s' leaves unknown node '%s'", e.ID, e.Source)
		}
		if _, ok := nodes[e.Target]; !ok {
			r.add(SeverityError, "unknown_target", "", e.ID, "edge '%s' points to unknown node '%s'", e.ID, e.Target)
		}
		outgoing[e.Source] = append(outgoing[e.Source], e)
	}

	for _, n := range g.Nodes {
		if n.Data == nil {
			continue
		}
		domain.VisitNode[struct{}](n.Data, &nodeChecker{
			report:   r,
			node:     n,
			outgoing: outgoing[n.ID],
			graph:    g,
		})
	}

	checkReachability(r, g, nodes, outgoing, entryNodeID)
	return r
}

func checkVariables(r *Report, vars []domain.Variable) {
	ids := make(map[string]bool, len(vars))
	names := make(map[string]bool, len(vars))
	for _, v := range vars {
		if ids[v.ID] {
			r.add(SeverityError, "duplicate_variable_id", "", "", "duplicate variable id '%s'", v.ID)
		}
		if names[v.Name] {
			r.add(SeverityError, "duplicate_variable_name", "", "", "duplicate variable name '%s'", v.Name)
		}
		ids[v.ID] = true
		names[v.Name] = true
	}
}

// checkReachability crawls from the entry node and warns about the rest.
func checkReachability(r *Report, g *domain.Graph, nodes map[string]domain.Node, outgoing map[string][]domain.Edge, entry string) {
	if _, ok := nodes[entry]; !ok {
		return
	}
	visited := map[string]bool{}
	queue := []string{entry}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		for _, e := range outgoing[current] {
			if _, ok := nodes[e.Target]; ok && !visited[e.Target] {
				queue = append(queue, e.Target)
			}
		}
	}
	for _, n := range g.Nodes {
		if !visited[n.ID] {
			r.add(SeverityWarning, "unreachable", n.ID, "", "node '%s' is unreachable from '%s'", n.ID, entry)
			visited[n.ID] = true
		}
	}
}

type nodeChecker struct {
	report   *Report
	node     domain.Node
	outgoing []domain.Edge
	graph    *domain.Graph
}

func (c *nodeChecker) warn(code, edgeID, format string, args ...any) {
	c.report.add(SeverityWarning, code, c.node.ID, edgeID, format, args...)
}

func (c *nodeChecker) singleExit() {
	if len(c.outgoing) > 1 {
		c.warn("multiple_exits", "", "%s node '%s' has %d outgoing edges; only the first is followed",
			c.node.Kind(), c.node.ID, len(c.outgoing))
	}
}

func (c *nodeChecker) variable(id string) {
	if id == "" {
		c.warn("missing_variable", "", "node '%s' does not reference a variable", c.node.ID)
		return
	}
	if _, ok := c.graph.Variable(id); !ok {
		c.warn("unknown_variable", "", "node '%s' references unknown variable '%s'", c.node.ID, id)
	}
}

func (c *nodeChecker) Dialogue(domain.DialogueData) struct{} {
	c.singleExit()
	return struct{}{}
}

func (c *nodeChecker) Choice(d domain.ChoiceData) struct{} {
	wired := make(map[int]bool)
	for _, e := range c.outgoing {
		i, ok := domain.ParseChoiceHandle(e.SourceHandle)
		if !ok {
			c.warn("bad_handle", e.ID, "edge '%s' leaves choice node '%s' without a choice handle", e.ID, c.node.ID)
			continue
		}
		if i >= len(d.Choices) {
			c.warn("orphan_choice_edge", e.ID, "edge '%s' uses handle '%s' but node '%s' has %d choices",
				e.ID, e.SourceHandle, c.node.ID, len(d.Choices))
			continue
		}
		wired[i] = true
	}
	for i, label := range d.Choices {
		if !wired[i] {
			c.warn("unwired_choice", "", "choice %d (%q) of node '%s' has no edge", i, label, c.node.ID)
		}
	}
	return struct{}{}
}

func (c *nodeChecker) Condition(d domain.ConditionData) struct{} {
	c.variable(d.VariableID)
	if d.Operator != "" && !d.Operator.Valid() {
		c.warn("bad_operator", "", "node '%s' uses unsupported operator '%s'", c.node.ID, d.Operator)
	}
	if d.Operator == "" || d.Value == nil {
		c.warn("incomplete_condition", "", "condition node '%s' is incomplete and always false", c.node.ID)
	}
	var hasTrue, hasFalse bool
	for _, e := range c.outgoing {
		switch e.SourceHandle {
		case domain.HandleTrue:
			hasTrue = true
		case domain.HandleFalse:
			hasFalse = true
		default:
			c.warn("bad_handle", e.ID, "edge '%s' leaves condition node '%s' without a true/false handle", e.ID, c.node.ID)
		}
	}
	if !hasTrue {
		c.warn("missing_branch", "", "condition node '%s' has no 'true' edge", c.node.ID)
	}
	if !hasFalse {
		c.warn("missing_branch", "", "condition node '%s' has no 'false' edge", c.node.ID)
	}
	return struct{}{}
}

func (c *nodeChecker) VariableSet(d domain.VariableSetData) struct{} {
	c.variable(d.VariableID)
	if d.NewValue != nil && d.VariableID != "" {
		if v, ok := c.graph.Variable(d.VariableID); ok {
			if _, valid := domain.CoerceStrict(*d.NewValue, v.Value.Kind()); !valid {
				c.warn("bad_literal", "", "node '%s' assigns %q to %s variable '%s'; playback uses the default",
					c.node.ID, *d.NewValue, v.Value.Kind(), v.Name)
			}
		}
	}
	c.singleExit()
	return struct{}{}
}
