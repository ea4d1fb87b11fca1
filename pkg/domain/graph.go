package domain

// Edge is a directed connection between two nodes. SourceHandle tells which
// output of a multi-output node the edge leaves from.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
	Label        string `json:"label,omitempty"`
}

// Variable is a named, typed value available to conditions and assignments.
// Its declared kind is the kind of its current value.
type Variable struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// Viewport is the editor camera. Playback ignores it.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// Graph is an authored story: nodes, edges and variable declarations.
type Graph struct {
	Name      string     `json:"name"`
	Nodes     []Node     `json:"nodes"`
	Edges     []Edge     `json:"edges"`
	Variables []Variable `json:"variables"`
	Viewport  Viewport   `json:"viewport"`
}

// Node looks a node up by id.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Outgoing returns the edges leaving id, in authoring order.
func (g *Graph) Outgoing(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// Variable looks a variable up by id.
func (g *Graph) Variable(id string) (Variable, bool) {
	return FindVariable(g.Variables, id)
}

// VariableByName looks a variable up by its unique name.
func (g *Graph) VariableByName(name string) (Variable, bool) {
	for _, v := range g.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// Snapshot returns a deep copy that shares nothing with g.
func (g *Graph) Snapshot() *Graph {
	if g == nil {
		return nil
	}
	out := &Graph{
		Name:      g.Name,
		Nodes:     make([]Node, len(g.Nodes)),
		Edges:     append([]Edge(nil), g.Edges...),
		Variables: CloneVariables(g.Variables),
		Viewport:  g.Viewport,
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = n.Clone()
	}
	return out
}

// FindVariable looks a variable up by id in an ordered set.
func FindVariable(vars []Variable, id string) (Variable, bool) {
	if id == "" {
		return Variable{}, false
	}
	for _, v := range vars {
		if v.ID == id {
			return v, true
		}
	}
	return Variable{}, false
}

// CloneVariables copies an ordered variable set. Values are immutable, so a
// shallow copy of the slice is a deep copy.
func CloneVariables(vars []Variable) []Variable {
	if vars == nil {
		return []Variable{}
	}
	return append(make([]Variable, 0, len(vars)), vars...)
}
