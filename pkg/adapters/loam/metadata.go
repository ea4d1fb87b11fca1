package loam

// GraphMetadata is the header of a graph document: the frontmatter of a
// markdown file, or the whole object of a JSON/YAML file. Nested sections stay
// generic and are decoded by pkg/schema.
type GraphMetadata struct {
	Name      string           `json:"name" mapstructure:"name"`
	Entry     string           `json:"entry,omitempty" mapstructure:"entry"`
	Nodes     []map[string]any `json:"nodes" mapstructure:"nodes"`
	Edges     []map[string]any `json:"edges" mapstructure:"edges"`
	Variables []map[string]any `json:"variables" mapstructure:"variables"`
	Viewport  map[string]any   `json:"viewport,omitempty" mapstructure:"viewport"`
}

func (m GraphMetadata) document() map[string]any {
	doc := map[string]any{"name": m.Name}
	if m.Nodes != nil {
		doc["nodes"] = anySlice(m.Nodes)
	}
	if m.Edges != nil {
		doc["edges"] = anySlice(m.Edges)
	}
	if m.Variables != nil {
		doc["variables"] = anySlice(m.Variables)
	}
	if m.Viewport != nil {
		doc["viewport"] = m.Viewport
	}
	return doc
}

func anySlice(items []map[string]any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
