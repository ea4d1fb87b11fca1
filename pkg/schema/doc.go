// Package schema decodes authored graph documents into domain graphs.
//
// Documents are generic maps, as produced by gopkg.in/yaml.v3, encoding/json or a
// Loam repository. Decoding goes through mapstructure with hooks that turn native
// scalars into domain.Value, normalise legacy node kinds ("dialogueNode", "editable",
// ...) and render numeric or boolean literals into string fields.
//
// Basic usage:
//
//	var doc map[string]any
//	if err := yaml.Unmarshal(raw, &doc); err != nil {
//	    return err
//	}
//	graph, err := schema.Decode(doc)
//	if err != nil {
//	    for _, fe := range schema.FieldErrors(err) {
//	        log.Println(fe)
//	    }
//	}
//
// A minimal YAML document:
//
//	name: tavern
//	variables:
//	  - name: gold
//	    value: 3
//	nodes:
//	  - id: start
//	    type: dialogue
//	    data: {character: Barkeep, dialogue: "What will it be?"}
//	  - id: check
//	    type: condition
//	    data: {variableId: gold, operator: ">=", value: 2}
//	edges:
//	  - {source: start, target: check}
package schema
