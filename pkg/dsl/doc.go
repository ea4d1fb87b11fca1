/*
Package dsl provides a Go DSL for programmatically constructing story graphs.

It allows developers to define branching stories using a type-safe, fluent builder
instead of hand-writing JSON or YAML documents. This is particularly useful for
unit testing and for generating graphs.

Example usage:

	b := dsl.New("tavern").Variable("gold", 3)

	b.Add("start").
		Say("Barkeep", "What will it be?").
		Go("order")

	b.Add("order").
		Choice("Ale", "pay").
		Choice("Nothing", "leave")

	b.Add("pay").
		If("gold", domain.OpGreaterEqual, 2).
		True("drink").
		False("leave")

	b.Add("drink").Say("Barkeep", "Cheers!")
	b.Add("leave").Say("Barkeep", "Come back soon.")

	graph, err := b.Build()
*/
package dsl
