/*
Package storyweave is a deterministic playback engine for branching visual-novel story graphs.

An author builds a graph of typed narrative nodes (Dialogue, Choice, Condition, VariableSet)
connected by edges and backed by typed variables. The engine walks that graph as a state
machine: it keeps a cursor and a private copy of the variables per session, evaluates
conditions, applies assignments and resolves branching edges.

# Concept

The engine never performs I/O. The host (terminal player, HTTP server, MCP server, or your
own application) renders a View of the current State and feeds reader actions back in. Every
transition returns a new State, so sessions can be stored, diffed and replayed freely.

# Key Features

  - Deterministic Execution: the same graph, variables and actions always reach the same state.
  - Fail-safe Playback: dangling edges, missing variables and bad literals degrade to
    termination or defaults instead of errors.
  - Hexagonal Architecture: graph sources, session stores and hosts live in adapters.
  - Observability: lifecycle hooks feed logs and Prometheus metrics.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/storyweave"
		"github.com/aretw0/storyweave/pkg/dsl"
	)

	func main() {
		b := dsl.New("demo")
		b.Add("start").Say("Guide", "Welcome!").Go("bye")
		b.Add("bye").Say("Guide", "See you.")

		graph, err := b.Build()
		if err != nil {
			log.Fatal(err)
		}

		eng, err := storyweave.New(graph)
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		state, _ := eng.Start(ctx, "session-1")
		for !state.Terminated() {
			view := eng.View(state)
			fmt.Println(view.Node.ID)
			state, _ = eng.Advance(ctx, state)
			state, _ = eng.Settle(ctx, state)
		}
	}
*/
package storyweave
