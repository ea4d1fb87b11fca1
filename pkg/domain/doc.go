/*
Package domain contains the core domain models of the storyweave playback engine.

It defines the authored story graph and the runtime snapshot of a playback session.
This package is kept pure and free of external dependencies like I/O or persistence,
following Hexagonal Architecture principles.

# Key Entities

  - Node: a narrative unit. Its Data is one of DialogueData, ChoiceData, ConditionData
    or VariableSetData; dispatch goes through NodeVisitor so every kind is handled.
  - Edge: a directed connection, optionally tagged with a source handle
    ("choice-<i>", "true", "false").
  - Value: a tagged string/number/boolean with explicit coercion rules.
  - Graph: nodes, edges and variable declarations.
  - State: the session cursor, its private variables and visit history.
  - View: what a display layer needs to render the current state.
*/
package domain
