package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrGraphNotFound is returned when a graph source has no graph with the given name.
var ErrGraphNotFound = errors.New("graph not found")

// ErrNodeNotFound is returned by editing operations that reference a missing node.
var ErrNodeNotFound = errors.New("node not found")

// ErrVariableNotFound is returned by editing operations that reference a missing variable.
var ErrVariableNotFound = errors.New("variable not found")

// ErrDuplicateVariable is returned when a variable name is already taken in a graph.
var ErrDuplicateVariable = errors.New("variable name already exists")

// ErrInvalidConnection is returned when an edge does not fit the source node's outputs.
var ErrInvalidConnection = errors.New("invalid connection")

// ErrInvalidGraph is returned when strict validation rejects a graph.
var ErrInvalidGraph = errors.New("invalid graph")
