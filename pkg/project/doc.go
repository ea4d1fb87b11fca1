// Package project holds the graphs of an authoring session and edits them.
//
// A Project keeps a set of graphs keyed by id, a current graph and a node
// selection. Every edit applies to the current graph and is published to an
// in-memory source, so a Project can back a player or server with hot reload.
package project
