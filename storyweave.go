package storyweave

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/storyweave/internal/logging"
	"github.com/aretw0/storyweave/internal/runtime"
	"github.com/aretw0/storyweave/internal/validator"
	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/aretw0/storyweave/pkg/ports"
)

// Version is the library and CLI version. Release builds override it with -ldflags.
var Version = "0.4.0"

// Engine is the high-level entry point for the storyweave library.
// It wraps the internal runtime and provides a simplified API for hosts.
type Engine struct {
	runtime     *runtime.Engine
	runtimeOpts []runtime.EngineOption
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	entryNodeID string
	strict      bool
	report      *validator.Report
	Name        string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks. Repeated calls chain.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithEntryNode configures the initial node ID (default: "start").
func WithEntryNode(nodeID string) Option {
	return func(e *Engine) {
		e.entryNodeID = nodeID
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithEntryNode(nodeID))
	}
}

// WithAutoStepLimit caps how many Condition/VariableSet nodes Settle runs in a row.
func WithAutoStepLimit(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithAutoStepLimit(n))
	}
}

// WithStrictValidation makes New reject graphs with error-level issues.
func WithStrictValidation() Option {
	return func(e *Engine) {
		e.strict = true
	}
}

// New initializes an Engine over a snapshot of graph. Later edits to graph
// do not affect the engine.
func New(graph *domain.Graph, opts ...Option) (*Engine, error) {
	if graph == nil {
		return nil, fmt.Errorf("graph is required")
	}

	eng := &Engine{entryNodeID: domain.DefaultEntryNodeID, Name: graph.Name}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	eng.report = validator.ValidateGraph(graph, eng.entryNodeID)
	if eng.report.HasErrors() {
		if eng.strict {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidGraph, eng.report)
		}
		eng.logger.Warn("graph has structural issues; playback degrades to termination",
			"graph", graph.Name, "errors", eng.report.Count(validator.SeverityError))
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)

	eng.runtime = runtime.NewEngine(graph, runtimeOpts...)
	return eng, nil
}

// Load fetches a graph by name from source and builds an Engine over it.
func Load(ctx context.Context, source ports.GraphSource, name string, opts ...Option) (*Engine, error) {
	graph, err := source.LoadGraph(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph %q: %w", name, err)
	}
	return New(graph, opts...)
}

// Start creates the initial state for a session and triggers lifecycle hooks.
func (e *Engine) Start(ctx context.Context, sessionID string) (*domain.State, error) {
	return e.runtime.Start(ctx, sessionID)
}

// Advance moves past the current Dialogue node.
func (e *Engine) Advance(ctx context.Context, state *domain.State) (*domain.State, error) {
	return e.runtime.Advance(ctx, state)
}

// Choose picks a choice of the current Choice node by index.
func (e *Engine) Choose(ctx context.Context, state *domain.State, index int) (*domain.State, error) {
	return e.runtime.Choose(ctx, state, index)
}

// Step performs one automatic transition on a Condition or VariableSet node.
func (e *Engine) Step(ctx context.Context, state *domain.State) (*domain.State, error) {
	return e.runtime.Step(ctx, state)
}

// Settle runs automatic nodes until the session waits for the reader or ends.
func (e *Engine) Settle(ctx context.Context, state *domain.State) (*domain.State, error) {
	return e.runtime.Settle(ctx, state)
}

// Close ends a session explicitly.
func (e *Engine) Close(ctx context.Context, state *domain.State) (*domain.State, error) {
	return e.runtime.Close(ctx, state)
}

// View projects a state for display.
func (e *Engine) View(state *domain.State) domain.View {
	return e.runtime.View(state)
}

// Inspect returns a copy of the graph for visualization or introspection tools.
func (e *Engine) Inspect() *domain.Graph {
	return e.runtime.Inspect()
}

// EntryNode returns the node sessions start from.
func (e *Engine) EntryNode() string {
	return e.runtime.EntryNode()
}

// Report returns the validation report computed when the engine was built.
func (e *Engine) Report() *validator.Report {
	return e.report
}
