package runtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/storyweave/internal/logging"
	"github.com/aretw0/storyweave/pkg/domain"
)

// DefaultAutoStepLimit bounds how many automatic nodes Settle runs in a row.
const DefaultAutoStepLimit = 1000

// ErrNilState is returned when a transition is requested without a state.
var ErrNilState = errors.New("state is nil")

// Engine is the playback state machine.
// It holds an immutable graph snapshot and never mutates the states it receives.
type Engine struct {
	graph         *domain.Graph
	entryNodeID   string
	logger        *slog.Logger
	hooks         domain.LifecycleHooks
	autoStepLimit int
	now           func() time.Time
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithEntryNode sets the node playback starts from (default: "start").
func WithEntryNode(nodeID string) EngineOption {
	return func(e *Engine) {
		if nodeID != "" {
			e.entryNodeID = nodeID
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithAutoStepLimit caps consecutive automatic steps in Settle.
// Values below 1 restore the default.
func WithAutoStepLimit(n int) EngineOption {
	return func(e *Engine) {
		if n < 1 {
			n = DefaultAutoStepLimit
		}
		e.autoStepLimit = n
	}
}

// NewEngine creates an engine over a deep snapshot of graph.
func NewEngine(graph *domain.Graph, opts ...EngineOption) *Engine {
	snap := graph.Snapshot()
	if snap == nil {
		snap = &domain.Graph{}
	}
	e := &Engine{
		graph:         snap,
		entryNodeID:   domain.DefaultEntryNodeID,
		logger:        logging.NewNop(),
		autoStepLimit: DefaultAutoStepLimit,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.graph.Name != "" {
		e.logger = e.logger.With("graph", e.graph.Name)
	}
	return e
}

// EntryNode returns the configured entry node id.
func (e *Engine) EntryNode() string {
	return e.entryNodeID
}

// Inspect returns a copy of the graph the engine plays.
func (e *Engine) Inspect() *domain.Graph {
	return e.graph.Snapshot()
}

// Start creates the initial state of a session. The variables are a private
// copy of the graph's declarations. A missing entry node yields a terminal state.
func (e *Engine) Start(ctx context.Context, sessionID string) (*domain.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	state := domain.NewState(sessionID, e.entryNodeID, e.graph.Variables)
	state.Graph = e.graph.Name

	node, ok := e.graph.Node(e.entryNodeID)
	if !ok {
		e.logger.Warn("entry node not found", "session_id", sessionID, "node_id", e.entryNodeID)
		state.History = nil
		return e.terminate(ctx, state, "", domain.ReasonMissingStart), nil
	}

	e.emitNodeEnter(ctx, sessionID, node)
	return state, nil
}

// Advance moves past a Dialogue node along its first outgoing edge.
// On any other node kind, or on a terminal state, it returns an unchanged copy.
func (e *Engine) Advance(ctx context.Context, state *domain.State) (*domain.State, error) {
	node, next, err := e.enter(ctx, state)
	if err != nil || node == nil {
		return next, err
	}
	if node.Kind() != domain.KindDialogue {
		e.logger.Debug("advance ignored", "session_id", state.SessionID, "node_id", node.ID, "kind", node.Kind())
		return next, nil
	}
	return e.follow(ctx, next, *node, e.firstEdge(node.ID)), nil
}

// Choose picks the index-th choice of a Choice node by following the edge
// whose source handle is "choice-<index>". A choice without an edge ends the session.
func (e *Engine) Choose(ctx context.Context, state *domain.State, index int) (*domain.State, error) {
	node, next, err := e.enter(ctx, state)
	if err != nil || node == nil {
		return next, err
	}
	if node.Kind() != domain.KindChoice {
		e.logger.Debug("choose ignored", "session_id", state.SessionID, "node_id", node.ID, "kind", node.Kind())
		return next, nil
	}
	return e.follow(ctx, next, *node, e.handleEdge(node.ID, domain.ChoiceHandle(index))), nil
}

// Step performs one automatic transition on a Condition or VariableSet node.
// Suspending nodes and terminal states are returned unchanged.
func (e *Engine) Step(ctx context.Context, state *domain.State) (*domain.State, error) {
	node, next, err := e.enter(ctx, state)
	if err != nil || node == nil || node.Data == nil {
		return next, err
	}
	return domain.VisitNode[*domain.State](node.Data, &stepper{
		engine: e,
		ctx:    ctx,
		state:  next,
		node:   *node,
	}), nil
}

// Settle runs automatic nodes until the cursor rests on a Dialogue or Choice
// node or the session terminates. Too many consecutive automatic steps end the
// session with ReasonLoopLimit.
func (e *Engine) Settle(ctx context.Context, state *domain.State) (*domain.State, error) {
	if state == nil {
		return nil, ErrNilState
	}
	current := state.Snapshot()
	for steps := 0; ; steps++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if current.Terminated() {
			return current, nil
		}
		node, ok := e.graph.Node(current.CurrentNodeID)
		if !ok {
			// Step terminates a dangling cursor.
			return e.Step(ctx, current)
		}
		if !isAutomatic(node) {
			return current, nil
		}
		if steps >= e.autoStepLimit {
			e.logger.Warn("auto step limit reached", "session_id", current.SessionID, "node_id", node.ID, "limit", e.autoStepLimit)
			e.emitNodeLeave(ctx, current.SessionID, node)
			return e.terminate(ctx, current, node.ID, domain.ReasonLoopLimit), nil
		}
		next, err := e.Step(ctx, current)
		if err != nil {
			return nil, err
		}
		current = next
	}
}

// Close ends the session explicitly.
func (e *Engine) Close(ctx context.Context, state *domain.State) (*domain.State, error) {
	if state == nil {
		return nil, ErrNilState
	}
	next := state.Snapshot()
	if next.Terminated() {
		return next, nil
	}
	if node, ok := e.graph.Node(next.CurrentNodeID); ok {
		e.emitNodeLeave(ctx, next.SessionID, node)
	}
	return e.terminate(ctx, next, next.CurrentNodeID, domain.ReasonClosed), nil
}

// enter resolves the current node of a copy of state. It returns a nil node
// when there is nothing to do: the state is terminal, or the cursor dangles
// and the returned state has just been terminated.
func (e *Engine) enter(ctx context.Context, state *domain.State) (*domain.Node, *domain.State, error) {
	if state == nil {
		return nil, nil, ErrNilState
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	next := state.Snapshot()
	if next.Terminated() {
		return nil, next, nil
	}
	node, ok := e.graph.Node(next.CurrentNodeID)
	if !ok {
		e.logger.Warn("current node not found", "session_id", next.SessionID, "node_id", next.CurrentNodeID)
		return nil, e.terminate(ctx, next, next.CurrentNodeID, domain.ReasonMissingNode), nil
	}
	return &node, next, nil
}

// follow leaves from and moves the cursor along edge, terminating when edge is nil
// or its target does not exist.
func (e *Engine) follow(ctx context.Context, state *domain.State, from domain.Node, edge *domain.Edge) *domain.State {
	e.emitNodeLeave(ctx, state.SessionID, from)

	if edge == nil {
		e.logger.Debug("no outgoing edge", "session_id", state.SessionID, "node_id", from.ID)
		return e.terminate(ctx, state, from.ID, domain.ReasonNoEdge)
	}

	target, ok := e.graph.Node(edge.Target)
	if !ok {
		e.logger.Warn("edge target not found", "session_id", state.SessionID, "edge_id", edge.ID, "target", edge.Target)
		return e.terminate(ctx, state, from.ID, domain.ReasonMissingNode)
	}

	state.CurrentNodeID = target.ID
	state.History = append(state.History, target.ID)
	e.emitNodeEnter(ctx, state.SessionID, target)
	return state
}

func (e *Engine) terminate(ctx context.Context, state *domain.State, lastNodeID string, reason domain.TerminationReason) *domain.State {
	state.CurrentNodeID = ""
	state.Status = domain.StatusTerminated
	state.Reason = reason

	e.logger.Debug("session terminated", "session_id", state.SessionID, "last_node_id", lastNodeID, "reason", reason)
	if e.hooks.OnTerminate != nil {
		e.hooks.OnTerminate(ctx, &domain.TerminateEvent{
			EventBase:  e.base(domain.EventSessionTerminated, state.SessionID),
			LastNodeID: lastNodeID,
			Reason:     reason,
		})
	}
	return state
}

func (e *Engine) firstEdge(nodeID string) *domain.Edge {
	for _, edge := range e.graph.Edges {
		if edge.Source == nodeID {
			return &edge
		}
	}
	return nil
}

func (e *Engine) handleEdge(nodeID, handle string) *domain.Edge {
	for _, edge := range e.graph.Edges {
		if edge.Source == nodeID && edge.SourceHandle == handle {
			return &edge
		}
	}
	return nil
}
