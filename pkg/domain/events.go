package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter          EventType = "node_enter"
	EventNodeLeave          EventType = "node_leave"
	EventConditionEvaluated EventType = "condition_evaluated"
	EventVariableSet        EventType = "variable_set"
	EventSessionTerminated  EventType = "session_terminated"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID   string   `json:"node_id"`
	NodeKind NodeKind `json:"node_kind"`
}

// ConditionEvent reports the outcome of a condition node.
type ConditionEvent struct {
	EventBase
	NodeID     string   `json:"node_id"`
	VariableID string   `json:"variable_id,omitempty"`
	Operator   Operator `json:"operator,omitempty"`
	Result     bool     `json:"result"`
}

// VariableEvent reports a write performed by a variable-set node.
type VariableEvent struct {
	EventBase
	NodeID     string `json:"node_id"`
	VariableID string `json:"variable_id"`
	Name       string `json:"name"`
	Old        Value  `json:"old"`
	New        Value  `json:"new"`
	// Fallback is true when the authored literal did not parse and a default was used.
	Fallback bool `json:"fallback,omitempty"`
}

// TerminateEvent reports the end of a session.
type TerminateEvent struct {
	EventBase
	LastNodeID string            `json:"last_node_id,omitempty"`
	Reason     TerminationReason `json:"reason"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeEnter          func(context.Context, *NodeEvent)
	OnNodeLeave          func(context.Context, *NodeEvent)
	OnConditionEvaluated func(context.Context, *ConditionEvent)
	OnVariableSet        func(context.Context, *VariableEvent)
	OnTerminate          func(context.Context, *TerminateEvent)
}

// Merge chains two hook sets; both run, h first.
func (h LifecycleHooks) Merge(o LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter:          chain(h.OnNodeEnter, o.OnNodeEnter),
		OnNodeLeave:          chain(h.OnNodeLeave, o.OnNodeLeave),
		OnConditionEvaluated: chain(h.OnConditionEvaluated, o.OnConditionEvaluated),
		OnVariableSet:        chain(h.OnVariableSet, o.OnVariableSet),
		OnTerminate:          chain(h.OnTerminate, o.OnTerminate),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
