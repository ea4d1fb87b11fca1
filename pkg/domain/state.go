package domain

// ExecutionStatus defines whether a playback session can still move.
type ExecutionStatus string

const (
	StatusActive     ExecutionStatus = "active"     // The cursor rests on a node
	StatusTerminated ExecutionStatus = "terminated" // No current node
)

// TerminationReason records why a session ended. All endings are equivalent;
// the reason only feeds logs, metrics and display text.
type TerminationReason string

const (
	ReasonNone         TerminationReason = ""
	ReasonMissingStart TerminationReason = "missing_start"
	ReasonMissingNode  TerminationReason = "missing_node"
	ReasonNoEdge       TerminationReason = "no_edge"
	ReasonClosed       TerminationReason = "closed"
	ReasonLoopLimit    TerminationReason = "loop_limit"
)

// State is the snapshot of one playback session.
type State struct {
	// SessionID identifies the playback session.
	SessionID string `json:"session_id"`

	// Graph names the graph the session was started from (informational).
	Graph string `json:"graph,omitempty"`

	// CurrentNodeID is the cursor. Empty once the session has terminated.
	CurrentNodeID string `json:"current_node_id,omitempty"`

	Status ExecutionStatus   `json:"status"`
	Reason TerminationReason `json:"reason,omitempty"`

	// Variables is the session's private copy of the graph variables.
	Variables []Variable `json:"variables"`

	// History is the ordered list of visited node ids.
	History []string `json:"history,omitempty"`
}

// NewState creates an active state resting on startNodeID.
func NewState(sessionID, startNodeID string, vars []Variable) *State {
	return &State{
		SessionID:     sessionID,
		CurrentNodeID: startNodeID,
		Status:        StatusActive,
		Variables:     CloneVariables(vars),
		History:       []string{startNodeID},
	}
}

// Terminated reports whether the session has no current node.
func (s *State) Terminated() bool {
	return s == nil || s.Status == StatusTerminated || s.CurrentNodeID == ""
}

// Variable looks up the session's live value for a variable id.
func (s *State) Variable(id string) (Variable, bool) {
	return FindVariable(s.Variables, id)
}

// Snapshot creates a deep copy of the state, safe to mutate.
func (s *State) Snapshot() *State {
	if s == nil {
		return nil
	}
	next := *s
	next.Variables = CloneVariables(s.Variables)
	next.History = append([]string(nil), s.History...)
	return &next
}
