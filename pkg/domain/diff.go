package domain

// StateDiff represents the changes between two states.
// It is serialized to JSON for partial updates on SSE clients.
type StateDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	CurrentNodeID *string            `json:"current_node_id,omitempty"`
	Status        *ExecutionStatus   `json:"status,omitempty"`
	Reason        *TerminationReason `json:"reason,omitempty"`

	// Variables holds changed or added variables keyed by name.
	// Removed variables are present with a nil value.
	Variables map[string]any `json:"variables,omitempty"`

	// HistoryParams contains node ids appended to the history.
	HistoryParams *HistoryDelta `json:"history,omitempty"`
}

// HistoryDelta represents changes to the history stack.
type HistoryDelta struct {
	Appended []string `json:"appended"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
func Diff(oldState, newState *State) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{
		SessionID: newState.SessionID,
	}

	if oldState == nil || oldState.CurrentNodeID != newState.CurrentNodeID {
		id := newState.CurrentNodeID
		diff.CurrentNodeID = &id
	}
	if oldState == nil || oldState.Status != newState.Status {
		status := newState.Status
		diff.Status = &status
	}
	if (oldState == nil && newState.Reason != ReasonNone) ||
		(oldState != nil && oldState.Reason != newState.Reason) {
		reason := newState.Reason
		diff.Reason = &reason
	}

	diff.Variables = diffVariables(oldState, newState)
	diff.HistoryParams = diffHistory(oldState, newState)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffVariables(old *State, new *State) map[string]any {
	delta := make(map[string]any)

	if old == nil {
		for _, v := range new.Variables {
			delta[v.Name] = v.Value.Interface()
		}
		if len(delta) == 0 {
			return nil
		}
		return delta
	}

	previous := make(map[string]Variable, len(old.Variables))
	for _, v := range old.Variables {
		previous[v.ID] = v
	}

	for _, v := range new.Variables {
		prev, exists := previous[v.ID]
		if !exists || !prev.Value.Equal(v.Value) {
			delta[v.Name] = v.Value.Interface()
		}
		delete(previous, v.ID)
	}

	for _, gone := range previous {
		delta[gone.Name] = nil
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// diffHistory assumes standard append-only behavior for History.
func diffHistory(old *State, new *State) *HistoryDelta {
	if new == nil || len(new.History) == 0 {
		return nil
	}

	if old == nil {
		return &HistoryDelta{Appended: new.History}
	}

	oldLen := len(old.History)
	newLen := len(new.History)

	if newLen > oldLen {
		return &HistoryDelta{
			Appended: new.History[oldLen:],
		}
	}

	return nil
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.CurrentNodeID == nil &&
		d.Status == nil &&
		d.Reason == nil &&
		len(d.Variables) == 0 &&
		d.HistoryParams == nil
}
