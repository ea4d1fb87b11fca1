package runtime

import (
	"context"

	"github.com/aretw0/storyweave/pkg/domain"
)

// stepper performs the automatic transition of the node it was built for.
// Suspending kinds return the state unchanged.
type stepper struct {
	engine *Engine
	ctx    context.Context
	state  *domain.State
	node   domain.Node
}

func (s *stepper) Dialogue(domain.DialogueData) *domain.State { return s.state }

func (s *stepper) Choice(domain.ChoiceData) *domain.State { return s.state }

func (s *stepper) Condition(d domain.ConditionData) *domain.State {
	e := s.engine
	result, skip := evaluate(d, s.state.Variables)
	if skip != "" {
		e.logger.Debug("condition evaluated to false", "session_id", s.state.SessionID, "node_id", s.node.ID, "cause", skip)
	}
	if e.hooks.OnConditionEvaluated != nil {
		e.hooks.OnConditionEvaluated(s.ctx, &domain.ConditionEvent{
			EventBase:  e.base(domain.EventConditionEvaluated, s.state.SessionID),
			NodeID:     s.node.ID,
			VariableID: d.VariableID,
			Operator:   d.Operator,
			Result:     result,
		})
	}

	handle := domain.HandleFalse
	if result {
		handle = domain.HandleTrue
	}
	return e.follow(s.ctx, s.state, s.node, e.handleEdge(s.node.ID, handle))
}

func (s *stepper) VariableSet(d domain.VariableSetData) *domain.State {
	e := s.engine
	s.assign(d)
	return e.follow(s.ctx, s.state, s.node, e.firstEdge(s.node.ID))
}

// assign writes the coerced literal into the session's variables.
// Incomplete data or an unknown variable leaves them untouched.
func (s *stepper) assign(d domain.VariableSetData) {
	e := s.engine
	log := e.logger.With("session_id", s.state.SessionID, "node_id", s.node.ID)

	if d.VariableID == "" || d.NewValue == nil {
		log.Debug("variable set skipped: incomplete data")
		return
	}

	idx := -1
	for i, v := range s.state.Variables {
		if v.ID == d.VariableID {
			idx = i
			break
		}
	}
	if idx < 0 {
		log.Warn("variable set skipped: unknown variable", "variable_id", d.VariableID)
		return
	}

	old := s.state.Variables[idx]
	value, ok := domain.CoerceStrict(*d.NewValue, old.Value.Kind())
	if !ok {
		log.Warn("literal does not match variable kind, using default",
			"variable", old.Name, "kind", old.Value.Kind(), "literal", *d.NewValue)
	}
	s.state.Variables[idx].Value = value

	if e.hooks.OnVariableSet != nil {
		e.hooks.OnVariableSet(s.ctx, &domain.VariableEvent{
			EventBase:  e.base(domain.EventVariableSet, s.state.SessionID),
			NodeID:     s.node.ID,
			VariableID: old.ID,
			Name:       old.Name,
			Old:        old.Value,
			New:        value,
			Fallback:   !ok,
		})
	}
}

// automatic reports whether a node kind moves on without reader input.
type automatic struct{}

func (automatic) Dialogue(domain.DialogueData) bool       { return false }
func (automatic) Choice(domain.ChoiceData) bool           { return false }
func (automatic) Condition(domain.ConditionData) bool     { return true }
func (automatic) VariableSet(domain.VariableSetData) bool { return true }

func isAutomatic(n domain.Node) bool {
	if n.Data == nil {
		return false
	}
	return domain.VisitNode[bool](n.Data, automatic{})
}
