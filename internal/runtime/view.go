package runtime

import (
	"github.com/aretw0/storyweave/pkg/domain"
)

// View projects state into what a display layer renders. It has no side
// effects: a dangling cursor is reported as terminal without emitting hooks.
func (e *Engine) View(state *domain.State) domain.View {
	view := domain.View{
		Outgoing: []domain.Edge{},
		Awaiting: domain.AwaitNone,
	}
	if state == nil {
		view.Terminal = true
		view.Variables = []domain.Variable{}
		return view
	}
	view.Variables = domain.CloneVariables(state.Variables)

	if state.Terminated() {
		view.Terminal = true
		view.Reason = state.Reason
		return view
	}

	node, ok := e.graph.Node(state.CurrentNodeID)
	if !ok || node.Data == nil {
		view.Terminal = true
		view.Reason = domain.ReasonMissingNode
		return view
	}

	node = node.Clone()
	view.Node = &node
	view.Outgoing = append(view.Outgoing, e.graph.Outgoing(node.ID)...)
	return domain.VisitNode[domain.View](node.Data, &viewer{engine: e, view: view, nodeID: node.ID})
}

type viewer struct {
	engine *Engine
	view   domain.View
	nodeID string
}

func (v *viewer) Dialogue(domain.DialogueData) domain.View {
	v.view.CanAdvance = len(v.view.Outgoing) > 0
	v.view.Awaiting = domain.AwaitAdvance
	return v.view
}

func (v *viewer) Choice(d domain.ChoiceData) domain.View {
	for i, label := range d.Choices {
		edge := v.engine.handleEdge(v.nodeID, domain.ChoiceHandle(i))
		if edge == nil {
			continue
		}
		v.view.Choices = append(v.view.Choices, domain.ChoiceOption{
			Index:  i,
			Label:  label,
			Target: edge.Target,
		})
	}
	v.view.Awaiting = domain.AwaitChoice
	return v.view
}

func (v *viewer) Condition(domain.ConditionData) domain.View {
	v.view.Awaiting = domain.AwaitAuto
	return v.view
}

func (v *viewer) VariableSet(domain.VariableSetData) domain.View {
	v.view.Awaiting = domain.AwaitAuto
	return v.view
}
