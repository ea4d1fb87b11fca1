package domain

// Await tells the display layer what the session is waiting for.
type Await string

const (
	AwaitAdvance Await = "advance" // Dialogue: show a "Next" affordance
	AwaitChoice  Await = "choice"  // Choice: show the live choices
	AwaitAuto    Await = "auto"    // Condition/VariableSet: the engine moves on by itself
	AwaitNone    Await = "none"    // Terminal
)

// ChoiceOption is a choice that has a wired edge and can be offered.
type ChoiceOption struct {
	Index  int    `json:"index"`
	Label  string `json:"label"`
	Target string `json:"target"`
}

// View is the read-only projection of a state for display layers.
type View struct {
	Node       *Node             `json:"node,omitempty"`
	Outgoing   []Edge            `json:"outgoing"`
	Choices    []ChoiceOption    `json:"choices,omitempty"`
	CanAdvance bool              `json:"can_advance"`
	Awaiting   Await             `json:"awaiting"`
	Variables  []Variable        `json:"variables"`
	Terminal   bool              `json:"terminal"`
	Reason     TerminationReason `json:"reason,omitempty"`
}
