package workflow

// State represents a state of a form submission or of a payment request
type State string

// Create-request form submission states
const (
	StateEditing    State = "EDITING"
	StateValidating State = "VALIDATING"
	StateSubmitting State = "SUBMITTING"
	StateSucceeded  State = "SUCCEEDED"
	StateFailed     State = "FAILED"
)

// Payment request lifecycle states. Values match the API's Status field.
const (
	StateDraft    State = "Draft"
	StatePending  State = "Pending"
	StateReturned State = "Returned"
	StateApproved State = "Approved"
	StateRejected State = "Rejected"
)

var validStates = map[State]bool{
	StateEditing:    true,
	StateValidating: true,
	StateSubmitting: true,
	StateSucceeded:  true,
	StateFailed:     true,
	StateDraft:      true,
	StatePending:    true,
	StateReturned:   true,
	StateApproved:   true,
	StateRejected:   true,
}

var terminalStates = map[State]bool{
	StateSucceeded: true,
	StateApproved:  true,
	StateRejected:  true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known state
func (s State) IsValid() bool {
	return validStates[s]
}
