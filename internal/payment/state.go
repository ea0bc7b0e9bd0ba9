package payment

import "slices"

// State is a step of the payment flow.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateSubmitting
	StateConfirmed
	StateFailed
)

var stateNames = [...]string{
	StateDisconnected: "disconnected",
	StateConnecting:   "connecting",
	StateConnected:    "connected",
	StateSubmitting:   "submitting",
	StateConfirmed:    "confirmed",
	StateFailed:       "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// transitions lists the states reachable from each state.
var transitions = map[State][]State{
	StateDisconnected: {StateConnecting},
	StateConnecting:   {StateConnected, StateDisconnected},
	StateConnected:    {StateSubmitting, StateDisconnected},
	StateSubmitting:   {StateConfirmed, StateFailed},
	StateConfirmed:    {StateConnected, StateDisconnected},
	StateFailed:       {StateConnected, StateDisconnected},
}

// CanTransition reports whether the flow may move from one state to another.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}
