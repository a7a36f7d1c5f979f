package orchestrator

import "slices"

// State is a node of the recognition state machine.
type State string

const (
	StateInit        State = "INIT"
	StatePass1       State = "PASS1"
	StatePass2       State = "PASS2"
	StateMerge       State = "MERGE"
	StateRedaction   State = "REDACTION_PASS"
	StatePostprocess State = "POSTPROCESS"
	StateDone        State = "DONE"
	StateError       State = "ERROR"
)

var transitions = map[State][]State{
	StateInit:        {StatePass1, StateError},
	StatePass1:       {StatePass2, StateMerge, StateError},
	StatePass2:       {StateMerge, StateError},
	StateMerge:       {StateRedaction, StatePostprocess},
	StateRedaction:   {StatePostprocess, StateError},
	StatePostprocess: {StateDone},
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateError
}

// CanTransition reports whether the machine may move from one state to
// another.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}
