package domain

// OnStateEnterInput is handed to a state's enter script.
type OnStateEnterInput struct {
	State *State `json:"state"`
}

// OnStateLeaveInput is handed to a state's leave script.
type OnStateLeaveInput struct {
	State *State `json:"state"`
}

// OnTransitionInput is handed to a state's transition script.
type OnTransitionInput struct {
	State      *State      `json:"state"`
	Transition *Transition `json:"transition"`
}

// OnTransitionOutput is filled by a transition script.
// An empty NextStateKeyOverride keeps the transition's own target.
type OnTransitionOutput struct {
	NextStateKeyOverride string `json:"next_state_key_override"`
}
