package domain

// State is an authored node of the story graph.
// States are resolved lazily by key, the engine never loads the whole graph.
type State struct {
	Key           string `json:"key"`
	TextAssetKey  string `json:"text_asset_key,omitempty"`
	ImageAssetKey string `json:"image_asset_key,omitempty"`

	// Script keys are optional. An empty key means the hook is a no-op.
	OnEnterScriptKey      string `json:"on_enter_script_key,omitempty"`
	OnLeaveScriptKey      string `json:"on_leave_script_key,omitempty"`
	OnTransitionScriptKey string `json:"on_transition_script_key,omitempty"`

	// Transitions keeps the authored order.
	Transitions []Transition `json:"transitions"`
}

// FindTransitions returns every transition declared with the given key.
func (s *State) FindTransitions(key string) []Transition {
	var found []Transition
	for _, t := range s.Transitions {
		if t.Key == key {
			found = append(found, t)
		}
	}
	return found
}
