package domain

import "encoding/json"

// Transition is a named edge from a state to the key of the next state.
// IsEnabled and IsVisible are presentation hints; the state machine ignores them.
type Transition struct {
	Key          string `json:"key"`
	TextAssetKey string `json:"text_asset_key,omitempty"`
	NextStateKey string `json:"next_state_key"`
	IsEnabled    bool   `json:"is_enabled"`
	IsVisible    bool   `json:"is_visible"`
}

// UnmarshalJSON defaults IsEnabled and IsVisible to true when they are omitted.
func (t *Transition) UnmarshalJSON(data []byte) error {
	type plain Transition
	raw := plain{IsEnabled: true, IsVisible: true}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Transition(raw)
	return nil
}
