package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStateEnter     EventType = "state_enter"
	EventStateLeave     EventType = "state_leave"
	EventTransition     EventType = "transition"
	EventScriptRun      EventType = "script_run"
	EventSessionCreated EventType = "session_created"
	EventSessionExpired EventType = "session_expired"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// StateEvent represents entry into or exit from a state.
type StateEvent struct {
	EventBase
	StateKey string `json:"state_key"`
}

// TransitionEvent represents an applied transition.
type TransitionEvent struct {
	EventBase
	FromStateKey  string `json:"from_state_key"`
	TransitionKey string `json:"transition_key"`
	ToStateKey    string `json:"to_state_key"`
	Overridden    bool   `json:"overridden,omitempty"`
}

// ScriptEvent represents one finished script run.
type ScriptEvent struct {
	EventBase
	Script   string        `json:"script"`
	Duration time.Duration `json:"duration"`
	IsError  bool          `json:"is_error,omitempty"`
}

// SessionEvent represents a session being created or swept.
type SessionEvent struct {
	EventBase
}

// LifecycleHooks defines callbacks for engine observability.
// Every hook is optional.
type LifecycleHooks struct {
	OnStateEnter     func(context.Context, *StateEvent)
	OnStateLeave     func(context.Context, *StateEvent)
	OnTransition     func(context.Context, *TransitionEvent)
	OnScriptRun      func(context.Context, *ScriptEvent)
	OnSessionCreated func(context.Context, *SessionEvent)
	OnSessionExpired func(context.Context, *SessionEvent)
}
