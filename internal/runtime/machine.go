package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/fable/internal/logging"
	"github.com/aretw0/fable/internal/scripting"
	"github.com/aretw0/fable/pkg/domain"
)

// AssetReader loads the states and script sources a machine needs.
type AssetReader interface {
	StateAsset(ctx context.Context, key string) (*domain.State, error)
	ScriptAsset(ctx context.Context, key string) (string, error)
}

// StateMachine is the state machine of one session.
// It is not safe for concurrent use.
type StateMachine struct {
	sessionID  string
	assets     AssetReader
	host       *scripting.Host
	services   scripting.ServiceProvider
	unsafe     bool
	initialKey string
	finalKey   string
	hooks      domain.LifecycleHooks
	logger     *slog.Logger

	current *domain.State
}

// Option configures the StateMachine.
type Option func(*StateMachine)

// WithLogger configures a logger for the StateMachine.
func WithLogger(logger *slog.Logger) Option {
	return func(m *StateMachine) {
		m.logger = logger
	}
}

// WithLifecycleHooks configures observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *StateMachine) {
		m.hooks = hooks
	}
}

// WithSessionID binds the machine to a session. The id is passed to every script run.
func WithSessionID(id string) Option {
	return func(m *StateMachine) {
		m.sessionID = id
	}
}

// WithStateKeys overrides the initial and final state keys.
func WithStateKeys(initial, final string) Option {
	return func(m *StateMachine) {
		if initial != "" {
			m.initialKey = initial
		}
		if final != "" {
			m.finalKey = final
		}
	}
}

// WithUnsafeScripts lets state scripts reach services that are not script-accessible.
func WithUnsafeScripts(unsafe bool) Option {
	return func(m *StateMachine) {
		m.unsafe = unsafe
	}
}

// NewStateMachine creates a machine without a current state.
// services is handed to every script run; it is usually the session scope.
func NewStateMachine(assets AssetReader, host *scripting.Host, services scripting.ServiceProvider, opts ...Option) *StateMachine {
	m := &StateMachine{
		assets:     assets,
		host:       host,
		services:   services,
		initialKey: domain.DefaultInitialStateKey,
		finalKey:   domain.DefaultFinalStateKey,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CurrentState returns the current state, or nil before the first assignment.
func (m *StateMachine) CurrentState() *domain.State {
	return m.current
}

// CurrentStateKey returns the key of the current state, or "".
func (m *StateMachine) CurrentStateKey() string {
	if m.current == nil {
		return ""
	}
	return m.current.Key
}

// SetInitialState enters the initial state without leaving the current one.
func (m *StateMachine) SetInitialState(ctx context.Context) error {
	return m.SetCurrentState(ctx, m.initialKey, false)
}

// SetFinalState leaves the current state and enters the final one.
// The machine stays usable afterwards.
func (m *StateMachine) SetFinalState(ctx context.Context) error {
	return m.SetCurrentState(ctx, m.finalKey, true)
}

// SetCurrentState loads the state under key and makes it current.
// When leave is set and a current state exists, its leave script runs first.
// The new state stays current even if its enter script fails.
func (m *StateMachine) SetCurrentState(ctx context.Context, key string, leave bool) error {
	state, err := m.loadState(ctx, key)
	if err != nil {
		return err
	}

	if leave && m.current != nil {
		old := m.current
		if err := m.runStateScript(ctx, old.OnLeaveScriptKey, &domain.OnStateLeaveInput{State: old}); err != nil {
			return fmt.Errorf("failed to leave state %s: %w", old.Key, err)
		}
		m.emitState(ctx, domain.EventStateLeave, m.hooks.OnStateLeave, old.Key)
	}

	m.current = state
	m.logger.Debug("state entered", "session_id", m.sessionID, "state_key", state.Key)
	m.emitState(ctx, domain.EventStateEnter, m.hooks.OnStateEnter, state.Key)

	if err := m.runStateScript(ctx, state.OnEnterScriptKey, &domain.OnStateEnterInput{State: state}); err != nil {
		return fmt.Errorf("failed to enter state %s: %w", state.Key, err)
	}
	return nil
}

// ApplyTransition follows the transition with the given key out of the current state.
// Exactly one transition must carry the key.
func (m *StateMachine) ApplyTransition(ctx context.Context, key string) error {
	if m.current == nil {
		return domain.ErrNoCurrentState
	}

	matches := m.current.FindTransitions(key)
	if len(matches) != 1 {
		return fmt.Errorf("%w: %q in state %s (%d matches)", domain.ErrTransitionNotFound, key, m.current.Key, len(matches))
	}
	transition := matches[0]
	from := m.current.Key

	output, err := m.runTransitionScript(ctx, m.current, &transition)
	if err != nil {
		return fmt.Errorf("failed to run transition %s of state %s: %w", key, from, err)
	}

	next := transition.NextStateKey
	overridden := output.NextStateKeyOverride != ""
	if overridden {
		next = output.NextStateKeyOverride
		m.logger.Debug("transition redirected", "session_id", m.sessionID, "transition", key, "state_key", next)
	}

	if err := m.SetCurrentState(ctx, next, true); err != nil {
		return err
	}

	if m.hooks.OnTransition != nil {
		m.hooks.OnTransition(ctx, &domain.TransitionEvent{
			EventBase:     m.event(domain.EventTransition),
			FromStateKey:  from,
			TransitionKey: key,
			ToStateKey:    next,
			Overridden:    overridden,
		})
	}
	return nil
}

// LoadState reads and decodes a state without entering it.
func (m *StateMachine) LoadState(ctx context.Context, key string) (*domain.State, error) {
	return m.loadState(ctx, key)
}

func (m *StateMachine) loadState(ctx context.Context, key string) (*domain.State, error) {
	state, err := m.assets.StateAsset(ctx, key)
	switch {
	case err == nil:
		return state, nil
	case errors.Is(err, domain.ErrBadState):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrStateNotFound, key, err)
	}
}

func (m *StateMachine) runStateScript(ctx context.Context, scriptKey string, input any) error {
	if scriptKey == "" {
		return nil
	}
	script, err := m.compile(ctx, scriptKey, scripting.ShapeInput)
	if err != nil {
		return err
	}
	return m.host.RunWithInput(ctx, script, m.env(), input)
}

func (m *StateMachine) runTransitionScript(ctx context.Context, state *domain.State, transition *domain.Transition) (domain.OnTransitionOutput, error) {
	if state.OnTransitionScriptKey == "" {
		return domain.OnTransitionOutput{}, nil
	}
	script, err := m.compile(ctx, state.OnTransitionScriptKey, scripting.ShapeInputOutput)
	if err != nil {
		return domain.OnTransitionOutput{}, err
	}
	input := &domain.OnTransitionInput{State: state, Transition: transition}
	return scripting.RunWithOutput[domain.OnTransitionOutput](ctx, m.host, script, m.env(), input)
}

func (m *StateMachine) compile(ctx context.Context, scriptKey string, shape scripting.Shape) (*scripting.Script, error) {
	src, err := m.assets.ScriptAsset(ctx, scriptKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load script %s: %w", scriptKey, err)
	}
	return m.host.CompileCached(scriptKey, src, shape)
}

func (m *StateMachine) env() scripting.Env {
	return scripting.Env{
		SessionID: m.sessionID,
		Services:  m.services,
		Unsafe:    m.unsafe,
	}
}

func (m *StateMachine) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now(),
		Type:      t,
		SessionID: m.sessionID,
	}
}

func (m *StateMachine) emitState(ctx context.Context, t domain.EventType, hook func(context.Context, *domain.StateEvent), key string) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.StateEvent{EventBase: m.event(t), StateKey: key})
}
