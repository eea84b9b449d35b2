package runtime_test

import (
	"context"
	"testing"

	"github.com/aretw0/fable/internal/runtime"
	"github.com/aretw0/fable/internal/scripting"
	"github.com/aretw0/fable/pkg/adapters/memory"
	"github.com/aretw0/fable/pkg/assets"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/locale"
	"github.com/aretw0/fable/pkg/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	initialKey = domain.DefaultInitialStateKey
	finalKey   = domain.DefaultFinalStateKey
)

type services map[string]any

func (s services) Service(name string) (any, bool) {
	svc, ok := s[name]
	return svc, ok
}

const traceEnter = `
local v = services.get("vars")
v.set("trace", v.get("trace") .. "enter:" .. context.input.state.key .. ";")
`

const traceLeave = `
local v = services.get("vars")
v.set("trace", v.get("trace") .. "leave:" .. context.input.state.key .. ";")
`

const redirect = `
if context.input.transition.key == "jump" then
	output.next_state_key_override = "alt"
end
`

type fixture struct {
	machine *runtime.StateMachine
	vars    *vars.Manager
	hooks   *recorder
}

type recorder struct {
	entered     []string
	left        []string
	transitions []*domain.TransitionEvent
}

func (r *recorder) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateEnter: func(_ context.Context, e *domain.StateEvent) { r.entered = append(r.entered, e.StateKey) },
		OnStateLeave: func(_ context.Context, e *domain.StateEvent) { r.left = append(r.left, e.StateKey) },
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) { r.transitions = append(r.transitions, e) },
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	loader, err := memory.NewFromStates(
		domain.State{
			Key:              initialKey,
			OnEnterScriptKey: "trace.enter",
			OnLeaveScriptKey: "trace.leave",
			Transitions: []domain.Transition{
				{Key: "go", NextStateKey: "next"},
				{Key: "dup", NextStateKey: "next"},
				{Key: "dup", NextStateKey: finalKey},
			},
		},
		domain.State{
			Key:                   "next",
			OnEnterScriptKey:      "trace.enter",
			OnLeaveScriptKey:      "trace.leave",
			OnTransitionScriptKey: "redirect",
			Transitions: []domain.Transition{
				{Key: "end", NextStateKey: finalKey},
				{Key: "jump", NextStateKey: finalKey},
				{Key: "fail", NextStateKey: "broken"},
			},
		},
		domain.State{Key: "alt"},
		domain.State{Key: "broken", OnEnterScriptKey: "boom"},
		domain.State{Key: finalKey, OnEnterScriptKey: "trace.enter"},
	)
	require.NoError(t, err)
	loader.AddScript("trace.enter", traceEnter)
	loader.AddScript("trace.leave", traceLeave)
	loader.AddScript("redirect", redirect)
	loader.AddScript("boom", `error("boom")`)
	loader.AddText("text.x", domain.DefaultLocale, "not a state")
	loader.Add(domain.AssetDescriptor{Key: "malformed", AssetType: domain.AssetState, AssetPath: "states/malformed.json"},
		domain.DefaultLocale, []byte(`[1, 2, 3]`))

	vm := vars.NewManager()
	require.NoError(t, vm.Init("alice", vars.String("trace", "vars.trace", vars.WithValue(""))))
	lm := locale.NewManager(domain.DefaultLocale)
	am := assets.NewManager(assets.NewCatalog(loader), lm, vm)

	rec := &recorder{}
	svc := services{scripting.ServiceVars: vm, scripting.ServiceLocale: lm}
	m := runtime.NewStateMachine(am, scripting.NewHost(), svc,
		runtime.WithSessionID("s1"),
		runtime.WithLifecycleHooks(rec.hooks()),
	)
	return &fixture{machine: m, vars: vm, hooks: rec}
}

func (f *fixture) trace(t *testing.T) string {
	t.Helper()
	v, err := f.vars.GetVar("trace")
	require.NoError(t, err)
	return v.DisplayString()
}

func TestStateMachine_CurrentStateUnset(t *testing.T) {
	f := newFixture(t)
	assert.Nil(t, f.machine.CurrentState())
	assert.Empty(t, f.machine.CurrentStateKey())

	err := f.machine.ApplyTransition(context.Background(), "go")
	assert.ErrorIs(t, err, domain.ErrNoCurrentState)
}

func TestStateMachine_InitialNeverLeaves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.machine.SetInitialState(ctx))
	require.NoError(t, f.machine.SetInitialState(ctx))

	assert.Equal(t, initialKey, f.machine.CurrentStateKey())
	assert.Equal(t, "enter:"+initialKey+";enter:"+initialKey+";", f.trace(t))
	assert.Empty(t, f.hooks.left)
}

func TestStateMachine_FinalAlwaysLeaves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.machine.SetInitialState(ctx))
	require.NoError(t, f.machine.SetFinalState(ctx))

	assert.Equal(t, finalKey, f.machine.CurrentStateKey())
	assert.Equal(t, "enter:"+initialKey+";leave:"+initialKey+";enter:"+finalKey+";", f.trace(t))
	assert.Equal(t, []string{initialKey}, f.hooks.left)

	// The final state is not a terminal lock.
	require.NoError(t, f.machine.SetInitialState(ctx))
	assert.Equal(t, initialKey, f.machine.CurrentStateKey())
}

func TestStateMachine_ApplyTransition(t *testing.T) {
	tests := []struct {
		name       string
		path       []string
		want       string
		overridden bool
	}{
		{name: "next state key", path: []string{"go", "end"}, want: finalKey},
		{name: "script override", path: []string{"go", "jump"}, want: "alt", overridden: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			require.NoError(t, f.machine.SetInitialState(ctx))

			for _, key := range tt.path {
				require.NoError(t, f.machine.ApplyTransition(ctx, key))
			}
			assert.Equal(t, tt.want, f.machine.CurrentStateKey())

			require.Len(t, f.hooks.transitions, len(tt.path))
			last := f.hooks.transitions[len(tt.path)-1]
			assert.Equal(t, "next", last.FromStateKey)
			assert.Equal(t, tt.want, last.ToStateKey)
			assert.Equal(t, tt.overridden, last.Overridden)
		})
	}
}

func TestStateMachine_EndToEndOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.machine.SetInitialState(ctx))
	require.NoError(t, f.machine.ApplyTransition(ctx, "go"))
	require.NoError(t, f.machine.ApplyTransition(ctx, "end"))

	assert.Equal(t, finalKey, f.machine.CurrentStateKey())
	assert.Equal(t,
		"enter:"+initialKey+";leave:"+initialKey+";enter:next;leave:next;enter:"+finalKey+";",
		f.trace(t))
	assert.Equal(t, []string{initialKey, "next", finalKey}, f.hooks.entered)
	assert.Equal(t, []string{initialKey, "next"}, f.hooks.left)
}

func TestStateMachine_TransitionNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.machine.SetInitialState(ctx))

	for _, key := range []string{"missing", "dup"} {
		t.Run(key, func(t *testing.T) {
			err := f.machine.ApplyTransition(ctx, key)
			assert.ErrorIs(t, err, domain.ErrTransitionNotFound)
			assert.Equal(t, initialKey, f.machine.CurrentStateKey())
		})
	}
}

func TestStateMachine_LoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr []error
	}{
		{name: "missing", key: "nowhere", wantErr: []error{domain.ErrStateNotFound, domain.ErrAssetNotFound}},
		{name: "wrong asset type", key: "text.x", wantErr: []error{domain.ErrStateNotFound, domain.ErrInvalidAssetType}},
		{name: "malformed", key: "malformed", wantErr: []error{domain.ErrBadState}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			require.NoError(t, f.machine.SetInitialState(ctx))

			err := f.machine.SetCurrentState(ctx, tt.key, true)
			for _, want := range tt.wantErr {
				assert.ErrorIs(t, err, want)
			}
			// Nothing changes when the target cannot be loaded.
			assert.Equal(t, initialKey, f.machine.CurrentStateKey())
			assert.Equal(t, "enter:"+initialKey+";", f.trace(t))
		})
	}
}

func TestStateMachine_FailedEnterKeepsState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.machine.SetInitialState(ctx))
	require.NoError(t, f.machine.ApplyTransition(ctx, "go"))

	err := f.machine.ApplyTransition(ctx, "fail")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRuntimeScript)
	assert.Equal(t, "broken", f.machine.CurrentStateKey())
}

func TestStateMachine_NoScripts(t *testing.T) {
	loader, err := memory.NewFromStates(
		domain.State{Key: "a", Transitions: []domain.Transition{{Key: "t", NextStateKey: "b"}}},
		domain.State{Key: "b"},
	)
	require.NoError(t, err)

	lm := locale.NewManager(domain.DefaultLocale)
	vm := vars.NewManager()
	am := assets.NewManager(assets.NewCatalog(loader), lm, vm)
	m := runtime.NewStateMachine(am, scripting.NewHost(), services{}, runtime.WithStateKeys("a", "b"))

	ctx := context.Background()
	require.NoError(t, m.SetInitialState(ctx))
	require.NoError(t, m.ApplyTransition(ctx, "t"))
	assert.Equal(t, "b", m.CurrentStateKey())

	require.NoError(t, m.SetFinalState(ctx))
	assert.Equal(t, "b", m.CurrentStateKey())
}
