package fable_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/fable"
	"github.com/aretw0/fable/pkg/adapters/memory"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	initialKey = domain.DefaultInitialStateKey
	finalKey   = domain.DefaultFinalStateKey
)

func newStory(t *testing.T) *memory.Loader {
	t.Helper()
	loader, err := memory.NewFromStates(
		domain.State{
			Key:              initialKey,
			TextAssetKey:     "text.welcome",
			OnEnterScriptKey: "seed",
			Transitions:      []domain.Transition{{Key: "go", NextStateKey: "next"}},
		},
		domain.State{
			Key:                   "next",
			OnEnterScriptKey:      "reward",
			OnTransitionScriptKey: "detour",
			Transitions: []domain.Transition{
				{Key: "end", NextStateKey: finalKey},
				{Key: "secret", NextStateKey: finalKey},
			},
		},
		domain.State{Key: "hidden"},
		domain.State{Key: finalKey},
	)
	require.NoError(t, err)

	loader.AddScript("seed", `
		local v = services.get("vars")
		if not v.has("gold") then
			v.add({type = "int", key = "gold", name_key = "vars.gold", value = 0, min = 0, max = 100})
			v.add({type = "double", key = "luck", name_key = "vars.luck", value = 0.5})
			v.add({type = "bool", key = "brave", name_key = "vars.brave", value = true})
		end
	`)
	loader.AddScript("reward", `
		local v = services.get("vars")
		v.set("gold", v.get("gold") + 10)
	`)
	loader.AddScript("detour", `
		if context.input.transition.key == "secret" then
			output.next_state_key_override = "hidden"
		end
	`)
	loader.AddText("text.welcome", domain.DefaultLocale, "Welcome {var=common.userName}, you have {var=gold} gold.")
	loader.AddText("text.welcome", "pt-BR", "Bem-vindo {var=common.userName}.")
	return loader
}

func newEngine(t *testing.T, opts ...fable.Option) *fable.Engine {
	t.Helper()
	eng, err := fable.New(newStory(t), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestNew_RequiresSource(t *testing.T) {
	_, err := fable.New(nil)
	assert.Error(t, err)
}

func TestEngine_EndToEnd(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	assert.Nil(t, eng.CurrentState(ctx, "s1"))

	require.NoError(t, eng.StartGame(ctx, "s1", "alice"))
	assert.Equal(t, initialKey, eng.CurrentState(ctx, "s1").Key)

	require.NoError(t, eng.Transition(ctx, "s1", "go"))
	assert.Equal(t, "next", eng.CurrentState(ctx, "s1").Key)

	require.NoError(t, eng.Transition(ctx, "s1", "end"))
	assert.Equal(t, finalKey, eng.CurrentState(ctx, "s1").Key)
}

func TestEngine_TransitionOverride(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.StartGame(ctx, "s1", "alice"))
	require.NoError(t, eng.Transition(ctx, "s1", "go"))
	require.NoError(t, eng.Transition(ctx, "s1", "secret"))
	assert.Equal(t, "hidden", eng.CurrentState(ctx, "s1").Key)
}

func TestEngine_Errors(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	err := eng.Transition(ctx, "s1", "go")
	assert.ErrorIs(t, err, domain.ErrNoCurrentState)

	err = eng.StartGame(ctx, "s1", "bad name!")
	assert.ErrorIs(t, err, domain.ErrBadUserName)

	require.NoError(t, eng.StartGame(ctx, "s1", "alice"))
	err = eng.Transition(ctx, "s1", "nope")
	assert.ErrorIs(t, err, domain.ErrTransitionNotFound)
}

func TestEngine_ExitGame(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.StartGame(ctx, "s1", "alice"))
	require.NoError(t, eng.ExitGame(ctx, "s1"))
	assert.Equal(t, finalKey, eng.CurrentState(ctx, "s1").Key)
}

func TestEngine_SessionsAreIsolated(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.StartGame(ctx, "a", "alice"))
	require.NoError(t, eng.StartGame(ctx, "b", "bob"))
	require.NoError(t, eng.Transition(ctx, "a", "go"))

	assert.Equal(t, "next", eng.CurrentState(ctx, "a").Key)
	assert.Equal(t, initialKey, eng.CurrentState(ctx, "b").Key)
}

func TestEngine_RenderText(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()
	require.NoError(t, eng.StartGame(ctx, "s1", "alice"))

	text, err := eng.RenderText(ctx, "s1", "text.welcome")
	require.NoError(t, err)
	assert.Equal(t,
		`Welcome <span class="var-value">alice</span>, you have <span class="var-value">0</span> gold.`,
		text)

	require.NoError(t, eng.SetLocale(ctx, "s1", "pt-BR"))
	text, err = eng.RenderText(ctx, "s1", "text.welcome")
	require.NoError(t, err)
	assert.Equal(t, `Bem-vindo <span class="var-value">alice</span>.`, text)

	_, err = eng.RenderText(ctx, "s1", "text.missing")
	assert.ErrorIs(t, err, domain.ErrAssetNotFound)
}

func TestEngine_SaveAndLoad(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	_, err := eng.SaveGame(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNoCurrentState)

	require.NoError(t, eng.StartGame(ctx, "s1", "alice"))
	require.NoError(t, eng.Transition(ctx, "s1", "go"))

	data, err := eng.SaveGame(ctx, "s1")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(data)
	require.NoError(t, err)
	var doc domain.SaveGame
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "alice", doc.UserName)
	assert.Equal(t, "next", doc.CurrentStateKey)
	require.Len(t, doc.VarsInfo, 3)
	assert.Equal(t, "gold", doc.VarsInfo[0].Key)
	assert.Equal(t, domain.VarTypeInt, doc.VarsInfo[0].Type)
	assert.Equal(t, []any{float64(0), float64(100)}, doc.VarsInfo[0].Parameters)

	// Loading enters the saved state without leaving, so "reward" runs once more.
	require.NoError(t, eng.LoadGame(ctx, "s2", data))
	state := eng.CurrentState(ctx, "s2")
	require.NotNil(t, state)
	assert.Equal(t, "next", state.Key)

	text, err := eng.RenderText(ctx, "s2", "text.welcome")
	require.NoError(t, err)
	assert.Contains(t, text, `<span class="var-value">alice</span>`)
	assert.Contains(t, text, `<span class="var-value">20</span>`)

	again, err := eng.SaveGame(ctx, "s2")
	require.NoError(t, err)
	raw, err = base64.StdEncoding.DecodeString(again)
	require.NoError(t, err)
	var restored domain.SaveGame
	require.NoError(t, json.Unmarshal(raw, &restored))
	assert.Equal(t, domain.VarTypeDouble, restored.VarsInfo[1].Type)
	assert.Equal(t, 0.5, restored.VarsInfo[1].Value)
	assert.Equal(t, true, restored.VarsInfo[2].Value)
}

func TestEngine_LoadGameRejectsGarbage(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	tests := map[string]string{
		"not base64":   "%%%",
		"not json":     base64.StdEncoding.EncodeToString([]byte("nope")),
		"bad var type": base64.StdEncoding.EncodeToString([]byte(`{"user_name":"a","current_state_key":"next","vars_info":[{"type":"complex","key":"x"}]}`)),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			err := eng.LoadGame(ctx, "s1", data)
			assert.ErrorIs(t, err, domain.ErrBadSaveGame)
		})
	}
}

func TestEngine_LoadGameFailureKeepsSession(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.StartGame(ctx, "s1", "alice"))
	require.NoError(t, eng.Transition(ctx, "s1", "go"))
	before, err := eng.SaveGame(ctx, "s1")
	require.NoError(t, err)

	encode := func(doc string) string { return base64.StdEncoding.EncodeToString([]byte(doc)) }
	tests := []struct {
		name string
		data string
		want error
	}{
		{
			name: "duplicate var",
			data: encode(`{"user_name":"mallory","current_state_key":"next","vars_info":[
				{"type":"bool","key":"k","name_asset_key":"vars.k","value":true},
				{"type":"bool","key":"k","name_asset_key":"vars.k","value":false}]}`),
			want: domain.ErrBadSaveGame,
		},
		{
			name: "missing state",
			data: encode(`{"user_name":"mallory","current_state_key":"nowhere","vars_info":[]}`),
			want: domain.ErrStateNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eng.LoadGame(ctx, "s1", tt.data)
			assert.ErrorIs(t, err, tt.want)

			after, err := eng.SaveGame(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, before, after)
			assert.Equal(t, "next", eng.CurrentState(ctx, "s1").Key)
		})
	}
}

func TestEngine_PersistRestore(t *testing.T) {
	store := memory.NewStore()
	eng := newEngine(t, fable.WithSaveStore(store))
	ctx := context.Background()

	require.NoError(t, eng.StartGame(ctx, "s1", "alice"))
	require.NoError(t, eng.Transition(ctx, "s1", "go"))
	require.NoError(t, eng.Persist(ctx, "s1", "slot-1"))

	slots, err := eng.Slots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"slot-1"}, slots)

	require.NoError(t, eng.Restore(ctx, "s2", "slot-1"))
	assert.Equal(t, "next", eng.CurrentState(ctx, "s2").Key)

	err = eng.Restore(ctx, "s3", "missing")
	assert.ErrorIs(t, err, domain.ErrSaveNotFound)

	require.NoError(t, eng.DeleteSlot(ctx, "slot-1"))
	slots, err = eng.Slots(ctx)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestEngine_SessionExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	eng := newEngine(t, fable.WithClock(clock), fable.WithSweep(time.Hour, time.Minute))
	ctx := context.Background()

	require.NoError(t, eng.StartGame(ctx, "s1", "alice"))
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, eng.Sessions().Sweep(ctx))
	assert.Nil(t, eng.CurrentState(ctx, "s1"))
}

func TestEngine_Hooks(t *testing.T) {
	var scripts, created int
	eng := newEngine(t, fable.WithLifecycleHooks(domain.LifecycleHooks{
		OnScriptRun:      func(context.Context, *domain.ScriptEvent) { scripts++ },
		OnSessionCreated: func(context.Context, *domain.SessionEvent) { created++ },
	}))
	ctx := context.Background()

	require.NoError(t, eng.StartGame(ctx, "s1", "alice"))
	require.NoError(t, eng.Transition(ctx, "s1", "go"))

	assert.Equal(t, 1, created)
	// seed on the initial state, reward on "next". The initial state has no transition script.
	assert.Equal(t, 2, scripts)
}
