package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aretw0/fable"
	"github.com/aretw0/fable/pkg/adapters/memory"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlayEngine(t *testing.T) *fable.Engine {
	t.Helper()
	loader, err := memory.NewFromStates(
		domain.State{
			Key:          domain.DefaultInitialStateKey,
			TextAssetKey: "text.gate",
			Transitions: []domain.Transition{
				{Key: "enter", TextAssetKey: "text.enter", NextStateKey: "hall", IsEnabled: true, IsVisible: true},
				{Key: "secret", NextStateKey: "hall"},
			},
		},
		domain.State{
			Key: "hall",
			Transitions: []domain.Transition{
				{Key: "leave", NextStateKey: domain.DefaultFinalStateKey, IsEnabled: true, IsVisible: true},
			},
		},
		domain.State{Key: domain.DefaultFinalStateKey, TextAssetKey: "text.end"},
	)
	require.NoError(t, err)
	loader.AddText("text.gate", domain.DefaultLocale, "A gate, {var=common.userName} &amp; friends.")
	loader.AddText("text.enter", domain.DefaultLocale, "Walk in")
	loader.AddText("text.end", domain.DefaultLocale, "The end.")

	eng, err := fable.New(loader)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func play(t *testing.T, eng *fable.Engine, input string, mod ...func(*PlayOptions)) (string, error) {
	t.Helper()
	var out bytes.Buffer
	opts := PlayOptions{
		SessionID: "cli",
		UserName:  "alice",
		In:        strings.NewReader(input),
		Out:       &out,
	}
	for _, m := range mod {
		m(&opts)
	}
	err := Play(context.Background(), eng, opts)
	return out.String(), err
}

func TestPlay_ReachesFinalState(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"By key", "enter\nleave\n"},
		{"By index", "1\n1\n"},
		{"Hidden key", "secret\nleave\n"},
		{"Blank lines ignored", "\n\nenter\n\nleave\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newPlayEngine(t)
			out, err := play(t, eng, tt.input)
			require.NoError(t, err)
			assert.Contains(t, out, "A gate, alice & friends.")
			assert.Contains(t, out, "1. [enter] Walk in")
			assert.NotContains(t, out, "[secret]")
			assert.Contains(t, out, "The end.")
			assert.Contains(t, out, "Finished at '"+domain.DefaultFinalStateKey+"'")
		})
	}
}

func TestPlay_RecoverableErrors(t *testing.T) {
	eng := newPlayEngine(t)
	out, err := play(t, eng, "nowhere\n7\nload missing\nenter\nleave\n")
	require.NoError(t, err)
	assert.Contains(t, out, "transition not found")
	assert.Contains(t, out, "save not found")
	assert.Contains(t, out, "Finished")
}

func TestPlay_EndOfInput(t *testing.T) {
	eng := newPlayEngine(t)
	_, err := play(t, eng, "enter\n")
	assert.NoError(t, HandleExecutionError(err))
	assert.Equal(t, "hall", eng.CurrentState(context.Background(), "cli").Key)
}

func TestPlay_Exit(t *testing.T) {
	eng := newPlayEngine(t)
	out, err := play(t, eng, "exit\n")
	require.NoError(t, err)
	assert.Contains(t, out, "The end.")
	assert.Contains(t, out, "Exited at")
}

func TestPlay_SaveAndResume(t *testing.T) {
	eng := newPlayEngine(t)

	out, err := play(t, eng, "enter\nsave slot1\nslots\n")
	require.NoError(t, HandleExecutionError(err))
	assert.Contains(t, out, "Saved to slot 'slot1'")
	assert.Contains(t, out, "slot1\n")

	_, err = play(t, eng, "leave\n", func(o *PlayOptions) {
		o.SessionID = "other"
		o.Resume = "slot1"
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultFinalStateKey, eng.CurrentState(context.Background(), "other").Key)
}

func TestPlay_ExportImport(t *testing.T) {
	eng := newPlayEngine(t)
	ctx := context.Background()

	_, err := play(t, eng, "enter\n")
	require.NoError(t, HandleExecutionError(err))
	data, err := eng.SaveGame(ctx, "cli")
	require.NoError(t, err)

	out, err := play(t, eng, "import "+data+"\nleave\n", func(o *PlayOptions) { o.SessionID = "copy" })
	require.NoError(t, err)
	assert.Contains(t, out, "Finished")

	out, err = play(t, eng, "import garbage\nexit\n", func(o *PlayOptions) { o.SessionID = "bad" })
	require.NoError(t, err)
	assert.Contains(t, out, "bad save game")
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Hi Bob & co", plainText(`Hi <span class="var-value">Bob</span> &amp; co`))
}

func TestPlay_CustomRenderer(t *testing.T) {
	eng := newPlayEngine(t)
	out, err := play(t, eng, "exit\n", func(o *PlayOptions) {
		o.Render = func(s string) (string, error) { return strings.ToUpper(s), nil }
	})
	require.NoError(t, err)
	assert.Contains(t, out, "A GATE, ALICE & FRIENDS.")
	assert.Contains(t, out, "THE END.")
}
