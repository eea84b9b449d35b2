package assets_test

import (
	"context"
	"testing"

	"github.com/aretw0/fable/pkg/adapters/memory"
	"github.com/aretw0/fable/pkg/assets"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/locale"
	"github.com/aretw0/fable/pkg/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T) (*assets.Manager, *locale.Manager, *vars.Manager) {
	t.Helper()

	loader := memory.NewLoader(
		[]domain.AssetDescriptor{
			{Key: "text.greeting", AssetType: domain.AssetText, AssetPath: "texts/greeting.txt"},
			{Key: "img.logo", AssetType: domain.AssetImage, AssetPath: "img/logo.png", MediaType: "image/png"},
			{Key: "state.ok", AssetType: domain.AssetState, AssetPath: "states/ok.json"},
			{Key: "state.broken", AssetType: domain.AssetState, AssetPath: "states/broken.json"},
			{Key: "state.nokey", AssetType: domain.AssetState, AssetPath: "states/nokey.json"},
			{Key: "state.missing", AssetType: domain.AssetState, AssetPath: "states/missing.json"},
			{Key: "script.hello", AssetType: domain.AssetScript, AssetPath: "scripts/hello.lua"},
		},
		map[string]map[string]string{
			"default": {
				"texts/greeting.txt": "Hello {var=common.userName}, you have {var=gold} gold and {var=ghost}.",
				"img/logo.png":       "\x89PNG",
				"states/ok.json":     `{"key":"ok","transitions":[{"key":"go","next_state_key":"next"}]}`,
				"states/broken.json": `{"key":`,
				"states/nokey.json":  `{"transitions":[]}`,
				"scripts/hello.lua":  `log.info("hi")`,
			},
			"pt-BR": {
				"texts/greeting.txt": "Olá {var=common.userName}",
			},
		},
	)

	loc := locale.NewManager("")
	vm := vars.NewManager()
	require.NoError(t, vm.Init("alice", vars.Int("gold", "vars.gold", vars.WithValue(3))))

	return assets.NewManager(assets.NewCatalog(loader), loc, vm), loc, vm
}

func TestManager_TextAsset(t *testing.T) {
	m, loc, _ := newFixture(t)
	ctx := context.Background()

	text, err := m.TextAsset(ctx, "text.greeting")
	require.NoError(t, err)
	assert.Equal(t,
		`Hello <span class="var-value">alice</span>, you have <span class="var-value">3</span> gold and VAR NOT FOUND ghost.`,
		text)

	require.NoError(t, loc.SetLocale("pt-BR"))
	text, err = m.TextAsset(ctx, "text.greeting")
	require.NoError(t, err)
	assert.Equal(t, `Olá <span class="var-value">alice</span>`, text)
}

func TestManager_LocaleFallback(t *testing.T) {
	m, loc, _ := newFixture(t)
	require.NoError(t, loc.SetLocale("fr"))

	src, err := m.ScriptAsset(context.Background(), "script.hello")
	require.NoError(t, err)
	assert.Equal(t, `log.info("hi")`, src)
}

func TestManager_TypeChecks(t *testing.T) {
	m, _, _ := newFixture(t)
	ctx := context.Background()

	_, err := m.ScriptAsset(ctx, "text.greeting")
	assert.ErrorIs(t, err, domain.ErrInvalidAssetType)

	var typeErr *domain.AssetTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, domain.AssetScript, typeErr.Expected)
	assert.Equal(t, domain.AssetText, typeErr.Actual)

	_, err = m.TextAsset(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrAssetNotFound)
}

func TestManager_ImageAsset(t *testing.T) {
	m, _, _ := newFixture(t)

	img, err := m.ImageAsset(context.Background(), "img.logo")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.Descriptor.MediaType)
	assert.Equal(t, []byte("\x89PNG"), img.Data)
}

func TestManager_StateAsset(t *testing.T) {
	m, _, _ := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		key  string
		err  error
	}{
		{"valid", "state.ok", nil},
		{"truncated json", "state.broken", domain.ErrBadState},
		{"missing key field", "state.nokey", domain.ErrBadState},
		{"missing data", "state.missing", domain.ErrAssetNotFound},
		{"unknown descriptor", "state.unknown", domain.ErrAssetNotFound},
		{"wrong type", "text.greeting", domain.ErrInvalidAssetType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := m.StateAsset(ctx, tt.key)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok", state.Key)
			require.Len(t, state.Transitions, 1)
			assert.True(t, state.Transitions[0].IsVisible)
		})
	}
}

func TestManager_SubstituteEscapes(t *testing.T) {
	m, _, vm := newFixture(t)
	require.NoError(t, vm.AddVar(vars.String("motto", "vars.motto", vars.WithValue("<b>bold</b>"))))

	assert.Equal(t,
		`<span class="var-value">&lt;b&gt;bold&lt;/b&gt;</span>`,
		m.Substitute("{var=motto}"))
	assert.Equal(t, "{var=bad key}", m.Substitute("{var=bad key}"))
}

func TestCatalog_Keys(t *testing.T) {
	loader, err := memory.NewFromStates(domain.State{Key: "a"}, domain.State{Key: "b"})
	require.NoError(t, err)
	loader.AddScript("s", "")

	keys, err := assets.NewCatalog(loader).Keys(context.Background(), domain.AssetState)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
}
