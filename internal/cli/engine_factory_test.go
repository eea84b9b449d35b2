package cli

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/fable/internal/config"
	"github.com/aretw0/fable/internal/logging"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"Memory", func(c *config.Config) { c.Store.Kind = config.StoreMemory }, false},
		{"File", func(c *config.Config) { c.Store.Kind = config.StoreFile; c.Store.Path = t.TempDir() }, false},
		{"Blob", func(c *config.Config) { c.Store.Kind = config.StoreBlob; c.Store.Path = "mem://" }, false},
		{"Encrypted", func(c *config.Config) {
			c.Store.Kind = config.StoreMemory
			c.EncryptionKey = hex.EncodeToString([]byte(strings.Repeat("k", 32)))
		}, false},
		{"Unknown", func(c *config.Config) { c.Store.Kind = "tape" }, true},
		{"Bad key", func(c *config.Config) { c.Store.Kind = config.StoreMemory; c.EncryptionKey = "zz" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)

			store, closer, err := OpenStore(ctx, &cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if closer != nil {
				t.Cleanup(func() { _ = closer.Close() })
			}
			ports.RunSaveStoreContract(t, store)
		})
	}
}

func TestNewEngine_FromDirectory(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write("descriptors/start.json", `{"key": "start", "asset_type": "state", "asset_path": "states/start.json"}`)
	write("descriptors/end.json", `{"key": "end", "asset_type": "state", "asset_path": "states/end.json"}`)
	write("data/default/states/start.json", `{"key": "start", "transitions": [{"key": "go", "next_state_key": "end", "is_enabled": true, "is_visible": true}]}`)
	write("data/default/states/end.json", `{"key": "end"}`)

	cfg := config.Default()
	cfg.Assets = dir
	cfg.InitialState = "start"
	cfg.FinalState = "end"

	ctx := context.Background()
	eng, closer, err := NewEngine(ctx, &cfg, logging.NewNop(), domain.LifecycleHooks{})
	require.NoError(t, err)
	defer closer.Close()

	require.NoError(t, eng.StartGame(ctx, "s", "bob"))
	require.NoError(t, eng.Transition(ctx, "s", "go"))
	assert.Equal(t, "end", eng.CurrentState(ctx, "s").Key)
}
