package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/fable/pkg/adapters/file"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Store implements SaveStore
var _ ports.SaveStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunSaveStoreContract(t, file.NewStore(t.TempDir()))
}

func TestFileStore_Disk(t *testing.T) {
	dir := t.TempDir()
	store := file.NewStore(dir)
	ctx := context.Background()

	t.Run("WritesReadableJSON", func(t *testing.T) {
		save := &domain.SaveGame{UserName: "alice", CurrentStateKey: "start"}
		require.NoError(t, store.Save(ctx, "slot-1", save))

		data, err := os.ReadFile(filepath.Join(dir, "slot-1.json"))
		require.NoError(t, err)
		assert.Contains(t, string(data), `"current_state_key": "start"`)
	})

	t.Run("ListIgnoresGarbage", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.txt"), []byte("garbage"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp-slot-1-123.json"), []byte("{}"), 0644))

		list, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"slot-1"}, list)
	})

	t.Run("RejectsBadSlots", func(t *testing.T) {
		for _, slot := range []string{"", "..", "a/b", `a\b`} {
			assert.Error(t, store.Save(ctx, slot, &domain.SaveGame{}), "slot %q", slot)
		}
	})

	t.Run("ListMissingDir", func(t *testing.T) {
		list, err := file.NewStore(filepath.Join(dir, "nope")).List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
