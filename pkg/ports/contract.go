package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSaveStoreContract runs a suite of tests to verify that a SaveStore implementation
// adheres to the defined interface contract.
func RunSaveStoreContract(t *testing.T, store SaveStore) {
	ctx := context.Background()
	slot := "contract-test-slot-" + time.Now().Format("20060102150405")

	newSave := func(stateKey string) *domain.SaveGame {
		return &domain.SaveGame{
			UserName:        "alice",
			CurrentStateKey: stateKey,
			VarsInfo: []domain.VarInfo{
				{Type: domain.VarTypeInt, Key: "gold", NameAssetKey: "vars.gold", Value: 42, Parameters: []any{0, 100}},
				{Type: domain.VarTypeBool, Key: "met_king", NameAssetKey: "vars.met_king", Value: true},
			},
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		err := store.Save(ctx, slot, newSave("cave"))
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, slot)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "alice", loaded.UserName)
		assert.Equal(t, "cave", loaded.CurrentStateKey)
		require.Len(t, loaded.VarsInfo, 2)
		assert.Equal(t, "gold", loaded.VarsInfo[0].Key)
		assert.Equal(t, domain.VarTypeBool, loaded.VarsInfo[1].Type)
		// Serializing stores may turn ints into float64, only check presence.
		assert.NotNil(t, loaded.VarsInfo[0].Value)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, slot, newSave("forest")))

		loaded, err := store.Load(ctx, slot)
		require.NoError(t, err)
		assert.Equal(t, "forest", loaded.CurrentStateKey)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+slot)
		assert.ErrorIs(t, err, domain.ErrSaveNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, slot, newSave("cave")))

		err := store.Delete(ctx, slot)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, slot)
		assert.ErrorIs(t, err, domain.ErrSaveNotFound, "Load after Delete should return ErrSaveNotFound")

		assert.NoError(t, store.Delete(ctx, slot), "Deleting twice should not fail")
	})

	t.Run("List", func(t *testing.T) {
		id1 := slot + "-1"
		id2 := slot + "-2"
		_ = store.Save(ctx, id1, newSave("a"))
		_ = store.Save(ctx, id2, newSave("b"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		slots, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, slots, id1)
		assert.Contains(t, slots, id2)
	})
}
