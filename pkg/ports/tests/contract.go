package tests

import (
	"context"
	"testing"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssetSourceContractTest is a reusable test suite that verifies if an adapter complies with ports.AssetSource.
// The source must be seeded with the descriptors and data of ContractFixture.
func AssetSourceContractTest(t *testing.T, source ports.AssetSource) {
	t.Helper()
	ctx := context.Background()

	t.Run("Descriptors", func(t *testing.T) {
		descriptors, err := source.Descriptors(ctx)
		require.NoError(t, err)

		byKey := make(map[string]domain.AssetDescriptor)
		for _, d := range descriptors {
			byKey[d.Key] = d
		}
		for _, want := range ContractDescriptors {
			got, ok := byKey[want.Key]
			require.True(t, ok, "missing descriptor %s", want.Key)
			assert.Equal(t, want.AssetType, got.AssetType)
			assert.Equal(t, want.AssetPath, got.AssetPath)
		}
	})

	t.Run("ReadData_Success", func(t *testing.T) {
		for locale, files := range ContractData {
			for path, want := range files {
				got, err := source.ReadData(ctx, locale, path)
				require.NoError(t, err, "reading %s/%s", locale, path)
				assert.Equal(t, want, string(got))
			}
		}
	})

	t.Run("ReadData_NotFound", func(t *testing.T) {
		_, err := source.ReadData(ctx, "default", "missing/file.txt")
		assert.ErrorIs(t, err, domain.ErrAssetNotFound)

		_, err = source.ReadData(ctx, "xx", "texts/hello.txt")
		assert.ErrorIs(t, err, domain.ErrAssetNotFound)
	})
}

// ContractDescriptors are the descriptors expected by AssetSourceContractTest.
var ContractDescriptors = []domain.AssetDescriptor{
	{Key: "text.hello", AssetType: domain.AssetText, AssetPath: "texts/hello.txt", MediaType: "text/plain"},
	{Key: "state.start", AssetType: domain.AssetState, AssetPath: "states/start.json", MediaType: "application/json"},
}

// ContractData is the locale -> path -> content layout expected by AssetSourceContractTest.
var ContractData = map[string]map[string]string{
	"default": {
		"texts/hello.txt":   "Hello",
		"states/start.json": `{"key":"start","transitions":[]}`,
	},
	"pt-BR": {
		"texts/hello.txt": "Olá",
	},
}
