package ports

import (
	"context"

	"github.com/aretw0/fable/pkg/domain"
)

// AssetSource is the raw storage behind the assets manager.
// It performs no locale fallback; that policy belongs to the manager.
type AssetSource interface {
	// Descriptors returns every asset descriptor known to the source.
	Descriptors(ctx context.Context) ([]domain.AssetDescriptor, error)

	// ReadData returns the bytes stored for a locale at a descriptor path.
	// Returns domain.ErrAssetNotFound if nothing is stored there.
	ReadData(ctx context.Context, locale, path string) ([]byte, error)
}
