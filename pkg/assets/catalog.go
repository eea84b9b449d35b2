package assets

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
)

// Catalog caches the descriptors of an asset source.
// Safe for concurrent use.
type Catalog struct {
	source ports.AssetSource

	mu          sync.RWMutex
	descriptors map[string]domain.AssetDescriptor
}

// NewCatalog creates a catalog. Descriptors are loaded on first use.
func NewCatalog(source ports.AssetSource) *Catalog {
	return &Catalog{source: source}
}

// Source returns the underlying asset source.
func (c *Catalog) Source() ports.AssetSource {
	return c.source
}

// Reload replaces the cached descriptors with a fresh listing.
func (c *Catalog) Reload(ctx context.Context) error {
	list, err := c.source.Descriptors(ctx)
	if err != nil {
		return fmt.Errorf("failed to load asset descriptors: %w", err)
	}

	descriptors := make(map[string]domain.AssetDescriptor, len(list))
	for _, d := range list {
		descriptors[d.Key] = d
	}

	c.mu.Lock()
	c.descriptors = descriptors
	c.mu.Unlock()
	return nil
}

// Descriptor returns the descriptor of key, loading the catalog if needed.
func (c *Catalog) Descriptor(ctx context.Context, key string) (domain.AssetDescriptor, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return domain.AssetDescriptor{}, err
	}

	c.mu.RLock()
	d, ok := c.descriptors[key]
	c.mu.RUnlock()
	if !ok {
		return domain.AssetDescriptor{}, fmt.Errorf("%w: descriptor %s", domain.ErrAssetNotFound, key)
	}
	return d, nil
}

// Keys returns the keys of every descriptor of the given type.
func (c *Catalog) Keys(ctx context.Context, t domain.AssetType) ([]string, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	var keys []string
	for k, d := range c.descriptors {
		if d.AssetType == t {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (c *Catalog) ensureLoaded(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.descriptors != nil
	c.mu.RUnlock()
	if loaded {
		return nil
	}
	return c.Reload(ctx)
}
