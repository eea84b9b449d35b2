package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aretw0/fable/pkg/domain"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
)

const (
	descriptorsPrefix = "descriptors/"
	dataPrefix        = "data/"
	savesPrefix       = "saves/"
)

// Loader implements ports.AssetSource over a bucket.
type Loader struct {
	bucket *blob.Bucket
}

// OpenLoader opens the bucket at bucketURL, e.g. "file:///srv/story" or "mem://".
func OpenLoader(ctx context.Context, bucketURL string) (*Loader, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket: %w", err)
	}
	return &Loader{bucket: bucket}, nil
}

// NewLoader wraps an already opened bucket. The caller keeps ownership of it.
func NewLoader(bucket *blob.Bucket) *Loader {
	return &Loader{bucket: bucket}
}

// Descriptors lists every JSON object under descriptors/.
func (l *Loader) Descriptors(ctx context.Context) ([]domain.AssetDescriptor, error) {
	var out []domain.AssetDescriptor
	seen := make(map[string]string)

	iter := l.bucket.List(&blob.ListOptions{Prefix: descriptorsPrefix})
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list descriptors: %w", err)
		}
		if obj.IsDir || path.Ext(obj.Key) != ".json" {
			continue
		}

		data, err := l.bucket.ReadAll(ctx, obj.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to read descriptor %s: %w", obj.Key, err)
		}
		var desc domain.AssetDescriptor
		if err := json.Unmarshal(data, &desc); err != nil {
			return nil, fmt.Errorf("failed to decode descriptor %s: %w", obj.Key, err)
		}
		if desc.Key == "" {
			return nil, fmt.Errorf("descriptor %s has no key", obj.Key)
		}
		if prev, dup := seen[desc.Key]; dup {
			return nil, fmt.Errorf("duplicate descriptor key %s in %s and %s", desc.Key, prev, obj.Key)
		}
		seen[desc.Key] = obj.Key
		out = append(out, desc)
	}
	return out, nil
}

// ReadData reads data/<locale>/<path>.
func (l *Loader) ReadData(ctx context.Context, locale, assetPath string) ([]byte, error) {
	key := dataPrefix + locale + "/" + strings.TrimPrefix(path.Clean("/"+assetPath), "/")
	data, err := l.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrAssetNotFound, locale, assetPath)
		}
		return nil, fmt.Errorf("failed to read asset %s: %w", key, err)
	}
	return data, nil
}

// Close closes the underlying bucket.
func (l *Loader) Close() error {
	return l.bucket.Close()
}
