package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aretw0/fable/pkg/domain"
)

// Directory names of the asset layout.
const (
	DescriptorsDir = "descriptors"
	DataDir        = "data"
)

// Loader implements ports.AssetSource over a directory:
//
//	<root>/descriptors/**/*.json   one AssetDescriptor per file
//	<root>/data/<locale>/<path>    asset data per locale
type Loader struct {
	root fs.FS
}

// NewLoader creates a Loader rooted at dir.
func NewLoader(dir string) *Loader {
	return NewLoaderFS(os.DirFS(dir))
}

// NewLoaderFS creates a Loader over any fs.FS, e.g. an embed.FS or fstest.MapFS.
func NewLoaderFS(root fs.FS) *Loader {
	return &Loader{root: root}
}

// Descriptors walks the descriptors directory and decodes every JSON file.
// Duplicate keys are rejected.
func (l *Loader) Descriptors(ctx context.Context) ([]domain.AssetDescriptor, error) {
	var out []domain.AssetDescriptor
	seen := make(map[string]string)

	err := fs.WalkDir(l.root, DescriptorsDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(p) != ".json" {
			return nil
		}

		data, err := fs.ReadFile(l.root, p)
		if err != nil {
			return fmt.Errorf("failed to read descriptor %s: %w", p, err)
		}
		var desc domain.AssetDescriptor
		if err := json.Unmarshal(data, &desc); err != nil {
			return fmt.Errorf("failed to decode descriptor %s: %w", p, err)
		}
		if desc.Key == "" {
			return fmt.Errorf("descriptor %s has no key", p)
		}
		if prev, dup := seen[desc.Key]; dup {
			return fmt.Errorf("duplicate descriptor key %s in %s and %s", desc.Key, prev, p)
		}
		seen[desc.Key] = p
		out = append(out, desc)
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.AssetDescriptor{}, nil
		}
		return nil, err
	}
	return out, nil
}

// ReadData reads data/<locale>/<path>.
func (l *Loader) ReadData(ctx context.Context, locale, assetPath string) ([]byte, error) {
	clean := path.Clean(strings.ReplaceAll(assetPath, `\`, "/"))
	full := path.Join(DataDir, locale, clean)
	if !fs.ValidPath(full) || !strings.HasPrefix(full, DataDir+"/") {
		return nil, fmt.Errorf("%w: invalid path %q", domain.ErrAssetNotFound, assetPath)
	}

	data, err := fs.ReadFile(l.root, full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrAssetNotFound, locale, assetPath)
		}
		return nil, fmt.Errorf("failed to read asset %s: %w", full, err)
	}
	return data, nil
}
