package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/fable/pkg/domain"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Store implements ports.SaveStore over a bucket, one object per slot under saves/.
type Store struct {
	bucket *blob.Bucket
}

// OpenStore opens the bucket at bucketURL.
func OpenStore(ctx context.Context, bucketURL string) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket: %w", err)
	}
	return &Store{bucket: bucket}, nil
}

// NewStore wraps an already opened bucket. The caller keeps ownership of it.
func NewStore(bucket *blob.Bucket) *Store {
	return &Store{bucket: bucket}
}

func (s *Store) key(slot string) (string, error) {
	if slot == "" || strings.Contains(slot, "/") {
		return "", fmt.Errorf("invalid slot name %q", slot)
	}
	return savesPrefix + slot + ".json", nil
}

// Save writes the save game as JSON.
func (s *Store) Save(ctx context.Context, slot string, save *domain.SaveGame) error {
	key, err := s.key(slot)
	if err != nil {
		return err
	}
	data, err := json.Marshal(save)
	if err != nil {
		return fmt.Errorf("failed to marshal save: %w", err)
	}
	if err := s.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: "application/json"}); err != nil {
		return fmt.Errorf("failed to write save: %w", err)
	}
	return nil
}

// Load reads the save game of a slot.
func (s *Store) Load(ctx context.Context, slot string) (*domain.SaveGame, error) {
	key, err := s.key(slot)
	if err != nil {
		return nil, err
	}
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, domain.ErrSaveNotFound
		}
		return nil, fmt.Errorf("failed to read save: %w", err)
	}

	var save domain.SaveGame
	if err := json.Unmarshal(data, &save); err != nil {
		return nil, fmt.Errorf("failed to unmarshal save: %w", err)
	}
	return &save, nil
}

// Delete removes the slot object.
func (s *Store) Delete(ctx context.Context, slot string) error {
	key, err := s.key(slot)
	if err != nil {
		return err
	}
	err = s.bucket.Delete(ctx, key)
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("failed to delete save: %w", err)
	}
	return nil
}

// List returns the slots stored under saves/.
func (s *Store) List(ctx context.Context) ([]string, error) {
	slots := []string{}
	iter := s.bucket.List(&blob.ListOptions{Prefix: savesPrefix})
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list saves: %w", err)
		}
		if obj.IsDir || !strings.HasSuffix(obj.Key, ".json") {
			continue
		}
		slots = append(slots, strings.TrimSuffix(strings.TrimPrefix(obj.Key, savesPrefix), ".json"))
	}
	return slots, nil
}

// Close closes the underlying bucket.
func (s *Store) Close() error {
	return s.bucket.Close()
}
