package ports

import (
	"context"

	"github.com/aretw0/fable/pkg/domain"
)

// SaveStore defines the interface for persisting save games by slot.
type SaveStore interface {
	// Save persists the save game under a slot, replacing any previous one.
	Save(ctx context.Context, slot string, save *domain.SaveGame) error

	// Load retrieves the save game of a slot.
	// Returns domain.ErrSaveNotFound if the slot does not exist.
	Load(ctx context.Context, slot string) (*domain.SaveGame, error)

	// Delete removes a slot. Deleting a missing slot is not an error.
	Delete(ctx context.Context, slot string) error

	// List returns the existing slots.
	List(ctx context.Context) ([]string, error)
}
