package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/fable/pkg/domain"
)

// Store implements ports.SaveStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.SaveGame
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.SaveGame),
	}
}

// Save persists a copy of the save game.
func (s *Store) Save(ctx context.Context, slot string, save *domain.SaveGame) error {
	if slot == "" {
		return fmt.Errorf("slot cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[slot] = copySave(save)
	return nil
}

// Load retrieves a copy of the save game so callers cannot mutate the store by pointer.
func (s *Store) Load(ctx context.Context, slot string) (*domain.SaveGame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	save, ok := s.data[slot]
	if !ok {
		return nil, domain.ErrSaveNotFound
	}
	return copySave(save), nil
}

// Delete removes the slot.
func (s *Store) Delete(ctx context.Context, slot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, slot)
	return nil
}

// List returns existing slots.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slots := make([]string, 0, len(s.data))
	for slot := range s.data {
		slots = append(slots, slot)
	}
	return slots, nil
}

func copySave(save *domain.SaveGame) *domain.SaveGame {
	c := *save
	c.VarsInfo = make([]domain.VarInfo, len(save.VarsInfo))
	for i, info := range save.VarsInfo {
		info.Parameters = append([]any(nil), info.Parameters...)
		c.VarsInfo[i] = info
	}
	return &c
}
