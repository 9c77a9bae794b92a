// Package corpus holds the session's successfully processed blocks.
package corpus

import (
	"fmt"
	"sync"

	"github.com/xxxsen/spark/internal/model"
	appErr "github.com/xxxsen/spark/internal/pkg/errors"
)

// Store is an append-only, insertion-ordered collection of linkable blocks.
// It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	blocks    []*model.Block
	index     map[string]int
	dimension int
}

func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

// Append admits b. Blocks that are not linkable, already present, or whose
// embedding dimension differs from the corpus are rejected.
func (s *Store) Append(b *model.Block) error {
	if !b.Linkable() {
		return fmt.Errorf("block not linkable: %w", appErr.ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[b.ID]; ok {
		return fmt.Errorf("block %s: %w", b.ID, appErr.ErrConflict)
	}
	if s.dimension != 0 && len(b.Embedding) != s.dimension {
		return fmt.Errorf("embedding dimension %d, corpus uses %d: %w", len(b.Embedding), s.dimension, appErr.ErrInvalid)
	}
	if s.dimension == 0 {
		s.dimension = len(b.Embedding)
	}
	s.index[b.ID] = len(s.blocks)
	s.blocks = append(s.blocks, b)
	return nil
}

// Snapshot returns the blocks in insertion order. The slice is a copy; the
// blocks are shared.
func (s *Store) Snapshot() []*model.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Block, len(s.blocks))
	copy(out, s.blocks)
	return out
}

func (s *Store) Get(id string) (*model.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.blocks[i], true
}

func (s *Store) Contains(id string) bool {
	_, ok := s.Get(id)
	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocks)
}

// Dimension is the embedding size fixed by the first admitted block, 0 while empty.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}
