package history

import (
	"context"
	"slices"
	"sync"
)

// MemorySlot keeps slots in process memory; nothing survives a restart.
type MemorySlot struct {
	mu sync.Mutex
	m  map[string][]byte
}

func NewMemorySlot() *MemorySlot { return &MemorySlot{m: map[string][]byte{}} }

func (s *MemorySlot) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

func (s *MemorySlot) Save(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = slices.Clone(value)
	return nil
}
