package metadata

import (
	"context"
	"sync"
)

// MemoryRepository keeps metadata in process memory. It backs throwaway
// sessions and tests.
type MemoryRepository struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: make(map[string][]byte)}
}

func (r *MemoryRepository) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte{}, v...), nil
}

func (r *MemoryRepository) Set(_ context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = append([]byte{}, value...)
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		delete(r.data, k)
	}
	return nil
}

func (r *MemoryRepository) List(_ context.Context) (map[string][]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]byte, len(r.data))
	for k, v := range r.data {
		out[k] = append([]byte{}, v...)
	}
	return out, nil
}

// InTx stages writes made by fn and applies them only when fn succeeds.
func (r *MemoryRepository) InTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	staged := &stagedRepository{base: r, sets: map[string][]byte{}, dels: map[string]bool{}}
	if err := fn(ctx, staged); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range staged.dels {
		delete(r.data, k)
	}
	for k, v := range staged.sets {
		r.data[k] = v
	}
	return nil
}

type stagedRepository struct {
	base *MemoryRepository
	sets map[string][]byte
	dels map[string]bool
}

func (s *stagedRepository) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := s.sets[key]; ok {
		return append([]byte{}, v...), nil
	}
	if s.dels[key] {
		return nil, nil
	}
	return s.base.Get(ctx, key)
}

func (s *stagedRepository) Set(_ context.Context, key string, value []byte) error {
	delete(s.dels, key)
	s.sets[key] = append([]byte{}, value...)
	return nil
}

func (s *stagedRepository) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.sets, k)
		s.dels[k] = true
	}
	return nil
}

func (s *stagedRepository) List(ctx context.Context) (map[string][]byte, error) {
	out, err := s.base.List(ctx)
	if err != nil {
		return nil, err
	}
	for k := range s.dels {
		delete(out, k)
	}
	for k, v := range s.sets {
		out[k] = append([]byte{}, v...)
	}
	return out, nil
}
