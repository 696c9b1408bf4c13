package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/storage/memory/v2"
	"github.com/spf13/cast"
)

// MemoryStorage is a process-local Storage for tests and single-node
// deployments. Whole values are kept json-encoded in a TTL-aware byte
// store; hash attributes live in a separate guarded map so IncrAttr
// keeps redis HINCRBY semantics.
type MemoryStorage struct {
	blobs *memory.Storage

	mu    sync.Mutex
	attrs map[string]map[string]any
}

func (s *MemoryStorage) Get(ctx context.Context, key string, val any) error {
	raw, err := s.blobs.Get(key)
	if err != nil {
		return err
	}
	if raw == nil {
		return ErrNotFound
	}
	return json.Unmarshal(raw, val)
}

func (s *MemoryStorage) Set(ctx context.Context, key string, val any, expiresIn time.Duration) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	if expiresIn < 0 {
		expiresIn = 0
	}
	return s.blobs.Set(key, raw, expiresIn)
}

func (s *MemoryStorage) Save(ctx context.Context, key string, val any) error {
	return s.Set(ctx, key, val, 0)
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	raw, err := s.blobs.Get(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	_, hadAttrs := s.attrs[key]
	delete(s.attrs, key)
	s.mu.Unlock()
	if raw == nil && !hadAttrs {
		return ErrNotFound
	}
	return s.blobs.Delete(key)
}

func (s *MemoryStorage) Expire(ctx context.Context, key string, expiresAt time.Time) error {
	raw, err := s.blobs.Get(key)
	if err != nil {
		return err
	}
	if raw == nil {
		return ErrNotFound
	}
	return s.blobs.Set(key, raw, time.Until(expiresAt))
}

func (s *MemoryStorage) SetAttr(ctx context.Context, key string, field string, val any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields, ok := s.attrs[key]
	if !ok {
		fields = make(map[string]any)
		s.attrs[key] = fields
	}
	fields[field] = val
	return nil
}

func (s *MemoryStorage) GetAttr(ctx context.Context, key, field string, val any) error {
	s.mu.Lock()
	stored, ok := s.attrs[key][field]
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, val)
}

func (s *MemoryStorage) IncrAttr(ctx context.Context, key, field string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields, ok := s.attrs[key]
	if !ok {
		fields = make(map[string]any)
		s.attrs[key] = fields
	}
	current, err := cast.ToInt64E(fields[field])
	if err != nil {
		current = 0
	}
	current += delta
	fields[field] = current
	return current, nil
}

func (s *MemoryStorage) DelAttr(ctx context.Context, key string, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attrs[key], field)
	return nil
}

func (s *MemoryStorage) Close() error {
	return s.blobs.Close()
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		blobs: memory.New(),
		attrs: make(map[string]map[string]any),
	}
}
