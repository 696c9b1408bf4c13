package permissions

import "context"

// Loader resolves a user's permission set from its source of truth.
type Loader func(ctx context.Context, userID uint) ([]string, error)

// Service answers permission lookups through the cache, filling entries
// lazily on first access.
type Service struct {
	cache  *Cache
	loader Loader
}

func NewService(cache *Cache, loader Loader) *Service {
	return &Service{
		cache:  cache,
		loader: loader,
	}
}

func (s *Service) Lookup(ctx context.Context, userID uint) ([]string, error) {
	if perms, ok := s.cache.Get(ctx, userID); ok {
		return perms, nil
	}
	perms, err := s.loader(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Put(ctx, userID, perms); err != nil {
		return perms, nil // serve the loaded set even if caching failed
	}
	return perms, nil
}

// Invalidate drops the user's cache entry. It must be called before any
// role or permission mutation is acknowledged so no stale set survives
// the write.
func (s *Service) Invalidate(ctx context.Context, userID uint) error {
	return s.cache.Invalidate(ctx, userID)
}
