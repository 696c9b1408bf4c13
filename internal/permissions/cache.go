package permissions

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/glassworks/authcore/internal/store"
	"github.com/glassworks/authcore/params"
)

type cacheEntry struct {
	Perms string `json:"perms" redis:"perms"`
}

// Cache is a TTL cache of per-user permission sets. Entries past their
// TTL read as absent. Invalidate is synchronous: once it returns, no
// subsequent Get observes the dropped entry.
type Cache struct {
	entries store.Store[cacheEntry]
	ttl     time.Duration
}

func NewCache(storage store.Storage, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = params.PermissionCacheTTL
	}
	return &Cache{
		entries: store.New[cacheEntry](storage, params.PermissionCachePrefix),
		ttl:     ttl,
	}
}

func cacheKey(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}

// Get returns the cached permission set and whether it was present.
func (c *Cache) Get(ctx context.Context, userID uint) ([]string, bool) {
	entry, err := c.entries.Get(ctx, cacheKey(userID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		slog.Warn("Permission cache read failed", "user", userID, "error", err)
		return nil, false
	}
	var perms []string
	if err := json.Unmarshal([]byte(entry.Perms), &perms); err != nil {
		return nil, false
	}
	return perms, true
}

func (c *Cache) Put(ctx context.Context, userID uint, perms []string) error {
	raw, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	return c.entries.Set(ctx, cacheKey(userID), cacheEntry{Perms: string(raw)}, c.ttl)
}

func (c *Cache) Invalidate(ctx context.Context, userID uint) error {
	err := c.entries.Delete(ctx, cacheKey(userID))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}
