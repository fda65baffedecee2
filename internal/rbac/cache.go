package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionKey = "rbac:version"
	bumpChannel     = "rbac.bump"
)

// Cache keeps effective permission sets in Redis. Keys embed a global version
// so role-level edits invalidate every user at once.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, cacheVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Stamp names the entry for a user under the current global version and the
// user's generation. Loads capture it before reading the database and write
// back under it, so an invalidation that lands mid-load orphans the write.
func (c *Cache) Stamp(ctx context.Context, userID uuid.UUID) (string, error) {
	if !c.enabled() {
		return "", nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	gen, err := c.client.Get(ctx, generationKey(userID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("rbac:perms:%s:%d:%d", userID, ver, gen), nil
}

func generationKey(userID uuid.UUID) string {
	return "rbac:gen:" + userID.String()
}

type cachedPermissions struct {
	Permissions []string `json:"permissions"`
}

// Get returns the set cached under stamp and whether it was present.
func (c *Cache) Get(ctx context.Context, stamp string) ([]string, bool, error) {
	if !c.enabled() || stamp == "" {
		return nil, false, nil
	}
	payload, err := c.client.Get(ctx, stamp).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var entry cachedPermissions
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, false, err
	}
	return entry.Permissions, true, nil
}

// Set stores the set under stamp. ttl overrides the default when positive and shorter.
func (c *Cache) Set(ctx context.Context, stamp string, perms []string, ttl time.Duration) error {
	if !c.enabled() || stamp == "" {
		return nil
	}
	if ttl <= 0 || ttl > c.ttl {
		ttl = c.ttl
	}
	raw, err := json.Marshal(cachedPermissions{Permissions: perms})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, stamp, raw, ttl).Err()
}

// Invalidate moves a user to a new generation so earlier stamps are never read again.
func (c *Cache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Incr(ctx, generationKey(userID)).Err()
}

// Bump invalidates every user by incrementing the global version and publishing an event.
func (c *Cache) Bump(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// TTL returns the configured default lifetime.
func (c *Cache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}
