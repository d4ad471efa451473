package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultVersionTTL = 10 * time.Minute

// VersionCache keeps the latest known dashboard version per project so that
// conditional reads can answer without touching the store.
// Key format: dashboard:version:<project_id>
type VersionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewVersionCache wraps client. A non-positive ttl falls back to ten minutes.
func NewVersionCache(client *redis.Client, ttl time.Duration) *VersionCache {
	if ttl <= 0 {
		ttl = defaultVersionTTL
	}
	return &VersionCache{client: client, ttl: ttl}
}

// Get returns the cached version. A missing key is a miss, not an error.
func (c *VersionCache) Get(ctx context.Context, projectID int64) (int64, bool, error) {
	v, err := c.client.Get(ctx, c.key(projectID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("version cache get: %w", err)
	}
	return v, true, nil
}

// Set stores version unless a newer one is already cached. The compare runs
// server-side so a slow writer cannot roll the cache back.
func (c *VersionCache) Set(ctx context.Context, projectID, version int64) error {
	err := setIfNewer.Run(ctx, c.client, []string{c.key(projectID)}, version, c.ttl.Milliseconds()).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("version cache set: %w", err)
	}
	return nil
}

// Delete removes the cached version. Deleting a missing key is not an error.
func (c *VersionCache) Delete(ctx context.Context, projectID int64) error {
	if err := c.client.Del(ctx, c.key(projectID)).Err(); err != nil {
		return fmt.Errorf("version cache delete: %w", err)
	}
	return nil
}

func (c *VersionCache) key(projectID int64) string {
	return "dashboard:version:" + strconv.FormatInt(projectID, 10)
}

var setIfNewer = redis.NewScript(`
local cur = tonumber(redis.call("GET", KEYS[1]))
local incoming = tonumber(ARGV[1])
if cur == nil or incoming >= cur then
  redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
  return 1
end
return 0
`)
