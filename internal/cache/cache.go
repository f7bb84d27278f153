// Package cache implements the read-through, write-invalidate table list
// cache.  The cache is never authoritative: entries are deleted after
// every successful table write and expire after a bounded TTL as a
// safety net against a missed invalidation.
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the contract the reservation coordinator relies on.
type Cache interface {
	// Get returns the cached value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put stores value under key for ttl.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Invalidate deletes key.  Deleting an absent key is not an error.
	Invalidate(ctx context.Context, key string) error
}

// FencedCache lets a read-through caller populate a key only if no
// invalidation happened since it started reading the store.
type FencedCache interface {
	Cache
	// Fence returns the current invalidation generation of key.
	Fence(ctx context.Context, key string) (uint64, error)
	// Fill stores value only if the generation still equals fence.  It
	// reports whether the value was stored.
	Fill(ctx context.Context, key string, fence uint64, value []byte, ttl time.Duration) (bool, error)
}

// TablesKey returns the cache key of an event's table list.
func TablesKey(eventID string) string { return "tables:" + eventID }

func generationKey(key string) string { return key + ":gen" }

// invalidateScript deletes the entry and bumps its generation in one
// step, so a concurrent Fill either lands before the delete or is
// rejected by the fence.
var invalidateScript = redis.NewScript(`
	redis.call('DEL', KEYS[1])
	redis.call('INCR', KEYS[2])
	redis.call('EXPIRE', KEYS[2], tonumber(ARGV[1]))
	return 1
`)

var fillScript = redis.NewScript(`
	local gen = tonumber(redis.call('GET', KEYS[2]) or '0')
	if gen ~= tonumber(ARGV[1]) then
		return 0
	end
	redis.call('SET', KEYS[1], ARGV[2], 'PX', tonumber(ARGV[3]))
	return 1
`)

// RedisCache implements FencedCache on a go-redis client.
type RedisCache struct {
	rdb    redis.Cmdable
	prefix string
	// genTTL keeps generation counters alive well past any entry TTL.
	genTTL time.Duration
}

// NewRedisCache wraps rdb.  prefix namespaces every key and may be empty.
func NewRedisCache(rdb redis.Cmdable, prefix string) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: prefix, genTTL: 48 * time.Hour}
}

func (c *RedisCache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	bs, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return bs, true, nil
}

// Put implements Cache.
func (c *RedisCache) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.key(key), value, ttl).Err()
}

// Invalidate implements Cache.
func (c *RedisCache) Invalidate(ctx context.Context, key string) error {
	k := c.key(key)
	return invalidateScript.Run(ctx, c.rdb, []string{k, generationKey(k)}, int64(c.genTTL/time.Second)).Err()
}

// Fence implements FencedCache.
func (c *RedisCache) Fence(ctx context.Context, key string) (uint64, error) {
	s, err := c.rdb.Get(ctx, generationKey(c.key(key))).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(s, 10, 64)
}

// Fill implements FencedCache.
func (c *RedisCache) Fill(ctx context.Context, key string, fence uint64, value []byte, ttl time.Duration) (bool, error) {
	k := c.key(key)
	n, err := fillScript.Run(ctx, c.rdb, []string{k, generationKey(k)}, fence, value, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
