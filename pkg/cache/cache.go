// Package cache is a JSON-over-Redis read-through cache. A nil *Store is
// valid and behaves as an always-miss cache, so the storefront runs without
// Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/shashiranjanraj/storefront/pkg/metrics"
)

type Store struct {
	rdb    redis.UniversalClient
	prefix string
	group  singleflight.Group
}

// Connect dials Redis and pings it. On failure it returns a nil *Store
// together with the error; callers usually log and carry on.
func Connect(ctx context.Context, addr, password, prefix string) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: redis ping %s: %w", addr, err)
	}
	return New(rdb, prefix), nil
}

// New wraps an existing client.
func New(rdb redis.UniversalClient, prefix string) *Store {
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) key(k string) string { return s.prefix + k }

// Get decodes the cached value into dest and reports a hit.
func (s *Store) Get(ctx context.Context, key string, dest interface{}) bool {
	if s == nil {
		return false
	}
	val, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(val, dest) == nil
}

func (s *Store) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(key), data, ttl).Err()
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	if s == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	return s.rdb.Del(ctx, full...).Err()
}

// DeletePattern removes every key matching the glob, using SCAN so Redis
// is never blocked by KEYS.
func (s *Store) DeletePattern(ctx context.Context, pattern string) error {
	if s == nil {
		return nil
	}
	var batch []string
	iter := s.rdb.Scan(ctx, 0, s.key(pattern), 200).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 200 {
			if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.rdb.Del(ctx, batch...).Err()
	}
	return nil
}

// Remember returns the cached value for key or calls load, caches its
// result for ttl and returns it. Concurrent misses on one key share a
// single load. keyspace labels the hit/miss metrics.
func Remember[T any](ctx context.Context, s *Store, keyspace, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var out T
	if s == nil {
		return load(ctx)
	}
	if s.Get(ctx, key, &out) {
		metrics.CacheHits.WithLabelValues(keyspace).Inc()
		return out, nil
	}
	metrics.CacheMisses.WithLabelValues(keyspace).Inc()

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		val, err := load(ctx)
		if err != nil {
			return val, err
		}
		// A failed write only costs a future miss.
		_ = s.Set(ctx, key, val, ttl)
		return val, nil
	})
	if err != nil {
		return out, err
	}
	out, ok := v.(T)
	if !ok {
		return out, errors.New("cache: unexpected value type")
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil {
		return errors.New("cache: not configured")
	}
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.rdb.Close()
}
