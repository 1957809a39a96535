// Package cache keeps course and skill staff lookups in redis. Everything
// else passes straight through to the wrapped source.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"calendar-service/internal/calendar/resolver"
	"calendar-service/pkg/sl"
)

var ErrMiss = errors.New("cache miss")

type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

type RedisBackend struct {
	client redis.UniversalClient
}

func NewRedisBackend(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "cache.RedisBackend.Get"

	val, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return val, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	const op = "cache.RedisBackend.Set"

	if err := b.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (b *RedisBackend) DeletePrefix(ctx context.Context, prefix string) error {
	const op = "cache.RedisBackend.DeletePrefix"

	iter := b.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := b.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

const keyPrefix = "staff:"

// StaffCache wraps a resolver.Source. Backend failures are logged and the
// lookup goes to the source, so the cache can never fail a resolution.
type StaffCache struct {
	resolver.Source
	backend Backend
	ttl     time.Duration
	log     *slog.Logger
}

func NewStaffCache(src resolver.Source, backend Backend, ttl time.Duration, log *slog.Logger) *StaffCache {
	return &StaffCache{Source: src, backend: backend, ttl: ttl, log: log}
}

func (c *StaffCache) FetchStaffForCourse(ctx context.Context, courseIDs []string) ([]string, error) {
	return c.lookup(ctx, "course", courseIDs, c.Source.FetchStaffForCourse)
}

func (c *StaffCache) FetchStaffForSkill(ctx context.Context, skillIDs []string) ([]string, error) {
	return c.lookup(ctx, "skill", skillIDs, c.Source.FetchStaffForSkill)
}

// Invalidate drops every cached lookup.
func (c *StaffCache) Invalidate(ctx context.Context) error {
	const op = "cache.StaffCache.Invalidate"

	if err := c.backend.DeletePrefix(ctx, keyPrefix); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *StaffCache) lookup(
	ctx context.Context,
	kind string,
	ids []string,
	fetch func(context.Context, []string) ([]string, error),
) ([]string, error) {
	const op = "cache.StaffCache.lookup"

	log := c.log.With(slog.String("op", op), slog.String("kind", kind))
	key := Key(kind, ids)

	raw, err := c.backend.Get(ctx, key)
	switch {
	case err == nil:
		var staff []string
		if err := json.Unmarshal(raw, &staff); err == nil {
			log.Debug("staff cache hit", slog.Int("staff", len(staff)))
			return staff, nil
		}
		log.Warn("discarding undecodable cache entry", slog.String("key", key))
	case !errors.Is(err, ErrMiss):
		log.Warn("staff cache unavailable", sl.Err(err))
	}

	staff, err := fetch(ctx, ids)
	if err != nil {
		return nil, err
	}

	raw, err = json.Marshal(staff)
	if err == nil {
		err = c.backend.Set(ctx, key, raw, c.ttl)
	}
	if err != nil {
		log.Warn("failed to store staff lookup", sl.Err(err))
	}

	return staff, nil
}

// Key is order-insensitive in ids.
func Key(kind string, ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return keyPrefix + kind + ":" + strings.Join(sorted, ",")
}
