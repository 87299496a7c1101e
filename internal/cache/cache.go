package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	gocachestore "github.com/eko/gocache/store/go_cache/v4"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// PropertiesTag groups every cached search result so a single mutation can
// drop them together
const PropertiesTag = "properties"

// Cache stores encoded search responses keyed by the canonical filter
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	InvalidateProperties(ctx context.Context) error
}

type Memory struct {
	cache  *cache.Cache[[]byte]
	ttl    time.Duration
	logger *logrus.Logger
}

func NewMemory(ttl time.Duration, logger *logrus.Logger) *Memory {
	client := gocache.New(ttl, 2*ttl)
	return &Memory{
		cache:  cache.New[[]byte](gocachestore.NewGoCache(client)),
		ttl:    ttl,
		logger: logger,
	}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool) {
	v, err := m.cache.Get(ctx, key)
	if err != nil || v == nil {
		return nil, false
	}
	return v, true
}

func (m *Memory) Set(ctx context.Context, key string, value []byte) {
	err := m.cache.Set(ctx, key, value,
		store.WithExpiration(m.ttl),
		store.WithTags([]string{PropertiesTag}),
	)
	if err != nil {
		m.logger.WithError(err).Warn("Failed to cache search result")
	}
}

func (m *Memory) InvalidateProperties(ctx context.Context) error {
	if err := m.cache.Invalidate(ctx, store.WithInvalidateTags([]string{PropertiesTag})); err != nil {
		return fmt.Errorf("failed to invalidate search cache: %w", err)
	}
	return nil
}

// Redis namespaces keys with a version counter. Invalidation bumps the
// counter, and entries under old versions expire on their own.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

const versionKey = "properties:version"

func NewRedis(addr, password string, ttl time.Duration, logger *logrus.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return &Redis{client: client, ttl: ttl, logger: logger}, nil
}

func (r *Redis) version(ctx context.Context) (int64, error) {
	v, err := r.client.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func versionedKey(version int64, key string) string {
	return fmt.Sprintf("search:v%d:%s", version, key)
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	v, err := r.version(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("Failed to read search cache version")
		return nil, false
	}
	data, err := r.client.Get(ctx, versionedKey(v, key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.WithError(err).Warn("Failed to read search cache")
		}
		return nil, false
	}
	return data, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) {
	v, err := r.version(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("Failed to read search cache version")
		return
	}
	if err := r.client.Set(ctx, versionedKey(v, key), value, r.ttl).Err(); err != nil {
		r.logger.WithError(err).Warn("Failed to cache search result")
	}
}

func (r *Redis) InvalidateProperties(ctx context.Context) error {
	if err := r.client.Incr(ctx, versionKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate search cache: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
