// Package cache provides a Redis read-through cache for parcel lookups.
// Entries are TTL-bounded and invalidated on every parcel mutation; a cache
// failure is never fatal, reads fall through to the store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"landledger/internal/registry"
	id "landledger/pkg/domain"
)

const (
	parcelKeyPrefix = "parcel:"
	defaultTTL      = 5 * time.Minute
)

// ParcelCache caches parcel records in Redis. A nil *ParcelCache is valid
// and disables caching, so callers never branch on configuration.
type ParcelCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

type Option func(*ParcelCache)

// WithTTL overrides the default entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *ParcelCache) { c.ttl = ttl }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *ParcelCache) { c.logger = logger }
}

// New creates a parcel cache. Returns nil when client is nil.
func New(client *redis.Client, opts ...Option) *ParcelCache {
	if client == nil {
		return nil
	}
	c := &ParcelCache{client: client, ttl: defaultTTL, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached parcel, or (nil, false) on miss, disabled cache, or
// any Redis error.
func (c *ParcelCache) Get(ctx context.Context, landID id.LandID) (*registry.Parcel, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, parcelKeyPrefix+string(landID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("parcel cache read failed", "land_id", landID, "error", err)
		return nil, false
	}
	var parcel registry.Parcel
	if err := json.Unmarshal(raw, &parcel); err != nil {
		c.logger.Warn("parcel cache entry corrupt", "land_id", landID, "error", err)
		return nil, false
	}
	return &parcel, true
}

// Set stores the parcel under its land id.
func (c *ParcelCache) Set(ctx context.Context, parcel *registry.Parcel) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(parcel)
	if err != nil {
		c.logger.Warn("parcel cache encode failed", "land_id", parcel.LandID, "error", err)
		return
	}
	if err := c.client.Set(ctx, parcelKeyPrefix+string(parcel.LandID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("parcel cache write failed", "land_id", parcel.LandID, "error", err)
	}
}

// Invalidate drops the parcel's entry. Called on every mutation before the
// caller returns, so a follow-up read repopulates from the store.
func (c *ParcelCache) Invalidate(ctx context.Context, landID id.LandID) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, parcelKeyPrefix+string(landID)).Err(); err != nil {
		c.logger.Warn("parcel cache invalidation failed", "land_id", landID, "error", err)
	}
}
