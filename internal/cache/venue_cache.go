// Package cache provides a Redis-backed cache for venue detail responses.
// A nil client (Redis unreachable at startup) disables caching entirely; the
// handlers then always hit the backing store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/restaurant-directory/internal/repository"
)

// VenueCache stores serialized RestaurantInfo values keyed by venue id.
// Mutations to a venue or its reviews must invalidate the entry because the
// derived rating attributes are part of the cached value.
type VenueCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewVenueCache builds a cache over an optional Redis client. client may be
// nil, in which case every method is a no-op.
func NewVenueCache(client *redis.Client, ttl time.Duration) *VenueCache {
	return &VenueCache{client: client, ttl: ttl}
}

func venueKey(id uint64) string { return fmt.Sprintf("venue:%d", id) }

// Get returns the cached info for a venue, reporting a miss when caching is
// disabled, the key is absent, or the stored value does not decode.
func (c *VenueCache) Get(ctx context.Context, id uint64) (repository.RestaurantInfo, bool) {
	if c == nil || c.client == nil {
		return repository.RestaurantInfo{}, false
	}
	raw, err := c.client.Get(ctx, venueKey(id)).Bytes()
	if err != nil {
		return repository.RestaurantInfo{}, false
	}
	var info repository.RestaurantInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return repository.RestaurantInfo{}, false
	}
	return info, true
}

// Set stores the info for a venue. Failures are ignored: the cache is an
// optimization, never a source of truth.
func (c *VenueCache) Set(ctx context.Context, id uint64, info repository.RestaurantInfo) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, venueKey(id), raw, c.ttl).Err()
}

// Invalidate drops the entry for a venue after any mutation that affects its
// detail view.
func (c *VenueCache) Invalidate(ctx context.Context, id uint64) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, venueKey(id)).Err()
}
