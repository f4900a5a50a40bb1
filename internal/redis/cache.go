package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore caches per-driver defaults lookups in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// SuggestionCacheTTL bounds the staleness of last-vehicle suggestions; the
// entry is also invalidated explicitly whenever a shift is validated.
const SuggestionCacheTTL = 5 * time.Minute

const suggestionCachePrefix = "cache:defaults:"

// CachedSuggestion holds the blank-slate suggestion derived from a driver's
// most recently validated shift.
type CachedSuggestion struct {
	DriverID  string `json:"driver_id"`
	VehicleID string `json:"vehicle_id"`
}

// GetSuggestion retrieves a driver's cached suggestion. Returns nil on a miss.
func (s *CacheStore) GetSuggestion(ctx context.Context, driverID string) (*CachedSuggestion, error) {
	key := suggestionCachePrefix + driverID
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var suggestion CachedSuggestion
	if err := json.Unmarshal(data, &suggestion); err != nil {
		return nil, err
	}
	return &suggestion, nil
}

// SetSuggestion stores a driver's suggestion in cache.
func (s *CacheStore) SetSuggestion(ctx context.Context, suggestion *CachedSuggestion) error {
	key := suggestionCachePrefix + suggestion.DriverID
	data, err := json.Marshal(suggestion)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, SuggestionCacheTTL).Err()
}

// InvalidateSuggestion removes a driver's suggestion from cache.
func (s *CacheStore) InvalidateSuggestion(ctx context.Context, driverID string) error {
	key := suggestionCachePrefix + driverID
	return s.client.Del(ctx, key).Err()
}
