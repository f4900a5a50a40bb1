package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireShiftLock(ctx context.Context, shiftID string, ttl time.Duration) (bool, error)
	ReleaseShiftLock(ctx context.Context, shiftID string) error
}

// CacheStoreInterface defines the interface for defaults caching.
type CacheStoreInterface interface {
	GetSuggestion(ctx context.Context, driverID string) (*CachedSuggestion, error)
	SetSuggestion(ctx context.Context, suggestion *CachedSuggestion) error
	InvalidateSuggestion(ctx context.Context, driverID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface  = (*LockStore)(nil)
	_ CacheStoreInterface = (*CacheStore)(nil)
)
