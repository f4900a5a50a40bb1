package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireShiftLock attempts to acquire the merge lock for a shift. Concurrent
// taximeter merges for the same shift serialize on this lock so partial-field
// submissions cannot overwrite each other.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireShiftLock(ctx context.Context, shiftID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:shift:%s", shiftID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseShiftLock releases the merge lock for a shift.
func (s *LockStore) ReleaseShiftLock(ctx context.Context, shiftID string) error {
	key := fmt.Sprintf("lock:shift:%s", shiftID)

	return s.client.Del(ctx, key).Err()
}
