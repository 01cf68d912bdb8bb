package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLockNotHeld is returned when releasing a lock owned by someone else.
var ErrLockNotHeld = errors.New("scope lock not held")

const scopeLockPrefix = "timetabler:lock:"

// releaseScript deletes the key only while it still carries the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// ScopeLockRepository implements a single-holder lease per scope key on Redis.
type ScopeLockRepository struct {
	client *redis.Client
}

// NewScopeLockRepository constructs a ScopeLockRepository.
func NewScopeLockRepository(client *redis.Client) *ScopeLockRepository {
	return &ScopeLockRepository{client: client}
}

// LockKey returns the Redis key guarding a scope.
func LockKey(scopeKey string) string {
	return scopeLockPrefix + scopeKey
}

// TryAcquire sets the lease when nobody holds it. It reports whether the
// caller now owns the scope.
func (r *ScopeLockRepository) TryAcquire(ctx context.Context, scopeKey, token string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is not configured")
	}
	ok, err := r.client.SetNX(ctx, LockKey(scopeKey), token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire scope lock %s: %w", scopeKey, err)
	}
	return ok, nil
}

// Release drops the lease if token still owns it.
func (r *ScopeLockRepository) Release(ctx context.Context, scopeKey, token string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is not configured")
	}
	n, err := releaseScript.Run(ctx, r.client, []string{LockKey(scopeKey)}, token).Int()
	if err != nil {
		return fmt.Errorf("release scope lock %s: %w", scopeKey, err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}
