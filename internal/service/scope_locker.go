package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/repository"
	"github.com/gaurav5327/Edu-Sync-sub000/pkg/config"
	appErrors "github.com/gaurav5327/Edu-Sync-sub000/pkg/errors"
)

// ScopeLocker serializes writers of one scope. The returned func releases the lock.
type ScopeLocker interface {
	Lock(ctx context.Context, scopeKey string) (func(), error)
}

func errScopeBusy(err error) error {
	return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "another change to this timetable is in progress")
}

// LocalScopeLocker guards scopes within a single process.
type LocalScopeLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocalScopeLocker constructs an in-process locker.
func NewLocalScopeLocker() *LocalScopeLocker {
	return &LocalScopeLocker{slots: make(map[string]chan struct{})}
}

func (l *LocalScopeLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

// Lock waits for the scope until ctx is done.
func (l *LocalScopeLocker) Lock(ctx context.Context, scopeKey string) (func(), error) {
	ch := l.slot(scopeKey)
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, errScopeBusy(ctx.Err())
	}
}

type lockLeaser interface {
	TryAcquire(ctx context.Context, scopeKey, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, scopeKey, token string) error
}

// RedisScopeLocker guards scopes across processes with an expiring Redis lease.
type RedisScopeLocker struct {
	leases lockLeaser
	ttl    time.Duration
	retry  time.Duration
	logger *zap.Logger
}

// NewRedisScopeLocker constructs a lease-based locker.
func NewRedisScopeLocker(leases lockLeaser, ttl, retry time.Duration, logger *zap.Logger) *RedisScopeLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisScopeLocker{leases: leases, ttl: ttl, retry: retry, logger: logger}
}

// Lock polls for the lease until it is granted or ctx is done.
func (l *RedisScopeLocker) Lock(ctx context.Context, scopeKey string) (func(), error) {
	token := uuid.NewString()
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.leases.TryAcquire(ctx, scopeKey, token, l.ttl)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire scope lock")
		}
		if ok {
			return l.releaser(scopeKey, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, errScopeBusy(ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisScopeLocker) releaser(scopeKey, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := l.leases.Release(ctx, scopeKey, token); err != nil {
				level := l.logger.Warn
				if errors.Is(err, repository.ErrLockNotHeld) {
					level = l.logger.Info
				}
				level("scope lock release failed", zap.String("scope", scopeKey), zap.Error(err))
			}
		})
	}
}

// NewScopeLocker picks the locker named by the scheduler configuration.
func NewScopeLocker(cfg config.SchedulerConfig, leases lockLeaser, logger *zap.Logger) ScopeLocker {
	if cfg.LockBackend == config.LockBackendRedis && leases != nil {
		return NewRedisScopeLocker(leases, cfg.LockTTL, cfg.LockRetryInterval, logger)
	}
	return NewLocalScopeLocker()
}
