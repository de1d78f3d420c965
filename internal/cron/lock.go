package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/vendorledger-backend/pkg/instance"
)

// Only matters when a replica dies while holding a lock.
const defaultLockTTL = 30 * time.Minute

// Lock coordinates exclusive job runs across cron-worker replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LockFactory returns a fresh lock for one run of the named job.
type LockFactory func(job string) (Lock, error)

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(name string) string
}

// NewRedisLockFactory scopes job locks to vl:lock:cron:<env>:<job>.
func NewRedisLockFactory(store lockStore, env string, ttl time.Duration) (LockFactory, error) {
	if store == nil {
		return nil, errors.New("cron: lock store is required")
	}
	if env == "" {
		env = "local"
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return func(job string) (Lock, error) {
		if job == "" {
			return nil, errors.New("cron: job name is required")
		}
		return &jobLock{
			store: store,
			key:   store.LockKey("cron:" + env + ":" + job),
			ttl:   ttl,
		}, nil
	}, nil
}

// jobLock holds an owner token while acquired. The token is the instance
// id plus a random suffix so two runs on one host never share it.
type jobLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	token string
}

func (l *jobLock) Acquire(ctx context.Context) (bool, error) {
	token := fmt.Sprintf("%s:%s", instance.GetID(), uuid.NewString())
	won, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	switch {
	case err != nil:
		return false, fmt.Errorf("cron: acquire %s: %w", l.key, err)
	case won:
		l.token = token
	}
	return won, nil
}

// Release is a no-op unless this run still holds the key; an expired lock
// that another replica re-took is left alone.
func (l *jobLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""

	holder, err := l.store.Get(ctx, l.key)
	if errors.Is(err, redis.Nil) || (err == nil && holder != token) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cron: read holder of %s: %w", l.key, err)
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("cron: release %s: %w", l.key, err)
	}
	return nil
}
