package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryRedis) LockKey(name string) string { return "vl:lock:" + name }

func TestRedisLockIsExclusivePerJob(t *testing.T) {
	store := newMemoryRedis()
	factory, err := NewRedisLockFactory(store, "prod", 0)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := factory("payout-stale-alert")
	require.NoError(t, err)
	second, err := factory("payout-stale-alert")
	require.NoError(t, err)
	other, err := factory("outbox-retention")
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, defaultLockTTL, store.ttls["vl:lock:cron:prod:payout-stale-alert"])

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = other.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, "vl:lock:cron:prod:payout-stale-alert")

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseLeavesForeignHolderAlone(t *testing.T) {
	store := newMemoryRedis()
	factory, err := NewRedisLockFactory(store, "", time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	lock, err := factory("payout-stale-alert")
	require.NoError(t, err)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// expired and re-taken by another replica
	store.values["vl:lock:cron:local:payout-stale-alert"] = "other-host:token"

	require.NoError(t, lock.Release(ctx))
	assert.Equal(t, "other-host:token", store.values["vl:lock:cron:local:payout-stale-alert"])
	assert.Equal(t, time.Minute, store.ttls["vl:lock:cron:local:payout-stale-alert"])
}

func TestLockFactoryValidates(t *testing.T) {
	_, err := NewRedisLockFactory(nil, "prod", 0)
	assert.Error(t, err)

	factory, err := NewRedisLockFactory(newMemoryRedis(), "prod", 0)
	require.NoError(t, err)
	_, err = factory("")
	assert.Error(t, err)
}
