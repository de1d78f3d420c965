package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vendorledger-backend/pkg/logger"
)

type runnerFunc func(context.Context) error

func (f runnerFunc) Run(ctx context.Context) error { return f(ctx) }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "worker-test", Output: io.Discard})
}

func ok(context.Context) error { return nil }

func TestRunFailsWhenDependencyIsDown(t *testing.T) {
	started := false
	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Dependencies: []dependency{
			{name: "database", ping: ok},
			{name: "redis", ping: func(context.Context) error { return errors.New("connection refused") }},
		},
		Consumer: runnerFunc(func(context.Context) error {
			started = true
			return nil
		}),
	})
	require.NoError(t, err)

	err = svc.Run(context.Background())
	require.ErrorContains(t, err, "redis ping failed")
	require.False(t, started)
}

func TestRunReturnsConsumerError(t *testing.T) {
	boom := errors.New("subscription deleted")
	svc, err := NewService(ServiceParams{
		Logger:       testLogger(),
		Dependencies: []dependency{{name: "pubsub", ping: ok}},
		Consumer:     runnerFunc(func(context.Context) error { return boom }),
	})
	require.NoError(t, err)
	require.ErrorIs(t, svc.Run(context.Background()), boom)
}

func TestRunStopsOnCancel(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Consumer: runnerFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, svc.Run(ctx))
}

func TestNewServiceValidatesParams(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: testLogger()})
	require.Error(t, err)

	_, err = NewService(ServiceParams{
		Logger:       testLogger(),
		Consumer:     runnerFunc(ok),
		Dependencies: []dependency{{name: "database"}},
	})
	require.ErrorContains(t, err, "database ping is required")
}
