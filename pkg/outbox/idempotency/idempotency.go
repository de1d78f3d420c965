// Package idempotency lets Pub/Sub consumers handle each outbox event once
// despite at-least-once delivery.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorledger-backend/pkg/redis"
)

// Manager records claimed event ids for one consumer under
// vl:idempotency:evt:<consumer>:<event_id>. Claims expire after ttl; zero
// keeps them forever.
type Manager struct {
	store redis.IdempotencyStore
	scope string
	ttl   time.Duration
}

func NewManager(store redis.IdempotencyStore, consumer string, ttl time.Duration) (*Manager, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency: store is required")
	case consumer == "":
		return nil, errors.New("idempotency: consumer name is required")
	case ttl < 0:
		return nil, fmt.Errorf("idempotency: negative ttl %s", ttl)
	}
	return &Manager{store: store, scope: "evt:" + consumer, ttl: ttl}, nil
}

// Claim reports true when this call is the first to see eventID.
func (m *Manager) Claim(ctx context.Context, eventID uuid.UUID) (bool, error) {
	key, err := m.key(eventID)
	if err != nil {
		return false, err
	}
	first, err := m.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return false, fmt.Errorf("idempotency: claim %s: %w", eventID, err)
	}
	return first, nil
}

// Forget drops a claim after a failed attempt so the redelivery runs again.
func (m *Manager) Forget(ctx context.Context, eventID uuid.UUID) error {
	key, err := m.key(eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(eventID uuid.UUID) (string, error) {
	if eventID == uuid.Nil {
		return "", errors.New("idempotency: event id is required")
	}
	return m.store.IdempotencyKey(m.scope, eventID.String()), nil
}
