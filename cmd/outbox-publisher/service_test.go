package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger-backend/pkg/config"
	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	"github.com/angelmondragon/vendorledger-backend/pkg/logger"
	"github.com/angelmondragon/vendorledger-backend/pkg/metrics"
	"github.com/angelmondragon/vendorledger-backend/pkg/outbox"
	"github.com/angelmondragon/vendorledger-backend/pkg/outbox/registry"
)

func TestProcessBatchContinuesAfterTransientFailure(t *testing.T) {
	first, second := payoutEvent(0), payoutEvent(0)
	repo := &fakeRepo{events: []models.OutboxEvent{first, second}}
	pub := &fakePublisher{errs: []error{errors.New("transient"), nil}}
	dlq := &fakeDLQ{}
	svc := newTestService(t, repo, pub, dlq, config.OutboxConfig{MaxAttempts: 3})

	n, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []uuid.UUID{first.ID}, repo.failed)
	require.Equal(t, []uuid.UUID{second.ID}, repo.published)
	require.Empty(t, dlq.entries)
	require.Len(t, pub.messages, 2)
	require.Equal(t, string(enums.EventPayoutPaid), pub.messages[1].Attributes["event_type"])
	require.Equal(t, second.AggregateID.String(), pub.messages[1].Attributes["aggregate_id"])
}

func TestProcessBatchDeadLettersUnresolvableRows(t *testing.T) {
	event := payoutEvent(0)
	event.EventType = "mystery_event"
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	dlq := &fakeDLQ{}
	svc := newTestService(t, repo, pub, dlq, config.OutboxConfig{})

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	require.Equal(t, enums.OutboxDLQReasonUnresolvable, dlq.entries[0].ErrorReason)
	require.Equal(t, []uuid.UUID{event.ID}, repo.terminal)
	require.Empty(t, pub.messages)
}

func TestProcessBatchDeadLettersRejectedMessages(t *testing.T) {
	event := payoutEvent(0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{errs: []error{registry.NewNonRetryableError(errors.New("message too large"))}}
	dlq := &fakeDLQ{}
	svc := newTestService(t, repo, pub, dlq, config.OutboxConfig{MaxAttempts: 5})

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	require.Equal(t, enums.OutboxDLQReasonNonRetryable, dlq.entries[0].ErrorReason)
	require.Empty(t, repo.failed)
}

func TestProcessBatchDeadLettersAtMaxAttempts(t *testing.T) {
	event := payoutEvent(2)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{errs: []error{errors.New("unavailable")}}
	dlq := &fakeDLQ{}
	reg := prometheus.NewRegistry()
	svc := newTestService(t, repo, pub, dlq, config.OutboxConfig{MaxAttempts: 3})
	svc.metrics = metrics.NewOutboxMetrics(reg)

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	require.Equal(t, enums.OutboxDLQReasonMaxAttempts, dlq.entries[0].ErrorReason)
	require.Equal(t, 2, dlq.entries[0].AttemptCount)
	require.Empty(t, repo.failed)
	count, err := testutil.GatherAndCount(reg, "vendorledger_outbox_events_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestProcessBatchRollsBackWhenDLQFails(t *testing.T) {
	event := payoutEvent(0)
	event.EventType = "mystery_event"
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	svc := newTestService(t, repo, &fakePublisher{}, &fakeDLQ{err: errors.New("disk full")}, config.OutboxConfig{})

	_, err := svc.processBatch(context.Background())
	require.ErrorContains(t, err, "insert dlq")
	require.Empty(t, repo.terminal)
}

func TestRunStopsOnCancel(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeDLQ{}, config.OutboxConfig{PollIntervalMS: 5})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, svc.Run(ctx), context.DeadlineExceeded)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: testLogger()})
	require.Error(t, err)
}

func newTestService(t *testing.T, repo outboxRepository, pub *fakePublisher, dlq dlqRepository, cfg config.OutboxConfig) *Service {
	t.Helper()
	eventRegistry, err := registry.NewEventRegistry(config.PubSubConfig{NotificationTopic: "notifications", LedgerTopic: "ledger"})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     testLogger(),
		DB:         fakeDB{},
		Publishers: func(string) publisher { return pub },
		Repository: repo,
		DLQ:        dlq,
		Registry:   eventRegistry,
	})
	require.NoError(t, err)
	return svc
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard})
}

func payoutEvent(attempts int) models.OutboxEvent {
	payoutID := uuid.New()
	data := []byte(`{"payout_id":"` + payoutID.String() + `","vendor_id":"` + uuid.NewString() + `","amount":"80","status":"paid","method":"paypal"}`)
	envelope := outbox.PayloadEnvelope{Version: 1, EventID: uuid.NewString(), OccurredAt: time.Now().UTC(), Data: data}
	payload, err := json.Marshal(envelope)
	if err != nil {
		panic(err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventPayoutPaid,
		AggregateType: enums.AggregatePayout,
		AggregateID:   payoutID,
		Payload:       payload,
		AttemptCount:  attempts,
	}
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDLQ struct {
	entries []models.OutboxDLQ
	err     error
}

func (f *fakeDLQ) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakePublisher struct {
	errs     []error
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	return fakeResult{err: err}
}

type fakeResult struct {
	err error
}

func (r fakeResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}
