package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorledger-backend/pkg/config"
	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	"github.com/angelmondragon/vendorledger-backend/pkg/outbox"
	"github.com/angelmondragon/vendorledger-backend/pkg/outbox/payloads"
)

// Route is where one event type is published and which aggregate owns it.
type Route struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is an outbox row that passed routing and payload checks.
type ResolvedEvent struct {
	Route    Route
	Envelope outbox.PayloadEnvelope
	Payload  any
}

// NonRetryableError marks rows that can never publish and belong in the DLQ.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError { return NonRetryableError{Err: err} }

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

// EventRegistry is the publisher's routing table. Every routed event type
// also has a v1 payload decoder so malformed rows are caught before publish.
type EventRegistry struct {
	routes   map[enums.OutboxEventType]Route
	decoders *DecoderRegistry
}

// NewEventRegistry sends vendor-facing events to the notification topic and
// accounting events to the ledger topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	var errs []error
	if cfg.NotificationTopic == "" {
		errs = append(errs, errors.New("notification topic is required"))
	}
	if cfg.LedgerTopic == "" {
		errs = append(errs, errors.New("ledger topic is required"))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	r := &EventRegistry{
		routes:   make(map[enums.OutboxEventType]Route),
		decoders: NewDecoderRegistry(),
	}
	notify, ledger := cfg.NotificationTopic, cfg.LedgerTopic

	for _, t := range []enums.OutboxEventType{
		enums.EventPayoutRequested,
		enums.EventPayoutApproved,
		enums.EventPayoutRejected,
		enums.EventPayoutPaid,
		enums.EventPayoutCancelled,
	} {
		route[payloads.PayoutEvent](r, Route{t, enums.AggregatePayout, notify})
	}
	route[payloads.PayoutStaleEvent](r, Route{enums.EventPayoutStale, enums.AggregatePayout, notify})
	route[payloads.OrderItemDeliveredEvent](r, Route{enums.EventOrderItemDelivered, enums.AggregateOrder, notify})
	route[payloads.VendorBalanceDebitedEvent](r, Route{enums.EventVendorBalanceDebit, enums.AggregateVendor, notify})
	route[payloads.OrderPlacedEvent](r, Route{enums.EventOrderPlaced, enums.AggregateOrder, ledger})
	route[payloads.CommissionShortfallEvent](r, Route{enums.EventCommissionShortfall, enums.AggregateOrder, ledger})

	return r, nil
}

func route[T any](r *EventRegistry, rt Route) {
	r.routes[rt.EventType] = rt
	Register[T](r.decoders, rt.EventType, 1)
}

// Topics lists every routed topic, sorted.
func (r *EventRegistry) Topics() []string {
	set := make(map[string]struct{}, 2)
	for _, rt := range r.routes {
		set[rt.Topic] = struct{}{}
	}
	topics := make([]string, 0, len(set))
	for t := range set {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// Resolve routes an outbox row and decodes its payload. All failures are
// NonRetryableError: retrying an unroutable or malformed row cannot help.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	rt, ok := r.routes[event.EventType]
	switch {
	case !ok:
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	case rt.AggregateType != event.AggregateType:
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: %s belongs to %s, row has %s", event.EventType, rt.AggregateType, event.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, NewNonRetryableError(errors.New("missing aggregate_id"))
	}

	msg, err := r.decoders.Decode(event.EventType, event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	return &ResolvedEvent{Route: rt, Envelope: msg.Envelope, Payload: msg.Payload}, nil
}
