package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	"github.com/angelmondragon/vendorledger-backend/pkg/outbox"
)

var (
	// ErrNoDecoder is returned for event type and version pairs nobody registered.
	ErrNoDecoder = errors.New("no decoder registered")

	errEmptyPayload = errors.New("payload is empty")
)

type decodeFunc func(json.RawMessage) (any, error)

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry maps versioned event types to typed payload decoders.
// Registration happens at construction; lookups are read-only afterwards.
type DecoderRegistry struct {
	decoders map[decoderKey]decodeFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[decoderKey]decodeFunc)}
}

// Register decodes eventType@version payloads into T values.
func Register[T any](r *DecoderRegistry, eventType enums.OutboxEventType, version int) {
	r.decoders[decoderKey{eventType, version}] = func(raw json.RawMessage) (any, error) {
		var payload T
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	}
}

// Message is a delivered envelope with its payload decoded.
type Message struct {
	EventID  uuid.UUID
	Envelope outbox.PayloadEnvelope
	Payload  any
}

// Decode parses a Pub/Sub message body. Envelopes without a version are
// treated as version 1.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, body []byte) (*Message, error) {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.Version == 0 {
		envelope.Version = 1
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return nil, fmt.Errorf("event id %q: %w", envelope.EventID, err)
	}

	decode, ok := r.decoders[decoderKey{eventType, envelope.Version}]
	if !ok {
		return nil, fmt.Errorf("%w for %s@v%d", ErrNoDecoder, eventType, envelope.Version)
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("decode %s: %w", eventType, errEmptyPayload)
	}
	payload, err := decode(envelope.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
	}
	return &Message{EventID: eventID, Envelope: envelope, Payload: payload}, nil
}
