package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger-backend/pkg/errors"
	"github.com/angelmondragon/vendorledger-backend/pkg/outbox"
)

type fakeDeadLetters struct {
	rows    []models.OutboxDLQ
	filter  outbox.DLQFilter
	findErr error
}

func (f *fakeDeadLetters) List(_ context.Context, filter outbox.DLQFilter) ([]models.OutboxDLQ, error) {
	f.filter = filter
	return f.rows, nil
}

func (f *fakeDeadLetters) FindByEventID(_ context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, row := range f.rows {
		if row.EventID == eventID {
			return &row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func deadLetter(reason enums.OutboxDLQErrorReason) models.OutboxDLQ {
	msg := "no publisher for topic vl-notification-events"
	return models.OutboxDLQ{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     enums.EventPayoutPaid,
		AggregateType: enums.AggregatePayout,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1}`),
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  3,
		FailedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAdminListDeadLettersAppliesFilter(t *testing.T) {
	store := &fakeDeadLetters{rows: []models.OutboxDLQ{deadLetter(enums.OutboxDLQReasonUnresolvable)}}
	req := asAdmin(newRequest(http.MethodGet, "/admin/outbox/dlq?reason=unresolvable&eventType=payout_paid&limit=5", ""), uuid.New())
	resp := httptest.NewRecorder()

	AdminListDeadLetters(store, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, outbox.DLQFilter{Reason: enums.OutboxDLQReasonUnresolvable, EventType: enums.EventPayoutPaid, Limit: 5}, store.filter)

	var body struct {
		DeadLetters []outbox.DLQView `json:"dead_letters"`
	}
	decodeData(t, resp, &body)
	require.Len(t, body.DeadLetters, 1)
	assert.Equal(t, enums.OutboxDLQReasonUnresolvable, body.DeadLetters[0].ErrorReason)
	assert.Nil(t, body.DeadLetters[0].Payload)
}

func TestAdminListDeadLettersRejectsUnknownReason(t *testing.T) {
	req := asAdmin(newRequest(http.MethodGet, "/admin/outbox/dlq?reason=gave_up", ""), uuid.New())
	resp := httptest.NewRecorder()

	AdminListDeadLetters(&fakeDeadLetters{}, testLogger())(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), decodeError(t, resp).Code)
}

func TestAdminGetDeadLetter(t *testing.T) {
	row := deadLetter(enums.OutboxDLQReasonMaxAttempts)
	store := &fakeDeadLetters{rows: []models.OutboxDLQ{row}}

	t.Run("found includes payload", func(t *testing.T) {
		req := addRouteParam(asAdmin(newRequest(http.MethodGet, "/", ""), uuid.New()), "eventId", row.EventID.String())
		resp := httptest.NewRecorder()
		AdminGetDeadLetter(store, testLogger())(resp, req)

		require.Equal(t, http.StatusOK, resp.Code)
		var view outbox.DLQView
		decodeData(t, resp, &view)
		assert.Equal(t, row.EventID, view.EventID)
		assert.JSONEq(t, `{"version":1}`, string(view.Payload))
	})

	t.Run("missing", func(t *testing.T) {
		req := addRouteParam(asAdmin(newRequest(http.MethodGet, "/", ""), uuid.New()), "eventId", uuid.NewString())
		resp := httptest.NewRecorder()
		AdminGetDeadLetter(store, testLogger())(resp, req)
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("database down", func(t *testing.T) {
		req := addRouteParam(asAdmin(newRequest(http.MethodGet, "/", ""), uuid.New()), "eventId", row.EventID.String())
		resp := httptest.NewRecorder()
		AdminGetDeadLetter(&fakeDeadLetters{findErr: errors.New("conn refused")}, testLogger())(resp, req)
		assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	})
}
