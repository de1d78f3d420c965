package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger-backend/api/responses"
	"github.com/angelmondragon/vendorledger-backend/api/validators"
	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger-backend/pkg/errors"
	"github.com/angelmondragon/vendorledger-backend/pkg/logger"
	"github.com/angelmondragon/vendorledger-backend/pkg/outbox"
)

// DeadLetters reads the outbox DLQ.
type DeadLetters interface {
	List(ctx context.Context, filter outbox.DLQFilter) ([]models.OutboxDLQ, error)
	FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error)
}

// AdminListDeadLetters supports ?reason, ?eventType and ?limit.
func AdminListDeadLetters(dlq DeadLetters, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dlq == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("outbox dlq"))
			return
		}
		filter, err := parseDLQFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := dlq.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letters"))
			return
		}
		views := make([]outbox.DLQView, 0, len(rows))
		for _, row := range rows {
			views = append(views, outbox.NewDLQView(row, false))
		}
		responses.WriteSuccess(w, map[string]any{"dead_letters": views})
	}
}

func AdminGetDeadLetter(dlq DeadLetters, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dlq == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("outbox dlq"))
			return
		}
		eventID, err := validators.URLParamUUID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := dlq.FindByEventID(r.Context(), eventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "dead letter not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dead letter"))
			return
		}
		responses.WriteSuccess(w, outbox.NewDLQView(*row, true))
	}
}

func parseDLQFilter(r *http.Request) (outbox.DLQFilter, error) {
	query := r.URL.Query()
	var filter outbox.DLQFilter
	if raw := strings.TrimSpace(query.Get("reason")); raw != "" {
		reason, err := enums.ParseOutboxDLQErrorReason(raw)
		if err != nil {
			return filter, pkgerrors.Validation("invalid_reason", err.Error())
		}
		filter.Reason = reason
	}
	if raw := strings.TrimSpace(query.Get("eventType")); raw != "" {
		eventType, err := enums.ParseOutboxEventType(raw)
		if err != nil {
			return filter, pkgerrors.Validation("invalid_event_type", err.Error())
		}
		filter.EventType = eventType
	}
	limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit
	return filter, nil
}
