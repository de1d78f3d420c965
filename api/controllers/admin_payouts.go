package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorledger-backend/api/responses"
	"github.com/angelmondragon/vendorledger-backend/api/validators"
	"github.com/angelmondragon/vendorledger-backend/internal/payouts"
	"github.com/angelmondragon/vendorledger-backend/pkg/logger"
)

type approveBody struct {
	Notes *string `json:"notes" validate:"omitempty,max=1000"`
}

type rejectBody struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

type markPaidBody struct {
	TransactionRef *string `json:"transactionRef" validate:"omitempty,max=255"`
	Notes          *string `json:"notes" validate:"omitempty,max=1000"`
}

func AdminListPayouts(console payouts.Console, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if console == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("payout console"))
			return
		}
		base, err := parseVendorListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendorID, err := validators.ParseQueryUUID(r, "vendorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := r.URL.Query()
		result, err := console.ListAdmin(r.Context(), payouts.AdminListParams{
			VendorListParams: base,
			VendorID:         vendorID,
			SortBy:           strings.TrimSpace(query.Get("sortBy")),
			SortOrder:        strings.TrimSpace(query.Get("sortOrder")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminPayoutStats(console payouts.Console, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if console == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("payout console"))
			return
		}
		stats, err := console.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func AdminGetPayout(console payouts.Console, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if console == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("payout console"))
			return
		}
		payoutID, err := validators.URLParamUUID(r, "payoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := console.Get(r.Context(), payoutID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func AdminApprovePayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payoutID, adminID, ok := adminPayoutTarget(w, r, svc, logg)
		if !ok {
			return
		}
		var body approveBody
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Approve(r.Context(), payoutID, adminID, body.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func AdminRejectPayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payoutID, adminID, ok := adminPayoutTarget(w, r, svc, logg)
		if !ok {
			return
		}
		var body rejectBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Reject(r.Context(), payoutID, adminID, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func AdminMarkPayoutPaid(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payoutID, adminID, ok := adminPayoutTarget(w, r, svc, logg)
		if !ok {
			return
		}
		var body markPaidBody
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.MarkPaid(r.Context(), payoutID, adminID, payouts.MarkPaidInput{
			TransactionRef: body.TransactionRef,
			Notes:          body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// adminPayoutTarget writes the error response itself and reports false when
// the request cannot proceed.
func adminPayoutTarget(w http.ResponseWriter, r *http.Request, svc payouts.Service, logg *logger.Logger) (uuid.UUID, uuid.UUID, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, unavailable("payout service"))
		return uuid.Nil, uuid.Nil, false
	}
	adminID, err := actorFromRequest(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, uuid.Nil, false
	}
	payoutID, err := validators.URLParamUUID(r, "payoutId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, uuid.Nil, false
	}
	return payoutID, adminID, true
}
