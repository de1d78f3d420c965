package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger-backend/api/responses"
	"github.com/angelmondragon/vendorledger-backend/api/validators"
	"github.com/angelmondragon/vendorledger-backend/internal/payouts"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger-backend/pkg/errors"
	"github.com/angelmondragon/vendorledger-backend/pkg/logger"
)

type payoutRequestBody struct {
	Amount *decimal.Decimal `json:"amount" validate:"required,positive,currency"`
	Notes  *string          `json:"notes" validate:"omitempty,max=1000"`
}

// VendorRequestPayout reserves funds for a withdrawal.
func VendorRequestPayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("payout service"))
			return
		}
		vendorID, err := vendorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actorID, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body payoutRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Request(r.Context(), vendorID, payouts.RequestInput{
			Amount:      *body.Amount,
			Notes:       body.Notes,
			ActorUserID: actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// VendorListPayouts pages through the caller's payout history.
func VendorListPayouts(console payouts.Console, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if console == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("payout console"))
			return
		}
		vendorID, err := vendorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := parseVendorListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := console.ListVendor(r.Context(), vendorID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func VendorGetPayout(console payouts.Console, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if console == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("payout console"))
			return
		}
		vendorID, err := vendorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payoutID, err := validators.URLParamUUID(r, "payoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := console.GetForVendor(r.Context(), vendorID, payoutID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// VendorCancelPayout withdraws a still-requested payout and refunds it.
func VendorCancelPayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("payout service"))
			return
		}
		vendorID, err := vendorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payoutID, err := validators.URLParamUUID(r, "payoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Cancel(r.Context(), vendorID, payoutID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func parseVendorListParams(r *http.Request) (payouts.VendorListParams, error) {
	var params payouts.VendorListParams
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParsePayoutStatus(raw)
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		params.Status = &status
	}
	start, err := validators.ParseQueryTime(r, "startDate", false)
	if err != nil {
		return params, err
	}
	end, err := validators.ParseQueryTime(r, "endDate", true)
	if err != nil {
		return params, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return params, pkgerrors.New(pkgerrors.CodeValidation, "endDate must not precede startDate")
	}
	page, err := validators.ParsePage(r)
	if err != nil {
		return params, err
	}
	params.StartDate, params.EndDate, params.Page = start, end, page
	return params, nil
}
