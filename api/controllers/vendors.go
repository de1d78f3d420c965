package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger-backend/api/responses"
	"github.com/angelmondragon/vendorledger-backend/api/validators"
	"github.com/angelmondragon/vendorledger-backend/internal/ledger"
	"github.com/angelmondragon/vendorledger-backend/internal/vendors"
	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger-backend/pkg/errors"
	"github.com/angelmondragon/vendorledger-backend/pkg/logger"
	"github.com/angelmondragon/vendorledger-backend/pkg/pagination"
	"github.com/angelmondragon/vendorledger-backend/pkg/types"
)

type payoutSettingsBody struct {
	PayoutMethod  string              `json:"payoutMethod" validate:"required"`
	PayoutDetails types.PayoutDetails `json:"payoutDetails"`
}

type adjustmentBody struct {
	Amount *decimal.Decimal `json:"amount" validate:"required,positive"`
	Reason string           `json:"reason" validate:"required,max=500"`
}

func VendorProfile(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("vendor service"))
			return
		}
		vendorID, err := vendorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, err := svc.Get(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// VendorUpdatePayoutSettings replaces where future payouts are sent.
// Existing payouts keep their snapshot.
func VendorUpdatePayoutSettings(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("vendor service"))
			return
		}
		vendorID, err := vendorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body payoutSettingsBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePayoutMethod(body.PayoutMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payoutMethod"))
			return
		}
		profile, err := svc.UpdatePayoutSettings(r.Context(), vendorID, vendors.PayoutSettingsInput{
			Method:  method,
			Details: body.PayoutDetails,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// AdminAdjustVendorBalance debits a vendor's available balance with a
// recorded reason.
func AdminAdjustVendorBalance(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("vendor service"))
			return
		}
		adminID, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendorID, err := validators.URLParamUUID(r, "vendorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body adjustmentBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		balances, err := svc.Adjust(r.Context(), vendors.AdjustmentInput{
			VendorID: vendorID,
			AdminID:  adminID,
			Amount:   *body.Amount,
			Reason:   body.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vendors.NewBalances(balances))
	}
}

type ledgerHistory interface {
	History(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.LedgerEvent, error)
}

// VendorLedgerHistory lists the caller's most recent balance movements.
func VendorLedgerHistory(svc ledgerHistory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("ledger service"))
			return
		}
		vendorID, err := vendorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		events, err := svc.History(r.Context(), vendorID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"events": ledger.NewEventViews(events)})
	}
}
