package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger-backend/api/middleware"
	"github.com/angelmondragon/vendorledger-backend/api/responses"
	"github.com/angelmondragon/vendorledger-backend/api/validators"
	"github.com/angelmondragon/vendorledger-backend/internal/orders"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger-backend/pkg/errors"
	"github.com/angelmondragon/vendorledger-backend/pkg/logger"
)

type placeOrderBody struct {
	BuyerRef    string               `json:"buyerRef" validate:"required,max=255"`
	PaymentRef  string               `json:"paymentRef" validate:"required,max=255"`
	ShippingFee decimal.Decimal      `json:"shippingFee" validate:"nonnegative"`
	Items       []placeOrderItemBody `json:"items" validate:"required,min=1,dive"`
}

type placeOrderItemBody struct {
	VendorID   *uuid.UUID       `json:"vendorId"`
	ProductRef string           `json:"productRef" validate:"required,max=255"`
	Title      string           `json:"title" validate:"required,max=255"`
	Price      *decimal.Decimal `json:"price" validate:"required,nonnegative"`
	Quantity   int              `json:"quantity" validate:"required,min=1"`
}

type itemStatusBody struct {
	Status string `json:"status" validate:"required"`
}

// InternalPlaceOrder records a paid order on behalf of the payment
// collaborator. Replays with the same payment reference return the
// existing order.
func InternalPlaceOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("order service"))
			return
		}
		var body placeOrderBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orders.PlaceOrderInput{
			BuyerRef:    body.BuyerRef,
			PaymentRef:  body.PaymentRef,
			ShippingFee: body.ShippingFee,
			Items:       make([]orders.PlaceOrderItem, 0, len(body.Items)),
		}
		for _, item := range body.Items {
			input.Items = append(input.Items, orders.PlaceOrderItem{
				VendorID:   item.VendorID,
				ProductRef: item.ProductRef,
				Title:      item.Title,
				Price:      *item.Price,
				Quantity:   item.Quantity,
			})
		}

		order, err := svc.PlaceOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, orders.NewOrderView(order))
	}
}

// VendorUpdateItemStatus advances fulfillment on one of the vendor's items.
// Moving to delivered credits the vendor's earning.
func VendorUpdateItemStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("order service"))
			return
		}
		actorID, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.URLParamUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body itemStatusBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseItemVendorStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		input := orders.UpdateItemStatusInput{
			ItemID:      itemID,
			Status:      status,
			ActorUserID: actorID,
			ActorRole:   middleware.RoleFromContext(r.Context()),
		}
		if input.ActorRole != enums.RoleSystem {
			vendorID, err := vendorFromRequest(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.VendorID = &vendorID
		}

		item, err := svc.UpdateItemStatus(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.NewItemView(item))
	}
}

func InternalGetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("order service"))
			return
		}
		orderID, err := validators.URLParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.NewOrderView(order))
	}
}
