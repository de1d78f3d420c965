package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vendorledger-backend/internal/orders"
	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger-backend/pkg/errors"
)

type fakeOrderService struct {
	placeFn  func(ctx context.Context, input orders.PlaceOrderInput) (*models.Order, error)
	updateFn func(ctx context.Context, input orders.UpdateItemStatusInput) (*models.OrderItem, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

func (f *fakeOrderService) PlaceOrder(ctx context.Context, input orders.PlaceOrderInput) (*models.Order, error) {
	return f.placeFn(ctx, input)
}

func (f *fakeOrderService) UpdateItemStatus(ctx context.Context, input orders.UpdateItemStatusInput) (*models.OrderItem, error) {
	return f.updateFn(ctx, input)
}

func (f *fakeOrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return f.getFn(ctx, id)
}

func TestInternalPlaceOrder(t *testing.T) {
	vendorID := uuid.New()
	svc := &fakeOrderService{
		placeFn: func(ctx context.Context, input orders.PlaceOrderInput) (*models.Order, error) {
			require.Equal(t, "pay_123", input.PaymentRef)
			require.Len(t, input.Items, 2)
			require.Equal(t, vendorID, *input.Items[0].VendorID)
			require.Nil(t, input.Items[1].VendorID)
			require.True(t, input.ShippingFee.Equal(decimal.NewFromInt(5)))
			return &models.Order{
				ID:         uuid.New(),
				PaymentRef: input.PaymentRef,
				Items: []models.OrderItem{
					{ID: uuid.New(), VendorID: &vendorID, Title: "Mug", VendorStatus: enums.ItemVendorStatusReceived},
					{ID: uuid.New(), Title: "Sticker", VendorStatus: enums.ItemVendorStatusReceived},
				},
			}, nil
		},
	}
	body := `{"buyerRef":"buyer-1","paymentRef":"pay_123","shippingFee":"5","items":[` +
		`{"vendorId":"` + vendorID.String() + `","productRef":"p1","title":"Mug","price":"20","quantity":2},` +
		`{"productRef":"p2","title":"Sticker","price":"3","quantity":1}]}`
	req := asSystem(newRequest(http.MethodPost, "/api/v1/internal/orders", body), uuid.New())
	resp := httptest.NewRecorder()
	InternalPlaceOrder(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	var view orders.OrderView
	decodeData(t, resp, &view)
	require.Len(t, view.Items, 2)
	require.Equal(t, "pay_123", view.PaymentRef)
}

func TestInternalPlaceOrderRequiresItems(t *testing.T) {
	req := asSystem(newRequest(http.MethodPost, "/api/v1/internal/orders", `{"buyerRef":"b","paymentRef":"p","items":[]}`), uuid.New())
	resp := httptest.NewRecorder()
	InternalPlaceOrder(&fakeOrderService{}, testLogger())(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestVendorUpdateItemStatusScopesToVendor(t *testing.T) {
	vendorID, userID, itemID := uuid.New(), uuid.New(), uuid.New()
	svc := &fakeOrderService{
		updateFn: func(ctx context.Context, input orders.UpdateItemStatusInput) (*models.OrderItem, error) {
			require.Equal(t, itemID, input.ItemID)
			require.Equal(t, enums.ItemVendorStatusDelivered, input.Status)
			require.NotNil(t, input.VendorID)
			require.Equal(t, vendorID, *input.VendorID)
			require.Equal(t, userID, input.ActorUserID)
			require.Equal(t, enums.RoleVendor, input.ActorRole)
			return &models.OrderItem{ID: itemID, VendorStatus: input.Status}, nil
		},
	}
	req := asVendor(newRequest(http.MethodPatch, "/api/v1/vendor/order-items/"+itemID.String()+"/status", `{"status":"delivered"}`), userID, vendorID)
	req = addRouteParam(req, "itemId", itemID.String())
	resp := httptest.NewRecorder()
	VendorUpdateItemStatus(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var view orders.ItemView
	decodeData(t, resp, &view)
	require.Equal(t, enums.ItemVendorStatusDelivered, view.VendorStatus)
}

func TestVendorUpdateItemStatusSystemCallerUnscoped(t *testing.T) {
	itemID := uuid.New()
	svc := &fakeOrderService{
		updateFn: func(ctx context.Context, input orders.UpdateItemStatusInput) (*models.OrderItem, error) {
			require.Nil(t, input.VendorID)
			require.Equal(t, enums.RoleSystem, input.ActorRole)
			return &models.OrderItem{ID: itemID, VendorStatus: input.Status}, nil
		},
	}
	req := asSystem(newRequest(http.MethodPatch, "/", `{"status":"shipped"}`), uuid.New())
	req = addRouteParam(req, "itemId", itemID.String())
	resp := httptest.NewRecorder()
	VendorUpdateItemStatus(svc, testLogger())(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestVendorUpdateItemStatusInvalidTransition(t *testing.T) {
	itemID := uuid.New()
	svc := &fakeOrderService{
		updateFn: func(context.Context, orders.UpdateItemStatusInput) (*models.OrderItem, error) {
			return nil, pkgerrors.InvalidTransition("order item", "delivered", "received")
		},
	}
	req := asVendor(newRequest(http.MethodPatch, "/", `{"status":"processing"}`), uuid.New(), uuid.New())
	req = addRouteParam(req, "itemId", itemID.String())
	resp := httptest.NewRecorder()
	VendorUpdateItemStatus(svc, testLogger())(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, string(pkgerrors.CodeInvalidTransition), decodeError(t, resp).Code)
}

func TestVendorUpdateItemStatusUnknownStatus(t *testing.T) {
	req := asVendor(newRequest(http.MethodPatch, "/", `{"status":"lost"}`), uuid.New(), uuid.New())
	req = addRouteParam(req, "itemId", uuid.NewString())
	resp := httptest.NewRecorder()
	VendorUpdateItemStatus(&fakeOrderService{}, testLogger())(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}
