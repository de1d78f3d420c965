package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorledger-backend/internal/notifications"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	"github.com/angelmondragon/vendorledger-backend/pkg/pagination"
)

type testNotificationsService struct {
	markReadFn    func(ctx context.Context, vendorID, notificationID uuid.UUID) error
	markAllReadFn func(ctx context.Context, vendorID uuid.UUID) (int64, error)
	listFn        func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error)
}

func (s *testNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &notifications.ListResult{}, nil
}

func (s *testNotificationsService) MarkRead(ctx context.Context, vendorID, notificationID uuid.UUID) error {
	if s.markReadFn != nil {
		return s.markReadFn(ctx, vendorID, notificationID)
	}
	return nil
}

func (s *testNotificationsService) MarkAllRead(ctx context.Context, vendorID uuid.UUID) (int64, error) {
	if s.markAllReadFn != nil {
		return s.markAllReadFn(ctx, vendorID)
	}
	return 0, nil
}

func TestListNotificationsPassesFilters(t *testing.T) {
	vendorID := uuid.New()
	var got notifications.ListParams
	svc := &testNotificationsService{
		listFn: func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
			got = params
			return &notifications.ListResult{Items: []notifications.View{}}, nil
		},
	}

	req := asVendor(newRequest(http.MethodGet, "/api/v1/vendor/notifications?unreadOnly=true&page=2&limit=10&type=payout_alert", ""), uuid.New(), vendorID)
	resp := httptest.NewRecorder()
	ListNotifications(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if got.VendorID != vendorID || !got.UnreadOnly || got.Type != enums.NotificationTypePayoutAlert {
		t.Fatalf("unexpected params %+v", got)
	}
	if got.Page != (pagination.Params{Page: 2, Limit: 10}) {
		t.Fatalf("unexpected page %+v", got.Page)
	}
}

func TestListNotificationsRejectsBadFilters(t *testing.T) {
	for _, query := range []string{"unreadOnly=maybe", "type=marketing"} {
		req := asVendor(newRequest(http.MethodGet, "/api/v1/vendor/notifications?"+query, ""), uuid.New(), uuid.New())
		resp := httptest.NewRecorder()
		ListNotifications(&testNotificationsService{}, testLogger())(resp, req)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", query, resp.Code)
		}
	}
}

func TestMarkNotificationReadSuccess(t *testing.T) {
	vendorID := uuid.New()
	notificationID := uuid.New()
	called := false
	svc := &testNotificationsService{
		markReadFn: func(ctx context.Context, vid, nid uuid.UUID) error {
			called = true
			if vid != vendorID {
				t.Fatalf("unexpected vendor %s", vid)
			}
			if nid != notificationID {
				t.Fatalf("unexpected notification %s", nid)
			}
			return nil
		},
	}

	req := asVendor(newRequest(http.MethodPost, "/api/v1/vendor/notifications/"+notificationID.String()+"/read", ""), uuid.New(), vendorID)
	req = addRouteParam(req, "notificationId", notificationID.String())

	resp := httptest.NewRecorder()
	MarkNotificationRead(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
	var data map[string]any
	decodeData(t, resp, &data)
	if data["read"] != true {
		t.Fatal("response missing read flag")
	}
}

func TestMarkNotificationReadMissingVendor(t *testing.T) {
	req := newRequest(http.MethodPost, "/api/v1/vendor/notifications/"+uuid.NewString()+"/read", "")
	req = addRouteParam(req, "notificationId", uuid.NewString())
	resp := httptest.NewRecorder()
	MarkNotificationRead(&testNotificationsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestMarkNotificationReadInvalidID(t *testing.T) {
	req := asVendor(newRequest(http.MethodPost, "/api/v1/vendor/notifications/invalid/read", ""), uuid.New(), uuid.New())
	req = addRouteParam(req, "notificationId", "invalid")
	resp := httptest.NewRecorder()
	MarkNotificationRead(&testNotificationsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestMarkAllNotificationsReadSuccess(t *testing.T) {
	vendorID := uuid.New()
	svc := &testNotificationsService{
		markAllReadFn: func(ctx context.Context, vid uuid.UUID) (int64, error) {
			if vid != vendorID {
				t.Fatalf("unexpected vendor %s", vid)
			}
			return 5, nil
		},
	}

	req := asVendor(newRequest(http.MethodPost, "/api/v1/vendor/notifications/read-all", ""), uuid.New(), vendorID)
	resp := httptest.NewRecorder()
	MarkAllNotificationsRead(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var data map[string]float64
	decodeData(t, resp, &data)
	if data["updated"] != 5 {
		t.Fatalf("expected updated=5 got %v", data["updated"])
	}
}
