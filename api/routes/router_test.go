package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vendorledger-backend/internal/vendors"
	"github.com/angelmondragon/vendorledger-backend/pkg/auth"
	"github.com/angelmondragon/vendorledger-backend/pkg/config"
	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	"github.com/angelmondragon/vendorledger-backend/pkg/logger"
	"github.com/angelmondragon/vendorledger-backend/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubStore struct {
	allow bool
}

func (stubStore) Ping(context.Context) error                            { return nil }
func (stubStore) Get(context.Context, string) (string, error)           { return "", nil }
func (stubStore) Set(context.Context, string, any, time.Duration) error { return nil }
func (stubStore) SetNX(context.Context, string, any, time.Duration) (bool, error) {
	return true, nil
}
func (stubStore) IdempotencyKey(scope, id string) string { return "idem:" + scope + ":" + id }
func (stubStore) Del(context.Context, ...string) error   { return nil }
func (s stubStore) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	if s.allow {
		return true, 0, nil
	}
	return false, 60, nil
}

type stubVendors struct{}

func (stubVendors) Get(ctx context.Context, vendorID uuid.UUID) (*vendors.Profile, error) {
	return &vendors.Profile{ID: vendorID, BusinessName: "Acme"}, nil
}

func (stubVendors) UpdatePayoutSettings(ctx context.Context, vendorID uuid.UUID, input vendors.PayoutSettingsInput) (*vendors.Profile, error) {
	return &vendors.Profile{ID: vendorID, PayoutMethod: input.Method}, nil
}

func (stubVendors) Adjust(ctx context.Context, input vendors.AdjustmentInput) (*models.VendorBalances, error) {
	return &models.VendorBalances{VendorID: input.VendorID}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "vendorledger-test", ExpirationMinutes: 5},
		RateLimit: config.RateLimitConfig{
			PayoutRequestWindow: time.Hour,
			PayoutRequestLimit:  1,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

func newTestRouter(t *testing.T, store stubStore) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	reg := prometheus.NewRegistry()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	router := NewRouter(cfg, logg, stubPinger{}, store, reg, metrics.NewHTTPMetrics(reg), Services{
		Vendors: stubVendors{},
	})
	return router, cfg
}

func bearer(t *testing.T, cfg *config.Config, role enums.Role, vendorID *uuid.UUID) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{
		UserID:   uuid.New(),
		Role:     role,
		VendorID: vendorID,
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthAndMetrics(t *testing.T) {
	router, _ := newTestRouter(t, stubStore{allow: true})

	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, resp.Code, path)
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "vendorledger_http_requests_total")
}

func TestVendorRoutesRequireToken(t *testing.T) {
	router, _ := newTestRouter(t, stubStore{allow: true})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/vendor/me", nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestVendorProfileRoute(t *testing.T) {
	router, cfg := newTestRouter(t, stubStore{allow: true})
	vendorID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendor/me", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.RoleVendor, &vendorID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), vendorID.String())
}

func TestRoleSeparation(t *testing.T) {
	router, cfg := newTestRouter(t, stubStore{allow: true})
	vendorID := uuid.New()

	cases := []struct {
		name   string
		method string
		path   string
		role   enums.Role
		vendor *uuid.UUID
	}{
		{name: "vendor on admin", method: http.MethodGet, path: "/api/v1/admin/payouts", role: enums.RoleVendor, vendor: &vendorID},
		{name: "admin on vendor", method: http.MethodGet, path: "/api/v1/vendor/me", role: enums.RoleAdmin},
		{name: "vendor on internal", method: http.MethodGet, path: "/api/v1/internal/orders/" + uuid.NewString(), role: enums.RoleVendor, vendor: &vendorID},
		{name: "vendor token without vendor id", method: http.MethodGet, path: "/api/v1/vendor/me", role: enums.RoleVendor},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			req.Header.Set("Authorization", bearer(t, cfg, tc.role, tc.vendor))
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			require.Equal(t, http.StatusForbidden, resp.Code)
		})
	}
}

func TestPayoutRequestNeedsIdempotencyKey(t *testing.T) {
	router, cfg := newTestRouter(t, stubStore{allow: true})
	vendorID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/payouts/request", strings.NewReader(`{"amount":"60"}`))
	req.Header.Set("Authorization", bearer(t, cfg, enums.RoleVendor, &vendorID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestPayoutRequestRateLimited(t *testing.T) {
	router, cfg := newTestRouter(t, stubStore{allow: false})
	vendorID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/payouts/request", strings.NewReader(`{"amount":"60"}`))
	req.Header.Set("Authorization", bearer(t, cfg, enums.RoleVendor, &vendorID))
	req.Header.Set("Idempotency-Key", "k-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	require.NotEmpty(t, resp.Header().Get("Retry-After"))
}
