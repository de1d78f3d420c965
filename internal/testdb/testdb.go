// Package testdb opens throwaway sqlite databases carrying the ledger schema
// so repository and workflow tests run without Postgres.
package testdb

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	"github.com/angelmondragon/vendorledger-backend/pkg/types"
)

var schema = []string{
	`CREATE TABLE vendors (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		business_name TEXT NOT NULL,
		contact_email TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		commission_type TEXT NOT NULL DEFAULT 'percent',
		commission_rate NUMERIC NOT NULL DEFAULT 10,
		available_balance NUMERIC NOT NULL DEFAULT 0 CHECK (available_balance >= 0),
		pending_balance NUMERIC NOT NULL DEFAULT 0 CHECK (pending_balance >= 0),
		withdrawn_amount NUMERIC NOT NULL DEFAULT 0 CHECK (withdrawn_amount >= 0),
		total_earnings NUMERIC NOT NULL DEFAULT 0 CHECK (total_earnings >= 0),
		total_sales INTEGER NOT NULL DEFAULT 0,
		payout_method TEXT NOT NULL DEFAULT 'none',
		payout_details TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		buyer_ref TEXT NOT NULL,
		payment_ref TEXT NOT NULL UNIQUE,
		shipping_fee NUMERIC NOT NULL DEFAULT 0,
		subtotal NUMERIC NOT NULL,
		total NUMERIC NOT NULL,
		placed_at DATETIME NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE order_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES orders(id),
		vendor_id TEXT,
		product_ref TEXT NOT NULL,
		title TEXT NOT NULL,
		price NUMERIC NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		item_revenue NUMERIC NOT NULL,
		vendor_earning NUMERIC NOT NULL CHECK (vendor_earning >= 0),
		platform_commission NUMERIC NOT NULL,
		commission_type TEXT,
		commission_rate NUMERIC NOT NULL,
		commission_shortfall NUMERIC NOT NULL DEFAULT 0,
		vendor_status TEXT NOT NULL DEFAULT 'received',
		delivered_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE order_vendor_summaries (
		order_id TEXT NOT NULL,
		vendor_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		item_count INTEGER NOT NULL,
		total_revenue NUMERIC NOT NULL,
		total_commission NUMERIC NOT NULL,
		total_vendor_earning NUMERIC NOT NULL,
		PRIMARY KEY (order_id, vendor_id)
	)`,
	`CREATE TABLE payouts (
		id TEXT PRIMARY KEY,
		vendor_id TEXT NOT NULL REFERENCES vendors(id),
		amount NUMERIC NOT NULL CHECK (amount > 0),
		status TEXT NOT NULL DEFAULT 'requested',
		payment_method_snapshot TEXT NOT NULL,
		vendor_notes TEXT,
		admin_notes TEXT,
		rejection_reason TEXT,
		transaction_ref TEXT,
		requested_at DATETIME NOT NULL,
		approved_at DATETIME,
		approved_by TEXT,
		rejected_at DATETIME,
		rejected_by TEXT,
		paid_at DATETIME,
		paid_by TEXT,
		cancelled_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX uq_payouts_vendor_requested ON payouts (vendor_id) WHERE status = 'requested'`,
	`CREATE TABLE ledger_events (
		id TEXT PRIMARY KEY,
		vendor_id TEXT NOT NULL,
		type TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		reference TEXT NOT NULL,
		metadata BLOB,
		created_at DATETIME
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE UNIQUE INDEX ux_outbox_events_event_aggregate ON outbox_events (event_type, aggregate_type, aggregate_id) WHERE event_type = 'payout_stale'`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json BLOB NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
	`CREATE TABLE notifications (
		id TEXT PRIMARY KEY,
		vendor_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		link TEXT,
		read_at DATETIME,
		created_at DATETIME
	)`,
}

// Open returns a fresh in-memory database with every ledger table created.
// The pool is pinned to one connection so concurrent callers queue instead of
// hitting sqlite table locks.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

// VendorOption mutates a vendor fixture before insert.
type VendorOption func(*models.Vendor)

// WithAvailable seeds the available balance.
func WithAvailable(amount string) VendorOption {
	return func(v *models.Vendor) { v.AvailableBalance = decimal.RequireFromString(amount) }
}

// WithStatus overrides the approved default.
func WithStatus(status enums.VendorStatus) VendorOption {
	return func(v *models.Vendor) { v.Status = status }
}

// WithPayoutMethod sets the payout method and details.
func WithPayoutMethod(method enums.PayoutMethod, details types.PayoutDetails) VendorOption {
	return func(v *models.Vendor) {
		v.PayoutMethod = method
		v.PayoutDetails = details
	}
}

// WithCommission sets the vendor's commission configuration.
func WithCommission(kind enums.CommissionType, rate string) VendorOption {
	return func(v *models.Vendor) {
		v.CommissionType = kind
		v.CommissionRate = decimal.RequireFromString(rate)
	}
}

// CreateVendor inserts an approved vendor paid by bank transfer.
func CreateVendor(t testing.TB, conn *gorm.DB, opts ...VendorOption) *models.Vendor {
	t.Helper()
	now := time.Now().UTC()
	vendor := &models.Vendor{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		BusinessName:   "Test Vendor",
		ContactEmail:   fmt.Sprintf("vendor_%s@example.com", uuid.NewString()[:8]),
		Status:         enums.VendorStatusApproved,
		CommissionType: enums.CommissionTypePercent,
		CommissionRate: decimal.NewFromInt(10),
		PayoutMethod:   enums.PayoutMethodBankTransfer,
		PayoutDetails: types.PayoutDetails{
			BankName:      "First Bank",
			AccountName:   "Test Vendor LLC",
			AccountNumber: "0123456789",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(vendor)
	}
	if err := conn.Create(vendor).Error; err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	return vendor
}

// LoadVendor reads the vendor row back, failing the test if it is missing.
func LoadVendor(t testing.TB, conn *gorm.DB, id uuid.UUID) *models.Vendor {
	t.Helper()
	var vendor models.Vendor
	if err := conn.Where("id = ?", id).First(&vendor).Error; err != nil {
		t.Fatalf("load vendor: %v", err)
	}
	return &vendor
}
