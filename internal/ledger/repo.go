package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
)

const (
	creditSQL = `UPDATE vendors SET available_balance = available_balance + ?, total_earnings = total_earnings + ?, total_sales = total_sales + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	debitSQL  = `UPDATE vendors SET available_balance = available_balance - ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND available_balance >= ?`

	reserveSQL = `UPDATE vendors SET available_balance = available_balance - ?, pending_balance = pending_balance + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND available_balance >= ?`
	releaseSQL = `UPDATE vendors SET pending_balance = CASE WHEN pending_balance >= ? THEN pending_balance - ? ELSE 0 END, available_balance = available_balance + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	settleSQL  = `UPDATE vendors SET pending_balance = CASE WHEN pending_balance >= ? THEN pending_balance - ? ELSE 0 END, withdrawn_amount = withdrawn_amount + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
)

// Repository issues the atomic balance statements and appends audit rows.
// Every mutator returns the number of vendor rows it touched.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Credit(ctx context.Context, vendorID uuid.UUID, amount decimal.Decimal) (int64, error)
	Debit(ctx context.Context, vendorID uuid.UUID, amount decimal.Decimal) (int64, error)
	Reserve(ctx context.Context, vendorID uuid.UUID, amount decimal.Decimal) (int64, error)
	Release(ctx context.Context, vendorID uuid.UUID, amount decimal.Decimal) (int64, error)
	Settle(ctx context.Context, vendorID uuid.UUID, amount decimal.Decimal) (int64, error)
	VendorExists(ctx context.Context, vendorID uuid.UUID) (bool, error)
	Balances(ctx context.Context, vendorID uuid.UUID) (*models.VendorBalances, error)
	CreateEvent(ctx context.Context, event *models.LedgerEvent) error
	ListByVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.LedgerEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res := r.db.WithContext(ctx).Exec(query, args...)
	return res.RowsAffected, res.Error
}

func (r *repository) Credit(ctx context.Context, vendorID uuid.UUID, amount decimal.Decimal) (int64, error) {
	return r.exec(ctx, creditSQL, amount, amount, vendorID)
}

func (r *repository) Debit(ctx context.Context, vendorID uuid.UUID, amount decimal.Decimal) (int64, error) {
	return r.exec(ctx, debitSQL, amount, vendorID, amount)
}

func (r *repository) Reserve(ctx context.Context, vendorID uuid.UUID, amount decimal.Decimal) (int64, error) {
	return r.exec(ctx, reserveSQL, amount, amount, vendorID, amount)
}

func (r *repository) Release(ctx context.Context, vendorID uuid.UUID, amount decimal.Decimal) (int64, error) {
	return r.exec(ctx, releaseSQL, amount, amount, amount, vendorID)
}

func (r *repository) Settle(ctx context.Context, vendorID uuid.UUID, amount decimal.Decimal) (int64, error) {
	return r.exec(ctx, settleSQL, amount, amount, amount, vendorID)
}

func (r *repository) VendorExists(ctx context.Context, vendorID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", vendorID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) Balances(ctx context.Context, vendorID uuid.UUID) (*models.VendorBalances, error) {
	var balances models.VendorBalances
	err := r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Select("id, available_balance, pending_balance, withdrawn_amount, total_earnings, total_sales").
		Where("id = ?", vendorID).
		Take(&balances).Error
	if err != nil {
		return nil, err
	}
	return &balances, nil
}

func (r *repository) CreateEvent(ctx context.Context, event *models.LedgerEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.LedgerEvent, error) {
	var events []models.LedgerEvent
	query := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
