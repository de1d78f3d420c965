package payouts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
)

// Repository persists payouts. Status changes only go through Transition.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.Payout) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	FindVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error)
	HasRequested(ctx context.Context, vendorID uuid.UUID) (bool, error)
	Transition(ctx context.Context, id uuid.UUID, from, to enums.PayoutStatus, fields map[string]any) (int64, error)
	List(ctx context.Context, filter listFilter) ([]models.Payout, int64, error)
	TotalsByStatus(ctx context.Context, filter listFilter) (map[enums.PayoutStatus]StatusTotal, error)
	SumSince(ctx context.Context, column string, status *enums.PayoutStatus, since time.Time) (StatusTotal, error)
	CountRequestedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ListRequestedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Payout, error)
}

type listFilter struct {
	VendorID  *uuid.UUID
	Status    *enums.PayoutStatus
	StartDate *time.Time
	EndDate   *time.Time
	SortBy    string
	SortDesc  bool
	Limit     int
	Offset    int
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payouts repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) FindVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Where("id = ?", vendorID).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) HasRequested(ctx context.Context, vendorID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("vendor_id = ? AND status = ?", vendorID, enums.PayoutStatusRequested).
		Count(&count).Error
	return count > 0, err
}

// Transition is a compare-and-swap on status. Zero rows means the payout is
// missing or no longer in from.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to enums.PayoutStatus, fields map[string]any) (int64, error) {
	updates := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		updates[k] = v
	}
	updates["status"] = to
	updates["updated_at"] = time.Now().UTC()

	res := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) List(ctx context.Context, filter listFilter) ([]models.Payout, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter, true).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := filter.SortBy + " ASC"
	if filter.SortDesc {
		order = filter.SortBy + " DESC"
	}
	var rows []models.Payout
	err := r.filtered(ctx, filter, true).
		Order(order).
		Order("id ASC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

type statusTotalRow struct {
	Status enums.PayoutStatus
	Count  int64
	Amount decimal.Decimal
}

// TotalsByStatus aggregates every status under the filter's vendor and date
// range, ignoring its status.
func (r *repository) TotalsByStatus(ctx context.Context, filter listFilter) (map[enums.PayoutStatus]StatusTotal, error) {
	var rows []statusTotalRow
	err := r.filtered(ctx, filter, false).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := emptyTotals()
	for _, row := range rows {
		out[row.Status] = StatusTotal{Count: row.Count, Amount: row.Amount}
	}
	return out, nil
}

// SumSince counts and sums payouts whose column is at or after since.
func (r *repository) SumSince(ctx context.Context, column string, status *enums.PayoutStatus, since time.Time) (StatusTotal, error) {
	q := r.db.WithContext(ctx).Model(&models.Payout{}).Where(column+" >= ?", since)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var row struct {
		Count  int64
		Amount decimal.Decimal
	}
	err := q.Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").Scan(&row).Error
	return StatusTotal{Count: row.Count, Amount: row.Amount}, err
}

func (r *repository) CountRequestedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("status = ? AND requested_at < ?", enums.PayoutStatusRequested, cutoff).
		Count(&count).Error
	return count, err
}

// ListRequestedBefore returns the oldest still-requested payouts first.
func (r *repository) ListRequestedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Payout, error) {
	var rows []models.Payout
	q := r.db.WithContext(ctx).
		Where("status = ? AND requested_at < ?", enums.PayoutStatusRequested, cutoff).
		Order("requested_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) filtered(ctx context.Context, filter listFilter, withStatus bool) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Payout{})
	if filter.VendorID != nil {
		q = q.Where("vendor_id = ?", *filter.VendorID)
	}
	if withStatus && filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.StartDate != nil {
		q = q.Where("requested_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		q = q.Where("requested_at <= ?", *filter.EndDate)
	}
	return q
}

func emptyTotals() map[enums.PayoutStatus]StatusTotal {
	out := make(map[enums.PayoutStatus]StatusTotal, len(enums.PayoutStatuses()))
	for _, status := range enums.PayoutStatuses() {
		out[status] = StatusTotal{Amount: decimal.Zero}
	}
	return out
}
