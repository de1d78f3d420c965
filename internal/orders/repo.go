package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/vendorledger-backend/internal/commission"
	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderByPaymentRef(ctx context.Context, paymentRef string) (*models.Order, error)
	FindItem(ctx context.Context, id uuid.UUID) (*models.OrderItem, error)
	TransitionItemStatus(ctx context.Context, id uuid.UUID, from, to enums.ItemVendorStatus, at time.Time) (int64, error)
	VendorCommissions(ctx context.Context, vendorIDs []uuid.UUID) (map[uuid.UUID]commission.VendorConfig, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(order).Error; err != nil {
		return err
	}
	if len(order.Items) > 0 {
		if err := db.Create(&order.Items).Error; err != nil {
			return err
		}
	}
	if len(order.VendorSummaries) > 0 {
		if err := db.Create(&order.VendorSummaries).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") }).
		Preload("VendorSummaries", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderByPaymentRef(ctx context.Context, paymentRef string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("payment_ref = ?", paymentRef).First(&order).Error; err != nil {
		return nil, err
	}
	return r.FindOrder(ctx, order.ID)
}

func (r *repository) FindItem(ctx context.Context, id uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// TransitionItemStatus moves an item from one status to the next only if it
// is still in from and has not reached a terminal status.
func (r *repository) TransitionItemStatus(ctx context.Context, id uuid.UUID, from, to enums.ItemVendorStatus, at time.Time) (int64, error) {
	updates := map[string]any{
		"vendor_status": to,
		"updated_at":    at,
	}
	if to == enums.ItemVendorStatusDelivered {
		updates["delivered_at"] = at
	}
	res := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ? AND vendor_status = ?", id, from).
		Where("vendor_status NOT IN ?", []enums.ItemVendorStatus{enums.ItemVendorStatusDelivered, enums.ItemVendorStatusCancelled}).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) VendorCommissions(ctx context.Context, vendorIDs []uuid.UUID) (map[uuid.UUID]commission.VendorConfig, error) {
	out := make(map[uuid.UUID]commission.VendorConfig, len(vendorIDs))
	if len(vendorIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ID             uuid.UUID
		CommissionType enums.CommissionType
		CommissionRate decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Select("id, commission_type, commission_rate").
		Where("id IN ?", vendorIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = commission.VendorConfig{Type: row.CommissionType, Rate: row.CommissionRate}
	}
	return out, nil
}
