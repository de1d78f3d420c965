package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
)

// Order is a paid buyer order as reported by the payment collaborator.
type Order struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	BuyerRef    string          `gorm:"column:buyer_ref;not null"`
	PaymentRef  string          `gorm:"column:payment_ref;not null"`
	ShippingFee decimal.Decimal `gorm:"column:shipping_fee;type:numeric(14,2);not null;default:0"`
	Subtotal    decimal.Decimal `gorm:"column:subtotal;type:numeric(14,2);not null"`
	Total       decimal.Decimal `gorm:"column:total;type:numeric(14,2);not null"`
	PlacedAt    time.Time       `gorm:"column:placed_at;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`

	Items           []OrderItem          `gorm:"foreignKey:OrderID;references:ID"`
	VendorSummaries []OrderVendorSummary `gorm:"foreignKey:OrderID;references:ID"`
}

func (Order) TableName() string { return "orders" }

// OrderItem is one line of an order. Commission columns are snapshots written
// at creation and never updated.
type OrderItem struct {
	ID                  uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	OrderID             uuid.UUID              `gorm:"column:order_id;type:uuid;not null"`
	VendorID            *uuid.UUID             `gorm:"column:vendor_id;type:uuid"`
	ProductRef          string                 `gorm:"column:product_ref;not null"`
	Title               string                 `gorm:"column:title;not null"`
	Price               decimal.Decimal        `gorm:"column:price;type:numeric(14,2);not null"`
	Quantity            int                    `gorm:"column:quantity;not null"`
	ItemRevenue         decimal.Decimal        `gorm:"column:item_revenue;type:numeric(14,2);not null"`
	VendorEarning       decimal.Decimal        `gorm:"column:vendor_earning;type:numeric(14,2);not null"`
	PlatformCommission  decimal.Decimal        `gorm:"column:platform_commission;type:numeric(14,2);not null"`
	CommissionType      *enums.CommissionType  `gorm:"column:commission_type;type:text"`
	CommissionRate      decimal.Decimal        `gorm:"column:commission_rate;type:numeric(12,4);not null"`
	CommissionShortfall decimal.Decimal        `gorm:"column:commission_shortfall;type:numeric(14,2);not null;default:0"`
	VendorStatus        enums.ItemVendorStatus `gorm:"column:vendor_status;type:text;not null"`
	DeliveredAt         *time.Time             `gorm:"column:delivered_at"`
	CreatedAt           time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderItem) TableName() string { return "order_items" }

// OrderVendorSummary is the per-vendor aggregate of an order's items.
type OrderVendorSummary struct {
	OrderID            uuid.UUID       `gorm:"column:order_id;type:uuid;primaryKey"`
	VendorID           uuid.UUID       `gorm:"column:vendor_id;type:uuid;primaryKey"`
	Position           int             `gorm:"column:position;not null"`
	ItemCount          int             `gorm:"column:item_count;not null"`
	TotalRevenue       decimal.Decimal `gorm:"column:total_revenue;type:numeric(14,2);not null"`
	TotalCommission    decimal.Decimal `gorm:"column:total_commission;type:numeric(14,2);not null"`
	TotalVendorEarning decimal.Decimal `gorm:"column:total_vendor_earning;type:numeric(14,2);not null"`
}

func (OrderVendorSummary) TableName() string { return "order_vendor_summaries" }
