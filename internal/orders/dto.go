package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
)

// PlaceOrderInput is what the payment collaborator reports once a payment
// has succeeded.
type PlaceOrderInput struct {
	BuyerRef    string
	PaymentRef  string
	ShippingFee decimal.Decimal
	Items       []PlaceOrderItem
}

// PlaceOrderItem is one purchased line.
type PlaceOrderItem struct {
	VendorID   *uuid.UUID
	ProductRef string
	Title      string
	Price      decimal.Decimal
	Quantity   int
}

// UpdateItemStatusInput carries a fulfillment update for one order item.
// VendorID is nil for system callers that may update any item.
type UpdateItemStatusInput struct {
	ItemID      uuid.UUID
	Status      enums.ItemVendorStatus
	VendorID    *uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.Role
}

// OrderView is the API shape of a recorded order.
type OrderView struct {
	ID          uuid.UUID           `json:"id"`
	BuyerRef    string              `json:"buyer_ref"`
	PaymentRef  string              `json:"payment_ref"`
	ShippingFee decimal.Decimal     `json:"shipping_fee"`
	Subtotal    decimal.Decimal     `json:"subtotal"`
	Total       decimal.Decimal     `json:"total"`
	PlacedAt    time.Time           `json:"placed_at"`
	Items       []ItemView          `json:"items"`
	Vendors     []VendorSummaryView `json:"vendors"`
}

// ItemView exposes an order line with its commission snapshot.
type ItemView struct {
	ID                  uuid.UUID              `json:"id"`
	OrderID             uuid.UUID              `json:"order_id"`
	VendorID            *uuid.UUID             `json:"vendor_id,omitempty"`
	ProductRef          string                 `json:"product_ref"`
	Title               string                 `json:"title"`
	Price               decimal.Decimal        `json:"price"`
	Quantity            int                    `json:"quantity"`
	ItemRevenue         decimal.Decimal        `json:"item_revenue"`
	VendorEarning       decimal.Decimal        `json:"vendor_earning"`
	PlatformCommission  decimal.Decimal        `json:"platform_commission"`
	CommissionType      *enums.CommissionType  `json:"commission_type,omitempty"`
	CommissionRate      decimal.Decimal        `json:"commission_rate"`
	CommissionShortfall decimal.Decimal        `json:"commission_shortfall"`
	VendorStatus        enums.ItemVendorStatus `json:"vendor_status"`
	DeliveredAt         *time.Time             `json:"delivered_at,omitempty"`
}

type VendorSummaryView struct {
	VendorID           uuid.UUID       `json:"vendor_id"`
	ItemCount          int             `json:"item_count"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	TotalCommission    decimal.Decimal `json:"total_commission"`
	TotalVendorEarning decimal.Decimal `json:"total_vendor_earning"`
}

func NewOrderView(o *models.Order) *OrderView {
	if o == nil {
		return nil
	}
	view := &OrderView{
		ID:          o.ID,
		BuyerRef:    o.BuyerRef,
		PaymentRef:  o.PaymentRef,
		ShippingFee: o.ShippingFee,
		Subtotal:    o.Subtotal,
		Total:       o.Total,
		PlacedAt:    o.PlacedAt,
		Items:       make([]ItemView, 0, len(o.Items)),
		Vendors:     make([]VendorSummaryView, 0, len(o.VendorSummaries)),
	}
	for i := range o.Items {
		view.Items = append(view.Items, *NewItemView(&o.Items[i]))
	}
	for _, s := range o.VendorSummaries {
		view.Vendors = append(view.Vendors, VendorSummaryView{
			VendorID:           s.VendorID,
			ItemCount:          s.ItemCount,
			TotalRevenue:       s.TotalRevenue,
			TotalCommission:    s.TotalCommission,
			TotalVendorEarning: s.TotalVendorEarning,
		})
	}
	return view
}

func NewItemView(item *models.OrderItem) *ItemView {
	if item == nil {
		return nil
	}
	return &ItemView{
		ID:                  item.ID,
		OrderID:             item.OrderID,
		VendorID:            item.VendorID,
		ProductRef:          item.ProductRef,
		Title:               item.Title,
		Price:               item.Price,
		Quantity:            item.Quantity,
		ItemRevenue:         item.ItemRevenue,
		VendorEarning:       item.VendorEarning,
		PlatformCommission:  item.PlatformCommission,
		CommissionType:      item.CommissionType,
		CommissionRate:      item.CommissionRate,
		CommissionShortfall: item.CommissionShortfall,
		VendorStatus:        item.VendorStatus,
		DeliveredAt:         item.DeliveredAt,
	}
}
