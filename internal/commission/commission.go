// Package commission splits an order item's revenue between the platform and
// the selling vendor.
package commission

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger-backend/pkg/config"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger-backend/pkg/errors"
	"github.com/angelmondragon/vendorledger-backend/pkg/money"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// Item is the pricing input for one order line.
type Item struct {
	Price    decimal.Decimal
	Quantity int
	VendorID *uuid.UUID
}

// VendorConfig is the commission configuration a vendor carries.
type VendorConfig struct {
	Type enums.CommissionType
	Rate decimal.Decimal
}

// Options tunes a calculation. Default applies when an item has a vendor but
// that vendor's configuration could not be loaded.
type Options struct {
	ShippingFee decimal.Decimal
	Default     VendorConfig
}

// Result holds unrounded amounts. Call Rounded before persisting.
type Result struct {
	ItemRevenue        decimal.Decimal
	VendorEarning      decimal.Decimal
	PlatformCommission decimal.Decimal
	CommissionType     *enums.CommissionType
	CommissionRate     decimal.Decimal
	Shortfall          decimal.Decimal
}

// DefaultConfig converts the configured fallback into a VendorConfig.
func DefaultConfig(cfg config.CommissionConfig) VendorConfig {
	kind, err := enums.ParseCommissionType(cfg.DefaultType)
	if err != nil {
		kind = enums.CommissionTypePercent
	}
	return VendorConfig{Type: kind, Rate: cfg.DefaultRate}
}

// Calculate computes the split for item. vendor is nil when the vendor record
// is missing.
func Calculate(item Item, vendor *VendorConfig, opts Options) (Result, error) {
	if item.Price.IsNegative() {
		return Result{}, fieldError("price", "price must not be negative")
	}
	if item.Quantity <= 0 {
		return Result{}, fieldError("quantity", "quantity must be positive")
	}
	if opts.ShippingFee.IsNegative() {
		return Result{}, fieldError("shipping_fee", "shipping fee must not be negative")
	}

	qty := decimal.NewFromInt(int64(item.Quantity))
	revenue := item.Price.Mul(qty).Add(opts.ShippingFee)

	if item.VendorID == nil || *item.VendorID == uuid.Nil {
		return Result{
			ItemRevenue:        revenue,
			VendorEarning:      zero,
			PlatformCommission: revenue,
			CommissionRate:     hundred,
			Shortfall:          zero,
		}, nil
	}

	cfg := opts.Default
	if vendor != nil {
		cfg = *vendor
	}
	if err := validateConfig(cfg); err != nil {
		return Result{}, err
	}

	kind := cfg.Type
	res := Result{
		ItemRevenue:    revenue,
		CommissionType: &kind,
		CommissionRate: cfg.Rate,
		Shortfall:      zero,
	}

	switch cfg.Type {
	case enums.CommissionTypeFlat:
		res.PlatformCommission = cfg.Rate.Mul(qty)
		res.VendorEarning = money.Max(zero, revenue.Sub(res.PlatformCommission))
		if res.PlatformCommission.GreaterThan(revenue) {
			res.Shortfall = res.PlatformCommission.Sub(revenue)
		}
	default:
		res.PlatformCommission = money.Percent(revenue, cfg.Rate)
		res.VendorEarning = revenue.Sub(res.PlatformCommission)
	}
	return res, nil
}

// Rounded applies the single currency rounding. Earning is derived from the
// rounded revenue and commission so the two always sum to revenue, except for
// flat-fee items whose shortfall is reported separately.
func (r Result) Rounded() Result {
	out := r
	out.ItemRevenue = money.Round(r.ItemRevenue)
	out.PlatformCommission = money.Round(r.PlatformCommission)
	out.VendorEarning = out.ItemRevenue.Sub(out.PlatformCommission)
	out.Shortfall = zero
	if out.VendorEarning.IsNegative() {
		out.Shortfall = out.VendorEarning.Neg()
		out.VendorEarning = zero
	}
	return out
}

// HasShortfall reports whether the platform fee exceeded the item revenue.
func (r Result) HasShortfall() bool {
	return r.Shortfall.IsPositive()
}

func validateConfig(cfg VendorConfig) error {
	if !cfg.Type.IsValid() {
		return fieldError("commission_type", "unknown commission type "+strings.TrimSpace(string(cfg.Type)))
	}
	if cfg.Rate.IsNegative() {
		return fieldError("commission_rate", "commission rate must not be negative")
	}
	if cfg.Type == enums.CommissionTypePercent && cfg.Rate.GreaterThan(hundred) {
		return fieldError("commission_rate", "percent commission rate must not exceed 100")
	}
	return nil
}

func fieldError(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(pkgerrors.ValidationReason{
		Reason: "invalid_" + field,
		Field:  field,
	})
}
