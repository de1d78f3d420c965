package commission

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vendorledger-backend/pkg/config"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger-backend/pkg/errors"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func vendorPtr() *uuid.UUID {
	id := uuid.New()
	return &id
}

var defaultOpts = Options{Default: VendorConfig{Type: enums.CommissionTypePercent, Rate: d("10")}}

func TestCalculatePercentCommission(t *testing.T) {
	res, err := Calculate(
		Item{Price: d("100"), Quantity: 2, VendorID: vendorPtr()},
		&VendorConfig{Type: enums.CommissionTypePercent, Rate: d("15")},
		defaultOpts,
	)
	require.NoError(t, err)
	res = res.Rounded()

	assert.True(t, res.ItemRevenue.Equal(d("200.00")), "revenue %s", res.ItemRevenue)
	assert.True(t, res.PlatformCommission.Equal(d("30.00")), "commission %s", res.PlatformCommission)
	assert.True(t, res.VendorEarning.Equal(d("170.00")), "earning %s", res.VendorEarning)
	require.NotNil(t, res.CommissionType)
	assert.Equal(t, enums.CommissionTypePercent, *res.CommissionType)
	assert.True(t, res.CommissionRate.Equal(d("15")))
	assert.False(t, res.HasShortfall())
}

func TestCalculateFlatCommission(t *testing.T) {
	res, err := Calculate(
		Item{Price: d("50"), Quantity: 3, VendorID: vendorPtr()},
		&VendorConfig{Type: enums.CommissionTypeFlat, Rate: d("5")},
		defaultOpts,
	)
	require.NoError(t, err)
	res = res.Rounded()

	assert.True(t, res.ItemRevenue.Equal(d("150.00")))
	assert.True(t, res.PlatformCommission.Equal(d("15.00")))
	assert.True(t, res.VendorEarning.Equal(d("135.00")))
	assert.True(t, res.Shortfall.IsZero())
}

func TestCalculateFlatShortfallIsReported(t *testing.T) {
	res, err := Calculate(
		Item{Price: d("3"), Quantity: 2, VendorID: vendorPtr()},
		&VendorConfig{Type: enums.CommissionTypeFlat, Rate: d("5")},
		defaultOpts,
	)
	require.NoError(t, err)
	assert.True(t, res.Shortfall.Equal(d("4")))

	res = res.Rounded()
	assert.True(t, res.ItemRevenue.Equal(d("6.00")))
	assert.True(t, res.PlatformCommission.Equal(d("10.00")), "commission is not reduced")
	assert.True(t, res.VendorEarning.IsZero())
	assert.True(t, res.Shortfall.Equal(d("4.00")))
	assert.True(t, res.VendorEarning.Add(res.PlatformCommission).Sub(res.Shortfall).Equal(res.ItemRevenue))
}

func TestCalculateWithoutVendorKeepsEverything(t *testing.T) {
	res, err := Calculate(Item{Price: d("19.99"), Quantity: 3}, nil, defaultOpts)
	require.NoError(t, err)
	res = res.Rounded()

	assert.True(t, res.ItemRevenue.Equal(d("59.97")))
	assert.True(t, res.PlatformCommission.Equal(d("59.97")))
	assert.True(t, res.VendorEarning.IsZero())
	assert.True(t, res.CommissionRate.Equal(d("100")))
	assert.Nil(t, res.CommissionType)
}

func TestCalculateMissingVendorConfigUsesDefault(t *testing.T) {
	opts := Options{Default: DefaultConfig(config.CommissionConfig{DefaultType: "percent", DefaultRate: d("10")})}
	res, err := Calculate(Item{Price: d("80"), Quantity: 1, VendorID: vendorPtr()}, nil, opts)
	require.NoError(t, err)
	res = res.Rounded()

	assert.True(t, res.PlatformCommission.Equal(d("8.00")))
	assert.True(t, res.VendorEarning.Equal(d("72.00")))
	assert.True(t, res.CommissionRate.Equal(d("10")))
}

func TestCalculateAddsShippingFee(t *testing.T) {
	opts := defaultOpts
	opts.ShippingFee = d("5.50")
	res, err := Calculate(Item{Price: d("10"), Quantity: 1, VendorID: vendorPtr()}, nil, opts)
	require.NoError(t, err)
	res = res.Rounded()

	assert.True(t, res.ItemRevenue.Equal(d("15.50")))
	assert.True(t, res.PlatformCommission.Equal(d("1.55")))
	assert.True(t, res.VendorEarning.Equal(d("13.95")))
}

func TestRoundingHappensOnce(t *testing.T) {
	res, err := Calculate(
		Item{Price: d("33.33"), Quantity: 3, VendorID: vendorPtr()},
		&VendorConfig{Type: enums.CommissionTypePercent, Rate: d("12.5")},
		defaultOpts,
	)
	require.NoError(t, err)
	assert.True(t, res.PlatformCommission.Equal(d("12.49875")), "unrounded commission %s", res.PlatformCommission)

	rounded := res.Rounded()
	assert.True(t, rounded.ItemRevenue.Equal(d("99.99")))
	assert.True(t, rounded.PlatformCommission.Equal(d("12.50")))
	assert.True(t, rounded.VendorEarning.Equal(d("87.49")))
}

func TestEarningPlusCommissionEqualsRevenue(t *testing.T) {
	prices := []string{"0.01", "0.99", "9.99", "17.35", "100", "1234.56"}
	rates := []VendorConfig{
		{Type: enums.CommissionTypePercent, Rate: d("0")},
		{Type: enums.CommissionTypePercent, Rate: d("7.25")},
		{Type: enums.CommissionTypePercent, Rate: d("33.3333")},
		{Type: enums.CommissionTypePercent, Rate: d("100")},
		{Type: enums.CommissionTypeFlat, Rate: d("0.5")},
		{Type: enums.CommissionTypeFlat, Rate: d("2.75")},
	}
	tolerance := d("0.01")

	for _, price := range prices {
		for qty := 1; qty <= 4; qty++ {
			for _, cfg := range rates {
				cfg := cfg
				res, err := Calculate(Item{Price: d(price), Quantity: qty, VendorID: vendorPtr()}, &cfg, defaultOpts)
				require.NoError(t, err)
				r := res.Rounded()

				assert.False(t, r.VendorEarning.IsNegative())
				sum := r.VendorEarning.Add(r.PlatformCommission).Sub(r.Shortfall)
				diff := sum.Sub(r.ItemRevenue).Abs()
				assert.True(t, diff.LessThanOrEqual(tolerance),
					"price=%s qty=%d cfg=%+v earning=%s commission=%s revenue=%s", price, qty, cfg, r.VendorEarning, r.PlatformCommission, r.ItemRevenue)
			}
		}
	}
}

func TestCalculateValidation(t *testing.T) {
	tests := []struct {
		name   string
		item   Item
		vendor *VendorConfig
		opts   Options
		field  string
	}{
		{name: "negative price", item: Item{Price: d("-1"), Quantity: 1}, opts: defaultOpts, field: "price"},
		{name: "zero quantity", item: Item{Price: d("1"), Quantity: 0}, opts: defaultOpts, field: "quantity"},
		{name: "negative quantity", item: Item{Price: d("1"), Quantity: -2}, opts: defaultOpts, field: "quantity"},
		{
			name:   "negative rate",
			item:   Item{Price: d("1"), Quantity: 1, VendorID: vendorPtr()},
			vendor: &VendorConfig{Type: enums.CommissionTypeFlat, Rate: d("-0.01")},
			opts:   defaultOpts,
			field:  "commission_rate",
		},
		{
			name:   "percent above 100",
			item:   Item{Price: d("1"), Quantity: 1, VendorID: vendorPtr()},
			vendor: &VendorConfig{Type: enums.CommissionTypePercent, Rate: d("100.01")},
			opts:   defaultOpts,
			field:  "commission_rate",
		},
		{
			name:   "unknown type",
			item:   Item{Price: d("1"), Quantity: 1, VendorID: vendorPtr()},
			vendor: &VendorConfig{Type: "tiered", Rate: d("1")},
			opts:   defaultOpts,
			field:  "commission_type",
		},
		{
			name:  "negative shipping",
			item:  Item{Price: d("1"), Quantity: 1},
			opts:  Options{ShippingFee: d("-1"), Default: defaultOpts.Default},
			field: "shipping_fee",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Calculate(tc.item, tc.vendor, tc.opts)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
			details, ok := typed.Details().(pkgerrors.ValidationReason)
			require.True(t, ok)
			assert.Equal(t, tc.field, details.Field)
		})
	}
}

func TestDefaultConfigFallsBackToPercent(t *testing.T) {
	cfg := DefaultConfig(config.CommissionConfig{DefaultType: "FLAT", DefaultRate: d("2")})
	assert.Equal(t, enums.CommissionTypeFlat, cfg.Type)

	cfg = DefaultConfig(config.CommissionConfig{DefaultType: "bogus", DefaultRate: d("2")})
	assert.Equal(t, enums.CommissionTypePercent, cfg.Type)
}
