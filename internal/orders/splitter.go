package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger-backend/internal/commission"
)

// Line is a priced order line ready for grouping.
type Line struct {
	VendorID *uuid.UUID
	Quantity int
	Result   commission.Result
}

// VendorSummary aggregates one vendor's share of an order.
type VendorSummary struct {
	VendorID           uuid.UUID
	ItemCount          int
	TotalRevenue       decimal.Decimal
	TotalCommission    decimal.Decimal
	TotalVendorEarning decimal.Decimal
}

// SplitByVendor groups lines by vendor in order of first appearance. Lines
// without a vendor are left out.
func SplitByVendor(lines []Line) []VendorSummary {
	index := make(map[uuid.UUID]int)
	summaries := make([]VendorSummary, 0)

	for _, line := range lines {
		if line.VendorID == nil || *line.VendorID == uuid.Nil {
			continue
		}
		pos, ok := index[*line.VendorID]
		if !ok {
			pos = len(summaries)
			index[*line.VendorID] = pos
			summaries = append(summaries, VendorSummary{
				VendorID:           *line.VendorID,
				TotalRevenue:       decimal.Zero,
				TotalCommission:    decimal.Zero,
				TotalVendorEarning: decimal.Zero,
			})
		}
		s := &summaries[pos]
		s.ItemCount += line.Quantity
		s.TotalRevenue = s.TotalRevenue.Add(line.Result.ItemRevenue)
		s.TotalCommission = s.TotalCommission.Add(line.Result.PlatformCommission)
		s.TotalVendorEarning = s.TotalVendorEarning.Add(line.Result.VendorEarning)
	}
	return summaries
}
