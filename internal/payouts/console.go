package payouts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger-backend/pkg/errors"
	"github.com/angelmondragon/vendorledger-backend/pkg/logger"
	"github.com/angelmondragon/vendorledger-backend/pkg/pagination"
	"github.com/angelmondragon/vendorledger-backend/pkg/redis"
)

const (
	SortRequestedAt = "requested_at"
	SortAmount      = "amount"
	SortStatus      = "status"
)

var sortColumns = map[string]struct{}{
	SortRequestedAt: {},
	SortAmount:      {},
	SortStatus:      {},
}

// Console is the read side used by admins and vendors. It never moves money.
type Console interface {
	Stats(ctx context.Context) (*Stats, error)
	ListAdmin(ctx context.Context, params AdminListParams) (*ListResult, error)
	ListVendor(ctx context.Context, vendorID uuid.UUID, params VendorListParams) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*AdminDetail, error)
	GetForVendor(ctx context.Context, vendorID, id uuid.UUID) (*PayoutView, error)
}

// ConsoleParams configures the console. Cache may be nil.
type ConsoleParams struct {
	Repo       Repository
	Cache      redis.TTLStore
	CacheKey   string
	CacheTTL   time.Duration
	StaleAfter time.Duration
	Logger     *logger.Logger
}

type console struct {
	repo       Repository
	cache      redis.TTLStore
	cacheKey   string
	cacheTTL   time.Duration
	staleAfter time.Duration
	logg       *logger.Logger
	now        func() time.Time
}

// NewConsole builds the payout query layer.
func NewConsole(params ConsoleParams) (Console, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if params.StaleAfter <= 0 {
		return nil, fmt.Errorf("stale threshold must be positive")
	}
	key := params.CacheKey
	if key == "" {
		key = "payouts:stats"
	}
	return &console{
		repo:       params.Repo,
		cache:      params.Cache,
		cacheKey:   key,
		cacheTTL:   params.CacheTTL,
		staleAfter: params.StaleAfter,
		logg:       params.Logger,
		now:        time.Now,
	}, nil
}

func (c *console) Stats(ctx context.Context) (*Stats, error) {
	if cached := c.cachedStats(ctx); cached != nil {
		return cached, nil
	}

	now := c.now().UTC()
	byStatus, err := c.repo.TotalsByStatus(ctx, listFilter{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate payouts by status")
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	requested, err := c.repo.SumSince(ctx, "requested_at", nil, monthStart)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate requested payouts")
	}
	paidStatus := enums.PayoutStatusPaid
	paid, err := c.repo.SumSince(ctx, "paid_at", &paidStatus, monthStart)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate paid payouts")
	}
	urgent, err := c.repo.CountRequestedBefore(ctx, now.Add(-c.staleAfter))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count urgent payouts")
	}

	stats := &Stats{
		ByStatus:      byStatus,
		MonthToDate:   MonthToDate{Requested: requested, Paid: paid},
		UrgentPending: urgent,
		GeneratedAt:   now,
	}
	c.storeStats(ctx, stats)
	return stats, nil
}

func (c *console) cachedStats(ctx context.Context) *Stats {
	if c.cache == nil || c.cacheTTL <= 0 {
		return nil
	}
	var stats Stats
	ok, err := c.cache.GetJSON(ctx, c.cacheKey, &stats)
	if err != nil {
		c.warn(ctx, "payout stats cache read failed", err)
		return nil
	}
	if !ok {
		return nil
	}
	return &stats
}

func (c *console) storeStats(ctx context.Context, stats *Stats) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}
	if err := c.cache.PutJSON(ctx, c.cacheKey, stats, c.cacheTTL); err != nil {
		c.warn(ctx, "payout stats cache write failed", err)
	}
}

func (c *console) warn(ctx context.Context, msg string, err error) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), msg)
}

func (c *console) ListAdmin(ctx context.Context, params AdminListParams) (*ListResult, error) {
	sortBy := strings.ToLower(strings.TrimSpace(params.SortBy))
	if sortBy == "" {
		sortBy = SortRequestedAt
	}
	if _, ok := sortColumns[sortBy]; !ok {
		return nil, pkgerrors.Validation("invalid_sort_by", "sortBy must be requested_at, amount or status")
	}
	desc := true
	switch strings.ToLower(strings.TrimSpace(params.SortOrder)) {
	case "", "desc":
	case "asc":
		desc = false
	default:
		return nil, pkgerrors.Validation("invalid_sort_order", "sortOrder must be asc or desc")
	}

	filter, err := baseFilter(params.VendorListParams)
	if err != nil {
		return nil, err
	}
	filter.VendorID = params.VendorID
	filter.SortBy = sortBy
	filter.SortDesc = desc
	return c.list(ctx, filter, params.Page, false)
}

func (c *console) ListVendor(ctx context.Context, vendorID uuid.UUID, params VendorListParams) (*ListResult, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing")
	}
	filter, err := baseFilter(params)
	if err != nil {
		return nil, err
	}
	filter.VendorID = &vendorID
	filter.SortBy = SortRequestedAt
	filter.SortDesc = true
	return c.list(ctx, filter, params.Page, true)
}

func (c *console) list(ctx context.Context, filter listFilter, page pagination.Params, masked bool) (*ListResult, error) {
	page = page.Normalize()
	filter.Limit = page.Limit
	filter.Offset = page.Offset()

	rows, total, err := c.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payouts")
	}
	totals, err := c.repo.TotalsByStatus(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate payouts")
	}

	items := make([]PayoutView, 0, len(rows))
	for i := range rows {
		items = append(items, *NewView(&rows[i], masked))
	}
	return &ListResult{
		Items:      items,
		Pagination: pagination.NewMeta(page, total),
		Totals:     totals,
	}, nil
}

func (c *console) Get(ctx context.Context, id uuid.UUID) (*AdminDetail, error) {
	payout, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load payout")
	}
	vendor, err := c.repo.FindVendor(ctx, payout.VendorID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}

	detail := &AdminDetail{Payout: NewView(payout, false), Vendor: VendorDigest{ID: payout.VendorID}}
	if vendor != nil {
		detail.Vendor = VendorDigest{
			ID:               vendor.ID,
			BusinessName:     vendor.BusinessName,
			ContactEmail:     vendor.ContactEmail,
			Status:           vendor.Status,
			AvailableBalance: vendor.AvailableBalance,
			PendingBalance:   vendor.PendingBalance,
			WithdrawnAmount:  vendor.WithdrawnAmount,
		}
	}
	return detail, nil
}

func (c *console) GetForVendor(ctx context.Context, vendorID, id uuid.UUID) (*PayoutView, error) {
	payout, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load payout")
	}
	if payout.VendorID != vendorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
	}
	return NewView(payout, true), nil
}

func baseFilter(params VendorListParams) (listFilter, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return listFilter{}, pkgerrors.Validation("invalid_status", "unknown payout status")
	}
	if params.StartDate != nil && params.EndDate != nil && params.EndDate.Before(*params.StartDate) {
		return listFilter{}, pkgerrors.Validation("invalid_date_range", "endDate must not precede startDate")
	}
	return listFilter{
		Status:    params.Status,
		StartDate: utcPtr(params.StartDate),
		EndDate:   utcPtr(params.EndDate),
	}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
