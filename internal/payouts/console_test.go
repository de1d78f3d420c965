package payouts

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger-backend/internal/testdb"
	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger-backend/pkg/errors"
	"github.com/angelmondragon/vendorledger-backend/pkg/pagination"
	"github.com/angelmondragon/vendorledger-backend/pkg/types"
)

type memoryStore struct {
	values map[string][]byte
	puts   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string][]byte{}}
}

func (m *memoryStore) PutJSON(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	m.puts++
	return nil
}

func (m *memoryStore) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	raw, ok := m.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

func seedPayout(t *testing.T, conn *gorm.DB, vendorID uuid.UUID, amount string, status enums.PayoutStatus, requestedAt time.Time) *models.Payout {
	t.Helper()
	payout := &models.Payout{
		ID:       uuid.New(),
		VendorID: vendorID,
		Amount:   dec(amount),
		Status:   status,
		PaymentMethodSnapshot: types.PayoutSnapshot{
			Method:  string(enums.PayoutMethodBankTransfer),
			Details: types.PayoutDetails{BankName: "First Bank", AccountName: "Acme", AccountNumber: "99887766"},
		},
		RequestedAt: requestedAt.UTC(),
		UpdatedAt:   requestedAt.UTC(),
	}
	if status == enums.PayoutStatusPaid {
		paidAt := requestedAt.UTC().Add(time.Hour)
		payout.PaidAt = &paidAt
	}
	require.NoError(t, conn.Create(payout).Error)
	return payout
}

func newTestConsole(t *testing.T, conn *gorm.DB, cache *memoryStore, now time.Time) Console {
	t.Helper()
	params := ConsoleParams{
		Repo:       NewRepository(conn),
		CacheKey:   "vl:cache:payouts:stats",
		CacheTTL:   30 * time.Second,
		StaleAfter: 48 * time.Hour,
	}
	if cache != nil {
		params.Cache = cache
	}
	c, err := NewConsole(params)
	require.NoError(t, err)
	c.(*console).now = func() time.Time { return now }
	return c
}

func TestStatsAggregatesAndCaches(t *testing.T) {
	conn := testdb.Open(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	a := testdb.CreateVendor(t, conn)
	b := testdb.CreateVendor(t, conn)

	seedPayout(t, conn, a.ID, "60", enums.PayoutStatusRequested, now.Add(-72*time.Hour))
	seedPayout(t, conn, b.ID, "75", enums.PayoutStatusRequested, now.Add(-2*time.Hour))
	seedPayout(t, conn, a.ID, "100", enums.PayoutStatusPaid, now.Add(-24*time.Hour))
	seedPayout(t, conn, a.ID, "200", enums.PayoutStatusPaid, now.AddDate(0, -1, 0))
	seedPayout(t, conn, b.ID, "55", enums.PayoutStatusRejected, now.Add(-30*time.Hour))

	cache := newMemoryStore()
	c := newTestConsole(t, conn, cache, now)

	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.ByStatus[enums.PayoutStatusRequested].Count)
	assert.True(t, stats.ByStatus[enums.PayoutStatusRequested].Amount.Equal(dec("135")))
	assert.Equal(t, int64(2), stats.ByStatus[enums.PayoutStatusPaid].Count)
	assert.Equal(t, int64(0), stats.ByStatus[enums.PayoutStatusCancelled].Count)
	assert.Equal(t, int64(4), stats.MonthToDate.Requested.Count)
	assert.Equal(t, int64(1), stats.MonthToDate.Paid.Count)
	assert.True(t, stats.MonthToDate.Paid.Amount.Equal(dec("100")))
	assert.Equal(t, int64(1), stats.UrgentPending)
	assert.Equal(t, 1, cache.puts)

	seedPayout(t, conn, b.ID, "90", enums.PayoutStatusCancelled, now.Add(-time.Hour))
	cached, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), cached.ByStatus[enums.PayoutStatusCancelled].Count)
	assert.Equal(t, 1, cache.puts)

	require.NoError(t, cache.Delete(context.Background(), "vl:cache:payouts:stats"))
	fresh, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), fresh.ByStatus[enums.PayoutStatusCancelled].Count)
}

func TestListAdminFiltersSortsAndPaginates(t *testing.T) {
	conn := testdb.Open(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	a := testdb.CreateVendor(t, conn)
	b := testdb.CreateVendor(t, conn)

	seedPayout(t, conn, a.ID, "60", enums.PayoutStatusPaid, now.Add(-96*time.Hour))
	seedPayout(t, conn, a.ID, "120", enums.PayoutStatusRejected, now.Add(-72*time.Hour))
	seedPayout(t, conn, a.ID, "80", enums.PayoutStatusRequested, now.Add(-48*time.Hour))
	seedPayout(t, conn, b.ID, "300", enums.PayoutStatusPaid, now.Add(-24*time.Hour))

	c := newTestConsole(t, conn, nil, now)
	ctx := context.Background()

	all, err := c.ListAdmin(ctx, AdminListParams{SortBy: "amount", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, all.Items, 4)
	assert.True(t, all.Items[0].Amount.Equal(dec("60")))
	assert.True(t, all.Items[3].Amount.Equal(dec("300")))
	assert.Equal(t, "99887766", all.Items[0].PaymentMethod.Details.AccountNumber)

	paid := enums.PayoutStatusPaid
	filtered, err := c.ListAdmin(ctx, AdminListParams{
		VendorListParams: VendorListParams{Status: &paid, Page: pagination.Params{Page: 1, Limit: 1}},
	})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	assert.Equal(t, b.ID, filtered.Items[0].VendorID)
	assert.Equal(t, int64(2), filtered.Pagination.Total)
	assert.Equal(t, 2, filtered.Pagination.TotalPages)
	assert.Equal(t, int64(1), filtered.Totals[enums.PayoutStatusRejected].Count)

	start := now.Add(-80 * time.Hour)
	windowed, err := c.ListAdmin(ctx, AdminListParams{
		VendorListParams: VendorListParams{StartDate: &start},
		VendorID:         &a.ID,
	})
	require.NoError(t, err)
	require.Len(t, windowed.Items, 2)
	assert.Equal(t, enums.PayoutStatusRequested, windowed.Items[0].Status)
	assert.Equal(t, int64(0), windowed.Totals[enums.PayoutStatusPaid].Count)

	_, err = c.ListAdmin(ctx, AdminListParams{SortBy: "vendor_id"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	_, err = c.ListAdmin(ctx, AdminListParams{SortOrder: "sideways"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestVendorReadsAreScoped(t *testing.T) {
	conn := testdb.Open(t)
	now := time.Now().UTC()
	a := testdb.CreateVendor(t, conn)
	b := testdb.CreateVendor(t, conn)
	mine := seedPayout(t, conn, a.ID, "60", enums.PayoutStatusPaid, now.Add(-time.Hour))
	theirs := seedPayout(t, conn, b.ID, "70", enums.PayoutStatusPaid, now.Add(-time.Hour))

	c := newTestConsole(t, conn, nil, now)
	ctx := context.Background()

	list, err := c.ListVendor(ctx, a.ID, VendorListParams{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, mine.ID, list.Items[0].ID)
	assert.Equal(t, "****7766", list.Items[0].PaymentMethod.Details.AccountNumber)
	assert.Equal(t, pagination.DefaultLimit, list.Pagination.Limit)

	view, err := c.GetForVendor(ctx, a.ID, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, view.ID)

	_, err = c.GetForVendor(ctx, a.ID, theirs.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	detail, err := c.Get(ctx, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, b.BusinessName, detail.Vendor.BusinessName)
	assert.Equal(t, "99887766", detail.Payout.PaymentMethod.Details.AccountNumber)
}
