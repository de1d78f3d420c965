package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger-backend/internal/testdb"
	dbpkg "github.com/angelmondragon/vendorledger-backend/pkg/db"
	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger-backend/pkg/errors"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := testdb.Open(t)
	svc, err := NewService(NewRepository(conn), dbpkg.Wrap(conn), nil, nil)
	require.NoError(t, err)
	return svc, conn
}

func ledgerEvents(t *testing.T, conn *gorm.DB, vendorID uuid.UUID) []models.LedgerEvent {
	t.Helper()
	var events []models.LedgerEvent
	require.NoError(t, conn.Where("vendor_id = ?", vendorID).Order("created_at ASC").Find(&events).Error)
	return events
}

func assertBalances(t *testing.T, conn *gorm.DB, vendorID uuid.UUID, available, pending, withdrawn string) {
	t.Helper()
	v := testdb.LoadVendor(t, conn, vendorID)
	assert.True(t, v.AvailableBalance.Equal(d(available)), "available: want %s got %s", available, v.AvailableBalance)
	assert.True(t, v.PendingBalance.Equal(d(pending)), "pending: want %s got %s", pending, v.PendingBalance)
	assert.True(t, v.WithdrawnAmount.Equal(d(withdrawn)), "withdrawn: want %s got %s", withdrawn, v.WithdrawnAmount)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil, nil)
	require.Error(t, err)
	_, err = NewService(NewRepository(nil), nil, nil, nil)
	require.Error(t, err)
}

func TestCreditVendorBalance(t *testing.T) {
	svc, conn := newTestService(t)
	vendor := testdb.CreateVendor(t, conn, testdb.WithAvailable("10"))

	balances, err := svc.CreditVendorBalance(context.Background(), nil, vendor.ID, d("45.50"), "order_item:abc")
	require.NoError(t, err)
	assert.True(t, balances.AvailableBalance.Equal(d("55.50")))
	assert.True(t, balances.TotalEarnings.Equal(d("45.50")))
	assert.Equal(t, int64(1), balances.TotalSales)

	events := ledgerEvents(t, conn, vendor.ID)
	require.Len(t, events, 1)
	assert.Equal(t, enums.LedgerEventTypeCredit, events[0].Type)
	assert.Equal(t, "order_item:abc", events[0].Reference)
	assert.True(t, events[0].Amount.Equal(d("45.50")))
}

func TestCreditUnknownVendorIsNotFound(t *testing.T) {
	svc, conn := newTestService(t)

	_, err := svc.CreditVendorBalance(context.Background(), nil, uuid.New(), d("5"), "ref")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	var count int64
	require.NoError(t, conn.Model(&models.LedgerEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAmountsMustBePositive(t *testing.T) {
	svc, conn := newTestService(t)
	vendor := testdb.CreateVendor(t, conn, testdb.WithAvailable("10"))

	for _, amount := range []string{"0", "-1", "0.001"} {
		_, err := svc.CreditVendorBalance(context.Background(), nil, vendor.ID, d(amount), "ref")
		require.Error(t, err, amount)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), amount)
	}
	assertBalances(t, conn, vendor.ID, "10", "0", "0")
}

func TestDebitVendorBalance(t *testing.T) {
	svc, conn := newTestService(t)
	vendor := testdb.CreateVendor(t, conn, testdb.WithAvailable("100"))

	balances, err := svc.DebitVendorBalance(context.Background(), nil, vendor.ID, d("100"), "chargeback")
	require.NoError(t, err)
	assert.True(t, balances.AvailableBalance.IsZero())

	_, err = svc.DebitVendorBalance(context.Background(), nil, vendor.ID, d("0.01"), "chargeback")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, pkgerrors.ValidationReason{Reason: ReasonInsufficientBalance}, typed.Details())
	assertBalances(t, conn, vendor.ID, "0", "0", "0")

	_, err = svc.DebitVendorBalance(context.Background(), nil, uuid.New(), d("1"), "chargeback")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestPayoutMovesKeepBucketsConsistent(t *testing.T) {
	svc, conn := newTestService(t)
	vendor := testdb.CreateVendor(t, conn, testdb.WithAvailable("100"))
	ctx := context.Background()

	_, err := svc.ReservePayout(ctx, nil, vendor.ID, uuid.New(), d("60"))
	require.NoError(t, err)
	assertBalances(t, conn, vendor.ID, "40", "60", "0")

	_, err = svc.ReservePayout(ctx, nil, vendor.ID, uuid.New(), d("40.01"))
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	assertBalances(t, conn, vendor.ID, "40", "60", "0")

	_, err = svc.ReleasePayout(ctx, nil, vendor.ID, uuid.New(), d("20"), enums.LedgerEventTypePayoutRejected)
	require.NoError(t, err)
	assertBalances(t, conn, vendor.ID, "60", "40", "0")

	_, err = svc.SettlePayout(ctx, nil, vendor.ID, uuid.New(), d("40"))
	require.NoError(t, err)
	assertBalances(t, conn, vendor.ID, "60", "0", "40")

	events := ledgerEvents(t, conn, vendor.ID)
	require.Len(t, events, 3)
	assert.Equal(t, enums.LedgerEventTypePayoutRequested, events[0].Type)
	assert.Equal(t, enums.LedgerEventTypePayoutRejected, events[1].Type)
	assert.Equal(t, enums.LedgerEventTypePayoutPaid, events[2].Type)
}

func TestReleaseClampsPendingAtZero(t *testing.T) {
	svc, conn := newTestService(t)
	vendor := testdb.CreateVendor(t, conn, testdb.WithAvailable("5"))

	_, err := svc.ReleasePayout(context.Background(), nil, vendor.ID, uuid.New(), d("30"), enums.LedgerEventTypePayoutCancelled)
	require.NoError(t, err)
	assertBalances(t, conn, vendor.ID, "35", "0", "0")
}

func TestReleaseRejectsNonPayoutEventType(t *testing.T) {
	svc, conn := newTestService(t)
	vendor := testdb.CreateVendor(t, conn)

	_, err := svc.ReleasePayout(context.Background(), nil, vendor.ID, uuid.New(), d("1"), enums.LedgerEventTypeCredit)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInternal))
}

func TestRecordShortfallDoesNotMoveMoney(t *testing.T) {
	svc, conn := newTestService(t)
	vendor := testdb.CreateVendor(t, conn, testdb.WithAvailable("12"))

	meta := map[string]any{"item_id": uuid.NewString(), "commission": "10.00"}
	require.NoError(t, svc.RecordShortfall(context.Background(), nil, vendor.ID, d("4.00"), "order_item:x", meta))
	assertBalances(t, conn, vendor.ID, "12", "0", "0")

	events := ledgerEvents(t, conn, vendor.ID)
	require.Len(t, events, 1)
	assert.Equal(t, enums.LedgerEventTypeCommissionShortfall, events[0].Type)
	assert.Contains(t, string(events[0].Metadata), "commission")
}

func TestMutationsJoinCallerTransaction(t *testing.T) {
	svc, conn := newTestService(t)
	vendor := testdb.CreateVendor(t, conn, testdb.WithAvailable("50"))

	err := dbpkg.Wrap(conn).WithTx(context.Background(), func(tx *gorm.DB) error {
		if _, err := svc.CreditVendorBalance(context.Background(), tx, vendor.ID, d("10"), "ref"); err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeInternal, "boom")
	})
	require.Error(t, err)

	assertBalances(t, conn, vendor.ID, "50", "0", "0")
	assert.Empty(t, ledgerEvents(t, conn, vendor.ID))
}

func TestConcurrentCreditsDoNotLoseUpdates(t *testing.T) {
	svc, conn := newTestService(t)
	vendor := testdb.CreateVendor(t, conn, testdb.WithAvailable("100"))

	const workers = 25
	amount := d("4.25")

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.CreditVendorBalance(context.Background(), nil, vendor.ID, amount, uuid.NewString()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	v := testdb.LoadVendor(t, conn, vendor.ID)
	want := d("100").Add(amount.Mul(decimal.NewFromInt(workers)))
	assert.True(t, v.AvailableBalance.Equal(want), "want %s got %s", want, v.AvailableBalance)
	assert.Equal(t, int64(workers), v.TotalSales)
	assert.Len(t, ledgerEvents(t, conn, vendor.ID), workers)
}

func TestHistoryNewestFirst(t *testing.T) {
	svc, conn := newTestService(t)
	vendor := testdb.CreateVendor(t, conn, testdb.WithAvailable("0"))
	ctx := context.Background()

	_, err := svc.CreditVendorBalance(ctx, nil, vendor.ID, d("1"), "first")
	require.NoError(t, err)
	_, err = svc.CreditVendorBalance(ctx, nil, vendor.ID, d("2"), "second")
	require.NoError(t, err)

	events, err := svc.History(ctx, vendor.ID, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)

	_, err = svc.Balances(ctx, uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}
