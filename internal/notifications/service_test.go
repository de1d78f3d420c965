package notifications

import (
	"context"
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
)

func seedNotification(t *testing.T, conn *gorm.DB, vendorID uuid.UUID, createdAt time.Time, read bool) models.Notification {
	t.Helper()
	n := models.Notification{
		ID:        uuid.New(),
		VendorID:  vendorID,
		Type:      enums.NotificationTypePayoutUpdate,
		Title:     "Payout approved",
		Message:   "approved",
		CreatedAt: createdAt.UTC(),
	}
	if read {
		readAt := createdAt.UTC()
		n.ReadAt = &readAt
	}
	require.NoError(t, conn.Create(&n).Error)
	return n
}

func TestServiceListsNewestFirstPerVendor(t *testing.T) {
	conn := testdb.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	vendorID := uuid.New()
	now := time.Now().UTC()
	older := seedNotification(t, conn, vendorID, now.Add(-2*time.Hour), false)
	newer := seedNotification(t, conn, vendorID, now.Add(-time.Hour), false)
	seedNotification(t, conn, vendorID, now.Add(-3*time.Hour), true)
	seedNotification(t, conn, uuid.New(), now, false)

	res, err := svc.List(context.Background(), ListParams{VendorID: vendorID, Page: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, newer.ID, res.Items[0].ID)
	assert.Equal(t, older.ID, res.Items[1].ID)
	assert.Equal(t, int64(3), res.Pagination.Total)
	assert.Equal(t, 2, res.Pagination.TotalPages)

	unread, err := svc.List(context.Background(), ListParams{VendorID: vendorID, UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread.Items, 2)

	_, err = svc.List(context.Background(), ListParams{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}

func TestServiceMarkReadIsVendorScoped(t *testing.T) {
	conn := testdb.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	vendorID := uuid.New()
	n := seedNotification(t, conn, vendorID, time.Now(), false)
	ctx := context.Background()

	err = svc.MarkRead(ctx, uuid.New(), n.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	require.NoError(t, svc.MarkRead(ctx, vendorID, n.ID))
	require.NoError(t, svc.MarkRead(ctx, vendorID, n.ID))

	seedNotification(t, conn, vendorID, time.Now(), false)
	seedNotification(t, conn, vendorID, time.Now(), false)
	count, err := svc.MarkAllRead(ctx, vendorID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
