package sync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	appsync "github.com/oracare/fulfillment/internal/application/sync"
	"github.com/oracare/fulfillment/internal/domain/order"
	"github.com/oracare/fulfillment/internal/domain/shared"
	"github.com/oracare/fulfillment/internal/infrastructure/persistence"
)

func newUploadService(t *testing.T, db *gorm.DB, client appsync.PlatformClient) *appsync.OrderUploadService {
	t.Helper()
	return appsync.NewOrderUploadService(
		client,
		persistence.NewGormOrderRepository(db),
		persistence.NewGormOrderOriginRepository(db),
		50,
		zap.NewNop(),
	)
}

func pendingFeedOrder(t *testing.T, db *gorm.DB, orderNumber string) *order.Order {
	t.Helper()

	orders := persistence.NewGormOrderRepository(db)
	o, err := order.NewOrder(orderNumber, time.Now().Add(-time.Hour), order.SourceXMLFeed)
	require.NoError(t, err)
	o.CustomerName = "Pat Doe"
	o.ShipName = "Pat Doe"
	o.ShipCity = "Reno"
	o.ShipState = "NV"
	o.ShipCountry = "US"
	require.NoError(t, orders.Save(context.Background(), o))
	require.NoError(t, orders.ReplaceItems(context.Background(), o.ID, []order.Item{
		{SKU: "17612", LotNumber: "240901", Quantity: 2, UnitPrice: decimal.NewFromFloat(19.99)},
	}))
	return o
}

func TestOrderUploadPushesPendingOrders(t *testing.T) {
	db := setupSyncDB(t)
	o := pendingFeedOrder(t, db, "100700")

	client := &fakeClient{nextRemoteID: 9300}
	svc := newUploadService(t, db, client)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pushed)
	assert.Equal(t, 0, result.Failed)

	require.Len(t, client.uploads, 1)
	up := client.uploads[0]
	assert.Equal(t, "100700", up.OrderNumber)
	assert.Equal(t, "awaiting_shipment", up.OrderStatus)
	require.Len(t, up.Items, 1)
	assert.Equal(t, "17612 - 240901", up.Items[0].SKU)
	assert.Equal(t, 2, up.Items[0].Quantity)

	orders := persistence.NewGormOrderRepository(db)
	refreshed, err := orders.FindByOrderNumber(context.Background(), o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.StatusAwaitingShipment, refreshed.Status)
	require.NotNil(t, refreshed.RemoteID)
	assert.Equal(t, int64(9301), *refreshed.RemoteID)

	// the echo filter recognizes our own upload
	origins := persistence.NewGormOrderOriginRepository(db)
	self, err := origins.IsLocalOrigin(context.Background(), 9301)
	require.NoError(t, err)
	assert.True(t, self)

	// a second cycle finds nothing pending
	result, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Pushed)
}

func TestOrderUploadMarksFailedOrders(t *testing.T) {
	db := setupSyncDB(t)
	pendingFeedOrder(t, db, "100701")

	client := &fakeClient{uploadErr: errors.New("502 bad gateway")}
	svc := newUploadService(t, db, client)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Pushed)
	assert.Equal(t, 1, result.Failed)

	orders := persistence.NewGormOrderRepository(db)
	refreshed, err := orders.FindByOrderNumber(context.Background(), "100701")
	require.NoError(t, err)
	assert.Equal(t, order.StatusFailed, refreshed.Status)
	assert.Nil(t, refreshed.RemoteID)
}

func TestOrderUploadRateLimitAborts(t *testing.T) {
	db := setupSyncDB(t)
	pendingFeedOrder(t, db, "100702")

	client := &fakeClient{uploadErr: shared.ErrRateLimited}
	svc := newUploadService(t, db, client)

	result, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, shared.ErrRateLimited)
	require.NotNil(t, result)
	assert.Equal(t, 0, result.Pushed)

	// the order stays pending for the next cycle
	orders := persistence.NewGormOrderRepository(db)
	refreshed, err := orders.FindByOrderNumber(context.Background(), "100702")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, refreshed.Status)
}

func TestOrderUploadDeletesCancelledOrders(t *testing.T) {
	db := setupSyncDB(t)
	orders := persistence.NewGormOrderRepository(db)
	origins := persistence.NewGormOrderOriginRepository(db)

	o, err := order.NewOrder("100703", time.Now().Add(-time.Hour), order.SourceXMLFeed)
	require.NoError(t, err)
	remoteID := int64(9400)
	o.RemoteID = &remoteID
	o.Status = order.StatusCancelled
	require.NoError(t, orders.Save(context.Background(), o))
	require.NoError(t, origins.RecordOrigin(context.Background(), 9400, "100703"))

	client := &fakeClient{}
	svc := newUploadService(t, db, client)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, []int64{9400}, client.deletedIDs)

	refreshed, err := orders.FindByOrderNumber(context.Background(), "100703")
	require.NoError(t, err)
	assert.Nil(t, refreshed.RemoteID)

	// the origin record stays so a late echo is still filtered
	self, err := origins.IsLocalOrigin(context.Background(), 9400)
	require.NoError(t, err)
	assert.True(t, self)

	// the retired order does not come back next cycle
	result, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Deleted)
}

func TestOrderUploadToleratesAlreadyDeletedRemote(t *testing.T) {
	db := setupSyncDB(t)
	orders := persistence.NewGormOrderRepository(db)

	o, err := order.NewOrder("100704", time.Now().Add(-time.Hour), order.SourceXMLFeed)
	require.NoError(t, err)
	remoteID := int64(9401)
	o.RemoteID = &remoteID
	o.Status = order.StatusCancelled
	require.NoError(t, orders.Save(context.Background(), o))

	client := &fakeClient{deleteErr: shared.ErrRemoteOrderNotFound}
	svc := newUploadService(t, db, client)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 0, result.Failed)

	refreshed, err := orders.FindByOrderNumber(context.Background(), "100704")
	require.NoError(t, err)
	assert.Nil(t, refreshed.RemoteID)
}
