package sync_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appsync "github.com/oracare/fulfillment/internal/application/sync"
	"github.com/oracare/fulfillment/internal/domain/order"
	"github.com/oracare/fulfillment/internal/domain/shared"
	"github.com/oracare/fulfillment/internal/infrastructure/persistence"
	"github.com/oracare/fulfillment/internal/infrastructure/shipstation"
)

func TestDuplicateScanFlagsAndAutoResolves(t *testing.T) {
	db := setupSyncDB(t)
	duplicates := persistence.NewGormDuplicateAlertRepository(db)
	conflicts := persistence.NewGormConflictRepository(db)

	client := &fakeClient{orders: []shipstation.Order{
		remoteOrder(8001, "700001", "awaiting_shipment",
			shipstation.OrderItem{SKU: "17612 - 240901", Quantity: 1},
			shipstation.OrderItem{SKU: "17612 - 240815", Quantity: 2},
		),
	}}
	svc := appsync.NewDuplicateScanService(client, duplicates, conflicts, 90, zap.NewNop())

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.DuplicatesFlagged)

	active, err := duplicates.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "700001", active[0].OrderNumber)
	assert.Equal(t, "17612", active[0].SKU)
	assert.Equal(t, 2, active[0].RecordCount)
	assert.Contains(t, active[0].Records, "240815")

	// the order cleans up on the platform, next scan auto-resolves
	client.orders = []shipstation.Order{
		remoteOrder(8001, "700001", "awaiting_shipment",
			shipstation.OrderItem{SKU: "17612 - 240901", Quantity: 1},
		),
	}
	result, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.DuplicatesResolved)

	active, err = duplicates.ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := duplicates.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "auto", all[0].ResolvedBy)
}

func TestDuplicateScanDoesNotResolveAgedOutOrders(t *testing.T) {
	db := setupSyncDB(t)
	duplicates := persistence.NewGormDuplicateAlertRepository(db)
	conflicts := persistence.NewGormConflictRepository(db)

	flagged := remoteOrder(8002, "700002", "awaiting_shipment",
		shipstation.OrderItem{SKU: "18675 - 240901", Quantity: 1},
		shipstation.OrderItem{SKU: "18675", Quantity: 1},
	)
	client := &fakeClient{orders: []shipstation.Order{flagged}}
	svc := appsync.NewDuplicateScanService(client, duplicates, conflicts, 90, zap.NewNop())

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	// the order ages out of the window but still exists on the platform;
	// absence from the window proves nothing
	client.orders = nil
	client.byNumber = map[string][]shipstation.Order{"700002": {flagged}}
	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.DuplicatesResolved)

	active, err := duplicates.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestDuplicateScanResolvesDeletedOrders(t *testing.T) {
	db := setupSyncDB(t)
	duplicates := persistence.NewGormDuplicateAlertRepository(db)
	conflicts := persistence.NewGormConflictRepository(db)

	client := &fakeClient{orders: []shipstation.Order{
		remoteOrder(8003, "700003", "awaiting_shipment",
			shipstation.OrderItem{SKU: "17612 - 240901", Quantity: 1},
			shipstation.OrderItem{SKU: "17612 - 240815", Quantity: 1},
		),
	}}
	svc := appsync.NewDuplicateScanService(client, duplicates, conflicts, 90, zap.NewNop())

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	// the records are deleted on the platform entirely; the direct lookup
	// confirms nothing remains and the alert resolves
	client.orders = nil
	client.byNumber = map[string][]shipstation.Order{}
	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.DuplicatesResolved)

	active, err := duplicates.ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := duplicates.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "auto", all[0].ResolvedBy)
	assert.Equal(t, "remote records deleted", all[0].Note)
}

func TestDuplicateScanFlagsOrderNumberCollision(t *testing.T) {
	db := setupSyncDB(t)
	duplicates := persistence.NewGormDuplicateAlertRepository(db)
	conflicts := persistence.NewGormConflictRepository(db)

	client := &fakeClient{orders: []shipstation.Order{
		remoteOrder(17904, "600200", "awaiting_shipment",
			shipstation.OrderItem{SKU: "17612", Quantity: 1},
		),
		remoteOrder(17955, "600200", "cancelled",
			shipstation.OrderItem{SKU: "17612", Quantity: 1},
		),
	}}
	svc := appsync.NewDuplicateScanService(client, duplicates, conflicts, 90, zap.NewNop())

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ConflictsFlagged)

	active, err := conflicts.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "600200", active[0].OrderNumber)
	assert.Equal(t, 2, active[0].IDCount)
	assert.Contains(t, active[0].RemoteIDs, "17904")
	assert.Contains(t, active[0].RemoteIDs, "17955")
}

func TestLotMismatchScanFlagsDivergentLot(t *testing.T) {
	db := setupSyncDB(t)
	lots := persistence.NewGormLotInventoryRepository(db)
	mismatches := persistence.NewGormLotMismatchAlertRepository(db)

	require.NoError(t, lots.ApplyDelta(context.Background(), "17612", "240901", 100))
	require.NoError(t, lots.SetActive(context.Background(), "17612", "240901"))

	client := &fakeClient{orders: []shipstation.Order{
		remoteOrder(8100, "600300", "awaiting_shipment",
			shipstation.OrderItem{SKU: "17612 - 240815", Quantity: 1},
		),
	}}
	svc := appsync.NewLotMismatchScanService(client, lots, mismatches, 90, zap.NewNop())

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Flagged)

	active, err := mismatches.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "240815", active[0].OrderLot)
	assert.Equal(t, "240901", active[0].ActiveLot)

	// a clean rescan must not resolve the alert; only an operator can
	client.orders = nil
	_, err = svc.Run(context.Background())
	require.NoError(t, err)

	active, err = mismatches.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestLotMismatchScanIgnoresMatchingAndUnknownLots(t *testing.T) {
	db := setupSyncDB(t)
	lots := persistence.NewGormLotInventoryRepository(db)
	mismatches := persistence.NewGormLotMismatchAlertRepository(db)

	require.NoError(t, lots.ApplyDelta(context.Background(), "17612", "240901", 100))
	require.NoError(t, lots.SetActive(context.Background(), "17612", "240901"))

	client := &fakeClient{orders: []shipstation.Order{
		remoteOrder(8101, "600301", "awaiting_shipment",
			shipstation.OrderItem{SKU: "17612 - 240901", Quantity: 1},
			shipstation.OrderItem{SKU: "18675 - 999999", Quantity: 1},
			shipstation.OrderItem{SKU: "17612", Quantity: 1},
		),
	}}
	svc := appsync.NewLotMismatchScanService(client, lots, mismatches, 90, zap.NewNop())

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Flagged)
}

func TestGhostBackfillRepairsAndOrphans(t *testing.T) {
	db := setupSyncDB(t)
	orders := persistence.NewGormOrderRepository(db)

	ghost, err := order.NewOrder("600400", time.Now().Add(-time.Hour), order.SourceShipStation)
	require.NoError(t, err)
	ghostID := int64(8200)
	ghost.RemoteID = &ghostID
	require.NoError(t, orders.Save(context.Background(), ghost))

	orphan, err := order.NewOrder("600401", time.Now().Add(-time.Hour), order.SourceShipStation)
	require.NoError(t, err)
	orphanID := int64(8201)
	orphan.RemoteID = &orphanID
	require.NoError(t, orders.Save(context.Background(), orphan))

	ro := remoteOrder(8200, "600400", "awaiting_shipment",
		shipstation.OrderItem{SKU: "17612 - 240901", Quantity: 3},
	)
	client := &fakeClient{
		byID:  map[int64]*shipstation.Order{8200: &ro},
		idErr: map[int64]error{8201: shared.ErrRemoteOrderNotFound},
	}
	svc := appsync.NewGhostBackfillService(client, orders, 10, zap.NewNop())

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Examined)
	assert.Equal(t, 1, result.Backfilled)
	assert.Equal(t, 1, result.Orphaned)

	repaired, err := orders.FindByOrderNumber(context.Background(), "600400")
	require.NoError(t, err)
	require.Len(t, repaired.Items, 1)
	assert.Equal(t, 3, repaired.Items[0].Quantity)

	cancelled, err := orders.FindByOrderNumber(context.Background(), "600401")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, cancelled.Status)

	// repaired order no longer counts as a ghost
	ghosts, err := orders.FindGhostOrders(context.Background(), 10)
	require.NoError(t, err)
	for _, g := range ghosts {
		assert.NotEqual(t, "600400", g.OrderNumber)
	}
}

func TestCleanupDeletesAgedTerminalOrders(t *testing.T) {
	db := setupSyncDB(t)
	orders := persistence.NewGormOrderRepository(db)

	old, err := order.NewOrder("100600", time.Now().Add(-120*24*time.Hour), order.SourceXMLFeed)
	require.NoError(t, err)
	old.Status = order.StatusShipped
	require.NoError(t, orders.Save(context.Background(), old))

	recent, err := order.NewOrder("100601", time.Now().Add(-time.Hour), order.SourceXMLFeed)
	require.NoError(t, err)
	recent.Status = order.StatusShipped
	require.NoError(t, orders.Save(context.Background(), recent))

	svc := appsync.NewCleanupService(orders, 60*24*time.Hour, zap.NewNop())
	deleted, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = orders.FindByOrderNumber(context.Background(), "100600")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = orders.FindByOrderNumber(context.Background(), "100601")
	assert.NoError(t, err)
}
