package sync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	appsync "github.com/oracare/fulfillment/internal/application/sync"
	"github.com/oracare/fulfillment/internal/domain/alert"
	"github.com/oracare/fulfillment/internal/domain/inventory"
	"github.com/oracare/fulfillment/internal/domain/order"
	"github.com/oracare/fulfillment/internal/domain/settings"
	"github.com/oracare/fulfillment/internal/domain/shared"
	"github.com/oracare/fulfillment/internal/domain/shipping"
	"github.com/oracare/fulfillment/internal/domain/syncstate"
	"github.com/oracare/fulfillment/internal/infrastructure/config"
	"github.com/oracare/fulfillment/internal/infrastructure/persistence"
	"github.com/oracare/fulfillment/internal/infrastructure/shipstation"
)

// localOrderOrigin mirrors the persistence-internal origin table for migration
type localOrderOrigin struct {
	RemoteID    int64 `gorm:"primaryKey;autoIncrement:false"`
	OrderNumber string
	CreatedAt   time.Time
}

func (localOrderOrigin) TableName() string {
	return "local_order_origins"
}

func setupSyncDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&order.Order{},
		&order.Item{},
		&localOrderOrigin{},
		&shipping.ShippedOrder{},
		&shipping.ShippedItem{},
		&syncstate.Watermark{},
		&syncstate.WorkflowControl{},
		&alert.DuplicateAlert{},
		&alert.LotMismatchAlert{},
		&alert.ManualOrderConflict{},
		&inventory.Transaction{},
		&inventory.Current{},
		&inventory.Lot{},
		&settings.Param{},
	)
	require.NoError(t, err)
	return db
}

type fakeClient struct {
	orders    []shipstation.Order
	listErr   error
	byID      map[int64]*shipstation.Order
	idErr     map[int64]error
	byNumber  map[string][]shipstation.Order
	shipments []shipstation.Shipment
	shipErr   error

	nextRemoteID int64
	uploadErr    error
	uploads      []*shipstation.OrderUpload
	deleteErr    error
	deletedIDs   []int64
}

func (f *fakeClient) ListOrdersModifiedBetween(ctx context.Context, from, to time.Time) ([]shipstation.Order, error) {
	return f.orders, f.listErr
}

func (f *fakeClient) GetOrder(ctx context.Context, orderID int64) (*shipstation.Order, error) {
	if err, ok := f.idErr[orderID]; ok {
		return nil, err
	}
	if o, ok := f.byID[orderID]; ok {
		return o, nil
	}
	return nil, shared.ErrRemoteOrderNotFound
}

func (f *fakeClient) ListOrdersByNumber(ctx context.Context, orderNumber string) ([]shipstation.Order, error) {
	if f.byNumber != nil {
		return f.byNumber[orderNumber], nil
	}
	var out []shipstation.Order
	for _, o := range f.orders {
		if o.OrderNumber == orderNumber {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeClient) ListShipmentsBetween(ctx context.Context, from, to time.Time) ([]shipstation.Shipment, error) {
	return f.shipments, f.shipErr
}

func (f *fakeClient) CreateOrUpdateOrder(ctx context.Context, upload *shipstation.OrderUpload) (*shipstation.Order, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads = append(f.uploads, upload)
	f.nextRemoteID++
	return &shipstation.Order{OrderID: f.nextRemoteID, OrderNumber: upload.OrderNumber}, nil
}

func (f *fakeClient) DeleteOrder(ctx context.Context, orderID int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, orderID)
	return nil
}

var _ appsync.PlatformClient = (*fakeClient)(nil)

func syncConfig() config.SyncConfig {
	return config.SyncConfig{
		InitialLookback:     24 * time.Hour,
		WatermarkOverlap:    5 * time.Minute,
		InboxRetention:      60 * 24 * time.Hour,
		CollisionWindowDays: 90,
	}
}

func newSyncService(t *testing.T, db *gorm.DB, client appsync.PlatformClient) (*appsync.UnifiedSyncService, syncstate.WatermarkRepository) {
	t.Helper()
	return newSyncServiceWithScope(t, db, client, persistence.NewGormSyncScope(db))
}

func newSyncServiceWithScope(t *testing.T, db *gorm.DB, client appsync.PlatformClient, scope appsync.TransactionScope) (*appsync.UnifiedSyncService, syncstate.WatermarkRepository) {
	t.Helper()

	settingsRepo := persistence.NewGormSettingsRepository(db)
	err := settingsRepo.Set(context.Background(), &settings.Param{
		Key:   settings.ParamKeyProductSKUs,
		Value: `["17612","18675"]`,
	})
	require.NoError(t, err)

	watermarks := persistence.NewGormWatermarkRepository(db)
	svc := appsync.NewUnifiedSyncService(
		scope,
		client,
		persistence.NewGormOrderRepository(db),
		persistence.NewGormOrderOriginRepository(db),
		watermarks,
		settingsRepo,
		syncConfig(),
		zap.NewNop(),
	)
	return svc, watermarks
}

func floatPtr(v float64) *float64 { return &v }

func remoteOrder(id int64, number, status string, items ...shipstation.OrderItem) shipstation.Order {
	now := time.Now().UTC()
	return shipstation.Order{
		OrderID:     id,
		OrderNumber: number,
		OrderDate:   shipstation.Time(now.Add(-time.Hour)),
		ModifyDate:  shipstation.Time(now),
		OrderStatus: status,
		ShipTo:      shipstation.Address{Name: "Pat Doe", City: "Reno", State: "NV", Country: "US"},
		Items:       items,
	}
}

func TestUnifiedSyncImportsManualOrder(t *testing.T) {
	db := setupSyncDB(t)
	client := &fakeClient{orders: []shipstation.Order{
		remoteOrder(9001, "600123", "awaiting_shipment",
			shipstation.OrderItem{SKU: "17612 - 240901", Quantity: 2, UnitPrice: floatPtr(19.99)},
		),
	}}
	svc, watermarks := newSyncService(t, db, client)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.True(t, result.Advanced)

	orders := persistence.NewGormOrderRepository(db)
	o, err := orders.FindByOrderNumber(context.Background(), "600123")
	require.NoError(t, err)
	assert.Equal(t, order.SourceShipStation, o.Source)
	assert.Equal(t, order.StatusAwaitingShipment, o.Status)
	require.NotNil(t, o.RemoteID)
	assert.Equal(t, int64(9001), *o.RemoteID)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "17612", o.Items[0].SKU)
	assert.Equal(t, "240901", o.Items[0].LotNumber)

	wm, err := watermarks.Get(context.Background(), syncstate.WorkflowUnifiedSync, time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), wm.ProcessedTo, time.Minute)
}

func TestUnifiedSyncWatermarkTracksModifyDate(t *testing.T) {
	db := setupSyncDB(t)
	orders := persistence.NewGormOrderRepository(db)

	local, err := order.NewOrder("100233", time.Now().Add(-24*time.Hour), order.SourceXMLFeed)
	require.NoError(t, err)
	remoteID := int64(9000)
	local.RemoteID = &remoteID
	require.NoError(t, orders.Save(context.Background(), local))

	// the record was last modified two hours ago; a crash between this
	// cycle and the next must refetch anything modified after that point
	modified := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)
	ro := remoteOrder(9000, "100233", "awaiting_shipment",
		shipstation.OrderItem{SKU: "17612 - 240901", Quantity: 1},
	)
	ro.ModifyDate = shipstation.Time(modified)
	client := &fakeClient{orders: []shipstation.Order{ro}}
	svc, watermarks := newSyncService(t, db, client)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.True(t, result.Advanced)

	wm, err := watermarks.Get(context.Background(), syncstate.WorkflowUnifiedSync, time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	assert.WithinDuration(t, modified, wm.ProcessedTo, time.Second)
}

func TestUnifiedSyncSkipsNonKeyProduct(t *testing.T) {
	db := setupSyncDB(t)
	client := &fakeClient{orders: []shipstation.Order{
		remoteOrder(9002, "600124", "awaiting_shipment",
			shipstation.OrderItem{SKU: "99999", Quantity: 1},
		),
	}}
	svc, _ := newSyncService(t, db, client)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.True(t, result.Advanced)

	orders := persistence.NewGormOrderRepository(db)
	_, err = orders.FindByOrderNumber(context.Background(), "600124")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUnifiedSyncSkipsNonManualUnknownOrder(t *testing.T) {
	db := setupSyncDB(t)
	client := &fakeClient{orders: []shipstation.Order{
		remoteOrder(9003, "100500", "awaiting_shipment",
			shipstation.OrderItem{SKU: "17612", Quantity: 1},
		),
	}}
	svc, _ := newSyncService(t, db, client)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Imported)
}

func TestUnifiedSyncSkipsSelfOriginEcho(t *testing.T) {
	db := setupSyncDB(t)
	origins := persistence.NewGormOrderOriginRepository(db)
	require.NoError(t, origins.RecordOrigin(context.Background(), 9004, "600125"))

	client := &fakeClient{orders: []shipstation.Order{
		remoteOrder(9004, "600125", "awaiting_shipment",
			shipstation.OrderItem{SKU: "17612", Quantity: 1},
		),
	}}
	svc, _ := newSyncService(t, db, client)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Imported)
}

func TestUnifiedSyncShipsKnownOrder(t *testing.T) {
	db := setupSyncDB(t)
	orders := persistence.NewGormOrderRepository(db)

	local, err := order.NewOrder("100234", time.Now().Add(-24*time.Hour), order.SourceXMLFeed)
	require.NoError(t, err)
	remoteID := int64(9005)
	local.RemoteID = &remoteID
	require.NoError(t, orders.Save(context.Background(), local))
	require.NoError(t, orders.ReplaceItems(context.Background(), local.ID, []order.Item{
		{SKU: "17612", LotNumber: "240901", Quantity: 2},
	}))

	ro := remoteOrder(9005, "100234", "shipped",
		shipstation.OrderItem{SKU: "17612 - 240901", Quantity: 2, UnitPrice: floatPtr(19.99)},
	)
	shipDate := shipstation.Time(time.Now().UTC())
	ro.ShipDate = &shipDate
	client := &fakeClient{orders: []shipstation.Order{ro}}
	svc, _ := newSyncService(t, db, client)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Shipped)
	assert.True(t, result.Advanced)

	refreshed, err := orders.FindByRemoteID(context.Background(), 9005)
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, refreshed.Status)

	shipped := persistence.NewGormShippedRepository(db)
	rows, total, err := shipped.ListOrders(context.Background(), shipping.Filter{OrderNumber: "100234"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(9005), rows[0].RemoteID)

	ledger := persistence.NewGormInventoryTransactionRepository(db)
	txs, _, err := ledger.List(context.Background(), inventory.TransactionFilter{SKU: "17612"})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, inventory.TransactionTypeShip, txs[0].Type)
	assert.Equal(t, 2, txs[0].Quantity)

	current := persistence.NewGormInventoryCurrentRepository(db)
	c, err := current.Get(context.Background(), "17612")
	require.NoError(t, err)
	assert.Equal(t, -2, c.CurrentQuantity)

	lots := persistence.NewGormLotInventoryRepository(db)
	lot, err := lots.Get(context.Background(), "17612", "240901")
	require.NoError(t, err)
	assert.Equal(t, -2, lot.Quantity)
}

func TestUnifiedSyncPicksTrackingFromShipment(t *testing.T) {
	db := setupSyncDB(t)
	orders := persistence.NewGormOrderRepository(db)

	local, err := order.NewOrder("100238", time.Now().Add(-24*time.Hour), order.SourceXMLFeed)
	require.NoError(t, err)
	remoteID := int64(9105)
	local.RemoteID = &remoteID
	require.NoError(t, orders.Save(context.Background(), local))

	ro := remoteOrder(9105, "100238", "shipped",
		shipstation.OrderItem{SKU: "17612 - 240901", Quantity: 1},
	)
	ro.CarrierCode = "stamps_com"
	client := &fakeClient{
		orders: []shipstation.Order{ro},
		shipments: []shipstation.Shipment{{
			ShipmentID:     501,
			OrderID:        9105,
			OrderNumber:    "100238",
			ShipDate:       shipstation.Time(time.Now().UTC()),
			TrackingNumber: "9400111899223197428490",
			CarrierCode:    "stamps_com",
			ServiceCode:    "usps_first_class_mail",
		}},
	}
	svc, _ := newSyncService(t, db, client)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Shipped)

	refreshed, err := orders.FindByRemoteID(context.Background(), 9105)
	require.NoError(t, err)
	assert.Equal(t, "9400111899223197428490", refreshed.TrackingNumber)

	shipped := persistence.NewGormShippedRepository(db)
	rows, _, err := shipped.ListOrders(context.Background(), shipping.Filter{OrderNumber: "100238"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "9400111899223197428490", rows[0].TrackingNumber)
	assert.Equal(t, "usps_first_class_mail", rows[0].ServiceCode)
	require.NotNil(t, rows[0].ShipDate)
}

func TestUnifiedSyncRepeatedShipDoesNotDoubleLedger(t *testing.T) {
	db := setupSyncDB(t)
	orders := persistence.NewGormOrderRepository(db)

	local, err := order.NewOrder("100235", time.Now().Add(-24*time.Hour), order.SourceXMLFeed)
	require.NoError(t, err)
	remoteID := int64(9006)
	local.RemoteID = &remoteID
	require.NoError(t, orders.Save(context.Background(), local))

	ro := remoteOrder(9006, "100235", "shipped",
		shipstation.OrderItem{SKU: "17612", Quantity: 1},
	)
	client := &fakeClient{orders: []shipstation.Order{ro}}
	svc, _ := newSyncService(t, db, client)

	_, err = svc.Run(context.Background())
	require.NoError(t, err)
	_, err = svc.Run(context.Background())
	require.NoError(t, err)

	ledger := persistence.NewGormInventoryTransactionRepository(db)
	txs, _, err := ledger.List(context.Background(), inventory.TransactionFilter{SKU: "17612"})
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestUnifiedSyncDuplicateSKUFlaggedAndSkipped(t *testing.T) {
	db := setupSyncDB(t)
	client := &fakeClient{orders: []shipstation.Order{
		remoteOrder(9007, "600126", "awaiting_shipment",
			shipstation.OrderItem{SKU: "17612 - 240901", Quantity: 1},
			shipstation.OrderItem{SKU: "17612 - 240815", Quantity: 1},
		),
	}}
	svc, watermarks := newSyncService(t, db, client)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.True(t, result.Advanced)

	// the order itself is never written, partially or otherwise
	orders := persistence.NewGormOrderRepository(db)
	_, err = orders.FindByOrderNumber(context.Background(), "600126")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	duplicates := persistence.NewGormDuplicateAlertRepository(db)
	active, err := duplicates.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "600126", active[0].OrderNumber)
	assert.Equal(t, "17612", active[0].SKU)
	assert.Equal(t, 2, active[0].RecordCount)

	// a flagged order never stalls the rest of the stream
	wm, err := watermarks.Get(context.Background(), syncstate.WorkflowUnifiedSync, time.Now().UTC().Add(-48*time.Hour))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), wm.ProcessedTo, time.Minute)
}

// failingScope fails order saves for one order number inside the batch
type failingScope struct {
	inner      appsync.TransactionScope
	failNumber string
}

func (s failingScope) Execute(ctx context.Context, fn func(appsync.Repositories) error) error {
	return s.inner.Execute(ctx, func(repos appsync.Repositories) error {
		return fn(failingRepos{Repositories: repos, failNumber: s.failNumber})
	})
}

type failingRepos struct {
	appsync.Repositories
	failNumber string
}

func (r failingRepos) Orders() order.Repository {
	return failingOrderRepo{Repository: r.Repositories.Orders(), failNumber: r.failNumber}
}

type failingOrderRepo struct {
	order.Repository
	failNumber string
}

func (r failingOrderRepo) Save(ctx context.Context, o *order.Order) error {
	if o.OrderNumber == r.failNumber {
		return errors.New("database is locked")
	}
	return r.Repository.Save(ctx, o)
}

func TestUnifiedSyncWriteFailureCountedAndHeld(t *testing.T) {
	db := setupSyncDB(t)
	client := &fakeClient{orders: []shipstation.Order{
		remoteOrder(9010, "600130", "awaiting_shipment",
			shipstation.OrderItem{SKU: "17612", Quantity: 1},
		),
		remoteOrder(9011, "600131", "awaiting_shipment",
			shipstation.OrderItem{SKU: "18675", Quantity: 1},
		),
	}}
	scope := failingScope{inner: persistence.NewGormSyncScope(db), failNumber: "600131"}
	svc, watermarks := newSyncServiceWithScope(t, db, client, scope)

	before := time.Now().UTC().Add(-48 * time.Hour)
	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, result.Advanced)

	// the batch rolls back as one unit, so the clean order is retried too
	orders := persistence.NewGormOrderRepository(db)
	_, err = orders.FindByOrderNumber(context.Background(), "600130")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = orders.FindByOrderNumber(context.Background(), "600131")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	wm, err := watermarks.Get(context.Background(), syncstate.WorkflowUnifiedSync, before)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(-24*time.Hour), wm.ProcessedTo, time.Minute)
}

func TestUnifiedSyncEmptyWindowAdvancesWatermark(t *testing.T) {
	db := setupSyncDB(t)
	client := &fakeClient{}
	svc, watermarks := newSyncService(t, db, client)

	cycleStart := time.Now().UTC()
	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Fetched)
	assert.True(t, result.Advanced)

	wm, err := watermarks.Get(context.Background(), syncstate.WorkflowUnifiedSync, cycleStart.Add(-48*time.Hour))
	require.NoError(t, err)
	assert.False(t, wm.ProcessedTo.Before(cycleStart))
}

func TestUnifiedSyncEmptyKnownOrderSkipped(t *testing.T) {
	db := setupSyncDB(t)
	orders := persistence.NewGormOrderRepository(db)

	local, err := order.NewOrder("100236", time.Now().Add(-24*time.Hour), order.SourceXMLFeed)
	require.NoError(t, err)
	remoteID := int64(9008)
	local.RemoteID = &remoteID
	require.NoError(t, orders.Save(context.Background(), local))

	client := &fakeClient{orders: []shipstation.Order{
		remoteOrder(9008, "100236", "awaiting_shipment"),
	}}
	svc, _ := newSyncService(t, db, client)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.True(t, result.Advanced)
}

func TestUnifiedSyncRateLimitAborts(t *testing.T) {
	db := setupSyncDB(t)
	client := &fakeClient{listErr: shared.ErrRateLimited}
	svc, watermarks := newSyncService(t, db, client)

	_, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, shared.ErrRateLimited)

	wm, err := watermarks.Get(context.Background(), syncstate.WorkflowUnifiedSync, time.Now().UTC().Add(-48*time.Hour))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(-24*time.Hour), wm.ProcessedTo, time.Minute)
}
