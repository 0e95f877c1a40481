package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/oracare/fulfillment/internal/domain/alert"
	"github.com/oracare/fulfillment/internal/domain/inventory"
	"github.com/oracare/fulfillment/internal/domain/order"
	"github.com/oracare/fulfillment/internal/domain/settings"
	"github.com/oracare/fulfillment/internal/domain/shared"
	"github.com/oracare/fulfillment/internal/domain/shipping"
	"github.com/oracare/fulfillment/internal/domain/syncstate"
	"github.com/oracare/fulfillment/internal/infrastructure/config"
	"github.com/oracare/fulfillment/internal/infrastructure/shipstation"
)

// ledgerOperator tags ledger rows written by the background sync
const ledgerOperator = "sync"

// errBatchWriteFailed rolls the batch transaction back after every order's
// write failures have been counted.
var errBatchWriteFailed = errors.New("sync batch write failed")

// Result summarizes one unified sync cycle
type Result struct {
	Window   struct{ From, To time.Time }
	Fetched  int
	Imported int
	Updated  int
	Shipped  int
	Skipped  int
	Failed   int
	Advanced bool
}

// mutation is one deferred write applied inside the batch transaction
type mutation func(ctx context.Context, repos Repositories) error

// plannedOrder is the write set one remote order produced
type plannedOrder struct {
	orderNumber string
	muts        []mutation
}

// UnifiedSyncService reconciles the local order inbox against the shipping
// platform. Each cycle fetches orders modified since the watermark, applies
// all resulting writes in one transaction, and advances the watermark in
// that same transaction only when every fetched order was handled cleanly.
type UnifiedSyncService struct {
	scope      TransactionScope
	client     PlatformClient
	orders     order.Repository
	origins    order.OriginRepository
	watermarks syncstate.WatermarkRepository
	settings   settings.Repository
	cfg        config.SyncConfig
	logger     *zap.Logger
}

// NewUnifiedSyncService builds the reconciliation sync service
func NewUnifiedSyncService(
	scope TransactionScope,
	client PlatformClient,
	orders order.Repository,
	origins order.OriginRepository,
	watermarks syncstate.WatermarkRepository,
	settingsRepo settings.Repository,
	cfg config.SyncConfig,
	logger *zap.Logger,
) *UnifiedSyncService {
	return &UnifiedSyncService{
		scope:      scope,
		client:     client,
		orders:     orders,
		origins:    origins,
		watermarks: watermarks,
		settings:   settingsRepo,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run executes one sync cycle
func (s *UnifiedSyncService) Run(ctx context.Context) (*Result, error) {
	now := time.Now().UTC()
	wm, err := s.watermarks.Get(ctx, syncstate.WorkflowUnifiedSync, now.Add(-s.cfg.InitialLookback))
	if err != nil {
		return nil, fmt.Errorf("load watermark: %w", err)
	}

	// Overlap the previous window so records whose modify timestamp landed
	// exactly on the watermark are never missed.
	from := wm.ProcessedTo.Add(-s.cfg.WatermarkOverlap)
	to := now

	result := &Result{}
	result.Window.From = from
	result.Window.To = to

	remote, err := s.client.ListOrdersModifiedBetween(ctx, from, to)
	if err != nil {
		if errors.Is(err, shared.ErrRateLimited) {
			s.logger.Warn("sync cycle aborted by rate limit", zap.Time("from", from), zap.Time("to", to))
		}
		return nil, fmt.Errorf("fetch modified orders: %w", err)
	}
	result.Fetched = len(remote)

	keySet, err := s.keyProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load key products: %w", err)
	}

	shipments := s.lookupShipments(ctx, remote, from, to)

	// maxModify is the newest modify timestamp across cleanly-handled
	// orders; it is where the watermark lands on a clean non-empty cycle.
	var planned []plannedOrder
	var maxModify time.Time
	for i := range remote {
		ro := remote[i]
		muts, oc := s.planOrder(ctx, &ro, keySet, shipments, now)
		if len(muts) > 0 {
			planned = append(planned, plannedOrder{orderNumber: ro.OrderNumber, muts: muts})
		}
		if oc != outcomeFailed {
			if m := ro.ModifyDate.Time(); m.After(maxModify) {
				maxModify = m
			}
		}
		switch oc {
		case outcomeImported:
			result.Imported++
		case outcomeUpdated:
			result.Updated++
		case outcomeShipped:
			result.Shipped++
		case outcomeSkipped:
			result.Skipped++
		case outcomeFailed:
			result.Failed++
		}
	}

	advanceTo := to
	if result.Fetched > 0 {
		advanceTo = maxModify
	}
	if advanceTo.Before(wm.ProcessedTo) {
		// overlap refetches can surface only already-processed records;
		// the watermark never moves backwards
		advanceTo = wm.ProcessedTo
	}

	clean := result.Failed == 0
	writeFailed := 0
	err = s.scope.Execute(ctx, func(repos Repositories) error {
		for _, po := range planned {
			if err := applyMutations(ctx, repos, po.muts); err != nil {
				s.logger.Error("order write failed",
					zap.String("order_number", po.orderNumber),
					zap.Error(err),
				)
				writeFailed++
			}
		}
		if writeFailed > 0 {
			return errBatchWriteFailed
		}
		if clean {
			if err := repos.Watermarks().Advance(ctx, syncstate.WorkflowUnifiedSync, advanceTo); err != nil {
				return fmt.Errorf("advance watermark: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, errBatchWriteFailed) {
			return nil, fmt.Errorf("apply sync batch: %w", err)
		}
		result.Failed += writeFailed
		clean = false
	}
	result.Advanced = clean

	s.logger.Info("unified sync cycle finished",
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("fetched", result.Fetched),
		zap.Int("imported", result.Imported),
		zap.Int("updated", result.Updated),
		zap.Int("shipped", result.Shipped),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Bool("watermark_advanced", result.Advanced),
	)
	return result, nil
}

// applyMutations runs one order's write set inside the batch transaction
func applyMutations(ctx context.Context, repos Repositories, muts []mutation) error {
	for _, m := range muts {
		if err := m(ctx, repos); err != nil {
			return err
		}
	}
	return nil
}

// lookupShipments fetches the window's shipments when any remote order is
// shipped, keyed by remote order ID. Tracking metadata lives on shipments,
// not on the order records themselves. A lookup failure costs this cycle's
// tracking numbers, never the cycle.
func (s *UnifiedSyncService) lookupShipments(ctx context.Context, remote []shipstation.Order, from, to time.Time) map[int64]shipstation.Shipment {
	shipments := make(map[int64]shipstation.Shipment)
	anyShipped := false
	for i := range remote {
		if order.MapRemoteStatus(remote[i].OrderStatus) == order.StatusShipped {
			anyShipped = true
			break
		}
	}
	if !anyShipped {
		return shipments
	}

	list, err := s.client.ListShipmentsBetween(ctx, from, to)
	if err != nil {
		s.logger.Warn("shipment lookup failed, tracking unavailable this cycle", zap.Error(err))
		return shipments
	}
	for _, sh := range list {
		shipments[sh.OrderID] = sh
	}
	return shipments
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeImported
	outcomeUpdated
	outcomeShipped
	outcomeFailed
)

// planOrder classifies one remote order and returns the writes it implies.
// Reads happen here, outside the batch transaction; writes are deferred.
func (s *UnifiedSyncService) planOrder(ctx context.Context, ro *shipstation.Order, keySet settings.KeyProductSet, shipments map[int64]shipstation.Shipment, now time.Time) ([]mutation, outcome) {
	local, err := s.orders.FindByRemoteID(ctx, ro.OrderID)
	if err != nil && errors.Is(err, shared.ErrNotFound) {
		local, err = s.orders.FindByOrderNumber(ctx, ro.OrderNumber)
	}
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		s.logger.Error("order lookup failed", zap.String("order_number", ro.OrderNumber), zap.Error(err))
		return nil, outcomeFailed
	}

	var sh *shipstation.Shipment
	if v, ok := shipments[ro.OrderID]; ok {
		sh = &v
	}

	if local != nil {
		return s.planUpdate(local, ro, sh, now)
	}
	return s.planImport(ctx, ro, keySet, sh, now)
}

// planUpdate refreshes a known local order from its remote counterpart
func (s *UnifiedSyncService) planUpdate(local *order.Order, ro *shipstation.Order, sh *shipstation.Shipment, now time.Time) ([]mutation, outcome) {
	items := mapRemoteItems(ro)
	if len(items) == 0 {
		// still being assembled on the platform side, pick it up next cycle
		s.logger.Debug("remote order has no items yet", zap.String("order_number", ro.OrderNumber))
		return nil, outcomeSkipped
	}
	if order.HasDuplicateSKU(items) {
		s.logger.Warn("remote order carries a repeated SKU, flagged and not written",
			zap.String("order_number", ro.OrderNumber),
			zap.Int64("remote_id", ro.OrderID),
		)
		return flagDuplicateSKU(ro, now), outcomeSkipped
	}

	wasShipped := local.Status == order.StatusShipped
	newStatus := order.MapRemoteStatus(ro.OrderStatus)

	updated := *local
	remoteID := ro.OrderID
	updated.RemoteID = &remoteID
	updated.Status = newStatus
	carrier, service, tracking := shippingMetadata(local.TrackingNumber, ro, sh)
	updated.SetShippingInfo(carrier, service, tracking)
	applyRemoteAddresses(&updated, ro)

	orderID := local.ID
	muts := []mutation{
		func(ctx context.Context, repos Repositories) error {
			return repos.Orders().Save(ctx, &updated)
		},
		func(ctx context.Context, repos Repositories) error {
			return repos.Orders().ReplaceItems(ctx, orderID, items)
		},
	}

	if newStatus == order.StatusShipped && !wasShipped {
		muts = append(muts, s.planShipment(ro, sh, items, now)...)
		return muts, outcomeShipped
	}
	return muts, outcomeUpdated
}

// planImport brings a manually-created platform order into the local inbox
func (s *UnifiedSyncService) planImport(ctx context.Context, ro *shipstation.Order, keySet settings.KeyProductSet, sh *shipstation.Shipment, now time.Time) ([]mutation, outcome) {
	if !order.IsManualOrderNumber(ro.OrderNumber) {
		return nil, outcomeSkipped
	}

	selfOrigin, err := s.origins.IsLocalOrigin(ctx, ro.OrderID)
	if err != nil {
		s.logger.Error("origin lookup failed", zap.Int64("remote_id", ro.OrderID), zap.Error(err))
		return nil, outcomeFailed
	}
	if selfOrigin {
		// our own upload echoed back by the platform
		return nil, outcomeSkipped
	}

	items := mapRemoteItems(ro)
	items = filterKeyProducts(items, keySet)
	if len(items) == 0 {
		return nil, outcomeSkipped
	}
	if order.HasDuplicateSKU(items) {
		s.logger.Warn("manual remote order carries a repeated SKU, flagged and not imported",
			zap.String("order_number", ro.OrderNumber),
			zap.Int64("remote_id", ro.OrderID),
		)
		return flagDuplicateSKU(ro, now), outcomeSkipped
	}

	o, err := order.NewOrder(ro.OrderNumber, ro.OrderDate.Time(), order.SourceShipStation)
	if err != nil {
		s.logger.Warn("remote order rejected", zap.String("order_number", ro.OrderNumber), zap.Error(err))
		return nil, outcomeFailed
	}
	remoteID := ro.OrderID
	o.RemoteID = &remoteID
	o.Status = order.MapRemoteStatus(ro.OrderStatus)
	o.CustomerEmail = ro.CustomerEmail
	carrier, service, tracking := shippingMetadata("", ro, sh)
	o.SetShippingInfo(carrier, service, tracking)
	applyRemoteAddresses(o, ro)

	orderID := o.ID
	muts := []mutation{
		func(ctx context.Context, repos Repositories) error {
			return repos.Orders().Save(ctx, o)
		},
		func(ctx context.Context, repos Repositories) error {
			return repos.Orders().ReplaceItems(ctx, orderID, items)
		},
	}

	if o.Status == order.StatusShipped {
		muts = append(muts, s.planShipment(ro, sh, items, now)...)
		return muts, outcomeShipped
	}
	return muts, outcomeImported
}

// flagDuplicateSKU builds the alert writes for an order whose lines repeat a
// base SKU. The order itself is never written, partially or otherwise.
func flagDuplicateSKU(ro *shipstation.Order, now time.Time) []mutation {
	groups := make(map[string][]remoteRecord)
	for _, ri := range ro.Items {
		if ri.Adjustment || ri.SKU == "" {
			continue
		}
		baseSKU, _ := order.SplitSKULot(ri.SKU)
		groups[baseSKU] = append(groups[baseSKU], remoteRecord{
			RemoteID:    ro.OrderID,
			PlatformSKU: ri.SKU,
			Quantity:    ri.Quantity,
		})
	}

	var muts []mutation
	for sku, records := range groups {
		if len(records) < 2 {
			continue
		}
		payload, err := json.Marshal(records)
		if err != nil {
			continue
		}
		a := &alert.DuplicateAlert{
			BaseEntity:  shared.NewBaseEntity(),
			OrderNumber: ro.OrderNumber,
			SKU:         sku,
			Status:      alert.StatusActive,
			Records:     string(payload),
			RecordCount: len(records),
			LastSeenAt:  now,
		}
		muts = append(muts, func(ctx context.Context, repos Repositories) error {
			return repos.Duplicates().Upsert(ctx, a)
		})
	}
	return muts
}

// shippingMetadata resolves carrier, service and tracking for an order. The
// shipment record wins for tracking since order records never carry it.
func shippingMetadata(localTracking string, ro *shipstation.Order, sh *shipstation.Shipment) (carrier, service, tracking string) {
	carrier = ro.CarrierCode
	service = ro.ServiceCode
	tracking = localTracking
	if sh != nil {
		tracking = sh.TrackingNumber
		if carrier == "" {
			carrier = sh.CarrierCode
		}
		if service == "" {
			service = sh.ServiceCode
		}
	}
	return carrier, service, tracking
}

// planShipment records a shipped order in the shipped history and posts the
// matching Ship ledger rows with their derived-cache deltas.
func (s *UnifiedSyncService) planShipment(ro *shipstation.Order, sh *shipstation.Shipment, items []order.Item, now time.Time) []mutation {
	carrier, service, tracking := shippingMetadata("", ro, sh)
	so := &shipping.ShippedOrder{
		BaseEntity:     shared.NewBaseEntity(),
		OrderNumber:    ro.OrderNumber,
		RemoteID:       ro.OrderID,
		OrderDate:      ro.OrderDate.Time(),
		CarrierCode:    carrier,
		ServiceCode:    service,
		TrackingNumber: tracking,
		CustomerName:   ro.ShipTo.Name,
		ShipCity:       ro.ShipTo.City,
		ShipState:      ro.ShipTo.State,
		ShipCountry:    ro.ShipTo.Country,
	}
	if ro.ShipDate != nil {
		shipDate := ro.ShipDate.Time()
		so.ShipDate = &shipDate
	} else if sh != nil {
		shipDate := sh.ShipDate.Time()
		so.ShipDate = &shipDate
	}

	shippedItems := make([]shipping.ShippedItem, 0, len(items))
	for _, item := range items {
		shippedItems = append(shippedItems, shipping.ShippedItem{
			BaseEntity:  shared.NewBaseEntity(),
			OrderNumber: ro.OrderNumber,
			RemoteID:    ro.OrderID,
			SKU:         item.SKU,
			LotNumber:   item.LotNumber,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	orderNumber := ro.OrderNumber
	ledgerItems := make([]order.Item, len(items))
	copy(ledgerItems, items)

	return []mutation{
		func(ctx context.Context, repos Repositories) error {
			return repos.Shipped().UpsertOrder(ctx, so)
		},
		func(ctx context.Context, repos Repositories) error {
			return repos.Shipped().UpsertItems(ctx, shippedItems)
		},
		func(ctx context.Context, repos Repositories) error {
			for _, item := range ledgerItems {
				tx, err := inventory.NewTransaction(item.SKU, item.LotNumber, inventory.TransactionTypeShip, item.Quantity, orderNumber, ledgerOperator)
				if err != nil {
					return err
				}
				if err := repos.Ledger().Append(ctx, tx); err != nil {
					return err
				}
				if err := repos.CurrentInventory().ApplyDelta(ctx, item.SKU, -item.Quantity, now); err != nil {
					return err
				}
				if item.LotNumber != "" {
					if err := repos.Lots().ApplyDelta(ctx, item.SKU, item.LotNumber, -item.Quantity); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
}

// keyProducts loads the key-product allow-list. A missing parameter yields
// an empty set, which keeps manual-order import inert until the list is
// configured.
func (s *UnifiedSyncService) keyProducts(ctx context.Context) (settings.KeyProductSet, error) {
	p, err := s.settings.Get(ctx, settings.ParamKeyProductSKUs)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("key product list not configured, manual orders will not import")
			return settings.KeyProductSet{}, nil
		}
		return nil, err
	}
	return settings.DecodeKeyProductSKUs(p.Value)
}

// mapRemoteItems converts platform lines to local items, splitting the lot
// suffix out of the platform SKU and dropping adjustment lines.
func mapRemoteItems(ro *shipstation.Order) []order.Item {
	items := make([]order.Item, 0, len(ro.Items))
	for _, ri := range ro.Items {
		if ri.Adjustment || ri.SKU == "" {
			continue
		}
		baseSKU, lot := order.SplitSKULot(ri.SKU)
		price := decimal.Zero
		if ri.UnitPrice != nil {
			price = decimal.NewFromFloat(*ri.UnitPrice)
		}
		items = append(items, order.Item{
			BaseEntity: shared.NewBaseEntity(),
			SKU:        baseSKU,
			LotNumber:  lot,
			Quantity:   ri.Quantity,
			UnitPrice:  price,
		})
	}
	return items
}

// filterKeyProducts keeps only items whose base SKU is on the allow-list
func filterKeyProducts(items []order.Item, keySet settings.KeyProductSet) []order.Item {
	kept := items[:0]
	for _, item := range items {
		if keySet.Contains(item.SKU) {
			kept = append(kept, item)
		}
	}
	return kept
}

// applyRemoteAddresses copies platform addresses onto the local order
func applyRemoteAddresses(o *order.Order, ro *shipstation.Order) {
	o.ShipName = ro.ShipTo.Name
	o.ShipStreet1 = ro.ShipTo.Street1
	o.ShipStreet2 = ro.ShipTo.Street2
	o.ShipCity = ro.ShipTo.City
	o.ShipState = ro.ShipTo.State
	o.ShipPostalCode = ro.ShipTo.PostalCode
	o.ShipCountry = ro.ShipTo.Country
	o.ShipPhone = ro.ShipTo.Phone

	o.BillName = ro.BillTo.Name
	o.BillStreet1 = ro.BillTo.Street1
	o.BillCity = ro.BillTo.City
	o.BillState = ro.BillTo.State
	o.BillPostalCode = ro.BillTo.PostalCode
	o.BillCountry = ro.BillTo.Country

	if o.CustomerName == "" {
		o.CustomerName = ro.ShipTo.Name
	}
	if ro.CustomerEmail != "" {
		o.CustomerEmail = ro.CustomerEmail
	}
}
