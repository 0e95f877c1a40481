package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/oracare/fulfillment/internal/domain/alert"
	"github.com/oracare/fulfillment/internal/domain/order"
	"github.com/oracare/fulfillment/internal/domain/shared"
)

// remoteRecord is one offending platform line, stored on the alert as JSON
// so operators can see exactly what the scanner saw.
type remoteRecord struct {
	RemoteID    int64  `json:"remote_id"`
	PlatformSKU string `json:"platform_sku"`
	Quantity    int    `json:"quantity"`
}

// ScanResult summarizes one duplicate/collision scan cycle
type ScanResult struct {
	OrdersScanned      int
	DuplicatesFlagged  int
	DuplicatesResolved int
	ConflictsFlagged   int
	ConflictsResolved  int
}

// DuplicateScanService detects two anomaly shapes in the platform's recent
// order records. A duplicate is the same (order number, base SKU) pair
// appearing on more than one line; a collision is one order number spanning
// more than one distinct remote order ID. Duplicates and collisions that
// have cleared since the last scan are auto-resolved.
type DuplicateScanService struct {
	client     PlatformClient
	duplicates alert.DuplicateRepository
	conflicts  alert.ConflictRepository
	windowDays int
	logger     *zap.Logger
}

// NewDuplicateScanService builds the duplicate/collision scanner
func NewDuplicateScanService(client PlatformClient, duplicates alert.DuplicateRepository, conflicts alert.ConflictRepository, windowDays int, logger *zap.Logger) *DuplicateScanService {
	return &DuplicateScanService{
		client:     client,
		duplicates: duplicates,
		conflicts:  conflicts,
		windowDays: windowDays,
		logger:     logger,
	}
}

// Run executes one scan cycle
func (s *DuplicateScanService) Run(ctx context.Context) (*ScanResult, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -s.windowDays)

	remote, err := s.client.ListOrdersModifiedBetween(ctx, from, now)
	if err != nil {
		return nil, fmt.Errorf("fetch recent orders: %w", err)
	}

	result := &ScanResult{OrdersScanned: len(remote)}

	groups := make(map[alert.Key][]remoteRecord)
	remoteIDs := make(map[string]map[int64]struct{})
	seenOrders := make(map[string]struct{})

	for _, ro := range remote {
		seenOrders[ro.OrderNumber] = struct{}{}
		if remoteIDs[ro.OrderNumber] == nil {
			remoteIDs[ro.OrderNumber] = make(map[int64]struct{})
		}
		remoteIDs[ro.OrderNumber][ro.OrderID] = struct{}{}

		for _, ri := range ro.Items {
			if ri.Adjustment || ri.SKU == "" {
				continue
			}
			baseSKU, _ := order.SplitSKULot(ri.SKU)
			key := alert.Key{OrderNumber: ro.OrderNumber, SKU: baseSKU}
			groups[key] = append(groups[key], remoteRecord{
				RemoteID:    ro.OrderID,
				PlatformSKU: ri.SKU,
				Quantity:    ri.Quantity,
			})
		}
	}

	for key, records := range groups {
		if len(records) < 2 {
			continue
		}
		payload, err := json.Marshal(records)
		if err != nil {
			return nil, fmt.Errorf("encode duplicate records: %w", err)
		}
		a := &alert.DuplicateAlert{
			BaseEntity:  shared.NewBaseEntity(),
			OrderNumber: key.OrderNumber,
			SKU:         key.SKU,
			Status:      alert.StatusActive,
			Records:     string(payload),
			RecordCount: len(records),
			LastSeenAt:  now,
		}
		if err := s.duplicates.Upsert(ctx, a); err != nil {
			return nil, fmt.Errorf("upsert duplicate alert: %w", err)
		}
		result.DuplicatesFlagged++
	}

	// Auto-resolve duplicates that no longer reproduce. An alert whose order
	// number was observed this cycle resolves when its group shrank below
	// two; one absent from the window resolves only after a direct lookup
	// confirms its remote records were deleted outright.
	active, err := s.duplicates.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active duplicate alerts: %w", err)
	}
	deletedOrders := make(map[string]bool)
	for _, a := range active {
		note := "condition cleared on rescan"
		if _, seen := seenOrders[a.OrderNumber]; seen {
			key := alert.Key{OrderNumber: a.OrderNumber, SKU: a.SKU}
			if len(groups[key]) >= 2 {
				continue
			}
		} else {
			gone, err := s.remoteRecordsDeleted(ctx, deletedOrders, a.OrderNumber)
			if err != nil {
				return nil, err
			}
			if !gone {
				continue
			}
			note = "remote records deleted"
		}
		key := alert.Key{OrderNumber: a.OrderNumber, SKU: a.SKU}
		if err := s.duplicates.ResolveByKey(ctx, key, "auto", note); err != nil {
			return nil, fmt.Errorf("auto-resolve duplicate alert: %w", err)
		}
		result.DuplicatesResolved++
	}

	for orderNumber, ids := range remoteIDs {
		if len(ids) < 2 {
			continue
		}
		sorted := make([]int64, 0, len(ids))
		for id := range ids {
			sorted = append(sorted, id)
		}
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		payload, err := json.Marshal(sorted)
		if err != nil {
			return nil, fmt.Errorf("encode conflict ids: %w", err)
		}
		c := &alert.ManualOrderConflict{
			BaseEntity:  shared.NewBaseEntity(),
			OrderNumber: orderNumber,
			Status:      alert.StatusActive,
			RemoteIDs:   string(payload),
			IDCount:     len(sorted),
			LastSeenAt:  now,
		}
		if err := s.conflicts.Upsert(ctx, c); err != nil {
			return nil, fmt.Errorf("upsert conflict: %w", err)
		}
		result.ConflictsFlagged++
	}

	activeConflicts, err := s.conflicts.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active conflicts: %w", err)
	}
	for _, c := range activeConflicts {
		note := "condition cleared on rescan"
		ids, seen := remoteIDs[c.OrderNumber]
		if seen {
			if len(ids) >= 2 {
				continue
			}
		} else {
			gone, err := s.remoteRecordsDeleted(ctx, deletedOrders, c.OrderNumber)
			if err != nil {
				return nil, err
			}
			if !gone {
				continue
			}
			note = "remote records deleted"
		}
		if err := s.conflicts.ResolveByOrderNumber(ctx, c.OrderNumber, "auto", note); err != nil {
			return nil, fmt.Errorf("auto-resolve conflict: %w", err)
		}
		result.ConflictsResolved++
	}

	s.logger.Info("duplicate scan finished",
		zap.Int("orders_scanned", result.OrdersScanned),
		zap.Int("duplicates_flagged", result.DuplicatesFlagged),
		zap.Int("duplicates_resolved", result.DuplicatesResolved),
		zap.Int("conflicts_flagged", result.ConflictsFlagged),
		zap.Int("conflicts_resolved", result.ConflictsResolved),
	)
	return result, nil
}

// remoteRecordsDeleted checks by direct lookup whether an order number has no
// remaining records on the platform. Results are memoized per scan.
func (s *DuplicateScanService) remoteRecordsDeleted(ctx context.Context, cache map[string]bool, orderNumber string) (bool, error) {
	if gone, ok := cache[orderNumber]; ok {
		return gone, nil
	}
	remote, err := s.client.ListOrdersByNumber(ctx, orderNumber)
	if err != nil {
		return false, fmt.Errorf("confirm remote deletion: %w", err)
	}
	gone := len(remote) == 0
	cache[orderNumber] = gone
	return gone, nil
}
