package sync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/oracare/fulfillment/internal/domain/order"
	"github.com/oracare/fulfillment/internal/domain/shared"
	"github.com/oracare/fulfillment/internal/infrastructure/shipstation"
)

// UploadResult summarizes one upload cycle
type UploadResult struct {
	Pushed  int
	Deleted int
	Failed  int
}

// OrderUploadService pushes feed-sourced orders out to the shipping
// platform. A successful push records the returned remote ID in the origin
// table, which is how the reconciliation sync tells its own echoes apart
// from genuinely manual platform orders. A failed push marks the order
// failed for operator attention. Orders cancelled locally after upload are
// deleted from the platform.
type OrderUploadService struct {
	client  PlatformClient
	orders  order.Repository
	origins order.OriginRepository
	limit   int
	logger  *zap.Logger
}

// NewOrderUploadService builds the order upload service
func NewOrderUploadService(client PlatformClient, orders order.Repository, origins order.OriginRepository, limit int, logger *zap.Logger) *OrderUploadService {
	if limit <= 0 {
		limit = 50
	}
	return &OrderUploadService{
		client:  client,
		orders:  orders,
		origins: origins,
		limit:   limit,
		logger:  logger,
	}
}

// Run executes one upload cycle
func (s *OrderUploadService) Run(ctx context.Context) (*UploadResult, error) {
	result := &UploadResult{}

	pending, err := s.orders.FindPendingUpload(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("find pending uploads: %w", err)
	}
	for i := range pending {
		o := &pending[i]
		remote, err := s.client.CreateOrUpdateOrder(ctx, buildUpload(o))
		if errors.Is(err, shared.ErrRateLimited) {
			s.logger.Warn("upload cycle aborted by rate limit", zap.Int("pushed", result.Pushed))
			return result, err
		}
		if err != nil {
			s.logger.Error("order upload failed", zap.String("order_number", o.OrderNumber), zap.Error(err))
			if terr := o.TransitionTo(order.StatusFailed); terr != nil {
				return nil, terr
			}
			if err := s.orders.Save(ctx, o); err != nil {
				return nil, fmt.Errorf("mark order failed: %w", err)
			}
			result.Failed++
			continue
		}

		remoteID := remote.OrderID
		if err := s.origins.RecordOrigin(ctx, remoteID, o.OrderNumber); err != nil {
			return nil, fmt.Errorf("record origin: %w", err)
		}
		o.RemoteID = &remoteID
		if err := o.TransitionTo(order.StatusAwaitingShipment); err != nil {
			return nil, err
		}
		if err := s.orders.Save(ctx, o); err != nil {
			return nil, fmt.Errorf("save uploaded order: %w", err)
		}
		result.Pushed++
	}

	cancelled, err := s.orders.FindCancelledUploads(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("find cancelled uploads: %w", err)
	}
	for i := range cancelled {
		o := &cancelled[i]
		err := s.client.DeleteOrder(ctx, *o.RemoteID)
		if errors.Is(err, shared.ErrRateLimited) {
			s.logger.Warn("upload cycle aborted by rate limit", zap.Int("deleted", result.Deleted))
			return result, err
		}
		if err != nil && !errors.Is(err, shared.ErrRemoteOrderNotFound) {
			s.logger.Error("order delete failed", zap.String("order_number", o.OrderNumber), zap.Error(err))
			result.Failed++
			continue
		}

		// clearing the remote ID retires the order from this query; the
		// origin record stays so late echoes are still filtered
		o.RemoteID = nil
		if err := s.orders.Save(ctx, o); err != nil {
			return nil, fmt.Errorf("save deleted order: %w", err)
		}
		result.Deleted++
	}

	s.logger.Info("order upload cycle finished",
		zap.Int("pushed", result.Pushed),
		zap.Int("deleted", result.Deleted),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// buildUpload maps a local order to the platform's outbound payload
func buildUpload(o *order.Order) *shipstation.OrderUpload {
	items := make([]shipstation.OrderUploadItem, 0, len(o.Items))
	for _, item := range o.Items {
		price, _ := item.UnitPrice.Float64()
		unitPrice := price
		items = append(items, shipstation.OrderUploadItem{
			SKU:       order.JoinSKULot(item.SKU, item.LotNumber),
			Quantity:  item.Quantity,
			UnitPrice: &unitPrice,
		})
	}
	return &shipstation.OrderUpload{
		OrderNumber:   o.OrderNumber,
		OrderKey:      o.OrderNumber,
		OrderDate:     shipstation.Time(o.OrderDate),
		OrderStatus:   "awaiting_shipment",
		CustomerEmail: o.CustomerEmail,
		BillTo: shipstation.Address{
			Name:       o.BillName,
			Street1:    o.BillStreet1,
			City:       o.BillCity,
			State:      o.BillState,
			PostalCode: o.BillPostalCode,
			Country:    o.BillCountry,
		},
		ShipTo: shipstation.Address{
			Name:       o.ShipName,
			Street1:    o.ShipStreet1,
			Street2:    o.ShipStreet2,
			City:       o.ShipCity,
			State:      o.ShipState,
			PostalCode: o.ShipPostalCode,
			Country:    o.ShipCountry,
			Phone:      o.ShipPhone,
		},
		Items: items,
	}
}
