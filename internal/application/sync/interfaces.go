package sync

import (
	"context"
	"time"

	"github.com/oracare/fulfillment/internal/domain/alert"
	"github.com/oracare/fulfillment/internal/domain/inventory"
	"github.com/oracare/fulfillment/internal/domain/order"
	"github.com/oracare/fulfillment/internal/domain/shipping"
	"github.com/oracare/fulfillment/internal/domain/syncstate"
	"github.com/oracare/fulfillment/internal/infrastructure/shipstation"
)

// PlatformClient is the slice of the shipping platform API the sync
// workflows consume.
type PlatformClient interface {
	ListOrdersModifiedBetween(ctx context.Context, from, to time.Time) ([]shipstation.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*shipstation.Order, error)
	ListOrdersByNumber(ctx context.Context, orderNumber string) ([]shipstation.Order, error)
	ListShipmentsBetween(ctx context.Context, from, to time.Time) ([]shipstation.Shipment, error)
	CreateOrUpdateOrder(ctx context.Context, upload *shipstation.OrderUpload) (*shipstation.Order, error)
	DeleteOrder(ctx context.Context, orderID int64) error
}

// Repositories is the set of repositories a sync batch writes through.
// All of them share one transaction inside TransactionScope.Execute.
type Repositories interface {
	Orders() order.Repository
	Origins() order.OriginRepository
	Shipped() shipping.Repository
	Watermarks() syncstate.WatermarkRepository
	Duplicates() alert.DuplicateRepository
	LotMismatches() alert.LotMismatchRepository
	Conflicts() alert.ConflictRepository
	Ledger() inventory.TransactionRepository
	CurrentInventory() inventory.CurrentRepository
	Lots() inventory.LotRepository
}

// TransactionScope runs a function against transactional repositories.
// The whole function commits or rolls back as one unit, which is what
// keeps the watermark in step with the batch it gates.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}
