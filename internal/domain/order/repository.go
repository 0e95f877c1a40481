package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter defines list filtering for inbox orders
type Filter struct {
	Status      *Status
	IsFlagged   *bool
	Search      string
	Page        int
	PageSize    int
}

// Repository defines persistence for inbox orders and their items
type Repository interface {
	// Save creates or updates an order (items are not touched)
	Save(ctx context.Context, o *Order) error

	// FindByID finds an order by its surrogate ID
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByOrderNumber finds an order by its natural key, items included
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)

	// FindByRemoteID finds an order by the platform's order ID
	FindByRemoteID(ctx context.Context, remoteID int64) (*Order, error)

	// ExistsByOrderNumber reports whether the natural key is already known
	ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error)

	// List returns orders matching the filter with a total count
	List(ctx context.Context, filter Filter) ([]Order, int64, error)

	// ReplaceItems deletes and reinserts the full item set of an order.
	// There is no partial diffing: items are owned wholesale by the order.
	ReplaceItems(ctx context.Context, orderID uuid.UUID, items []Item) error

	// FindGhostOrders returns orders that carry a remote ID but have zero
	// local item rows, a consequence of earlier partial syncs.
	FindGhostOrders(ctx context.Context, limit int) ([]Order, error)

	// FindPendingUpload returns feed-sourced orders not yet pushed to the
	// platform, oldest first.
	FindPendingUpload(ctx context.Context, limit int) ([]Order, error)

	// FindCancelledUploads returns feed-sourced orders cancelled locally
	// that still exist on the platform.
	FindCancelledUploads(ctx context.Context, limit int) ([]Order, error)

	// DeleteOlderThan removes terminal orders whose order date precedes the
	// cutoff. Used by the scheduled cleanup job.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// OriginRepository records which platform order IDs originated from our own
// upload pipeline. The sync consults it so self-originated platform echoes
// are not reimported as manual orders.
type OriginRepository interface {
	// IsLocalOrigin reports whether the remote order ID was created by this
	// system's own upload pipeline.
	IsLocalOrigin(ctx context.Context, remoteID int64) (bool, error)

	// RecordOrigin links a remote order ID to the local order that produced it
	RecordOrigin(ctx context.Context, remoteID int64, orderNumber string) error
}
