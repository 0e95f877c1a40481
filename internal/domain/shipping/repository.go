package shipping

import (
	"context"
	"time"
)

// Filter defines list filtering for shipped history
type Filter struct {
	OrderNumber string
	SKU         string
	ShippedFrom *time.Time
	ShippedTo   *time.Time
	Page        int
	PageSize    int
}

// Repository defines persistence for the shipped history tables
type Repository interface {
	// UpsertOrder inserts or updates a shipped order by its natural key
	UpsertOrder(ctx context.Context, o *ShippedOrder) error

	// UpsertItems inserts or updates shipped item rows by their natural key
	UpsertItems(ctx context.Context, items []ShippedItem) error

	// ListOrders returns shipped orders matching the filter with a total count
	ListOrders(ctx context.Context, filter Filter) ([]ShippedOrder, int64, error)

	// ListItemsByOrder returns shipped item rows for one order number
	ListItemsByOrder(ctx context.Context, orderNumber string) ([]ShippedItem, error)

	// VolumeBySKU returns shipped quantity per SKU within a window,
	// feeding the shipment-volume report.
	VolumeBySKU(ctx context.Context, from, to time.Time) (map[string]int, error)
}
