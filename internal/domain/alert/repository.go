package alert

import "context"

// Key is the natural composite key of order-level alerts
type Key struct {
	OrderNumber string
	SKU         string
}

// DuplicateRepository persists duplicate alerts
type DuplicateRepository interface {
	// Upsert creates or refreshes an alert by its natural key. A resolved
	// alert whose condition recurs is reactivated.
	Upsert(ctx context.Context, a *DuplicateAlert) error

	// ListActive returns all active duplicate alerts
	ListActive(ctx context.Context) ([]DuplicateAlert, error)

	// List returns all duplicate alerts, active and resolved
	List(ctx context.Context) ([]DuplicateAlert, error)

	// ResolveByKey resolves the active alert for a natural key
	ResolveByKey(ctx context.Context, key Key, by, note string) error
}

// LotMismatchRepository persists lot-mismatch alerts
type LotMismatchRepository interface {
	// Upsert creates or refreshes an alert by its natural key
	Upsert(ctx context.Context, a *LotMismatchAlert) error

	// ListActive returns all active lot-mismatch alerts
	ListActive(ctx context.Context) ([]LotMismatchAlert, error)

	// List returns all lot-mismatch alerts
	List(ctx context.Context) ([]LotMismatchAlert, error)

	// ResolveByKey resolves the active alert for a natural key.
	// Lot-mismatch alerts are only ever resolved manually.
	ResolveByKey(ctx context.Context, key Key, by, note string) error
}

// ConflictRepository persists manual-order-number conflicts
type ConflictRepository interface {
	// Upsert creates or refreshes a conflict by order number
	Upsert(ctx context.Context, c *ManualOrderConflict) error

	// ListActive returns all active conflicts
	ListActive(ctx context.Context) ([]ManualOrderConflict, error)

	// List returns all conflicts
	List(ctx context.Context) ([]ManualOrderConflict, error)

	// ResolveByOrderNumber resolves the active conflict for an order number
	ResolveByOrderNumber(ctx context.Context, orderNumber, by, note string) error
}
