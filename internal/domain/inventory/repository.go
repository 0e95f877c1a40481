package inventory

import (
	"context"
	"time"
)

// TransactionFilter defines filtering for ledger queries
type TransactionFilter struct {
	SKU      string
	Lot      string
	Type     *TransactionType
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// TransactionRepository is the append-only ledger repository
type TransactionRepository interface {
	// Append writes a ledger row. Ledger rows are never updated or deleted.
	Append(ctx context.Context, tx *Transaction) error

	// List returns ledger rows matching the filter with a total count
	List(ctx context.Context, filter TransactionFilter) ([]Transaction, int64, error)

	// SumBySKU returns the signed quantity sum per SKU over the whole ledger
	SumBySKU(ctx context.Context) (map[string]int, error)

	// SumByLot returns the signed quantity sum per (SKU, lot) pair
	SumByLot(ctx context.Context) (map[LotKey]int, error)
}

// LotKey identifies a (SKU, lot) pair
type LotKey struct {
	SKU string
	Lot string
}

// CurrentRepository manages the derived current-quantity cache
type CurrentRepository interface {
	// Get returns the cached current quantity for a SKU
	Get(ctx context.Context, sku string) (*Current, error)

	// List returns all cached rows
	List(ctx context.Context) ([]Current, error)

	// ApplyDelta adjusts a SKU's cached quantity by a signed delta,
	// creating the row when absent, and advances last_updated.
	ApplyDelta(ctx context.Context, sku string, delta int, at time.Time) error

	// Replace overwrites the whole cache with recomputed values
	Replace(ctx context.Context, rows []Current) error
}

// LotRepository manages per-lot balances and the active-lot designation
type LotRepository interface {
	// Get returns the balance row for a (SKU, lot) pair
	Get(ctx context.Context, sku, lot string) (*Lot, error)

	// ListBySKU returns all lots known for a SKU
	ListBySKU(ctx context.Context, sku string) ([]Lot, error)

	// ActiveLot returns the currently-active lot for a SKU, or ErrNotFound
	ActiveLot(ctx context.Context, sku string) (*Lot, error)

	// ActiveLots returns the active lot number per SKU for all SKUs
	ActiveLots(ctx context.Context) (map[string]string, error)

	// SetActive marks one lot active for a SKU and clears the flag on others
	SetActive(ctx context.Context, sku, lot string) error

	// ApplyDelta adjusts a lot balance by a signed delta, creating the row
	// when absent.
	ApplyDelta(ctx context.Context, sku, lot string, delta int) error

	// Replace overwrites all lot balances with recomputed values,
	// preserving active-lot flags.
	Replace(ctx context.Context, rows []Lot) error
}
