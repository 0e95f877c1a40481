package inventory

import (
	"time"

	"github.com/oracare/fulfillment/internal/domain/shared"
)

// TransactionType represents the type of inventory ledger transaction
type TransactionType string

const (
	// TransactionTypeReceive represents stock received from manufacturing
	TransactionTypeReceive TransactionType = "Receive"
	// TransactionTypeShip represents stock consumed by a shipped order
	TransactionTypeShip TransactionType = "Ship"
	// TransactionTypeAdjustUp represents a positive manual adjustment
	TransactionTypeAdjustUp TransactionType = "Adjust Up"
	// TransactionTypeAdjustDown represents a negative manual adjustment
	TransactionTypeAdjustDown TransactionType = "Adjust Down"
	// TransactionTypeRepackIn represents quantity moved into a lot during repack
	TransactionTypeRepackIn TransactionType = "Repack In"
	// TransactionTypeRepackOut represents quantity moved out of a lot during repack
	TransactionTypeRepackOut TransactionType = "Repack Out"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsValid returns true if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeReceive,
		TransactionTypeShip,
		TransactionTypeAdjustUp,
		TransactionTypeAdjustDown,
		TransactionTypeRepackIn,
		TransactionTypeRepackOut:
		return true
	}
	return false
}

// IsIncrease returns true if this transaction type increases on-hand quantity
func (t TransactionType) IsIncrease() bool {
	switch t {
	case TransactionTypeReceive,
		TransactionTypeAdjustUp,
		TransactionTypeRepackIn:
		return true
	}
	return false
}

// IsDecrease returns true if this transaction type decreases on-hand quantity
func (t TransactionType) IsDecrease() bool {
	switch t {
	case TransactionTypeShip,
		TransactionTypeAdjustDown,
		TransactionTypeRepackOut:
		return true
	}
	return false
}

// SignedQuantity applies the transaction type's direction to a quantity
func (t TransactionType) SignedQuantity(quantity int) int {
	if t.IsDecrease() {
		return -quantity
	}
	return quantity
}

// Transaction is one row of the append-only inventory ledger. The ledger is
// the source of truth from which the current-quantity and per-lot caches are
// recomputed.
type Transaction struct {
	shared.BaseEntity
	SKU       string          `gorm:"size:64;not null;index:idx_inventory_tx_sku_lot,priority:1"`
	LotNumber string          `gorm:"size:64;index:idx_inventory_tx_sku_lot,priority:2"`
	Type      TransactionType `gorm:"size:32;not null"`
	Quantity  int             `gorm:"not null"` // always positive; direction comes from Type
	Reference string          `gorm:"size:255"` // order number, receipt id, or free text
	Operator  string          `gorm:"size:128"`
	Notes     string          `gorm:"size:1024"`
}

// TableName returns the table name for GORM
func (Transaction) TableName() string {
	return "inventory_transactions"
}

// NewTransaction creates a ledger transaction after validating type and quantity
func NewTransaction(sku, lot string, txType TransactionType, quantity int, reference, operator string) (*Transaction, error) {
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if !txType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_TYPE", "Unknown transaction type: "+txType.String())
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	return &Transaction{
		BaseEntity: shared.NewBaseEntity(),
		SKU:        sku,
		LotNumber:  lot,
		Type:       txType,
		Quantity:   quantity,
		Reference:  reference,
		Operator:   operator,
	}, nil
}

// Current is the derived current-quantity cache per SKU
type Current struct {
	SKU             string    `gorm:"size:64;primaryKey"`
	CurrentQuantity int       `gorm:"not null;default:0"`
	LastUpdated     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Current) TableName() string {
	return "inventory_current"
}

// Lot is the per-lot running balance for a SKU. Exactly one lot per SKU is
// marked active; the lot-mismatch scanner compares remote lot suffixes
// against it.
type Lot struct {
	shared.BaseEntity
	SKU       string `gorm:"size:64;not null;uniqueIndex:idx_lot_inventory_sku_lot,priority:1"`
	LotNumber string `gorm:"size:64;not null;uniqueIndex:idx_lot_inventory_sku_lot,priority:2"`
	Quantity  int    `gorm:"not null;default:0"`
	IsActive  bool   `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (Lot) TableName() string {
	return "lot_inventory"
}
