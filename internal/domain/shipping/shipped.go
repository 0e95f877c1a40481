package shipping

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/oracare/fulfillment/internal/domain/shared"
)

// ShippedOrder is the append-oriented historical record created once an order
// reaches shipped status. Rows are keyed by (order_number, remote_id) and
// upserted on conflict so resyncs are tolerated.
type ShippedOrder struct {
	shared.BaseEntity
	OrderNumber    string    `gorm:"size:64;not null;uniqueIndex:idx_shipped_orders_number_remote,priority:1"`
	RemoteID       int64     `gorm:"not null;uniqueIndex:idx_shipped_orders_number_remote,priority:2"`
	OrderDate      time.Time `gorm:"not null"`
	ShipDate       *time.Time
	CarrierCode    string `gorm:"size:64"`
	ServiceCode    string `gorm:"size:64"`
	TrackingNumber string `gorm:"size:128"`
	CustomerName   string `gorm:"size:255"`
	ShipCity       string `gorm:"size:128"`
	ShipState      string `gorm:"size:64"`
	ShipCountry    string `gorm:"size:2"`
}

// TableName returns the table name for GORM
func (ShippedOrder) TableName() string {
	return "shipped_orders"
}

// ShippedItem is one shipped line, keyed by (order_number, remote_id, sku)
// with upsert-on-conflict semantics.
type ShippedItem struct {
	shared.BaseEntity
	OrderNumber string          `gorm:"size:64;not null;uniqueIndex:idx_shipped_items_key,priority:1"`
	RemoteID    int64           `gorm:"not null;uniqueIndex:idx_shipped_items_key,priority:2"`
	SKU         string          `gorm:"size:64;not null;uniqueIndex:idx_shipped_items_key,priority:3"`
	LotNumber   string          `gorm:"size:64"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (ShippedItem) TableName() string {
	return "shipped_items"
}
