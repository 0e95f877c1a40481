package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oracare/fulfillment/internal/domain/shared"
)

// SourceSystem tags where an inbox order originated
type SourceSystem string

const (
	// SourceXMLFeed marks orders ingested from the seller's XML order feed
	SourceXMLFeed SourceSystem = "xml_feed"
	// SourceShipStation marks manual orders imported from the shipping platform
	SourceShipStation SourceSystem = "shipstation"
)

// Order represents an order pending or in flight through fulfillment.
// The natural key is OrderNumber; RemoteID links the row to the shipping
// platform's own identifier once the order is known there.
type Order struct {
	shared.BaseEntity
	OrderNumber string    `gorm:"size:64;not null;uniqueIndex"`
	OrderDate   time.Time `gorm:"not null"`

	CustomerName  string `gorm:"size:255"`
	CustomerEmail string `gorm:"size:255"`

	ShipName       string `gorm:"size:255"`
	ShipStreet1    string `gorm:"size:255"`
	ShipStreet2    string `gorm:"size:255"`
	ShipCity       string `gorm:"size:128"`
	ShipState      string `gorm:"size:64"`
	ShipPostalCode string `gorm:"size:32"`
	ShipCountry    string `gorm:"size:2"`
	ShipPhone      string `gorm:"size:64"`

	BillName       string `gorm:"size:255"`
	BillStreet1    string `gorm:"size:255"`
	BillCity       string `gorm:"size:128"`
	BillState      string `gorm:"size:64"`
	BillPostalCode string `gorm:"size:32"`
	BillCountry    string `gorm:"size:2"`

	Status         Status       `gorm:"size:32;not null;default:pending;index"`
	RemoteID       *int64       `gorm:"uniqueIndex"` // ShipStation orderId once known
	CarrierCode    string       `gorm:"size:64"`
	ServiceCode    string       `gorm:"size:64"`
	TrackingNumber string       `gorm:"size:128"`
	IsFlagged      bool         `gorm:"not null;default:false"`
	Source         SourceSystem `gorm:"size:32;not null;default:xml_feed"`

	Items []Item `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders_inbox"
}

// Item represents one (order, SKU) line. Items are owned exclusively by their
// order and are deleted and reinserted wholesale whenever the order's items
// are refreshed from the platform.
type Item struct {
	shared.BaseEntity
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_order_items_order_sku,priority:1"`
	SKU       string          `gorm:"size:64;not null;uniqueIndex:idx_order_items_order_sku,priority:2"`
	LotNumber string          `gorm:"size:64"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (Item) TableName() string {
	return "order_items_inbox"
}

// NewOrder creates a new inbox order
func NewOrder(orderNumber string, orderDate time.Time, source SourceSystem) (*Order, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	return &Order{
		BaseEntity:  shared.NewBaseEntity(),
		OrderNumber: orderNumber,
		OrderDate:   orderDate,
		Status:      StatusPending,
		Source:      source,
		Items:       make([]Item, 0),
	}, nil
}

// SetShippingInfo records carrier metadata reported by the platform
func (o *Order) SetShippingInfo(carrierCode, serviceCode, trackingNumber string) {
	o.CarrierCode = carrierCode
	o.ServiceCode = serviceCode
	o.TrackingNumber = trackingNumber
	o.UpdatedAt = time.Now()
}

// TransitionTo sets the order status
func (o *Order) TransitionTo(status Status) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown order status: "+status.String())
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return nil
}

// Flag marks the order for operator attention
func (o *Order) Flag() {
	o.IsFlagged = true
	o.UpdatedAt = time.Now()
}

// Unflag clears the attention mark
func (o *Order) Unflag() {
	o.IsFlagged = false
	o.UpdatedAt = time.Now()
}

// HasDuplicateSKU reports whether two items of the order carry the same SKU.
// Such orders can never be persisted because the schema enforces SKU
// uniqueness per order.
func HasDuplicateSKU(items []Item) bool {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.SKU]; ok {
			return true
		}
		seen[item.SKU] = struct{}{}
	}
	return false
}

// JoinSKULot rebuilds the platform SKU form from a base SKU and lot
func JoinSKULot(baseSKU, lot string) string {
	if lot == "" {
		return baseSKU
	}
	return baseSKU + " - " + lot
}

// SplitSKULot splits a platform SKU of the form "17612 - 240901" into the
// base SKU and lot suffix. SKUs without a lot suffix return an empty lot.
func SplitSKULot(platformSKU string) (baseSKU, lot string) {
	parts := strings.SplitN(platformSKU, " - ", 2)
	baseSKU = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		lot = strings.TrimSpace(parts[1])
	}
	return baseSKU, lot
}
