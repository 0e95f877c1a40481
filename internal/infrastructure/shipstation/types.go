package shipstation

import (
	"fmt"
	"strings"
	"time"
)

// Time handles the several timestamp formats ShipStation emits. The API is
// not consistent: some fields are RFC3339, some carry seven fractional
// digits with no zone, some are bare dates.
type Time time.Time

var timeFormats = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.0000000",
	"2006-01-02T15:04:05.0000000Z",
	"2006-01-02T15:04:05.9999999Z",
	"2006-01-02T15:04:05.999-07:00",
	"2006-01-02T15:04:05.9999999-07:00",
	"2006-01-02T15:04:05-07:00",
	time.RFC3339Nano,
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*t = Time(time.Time{})
		return nil
	}

	for _, format := range timeFormats {
		if parsed, err := time.Parse(format, s); err == nil {
			*t = Time(parsed)
			return nil
		}
	}

	// Last resort: the date-time prefix without fraction or zone
	if len(s) >= 19 {
		if parsed, err := time.Parse("2006-01-02T15:04:05", s[:19]); err == nil {
			*t = Time(parsed)
			return nil
		}
	}

	return fmt.Errorf("unable to parse time %q with any known format", s)
}

// MarshalJSON implements json.Marshaler
func (t Time) MarshalJSON() ([]byte, error) {
	tt := time.Time(t)
	if tt.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + tt.Format(time.RFC3339) + `"`), nil
}

// Time returns the time.Time representation
func (t Time) Time() time.Time {
	return time.Time(t)
}

// Address is a ShipStation shipping or billing address
type Address struct {
	Name       string `json:"name"`
	Company    string `json:"company"`
	Street1    string `json:"street1"`
	Street2    string `json:"street2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

// OrderItem is one line of a ShipStation order
type OrderItem struct {
	OrderItemID int64    `json:"orderItemId"`
	SKU         string   `json:"sku"`
	Name        string   `json:"name"`
	Quantity    int      `json:"quantity"`
	UnitPrice   *float64 `json:"unitPrice"`
	Adjustment  bool     `json:"adjustment"`
}

// Order is a ShipStation order as returned by /orders
type Order struct {
	OrderID       int64       `json:"orderId"`
	OrderNumber   string      `json:"orderNumber"`
	OrderKey      string      `json:"orderKey"`
	OrderDate     Time        `json:"orderDate"`
	CreateDate    Time        `json:"createDate"`
	ModifyDate    Time        `json:"modifyDate"`
	OrderStatus   string      `json:"orderStatus"`
	CustomerEmail string      `json:"customerEmail"`
	BillTo        Address     `json:"billTo"`
	ShipTo        Address     `json:"shipTo"`
	Items         []OrderItem `json:"items"`
	CarrierCode   string      `json:"carrierCode"`
	ServiceCode   string      `json:"serviceCode"`
	ShipDate      *Time       `json:"shipDate"`
}

// Shipment is a ShipStation shipment as returned by /shipments
type Shipment struct {
	ShipmentID     int64  `json:"shipmentId"`
	OrderID        int64  `json:"orderId"`
	OrderNumber    string `json:"orderNumber"`
	CreateDate     Time   `json:"createDate"`
	ShipDate       Time   `json:"shipDate"`
	TrackingNumber string `json:"trackingNumber"`
	CarrierCode    string `json:"carrierCode"`
	ServiceCode    string `json:"serviceCode"`
	Voided         bool   `json:"voided"`
}

// OrderUploadItem is one line of an outbound order
type OrderUploadItem struct {
	SKU       string   `json:"sku"`
	Name      string   `json:"name,omitempty"`
	Quantity  int      `json:"quantity"`
	UnitPrice *float64 `json:"unitPrice,omitempty"`
}

// AdvancedOptions carries the store binding of an outbound order
type AdvancedOptions struct {
	StoreID int `json:"storeId,omitempty"`
}

// OrderUpload is the payload of /orders/createorder. The platform matches on
// orderKey, so a stable key makes the call create-or-update.
type OrderUpload struct {
	OrderNumber     string            `json:"orderNumber"`
	OrderKey        string            `json:"orderKey,omitempty"`
	OrderDate       Time              `json:"orderDate"`
	OrderStatus     string            `json:"orderStatus"`
	CustomerEmail   string            `json:"customerEmail,omitempty"`
	BillTo          Address           `json:"billTo"`
	ShipTo          Address           `json:"shipTo"`
	Items           []OrderUploadItem `json:"items"`
	AdvancedOptions *AdvancedOptions  `json:"advancedOptions,omitempty"`
}

// ordersResponse is the paginated envelope of /orders
type ordersResponse struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
	Page   int     `json:"page"`
	Pages  int     `json:"pages"`
}

// shipmentsResponse is the paginated envelope of /shipments
type shipmentsResponse struct {
	Shipments []Shipment `json:"shipments"`
	Total     int        `json:"total"`
	Page      int        `json:"page"`
	Pages     int        `json:"pages"`
}
