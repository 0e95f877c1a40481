package order

import "strings"

// Status represents the lifecycle status of an inbox order
type Status string

const (
	// StatusPending is the initial state of an order imported from the XML feed
	StatusPending Status = "pending"
	// StatusAwaitingPayment mirrors the platform's awaiting_payment state
	StatusAwaitingPayment Status = "awaiting_payment"
	// StatusAwaitingShipment mirrors the platform's awaiting_shipment state
	StatusAwaitingShipment Status = "awaiting_shipment"
	// StatusOnHold mirrors the platform's on_hold state
	StatusOnHold Status = "on_hold"
	// StatusShipped indicates the order has been shipped
	StatusShipped Status = "shipped"
	// StatusCancelled indicates the order was cancelled, locally or remotely
	StatusCancelled Status = "cancelled"
	// StatusFailed indicates the order failed during upload to the platform
	StatusFailed Status = "failed"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending,
		StatusAwaitingPayment,
		StatusAwaitingShipment,
		StatusOnHold,
		StatusShipped,
		StatusCancelled,
		StatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if the status is a final state
func (s Status) IsTerminal() bool {
	return s == StatusShipped || s == StatusCancelled
}

// MapRemoteStatus maps the shipping platform's status vocabulary to the local
// one. The mapping is total: unrecognized remote values fall back to pending
// rather than failing the sync cycle.
func MapRemoteStatus(remote string) Status {
	switch strings.ToLower(remote) {
	case "awaiting_payment":
		return StatusAwaitingPayment
	case "awaiting_shipment":
		return StatusAwaitingShipment
	case "on_hold":
		return StatusOnHold
	case "shipped":
		return StatusShipped
	case "cancelled":
		return StatusCancelled
	default:
		return StatusPending
	}
}

// ManualOrderPrefix is the order-number prefix the warehouse team uses for
// orders created directly on the shipping platform. Identification by prefix
// is a convention carried over from existing operations, not an enforced rule.
const ManualOrderPrefix = "6"

// IsManualOrderNumber reports whether an order number follows the
// manually-created numbering convention.
func IsManualOrderNumber(orderNumber string) bool {
	return strings.HasPrefix(orderNumber, ManualOrderPrefix)
}
