package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		status   Status
		expected bool
	}{
		{"pending is valid", StatusPending, true},
		{"awaiting_payment is valid", StatusAwaitingPayment, true},
		{"awaiting_shipment is valid", StatusAwaitingShipment, true},
		{"on_hold is valid", StatusOnHold, true},
		{"shipped is valid", StatusShipped, true},
		{"cancelled is valid", StatusCancelled, true},
		{"failed is valid", StatusFailed, true},
		{"unknown is not valid", Status("unknown"), false},
		{"empty is not valid", Status(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.IsValid())
		})
	}
}

func TestMapRemoteStatus(t *testing.T) {
	tests := []struct {
		name     string
		remote   string
		expected Status
	}{
		{"awaiting_shipment maps directly", "awaiting_shipment", StatusAwaitingShipment},
		{"awaiting_payment maps directly", "awaiting_payment", StatusAwaitingPayment},
		{"on_hold maps directly", "on_hold", StatusOnHold},
		{"shipped maps directly", "shipped", StatusShipped},
		{"cancelled maps directly", "cancelled", StatusCancelled},
		{"mixed case is normalized", "Awaiting_Shipment", StatusAwaitingShipment},
		{"unrecognized falls back to pending", "some_future_status", StatusPending},
		{"empty falls back to pending", "", StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapRemoteStatus(tt.remote))
		})
	}
}

func TestIsManualOrderNumber(t *testing.T) {
	assert.True(t, IsManualOrderNumber("600123"))
	assert.True(t, IsManualOrderNumber("699999"))
	assert.False(t, IsManualOrderNumber("500123"))
	assert.False(t, IsManualOrderNumber("ORA-1001"))
	assert.False(t, IsManualOrderNumber(""))
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusShipped.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusAwaitingShipment.IsTerminal())
}
