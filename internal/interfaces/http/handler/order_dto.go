package handler

import (
	"time"

	"github.com/google/uuid"

	orderapp "github.com/oracare/fulfillment/internal/application/order"
	"github.com/oracare/fulfillment/internal/domain/order"
)

// OrderItemResponse is one order line in API responses
type OrderItemResponse struct {
	SKU       string `json:"sku"`
	LotNumber string `json:"lot_number,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// OrderResponse is an inbox order in API responses
type OrderResponse struct {
	ID             uuid.UUID           `json:"id"`
	OrderNumber    string              `json:"order_number"`
	OrderDate      time.Time           `json:"order_date"`
	Status         string              `json:"status"`
	Source         string              `json:"source"`
	IsFlagged      bool                `json:"is_flagged"`
	RemoteID       *int64              `json:"remote_id,omitempty"`
	CustomerName   string              `json:"customer_name,omitempty"`
	CustomerEmail  string              `json:"customer_email,omitempty"`
	ShipCity       string              `json:"ship_city,omitempty"`
	ShipState      string              `json:"ship_state,omitempty"`
	ShipCountry    string              `json:"ship_country,omitempty"`
	CarrierCode    string              `json:"carrier_code,omitempty"`
	ServiceCode    string              `json:"service_code,omitempty"`
	TrackingNumber string              `json:"tracking_number,omitempty"`
	Items          []OrderItemResponse `json:"items"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func toOrderResponse(o *order.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemResponse{
			SKU:       item.SKU,
			LotNumber: item.LotNumber,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.String(),
		})
	}
	return OrderResponse{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		OrderDate:      o.OrderDate,
		Status:         o.Status.String(),
		Source:         string(o.Source),
		IsFlagged:      o.IsFlagged,
		RemoteID:       o.RemoteID,
		CustomerName:   o.CustomerName,
		CustomerEmail:  o.CustomerEmail,
		ShipCity:       o.ShipCity,
		ShipState:      o.ShipState,
		ShipCountry:    o.ShipCountry,
		CarrierCode:    o.CarrierCode,
		ServiceCode:    o.ServiceCode,
		TrackingNumber: o.TrackingNumber,
		Items:          items,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func toOrderResponses(orders []order.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResponse(&orders[i]))
	}
	return out
}

// ImportFeedResponse summarizes one XML feed import
type ImportFeedResponse struct {
	Total    int                      `json:"total"`
	Imported int                      `json:"imported"`
	Skipped  int                      `json:"skipped"`
	Rejected []orderapp.RejectedOrder `json:"rejected"`
}

func toImportFeedResponse(r *orderapp.ImportResult) ImportFeedResponse {
	rejected := r.Rejected
	if rejected == nil {
		rejected = []orderapp.RejectedOrder{}
	}
	return ImportFeedResponse{
		Total:    r.Total,
		Imported: r.Imported,
		Skipped:  r.Skipped,
		Rejected: rejected,
	}
}

// FlagRequest is the body of the order flag endpoint
type FlagRequest struct {
	Flagged bool `json:"flagged"`
}
