package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oracare/fulfillment/internal/domain/shipping"
	"github.com/oracare/fulfillment/internal/interfaces/http/dto"
	"github.com/oracare/fulfillment/internal/interfaces/http/router"
)

// ShippedOrderResponse is a shipped-history order row in API responses
type ShippedOrderResponse struct {
	ID             uuid.UUID  `json:"id"`
	OrderNumber    string     `json:"order_number"`
	RemoteID       int64      `json:"remote_id"`
	OrderDate      time.Time  `json:"order_date"`
	ShipDate       *time.Time `json:"ship_date,omitempty"`
	CarrierCode    string     `json:"carrier_code,omitempty"`
	ServiceCode    string     `json:"service_code,omitempty"`
	TrackingNumber string     `json:"tracking_number,omitempty"`
	CustomerName   string     `json:"customer_name,omitempty"`
	ShipCity       string     `json:"ship_city,omitempty"`
	ShipState      string     `json:"ship_state,omitempty"`
	ShipCountry    string     `json:"ship_country,omitempty"`
}

// ShippedItemResponse is a shipped line item in API responses
type ShippedItemResponse struct {
	OrderNumber string `json:"order_number"`
	RemoteID    int64  `json:"remote_id"`
	SKU         string `json:"sku"`
	LotNumber   string `json:"lot_number,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

// ShippedHandler serves the immutable shipped-history tables
type ShippedHandler struct {
	BaseHandler
	shipped shipping.Repository
}

// NewShippedHandler creates a new shipped-history handler
func NewShippedHandler(shipped shipping.Repository) *ShippedHandler {
	return &ShippedHandler{shipped: shipped}
}

type listShippedRequest struct {
	dto.ListRequest
	OrderNumber string `form:"order_number"`
	SKU         string `form:"sku"`
	From        string `form:"from"`
	To          string `form:"to"`
}

// List returns shipped orders matching the query filter
func (h *ShippedHandler) List(c *gin.Context) {
	var req listShippedRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	req.Normalize()

	filter := shipping.Filter{
		OrderNumber: req.OrderNumber,
		SKU:         req.SKU,
		Page:        req.Page,
		PageSize:    req.PageSize,
	}
	if req.From != "" {
		from, err := time.Parse("2006-01-02", req.From)
		if err != nil {
			h.BadRequest(c, "Invalid from date, expected YYYY-MM-DD")
			return
		}
		filter.ShippedFrom = &from
	}
	if req.To != "" {
		to, err := time.Parse("2006-01-02", req.To)
		if err != nil {
			h.BadRequest(c, "Invalid to date, expected YYYY-MM-DD")
			return
		}
		// inclusive end of day
		to = to.Add(24*time.Hour - time.Nanosecond)
		filter.ShippedTo = &to
	}

	orders, total, err := h.shipped.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]ShippedOrderResponse, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		out = append(out, ShippedOrderResponse{
			ID:             o.ID,
			OrderNumber:    o.OrderNumber,
			RemoteID:       o.RemoteID,
			OrderDate:      o.OrderDate,
			ShipDate:       o.ShipDate,
			CarrierCode:    o.CarrierCode,
			ServiceCode:    o.ServiceCode,
			TrackingNumber: o.TrackingNumber,
			CustomerName:   o.CustomerName,
			ShipCity:       o.ShipCity,
			ShipState:      o.ShipState,
			ShipCountry:    o.ShipCountry,
		})
	}
	h.SuccessWithMeta(c, out, total, req.Page, req.PageSize)
}

// Items returns the shipped line items for one order number
func (h *ShippedHandler) Items(c *gin.Context) {
	items, err := h.shipped.ListItemsByOrder(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]ShippedItemResponse, 0, len(items))
	for i := range items {
		item := &items[i]
		out = append(out, ShippedItemResponse{
			OrderNumber: item.OrderNumber,
			RemoteID:    item.RemoteID,
			SKU:         item.SKU,
			LotNumber:   item.LotNumber,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.String(),
		})
	}
	h.Success(c, out)
}

// Routes returns the shipped-history route group
func (h *ShippedHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("shipped", "/shipped")
	g.GET("", h.List)
	g.GET("/:number/items", h.Items)
	return g
}
