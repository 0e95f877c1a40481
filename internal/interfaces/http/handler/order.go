package handler

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	orderapp "github.com/oracare/fulfillment/internal/application/order"
	"github.com/oracare/fulfillment/internal/domain/order"
	"github.com/oracare/fulfillment/internal/interfaces/http/dto"
	"github.com/oracare/fulfillment/internal/interfaces/http/router"
)

// OrderHandler handles order inbox endpoints and the XML feed upload
type OrderHandler struct {
	BaseHandler
	orders *orderapp.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *orderapp.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type listOrdersRequest struct {
	dto.ListRequest
	Status  string `form:"status"`
	Flagged *bool  `form:"flagged"`
}

// List returns inbox orders matching the query filter
func (h *OrderHandler) List(c *gin.Context) {
	var req listOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	req.Normalize()

	filter := order.Filter{
		IsFlagged: req.Flagged,
		Search:    req.Search,
		Page:      req.Page,
		PageSize:  req.PageSize,
	}
	if req.Status != "" {
		status := order.Status(req.Status)
		if !status.IsValid() {
			h.BadRequest(c, "Unknown order status: "+req.Status)
			return
		}
		filter.Status = &status
	}

	orders, total, err := h.orders.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, toOrderResponses(orders), total, req.Page, req.PageSize)
}

// Get returns one inbox order by ID
func (h *OrderHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	o, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(o))
}

// GetByNumber returns one inbox order by order number
func (h *OrderHandler) GetByNumber(c *gin.Context) {
	o, err := h.orders.GetByOrderNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(o))
}

// Flag sets or clears the operator-attention flag on an order
func (h *OrderHandler) Flag(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	o, err := h.orders.SetFlagged(c.Request.Context(), id, req.Flagged)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(o))
}

// Cancel cancels an inbox order that has not reached a terminal state
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	o, err := h.orders.Cancel(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(o))
}

// ImportFeed ingests an uploaded XML order feed. The feed arrives either as
// a multipart "file" field or as the raw request body.
func (h *OrderHandler) ImportFeed(c *gin.Context) {
	var reader io.ReadCloser

	file, _, err := c.Request.FormFile("file")
	if err == nil {
		reader = file
	} else {
		reader = c.Request.Body
	}
	defer func() { _ = reader.Close() }()

	result, err := h.orders.ImportFeed(c.Request.Context(), reader)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toImportFeedResponse(result))
}

// Routes returns the order route group
func (h *OrderHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("orders", "/orders")
	g.GET("", h.List)
	g.POST("/import", h.ImportFeed)
	g.GET("/number/:number", h.GetByNumber)
	g.GET("/:id", h.Get)
	g.POST("/:id/flag", h.Flag)
	g.POST("/:id/cancel", h.Cancel)
	return g
}
