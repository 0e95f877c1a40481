package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	inventoryapp "github.com/oracare/fulfillment/internal/application/inventory"
	"github.com/oracare/fulfillment/internal/domain/inventory"
	"github.com/oracare/fulfillment/internal/interfaces/http/dto"
	"github.com/oracare/fulfillment/internal/interfaces/http/router"
)

// CurrentLevelResponse is a per-SKU current quantity in API responses
type CurrentLevelResponse struct {
	SKU             string    `json:"sku"`
	CurrentQuantity int       `json:"current_quantity"`
	LastUpdated     time.Time `json:"last_updated"`
}

// LotResponse is a per-lot balance in API responses
type LotResponse struct {
	ID        uuid.UUID `json:"id"`
	SKU       string    `json:"sku"`
	LotNumber string    `json:"lot_number"`
	Quantity  int       `json:"quantity"`
	IsActive  bool      `json:"is_active"`
}

// TransactionResponse is a ledger row in API responses
type TransactionResponse struct {
	ID        uuid.UUID `json:"id"`
	SKU       string    `json:"sku"`
	LotNumber string    `json:"lot_number,omitempty"`
	Type      string    `json:"type"`
	Quantity  int       `json:"quantity"`
	Reference string    `json:"reference,omitempty"`
	Operator  string    `json:"operator,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PostTransactionRequest is the body of the ledger posting endpoint
type PostTransactionRequest struct {
	SKU       string `json:"sku" binding:"required"`
	LotNumber string `json:"lot_number"`
	Type      string `json:"type" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
	Reference string `json:"reference"`
	Notes     string `json:"notes"`
}

// SetActiveLotRequest is the body of the active-lot endpoint
type SetActiveLotRequest struct {
	LotNumber string `json:"lot_number" binding:"required"`
}

// RepackRequest is the body of the repack endpoint
type RepackRequest struct {
	SKU      string `json:"sku" binding:"required"`
	FromLot  string `json:"from_lot" binding:"required"`
	ToLot    string `json:"to_lot" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	Notes    string `json:"notes"`
}

// InventoryHandler serves inventory levels, lots and the ledger
type InventoryHandler struct {
	BaseHandler
	inventory *inventoryapp.InventoryService
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventoryService *inventoryapp.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventoryService}
}

// CurrentLevels returns every SKU's current quantity
func (h *InventoryHandler) CurrentLevels(c *gin.Context) {
	levels, err := h.inventory.CurrentLevels(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]CurrentLevelResponse, 0, len(levels))
	for _, l := range levels {
		out = append(out, CurrentLevelResponse{
			SKU:             l.SKU,
			CurrentQuantity: l.CurrentQuantity,
			LastUpdated:     l.LastUpdated,
		})
	}
	h.Success(c, out)
}

// CurrentLevel returns one SKU's current quantity
func (h *InventoryHandler) CurrentLevel(c *gin.Context) {
	level, err := h.inventory.CurrentLevel(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CurrentLevelResponse{
		SKU:             level.SKU,
		CurrentQuantity: level.CurrentQuantity,
		LastUpdated:     level.LastUpdated,
	})
}

// Lots returns the per-lot balances for one SKU
func (h *InventoryHandler) Lots(c *gin.Context) {
	lots, err := h.inventory.LotsForSKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]LotResponse, 0, len(lots))
	for i := range lots {
		l := &lots[i]
		out = append(out, LotResponse{
			ID:        l.ID,
			SKU:       l.SKU,
			LotNumber: l.LotNumber,
			Quantity:  l.Quantity,
			IsActive:  l.IsActive,
		})
	}
	h.Success(c, out)
}

// SetActiveLot designates the active lot for a SKU
func (h *InventoryHandler) SetActiveLot(c *gin.Context) {
	var req SetActiveLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "lot_number is required")
		return
	}

	if err := h.inventory.SetActiveLot(c.Request.Context(), c.Param("sku"), req.LotNumber); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"sku": c.Param("sku"), "active_lot": req.LotNumber})
}

// PostTransaction appends a ledger row and updates the derived caches
func (h *InventoryHandler) PostTransaction(c *gin.Context) {
	var req PostTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	tx, err := h.inventory.PostTransaction(c.Request.Context(), inventoryapp.PostTransactionInput{
		SKU:       req.SKU,
		LotNumber: req.LotNumber,
		Type:      inventory.TransactionType(req.Type),
		Quantity:  req.Quantity,
		Reference: req.Reference,
		Operator:  operatorName(c),
		Notes:     req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toTransactionResponse(tx))
}

// Repack moves quantity between two lots of one SKU, as paired ledger rows
func (h *InventoryHandler) Repack(c *gin.Context) {
	var req RepackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	txs, err := h.inventory.Repack(c.Request.Context(), req.SKU, req.FromLot, req.ToLot, req.Quantity, operatorName(c), req.Notes)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	h.Created(c, out)
}

// Recompute rebuilds the derived caches from the ledger
func (h *InventoryHandler) Recompute(c *gin.Context) {
	if err := h.inventory.Recompute(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"recomputed": true})
}

type listTransactionsRequest struct {
	dto.ListRequest
	SKU  string `form:"sku"`
	Lot  string `form:"lot"`
	Type string `form:"type"`
}

// Transactions returns ledger rows matching the query filter
func (h *InventoryHandler) Transactions(c *gin.Context) {
	var req listTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	req.Normalize()

	filter := inventory.TransactionFilter{
		SKU:      req.SKU,
		Lot:      req.Lot,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Type != "" {
		txType := inventory.TransactionType(req.Type)
		filter.Type = &txType
	}

	rows, total, err := h.inventory.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]TransactionResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toTransactionResponse(&rows[i]))
	}
	h.SuccessWithMeta(c, out, total, req.Page, req.PageSize)
}

func toTransactionResponse(tx *inventory.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:        tx.ID,
		SKU:       tx.SKU,
		LotNumber: tx.LotNumber,
		Type:      string(tx.Type),
		Quantity:  tx.Quantity,
		Reference: tx.Reference,
		Operator:  tx.Operator,
		Notes:     tx.Notes,
		CreatedAt: tx.CreatedAt,
	}
}

// Routes returns the inventory route group
func (h *InventoryHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("inventory", "/inventory")
	g.GET("/current", h.CurrentLevels)
	g.GET("/current/:sku", h.CurrentLevel)
	g.GET("/lots/:sku", h.Lots)
	g.PUT("/lots/:sku/active", h.SetActiveLot)
	g.GET("/transactions", h.Transactions)
	g.POST("/transactions", h.PostTransaction)
	g.POST("/repack", h.Repack)
	g.POST("/recompute", h.Recompute)
	return g
}
