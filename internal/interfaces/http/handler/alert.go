package handler

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oracare/fulfillment/internal/domain/alert"
	"github.com/oracare/fulfillment/internal/interfaces/http/router"
)

// DuplicateAlertResponse is a duplicate-SKU alert in API responses
type DuplicateAlertResponse struct {
	ID          uuid.UUID       `json:"id"`
	OrderNumber string          `json:"order_number"`
	SKU         string          `json:"sku"`
	Status      string          `json:"status"`
	Records     json.RawMessage `json:"records"`
	RecordCount int             `json:"record_count"`
	LastSeenAt  time.Time       `json:"last_seen_at"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty"`
	ResolvedBy  string          `json:"resolved_by,omitempty"`
	Note        string          `json:"note,omitempty"`
}

// LotMismatchAlertResponse is a lot-mismatch alert in API responses
type LotMismatchAlertResponse struct {
	ID          uuid.UUID  `json:"id"`
	OrderNumber string     `json:"order_number"`
	SKU         string     `json:"sku"`
	Status      string     `json:"status"`
	OrderLot    string     `json:"order_lot"`
	ActiveLot   string     `json:"active_lot"`
	LastSeenAt  time.Time  `json:"last_seen_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy  string     `json:"resolved_by,omitempty"`
	Note        string     `json:"note,omitempty"`
}

// ConflictResponse is an order-number collision alert in API responses
type ConflictResponse struct {
	ID          uuid.UUID       `json:"id"`
	OrderNumber string          `json:"order_number"`
	Status      string          `json:"status"`
	RemoteIDs   json.RawMessage `json:"remote_ids"`
	IDCount     int             `json:"id_count"`
	LastSeenAt  time.Time       `json:"last_seen_at"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty"`
	ResolvedBy  string          `json:"resolved_by,omitempty"`
	Note        string          `json:"note,omitempty"`
}

// ResolveAlertRequest is the body of the alert resolve endpoints
type ResolveAlertRequest struct {
	OrderNumber string `json:"order_number" binding:"required"`
	SKU         string `json:"sku"`
	Note        string `json:"note"`
}

// AlertHandler serves the three alert families raised by the scanners
type AlertHandler struct {
	BaseHandler
	duplicates alert.DuplicateRepository
	mismatches alert.LotMismatchRepository
	conflicts  alert.ConflictRepository
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(duplicates alert.DuplicateRepository, mismatches alert.LotMismatchRepository, conflicts alert.ConflictRepository) *AlertHandler {
	return &AlertHandler{
		duplicates: duplicates,
		mismatches: mismatches,
		conflicts:  conflicts,
	}
}

func activeOnly(c *gin.Context) bool {
	return c.Query("status") != "all"
}

// ListDuplicates returns duplicate-SKU alerts, active by default
func (h *AlertHandler) ListDuplicates(c *gin.Context) {
	var (
		alerts []alert.DuplicateAlert
		err    error
	)
	if activeOnly(c) {
		alerts, err = h.duplicates.ListActive(c.Request.Context())
	} else {
		alerts, err = h.duplicates.List(c.Request.Context())
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]DuplicateAlertResponse, 0, len(alerts))
	for i := range alerts {
		a := &alerts[i]
		out = append(out, DuplicateAlertResponse{
			ID:          a.ID,
			OrderNumber: a.OrderNumber,
			SKU:         a.SKU,
			Status:      a.Status.String(),
			Records:     json.RawMessage(a.Records),
			RecordCount: a.RecordCount,
			LastSeenAt:  a.LastSeenAt,
			ResolvedAt:  a.ResolvedAt,
			ResolvedBy:  a.ResolvedBy,
			Note:        a.Note,
		})
	}
	h.Success(c, out)
}

// ResolveDuplicate manually resolves an active duplicate alert
func (h *AlertHandler) ResolveDuplicate(c *gin.Context) {
	var req ResolveAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SKU == "" {
		h.BadRequest(c, "order_number and sku are required")
		return
	}

	key := alert.Key{OrderNumber: req.OrderNumber, SKU: req.SKU}
	if err := h.duplicates.ResolveByKey(c.Request.Context(), key, operatorName(c), req.Note); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"resolved": true})
}

// ListLotMismatches returns lot-mismatch alerts, active by default
func (h *AlertHandler) ListLotMismatches(c *gin.Context) {
	var (
		alerts []alert.LotMismatchAlert
		err    error
	)
	if activeOnly(c) {
		alerts, err = h.mismatches.ListActive(c.Request.Context())
	} else {
		alerts, err = h.mismatches.List(c.Request.Context())
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]LotMismatchAlertResponse, 0, len(alerts))
	for i := range alerts {
		a := &alerts[i]
		out = append(out, LotMismatchAlertResponse{
			ID:          a.ID,
			OrderNumber: a.OrderNumber,
			SKU:         a.SKU,
			Status:      a.Status.String(),
			OrderLot:    a.OrderLot,
			ActiveLot:   a.ActiveLot,
			LastSeenAt:  a.LastSeenAt,
			ResolvedAt:  a.ResolvedAt,
			ResolvedBy:  a.ResolvedBy,
			Note:        a.Note,
		})
	}
	h.Success(c, out)
}

// ResolveLotMismatch resolves a lot-mismatch alert. This is the only way a
// lot-mismatch alert ever resolves; the scanner never clears them.
func (h *AlertHandler) ResolveLotMismatch(c *gin.Context) {
	var req ResolveAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SKU == "" {
		h.BadRequest(c, "order_number and sku are required")
		return
	}

	key := alert.Key{OrderNumber: req.OrderNumber, SKU: req.SKU}
	if err := h.mismatches.ResolveByKey(c.Request.Context(), key, operatorName(c), req.Note); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"resolved": true})
}

// ListConflicts returns order-number collision alerts, active by default
func (h *AlertHandler) ListConflicts(c *gin.Context) {
	var (
		conflicts []alert.ManualOrderConflict
		err       error
	)
	if activeOnly(c) {
		conflicts, err = h.conflicts.ListActive(c.Request.Context())
	} else {
		conflicts, err = h.conflicts.List(c.Request.Context())
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]ConflictResponse, 0, len(conflicts))
	for i := range conflicts {
		a := &conflicts[i]
		out = append(out, ConflictResponse{
			ID:          a.ID,
			OrderNumber: a.OrderNumber,
			Status:      a.Status.String(),
			RemoteIDs:   json.RawMessage(a.RemoteIDs),
			IDCount:     a.IDCount,
			LastSeenAt:  a.LastSeenAt,
			ResolvedAt:  a.ResolvedAt,
			ResolvedBy:  a.ResolvedBy,
			Note:        a.Note,
		})
	}
	h.Success(c, out)
}

// ResolveConflict manually resolves an active collision alert
func (h *AlertHandler) ResolveConflict(c *gin.Context) {
	var req ResolveAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "order_number is required")
		return
	}

	if err := h.conflicts.ResolveByOrderNumber(c.Request.Context(), req.OrderNumber, operatorName(c), req.Note); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"resolved": true})
}

// Routes returns the alert route group
func (h *AlertHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("alerts", "/alerts")
	g.GET("/duplicates", h.ListDuplicates)
	g.POST("/duplicates/resolve", h.ResolveDuplicate)
	g.GET("/lot-mismatches", h.ListLotMismatches)
	g.POST("/lot-mismatches/resolve", h.ResolveLotMismatch)
	g.GET("/conflicts", h.ListConflicts)
	g.POST("/conflicts/resolve", h.ResolveConflict)
	return g
}
