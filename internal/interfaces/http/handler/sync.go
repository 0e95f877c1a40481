package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	appsync "github.com/oracare/fulfillment/internal/application/sync"
	"github.com/oracare/fulfillment/internal/domain/syncstate"
	"github.com/oracare/fulfillment/internal/interfaces/http/router"
)

// WatermarkResponse is a per-workflow watermark row in API responses
type WatermarkResponse struct {
	Workflow    string    `json:"workflow"`
	ProcessedTo time.Time `json:"processed_to"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WorkflowControlResponse is a workflow enable switch in API responses
type WorkflowControlResponse struct {
	Workflow  string    `json:"workflow"`
	Enabled   bool      `json:"enabled"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetWorkflowEnabledRequest is the body of the workflow control endpoint
type SetWorkflowEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// SyncHandler exposes sync state, workflow controls and manual run triggers
type SyncHandler struct {
	BaseHandler
	uploader   *appsync.OrderUploadService
	unified    *appsync.UnifiedSyncService
	duplicates *appsync.DuplicateScanService
	mismatches *appsync.LotMismatchScanService
	backfill   *appsync.GhostBackfillService
	cleanup    *appsync.CleanupService
	watermarks syncstate.WatermarkRepository
	controls   syncstate.WorkflowControlRepository
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(
	uploader *appsync.OrderUploadService,
	unified *appsync.UnifiedSyncService,
	duplicates *appsync.DuplicateScanService,
	mismatches *appsync.LotMismatchScanService,
	backfill *appsync.GhostBackfillService,
	cleanup *appsync.CleanupService,
	watermarks syncstate.WatermarkRepository,
	controls syncstate.WorkflowControlRepository,
) *SyncHandler {
	return &SyncHandler{
		uploader:   uploader,
		unified:    unified,
		duplicates: duplicates,
		mismatches: mismatches,
		backfill:   backfill,
		cleanup:    cleanup,
		watermarks: watermarks,
		controls:   controls,
	}
}

// Status returns every workflow's watermark and enable switch
func (h *SyncHandler) Status(c *gin.Context) {
	watermarks, err := h.watermarks.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	controls, err := h.controls.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	wm := make([]WatermarkResponse, 0, len(watermarks))
	for _, w := range watermarks {
		wm = append(wm, WatermarkResponse{
			Workflow:    string(w.Workflow),
			ProcessedTo: w.ProcessedTo,
			UpdatedAt:   w.UpdatedAt,
		})
	}
	ctrl := make([]WorkflowControlResponse, 0, len(controls))
	for _, w := range controls {
		ctrl = append(ctrl, WorkflowControlResponse{
			Workflow:  string(w.Workflow),
			Enabled:   w.Enabled,
			UpdatedBy: w.UpdatedBy,
			UpdatedAt: w.UpdatedAt,
		})
	}

	h.Success(c, gin.H{
		"watermarks": wm,
		"controls":   ctrl,
	})
}

// SetEnabled flips a workflow's enable switch
func (h *SyncHandler) SetEnabled(c *gin.Context) {
	workflow := syncstate.Workflow(c.Param("workflow"))
	if !workflow.IsValid() {
		h.BadRequest(c, "Unknown workflow: "+c.Param("workflow"))
		return
	}

	var req SetWorkflowEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.controls.SetEnabled(c.Request.Context(), workflow, req.Enabled, operatorName(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"workflow": string(workflow), "enabled": req.Enabled})
}

// Run triggers one cycle of a workflow inline, returning its result.
// Manual runs bypass the enable switch.
func (h *SyncHandler) Run(c *gin.Context) {
	workflow := syncstate.Workflow(c.Param("workflow"))
	ctx := c.Request.Context()

	switch workflow {
	case syncstate.WorkflowUnifiedSync:
		// push local changes out before pulling remote ones in
		upload, err := h.uploader.Run(ctx)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		result, err := h.unified.Run(ctx)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, gin.H{"upload": upload, "sync": result})
	case syncstate.WorkflowDuplicateScan:
		result, err := h.duplicates.Run(ctx)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, result)
	case syncstate.WorkflowLotMismatchScan:
		result, err := h.mismatches.Run(ctx)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, result)
	case syncstate.WorkflowGhostBackfill:
		result, err := h.backfill.Run(ctx)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, result)
	case syncstate.WorkflowCleanup:
		deleted, err := h.cleanup.Run(ctx)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, gin.H{"deleted": deleted})
	default:
		h.BadRequest(c, "Unknown workflow: "+c.Param("workflow"))
	}
}

// Routes returns the sync route group
func (h *SyncHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("sync", "/sync")
	g.GET("/status", h.Status)
	g.POST("/run/:workflow", h.Run)
	g.PUT("/controls/:workflow", h.SetEnabled)
	return g
}
