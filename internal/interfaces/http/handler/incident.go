package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	incidentapp "github.com/oracare/fulfillment/internal/application/incident"
	"github.com/oracare/fulfillment/internal/domain/incident"
	"github.com/oracare/fulfillment/internal/interfaces/http/dto"
	"github.com/oracare/fulfillment/internal/interfaces/http/router"
)

// ScreenshotResponse is a screenshot attachment in API responses
type ScreenshotResponse struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// IncidentResponse is an incident ticket in API responses
type IncidentResponse struct {
	ID          uuid.UUID            `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	OrderNumber string               `json:"order_number,omitempty"`
	Status      string               `json:"status"`
	ReportedBy  string               `json:"reported_by,omitempty"`
	ResolvedAt  *time.Time           `json:"resolved_at,omitempty"`
	ResolvedBy  string               `json:"resolved_by,omitempty"`
	Screenshots []ScreenshotResponse `json:"screenshots"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// CreateIncidentRequest is the body of the incident creation endpoint
type CreateIncidentRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	OrderNumber string `json:"order_number"`
}

// IncidentHandler serves incident tickets and screenshot attachments
type IncidentHandler struct {
	BaseHandler
	incidents *incidentapp.IncidentService
}

// NewIncidentHandler creates a new incident handler
func NewIncidentHandler(incidents *incidentapp.IncidentService) *IncidentHandler {
	return &IncidentHandler{incidents: incidents}
}

// Create files a new incident
func (h *IncidentHandler) Create(c *gin.Context) {
	var req CreateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "title is required")
		return
	}

	inc, err := h.incidents.Create(c.Request.Context(), incidentapp.CreateIncidentInput{
		Title:       req.Title,
		Description: req.Description,
		OrderNumber: req.OrderNumber,
		ReportedBy:  operatorName(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toIncidentResponse(inc))
}

type listIncidentsRequest struct {
	dto.ListRequest
	Status string `form:"status"`
}

// List returns incidents, optionally filtered by status
func (h *IncidentHandler) List(c *gin.Context) {
	var req listIncidentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	req.Normalize()

	var status *incident.Status
	if req.Status != "" {
		s := incident.Status(req.Status)
		if !s.IsValid() {
			h.BadRequest(c, "Unknown incident status: "+req.Status)
			return
		}
		status = &s
	}

	incidents, total, err := h.incidents.List(c.Request.Context(), status, req.Page, req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]IncidentResponse, 0, len(incidents))
	for i := range incidents {
		out = append(out, toIncidentResponse(&incidents[i]))
	}
	h.SuccessWithMeta(c, out, total, req.Page, req.PageSize)
}

// Get returns one incident with its screenshots
func (h *IncidentHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid incident ID")
		return
	}

	inc, err := h.incidents.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toIncidentResponse(inc))
}

// Resolve closes an open incident
func (h *IncidentHandler) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid incident ID")
		return
	}

	inc, err := h.incidents.Resolve(c.Request.Context(), id, operatorName(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toIncidentResponse(inc))
}

// UploadScreenshot attaches a screenshot from a multipart "file" field
func (h *IncidentHandler) UploadScreenshot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid incident ID")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "Multipart file field is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		h.BadRequest(c, "Cannot read uploaded file")
		return
	}
	defer func() { _ = file.Close() }()

	shot, err := h.incidents.AttachScreenshot(
		c.Request.Context(),
		id,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
		fileHeader.Size,
	)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toScreenshotResponse(shot))
}

// ScreenshotURL returns a short-lived download URL for one screenshot
func (h *IncidentHandler) ScreenshotURL(c *gin.Context) {
	incidentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid incident ID")
		return
	}
	screenshotID, err := uuid.Parse(c.Param("screenshot_id"))
	if err != nil {
		h.BadRequest(c, "Invalid screenshot ID")
		return
	}

	url, err := h.incidents.ScreenshotURL(c.Request.Context(), incidentID, screenshotID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"url": url})
}

func toIncidentResponse(inc *incident.Incident) IncidentResponse {
	shots := make([]ScreenshotResponse, 0, len(inc.Screenshots))
	for i := range inc.Screenshots {
		shots = append(shots, toScreenshotResponse(&inc.Screenshots[i]))
	}
	return IncidentResponse{
		ID:          inc.ID,
		Title:       inc.Title,
		Description: inc.Description,
		OrderNumber: inc.OrderNumber,
		Status:      string(inc.Status),
		ReportedBy:  inc.ReportedBy,
		ResolvedAt:  inc.ResolvedAt,
		ResolvedBy:  inc.ResolvedBy,
		Screenshots: shots,
		CreatedAt:   inc.CreatedAt,
		UpdatedAt:   inc.UpdatedAt,
	}
}

func toScreenshotResponse(s *incident.Screenshot) ScreenshotResponse {
	return ScreenshotResponse{
		ID:          s.ID,
		FileName:    s.FileName,
		ContentType: s.ContentType,
		SizeBytes:   s.SizeBytes,
		CreatedAt:   s.CreatedAt,
	}
}

// Routes returns the incident route group
func (h *IncidentHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("incidents", "/incidents")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.POST("/:id/resolve", h.Resolve)
	g.POST("/:id/screenshots", h.UploadScreenshot)
	g.GET("/:id/screenshots/:screenshot_id/url", h.ScreenshotURL)
	return g
}
