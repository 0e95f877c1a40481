package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	reportapp "github.com/oracare/fulfillment/internal/application/report"
	"github.com/oracare/fulfillment/internal/interfaces/http/router"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler builds and streams the XLSX operational reports
type ReportHandler struct {
	BaseHandler
	reports *reportapp.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports *reportapp.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Running returns the names of reports currently being built
func (h *ReportHandler) Running(c *gin.Context) {
	h.Success(c, gin.H{"running": h.reports.Running()})
}

// ShipmentVolume builds and streams the shipment-volume report. The window
// defaults to the last 30 days when from/to are omitted.
func (h *ReportHandler) ShipmentVolume(c *gin.Context) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.BadRequest(c, "Invalid from date, expected YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.BadRequest(c, "Invalid to date, expected YYYY-MM-DD")
			return
		}
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	if to.Before(from) {
		h.BadRequest(c, "to date precedes from date")
		return
	}

	f, err := h.reports.ShipmentVolume(c.Request.Context(), from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	fileName := fmt.Sprintf("shipment-volume-%s-%s.xlsx",
		from.Format("20060102"), to.Format("20060102"))
	h.streamWorkbook(c, f, fileName)
}

// Inventory builds and streams the inventory report
func (h *ReportHandler) Inventory(c *gin.Context) {
	f, err := h.reports.Inventory(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	fileName := fmt.Sprintf("inventory-%s.xlsx", time.Now().UTC().Format("20060102"))
	h.streamWorkbook(c, f, fileName)
}

func (h *ReportHandler) streamWorkbook(c *gin.Context, f *excelize.File, fileName string) {
	defer func() { _ = f.Close() }()

	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Status(http.StatusOK)

	if err := f.Write(c.Writer); err != nil {
		// headers already sent
		_ = c.Error(err)
	}
}

// Routes returns the report route group
func (h *ReportHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("reports", "/reports")
	g.GET("/running", h.Running)
	g.GET("/shipment-volume", h.ShipmentVolume)
	g.GET("/inventory", h.Inventory)
	return g
}
