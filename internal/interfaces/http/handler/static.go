package handler

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// dashboardPages is the allowlist of servable page names. Anything else
// under / returns 404 instead of probing the filesystem.
var dashboardPages = map[string]struct{}{
	"index.html":     {},
	"login.html":     {},
	"orders.html":    {},
	"shipped.html":   {},
	"alerts.html":    {},
	"sync.html":      {},
	"inventory.html": {},
	"incidents.html": {},
	"reports.html":   {},
	"settings.html":  {},
}

// StaticHandler serves the dashboard pages and their assets
type StaticHandler struct {
	baseDir string
}

// NewStaticHandler creates a static handler rooted at baseDir
func NewStaticHandler(baseDir string) *StaticHandler {
	return &StaticHandler{baseDir: baseDir}
}

// Mount attaches static routes directly on the engine, outside the API group
func (h *StaticHandler) Mount(engine *gin.Engine) {
	engine.GET("/", h.index)
	engine.GET("/pages/:page", h.page)
	engine.Static("/assets", filepath.Join(h.baseDir, "assets"))
}

func (h *StaticHandler) index(c *gin.Context) {
	c.File(filepath.Join(h.baseDir, "index.html"))
}

func (h *StaticHandler) page(c *gin.Context) {
	page := c.Param("page")
	if _, ok := dashboardPages[page]; !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.File(filepath.Join(h.baseDir, page))
}
