package handler

import (
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oracare/fulfillment/internal/interfaces/http/router"
)

// SystemInfoResponse describes the running service
type SystemInfoResponse struct {
	Name      string    `json:"name"`
	Env       string    `json:"env"`
	GoVersion string    `json:"go_version"`
	StartedAt time.Time `json:"started_at"`
	Uptime    string    `json:"uptime"`
}

// SystemHandler serves unauthenticated liveness and info endpoints
type SystemHandler struct {
	BaseHandler
	name      string
	env       string
	startedAt time.Time
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(name, env string) *SystemHandler {
	return &SystemHandler{
		name:      name,
		env:       env,
		startedAt: time.Now().UTC(),
	}
}

// Ping answers a liveness probe
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, gin.H{"message": "pong"})
}

// Info returns service build and uptime information
func (h *SystemHandler) Info(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Env:       h.env,
		GoVersion: runtime.Version(),
		StartedAt: h.startedAt,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// Routes returns the system route group
func (h *SystemHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("system", "/system")
	g.GET("/ping", h.Ping)
	g.GET("/info", h.Info)
	return g
}
