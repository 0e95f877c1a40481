package handler

import (
	"encoding/json"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oracare/fulfillment/internal/domain/settings"
	"github.com/oracare/fulfillment/internal/interfaces/http/router"
)

// ParamResponse is a configuration parameter in API responses. Value is the
// stored JSON document, returned verbatim.
type ParamResponse struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedBy string          `json:"updated_by,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SettingsHandler serves the configuration parameter table that drives the
// key-product allow-list, charge rates and pallet capacities
type SettingsHandler struct {
	BaseHandler
	settings settings.Repository
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settingsRepo settings.Repository) *SettingsHandler {
	return &SettingsHandler{settings: settingsRepo}
}

// List returns all configuration parameters
func (h *SettingsHandler) List(c *gin.Context) {
	params, err := h.settings.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]ParamResponse, 0, len(params))
	for _, p := range params {
		out = append(out, toParamResponse(&p))
	}
	h.Success(c, out)
}

// Get returns one configuration parameter by key
func (h *SettingsHandler) Get(c *gin.Context) {
	p, err := h.settings.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toParamResponse(p))
}

// Set creates or replaces a configuration parameter. The request body is the
// parameter's JSON value itself.
func (h *SettingsHandler) Set(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Cannot read request body")
		return
	}
	if !json.Valid(body) {
		h.BadRequest(c, "Parameter value must be valid JSON")
		return
	}

	p := &settings.Param{
		Key:       c.Param("key"),
		Value:     string(body),
		UpdatedBy: operatorName(c),
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.settings.Set(c.Request.Context(), p); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toParamResponse(p))
}

func toParamResponse(p *settings.Param) ParamResponse {
	return ParamResponse{
		Key:       p.Key,
		Value:     json.RawMessage(p.Value),
		UpdatedBy: p.UpdatedBy,
		UpdatedAt: p.UpdatedAt,
	}
}

// Routes returns the settings route group
func (h *SettingsHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("settings", "/settings")
	g.GET("/params", h.List)
	g.GET("/params/:key", h.Get)
	g.PUT("/params/:key", h.Set)
	return g
}
