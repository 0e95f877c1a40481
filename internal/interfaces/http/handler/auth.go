package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	identityapp "github.com/oracare/fulfillment/internal/application/identity"
	"github.com/oracare/fulfillment/internal/interfaces/http/middleware"
	"github.com/oracare/fulfillment/internal/interfaces/http/router"
)

// LoginRequest is the login request body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SessionResponse describes the authenticated user to the dashboard
type SessionResponse struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthHandler handles login, logout and session introspection. The session
// token travels in an HttpOnly cookie, never in the response body.
type AuthHandler struct {
	BaseHandler
	auth       *identityapp.AuthService
	cookieName string
	cookieTTL  time.Duration
	secure     bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *identityapp.AuthService, cookieName string, cookieTTL time.Duration, secure bool) *AuthHandler {
	return &AuthHandler{
		auth:       auth,
		cookieName: cookieName,
		cookieTTL:  cookieTTL,
		secure:     secure,
	}
}

// Login authenticates a user and sets the session cookie
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	session, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.SetCookie(h.cookieName, session.Token, int(h.cookieTTL.Seconds()), "/", "", h.secure, true)
	h.Success(c, SessionResponse{
		Username:  session.Username,
		Role:      string(session.Role),
		ExpiresAt: session.ExpiresAt,
	})
}

// Logout deletes the server-side session and clears the cookie
func (h *AuthHandler) Logout(c *gin.Context) {
	token, err := c.Cookie(h.cookieName)
	if err == nil && token != "" {
		if err := h.auth.Logout(c.Request.Context(), token); err != nil {
			h.HandleError(c, err)
			return
		}
	}

	c.SetCookie(h.cookieName, "", -1, "/", "", h.secure, true)
	h.Success(c, gin.H{"logged_out": true})
}

// Me returns the current session
func (h *AuthHandler) Me(c *gin.Context) {
	session := middleware.GetSession(c)
	if session == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	h.Success(c, SessionResponse{
		Username:  session.Username,
		Role:      string(session.Role),
		ExpiresAt: session.ExpiresAt,
	})
}

// Routes returns the auth route group
func (h *AuthHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("auth", "/auth")
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)
	g.GET("/me", h.Me)
	return g
}
