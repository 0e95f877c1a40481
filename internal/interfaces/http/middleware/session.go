package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oracare/fulfillment/internal/domain/identity"
	"github.com/oracare/fulfillment/internal/interfaces/http/dto"
)

// SessionKey is the gin context key holding the authenticated session
const SessionKey = "auth_session"

// SessionResolver looks up a session by its cookie token
type SessionResolver interface {
	SessionByToken(ctx context.Context, token string) (*identity.Session, error)
}

// SessionConfig configures the session-cookie authentication guard
type SessionConfig struct {
	Resolver   SessionResolver
	CookieName string

	// SkipPaths are exact paths that bypass authentication
	SkipPaths []string
	// SkipPathPrefixes are path prefixes that bypass authentication
	SkipPathPrefixes []string

	// ViewerWritePaths and ViewerWritePrefixes are the allow-list of
	// mutating routes a viewer may call. Everything else mutating
	// requires the admin role.
	ViewerWritePaths    []string
	ViewerWritePrefixes []string

	Logger *zap.Logger
}

// SessionAuth returns a middleware that authenticates requests by session
// cookie and enforces the viewer write allow-list.
func SessionAuth(cfg SessionConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}
	viewerWrite := make(map[string]struct{}, len(cfg.ViewerWritePaths))
	for _, p := range cfg.ViewerWritePaths {
		viewerWrite[p] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skip[path]; ok {
			c.Next()
			return
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		token, err := c.Cookie(cfg.CookieName)
		if err != nil || token == "" {
			abortUnauthorized(c, "Authentication required")
			return
		}

		session, err := cfg.Resolver.SessionByToken(c.Request.Context(), token)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired session")
			return
		}
		if session.IsExpired(time.Now()) {
			abortUnauthorized(c, "Session expired")
			return
		}

		if isWrite(c.Request.Method) && session.Role != identity.RoleAdmin {
			if !viewerMayWrite(path, viewerWrite, cfg.ViewerWritePrefixes) {
				if cfg.Logger != nil {
					cfg.Logger.Warn("Viewer blocked from write route",
						zap.String("username", session.Username),
						zap.String("method", c.Request.Method),
						zap.String("path", path),
					)
				}
				requestID := c.GetString(RequestIDKey)
				c.AbortWithStatusJSON(http.StatusForbidden,
					dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "Insufficient permissions", requestID))
				return
			}
		}

		c.Set(SessionKey, session)
		c.Next()
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

func viewerMayWrite(path string, exact map[string]struct{}, prefixes []string) bool {
	if _, ok := exact[path]; ok {
		return true
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func abortUnauthorized(c *gin.Context, message string) {
	requestID := c.GetString(RequestIDKey)
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, message, requestID))
}

// GetSession returns the authenticated session for the request, or nil on
// unauthenticated routes
func GetSession(c *gin.Context) *identity.Session {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil
	}
	session, ok := v.(*identity.Session)
	if !ok {
		return nil
	}
	return session
}

// GetUsername returns the authenticated username, or "" when anonymous
func GetUsername(c *gin.Context) string {
	if s := GetSession(c); s != nil {
		return s.Username
	}
	return ""
}
