package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	identityapp "github.com/oracare/fulfillment/internal/application/identity"
	"github.com/oracare/fulfillment/internal/domain/identity"
	"github.com/oracare/fulfillment/internal/infrastructure/auth"
	"github.com/oracare/fulfillment/internal/infrastructure/persistence"
	"github.com/oracare/fulfillment/internal/interfaces/http/middleware"
)

const testCookie = "oracare_session"

func newAuthTestServer(t *testing.T) (*gin.Engine, *identityapp.AuthService) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&identity.User{}))

	svc := identityapp.NewAuthService(
		persistence.NewGormUserRepository(db),
		auth.NewMemorySessionStore(),
		time.Hour,
		zap.NewNop(),
	)
	_, err = svc.CreateUser(context.Background(), "ops", "hunter2secret", identity.RoleAdmin)
	require.NoError(t, err)

	handler := NewAuthHandler(svc, testCookie, time.Hour, false)
	engine := newTestEngine(handler.Routes())
	return engine, svc
}

func TestLoginSetsSessionCookie(t *testing.T) {
	engine, svc := newAuthTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"ops","password":"hunter2secret"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := dataAsMap(t, decodeResponse(t, rec))
	assert.Equal(t, "ops", data["username"])
	assert.Equal(t, "admin", data["role"])

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "session cookie not set")
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)

	session, err := svc.SessionByToken(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "ops", session.Username)
}

func TestLoginBadPassword(t *testing.T) {
	engine, _ := newAuthTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"ops","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLoginMissingFields(t *testing.T) {
	engine, _ := newAuthTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"ops"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutClearsSession(t *testing.T) {
	engine, svc := newAuthTestServer(t)

	session, err := svc.Login(context.Background(), "ops", "hunter2secret")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: session.Token})
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	_, err = svc.SessionByToken(context.Background(), session.Token)
	assert.Error(t, err)
}

func TestMeWithoutSession(t *testing.T) {
	engine, _ := newAuthTestServer(t)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeWithSession(t *testing.T) {
	_, svc := newAuthTestServer(t)

	session, err := svc.Login(context.Background(), "ops", "hunter2secret")
	require.NoError(t, err)

	// mount with the session middleware the server uses
	handler := NewAuthHandler(svc, testCookie, time.Hour, false)
	group := handler.Routes()
	group.Use(middleware.SessionAuth(middleware.SessionConfig{
		Resolver:   svc,
		CookieName: testCookie,
		Logger:     zap.NewNop(),
	}))
	engine := newTestEngine(group)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: session.Token})
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	data := dataAsMap(t, decodeResponse(t, rec))
	assert.Equal(t, "ops", data["username"])
}
