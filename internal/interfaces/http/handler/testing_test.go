package handler

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/oracare/fulfillment/internal/interfaces/http/dto"
	"github.com/oracare/fulfillment/internal/interfaces/http/router"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestEngine mounts the given route groups under /api/v1 the way the
// server does, without auth middleware.
func newTestEngine(groups ...*router.DomainGroup) *gin.Engine {
	engine := gin.New()
	r := router.NewRouter(engine)
	for _, g := range groups {
		r.Register(g)
	}
	r.Setup()
	return engine
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func dataAsMap(t *testing.T, resp dto.Response) map[string]any {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}
