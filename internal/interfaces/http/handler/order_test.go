package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	orderapp "github.com/oracare/fulfillment/internal/application/order"
	"github.com/oracare/fulfillment/internal/domain/order"
	"github.com/oracare/fulfillment/internal/infrastructure/persistence"
	"github.com/oracare/fulfillment/internal/infrastructure/xmlfeed"
)

const orderFeed = `<?xml version="1.0" encoding="UTF-8"?>
<Orders>
  <Order>
    <OrderNumber>100801</OrderNumber>
    <OrderDate>2026-08-21</OrderDate>
    <Customer><Name>Sam Roe</Name><Email>sam@example.com</Email></Customer>
    <ShipTo>
      <Name>Sam Roe</Name>
      <Street1>9 Pine Ave</Street1>
      <City>Boise</City>
      <State>ID</State>
      <PostalCode>83702</PostalCode>
      <Country>US</Country>
    </ShipTo>
    <Items>
      <Item><SKU>17612</SKU><LotNumber>240901</LotNumber><Quantity>1</Quantity><UnitPrice>19.99</UnitPrice></Item>
    </Items>
  </Order>
</Orders>`

func newOrderTestServer(t *testing.T) *gin.Engine {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&order.Order{}, &order.Item{}))

	svc := orderapp.NewOrderService(
		persistence.NewGormOrderRepository(db),
		xmlfeed.NewParser(4<<20),
		zap.NewNop(),
	)
	return newTestEngine(NewOrderHandler(svc).Routes())
}

func importOrderFeed(t *testing.T, engine *gin.Engine) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/import", strings.NewReader(orderFeed))
	req.Header.Set("Content-Type", "application/xml")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestOrderImportAndList(t *testing.T) {
	engine := newOrderTestServer(t)
	importOrderFeed(t, engine)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=pending", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(1), resp.Meta.Total)
}

func TestOrderListRejectsUnknownStatus(t *testing.T) {
	engine := newOrderTestServer(t)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=teleported", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
}

func TestOrderGetByNumber(t *testing.T) {
	engine := newOrderTestServer(t)
	importOrderFeed(t, engine)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/number/100801", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	data := dataAsMap(t, decodeResponse(t, rec))
	assert.Equal(t, "100801", data["order_number"])
}

func TestOrderGetUnknownNumberReturns404(t *testing.T) {
	engine := newOrderTestServer(t)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/number/999999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderFlagAndCancel(t *testing.T) {
	engine := newOrderTestServer(t)
	importOrderFeed(t, engine)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/number/100801", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	id := dataAsMap(t, decodeResponse(t, rec))["id"].(string)

	rec = httptest.NewRecorder()
	flagReq := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+id+"/flag", strings.NewReader(`{"flagged":true}`))
	flagReq.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, flagReq)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, dataAsMap(t, decodeResponse(t, rec))["is_flagged"])

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+id+"/cancel", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", dataAsMap(t, decodeResponse(t, rec))["status"])

	// cancelled is terminal
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+id+"/cancel", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestOrderFlagInvalidID(t *testing.T) {
	engine := newOrderTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/not-a-uuid/flag", strings.NewReader(`{"flagged":true}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
