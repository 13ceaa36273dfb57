package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rogerio-castellano/inventory-orders/internal/apperr"
	handler "github.com/rogerio-castellano/inventory-orders/internal/http/handlers"
	"github.com/rogerio-castellano/inventory-orders/internal/models"
	"github.com/rogerio-castellano/inventory-orders/internal/orders"
	"github.com/rogerio-castellano/inventory-orders/internal/store"
)

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, http.MethodGet, "/", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "works", w.Body.String())
}

func TestLogin(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodPost, "/login", handler.UserLogin{Username: "admin", Password: "nope"}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodPost, "/login", handler.UserLogin{Username: "admin"}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWritesRequireToken(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodPost, "/inventory", handler.ProductRequest{Name: "Laptop", Price: decimal.NewFromInt(1)}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodPost, "/order", handler.OrderRequest{Email: "a@example.com"}, false,
		http.Header{"Authorization": {"Bearer forged"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodGet, "/inventory", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateProductHandler(t *testing.T) {
	a := newTestAPI(t)

	w := a.createProduct(t, handler.ProductRequest{ProductID: "p1", Name: "Laptop", Description: "15in", Price: decimal.RequireFromString("1500.50"), Qty: 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var p models.Product
	decode(t, w, &p)
	assert.Equal(t, "p1", p.ProductID)
	assert.Equal(t, 3, p.Qty)
	assert.True(t, decimal.RequireFromString("1500.5").Equal(p.Price))

	w = a.createProduct(t, handler.ProductRequest{ProductID: "p1", Name: "Again", Price: decimal.NewFromInt(1)})
	assert.Equal(t, http.StatusNotAcceptable, w.Code)

	w = a.do(t, http.MethodGet, "/inventory/p1", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
	w = a.do(t, http.MethodGet, "/inventory/missing", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateProductHandler_Invalid(t *testing.T) {
	a := newTestAPI(t)

	tests := []struct {
		name           string
		payload        handler.ProductRequest
		expectedFields []string
	}{
		{"empty name and price", handler.ProductRequest{}, []string{"name", "price"}},
		{"negative price", handler.ProductRequest{Name: "Mouse", Price: decimal.NewFromInt(-5)}, []string{"price"}},
		{"negative qty", handler.ProductRequest{Name: "Keyboard", Price: decimal.NewFromInt(50), Qty: -1}, []string{"qty"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.createProduct(t, tt.payload)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var resp handler.ValidationErrors
			decode(t, w, &resp)
			var fields []string
			for _, e := range resp.Errors {
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.expectedFields, fields)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/inventory", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+a.token)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateProductIgnoresQty(t *testing.T) {
	a := newTestAPI(t)
	require.Equal(t, http.StatusCreated, a.createProduct(t, handler.ProductRequest{ProductID: "p1", Name: "Laptop", Price: decimal.NewFromInt(10), Qty: 4}).Code)

	w := a.do(t, http.MethodPut, "/inventory", handler.ProductRequest{ProductID: "p1", Name: "Laptop Pro", Price: decimal.NewFromInt(12), Qty: 999}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var p models.Product
	decode(t, w, &p)
	assert.Equal(t, "Laptop Pro", p.Name)
	assert.Equal(t, 4, p.Qty)

	w = a.do(t, http.MethodPut, "/inventory", handler.ProductRequest{ProductID: "ghost", Name: "x", Price: decimal.NewFromInt(1)}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShipmentsHandlers(t *testing.T) {
	a := newTestAPI(t)
	require.Equal(t, http.StatusCreated, a.createProduct(t, handler.ProductRequest{ProductID: "p1", Name: "Laptop", Price: decimal.NewFromInt(10), Qty: 10}).Code)

	w := a.do(t, http.MethodPost, "/inventory/p1/shipments", handler.ShipmentRequest{Qty: 5}, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/inventory/p1/shipments", handler.ShipmentRequest{Qty: 0}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = a.do(t, http.MethodPost, "/inventory/ghost/shipments", handler.ShipmentRequest{Qty: 1}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, http.MethodGet, "/inventory/p1", nil, false)
	var p models.Product
	decode(t, w, &p)
	assert.Equal(t, 15, p.Qty)

	w = a.do(t, http.MethodGet, "/inventory/p1/shipments", nil, false)
	var shipments []models.Shipment
	decode(t, w, &shipments)
	assert.Len(t, shipments, 2)

	w = a.do(t, http.MethodGet, "/inventory/p1/shipments?format=csv", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "shipment_id,product_id,qty,created", lines[0])

	w = a.do(t, http.MethodGet, "/inventory/p1/shipments?format=xml", nil, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderLifecycle(t *testing.T) {
	a := newTestAPI(t)
	require.Equal(t, http.StatusCreated, a.createProduct(t, handler.ProductRequest{ProductID: "p1", Name: "Laptop", Price: decimal.NewFromInt(10), Qty: 10}).Code)
	require.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, "/inventory/p1/shipments", handler.ShipmentRequest{Qty: 5}, true).Code)

	qty := func() int {
		var p models.Product
		decode(t, a.do(t, http.MethodGet, "/inventory/p1", nil, false), &p)
		return p.Qty
	}

	w := a.do(t, http.MethodPost, "/order", handler.OrderRequest{OrderID: "o1", Email: "a@example.com", Products: []orders.LineRequest{{ProductID: "p1", Qty: 12}}}, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order models.OrderWithLines
	decode(t, w, &order)
	assert.Equal(t, models.OrderStatusNew, order.OrderStatus)
	assert.Len(t, order.Products, 1)
	assert.Equal(t, 3, qty())

	w = a.do(t, http.MethodPost, "/order", handler.OrderRequest{Email: "b@example.com", Products: []orders.LineRequest{{ProductID: "p1", Qty: 4}}}, true)
	assert.Equal(t, http.StatusNotAcceptable, w.Code)
	assert.Equal(t, 3, qty())

	w = a.do(t, http.MethodPut, "/order", handler.OrderUpdateRequest{OrderID: "o1", OrderStatus: "new"}, true)
	assert.Equal(t, http.StatusNotAcceptable, w.Code)

	w = a.do(t, http.MethodPut, "/order", handler.OrderUpdateRequest{OrderID: "o1", OrderStatus: "cancelled"}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 15, qty())

	w = a.do(t, http.MethodPut, "/order", handler.OrderUpdateRequest{OrderID: "o1", OrderStatus: "cancelled"}, true)
	assert.Equal(t, http.StatusNotAcceptable, w.Code)

	w = a.do(t, http.MethodPut, "/order", handler.OrderUpdateRequest{OrderID: "o1", OrderStatus: "shipped"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPut, "/order", handler.OrderUpdateRequest{OrderID: "ghost", OrderStatus: "cancelled"}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, http.MethodGet, "/order/o1", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &order)
	assert.Equal(t, models.OrderStatusCancelled, order.OrderStatus)

	w = a.do(t, http.MethodGet, "/order/ghost", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, http.MethodGet, "/orders", nil, false)
	var list []models.OrderWithLines
	decode(t, w, &list)
	assert.Len(t, list, 1)
}

func TestCreateOrderValidation(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodPost, "/order", handler.OrderRequest{Email: "x", Products: []orders.LineRequest{{ProductID: "", Qty: 0}}}, true)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp handler.ValidationErrors
	decode(t, w, &resp)
	assert.Len(t, resp.Errors, 3)
}

func TestCreateOrderIsIdempotent(t *testing.T) {
	a := newTestAPI(t)
	require.Equal(t, http.StatusCreated, a.createProduct(t, handler.ProductRequest{ProductID: "p1", Name: "Laptop", Price: decimal.NewFromInt(10), Qty: 10}).Code)

	body := handler.OrderRequest{Email: "a@example.com", Products: []orders.LineRequest{{ProductID: "p1", Qty: 2}}}
	key := http.Header{"Idempotency-Key": {"retry-1"}}

	first := a.do(t, http.MethodPost, "/order", body, true, key)
	second := a.do(t, http.MethodPost, "/order", body, true, key)
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replay"))

	var list []models.OrderWithLines
	decode(t, a.do(t, http.MethodGet, "/orders", nil, false), &list)
	assert.Len(t, list, 1)
}

func TestImportProductsHandler(t *testing.T) {
	a := newTestAPI(t)
	require.Equal(t, http.StatusCreated, a.createProduct(t, handler.ProductRequest{ProductID: "p1", Name: "Laptop", Price: decimal.NewFromInt(10), Qty: 2}).Code)

	csvData := `product_id,name,description,price,qty
,Mouse,usb,25.99,10
p1,Laptop v2,updated,11.00,50
,,missing name,1.00,1
,Cable,bad price,abc,1`

	send := func(mode string) handler.ImportProductsResult {
		buf, contentType := multipartCSV(t, csvData)
		req := httptest.NewRequest(http.MethodPost, "/inventory/import?mode="+mode, buf)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+a.token)
		w := httptest.NewRecorder()
		a.router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var res handler.ImportProductsResult
		decode(t, w, &res)
		return res
	}

	res := send("skip")
	assert.Equal(t, 1, res.ImportedProductsCount)
	assert.Len(t, res.Errors, 3)

	res = send("update")
	assert.Equal(t, 2, res.ImportedProductsCount)

	p, err := a.ledger.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Laptop v2", p.Name)
	assert.Equal(t, 2, p.Qty)
}

func TestDashboardMetricsHandler(t *testing.T) {
	a := newTestAPI(t)
	require.Equal(t, http.StatusCreated, a.createProduct(t, handler.ProductRequest{ProductID: "p1", Name: "Laptop", Price: decimal.NewFromInt(10), Qty: 2}).Code)
	require.Equal(t, http.StatusCreated, a.createProduct(t, handler.ProductRequest{ProductID: "p2", Name: "Mouse", Price: decimal.NewFromInt(10)}).Code)

	w := a.do(t, http.MethodGet, "/metrics/dashboard", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodGet, "/metrics/dashboard", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var m map[string]any
	decode(t, w, &m)
	assert.EqualValues(t, 2, m["total_products"])
	assert.EqualValues(t, 1, m["out_of_stock_count"])
}

type downStore struct {
	store.Store
}

func (downStore) Find(context.Context, store.Entity, store.Query) ([]store.Row, error) {
	return nil, apperr.New(apperr.ErrStoreUnavailable, "dial tcp 10.0.0.5:5432: connection refused")
}

func TestStoreFailuresAreHidden(t *testing.T) {
	a := newTestAPIWithStore(t, downStore{store.NewMemory()})

	w := a.do(t, http.MethodGet, "/inventory", nil, false)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}
