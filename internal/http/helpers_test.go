package http_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rogerio-castellano/inventory-orders/internal/auth"
	api "github.com/rogerio-castellano/inventory-orders/internal/http"
	handler "github.com/rogerio-castellano/inventory-orders/internal/http/handlers"
	rl "github.com/rogerio-castellano/inventory-orders/internal/http/rate_limiter"
	"github.com/rogerio-castellano/inventory-orders/internal/idempotency"
	"github.com/rogerio-castellano/inventory-orders/internal/inventory"
	"github.com/rogerio-castellano/inventory-orders/internal/orders"
	"github.com/rogerio-castellano/inventory-orders/internal/store"
)

type testAPI struct {
	router http.Handler
	token  string
	ledger *inventory.Ledger
}

func newTestAPI(t *testing.T) *testAPI {
	return newTestAPIWithStore(t, store.NewMemory())
}

func newTestAPIWithStore(t *testing.T, st store.Store) *testAPI {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	issuer := auth.NewIssuer("test-signing-key", time.Minute)
	authn := auth.NewAdminAuthenticator("admin", string(hash), issuer)
	ledger := inventory.NewLedger(st, nil)
	wf := orders.NewWorkflow(st, ledger)

	r := api.NewRouter(api.RouterConfig{
		Server:         handler.NewServer(ledger, wf, authn, nil),
		Issuer:         issuer,
		Limiter:        rl.New(1000, 1000),
		Idempotency:    idempotency.NewMemoryStore(),
		IdempotencyTTL: time.Hour,
	})

	a := &testAPI{router: r, ledger: ledger}
	w := a.do(t, http.MethodPost, "/login", handler.UserLogin{Username: "admin", Password: "secret"}, false)
	require.Equal(t, http.StatusOK, w.Code)
	var res handler.LoginResult
	decode(t, w, &res)
	require.NotEmpty(t, res.Token)
	a.token = res.Token
	return a
}

func (a *testAPI) do(t *testing.T, method, path string, body any, authed bool, headers ...http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	if len(headers) > 0 {
		for k, v := range headers[0] {
			req.Header[k] = v
		}
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) createProduct(t *testing.T, p handler.ProductRequest) *httptest.ResponseRecorder {
	t.Helper()
	return a.do(t, http.MethodPost, "/inventory", p, true)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(v), w.Body.String())
}

func multipartCSV(t *testing.T, csvContent string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "products.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csvContent))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}
