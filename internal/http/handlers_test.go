package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_pos/internal/catalog"
	"github.com/fjod/go_pos/internal/domain"
	"github.com/fjod/go_pos/internal/salesapi"
	"github.com/fjod/go_pos/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	m        sync.RWMutex
	products []domain.Product
	requests []domain.SaleRequest
	saleErr  error
	sales    []domain.Sale
	cut      *domain.DailyCut
	filter   domain.SalesFilter
}

func (f *fakeAPI) SearchProducts(_ context.Context, _ string, _ int) ([]domain.Product, error) {
	f.m.RLock()
	defer f.m.RUnlock()
	return f.products, nil
}

func (f *fakeAPI) CreateSale(_ context.Context, req domain.SaleRequest) (*domain.Sale, error) {
	f.m.Lock()
	defer f.m.Unlock()
	if f.saleErr != nil {
		return nil, f.saleErr
	}
	f.requests = append(f.requests, req)
	return &domain.Sale{ID: "sale-1", Total: 104.4, PaymentMethod: string(req.PaymentMethod)}, nil
}

func (f *fakeAPI) ListSales(_ context.Context, filter domain.SalesFilter) ([]domain.Sale, error) {
	f.m.Lock()
	defer f.m.Unlock()
	f.filter = filter
	return f.sales, nil
}

func (f *fakeAPI) DailyCut(_ context.Context, storeID string) (*domain.DailyCut, error) {
	f.m.RLock()
	defer f.m.RUnlock()
	if f.cut == nil {
		return nil, &salesapi.APIError{StatusCode: http.StatusNotFound, Message: "store not found"}
	}
	cut := *f.cut
	return &cut, nil
}

func (f *fakeAPI) Stores(_ context.Context) ([]domain.Ref, error) {
	return []domain.Ref{{ID: "store-1", Name: "Centro"}}, nil
}

func (f *fakeAPI) submitted() []domain.SaleRequest {
	f.m.RLock()
	defer f.m.RUnlock()
	return append([]domain.SaleRequest(nil), f.requests...)
}

func newTestRouter(t *testing.T, api *fakeAPI) http.Handler {
	t.Helper()
	svc := catalog.NewService(api, nil, catalog.Config{MinQueryLength: 2, Limit: 10, QuietPeriod: 10 * time.Millisecond}, nil)
	registry := service.NewRegistry(api, svc, service.RegistryOptions{})
	t.Cleanup(registry.Close)

	return NewRouter(
		NewSessionHandler(registry, "Tienda Centro", 5*time.Second, nil),
		NewReportHandler(api, 5*time.Second),
		RouterConfig{MaxBodySize: 1 << 20},
	)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func openSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/v1/sessions", CreateSessionRequestDTO{StoreID: "store-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	snap := decodeBody[service.Snapshot](t, rec)
	require.NotEmpty(t, snap.ID)
	assert.Equal(t, domain.SessionEmpty, snap.Status)
	return snap.ID
}

func qty(n int) *int {
	return &n
}

func catalogFixture() []domain.Product {
	return []domain.Product{
		{ID: "p1", Name: "Arroz", Price: decimal.NewFromInt(40)},
		{ID: "p2", Name: "Aceite", Price: decimal.NewFromInt(20)},
		{ID: "p3", Name: "Dulce", Price: decimal.NewFromInt(5)},
	}
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestRouter(t, &fakeAPI{}), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSaleFlow(t *testing.T) {
	api := &fakeAPI{products: catalogFixture()}
	h := newTestRouter(t, api)
	id := openSession(t, h)
	base := "/api/v1/sessions/" + id

	rec := do(t, h, http.MethodPost, base+"/search", SearchRequestDTO{Query: "ar", Immediate: true})
	require.Equal(t, http.StatusOK, rec.Code)
	results := decodeBody[catalog.Results](t, rec)
	require.Len(t, results.Products, 3)

	rec = do(t, h, http.MethodPost, base+"/items", ItemRequestDTO{ProductID: "p1", Quantity: qty(2)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, h, http.MethodPost, base+"/items", ItemRequestDTO{ProductID: "p2"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, h, http.MethodPost, base+"/freebies", ItemRequestDTO{ProductID: "p3", Quantity: qty(1)})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodPut, base+"/pricing", map[string]any{
		"discount_mode":  "percentage",
		"discount_value": 10,
		"include_tax":    true,
		"payment_method": "nequi",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap := decodeBody[service.Snapshot](t, rec)
	assert.Equal(t, domain.SessionBuilding, snap.Status)
	assert.True(t, snap.Totals.Total.Equal(decimal.RequireFromString("104.4")), snap.Totals.Total.String())

	rec = do(t, h, http.MethodPost, base+"/submit", SubmitRequestDTO{})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeBody[SubmitResponseDTO](t, rec)
	assert.Equal(t, "sale-1", resp.Sale.ID)
	assert.Equal(t, domain.SessionEmpty, resp.Session.Status)

	reqs := api.submitted()
	require.Len(t, reqs, 1)
	assert.Equal(t, "store-1", reqs[0].Store)
	assert.Len(t, reqs[0].Items, 3)
	assert.InDelta(t, 10.0, reqs[0].Discount, 1e-9)
	assert.InDelta(t, 14.4, reqs[0].Tax, 1e-9)
	assert.Equal(t, domain.PaymentNequi, reqs[0].PaymentMethod)
	assert.Equal(t, "Incluye 1 ñapa(s)", reqs[0].Notes)
}

func TestDebouncedSearch(t *testing.T) {
	api := &fakeAPI{products: catalogFixture()}
	h := newTestRouter(t, api)
	base := "/api/v1/sessions/" + openSession(t, h)

	rec := do(t, h, http.MethodPost, base+"/search", SearchRequestDTO{Query: "arroz"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, decodeBody[catalog.Results](t, rec).Pending)

	require.Eventually(t, func() bool {
		rec := do(t, h, http.MethodGet, base+"/search", nil)
		res := decodeBody[catalog.Results](t, rec)
		return !res.Pending && len(res.Products) == 3
	}, time.Second, 10*time.Millisecond)
}

func TestSessionErrors(t *testing.T) {
	api := &fakeAPI{products: catalogFixture()}
	h := newTestRouter(t, api)
	base := "/api/v1/sessions/" + openSession(t, h)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown session", http.MethodGet, "/api/v1/sessions/nope", nil, http.StatusNotFound, "session_not_found"},
		{"unknown product", http.MethodPost, base + "/items", ItemRequestDTO{ProductID: "p9", Quantity: qty(1)}, http.StatusNotFound, "product_not_found"},
		{"missing product id", http.MethodPost, base + "/items", ItemRequestDTO{Quantity: qty(1)}, http.StatusBadRequest, "invalid_product_id"},
		{"bad payment method", http.MethodPut, base + "/pricing", map[string]any{"payment_method": "paypal"}, http.StatusBadRequest, "invalid_argument"},
		{"negative discount", http.MethodPut, base + "/pricing", map[string]any{"discount_value": -5}, http.StatusBadRequest, "invalid_argument"},
		{"empty cart", http.MethodPost, base + "/submit", nil, http.StatusBadRequest, "empty_cart"},
		{"no store", http.MethodPost, "/api/v1/sessions", CreateSessionRequestDTO{}, http.StatusBadRequest, "store_required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeBody[ErrorResponse](t, rec).Code)
		})
	}
}

func TestSubmit_APIFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"rejected", &salesapi.APIError{StatusCode: http.StatusBadRequest, Message: "Stock insuficiente"}, http.StatusUnprocessableEntity, "Stock insuficiente"},
		{"rejected without message", &salesapi.APIError{StatusCode: http.StatusBadRequest}, http.StatusUnprocessableEntity, service.GenericSubmissionMessage},
		{"unavailable", &salesapi.APIError{StatusCode: http.StatusBadGateway}, http.StatusServiceUnavailable, service.GenericSubmissionMessage},
		{"unauthorized", &salesapi.APIError{StatusCode: http.StatusUnauthorized, Message: "Token expirado"}, http.StatusUnauthorized, "Token expirado"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{products: catalogFixture(), saleErr: tt.err}
			h := newTestRouter(t, api)
			base := "/api/v1/sessions/" + openSession(t, h)

			do(t, h, http.MethodPost, base+"/search", SearchRequestDTO{Query: "ar", Immediate: true})
			require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, base+"/items", ItemRequestDTO{ProductID: "p1", Quantity: qty(1)}).Code)

			rec := do(t, h, http.MethodPost, base+"/submit", SubmitRequestDTO{Notes: "mesa 4"})
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decodeBody[ErrorResponse](t, rec).Error)

			// the cart survives a failed submission
			snap := decodeBody[service.Snapshot](t, do(t, h, http.MethodGet, base, nil))
			assert.Equal(t, domain.SessionBuilding, snap.Status)
			assert.Len(t, snap.Items, 1)
		})
	}
}

func TestAddLine_RejectsNonPositiveQuantity(t *testing.T) {
	api := &fakeAPI{products: catalogFixture()}
	h := newTestRouter(t, api)
	base := "/api/v1/sessions/" + openSession(t, h)

	do(t, h, http.MethodPost, base+"/search", SearchRequestDTO{Query: "ar", Immediate: true})
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, base+"/items", ItemRequestDTO{ProductID: "p2", Quantity: qty(3)}).Code)
	before := decodeBody[service.Snapshot](t, do(t, h, http.MethodGet, base, nil))

	for _, path := range []string{"/items", "/freebies"} {
		for _, n := range []int{0, -1} {
			rec := do(t, h, http.MethodPost, base+path, ItemRequestDTO{ProductID: "p1", Quantity: qty(n)})
			assert.Equal(t, http.StatusBadRequest, rec.Code, "%s quantity %d", path, n)
			assert.Equal(t, "invalid_argument", decodeBody[ErrorResponse](t, rec).Code)
		}
	}

	after := decodeBody[service.Snapshot](t, do(t, h, http.MethodGet, base, nil))
	require.Len(t, after.Items, 1)
	assert.Equal(t, "p2", after.Items[0].ProductID)
	assert.Equal(t, 3, after.Items[0].Quantity)
	assert.Empty(t, after.Freebies)
	assert.True(t, before.Totals.Total.Equal(after.Totals.Total))
}

func TestAddLine_DefaultsToOneUnit(t *testing.T) {
	api := &fakeAPI{products: catalogFixture()}
	h := newTestRouter(t, api)
	base := "/api/v1/sessions/" + openSession(t, h)

	do(t, h, http.MethodPost, base+"/search", SearchRequestDTO{Query: "ar", Immediate: true})
	rec := do(t, h, http.MethodPost, base+"/items", map[string]string{"product_id": "p1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	snap := decodeBody[service.Snapshot](t, rec)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 1, snap.Items[0].Quantity)
}

func TestUpdateAndRemoveLines(t *testing.T) {
	api := &fakeAPI{products: catalogFixture()}
	h := newTestRouter(t, api)
	base := "/api/v1/sessions/" + openSession(t, h)

	do(t, h, http.MethodPost, base+"/search", SearchRequestDTO{Query: "ar", Immediate: true})
	do(t, h, http.MethodPost, base+"/items", ItemRequestDTO{ProductID: "p1", Quantity: qty(1)})
	do(t, h, http.MethodPost, base+"/freebies", ItemRequestDTO{ProductID: "p3", Quantity: qty(2)})

	rec := do(t, h, http.MethodPatch, base+"/items/p1", UpdateQuantityRequestDTO{Quantity: 4})
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeBody[service.Snapshot](t, rec)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 4, snap.Items[0].Quantity)

	rec = do(t, h, http.MethodDelete, base+"/items/p1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap = decodeBody[service.Snapshot](t, rec)
	assert.Empty(t, snap.Items)
	assert.Equal(t, domain.SessionBuilding, snap.Status)

	rec = do(t, h, http.MethodDelete, base+"/freebies/p3", nil)
	snap = decodeBody[service.Snapshot](t, rec)
	assert.Equal(t, domain.SessionEmpty, snap.Status)

	rec = do(t, h, http.MethodPost, base+"/clear", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSales(t *testing.T) {
	api := &fakeAPI{sales: []domain.Sale{
		{ID: "1", Total: 75, PaymentMethod: "efectivo"},
		{ID: "2", Total: 25, PaymentMethod: "tarjeta"},
	}}
	h := newTestRouter(t, api)

	rec := do(t, h, http.MethodGet, "/api/v1/sales?search=arroz&date_from=2026-03-01&store_id=store-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[SalesResponseDTO](t, rec)
	assert.Len(t, resp.Sales, 2)
	require.Len(t, resp.Breakdown, 2)
	assert.Equal(t, domain.PaymentCash, resp.Breakdown[0].Method)
	assert.InDelta(t, 75.0, resp.Breakdown[0].Percentage, 1e-9)

	api.m.RLock()
	defer api.m.RUnlock()
	assert.Equal(t, domain.SalesFilter{Search: "arroz", DateFrom: "2026-03-01", StoreID: "store-1"}, api.filter)
}

func TestDailyCutAndReconcile(t *testing.T) {
	api := &fakeAPI{cut: &domain.DailyCut{
		Store:   domain.Ref{ID: "store-1"},
		Summary: domain.DailyCutSummary{TotalSales: 3, TotalRevenue: 400},
		PaymentMethods: []domain.PaymentMethodTotal{
			{Method: "efectivo", Total: 300, Count: 2},
			{Method: "nequi", Total: 100, Count: 1},
		},
	}}
	h := newTestRouter(t, api)

	rec := do(t, h, http.MethodGet, "/api/v1/daily-cut?store_id=store-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cut := decodeBody[DailyCutResponseDTO](t, rec)
	assert.Equal(t, 300.0, cut.ExpectedCash)
	require.Len(t, cut.Breakdown, 2)
	assert.InDelta(t, 25.0, cut.Breakdown[1].Percentage, 1e-9)

	counted := 290.0
	rec = do(t, h, http.MethodPost, "/api/v1/daily-cut/reconcile", ReconcileRequestDTO{StoreID: "store-1", CountedCash: &counted})
	require.Equal(t, http.StatusOK, rec.Code)
	rc := decodeBody[ReconcileResponseDTO](t, rec)
	assert.Equal(t, "store-1", rc.StoreID)
	assert.InDelta(t, -10.0, rc.Reconciliation.Difference, 1e-9)
	assert.Equal(t, "shortage", string(rc.Reconciliation.Status))

	rec = do(t, h, http.MethodPost, "/api/v1/daily-cut/reconcile", ReconcileRequestDTO{StoreID: "store-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDailyCut_APIRejection(t *testing.T) {
	rec := do(t, newTestRouter(t, &fakeAPI{}), http.MethodGet, "/api/v1/daily-cut?store_id=x", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "store not found", decodeBody[ErrorResponse](t, rec).Error)
}

func TestStores(t *testing.T) {
	rec := do(t, newTestRouter(t, &fakeAPI{}), http.MethodGet, "/api/v1/stores", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stores := decodeBody[[]domain.Ref](t, rec)
	assert.Equal(t, []domain.Ref{{ID: "store-1", Name: "Centro"}}, stores)
}
