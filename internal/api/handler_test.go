package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakmart/storefront/internal/domain/cart"
	"github.com/oakmart/storefront/internal/domain/catalog"
	"github.com/oakmart/storefront/internal/domain/checkout"
	"github.com/oakmart/storefront/internal/domain/order"
	"github.com/oakmart/storefront/internal/domain/promotion"
	"github.com/oakmart/storefront/internal/payment"
)

// --- Mock implementations ---

type mockCatalogRepo struct {
	byID    map[string]*catalog.Product
	listErr error
}

func (m *mockCatalogRepo) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

func (m *mockCatalogRepo) GetByIDs(_ context.Context, ids []string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockCatalogRepo) List(_ context.Context) ([]catalog.Product, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []catalog.Product
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockCatalogRepo) ReserveStock(_ context.Context, _, _ string, _ int) error {
	return nil
}

func (m *mockCatalogRepo) ReleaseStock(_ context.Context, _, _ string, _ int) error {
	return nil
}

type mockCartRepo struct {
	byID map[string]*cart.Line
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{byID: make(map[string]*cart.Line)}
}

func (m *mockCartRepo) ListByUser(_ context.Context, userID string) ([]cart.Line, error) {
	var out []cart.Line
	for _, l := range m.byID {
		if l.UserID == userID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *mockCartRepo) GetByID(_ context.Context, userID, lineID string) (*cart.Line, error) {
	l, ok := m.byID[lineID]
	if !ok || l.UserID != userID {
		return nil, cart.ErrLineNotFound
	}
	return l, nil
}

func (m *mockCartRepo) FindLine(_ context.Context, userID, productID, variantID string) (*cart.Line, error) {
	for _, l := range m.byID {
		if l.UserID == userID && l.ProductID == productID && l.VariantID == variantID {
			return l, nil
		}
	}
	return nil, cart.ErrLineNotFound
}

func (m *mockCartRepo) Create(_ context.Context, line *cart.Line) error {
	m.byID[line.ID] = line
	return nil
}

func (m *mockCartRepo) Update(_ context.Context, line *cart.Line) error {
	m.byID[line.ID] = line
	return nil
}

func (m *mockCartRepo) Delete(_ context.Context, userID, lineID string) error {
	l, ok := m.byID[lineID]
	if !ok || l.UserID != userID {
		return cart.ErrLineNotFound
	}
	delete(m.byID, lineID)
	return nil
}

func (m *mockCartRepo) Clear(_ context.Context, userID string) error {
	for id, l := range m.byID {
		if l.UserID == userID {
			delete(m.byID, id)
		}
	}
	return nil
}

type mockDiscountRepo struct{}

func (mockDiscountRepo) FindActiveFor(_ context.Context, _, _ string, _ time.Time) ([]promotion.Discount, error) {
	return nil, nil
}

type mockCouponRepo struct {
	coupon *promotion.Coupon
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*promotion.Coupon, error) {
	if m.coupon == nil || m.coupon.Code != code {
		return nil, promotion.ErrCouponNotFound
	}
	return m.coupon, nil
}

func (m *mockCouponRepo) IncrementUsage(_ context.Context, _ string) error { return nil }

type mockOrderRepo struct {
	lastOrder *order.Order
	paid      []string
	alreadyOn map[string]bool
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order) error {
	m.lastOrder = o
	return nil
}

func (m *mockOrderRepo) GetByGatewayReference(_ context.Context, ref string) (*order.Order, error) {
	if m.lastOrder != nil && m.lastOrder.GatewayReference == ref {
		return m.lastOrder, nil
	}
	return nil, order.ErrNotFound
}

func (m *mockOrderRepo) MarkPaid(_ context.Context, ref string) (bool, error) {
	if m.alreadyOn[ref] {
		return false, nil
	}
	m.paid = append(m.paid, ref)
	return m.lastOrder != nil && m.lastOrder.GatewayReference == ref, nil
}

func (m *mockOrderRepo) CountCouponUse(_ context.Context, _, _ string) (int, error) {
	return 0, nil
}

type mockGateway struct {
	auth *payment.Authorization
	err  error
}

func (m *mockGateway) CreateAuthorization(_ context.Context, _ payment.Settings, _ payment.AuthorizationRequest) (*payment.Authorization, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.auth, nil
}

type mockSettings struct {
	settings payment.Settings
}

func (m *mockSettings) Payment(_ context.Context) (payment.Settings, error) {
	return m.settings, nil
}

// --- Helpers ---

const webhookSecret = "whsec_test"

type fixture struct {
	products *mockCatalogRepo
	lines    *mockCartRepo
	orders   *mockOrderRepo
	coupons  *mockCouponRepo
	mux      *http.ServeMux
}

// stubAuth injects a fixed user without touching the key store.
func stubAuth(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), userIDKey{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		products: &mockCatalogRepo{byID: make(map[string]*catalog.Product)},
		lines:    newMockCartRepo(),
		orders:   &mockOrderRepo{},
		coupons:  &mockCouponRepo{},
	}

	shipping := cart.ShippingPolicy{
		FlatFee:       decimal.RequireFromString("10.00"),
		FreeThreshold: decimal.RequireFromString("100.00"),
	}
	settings := &mockSettings{settings: payment.Settings{
		Enabled:       true,
		SecretKey:     "sk_test",
		WebhookSecret: webhookSecret,
	}}
	gateway := &mockGateway{auth: &payment.Authorization{Reference: "pi_test", ClientSecret: "cs_test"}}

	valuator := cart.NewValuator(f.products, shipping)
	cartSvc := cart.NewService(f.lines, f.products)
	checkoutSvc := checkout.NewService(
		f.lines,
		valuator,
		promotion.NewEngine(mockDiscountRepo{}),
		promotion.NewCouponValidator(f.coupons, f.orders),
		f.coupons,
		f.products,
		f.orders,
		gateway,
		settings,
		shipping,
		"usd",
	)
	settlement := checkout.NewSettlement(f.orders, settings, true)

	h := NewHandler(f.products, cartSvc, f.lines, valuator, checkoutSvc, settlement)
	f.mux = http.NewServeMux()
	h.Register(f.mux, stubAuth("u1"))
	return f
}

func (f *fixture) addProduct(id, price string, stock int) {
	f.products.byID[id] = &catalog.Product{
		ID:         id,
		Name:       "Product " + id,
		CategoryID: "cat-1",
		ListPrice:  decimal.RequireFromString(price),
		Stock:      stock,
		Active:     true,
	}
}

func (f *fixture) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// --- Tests ---

func TestListProducts(t *testing.T) {
	f := newFixture(t)
	f.addProduct("p1", "19.99", 5)

	rec := f.do(t, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "p1", out[0]["id"])
	assert.Equal(t, 19.99, out[0]["price"])
}

func TestGetProduct_NotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/products/missing", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(404), body["code"])
}

func TestAddCartLine(t *testing.T) {
	f := newFixture(t)
	f.addProduct("p1", "19.99", 5)

	rec := f.do(t, http.MethodPost, "/api/cart", `{"product_id":"p1","quantity":2}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "p1", body["product_id"])
	assert.Equal(t, float64(2), body["quantity"])
	assert.Equal(t, 19.99, body["unit_price"])
	assert.Equal(t, 39.98, body["amount"])
}

func TestAddCartLine_Validation(t *testing.T) {
	f := newFixture(t)
	f.addProduct("p1", "19.99", 5)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"product_id":`, http.StatusBadRequest},
		{"missing product", `{"quantity":1}`, http.StatusBadRequest},
		{"zero quantity", `{"product_id":"p1","quantity":0}`, http.StatusBadRequest},
		{"unknown product", `{"product_id":"nope","quantity":1}`, http.StatusNotFound},
		{"exceeds stock", `{"product_id":"p1","quantity":9}`, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/cart", tt.body, nil)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestGetCart(t *testing.T) {
	f := newFixture(t)
	f.addProduct("p1", "49.99", 10)

	rec := f.do(t, http.MethodPost, "/api/cart", `{"product_id":"p1","quantity":3}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/cart", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(3), body["item_count"])
	assert.Equal(t, 149.97, body["subtotal"])
	assert.Equal(t, float64(0), body["shipping"])
	assert.Equal(t, 149.97, body["total"])
}

func TestUpdateCartLine(t *testing.T) {
	f := newFixture(t)
	f.addProduct("p1", "10.00", 10)

	rec := f.do(t, http.MethodPost, "/api/cart", `{"product_id":"p1","quantity":1}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	lineID := decodeBody(t, rec)["id"].(string)

	rec = f.do(t, http.MethodPut, "/api/cart/"+lineID, `{"quantity":4}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(4), decodeBody(t, rec)["quantity"])

	rec = f.do(t, http.MethodPut, "/api/cart/unknown", `{"quantity":1}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveAndClearCart(t *testing.T) {
	f := newFixture(t)
	f.addProduct("p1", "10.00", 10)

	rec := f.do(t, http.MethodPost, "/api/cart", `{"product_id":"p1","quantity":1}`, nil)
	lineID := decodeBody(t, rec)["id"].(string)

	rec = f.do(t, http.MethodDelete, "/api/cart/"+lineID, "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/cart", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCreateIntent(t *testing.T) {
	f := newFixture(t)
	f.addProduct("p1", "49.99", 10)
	f.do(t, http.MethodPost, "/api/cart", `{"product_id":"p1","quantity":3}`, nil)

	rec := f.do(t, http.MethodPost, "/api/checkout/create-intent", `{"payment_method":"card"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "pi_test", body["reference"])
	assert.Equal(t, "cs_test", body["client_secret"])
	assert.Equal(t, 149.97, body["amount"])
	assert.Equal(t, float64(14997), body["amount_minor"])
	assert.Equal(t, "usd", body["currency"])
	require.NotNil(t, f.orders.lastOrder)
}

func TestCreateIntent_EmptyCart(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/checkout/create-intent", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateIntent_BadCoupon(t *testing.T) {
	f := newFixture(t)
	f.addProduct("p1", "49.99", 10)
	f.do(t, http.MethodPost, "/api/cart", `{"product_id":"p1","quantity":1}`, nil)

	rec := f.do(t, http.MethodPost, "/api/checkout/create-intent", `{"coupon_code":"NOPE"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestWebhook(t *testing.T) {
	f := newFixture(t)
	f.addProduct("p1", "49.99", 10)
	f.do(t, http.MethodPost, "/api/cart", `{"product_id":"p1","quantity":1}`, nil)
	rec := f.do(t, http.MethodPost, "/api/checkout/create-intent", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	payload := `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_test"}}}`
	sig := payment.Sign([]byte(payload), time.Now(), webhookSecret)

	rec = f.do(t, http.MethodPost, "/api/checkout/webhook", payload, map[string]string{
		SignatureHeader: sig,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["received"])
	assert.Equal(t, []string{"pi_test"}, f.orders.paid)
}

func TestWebhook_BadSignature(t *testing.T) {
	f := newFixture(t)

	payload := `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_test"}}}`

	rec := f.do(t, http.MethodPost, "/api/checkout/webhook", payload, map[string]string{
		SignatureHeader: "t=123,v1=deadbeef",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.orders.paid)

	rec = f.do(t, http.MethodPost, "/api/checkout/webhook", payload, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
