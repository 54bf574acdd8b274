package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront-checkout/internal/apperr"
	"storefront-checkout/internal/checkout"
	"storefront-checkout/internal/currency"
	"storefront-checkout/internal/domain"
	cartsvc "storefront-checkout/internal/service/cart"
	checkoutsvc "storefront-checkout/internal/service/checkout"
	"storefront-checkout/internal/storefront"
)

var testNow = time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)

func logDiscard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type stubCheckoutService struct {
	session     *checkout.Session
	err         error
	advance     *checkoutsvc.Result
	advanceErr  error
	lastToken   string
	lastField   string
	lastValue   string
	lastOpen    checkoutsvc.OpenInput
	validateOut map[checkout.Field]string
}

func (s *stubCheckoutService) Open(_ context.Context, in checkoutsvc.OpenInput) (*checkout.Session, error) {
	s.lastOpen = in
	return s.session, s.err
}

func (s *stubCheckoutService) Get(context.Context, string) (*checkout.Session, error) {
	return s.session, s.err
}

func (s *stubCheckoutService) Close(context.Context, string) error { return s.err }

func (s *stubCheckoutService) SetField(_ context.Context, _ string, field, value string) (*checkout.Session, error) {
	s.lastField, s.lastValue = field, value
	if _, ok := checkout.ParseField(field); !ok {
		return nil, checkout.ErrUnknownField
	}
	return s.session, s.err
}

func (s *stubCheckoutService) Blur(_ context.Context, _ string, field string) (*checkout.Session, error) {
	s.lastField = field
	return s.session, s.err
}

func (s *stubCheckoutService) SelectPaymentMethod(_ context.Context, _ string, m checkout.PaymentMethod) (*checkout.Session, error) {
	if !m.Valid() {
		return nil, checkout.ErrInvalidPaymentMethod
	}
	return s.session, s.err
}

func (s *stubCheckoutService) SelectCardType(context.Context, string, checkout.CardType) (*checkout.Session, error) {
	return s.session, s.err
}

func (s *stubCheckoutService) Advance(_ context.Context, _ string, creds checkoutsvc.Credentials) (*checkoutsvc.Result, error) {
	s.lastToken = creds.Token
	return s.advance, s.advanceErr
}

func (s *stubCheckoutService) Retreat(context.Context, string) (*checkout.Session, error) {
	return s.session, s.err
}

func (s *stubCheckoutService) Validate(values map[string]string, _ checkout.CardType) (map[checkout.Field]string, error) {
	for k := range values {
		if _, ok := checkout.ParseField(k); !ok {
			return nil, checkout.ErrUnknownField
		}
	}
	return s.validateOut, nil
}

type stubCartService struct {
	summary *cartsvc.Summary
	err     error

	calls []string
}

func (s *stubCartService) Summary(context.Context, string, string) (*cartsvc.Summary, error) {
	return s.summary, s.err
}

func (s *stubCartService) RemoveItem(_ context.Context, userID, productID, _ string) (*cartsvc.Summary, error) {
	s.calls = append(s.calls, fmt.Sprintf("remove %s %s", userID, productID))
	return s.summary, s.err
}

func (s *stubCartService) UpdateQuantity(_ context.Context, userID, productID string, quantity int, _ string) (*cartsvc.Summary, error) {
	s.calls = append(s.calls, fmt.Sprintf("set %s %s %d", userID, productID, quantity))
	return s.summary, s.err
}

func (s *stubCartService) AdjustQuantity(_ context.Context, userID, productID string, delta int, _ string) (*cartsvc.Summary, error) {
	s.calls = append(s.calls, fmt.Sprintf("adjust %s %s %d", userID, productID, delta))
	return s.summary, s.err
}

type stubRates struct{}

func (stubRates) Rates(context.Context) (map[string]decimal.Decimal, error) {
	return map[string]decimal.Decimal{"INR": decimal.NewFromInt(1), "CNY": decimal.RequireFromString("0.085")}, nil
}

func (stubRates) Rate(_ context.Context, code string) decimal.Decimal {
	if code == currency.CNY {
		return decimal.RequireFromString("0.085")
	}
	return decimal.NewFromInt(1)
}

type stubOrderService struct {
	orders    []domain.Order
	updateErr error
	csv       string
}

func (s *stubOrderService) List(context.Context, int, int) ([]domain.Order, error) {
	return s.orders, nil
}

func (s *stubOrderService) BackendOrders(context.Context) ([]storefront.AdminOrder, error) {
	return []storefront.AdminOrder{{ID: "b1"}}, nil
}

func (s *stubOrderService) UpdateStatus(_ context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return &domain.Order{ID: id, Status: status}, nil
}

func (s *stubOrderService) ExportCSV(_ context.Context, w io.Writer) error {
	_, err := io.WriteString(w, s.csv)
	return err
}

func newTestRouter(t *testing.T, co *stubCheckoutService, orders *stubOrderService) *gin.Engine {
	t.Helper()
	return newTestRouterWithCarts(t, co, orders, &stubCartService{summary: &cartsvc.Summary{UserID: "u1", ItemCount: 2}})
}

func newTestRouterWithCarts(t *testing.T, co *stubCheckoutService, orders *stubOrderService, carts *stubCartService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if orders == nil {
		orders = &stubOrderService{}
	}
	router, err := buildRouter(logDiscard(), nil, Deps{
		CheckoutSvc: co,
		CartSvc:     carts,
		Rates:       stubRates{},
		OrderSvc:    orders,
		Now:         func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return router
}

func doJSON(router http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestBuildRouterRequiresServices(t *testing.T) {
	if _, err := buildRouter(logDiscard(), nil, Deps{}); err == nil {
		t.Fatalf("expected error for missing services")
	}
}

func TestHealthAndReady(t *testing.T) {
	router := newTestRouter(t, &stubCheckoutService{}, nil)
	if rec := doJSON(router, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
	rec := doJSON(router, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusOK || decode(t, rec)["ledger"] != "memory" {
		t.Fatalf("readyz: %d %s", rec.Code, rec.Body.String())
	}
}

func TestOpenSession(t *testing.T) {
	co := &stubCheckoutService{session: checkout.NewSession("s1", "u1", testNow)}
	router := newTestRouter(t, co, nil)

	rec := doJSON(router, http.MethodPost, "/checkout/sessions", `{"email":"johnsmith@test.com"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["id"] != "s1" || body["panel"] != "shipping" || body["stepCount"] != float64(2) {
		t.Fatalf("unexpected body %v", body)
	}
	if co.lastOpen.Email != "johnsmith@test.com" {
		t.Fatalf("unexpected input %+v", co.lastOpen)
	}

	rec = doJSON(router, http.MethodPost, "/checkout/sessions", `{"email":"not-an-email"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	fields := decode(t, rec)["fieldErrors"].(map[string]any)
	if fields["email"] != "Please enter a valid email address." {
		t.Fatalf("unexpected field errors %v", fields)
	}

	co.err = checkout.ErrEmptyCart
	rec = doJSON(router, http.MethodPost, "/checkout/sessions", `{"userId":"u1"}`)
	if rec.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d", rec.Code)
	}
}

func TestSetFieldAndBlur(t *testing.T) {
	co := &stubCheckoutService{session: checkout.NewSession("s1", "u1", testNow)}
	router := newTestRouter(t, co, nil)

	rec := doJSON(router, http.MethodPut, "/checkout/sessions/s1/fields/phone", `{"value":"98765"}`)
	if rec.Code != http.StatusOK || co.lastField != "phone" || co.lastValue != "98765" {
		t.Fatalf("unexpected %d field=%s value=%s", rec.Code, co.lastField, co.lastValue)
	}

	rec = doJSON(router, http.MethodPut, "/checkout/sessions/s1/fields/phone", `{"value":""}`)
	if rec.Code != http.StatusOK || co.lastValue != "" {
		t.Fatalf("clearing a field must be allowed, got %d", rec.Code)
	}

	rec = doJSON(router, http.MethodPut, "/checkout/sessions/s1/fields/phone", `{}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing value, got %d", rec.Code)
	}

	rec = doJSON(router, http.MethodPut, "/checkout/sessions/s1/fields/nickname", `{"value":"x"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown field, got %d", rec.Code)
	}

	rec = doJSON(router, http.MethodPost, "/checkout/sessions/s1/fields/email/blur", "")
	if rec.Code != http.StatusOK || co.lastField != "email" {
		t.Fatalf("blur: %d %s", rec.Code, co.lastField)
	}

	co.err = domain.ErrNotFound
	rec = doJSON(router, http.MethodGet, "/checkout/sessions/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestPaymentMethodAndCardType(t *testing.T) {
	co := &stubCheckoutService{session: checkout.NewSession("s1", "u1", testNow)}
	router := newTestRouter(t, co, nil)

	if rec := doJSON(router, http.MethodPut, "/checkout/sessions/s1/payment-method", `{"paymentMethod":"cod"}`); rec.Code != http.StatusOK {
		t.Fatalf("payment method: %d", rec.Code)
	}
	if rec := doJSON(router, http.MethodPut, "/checkout/sessions/s1/payment-method", `{"paymentMethod":"upi"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unsupported method, got %d", rec.Code)
	}
	if rec := doJSON(router, http.MethodPut, "/checkout/sessions/s1/card-type", `{}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing card type, got %d", rec.Code)
	}
	rec := doJSON(router, http.MethodGet, "/checkout/card-types", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"name":"American Express","cvcLength":4`) {
		t.Fatalf("card types: %d %s", rec.Code, rec.Body.String())
	}
}

func TestAdvanceResponses(t *testing.T) {
	sess := checkout.NewSession("s1", "u1", testNow)
	co := &stubCheckoutService{session: sess}
	router := newTestRouter(t, co, nil)

	blocked := checkout.NewSession("s1", "u1", testNow)
	if out, _ := blocked.Advance(testNow); out != checkout.Blocked {
		t.Fatalf("expected empty shipping to block")
	}
	co.advance = &checkoutsvc.Result{Session: blocked, Outcome: checkout.Blocked}
	rec := doJSON(router, http.MethodPost, "/checkout/sessions/s1/advance", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["fieldErrors"].(map[string]any)["name"] != "Name is required." {
		t.Fatalf("unexpected body %v", body)
	}
	if body["session"].(map[string]any)["step"] != float64(1) {
		t.Fatalf("expected session in body, got %v", body["session"])
	}

	done := checkout.NewSession("s1", "u1", testNow)
	done.PaymentMethod = checkout.PaymentCOD
	done.CompleteSubmission("ord-1")
	co.advance = &checkoutsvc.Result{Session: done, Outcome: checkout.Moved, OrderID: "ord-1"}
	rec = doJSON(router, http.MethodPost, "/checkout/sessions/s1/advance", "", "Authorization", "Bearer tok-123")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if co.lastToken != "tok-123" {
		t.Fatalf("expected bearer token passed through, got %q", co.lastToken)
	}
	body = decode(t, rec)
	if body["orderId"] != "ord-1" || body["session"].(map[string]any)["panel"] != "success" {
		t.Fatalf("unexpected body %v", body)
	}

	co.advance = &checkoutsvc.Result{Session: sess, Outcome: checkout.Blocked}
	co.advanceErr = checkout.ErrMissingToken
	rec = doJSON(router, http.MethodPost, "/checkout/sessions/s1/advance", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	co.advanceErr = fmt.Errorf("%w: %w", apperr.ErrSubmission, errors.New("connection reset"))
	rec = doJSON(router, http.MethodPost, "/checkout/sessions/s1/advance", "", "Authorization", "Bearer tok")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if decode(t, rec)["session"] == nil {
		t.Fatalf("expected session alongside submission error")
	}
}

func TestValidateEndpoint(t *testing.T) {
	co := &stubCheckoutService{validateOut: map[checkout.Field]string{checkout.FieldEmail: "Email must be at least 13 characters long."}}
	router := newTestRouter(t, co, nil)

	rec := doJSON(router, http.MethodPost, "/checkout/validate", `{"values":{"email":"ab@cd.com"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["valid"] != false {
		t.Fatalf("unexpected body %v", body)
	}

	rec = doJSON(router, http.MethodPost, "/checkout/validate", `{"values":{"nickname":"x"}}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	rec = doJSON(router, http.MethodPost, "/checkout/validate", `not json`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for malformed body, got %d", rec.Code)
	}
}

func TestCartSummaryAndRates(t *testing.T) {
	router := newTestRouter(t, &stubCheckoutService{}, nil)

	rec := doJSON(router, http.MethodGet, "/cart/u1/summary?lang=zh-TW", "")
	if rec.Code != http.StatusOK || decode(t, rec)["itemCount"] != float64(2) {
		t.Fatalf("summary: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(router, http.MethodGet, "/rates?lang=zh-TW", "")
	body := decode(t, rec)
	if body["currency"] != "CNY" || body["symbol"] != "¥" || body["rate"] != "0.085" {
		t.Fatalf("unexpected rates %v", body)
	}
}

func TestCartItemRoutes(t *testing.T) {
	carts := &stubCartService{summary: &cartsvc.Summary{UserID: "u1", ItemCount: 1}}
	router := newTestRouterWithCarts(t, &stubCheckoutService{}, nil, carts)

	if rec := doJSON(router, http.MethodPatch, "/cart/u1/items/p1", `{"quantity":0}`); rec.Code != http.StatusOK {
		t.Fatalf("set quantity: %d %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(router, http.MethodPatch, "/cart/u1/items/p1", `{"change":-1}`); rec.Code != http.StatusOK {
		t.Fatalf("adjust quantity: %d %s", rec.Code, rec.Body.String())
	}
	rec := doJSON(router, http.MethodDelete, "/cart/u1/items/p2", "")
	if rec.Code != http.StatusOK || decode(t, rec)["itemCount"] != float64(1) {
		t.Fatalf("remove: %d %s", rec.Code, rec.Body.String())
	}
	want := []string{"set u1 p1 0", "adjust u1 p1 -1", "remove u1 p2"}
	if strings.Join(carts.calls, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected calls %v", carts.calls)
	}

	for _, body := range []string{`{}`, `{"quantity":2,"change":1}`} {
		if rec := doJSON(router, http.MethodPatch, "/cart/u1/items/p1", body); rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("body %s: expected 422, got %d", body, rec.Code)
		}
	}

	carts.err = fmt.Errorf("adjust: %w", domain.ErrNotFound)
	if rec := doJSON(router, http.MethodPatch, "/cart/u1/items/nope", `{"change":1}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a product not in the cart, got %d", rec.Code)
	}
}

func TestAdminOrders(t *testing.T) {
	orders := &stubOrderService{
		orders: []domain.Order{{ID: "ord-1", Status: domain.OrderPending}},
		csv:    "order_id\nord-1\n",
	}
	router := newTestRouter(t, &stubCheckoutService{}, orders)

	rec := doJSON(router, http.MethodGet, "/admin/orders?limit=10", "")
	if rec.Code != http.StatusOK || decode(t, rec)["count"] != float64(1) {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(router, http.MethodGet, "/admin/orders?source=backend", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"b1"`) {
		t.Fatalf("backend list: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(router, http.MethodPatch, "/admin/orders/ord-1", `{"orderStatus":"Shipped"}`)
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != "Shipped" {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(router, http.MethodPatch, "/admin/orders/ord-1", `{"orderStatus":"Lost"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown status, got %d", rec.Code)
	}

	orders.updateErr = fmt.Errorf("%w: timeout", apperr.ErrUpstream)
	rec = doJSON(router, http.MethodPatch, "/admin/orders/ord-1", `{"orderStatus":"Delivered"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}

	rec = doJSON(router, http.MethodGet, "/admin/orders/export.csv", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "order_id\nord-1\n" {
		t.Fatalf("export: %d %q", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="orders-20260315.csv"` {
		t.Fatalf("unexpected disposition %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(rateLimit(0.5, logDiscard()))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	if rec := doJSON(router, http.MethodGet, "/ping", ""); rec.Code != http.StatusOK {
		t.Fatalf("first request: %d", rec.Code)
	}
	if rec := doJSON(router, http.MethodGet, "/ping", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[string]string{
		"Bearer abc":  "abc",
		"bearer  xyz": "xyz",
		"Basic abc":   "",
		"":            "",
	}
	for header, want := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set("Authorization", header)
		if got := bearerToken(c); got != want {
			t.Fatalf("bearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
