package api_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-payanyway/internal/auth"
	"ms-payanyway/internal/config"
	"ms-payanyway/internal/logger"
	"ms-payanyway/internal/models"
	"ms-payanyway/internal/payanyway"
	"ms-payanyway/internal/payanyway/api"
)

const testOrderGUID = "11111111-1111-1111-1111-111111111111"

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) GetOrderByGUID(ctx context.Context, guid string) (*models.Order, error) {
	args := m.Called(guid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) InsertOrderNote(ctx context.Context, note models.OrderNote) error {
	args := m.Called(note)
	return args.Error(0)
}

func (m *MockOrderService) CanMarkPaid(order *models.Order) bool {
	args := m.Called(order)
	return args.Bool(0)
}

func (m *MockOrderService) MarkPaid(ctx context.Context, order *models.Order) error {
	args := m.Called(order)
	return args.Error(0)
}

type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Load(ctx context.Context, storeID int) (models.PaymentSettings, error) {
	args := m.Called(storeID)
	return args.Get(0).(models.PaymentSettings), args.Error(1)
}

func testSettings() models.PaymentSettings {
	return models.PaymentSettings{
		MerchantID: "1234",
		HashCode:   "s3cr3t",
		TestMode:   true,
	}
}

func testOrder() *models.Order {
	return &models.Order{
		OrderID:       testOrderGUID,
		UserID:        "7",
		Total:         100.00,
		CurrencyCode:  "RUB",
		Status:        models.OrderPending,
		PaymentStatus: models.PaymentPending,
		CreatedAt:     time.Now().Add(-time.Minute),
	}
}

func newTestHandler(orders *MockOrderService, settings *MockSettingsService) *api.Handler {
	gw := config.GatewayConfig{
		SiteURL:    "https://shop.example.com/",
		SystemName: "Evently",
		StoreScope: 0,
	}
	return api.NewHandler(orders, settings, gw, logger.NewLogger())
}

func validInboundSignature() string {
	req := payanyway.NewPaymentRequest(testSettings(), "7", testOrderGUID, 100.00, "RUB")
	return payanyway.InboundSignature(req, "op1", "s3cr3t")
}

func confirmPayRequest(signature string) *http.Request {
	query := url.Values{
		"MNT_TRANSACTION_ID": {testOrderGUID},
		"MNT_OPERATION_ID":   {"op1"},
		"MNT_SIGNATURE":      {signature},
		"MNT_CURRENCY_CODE":  {"rub"},
	}
	return httptest.NewRequest(http.MethodGet, "/payanyway/confirm?"+query.Encode(), nil)
}

func TestConfirmPayMarksOrderPaid(t *testing.T) {
	orders := &MockOrderService{}
	orders.On("GetOrderByGUID", testOrderGUID).Return(testOrder(), nil)
	orders.On("InsertOrderNote", mock.Anything).Return(nil)
	orders.On("CanMarkPaid", mock.Anything).Return(true)
	orders.On("MarkPaid", mock.Anything).Return(nil)

	settings := &MockSettingsService{}
	settings.On("Load", 0).Return(testSettings(), nil)

	h := newTestHandler(orders, settings)

	rec := httptest.NewRecorder()
	h.ConfirmPay(rec, confirmPayRequest(validInboundSignature()))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "SUCCESS\r\nEvently. Your order has been paid", rec.Body.String())
	orders.AssertCalled(t, "MarkPaid", mock.Anything)
}

func TestConfirmPayIsIdempotentForPaidOrder(t *testing.T) {
	paid := testOrder()
	paid.PaymentStatus = models.PaymentPaid
	paid.Status = models.OrderCompleted

	orders := &MockOrderService{}
	orders.On("GetOrderByGUID", testOrderGUID).Return(paid, nil)
	orders.On("InsertOrderNote", mock.Anything).Return(nil)
	orders.On("CanMarkPaid", mock.Anything).Return(false)

	settings := &MockSettingsService{}
	settings.On("Load", 0).Return(testSettings(), nil)

	h := newTestHandler(orders, settings)

	// The gateway retries callbacks; a repeat for an already-paid order is a
	// SUCCESS without another transition.
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ConfirmPay(rec, confirmPayRequest(validInboundSignature()))
		assert.Equal(t, "SUCCESS\r\nEvently. Your order has been paid", rec.Body.String())
	}

	orders.AssertNotCalled(t, "MarkPaid", mock.Anything)
}

func TestConfirmPayRejectsMalformedGUID(t *testing.T) {
	orders := &MockOrderService{}
	settings := &MockSettingsService{}
	settings.On("Load", 0).Return(testSettings(), nil)

	h := newTestHandler(orders, settings)

	query := url.Values{
		"MNT_TRANSACTION_ID": {"not-a-guid"},
		"MNT_SIGNATURE":      {"whatever"},
	}
	req := httptest.NewRequest(http.MethodGet, "/payanyway/confirm?"+query.Encode(), nil)

	rec := httptest.NewRecorder()
	h.ConfirmPay(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, "failures are acknowledged in the body, not the status")
	assert.Equal(t, "FAIL\r\nEvently. Invalid order GUID", rec.Body.String())
	orders.AssertNotCalled(t, "GetOrderByGUID", mock.Anything)
}

func TestConfirmPayRejectsUnknownOrder(t *testing.T) {
	orders := &MockOrderService{}
	orders.On("GetOrderByGUID", testOrderGUID).Return(nil, assert.AnError)

	settings := &MockSettingsService{}
	settings.On("Load", 0).Return(testSettings(), nil)

	h := newTestHandler(orders, settings)

	rec := httptest.NewRecorder()
	h.ConfirmPay(rec, confirmPayRequest("whatever"))

	assert.Equal(t, "FAIL\r\nEvently. Order cannot be loaded", rec.Body.String())
}

func TestConfirmPayNeverMarksPaidOnForgedSignature(t *testing.T) {
	orders := &MockOrderService{}
	orders.On("GetOrderByGUID", testOrderGUID).Return(testOrder(), nil)
	orders.On("InsertOrderNote", mock.Anything).Return(nil)

	settings := &MockSettingsService{}
	settings.On("Load", 0).Return(testSettings(), nil)

	h := newTestHandler(orders, settings)

	rec := httptest.NewRecorder()
	h.ConfirmPay(rec, confirmPayRequest("forged"))

	assert.Equal(t, "FAIL\r\nEvently. Invalid order data", rec.Body.String())
	orders.AssertNotCalled(t, "MarkPaid", mock.Anything)
	orders.AssertCalled(t, "InsertOrderNote", mock.Anything)
}

// authed stands in for the OIDC middleware, which stores the verified subject
// in the request context before the handler runs.
func authed(req *http.Request, userID string) *http.Request {
	return req.WithContext(auth.WithUserID(req.Context(), userID))
}

func payRouter(h *api.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/api/v1/payanyway/pay/{orderId}", h.Pay)
	r.Get("/api/v1/payanyway/pay/{orderId}/qr", h.PayQR)
	return r
}

func TestPayRendersAutoSubmitForm(t *testing.T) {
	orders := &MockOrderService{}
	orders.On("GetOrderByGUID", testOrderGUID).Return(testOrder(), nil)

	settings := &MockSettingsService{}
	settings.On("Load", 0).Return(testSettings(), nil)

	h := newTestHandler(orders, settings)
	r := payRouter(h)

	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/payanyway/pay/"+testOrderGUID, nil), "7")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `action="https://www.moneta.ru/assistant.htm"`)
	assert.Contains(t, body, `name="MNT_SIGNATURE"`)
	assert.Contains(t, body, `name="MNT_AMOUNT" value="100.00"`)
	assert.Contains(t, body, `name="MNT_SUCCESS_URL" value="https://shop.example.com/payanyway/success"`)
}

func TestPayRejectsSelfMintedToken(t *testing.T) {
	orders := &MockOrderService{}
	settings := &MockSettingsService{}

	h := newTestHandler(orders, settings)
	r := payRouter(h)

	// A bearer token the caller signed themselves carries no verified subject.
	// Identity comes from the middleware-populated context only, so the raw
	// header must not open the ownership check.
	forged := "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9." +
		base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"7"}`)) +
		".AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payanyway/pay/"+testOrderGUID, nil)
	req.Header.Set("Authorization", "Bearer "+forged)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "MNT_SIGNATURE")
	orders.AssertNotCalled(t, "GetOrderByGUID", mock.Anything)
}

func TestPayRejectsForeignOrder(t *testing.T) {
	orders := &MockOrderService{}
	orders.On("GetOrderByGUID", testOrderGUID).Return(testOrder(), nil)

	settings := &MockSettingsService{}
	settings.On("Load", 0).Return(testSettings(), nil)

	h := newTestHandler(orders, settings)
	r := payRouter(h)

	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/payanyway/pay/"+testOrderGUID, nil), "someone-else")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPayQRServesPNG(t *testing.T) {
	orders := &MockOrderService{}
	orders.On("GetOrderByGUID", testOrderGUID).Return(testOrder(), nil)

	settings := &MockSettingsService{}
	settings.On("Load", 0).Return(testSettings(), nil)

	h := newTestHandler(orders, settings)
	r := payRouter(h)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/payanyway/pay/"+testOrderGUID+"/qr", nil), "7")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, rec.Body.Bytes()[:4])
}

func TestSuccessRedirectsToCheckoutCompleted(t *testing.T) {
	orders := &MockOrderService{}
	orders.On("GetOrderByGUID", testOrderGUID).Return(testOrder(), nil)

	h := newTestHandler(orders, &MockSettingsService{})

	req := httptest.NewRequest(http.MethodGet, "/payanyway/success?MNT_TRANSACTION_ID="+testOrderGUID, nil)
	rec := httptest.NewRecorder()
	h.Success(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://shop.example.com/checkout/completed?orderId="+testOrderGUID, rec.Header().Get("Location"))
}

func TestSuccessFallsBackToHome(t *testing.T) {
	h := newTestHandler(&MockOrderService{}, &MockSettingsService{})

	req := httptest.NewRequest(http.MethodGet, "/payanyway/success?MNT_TRANSACTION_ID=bogus", nil)
	rec := httptest.NewRecorder()
	h.Success(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://shop.example.com/", rec.Header().Get("Location"))
}

func TestCancelRedirectsToOrderDetails(t *testing.T) {
	orders := &MockOrderService{}
	orders.On("GetOrderByGUID", testOrderGUID).Return(testOrder(), nil)

	h := newTestHandler(orders, &MockSettingsService{})

	req := httptest.NewRequest(http.MethodGet, "/payanyway/cancel?MNT_TRANSACTION_ID="+testOrderGUID, nil)
	rec := httptest.NewRecorder()
	h.Cancel(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://shop.example.com/orders/"+testOrderGUID, rec.Header().Get("Location"))
}

func TestReturnRedirectsHome(t *testing.T) {
	h := newTestHandler(&MockOrderService{}, &MockSettingsService{})

	req := httptest.NewRequest(http.MethodGet, "/payanyway/return", nil)
	rec := httptest.NewRecorder()
	h.Return(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://shop.example.com/", rec.Header().Get("Location"))
}

func TestSuccessFallbackDoesNotLookupMalformedGUID(t *testing.T) {
	orders := &MockOrderService{}
	h := newTestHandler(orders, &MockSettingsService{})

	req := httptest.NewRequest(http.MethodGet, "/payanyway/success", nil)
	rec := httptest.NewRecorder()
	h.Success(rec, req)

	orders.AssertNotCalled(t, "GetOrderByGUID", mock.Anything)
}
