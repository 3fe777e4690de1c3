package api

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ms-payanyway/internal/auth"
	"ms-payanyway/internal/config"
	"ms-payanyway/internal/logger"
	"ms-payanyway/internal/models"
	"ms-payanyway/internal/payanyway"
)

// OrderService is the order-side collaborator contract: lookup by the
// correlation GUID, audit notes, and the guarded paid transition.
type OrderService interface {
	GetOrderByGUID(ctx context.Context, guid string) (*models.Order, error)
	InsertOrderNote(ctx context.Context, note models.OrderNote) error
	CanMarkPaid(order *models.Order) bool
	MarkPaid(ctx context.Context, order *models.Order) error
}

type SettingsService interface {
	Load(ctx context.Context, storeID int) (models.PaymentSettings, error)
}

type Handler struct {
	Orders   OrderService
	Settings SettingsService
	Verifier *payanyway.Verifier
	Method   payanyway.Method
	Logger   *logger.Logger

	siteURL    string
	systemName string
	storeScope int
}

func NewHandler(orders OrderService, settings SettingsService, gw config.GatewayConfig, log *logger.Logger) *Handler {
	return &Handler{
		Orders:     orders,
		Settings:   settings,
		Verifier:   payanyway.NewVerifier(orders, log),
		Logger:     log,
		siteURL:    strings.TrimRight(gw.SiteURL, "/") + "/",
		systemName: gw.SystemName,
		storeScope: gw.StoreScope,
	}
}

// ConfirmPay is the gateway's asynchronous payment notification. The gateway
// parses the response body, not the HTTP status, so every outcome is a 200
// with the two-line plaintext acknowledgement.
func (h *Handler) ConfirmPay(w http.ResponseWriter, r *http.Request) {
	cb := payanyway.ParseCallback(r.URL.Query())
	h.Logger.LogCallback(cb.TransactionID, fmt.Sprintf("ConfirmPay: operation %s", cb.OperationID))

	settings, err := h.Settings.Load(r.Context(), h.storeScope)
	if err != nil {
		h.respond(w, payanyway.FailAck("Settings cannot be loaded"))
		return
	}

	verified, err := h.Verifier.Verify(r.Context(), settings, cb)
	if err != nil {
		h.respond(w, payanyway.FailAck(ackReason(err)))
		return
	}

	// Idempotent: a repeat callback for an already-paid order is a success
	// without a second transition.
	if h.Orders.CanMarkPaid(verified.Order) {
		if err := h.Orders.MarkPaid(r.Context(), verified.Order); err != nil {
			h.Logger.Error("CALLBACK", fmt.Sprintf("ConfirmPay: failed to mark order %s as paid: %v", verified.Order.OrderID, err))
			h.respond(w, payanyway.FailAck("Order cannot be marked as paid"))
			return
		}
	}

	h.respond(w, payanyway.SuccessAck("Your order has been paid"))
}

func ackReason(err error) string {
	switch {
	case errors.Is(err, payanyway.ErrInvalidOrderGUID):
		return "Invalid order GUID"
	case errors.Is(err, payanyway.ErrOrderNotFound):
		return "Order cannot be loaded"
	default:
		return "Invalid order data"
	}
}

func (h *Handler) respond(w http.ResponseWriter, ack payanyway.Ack) {
	if !ack.OK {
		h.Logger.Error("CALLBACK", fmt.Sprintf("PayAnyWay. %s", ack.Reason))
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(ack.Body(h.systemName)))
}

var payFormTemplate = template.Must(template.New("payForm").Parse(`<!DOCTYPE html>
<html>
<head><title>Redirecting to payment...</title></head>
<body onload="document.forms['PayPoint'].submit()">
<form name="PayPoint" method="post" action="{{.Action}}">
{{- range .Fields}}
<input type="hidden" name="{{.Name}}" value="{{.Value}}">
{{- end}}
<noscript><input type="submit" value="Pay"></noscript>
</form>
</body>
</html>`))

// Pay renders the auto-submitting redirect form for a pending order owned by
// the caller.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	order, settings, ok := h.payContext(w, r)
	if !ok {
		return
	}

	req := payanyway.NewPaymentRequest(settings, order.UserID, order.OrderID, order.Total, order.CurrencyCode)

	data := struct {
		Action string
		Fields []payanyway.FormField
	}{
		Action: payanyway.AssistantEndpoint(settings.DemoArea),
		Fields: payanyway.RedirectForm(req, h.siteURL),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := payFormTemplate.Execute(w, data); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Pay: failed to render redirect form: %v", err))
		return
	}
	h.Logger.LogPayment("REDIRECT", order.OrderID, fmt.Sprintf("redirect form emitted, demo=%v test=%v", settings.DemoArea, settings.TestMode))
}

// PayQR serves the payment link for the order as a PNG QR code.
func (h *Handler) PayQR(w http.ResponseWriter, r *http.Request) {
	order, settings, ok := h.payContext(w, r)
	if !ok {
		return
	}

	req := payanyway.NewPaymentRequest(settings, order.UserID, order.OrderID, order.Total, order.CurrencyCode)

	png, err := payanyway.PaymentLinkQR(req, settings.DemoArea, h.siteURL, 256)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("PayQR: failed to encode QR: %v", err))
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// payContext resolves and authorizes the order for the customer-facing pay
// endpoints, writing the HTTP error itself when a step fails.
func (h *Handler) payContext(w http.ResponseWriter, r *http.Request) (*models.Order, models.PaymentSettings, bool) {
	var none models.PaymentSettings

	// The OIDC middleware verifies the token and stores the subject; a raw
	// Authorization header is never consulted here.
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: no verified subject", http.StatusUnauthorized)
		return nil, none, false
	}

	orderID := chi.URLParam(r, "orderId")
	orderGUID, err := uuid.Parse(orderID)
	if err != nil {
		http.Error(w, "Invalid order GUID", http.StatusBadRequest)
		return nil, none, false
	}

	order, err := h.Orders.GetOrderByGUID(r.Context(), orderGUID.String())
	if err != nil || order == nil {
		http.Error(w, "Order not found", http.StatusNotFound)
		return nil, none, false
	}

	if order.UserID != userID {
		h.Logger.LogSecurity("OWNERSHIP", fmt.Sprintf("user %s attempted to pay order %s owned by %s", userID, order.OrderID, order.UserID))
		http.Error(w, "Order does not belong to the caller", http.StatusForbidden)
		return nil, none, false
	}

	if order.PaymentStatus != models.PaymentPending {
		http.Error(w, "Order is not awaiting payment", http.StatusConflict)
		return nil, none, false
	}

	if !h.Method.CanRePostPayment(order) {
		http.Error(w, "Order was just placed, retry shortly", http.StatusConflict)
		return nil, none, false
	}

	settings, err := h.Settings.Load(r.Context(), h.storeScope)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Pay: failed to load settings: %v", err))
		http.Error(w, "Settings cannot be loaded", http.StatusInternalServerError)
		return nil, none, false
	}

	return order, settings, true
}

// Success is where the gateway sends the customer's browser after payment.
// The paid transition itself only ever happens through ConfirmPay.
func (h *Handler) Success(w http.ResponseWriter, r *http.Request) {
	order := h.resolveBrowserReturn(r)
	if order == nil {
		http.Redirect(w, r, h.siteURL, http.StatusFound)
		return
	}
	http.Redirect(w, r, h.siteURL+"checkout/completed?orderId="+url.QueryEscape(order.OrderID), http.StatusFound)
}

// Cancel lands the customer back on the order after an abandoned payment.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	order := h.resolveBrowserReturn(r)
	if order == nil {
		http.Redirect(w, r, h.siteURL, http.StatusFound)
		return
	}
	http.Redirect(w, r, h.siteURL+"orders/"+url.PathEscape(order.OrderID), http.StatusFound)
}

func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.siteURL, http.StatusFound)
}

func (h *Handler) resolveBrowserReturn(r *http.Request) *models.Order {
	orderGUID, err := uuid.Parse(r.URL.Query().Get("MNT_TRANSACTION_ID"))
	if err != nil {
		return nil
	}
	order, err := h.Orders.GetOrderByGUID(r.Context(), orderGUID.String())
	if err != nil {
		return nil
	}
	return order
}
