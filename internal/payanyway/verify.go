package payanyway

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"ms-payanyway/internal/logger"
	"ms-payanyway/internal/models"
)

var (
	ErrInvalidOrderGUID  = errors.New("invalid order GUID")
	ErrOrderNotFound     = errors.New("order cannot be loaded")
	ErrSignatureMismatch = errors.New("invalid order data")
)

// Callback is one inbound MONETA notification. Raw keeps every query
// parameter for the audit note; the four named fields are the ones the
// verification protocol consumes.
type Callback struct {
	TransactionID string
	OperationID   string
	Signature     string
	CurrencyCode  string
	Raw           url.Values
}

// ParseCallback pulls the semantically required parameters out of a query
// set. Currency is upper-cased on read, matching the casing rule of the
// signed string.
func ParseCallback(query url.Values) Callback {
	return Callback{
		TransactionID: query.Get("MNT_TRANSACTION_ID"),
		OperationID:   query.Get("MNT_OPERATION_ID"),
		Signature:     query.Get("MNT_SIGNATURE"),
		CurrencyCode:  strings.ToUpper(query.Get("MNT_CURRENCY_CODE")),
		Raw:           query,
	}
}

// VerifiedCallback is the proof token the state machine acts on: it exists
// only for callbacks whose signature matched the order's own record.
type VerifiedCallback struct {
	Order       *models.Order
	OperationID string
}

type OrderSource interface {
	GetOrderByGUID(ctx context.Context, guid string) (*models.Order, error)
	InsertOrderNote(ctx context.Context, note models.OrderNote) error
}

type Verifier struct {
	Orders OrderSource
	Log    *logger.Logger
}

func NewVerifier(orders OrderSource, log *logger.Logger) *Verifier {
	return &Verifier{Orders: orders, Log: log}
}

// Verify runs the full inbound pipeline: transaction id must parse as a GUID
// (no order lookup happens otherwise), the order must resolve, the raw
// parameter set is recorded as an order note whatever happens next, and the
// recomputed digest must match the supplied one. The expected digest is
// always built from the order's persisted total and customer id, so a
// callback cannot talk the system into a different amount.
func (v *Verifier) Verify(ctx context.Context, settings models.PaymentSettings, cb Callback) (*VerifiedCallback, error) {
	orderGUID, err := uuid.Parse(cb.TransactionID)
	if err != nil {
		return nil, ErrInvalidOrderGUID
	}

	order, err := v.Orders.GetOrderByGUID(ctx, orderGUID.String())
	if err != nil || order == nil {
		return nil, ErrOrderNotFound
	}

	// Audit trail first, verification second. Forged callbacks leave a note too.
	note := models.OrderNote{
		OrderID:           order.OrderID,
		Note:              formatCallbackNote(cb.Raw),
		DisplayToCustomer: false,
		CreatedAt:         time.Now().UTC(),
	}
	if err := v.Orders.InsertOrderNote(ctx, note); err != nil && v.Log != nil {
		v.Log.Warn("CALLBACK", fmt.Sprintf("failed to record callback note for order %s: %v", order.OrderID, err))
	}

	req := NewPaymentRequest(settings, order.UserID, order.OrderID, order.Total, cb.CurrencyCode)
	expected := InboundSignature(req, cb.OperationID, settings.HashCode)

	if !DigestEqual(expected, cb.Signature) {
		return nil, ErrSignatureMismatch
	}

	return &VerifiedCallback{Order: order, OperationID: cb.OperationID}, nil
}

func formatCallbackNote(raw url.Values) string {
	var sb strings.Builder
	sb.WriteString("PayAnyWay:\n")

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		sb.WriteString(k + ": " + raw.Get(k) + "\n")
	}
	return sb.String()
}
