package payanyway

import (
	"errors"
	"time"

	"ms-payanyway/internal/models"
)

// The assistant protocol is redirect-only. Everything the richer payment
// APIs offer fails hard with a fixed message, never touching order state.
var (
	ErrCaptureNotSupported   = errors.New("Capture method not supported")
	ErrRefundNotSupported    = errors.New("Refund method not supported")
	ErrVoidNotSupported      = errors.New("Void method not supported")
	ErrRecurringNotSupported = errors.New("Recurring payment not supported")
)

type RecurringPaymentType string

const RecurringNotSupported RecurringPaymentType = "not_supported"

type MethodType string

const MethodRedirection MethodType = "redirection"

// Capabilities is the fixed capability table of this gateway mode.
type Capabilities struct {
	Capture       bool
	Refund        bool
	PartialRefund bool
	Void          bool
	Recurring     RecurringPaymentType
	MethodType    MethodType
	SkipInfo      bool
}

// rePostDelay is how long after order creation a redirect may be re-attempted.
const rePostDelay = 5 * time.Second

// Method is the PayAnyWay payment method: one variant, one capability table.
type Method struct{}

func (Method) Capabilities() Capabilities {
	return Capabilities{
		Capture:       false,
		Refund:        false,
		PartialRefund: false,
		Void:          false,
		Recurring:     RecurringNotSupported,
		MethodType:    MethodRedirection,
		SkipInfo:      false,
	}
}

// ProcessPayment only moves the order into the pending state; money moves
// later, attested by the signed callback.
func (Method) ProcessPayment() models.PaymentStatus {
	return models.PaymentPending
}

func (Method) Capture() error {
	return ErrCaptureNotSupported
}

func (Method) Refund() error {
	return ErrRefundNotSupported
}

func (Method) Void() error {
	return ErrVoidNotSupported
}

func (Method) ProcessRecurring() error {
	return ErrRecurringNotSupported
}

func (Method) CancelRecurring() error {
	return ErrRecurringNotSupported
}

// HidePaymentMethod reports whether the method should be hidden at checkout.
func (Method) HidePaymentMethod(cartTotal float64) bool {
	return false
}

// CalculateAdditionalFee applies the configured handling fee: a percentage of
// the cart total or a fixed amount.
func (Method) CalculateAdditionalFee(cartTotal float64, settings models.PaymentSettings) float64 {
	if settings.AdditionalFeePercentage {
		return cartTotal * settings.AdditionalFee / 100
	}
	return settings.AdditionalFee
}

// CanRePostPayment reports whether the customer may retry the redirect for an
// order that was placed but not completed. A freshly created order gets a
// short grace period first.
func (Method) CanRePostPayment(order *models.Order) bool {
	return time.Since(order.CreatedAt) >= rePostDelay
}
