package payanyway

import (
	"strings"

	"ms-payanyway/internal/models"
)

// PaymentRequest is one outbound redirect payment, built per checkout and
// immediately serialized into form fields. The hash code it was signed with
// is never part of the emitted fields.
type PaymentRequest struct {
	MerchantID    string
	TransactionID string
	CurrencyCode  string
	Amount        string
	SubscriberID  string
	TestMode      bool
	Signature     string
}

// NewPaymentRequest assembles the outbound request and computes its
// signature over the gateway's outbound field order:
// merchant, transaction, currency, amount, test mode, subscriber, hash code.
func NewPaymentRequest(settings models.PaymentSettings, subscriberID, orderGUID string, total float64, currencyCode string) PaymentRequest {
	req := PaymentRequest{
		MerchantID:    settings.MerchantID,
		TransactionID: orderGUID,
		CurrencyCode:  strings.ToUpper(currencyCode),
		Amount:        FormatAmount(total),
		SubscriberID:  subscriberID,
		TestMode:      settings.TestMode,
	}

	req.Signature = Sign(
		req.MerchantID,
		req.TransactionID,
		req.CurrencyCode,
		req.Amount,
		BoolField(req.TestMode),
		req.SubscriberID,
		settings.HashCode,
	)

	return req
}

// InboundSignature recomputes the digest the gateway signs its callback with.
// The inbound field order differs from the outbound one: the operation id
// slots in after the transaction id and the test-mode flag moves behind the
// subscriber id. Amount and subscriber come from the request built off the
// order's own record, never from callback parameters.
func InboundSignature(req PaymentRequest, operationID, hashCode string) string {
	return Sign(
		req.MerchantID,
		req.TransactionID,
		operationID,
		req.Amount,
		strings.ToUpper(req.CurrencyCode),
		req.SubscriberID,
		BoolField(req.TestMode),
		hashCode,
	)
}
