package payanyway_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ms-payanyway/internal/models"
	"ms-payanyway/internal/payanyway"
)

const testOrderGUID = "11111111-1111-1111-1111-111111111111"

func testSettings() models.PaymentSettings {
	return models.PaymentSettings{
		MerchantID: "1234",
		HashCode:   "s3cr3t",
		TestMode:   true,
	}
}

func TestNewPaymentRequestFields(t *testing.T) {
	req := payanyway.NewPaymentRequest(testSettings(), "7", testOrderGUID, 100.00, "rub")

	assert.Equal(t, "1234", req.MerchantID)
	assert.Equal(t, testOrderGUID, req.TransactionID)
	assert.Equal(t, "RUB", req.CurrencyCode, "currency is upper-cased on build")
	assert.Equal(t, "100.00", req.Amount)
	assert.Equal(t, "7", req.SubscriberID)
	assert.True(t, req.TestMode)
}

func TestOutboundSignatureMatchesGatewayContract(t *testing.T) {
	req := payanyway.NewPaymentRequest(testSettings(), "7", testOrderGUID, 100.00, "RUB")

	expected := md5Hex("1234" + testOrderGUID + "RUB" + "100.00" + "True" + "7" + "s3cr3t")
	assert.Equal(t, expected, req.Signature)
}

func TestOutboundSignatureIsDeterministic(t *testing.T) {
	first := payanyway.NewPaymentRequest(testSettings(), "7", testOrderGUID, 100.00, "RUB")
	second := payanyway.NewPaymentRequest(testSettings(), "7", testOrderGUID, 100.00, "RUB")

	assert.Equal(t, first, second)
}

func TestInboundSignatureUsesInboundFieldOrder(t *testing.T) {
	req := payanyway.NewPaymentRequest(testSettings(), "7", testOrderGUID, 100.00, "RUB")

	digest := payanyway.InboundSignature(req, "op1", "s3cr3t")

	expected := md5Hex("1234" + testOrderGUID + "op1" + "100.00" + "RUB" + "7" + "True" + "s3cr3t")
	assert.Equal(t, expected, digest)
	assert.NotEqual(t, req.Signature, digest, "inbound and outbound field orders differ")
}
