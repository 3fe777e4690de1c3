package payanyway

import (
	"net/url"
	"strings"
)

const (
	AssistantURL     = "https://www.moneta.ru/assistant.htm"
	DemoAssistantURL = "https://demo.moneta.ru/assistant.htm"
)

// Relative callback paths appended to the site base URL.
const (
	cancelPath  = "payanyway/cancel"
	successPath = "payanyway/success"
	returnPath  = "payanyway/return"
)

// FormField is one name/value pair of the auto-submitting redirect form.
// Order is preserved because the form is part of the external contract.
type FormField struct {
	Name  string
	Value string
}

// AssistantEndpoint returns the gateway URL the form posts to. The demo area
// is a separate host, not a flag on the production one.
func AssistantEndpoint(demoArea bool) string {
	if demoArea {
		return DemoAssistantURL
	}
	return AssistantURL
}

// RedirectForm emits the ten MNT_* fields of the outbound redirect. The three
// callback URLs are derived from siteURL, which is normalized to end with a
// single slash the way a store-location accessor would return it.
func RedirectForm(req PaymentRequest, siteURL string) []FormField {
	base := normalizeSiteURL(siteURL)

	return []FormField{
		{"MNT_ID", req.MerchantID},
		{"MNT_TRANSACTION_ID", req.TransactionID},
		{"MNT_CURRENCY_CODE", req.CurrencyCode},
		{"MNT_AMOUNT", req.Amount},
		{"MNT_TEST_MODE", BoolField(req.TestMode)},
		{"MNT_SUBSCRIBER_ID", req.SubscriberID},
		{"MNT_SIGNATURE", req.Signature},
		{"MNT_FAIL_URL", base + cancelPath},
		{"MNT_SUCCESS_URL", base + successPath},
		{"MNT_RETURN_URL", base + returnPath},
	}
}

// PaymentLink renders the same field set as a GET URL against the assistant
// endpoint. MONETA.Assistant accepts both; the link form is what the QR code
// encodes.
func PaymentLink(req PaymentRequest, demoArea bool, siteURL string) string {
	values := url.Values{}
	for _, f := range RedirectForm(req, siteURL) {
		values.Set(f.Name, f.Value)
	}
	return AssistantEndpoint(demoArea) + "?" + values.Encode()
}

func normalizeSiteURL(siteURL string) string {
	if siteURL == "" {
		return "/"
	}
	return strings.TrimRight(siteURL, "/") + "/"
}
