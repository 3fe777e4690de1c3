package payanyway

import (
	"github.com/skip2/go-qrcode"
)

// PaymentLinkQR renders the GET payment link as a PNG QR code, so a checkout
// page can offer pay-by-phone next to the redirect button.
func PaymentLinkQR(req PaymentRequest, demoArea bool, siteURL string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(PaymentLink(req, demoArea, siteURL), qrcode.Medium, size)
}
