package payanyway

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
)

// Sign computes the MONETA.Assistant integrity digest: MD5 over the UTF-8
// concatenation of the fields in the exact order given, no separators,
// lowercase hex. Field order is part of the wire contract with the gateway,
// so callers pass the outbound and inbound orders explicitly.
//
// MD5 is what the gateway verifies against; it is kept for compatibility,
// not as a security choice.
func Sign(fields ...string) string {
	h := md5.New()
	for _, f := range fields {
		h.Write([]byte(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// DigestEqual compares two hex digests the way the gateway does: value match,
// casing ignored. Some gateway builds send the signature uppercased.
func DigestEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}

// FormatAmount renders an order total as the gateway expects it: fixed two
// decimal digits, '.' separator regardless of locale. The same rendering goes
// into the form field and into both signature field orders.
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

// BoolField renders a flag the way MNT_TEST_MODE has historically been
// transmitted and signed ("True"/"False"). Live merchants verify against this
// rendering, so it is load-bearing.
func BoolField(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
