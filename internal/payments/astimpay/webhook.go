package astimpay

import (
	"crypto/hmac"
	"strings"
)

// VerifyWebhookSecret compares the API-KEY header of an incoming notification
// against the configured merchant key in constant time. Deliveries that fail
// this check must be rejected before any order lookup happens.
func VerifyWebhookSecret(header, secret string) bool {
	header = strings.TrimSpace(header)
	secret = strings.TrimSpace(secret)
	if header == "" || secret == "" {
		return false
	}
	return hmac.Equal([]byte(header), []byte(secret))
}
