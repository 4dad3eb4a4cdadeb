package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the provider's HMAC of the raw request body.
const SignatureHeader = "X-Razorpay-Signature"

// SignPayload returns the hex HMAC-SHA256 of payload under secret.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares signature against the expected HMAC in constant
// time. Empty secrets never verify.
func VerifySignature(payload []byte, signature, secret string) error {
	if secret == "" || signature == "" {
		return ErrInvalidWebhookSignature
	}
	expected := SignPayload(payload, secret)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidWebhookSignature
	}
	return nil
}
