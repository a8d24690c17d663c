package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifyPaymentSignature reports whether signature is the hex HMAC-SHA256 of
// "paymentID|subscriptionID" keyed with secret.
func VerifyPaymentSignature(paymentID, subscriptionID, signature, secret string) bool {
	sig := strings.TrimSpace(signature)
	if sig == "" || secret == "" || paymentID == "" || subscriptionID == "" {
		return false
	}

	decoded, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(paymentID + "|" + subscriptionID))
	return hmac.Equal(mac.Sum(nil), decoded)
}

// SignPayment computes the signature VerifyPaymentSignature accepts.
func SignPayment(paymentID, subscriptionID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(paymentID + "|" + subscriptionID))
	return hex.EncodeToString(mac.Sum(nil))
}
