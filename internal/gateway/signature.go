package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignCallback computes the hex HMAC-SHA256 over "orderID|paymentID" with the
// gateway key secret. The gateway issues the same signature to the client on
// a successful checkout redirect.
func SignCallback(keySecret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCallbackSignature checks a synchronous-verification signature in
// constant time
func VerifyCallbackSignature(keySecret, orderID, paymentID, signature string) bool {
	if signature == "" {
		return false
	}
	expected := SignCallback(keySecret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignWebhookBody computes the hex HMAC-SHA256 over a raw webhook body with
// the shared app secret
func SignWebhookBody(webhookSecret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks a webhook body signature in constant time.
// It must run against the raw bytes before any JSON parsing.
func VerifyWebhookSignature(webhookSecret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected := SignWebhookBody(webhookSecret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
