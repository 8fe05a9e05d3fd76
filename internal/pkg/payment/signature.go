package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign returns the checkout signature for an order and payment: the hex
// HMAC-SHA256 of "order_id|payment_id" keyed with the gateway secret.
func Sign(orderID, paymentID, secret string) string {
	return hex.EncodeToString(checkoutMAC(orderID, paymentID, secret))
}

// VerifySignature checks a checkout callback signature in constant time.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	sig := strings.TrimSpace(signature)
	if orderID == "" || paymentID == "" || sig == "" || secret == "" {
		return false
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}
	return hmac.Equal(checkoutMAC(orderID, paymentID, secret), decodedSig)
}

func checkoutMAC(orderID, paymentID, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return mac.Sum(nil)
}
