package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// OrderSignature computes the order gateway's payment signature:
// hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func OrderSignature(orderID, paymentID, secret string) string {
	return hex.EncodeToString(computeHMAC([]byte(orderID+"|"+paymentID), []byte(secret), sha256.New))
}

// VerifyOrderSignature requires an exact byte match with the expected
// signature; case and surrounding whitespace are significant.
func VerifyOrderSignature(orderID, paymentID, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := OrderSignature(orderID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func computeHMAC(payload, secret []byte, hashFunc func() hash.Hash) []byte {
	mac := hmac.New(hashFunc, secret)
	mac.Write(payload)
	return mac.Sum(nil)
}
