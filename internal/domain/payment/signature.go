// Package payment reconciles PayOS payment webhooks with orders.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Verifier checks webhook signatures: base64(HMAC-SHA256(checksumKey, data))
// where data is the raw bytes of the "data" member as received.
type Verifier struct {
	key []byte
}

// NewVerifier creates a verifier for the shared checksum key.
func NewVerifier(checksumKey string) *Verifier {
	return &Verifier{key: []byte(checksumKey)}
}

// Sign returns the signature of data.
func (v *Verifier) Sign(data []byte) string {
	mac := hmac.New(sha256.New, v.key)
	mac.Write(data)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify compares in constant time.
func (v *Verifier) Verify(data []byte, signature string) bool {
	if len(v.key) == 0 || signature == "" {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, v.key)
	mac.Write(data)
	return hmac.Equal(mac.Sum(nil), want)
}
