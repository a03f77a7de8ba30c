// Package webhook verifies and dispatches OpenMoove Partner API webhooks.
//
// The vendor signs every delivery with HMAC-SHA256 over the raw request body
// and retries non-2xx responses on an exponential schedule, so receivers
// must verify the signature before trusting a payload and must only
// acknowledge deliveries they have fully processed.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the hex-encoded HMAC-SHA256 of the request body.
const SignatureHeader = "X-Moove-Signature"

// Signer computes and verifies webhook signatures. The secret is kept as a
// byte slice so it can be wiped.
type Signer struct {
	secret []byte
}

// NewSigner creates a signer for the shared webhook secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the signature header value for a body.
func (s *Signer) Sign(body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature header value against the body in constant time.
func (s *Signer) Verify(body []byte, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// Wipe clears the secret from memory.
func (s *Signer) Wipe() {
	if s == nil {
		return
	}
	for i := range s.secret {
		s.secret[i] = 0
	}
}
