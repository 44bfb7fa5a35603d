// Package webhook holds the inbound event pipeline: signature
// verification, at-most-once deduplication, and applying verified
// events to the ledger.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/finbridge/payment-gateway/internal/domain"
)

// Verifier authenticates webhook payloads by HMAC-SHA256 over the
// exact raw request bytes. It never parses the body: JSON
// re-serialization is not byte-stable, so only the original bytes are
// trustworthy input for the MAC.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks the hex-encoded signature against the raw body. The
// comparison runs over decoded digests with hmac.Equal, so it is
// constant time; a malformed signature is rejected the same way as a
// wrong one.
func (v *Verifier) Verify(rawBody []byte, signature string) error {
	if signature == "" {
		return fmt.Errorf("Verify: missing signature: %w", domain.ErrInvalidSignature)
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("Verify: malformed signature: %w", domain.ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	if !hmac.Equal(mac.Sum(nil), provided) {
		return fmt.Errorf("Verify: %w", domain.ErrInvalidSignature)
	}
	return nil
}

// Sign returns the hex signature for a payload. Exposed for the
// signing CLI and test harnesses.
func Sign(rawBody []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}
