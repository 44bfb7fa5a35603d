package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finbridge/payment-gateway/internal/domain"
)

const testSecret = "test_webhook"

func TestVerifier(t *testing.T) {
	body := []byte(`{"id":"evt_1","type":"payment.updated"}`)

	tests := []struct {
		name      string
		body      []byte
		signature string
		wantErr   bool
	}{
		{"valid signature", body, Sign(body, testSecret), false},
		{"empty body valid signature", []byte{}, Sign(nil, testSecret), false},
		{"missing signature", body, "", true},
		{"wrong signature", body, Sign(body, "other-secret"), true},
		{"not hex", body, "bad", true},
		{"truncated digest", body, Sign(body, testSecret)[:32], true},
		{"signature of different body", body, Sign([]byte(`{}`), testSecret), true},
	}

	v := NewVerifier(testSecret)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Verify(tc.body, tc.signature)
			if tc.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidSignature)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVerifier_ExactBytesMatter(t *testing.T) {
	v := NewVerifier(testSecret)

	// same JSON value, different serialization: the MAC must not match
	signed := []byte(`{"a": 1}`)
	reencoded := []byte(`{"a":1}`)

	sig := Sign(signed, testSecret)
	assert.NoError(t, v.Verify(signed, sig))
	assert.ErrorIs(t, v.Verify(reencoded, sig), domain.ErrInvalidSignature)
}
