package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/finbridge/payment-gateway/internal/handler"
)

// Auth checks the static bearer credential on every API request. The
// comparison is constant time so response latency leaks nothing about
// how much of the token matched.
func Auth(token string) func(http.Handler) http.Handler {
	expected := []byte(token)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				handler.RespondAppError(w, handler.ErrMissingToken)
				return
			}

			provided, found := strings.CutPrefix(header, "Bearer ")
			if !found || provided == "" {
				handler.RespondAppError(w, handler.ErrInvalidToken)
				return
			}

			if subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
				handler.RespondAppError(w, handler.ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
