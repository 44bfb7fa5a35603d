package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/finbridge/payment-gateway/internal/domain"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondAppError(w http.ResponseWriter, appErr *AppError) {
	RespondJSON(w, appErr.Status, map[string]*APIError{
		"error": {Code: appErr.Code, Message: appErr.Message},
	})
}

// RespondDomainError translates ledger/service failures into the HTTP
// taxonomy: validation 400, not found 404, conflicts 409. Anything
// unrecognized is a 500 and gets logged.
func RespondDomainError(w http.ResponseWriter, err error) {
	var appErr *AppError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrResourceNotFound
	case errors.Is(err, domain.ErrInvalidAmount):
		appErr = ErrInvalidAmount
	case errors.Is(err, domain.ErrInvalidCurrency):
		appErr = ErrInvalidCurrency
	case errors.Is(err, domain.ErrInvalidDestination):
		appErr = ErrInvalidDestination
	case errors.Is(err, domain.ErrRefundExceedsBalance):
		appErr = ErrRefundExceedsBalance
	case errors.Is(err, domain.ErrNotCancelable):
		appErr = ErrNotCancelable
	case errors.Is(err, domain.ErrNotRefundable):
		appErr = ErrNotRefundable
	case errors.Is(err, domain.ErrInvalidTransition):
		appErr = ErrInvalidTransition
	case errors.Is(err, domain.ErrInvalidSignature):
		appErr = ErrInvalidSignature
	default:
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr)
}
