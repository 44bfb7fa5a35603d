package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken     = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken     = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid"}
	ErrInvalidSignature = &AppError{http.StatusUnauthorized, "INVALID_SIGNATURE", "Webhook signature is invalid"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInvalidAmount        = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be a positive decimal string"}
	ErrInvalidCurrency      = &AppError{http.StatusBadRequest, "INVALID_CURRENCY", "Currency is not a recognized ISO 4217 code"}
	ErrInvalidDestination   = &AppError{http.StatusBadRequest, "INVALID_DESTINATION", "Destination is invalid"}
	ErrRefundExceedsBalance = &AppError{http.StatusBadRequest, "REFUND_EXCEEDS_BALANCE", "Refund exceeds the remaining refundable balance"}
	ErrInvalidTransition    = &AppError{http.StatusConflict, "INVALID_TRANSITION", "Illegal payment state transition"}
	ErrNotCancelable        = &AppError{http.StatusConflict, "NOT_CANCELABLE", "Only pending payins can be canceled"}
	ErrNotRefundable        = &AppError{http.StatusConflict, "NOT_REFUNDABLE", "Payin cannot be refunded in its current state"}
)
