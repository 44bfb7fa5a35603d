package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidAmount        = errors.New("amount must be a positive decimal")
	ErrInvalidCurrency      = errors.New("invalid currency")
	ErrInvalidDestination   = errors.New("invalid destination")
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrNotCancelable        = errors.New("payin is not pending")
	ErrNotRefundable        = errors.New("payin cannot be refunded")
	ErrRefundExceedsBalance = errors.New("refund exceeds refundable balance")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
)
