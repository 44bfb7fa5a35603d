package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusSucceeded RefundStatus = "succeeded"
	RefundStatusFailed    RefundStatus = "failed"
)

// Refund references a payin by id only; the payin entity stays owned
// by the ledger.
type Refund struct {
	ID        string
	PayinID   string
	Amount    decimal.Decimal
	Status    RefundStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

var refundTransitions = map[RefundStatus][]RefundStatus{
	RefundStatusPending: {RefundStatusSucceeded, RefundStatusFailed},
}

func CanTransitionRefund(from, to RefundStatus) bool {
	for _, allowed := range refundTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Reserves reports whether a refund in this status counts against the
// payin's refundable balance. Failed refunds release their amount.
func (s RefundStatus) Reserves() bool {
	return s == RefundStatusPending || s == RefundStatusSucceeded
}

// RemainingRefundable returns how much of the payin amount is still
// refundable given the refunds recorded so far.
func RemainingRefundable(payin *Payment, refunds []*Refund) decimal.Decimal {
	remaining := payin.Amount
	for _, r := range refunds {
		if r.Status.Reserves() {
			remaining = remaining.Sub(r.Amount)
		}
	}
	return remaining
}
