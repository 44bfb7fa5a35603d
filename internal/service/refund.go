package service

import (
	"context"
	"fmt"

	"github.com/finbridge/payment-gateway/internal/domain"
)

type refundLedger interface {
	GetPayment(ctx context.Context, id string) (*domain.Payment, error)
	CreateRefund(ctx context.Context, payinID string, amount string) (*domain.Refund, error)
	GetRefund(ctx context.Context, id string) (*domain.Refund, error)
}

type RefundService struct {
	ledger refundLedger
}

func NewRefundService(l refundLedger) *RefundService {
	return &RefundService{ledger: l}
}

// Create records a refund against a payin. Eligibility is checked here
// for a clean error, and again inside the ledger's critical section
// together with the refundable-balance invariant.
func (s *RefundService) Create(ctx context.Context, payinID, amount string) (*domain.Refund, error) {
	payin, err := s.ledger.GetPayment(ctx, payinID)
	if err != nil {
		return nil, fmt.Errorf("refund.Create: %w", err)
	}

	if payin.Kind != domain.PaymentKindPayin || !payin.Status.Refundable() {
		return nil, fmt.Errorf("refund.Create: payin %s in status %s: %w", payinID, payin.Status, domain.ErrNotRefundable)
	}

	r, err := s.ledger.CreateRefund(ctx, payinID, amount)
	if err != nil {
		return nil, fmt.Errorf("refund.Create: %w", err)
	}
	return r, nil
}

func (s *RefundService) Get(ctx context.Context, id string) (*domain.Refund, error) {
	r, err := s.ledger.GetRefund(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("refund.Get: %w", err)
	}
	return r, nil
}
