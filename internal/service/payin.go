// Package service holds the request-facing façades for payins,
// payouts, and refunds. Each validates its own business rules and
// delegates every state change to the ledger.
package service

import (
	"context"
	"fmt"

	"github.com/finbridge/payment-gateway/internal/domain"
	"github.com/finbridge/payment-gateway/internal/ledger"
)

type paymentLedger interface {
	CreatePayment(ctx context.Context, params ledger.CreateParams) (*domain.Payment, error)
	GetPayment(ctx context.Context, id string) (*domain.Payment, error)
	Transition(ctx context.Context, id string, target domain.PaymentStatus) (*domain.Payment, error)
}

type PayinService struct {
	ledger paymentLedger
}

func NewPayinService(l paymentLedger) *PayinService {
	return &PayinService{ledger: l}
}

func (s *PayinService) Create(ctx context.Context, amount, currency, callbackURL string) (*domain.Payment, error) {
	p, err := s.ledger.CreatePayment(ctx, ledger.CreateParams{
		Kind:        domain.PaymentKindPayin,
		Amount:      amount,
		Currency:    currency,
		CallbackURL: callbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("payin.Create: %w", err)
	}
	return p, nil
}

func (s *PayinService) Get(ctx context.Context, id string) (*domain.Payment, error) {
	p, err := s.ledger.GetPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("payin.Get: %w", err)
	}
	if p.Kind != domain.PaymentKindPayin {
		return nil, fmt.Errorf("payin.Get: %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

// Cancel moves a pending payin to canceled. The ledger re-checks the
// transition atomically, so a concurrent cancel or capture loses
// cleanly rather than double-applying.
func (s *PayinService) Cancel(ctx context.Context, id string) (*domain.Payment, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("payin.Cancel: %w", err)
	}

	if p.Status != domain.PaymentStatusPending {
		return nil, fmt.Errorf("payin.Cancel: status %s: %w", p.Status, domain.ErrNotCancelable)
	}

	canceled, err := s.ledger.Transition(ctx, id, domain.PaymentStatusCanceled)
	if err != nil {
		return nil, fmt.Errorf("payin.Cancel: %w", err)
	}
	return canceled, nil
}
