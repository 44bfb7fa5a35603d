// Package ledger owns all mutable Payment and Refund state and
// enforces the per-kind transition tables atomically per entity.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finbridge/payment-gateway/internal/domain"
)

// Store persists payments and refunds. Every mutating method is atomic
// with respect to the entity it touches: TransitionPayment checks the
// current status against the transition table and applies the change
// under a single-writer guarantee scoped to that id, and InsertRefund
// checks the refundable-balance invariant and updates the payin status
// in the same critical section.
type Store interface {
	InsertPayment(ctx context.Context, p *domain.Payment) error
	GetPayment(ctx context.Context, id string) (*domain.Payment, error)
	TransitionPayment(ctx context.Context, id string, target domain.PaymentStatus) (*domain.Payment, error)
	InsertRefund(ctx context.Context, r *domain.Refund) (*domain.Payment, error)
	GetRefund(ctx context.Context, id string) (*domain.Refund, error)
	TransitionRefund(ctx context.Context, id string, target domain.RefundStatus) (*domain.Refund, error)
}

// TransitionHook observes successful payment status changes. Used to
// fan out callback notifications; must not block.
type TransitionHook func(p *domain.Payment)

type Ledger struct {
	store  Store
	logger *slog.Logger
	hook   TransitionHook
}

func New(store Store, logger *slog.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// OnTransition registers a hook invoked after every applied payment
// transition. Call before the ledger is shared between goroutines.
func (l *Ledger) OnTransition(hook TransitionHook) {
	l.hook = hook
}

type CreateParams struct {
	Kind        domain.PaymentKind
	Amount      string
	Currency    string
	Destination *domain.Destination
	CallbackURL string
}

// CreatePayment validates the request and records a new pending
// payment. The amount string is parsed exactly; whatever the caller
// sent is what responses echo back.
func (l *Ledger) CreatePayment(ctx context.Context, params CreateParams) (*domain.Payment, error) {
	amount, err := ParseAmount(params.Amount)
	if err != nil {
		return nil, fmt.Errorf("CreatePayment: %w", err)
	}

	if !domain.ValidCurrency(params.Currency) {
		return nil, fmt.Errorf("CreatePayment: %q: %w", params.Currency, domain.ErrInvalidCurrency)
	}

	prefix := "pay"
	if params.Kind == domain.PaymentKindPayout {
		prefix = "po"
	}

	now := time.Now().UTC()
	p := &domain.Payment{
		ID:          domain.NewID(prefix),
		Kind:        params.Kind,
		Amount:      amount,
		Currency:    params.Currency,
		Status:      domain.PaymentStatusPending,
		Destination: params.Destination,
		CallbackURL: params.CallbackURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := l.store.InsertPayment(ctx, p); err != nil {
		return nil, fmt.Errorf("CreatePayment: %w", err)
	}

	l.logger.Info("payment created", "payment_id", p.ID, "kind", p.Kind, "amount", p.Amount, "currency", p.Currency)
	return p, nil
}

func (l *Ledger) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	p, err := l.store.GetPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetPayment: %w", err)
	}
	return p, nil
}

// Transition moves a payment to target under the per-kind transition
// table. An illegal move returns domain.ErrInvalidTransition without
// partial mutation.
func (l *Ledger) Transition(ctx context.Context, id string, target domain.PaymentStatus) (*domain.Payment, error) {
	p, err := l.store.TransitionPayment(ctx, id, target)
	if err != nil {
		return nil, fmt.Errorf("Transition: %w", err)
	}

	l.logger.Info("payment transitioned", "payment_id", p.ID, "status", p.Status)
	if l.hook != nil {
		l.hook(p)
	}
	return p, nil
}

// CreateRefund records a pending refund against a payin. The store
// atomically enforces that pending plus succeeded refunds never exceed
// the payin amount, and moves the payin to partially_refunded or
// refunded depending on the cumulative reserved amount.
func (l *Ledger) CreateRefund(ctx context.Context, payinID string, rawAmount string) (*domain.Refund, error) {
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return nil, fmt.Errorf("CreateRefund: %w", err)
	}

	now := time.Now().UTC()
	r := &domain.Refund{
		ID:        domain.NewID("re"),
		PayinID:   payinID,
		Amount:    amount,
		Status:    domain.RefundStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	payin, err := l.store.InsertRefund(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("CreateRefund: %w", err)
	}

	l.logger.Info("refund created", "refund_id", r.ID, "payin_id", payinID, "amount", r.Amount, "payin_status", payin.Status)
	if l.hook != nil {
		l.hook(payin)
	}
	return r, nil
}

func (l *Ledger) GetRefund(ctx context.Context, id string) (*domain.Refund, error) {
	r, err := l.store.GetRefund(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetRefund: %w", err)
	}
	return r, nil
}

// TransitionRefund settles a pending refund. A refund that fails
// releases its reserved balance; the payin status is never walked
// backwards.
func (l *Ledger) TransitionRefund(ctx context.Context, id string, target domain.RefundStatus) (*domain.Refund, error) {
	r, err := l.store.TransitionRefund(ctx, id, target)
	if err != nil {
		return nil, fmt.Errorf("TransitionRefund: %w", err)
	}

	l.logger.Info("refund transitioned", "refund_id", r.ID, "status", r.Status)
	return r, nil
}

// ParseAmount parses a decimal string, rejecting anything that is not
// strictly positive.
func ParseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%q: %w", raw, domain.ErrInvalidAmount)
	}
	return d, nil
}
