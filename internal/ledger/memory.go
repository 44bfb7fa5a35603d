package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/finbridge/payment-gateway/internal/domain"
)

// MemoryStore keeps payments in an arena keyed by id. Map access is
// guarded by mu; each entry carries its own mutex so transitions on
// the same id serialize while different ids proceed independently.
// Lock order is always mu before an entry lock, never the reverse.
type MemoryStore struct {
	mu       sync.RWMutex
	payments map[string]*paymentEntry
	refunds  map[string]string // refund id -> payin id
}

type paymentEntry struct {
	mu      sync.Mutex
	payment domain.Payment
	refunds []*domain.Refund // payins only
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		payments: make(map[string]*paymentEntry),
		refunds:  make(map[string]string),
	}
}

func (s *MemoryStore) InsertPayment(_ context.Context, p *domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payments[p.ID]; exists {
		return fmt.Errorf("InsertPayment: duplicate id %s", p.ID)
	}
	s.payments[p.ID] = &paymentEntry{payment: *p}
	return nil
}

func (s *MemoryStore) GetPayment(_ context.Context, id string) (*domain.Payment, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	p := entry.payment
	return &p, nil
}

func (s *MemoryStore) TransitionPayment(_ context.Context, id string, target domain.PaymentStatus) (*domain.Payment, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	from := entry.payment.Status
	if !domain.CanTransition(entry.payment.Kind, from, target) {
		return nil, fmt.Errorf("invalid transition from %s to %s: %w", from, target, domain.ErrInvalidTransition)
	}

	entry.payment.Status = target
	entry.payment.UpdatedAt = time.Now().UTC()
	p := entry.payment
	return &p, nil
}

func (s *MemoryStore) InsertRefund(_ context.Context, r *domain.Refund) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.payments[r.PayinID]
	if !ok {
		return nil, fmt.Errorf("payin %s: %w", r.PayinID, domain.ErrNotFound)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	payin := &entry.payment
	if payin.Kind != domain.PaymentKindPayin || !payin.Status.Refundable() {
		return nil, fmt.Errorf("payin %s in status %s: %w", payin.ID, payin.Status, domain.ErrNotRefundable)
	}

	remaining := domain.RemainingRefundable(payin, entry.refunds)
	if r.Amount.GreaterThan(remaining) {
		return nil, fmt.Errorf("refund %s exceeds remaining %s: %w", r.Amount, remaining, domain.ErrRefundExceedsBalance)
	}

	target := domain.PaymentStatusPartiallyRefunded
	if r.Amount.Equal(remaining) {
		target = domain.PaymentStatusRefunded
	}
	if !domain.CanTransition(payin.Kind, payin.Status, target) {
		return nil, fmt.Errorf("invalid transition from %s to %s: %w", payin.Status, target, domain.ErrInvalidTransition)
	}

	stored := *r
	entry.refunds = append(entry.refunds, &stored)
	s.refunds[r.ID] = r.PayinID

	now := time.Now().UTC()
	payin.Status = target
	payin.UpdatedAt = now

	p := *payin
	return &p, nil
}

func (s *MemoryStore) GetRefund(_ context.Context, id string) (*domain.Refund, error) {
	entry, refund, err := s.refundEntry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	r := *refund
	return &r, nil
}

func (s *MemoryStore) TransitionRefund(_ context.Context, id string, target domain.RefundStatus) (*domain.Refund, error) {
	entry, refund, err := s.refundEntry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !domain.CanTransitionRefund(refund.Status, target) {
		return nil, fmt.Errorf("invalid transition from %s to %s: %w", refund.Status, target, domain.ErrInvalidTransition)
	}

	refund.Status = target
	refund.UpdatedAt = time.Now().UTC()
	r := *refund
	return &r, nil
}

func (s *MemoryStore) entry(id string) (*paymentEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", id, domain.ErrNotFound)
	}
	return entry, nil
}

// refundEntry resolves a refund id to its payin entry and the refund
// record inside it. The pointer stays valid because refunds are never
// removed from an entry.
func (s *MemoryStore) refundEntry(id string) (*paymentEntry, *domain.Refund, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payinID, ok := s.refunds[id]
	if !ok {
		return nil, nil, fmt.Errorf("refund %s: %w", id, domain.ErrNotFound)
	}

	entry := s.payments[payinID]
	for _, r := range entry.refunds {
		if r.ID == id {
			return entry, r, nil
		}
	}
	return nil, nil, fmt.Errorf("refund %s: %w", id, domain.ErrNotFound)
}
