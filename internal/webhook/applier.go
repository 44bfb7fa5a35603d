package webhook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/finbridge/payment-gateway/internal/domain"
)

type transitioner interface {
	Transition(ctx context.Context, id string, target domain.PaymentStatus) (*domain.Payment, error)
	TransitionRefund(ctx context.Context, id string, target domain.RefundStatus) (*domain.Refund, error)
}

type applyFunc func(ctx context.Context, event *domain.WebhookEvent) error

// Applier interprets verified, freshly deduplicated events and drives
// the matching ledger transition. Dispatch is a closed table keyed by
// event type; unknown types are ignored for forward compatibility.
type Applier struct {
	ledger   transitioner
	logger   *slog.Logger
	handlers map[string]applyFunc
}

func NewApplier(ledger transitioner, logger *slog.Logger) *Applier {
	a := &Applier{ledger: ledger, logger: logger}
	a.handlers = map[string]applyFunc{
		domain.EventTypePaymentUpdated: a.applyPaymentUpdated,
		domain.EventTypeRefundUpdated:  a.applyRefundUpdated,
	}
	return a
}

// Handles reports whether the event type has a registered handler.
// Callers skip dedupe marking for unhandled types, so a redelivery
// after an upgrade adds the handler is still processed.
func (a *Applier) Handles(eventType string) bool {
	_, ok := a.handlers[eventType]
	return ok
}

// Apply runs the handler for the event's type. Callers mark the event
// processed before calling Apply, so a failed transition is never
// retried: an event whose target state is unreachable would otherwise
// be reprocessed forever.
func (a *Applier) Apply(ctx context.Context, event *domain.WebhookEvent) error {
	handler, ok := a.handlers[event.Type]
	if !ok {
		a.logger.Info("ignoring unknown event type", "event_id", event.ID, "event_type", event.Type)
		return nil
	}
	return handler(ctx, event)
}

func (a *Applier) applyPaymentUpdated(ctx context.Context, event *domain.WebhookEvent) error {
	obj := event.Data.Object
	status := domain.PaymentStatus(obj.Status)

	if _, err := a.ledger.Transition(ctx, obj.ID, status); err != nil {
		return fmt.Errorf("applyPaymentUpdated: event %s: %w", event.ID, err)
	}

	a.logger.Info("applied payment update", "event_id", event.ID, "payment_id", obj.ID, "kind", obj.ObjectKind(), "status", status)
	return nil
}

func (a *Applier) applyRefundUpdated(ctx context.Context, event *domain.WebhookEvent) error {
	obj := event.Data.Object
	status := domain.RefundStatus(obj.Status)

	if _, err := a.ledger.TransitionRefund(ctx, obj.ID, status); err != nil {
		return fmt.Errorf("applyRefundUpdated: event %s: %w", event.ID, err)
	}

	a.logger.Info("applied refund update", "event_id", event.ID, "refund_id", obj.ID, "status", status)
	return nil
}
