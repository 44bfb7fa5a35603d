package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/finbridge/payment-gateway/internal/domain"
	"github.com/finbridge/payment-gateway/internal/logging"
)

const maxWebhookBody = 1 << 20

type signatureVerifier interface {
	Verify(rawBody []byte, signature string) error
}

type eventDeduper interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
}

type eventApplier interface {
	Handles(eventType string) bool
	Apply(ctx context.Context, event *domain.WebhookEvent) error
}

type WebhookHandler struct {
	verifier signatureVerifier
	deduper  eventDeduper
	applier  eventApplier
}

func NewWebhookHandler(verifier signatureVerifier, deduper eventDeduper, applier eventApplier) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, deduper: deduper, applier: applier}
}

// Receive handles a provider delivery. Order is fixed: verify the MAC
// over the raw bytes before any parsing, then atomically check-and-mark
// the event id, then apply. A duplicate returns 200 exactly like a
// first delivery, without re-running side effects. An apply failure
// (unknown payment, unreachable target state) is logged and the event
// stays marked, so a poisoned event is never reprocessed.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		log.Error("failed to read webhook body", "error", err)
		RespondAppError(w, ErrInvalidRequest)
		return
	}

	if err := h.verifier.Verify(body, r.Header.Get("X-Signature")); err != nil {
		log.Warn("webhook signature verification failed")
		RespondAppError(w, ErrInvalidSignature)
		return
	}

	var event domain.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Warn("failed to parse webhook payload", "error", err)
		RespondAppError(w, ErrInvalidRequest)
		return
	}

	eventID := event.ID
	if eventID == "" {
		eventID = r.Header.Get("X-Event-Id")
	}
	if eventID == "" {
		log.Warn("webhook event without id")
		RespondAppError(w, ErrInvalidRequest)
		return
	}
	event.ID = eventID

	// unknown types are acknowledged without consuming the id; a
	// receiver that learns the type later can still process a
	// redelivery
	if !h.applier.Handles(event.Type) {
		log.Info("ignoring unknown event type", "event_id", eventID, "event_type", event.Type)
		RespondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	fresh, err := h.deduper.CheckAndMark(r.Context(), eventID)
	if err != nil {
		log.Error("event dedupe check failed", "event_id", eventID, "error", err)
		RespondAppError(w, ErrInternalError)
		return
	}

	if !fresh {
		log.Info("duplicate webhook delivery", "event_id", eventID)
		RespondJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}

	if err := h.applier.Apply(r.Context(), &event); err != nil {
		log.Warn("webhook event not applied", "event_id", eventID, "event_type", event.Type, "error", err)
		RespondJSON(w, http.StatusOK, map[string]string{"status": "not_applied"})
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}
