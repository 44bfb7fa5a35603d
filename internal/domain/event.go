package domain

// Webhook event types the upstream processor is known to send. The
// applier ignores anything else.
const (
	EventTypePaymentUpdated = "payment.updated"
	EventTypeRefundUpdated  = "refund.updated"
)

// WebhookEvent is the provider's event envelope. ID is provider
// assigned and doubles as the idempotency key.
type WebhookEvent struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	CreatedAt string      `json:"created_at"`
	Data      WebhookData `json:"data"`
}

type WebhookData struct {
	Object WebhookObject `json:"object"`
}

// WebhookObject is a partial view of a Payment or Refund. The provider
// uses "type" for the payment kind; some deliveries use "kind".
type WebhookObject struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
}

func (o WebhookObject) ObjectKind() string {
	if o.Kind != "" {
		return o.Kind
	}
	return o.Type
}
