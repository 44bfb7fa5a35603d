// Package notify delivers payment status callbacks to merchant
// supplied URLs. Delivery is fire-and-forget: the ledger hook enqueues
// and returns immediately, workers drain the queue, and a full queue
// drops the notification rather than blocking a money-moving path.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"

	"github.com/finbridge/payment-gateway/internal/domain"
)

type callbackPayload struct {
	PaymentID string `json:"payment_id"`
	Kind      string `json:"kind"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
}

type Notifier struct {
	queue   chan *domain.Payment
	client  *fasthttp.Client
	timeout time.Duration
	workers int
	logger  *slog.Logger
}

func New(workers, bufferSize int, timeout time.Duration, logger *slog.Logger) *Notifier {
	return &Notifier{
		queue:   make(chan *domain.Payment, bufferSize),
		client:  &fasthttp.Client{},
		timeout: timeout,
		workers: workers,
		logger:  logger,
	}
}

// Start launches the delivery workers. They exit when ctx is canceled.
func (n *Notifier) Start(ctx context.Context) {
	for id := range n.workers {
		go n.worker(ctx, id)
	}
}

// Enqueue schedules a callback for a payment. Payments without a
// callback URL are skipped; a full queue drops the notification.
func (n *Notifier) Enqueue(p *domain.Payment) {
	if p.CallbackURL == "" {
		return
	}

	select {
	case n.queue <- p:
	default:
		n.logger.Warn("callback queue full, dropping notification", "payment_id", p.ID)
	}
}

func (n *Notifier) worker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-n.queue:
			if !ok {
				return
			}
			if err := n.deliver(p); err != nil {
				n.logger.Warn("callback delivery failed", "worker", id, "payment_id", p.ID, "error", err)
			}
		}
	}
}

func (n *Notifier) deliver(p *domain.Payment) error {
	payload, err := sonic.Marshal(callbackPayload{
		PaymentID: p.ID,
		Kind:      string(p.Kind),
		Amount:    domain.AmountString(p.Amount),
		Currency:  p.Currency,
		Status:    string(p.Status),
	})
	if err != nil {
		return fmt.Errorf("deliver: marshal: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.SetRequestURI(p.CallbackURL)
	req.Header.SetMethod(http.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	if err := n.client.DoTimeout(req, resp, n.timeout); err != nil {
		return fmt.Errorf("deliver: %w", err)
	}

	if code := resp.StatusCode(); code >= http.StatusMultipleChoices {
		return fmt.Errorf("deliver: callback returned status %d", code)
	}
	return nil
}
