package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/finbridge/payment-gateway/internal/domain"
	"github.com/finbridge/payment-gateway/internal/logging"
)

type payoutService interface {
	Create(ctx context.Context, amount, currency, callbackURL string, dest *domain.Destination) (*domain.Payment, error)
	Get(ctx context.Context, id string) (*domain.Payment, error)
}

type PayoutHandler struct {
	payouts payoutService
}

func NewPayoutHandler(payouts payoutService) *PayoutHandler {
	return &PayoutHandler{payouts: payouts}
}

type createPayoutRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	CallbackURL string `json:"callback_url"`
	Destination *struct {
		Type string `json:"type"`
		Bank *struct {
			IBAN            string `json:"iban"`
			BeneficiaryName string `json:"beneficiary_name"`
		} `json:"bank"`
	} `json:"destination"`
}

func (r createPayoutRequest) destination() *domain.Destination {
	if r.Destination == nil {
		return nil
	}
	dest := &domain.Destination{Type: domain.DestinationType(r.Destination.Type)}
	if r.Destination.Bank != nil {
		dest.Bank = &domain.BankDestination{
			IBAN:            r.Destination.Bank.IBAN,
			BeneficiaryName: r.Destination.Bank.BeneficiaryName,
		}
	}
	return dest
}

func (h *PayoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req createPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest)
		return
	}

	p, err := h.payouts.Create(r.Context(), req.Amount, req.Currency, req.CallbackURL, req.destination())
	if err != nil {
		log.Warn("payout creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, map[string]paymentDTO{"payout": toPaymentDTO(p)})
}

func (h *PayoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.payouts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]paymentDTO{"payout": toPaymentDTO(p)})
}
