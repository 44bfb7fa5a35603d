package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/finbridge/payment-gateway/internal/domain"
	"github.com/finbridge/payment-gateway/internal/logging"
)

type payinService interface {
	Create(ctx context.Context, amount, currency, callbackURL string) (*domain.Payment, error)
	Get(ctx context.Context, id string) (*domain.Payment, error)
	Cancel(ctx context.Context, id string) (*domain.Payment, error)
}

type refundService interface {
	Create(ctx context.Context, payinID, amount string) (*domain.Refund, error)
}

type PayinHandler struct {
	payins  payinService
	refunds refundService
}

func NewPayinHandler(payins payinService, refunds refundService) *PayinHandler {
	return &PayinHandler{payins: payins, refunds: refunds}
}

type createPayinRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	CallbackURL string `json:"callback_url"`
}

func (h *PayinHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req createPayinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest)
		return
	}

	p, err := h.payins.Create(r.Context(), req.Amount, req.Currency, req.CallbackURL)
	if err != nil {
		log.Warn("payin creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, map[string]paymentDTO{"payment": toPaymentDTO(p)})
}

func (h *PayinHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.payins.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]paymentDTO{"payment": toPaymentDTO(p)})
}

func (h *PayinHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	p, err := h.payins.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		log.Warn("payin cancel rejected", "payin_id", chi.URLParam(r, "id"), "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]paymentDTO{"payment": toPaymentDTO(p)})
}

type createRefundRequest struct {
	Amount string `json:"amount"`
}

func (h *PayinHandler) CreateRefund(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req createRefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest)
		return
	}

	refund, err := h.refunds.Create(r.Context(), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		log.Warn("refund creation failed", "payin_id", chi.URLParam(r, "id"), "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, map[string]refundDTO{"refund": toRefundDTO(refund)})
}
