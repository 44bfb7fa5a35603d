package handler

import (
	"time"

	"github.com/finbridge/payment-gateway/internal/domain"
)

// paymentDTO serializes amounts as the exact decimal string the
// client sent, trailing zeros included; money never travels as a JSON
// number.
type paymentDTO struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Amount      string          `json:"amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	Destination *destinationDTO `json:"destination,omitempty"`
	CallbackURL string          `json:"callback_url,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type destinationDTO struct {
	Type string   `json:"type"`
	Bank *bankDTO `json:"bank,omitempty"`
}

type bankDTO struct {
	IBAN            string `json:"iban"`
	BeneficiaryName string `json:"beneficiary_name"`
}

type refundDTO struct {
	ID        string    `json:"id"`
	PayinID   string    `json:"payin_id"`
	Amount    string    `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func toPaymentDTO(p *domain.Payment) paymentDTO {
	dto := paymentDTO{
		ID:          p.ID,
		Kind:        string(p.Kind),
		Amount:      domain.AmountString(p.Amount),
		Currency:    p.Currency,
		Status:      string(p.Status),
		CallbackURL: p.CallbackURL,
		CreatedAt:   p.CreatedAt,
	}
	if p.Destination != nil {
		dest := &destinationDTO{Type: string(p.Destination.Type)}
		if p.Destination.Bank != nil {
			dest.Bank = &bankDTO{
				IBAN:            p.Destination.Bank.IBAN,
				BeneficiaryName: p.Destination.Bank.BeneficiaryName,
			}
		}
		dto.Destination = dest
	}
	return dto
}

func toRefundDTO(r *domain.Refund) refundDTO {
	return refundDTO{
		ID:        r.ID,
		PayinID:   r.PayinID,
		Amount:    domain.AmountString(r.Amount),
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
	}
}
