package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/finbridge/payment-gateway/internal/domain"
	"github.com/finbridge/payment-gateway/internal/ledger"
)

type PayoutService struct {
	ledger paymentLedger
}

func NewPayoutService(l paymentLedger) *PayoutService {
	return &PayoutService{ledger: l}
}

func (s *PayoutService) Create(ctx context.Context, amount, currency, callbackURL string, dest *domain.Destination) (*domain.Payment, error) {
	if err := validateDestination(dest); err != nil {
		return nil, fmt.Errorf("payout.Create: %w", err)
	}

	p, err := s.ledger.CreatePayment(ctx, ledger.CreateParams{
		Kind:        domain.PaymentKindPayout,
		Amount:      amount,
		Currency:    currency,
		CallbackURL: callbackURL,
		Destination: dest,
	})
	if err != nil {
		return nil, fmt.Errorf("payout.Create: %w", err)
	}
	return p, nil
}

func (s *PayoutService) Get(ctx context.Context, id string) (*domain.Payment, error) {
	p, err := s.ledger.GetPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("payout.Get: %w", err)
	}
	if p.Kind != domain.PaymentKindPayout {
		return nil, fmt.Errorf("payout.Get: %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

// validateDestination checks the variant named by the discriminator.
// New rails get their own case; existing ones stay untouched.
func validateDestination(dest *domain.Destination) error {
	if dest == nil {
		return fmt.Errorf("destination required: %w", domain.ErrInvalidDestination)
	}

	switch dest.Type {
	case domain.DestinationTypeBank:
		if dest.Bank == nil {
			return fmt.Errorf("bank details required: %w", domain.ErrInvalidDestination)
		}
		if !ValidIBAN(dest.Bank.IBAN) {
			return fmt.Errorf("iban %q: %w", dest.Bank.IBAN, domain.ErrInvalidDestination)
		}
		if strings.TrimSpace(dest.Bank.BeneficiaryName) == "" {
			return fmt.Errorf("beneficiary_name required: %w", domain.ErrInvalidDestination)
		}
		return nil
	default:
		return fmt.Errorf("unknown destination type %q: %w", dest.Type, domain.ErrInvalidDestination)
	}
}

// ValidIBAN performs the ISO 7064 mod-97 structural check: move the
// first four characters to the end, map letters to 10..35, and the
// resulting number must leave remainder 1 modulo 97.
func ValidIBAN(iban string) bool {
	s := strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
	if len(s) < 15 || len(s) > 34 {
		return false
	}
	if s[0] < 'A' || s[0] > 'Z' || s[1] < 'A' || s[1] > 'Z' {
		return false
	}
	if s[2] < '0' || s[2] > '9' || s[3] < '0' || s[3] > '9' {
		return false
	}

	rearranged := s[4:] + s[:4]
	rem := 0
	for _, c := range rearranged {
		switch {
		case c >= '0' && c <= '9':
			rem = (rem*10 + int(c-'0')) % 97
		case c >= 'A' && c <= 'Z':
			rem = (rem*100 + int(c-'A') + 10) % 97
		default:
			return false
		}
	}
	return rem == 1
}
