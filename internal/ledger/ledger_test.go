package ledger

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbridge/payment-gateway/internal/domain"
)

func newTestLedger() *Ledger {
	return New(NewMemoryStore(), slog.Default())
}

func createPayin(t *testing.T, l *Ledger, amount string) *domain.Payment {
	t.Helper()
	p, err := l.CreatePayment(context.Background(), CreateParams{
		Kind:     domain.PaymentKindPayin,
		Amount:   amount,
		Currency: "EUR",
	})
	require.NoError(t, err)
	return p
}

func TestCreatePayment(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		wantErr  error
	}{
		{"valid integer amount", "1000", "EUR", nil},
		{"valid fractional amount", "10.50", "USD", nil},
		{"zero amount", "0", "EUR", domain.ErrInvalidAmount},
		{"negative amount", "-5", "EUR", domain.ErrInvalidAmount},
		{"non-numeric amount", "ten", "EUR", domain.ErrInvalidAmount},
		{"empty amount", "", "EUR", domain.ErrInvalidAmount},
		{"unknown currency", "1000", "ABC", domain.ErrInvalidCurrency},
		{"lowercase currency", "1000", "eur", domain.ErrInvalidCurrency},
	}

	l := newTestLedger()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := l.CreatePayment(context.Background(), CreateParams{
				Kind:     domain.PaymentKindPayin,
				Amount:   tc.amount,
				Currency: tc.currency,
			})
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.PaymentStatusPending, p.Status)
			assert.Equal(t, tc.amount, domain.AmountString(p.Amount))
			assert.NotEmpty(t, p.ID)
			assert.False(t, p.CreatedAt.IsZero())
		})
	}
}

func TestCreatePayment_AmountEchoesExactly(t *testing.T) {
	l := newTestLedger()
	for _, amount := range []string{"1000", "10.50", "0.01", "2500.00", "1.0"} {
		p := createPayin(t, l, amount)
		assert.Equal(t, amount, domain.AmountString(p.Amount))

		got, err := l.GetPayment(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, amount, domain.AmountString(got.Amount))
	}
}

func TestGetPayment_NotFound(t *testing.T) {
	l := newTestLedger()
	_, err := l.GetPayment(context.Background(), "pay_missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransition(t *testing.T) {
	l := newTestLedger()
	p := createPayin(t, l, "1000")

	got, err := l.Transition(context.Background(), p.ID, domain.PaymentStatusSucceeded)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSucceeded, got.Status)

	// succeeded is terminal for the non-refund path
	_, err = l.Transition(context.Background(), p.ID, domain.PaymentStatusCanceled)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// failed transition leaves the payment untouched
	got, err = l.GetPayment(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSucceeded, got.Status)
}

func TestTransition_NotFound(t *testing.T) {
	l := newTestLedger()
	_, err := l.Transition(context.Background(), "pay_missing", domain.PaymentStatusSucceeded)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransition_ConcurrentSameID(t *testing.T) {
	l := newTestLedger()
	p := createPayin(t, l, "1000")

	// pending -> canceled and pending -> succeeded race; exactly one
	// may win.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	targets := []domain.PaymentStatus{domain.PaymentStatusCanceled, domain.PaymentStatusSucceeded}
	for i, target := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = l.Transition(context.Background(), p.ID, target)
		}()
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			require.ErrorIs(t, err, domain.ErrInvalidTransition)
			lost++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)
}

func TestTransition_Hook(t *testing.T) {
	l := newTestLedger()
	var notified []*domain.Payment
	l.OnTransition(func(p *domain.Payment) { notified = append(notified, p) })

	p := createPayin(t, l, "1000")
	_, err := l.Transition(context.Background(), p.ID, domain.PaymentStatusSucceeded)
	require.NoError(t, err)

	require.Len(t, notified, 1)
	assert.Equal(t, p.ID, notified[0].ID)
	assert.Equal(t, domain.PaymentStatusSucceeded, notified[0].Status)
}

func TestCreateRefund(t *testing.T) {
	l := newTestLedger()
	p := createPayin(t, l, "1000")

	r, err := l.CreateRefund(context.Background(), p.ID, "500")
	require.NoError(t, err)
	assert.Equal(t, "500", r.Amount.String())
	assert.Equal(t, domain.RefundStatusPending, r.Status)
	assert.Equal(t, p.ID, r.PayinID)

	got, err := l.GetPayment(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPartiallyRefunded, got.Status)
}

func TestCreateRefund_ExceedsBalance(t *testing.T) {
	l := newTestLedger()
	p := createPayin(t, l, "1000")

	_, err := l.CreateRefund(context.Background(), p.ID, "500")
	require.NoError(t, err)

	_, err = l.CreateRefund(context.Background(), p.ID, "600")
	assert.ErrorIs(t, err, domain.ErrRefundExceedsBalance)

	// failed refund creation never mutates the payin
	got, err := l.GetPayment(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPartiallyRefunded, got.Status)

	// the remaining 500 is still refundable
	_, err = l.CreateRefund(context.Background(), p.ID, "500")
	require.NoError(t, err)

	got, err = l.GetPayment(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRefunded, got.Status)
}

func TestCreateRefund_FullAmountMarksRefunded(t *testing.T) {
	l := newTestLedger()
	p := createPayin(t, l, "1000")

	_, err := l.CreateRefund(context.Background(), p.ID, "1000")
	require.NoError(t, err)

	got, err := l.GetPayment(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRefunded, got.Status)

	// fully refunded payin accepts no further refunds
	_, err = l.CreateRefund(context.Background(), p.ID, "1")
	assert.ErrorIs(t, err, domain.ErrNotRefundable)
}

func TestCreateRefund_IneligiblePayin(t *testing.T) {
	l := newTestLedger()

	t.Run("canceled payin", func(t *testing.T) {
		p := createPayin(t, l, "1000")
		_, err := l.Transition(context.Background(), p.ID, domain.PaymentStatusCanceled)
		require.NoError(t, err)

		_, err = l.CreateRefund(context.Background(), p.ID, "100")
		assert.ErrorIs(t, err, domain.ErrNotRefundable)
	})

	t.Run("payout", func(t *testing.T) {
		p, err := l.CreatePayment(context.Background(), CreateParams{
			Kind:     domain.PaymentKindPayout,
			Amount:   "2500",
			Currency: "EUR",
			Destination: &domain.Destination{
				Type: domain.DestinationTypeBank,
				Bank: &domain.BankDestination{IBAN: "NL91ABNA0417164300", BeneficiaryName: "Test User"},
			},
		})
		require.NoError(t, err)

		_, err = l.CreateRefund(context.Background(), p.ID, "100")
		assert.ErrorIs(t, err, domain.ErrNotRefundable)
	})

	t.Run("missing payin", func(t *testing.T) {
		_, err := l.CreateRefund(context.Background(), "pay_missing", "100")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestCreateRefund_InvalidAmount(t *testing.T) {
	l := newTestLedger()
	p := createPayin(t, l, "1000")

	for _, amount := range []string{"0", "-1", "abc", ""} {
		_, err := l.CreateRefund(context.Background(), p.ID, amount)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount, "amount %q", amount)
	}
}

func TestCreateRefund_ConcurrentNeverOverRefunds(t *testing.T) {
	l := newTestLedger()
	p := createPayin(t, l, "1000")

	// ten concurrent refunds of 300 against a balance of 1000; at most
	// three may land.
	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = l.CreateRefund(context.Background(), p.ID, "300")
		}()
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 3, succeeded)
}

func TestTransitionRefund(t *testing.T) {
	l := newTestLedger()
	p := createPayin(t, l, "1000")

	r, err := l.CreateRefund(context.Background(), p.ID, "400")
	require.NoError(t, err)

	got, err := l.TransitionRefund(context.Background(), r.ID, domain.RefundStatusSucceeded)
	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusSucceeded, got.Status)

	// succeeded refunds are terminal
	_, err = l.TransitionRefund(context.Background(), r.ID, domain.RefundStatusFailed)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTransitionRefund_FailedReleasesBalance(t *testing.T) {
	l := newTestLedger()
	p := createPayin(t, l, "1000")

	r, err := l.CreateRefund(context.Background(), p.ID, "800")
	require.NoError(t, err)

	// 800 reserved, a further 800 does not fit
	_, err = l.CreateRefund(context.Background(), p.ID, "800")
	assert.ErrorIs(t, err, domain.ErrRefundExceedsBalance)

	_, err = l.TransitionRefund(context.Background(), r.ID, domain.RefundStatusFailed)
	require.NoError(t, err)

	// the failed refund released its reservation
	_, err = l.CreateRefund(context.Background(), p.ID, "800")
	require.NoError(t, err)
}

func TestGetRefund_NotFound(t *testing.T) {
	l := newTestLedger()
	_, err := l.GetRefund(context.Background(), "re_missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
