package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentKind string

const (
	PaymentKindPayin  PaymentKind = "payin"
	PaymentKindPayout PaymentKind = "payout"
)

func (k PaymentKind) IsValid() bool {
	return k == PaymentKindPayin || k == PaymentKindPayout
}

type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusSucceeded         PaymentStatus = "succeeded"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusCanceled          PaymentStatus = "canceled"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentStatusRefunded          PaymentStatus = "refunded"
)

type DestinationType string

const DestinationTypeBank DestinationType = "bank"

// Destination is a tagged union discriminated by Type. Only bank
// destinations exist today; a new rail adds a variant without touching
// this one.
type Destination struct {
	Type DestinationType
	Bank *BankDestination
}

type BankDestination struct {
	IBAN            string
	BeneficiaryName string
}

type Payment struct {
	ID          string
	Kind        PaymentKind
	Amount      decimal.Decimal
	Currency    string
	Status      PaymentStatus
	Destination *Destination
	CallbackURL string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// payinTransitions includes the refund-driven path. partially_refunded
// re-enters itself so successive partial refunds remain legal. A
// pending payin may move straight onto the refund path because
// in-flight payins accept refunds.
var payinTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:           {PaymentStatusSucceeded, PaymentStatusFailed, PaymentStatusCanceled, PaymentStatusPartiallyRefunded, PaymentStatusRefunded},
	PaymentStatusSucceeded:         {PaymentStatusPartiallyRefunded, PaymentStatusRefunded},
	PaymentStatusPartiallyRefunded: {PaymentStatusPartiallyRefunded, PaymentStatusRefunded},
}

var payoutTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusSucceeded, PaymentStatusFailed},
}

// CanTransition reports whether a payment of the given kind may move
// from one status to another. Terminal states have no outgoing edges,
// so nothing ever returns to pending.
func CanTransition(kind PaymentKind, from, to PaymentStatus) bool {
	table := payinTransitions
	if kind == PaymentKindPayout {
		table = payoutTransitions
	}
	for _, allowed := range table[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Refundable reports whether a payin in this status may accept a new
// refund.
func (s PaymentStatus) Refundable() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSucceeded, PaymentStatusPartiallyRefunded:
		return true
	}
	return false
}

// NewID returns an opaque prefixed identifier, e.g. "pay_6f1a...".
func NewID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// AmountString renders an amount at the scale it was parsed with, so
// "10.50" stays "10.50" instead of collapsing to "10.5". Decimal's own
// String trims trailing fractional zeros.
func AmountString(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

// currencies is the set of ISO 4217 codes the gateway settles in.
var currencies = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "CHF": {}, "SEK": {}, "NOK": {},
	"DKK": {}, "PLN": {}, "CZK": {}, "JPY": {}, "CAD": {}, "AUD": {},
	"NZD": {}, "SGD": {}, "HKD": {}, "NGN": {}, "ZAR": {}, "BRL": {},
	"MXN": {}, "INR": {},
}

func ValidCurrency(code string) bool {
	_, ok := currencies[code]
	return ok
}
