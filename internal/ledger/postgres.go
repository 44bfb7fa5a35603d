package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/finbridge/payment-gateway/internal/domain"
)

const paymentColumns = `id, kind, amount, currency, status, dest_type,
	dest_iban, dest_beneficiary_name, callback_url, created_at, updated_at`

const refundColumns = `id, payin_id, amount, status, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

// PostgresStore implements Store on top of postgres. Per-entity
// serialization comes from row locks: transitions select the row FOR
// UPDATE inside a transaction, so two writers on the same id queue up
// while other rows stay untouched.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InsertPayment(ctx context.Context, p *domain.Payment) error {
	var destType, iban, beneficiary *string
	if p.Destination != nil {
		t := string(p.Destination.Type)
		destType = &t
		if p.Destination.Bank != nil {
			iban = &p.Destination.Bank.IBAN
			beneficiary = &p.Destination.Bank.BeneficiaryName
		}
	}

	var callback *string
	if p.CallbackURL != "" {
		callback = &p.CallbackURL
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payments (
			id, kind, amount, currency, status, dest_type,
			dest_iban, dest_beneficiary_name, callback_url, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.Kind, domain.AmountString(p.Amount), p.Currency, p.Status,
		destType, iban, beneficiary, callback, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("InsertPayment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id,
	)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetPayment: payment %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetPayment: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) TransitionPayment(ctx context.Context, id string, target domain.PaymentStatus) (*domain.Payment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("TransitionPayment: begin tx: %w", err)
	}
	defer tx.Rollback()

	p, err := getPaymentForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("TransitionPayment: %w", err)
	}

	if !domain.CanTransition(p.Kind, p.Status, target) {
		return nil, fmt.Errorf("TransitionPayment: invalid transition from %s to %s: %w", p.Status, target, domain.ErrInvalidTransition)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE payments SET status = $1, updated_at = $2 WHERE id = $3`,
		target, now, id,
	); err != nil {
		return nil, fmt.Errorf("TransitionPayment: update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("TransitionPayment: commit: %w", err)
	}

	p.Status = target
	p.UpdatedAt = now
	return p, nil
}

func (s *PostgresStore) InsertRefund(ctx context.Context, r *domain.Refund) (*domain.Payment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("InsertRefund: begin tx: %w", err)
	}
	defer tx.Rollback()

	payin, err := getPaymentForUpdate(ctx, tx, r.PayinID)
	if err != nil {
		return nil, fmt.Errorf("InsertRefund: %w", err)
	}

	if payin.Kind != domain.PaymentKindPayin || !payin.Status.Refundable() {
		return nil, fmt.Errorf("InsertRefund: payin %s in status %s: %w", payin.ID, payin.Status, domain.ErrNotRefundable)
	}

	refunds, err := refundsForPayin(ctx, tx, r.PayinID)
	if err != nil {
		return nil, fmt.Errorf("InsertRefund: %w", err)
	}

	remaining := domain.RemainingRefundable(payin, refunds)
	if r.Amount.GreaterThan(remaining) {
		return nil, fmt.Errorf("InsertRefund: refund %s exceeds remaining %s: %w", r.Amount, remaining, domain.ErrRefundExceedsBalance)
	}

	target := domain.PaymentStatusPartiallyRefunded
	if r.Amount.Equal(remaining) {
		target = domain.PaymentStatusRefunded
	}
	if !domain.CanTransition(payin.Kind, payin.Status, target) {
		return nil, fmt.Errorf("InsertRefund: invalid transition from %s to %s: %w", payin.Status, target, domain.ErrInvalidTransition)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO refunds (id, payin_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.PayinID, domain.AmountString(r.Amount), r.Status, r.CreatedAt, r.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("InsertRefund: insert: %w", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE payments SET status = $1, updated_at = $2 WHERE id = $3`,
		target, now, payin.ID,
	); err != nil {
		return nil, fmt.Errorf("InsertRefund: update payin: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("InsertRefund: commit: %w", err)
	}

	payin.Status = target
	payin.UpdatedAt = now
	return payin, nil
}

func (s *PostgresStore) GetRefund(ctx context.Context, id string) (*domain.Refund, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+refundColumns+` FROM refunds WHERE id = $1`, id,
	)
	r, err := scanRefund(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetRefund: refund %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetRefund: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) TransitionRefund(ctx context.Context, id string, target domain.RefundStatus) (*domain.Refund, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("TransitionRefund: begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+refundColumns+` FROM refunds WHERE id = $1 FOR UPDATE`, id,
	)
	r, err := scanRefund(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("TransitionRefund: refund %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("TransitionRefund: %w", err)
	}

	if !domain.CanTransitionRefund(r.Status, target) {
		return nil, fmt.Errorf("TransitionRefund: invalid transition from %s to %s: %w", r.Status, target, domain.ErrInvalidTransition)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE refunds SET status = $1, updated_at = $2 WHERE id = $3`,
		target, now, id,
	); err != nil {
		return nil, fmt.Errorf("TransitionRefund: update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("TransitionRefund: commit: %w", err)
	}

	r.Status = target
	r.UpdatedAt = now
	return r, nil
}

func getPaymentForUpdate(ctx context.Context, tx *sql.Tx, id string) (*domain.Payment, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id,
	)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("payment %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

func refundsForPayin(ctx context.Context, tx *sql.Tx, payinID string) ([]*domain.Refund, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+refundColumns+` FROM refunds WHERE payin_id = $1`, payinID,
	)
	if err != nil {
		return nil, fmt.Errorf("refundsForPayin: %w", err)
	}
	defer rows.Close()

	var refunds []*domain.Refund
	for rows.Next() {
		r, err := scanRefund(rows)
		if err != nil {
			return nil, fmt.Errorf("refundsForPayin: scan: %w", err)
		}
		refunds = append(refunds, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("refundsForPayin: rows: %w", err)
	}
	return refunds, nil
}

func scanPayment(s scanner) (*domain.Payment, error) {
	var (
		p                           domain.Payment
		destType, iban, beneficiary *string
		callback                    *string
	)
	err := s.Scan(
		&p.ID, &p.Kind, &p.Amount, &p.Currency, &p.Status,
		&destType, &iban, &beneficiary, &callback, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if destType != nil {
		dest := &domain.Destination{Type: domain.DestinationType(*destType)}
		if dest.Type == domain.DestinationTypeBank {
			bank := &domain.BankDestination{}
			if iban != nil {
				bank.IBAN = *iban
			}
			if beneficiary != nil {
				bank.BeneficiaryName = *beneficiary
			}
			dest.Bank = bank
		}
		p.Destination = dest
	}
	if callback != nil {
		p.CallbackURL = *callback
	}
	return &p, nil
}

func scanRefund(s scanner) (*domain.Refund, error) {
	var r domain.Refund
	err := s.Scan(&r.ID, &r.PayinID, &r.Amount, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
