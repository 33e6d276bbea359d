package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-be/internal/db"

	"github.com/google/uuid"
)

type Repository interface {
	// Create returns ErrDuplicateReference when a payment with the same
	// reference already exists.
	Create(ctx context.Context, p *Payment) error
	GetByReference(ctx context.Context, reference string) (*Payment, error)
}

type repository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

func (r *repository) Create(ctx context.Context, p *Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO payments
			(id, user_id, amount_minor, reference, transaction_id, payment_method, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`,
		p.ID, p.UserID, p.AmountMinor, p.Reference, p.TransactionID, p.PaymentMethod, string(p.Status),
	).Scan(&p.CreatedAt)

	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateReference, p.Reference)
	}
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *repository) GetByReference(ctx context.Context, reference string) (*Payment, error) {
	var (
		p      Payment
		status string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, amount_minor, reference, transaction_id, payment_method, status, created_at
		FROM payments
		WHERE reference = $1
	`, reference).Scan(
		&p.ID, &p.UserID, &p.AmountMinor, &p.Reference, &p.TransactionID,
		&p.PaymentMethod, &status, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment %s: %w", reference, err)
	}

	p.Status = Status(status)
	return &p, nil
}
