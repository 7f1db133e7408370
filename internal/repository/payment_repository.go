package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/chamapesa/chama-engine/internal/domain"
)

type paymentRepository struct {
	db *DB
}

func NewPaymentRepository(db *DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, reference, member_id, cycle_id, amount, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ext(ctx).ExecContext(ctx, query,
		payment.ID,
		payment.Reference,
		payment.MemberID,
		payment.CycleID,
		payment.Amount,
		payment.CreatedBy,
		payment.CreatedAt,
	)

	return err
}

func (r *paymentRepository) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	query := `
		SELECT id, reference, member_id, cycle_id, amount, created_by, created_at
		FROM payments
		WHERE reference = $1
	`

	var payment domain.Payment
	err := sqlx.GetContext(ctx, r.db.ext(ctx), &payment, query, reference)
	if err != nil {
		return nil, err
	}

	return &payment, nil
}
