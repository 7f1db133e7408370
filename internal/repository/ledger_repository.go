package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/chamapesa/chama-engine/internal/domain"
)

type ledgerRepository struct {
	db *DB
}

func NewLedgerRepository(db *DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (id, member_id, amount, balance_before, balance_after, transaction_type, description, cycle_id, contribution_id, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ext(ctx).ExecContext(ctx, query,
		entry.ID,
		entry.MemberID,
		entry.Amount,
		entry.BalanceBefore,
		entry.BalanceAfter,
		entry.TransactionType,
		entry.Description,
		entry.CycleID,
		entry.ContributionID,
		entry.CreatedBy,
		entry.CreatedAt,
	)

	return err
}

func (r *ledgerRepository) ListByMember(ctx context.Context, memberID uuid.UUID, limit int) ([]*domain.LedgerEntry, error) {
	query := `
		SELECT id, member_id, amount, balance_before, balance_after, transaction_type, description, cycle_id, contribution_id, created_by, created_at
		FROM ledger_entries
		WHERE member_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var entries []*domain.LedgerEntry
	err := sqlx.SelectContext(ctx, r.db.ext(ctx), &entries, query, memberID, limit)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *ledgerRepository) SumByMember(ctx context.Context, memberID uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE member_id = $1
	`

	var sum decimal.Decimal
	err := sqlx.GetContext(ctx, r.db.ext(ctx), &sum, query, memberID)
	return sum, err
}
