package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/chamapesa/chama-engine/internal/domain"
)

type contributionRepository struct {
	db *DB
}

func NewContributionRepository(db *DB) ContributionRepository {
	return &contributionRepository{db: db}
}

func (r *contributionRepository) Create(ctx context.Context, c *domain.Contribution) error {
	query := `
		INSERT INTO contributions (id, member_id, cycle_id, type_id, amount, expected_amount, status, rollover, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ext(ctx).ExecContext(ctx, query,
		c.ID,
		c.MemberID,
		c.CycleID,
		c.TypeID,
		c.Amount,
		c.ExpectedAmount,
		c.Status,
		c.Rollover,
		c.CreatedAt,
		c.UpdatedAt,
	)

	return err
}

func (r *contributionRepository) UpsertAccumulate(ctx context.Context, memberID, cycleID, typeID uuid.UUID, expected, delta decimal.Decimal) (*domain.Contribution, error) {
	// One row per (member, cycle, type); repeat payments accumulate into it
	// and the status is rederived from the new total in the same statement.
	// A cancelled row's amount was already reversed, so funding it again
	// starts from zero instead of accumulating onto the voided total.
	query := `
		INSERT INTO contributions (id, member_id, cycle_id, type_id, amount, expected_amount, status, rollover, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8, $8)
		ON CONFLICT (member_id, cycle_id, type_id) WHERE type_id IS NOT NULL
		DO UPDATE SET
			amount = (CASE WHEN contributions.status = 'cancelled' THEN 0 ELSE contributions.amount END) + EXCLUDED.amount,
			status = CASE
				WHEN contributions.expected_amount > 0
					AND (CASE WHEN contributions.status = 'cancelled' THEN 0 ELSE contributions.amount END) + EXCLUDED.amount >= contributions.expected_amount THEN 'paid'
				WHEN (CASE WHEN contributions.status = 'cancelled' THEN 0 ELSE contributions.amount END) + EXCLUDED.amount > 0 THEN 'partial'
				ELSE 'pending'
			END,
			updated_at = EXCLUDED.updated_at
		RETURNING id, member_id, cycle_id, type_id, amount, expected_amount, status, rollover, created_at, updated_at
	`

	now := time.Now()
	status := domain.DeriveContributionStatus(delta, expected)

	var c domain.Contribution
	err := sqlx.GetContext(ctx, r.db.ext(ctx), &c, query,
		uuid.New(),
		memberID,
		cycleID,
		typeID,
		delta,
		expected,
		status,
		now,
	)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

func (r *contributionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contribution, error) {
	query := `
		SELECT id, member_id, cycle_id, type_id, amount, expected_amount, status, rollover, created_at, updated_at
		FROM contributions
		WHERE id = $1
	`

	var c domain.Contribution
	err := sqlx.GetContext(ctx, r.db.ext(ctx), &c, query, id)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

func (r *contributionRepository) GetByKey(ctx context.Context, memberID, cycleID, typeID uuid.UUID) (*domain.Contribution, error) {
	query := `
		SELECT id, member_id, cycle_id, type_id, amount, expected_amount, status, rollover, created_at, updated_at
		FROM contributions
		WHERE member_id = $1 AND cycle_id = $2 AND type_id = $3
	`

	var c domain.Contribution
	err := sqlx.GetContext(ctx, r.db.ext(ctx), &c, query, memberID, cycleID, typeID)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

func (r *contributionRepository) ListByMemberCycle(ctx context.Context, memberID, cycleID uuid.UUID) ([]*domain.Contribution, error) {
	query := `
		SELECT id, member_id, cycle_id, type_id, amount, expected_amount, status, rollover, created_at, updated_at
		FROM contributions
		WHERE member_id = $1 AND cycle_id = $2
		ORDER BY created_at
	`

	var contributions []*domain.Contribution
	err := sqlx.SelectContext(ctx, r.db.ext(ctx), &contributions, query, memberID, cycleID)
	if err != nil {
		return nil, err
	}

	return contributions, nil
}

func (r *contributionRepository) ListByCycle(ctx context.Context, cycleID uuid.UUID) ([]*domain.Contribution, error) {
	query := `
		SELECT id, member_id, cycle_id, type_id, amount, expected_amount, status, rollover, created_at, updated_at
		FROM contributions
		WHERE cycle_id = $1
		ORDER BY created_at
	`

	var contributions []*domain.Contribution
	err := sqlx.SelectContext(ctx, r.db.ext(ctx), &contributions, query, cycleID)
	if err != nil {
		return nil, err
	}

	return contributions, nil
}

func (r *contributionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE contributions
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ext(ctx).ExecContext(ctx, query, id, status, time.Now())
	return err
}

func (r *contributionRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE contributions
		SET status = 'late', updated_at = $1
		FROM contribution_cycles
		WHERE contributions.cycle_id = contribution_cycles.id
			AND contribution_cycles.status = 'active'
			AND contribution_cycles.due_date < $1
			AND contributions.status IN ('pending', 'partial')
	`

	result, err := r.db.ext(ctx).ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r *contributionRepository) CountCyclesWithPaid(ctx context.Context, memberID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(DISTINCT c.cycle_id)
		FROM contributions c
		JOIN contribution_cycles cc ON cc.id = c.cycle_id
		WHERE c.member_id = $1 AND c.status = 'paid' AND cc.status != 'cancelled'
	`

	var count int
	err := sqlx.GetContext(ctx, r.db.ext(ctx), &count, query, memberID)
	return count, err
}
