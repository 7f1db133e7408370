package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/chamapesa/chama-engine/internal/domain"
)

type cycleRepository struct {
	db *DB
}

func NewCycleRepository(db *DB) CycleRepository {
	return &cycleRepository{db: db}
}

func (r *cycleRepository) Create(ctx context.Context, cycle *domain.ContributionCycle) error {
	query := `
		INSERT INTO contribution_cycles (id, chama_id, cycle_number, status, due_date, collected_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ext(ctx).ExecContext(ctx, query,
		cycle.ID,
		cycle.ChamaID,
		cycle.CycleNumber,
		cycle.Status,
		cycle.DueDate,
		cycle.CollectedAmount,
		cycle.CreatedAt,
		cycle.UpdatedAt,
	)

	return err
}

func (r *cycleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ContributionCycle, error) {
	query := `
		SELECT id, chama_id, cycle_number, status, due_date, collected_amount, created_at, updated_at
		FROM contribution_cycles
		WHERE id = $1
	`

	var cycle domain.ContributionCycle
	err := sqlx.GetContext(ctx, r.db.ext(ctx), &cycle, query, id)
	if err != nil {
		return nil, err
	}

	return &cycle, nil
}

func (r *cycleRepository) GetActive(ctx context.Context, chamaID uuid.UUID) (*domain.ContributionCycle, error) {
	query := `
		SELECT id, chama_id, cycle_number, status, due_date, collected_amount, created_at, updated_at
		FROM contribution_cycles
		WHERE chama_id = $1 AND status = 'active'
	`

	var cycle domain.ContributionCycle
	err := sqlx.GetContext(ctx, r.db.ext(ctx), &cycle, query, chamaID)
	if err != nil {
		return nil, err
	}

	return &cycle, nil
}

func (r *cycleRepository) GetNext(ctx context.Context, chamaID uuid.UUID, afterNumber int) (*domain.ContributionCycle, error) {
	query := `
		SELECT id, chama_id, cycle_number, status, due_date, collected_amount, created_at, updated_at
		FROM contribution_cycles
		WHERE chama_id = $1 AND cycle_number > $2 AND status IN ('upcoming', 'active')
		ORDER BY cycle_number
		LIMIT 1
	`

	var cycle domain.ContributionCycle
	err := sqlx.GetContext(ctx, r.db.ext(ctx), &cycle, query, chamaID, afterNumber)
	if err != nil {
		return nil, err
	}

	return &cycle, nil
}

func (r *cycleRepository) ListByChama(ctx context.Context, chamaID uuid.UUID) ([]*domain.ContributionCycle, error) {
	query := `
		SELECT id, chama_id, cycle_number, status, due_date, collected_amount, created_at, updated_at
		FROM contribution_cycles
		WHERE chama_id = $1
		ORDER BY cycle_number
	`

	var cycles []*domain.ContributionCycle
	err := sqlx.SelectContext(ctx, r.db.ext(ctx), &cycles, query, chamaID)
	if err != nil {
		return nil, err
	}

	return cycles, nil
}

func (r *cycleRepository) ListActive(ctx context.Context) ([]*domain.ContributionCycle, error) {
	query := `
		SELECT id, chama_id, cycle_number, status, due_date, collected_amount, created_at, updated_at
		FROM contribution_cycles
		WHERE status = 'active'
		ORDER BY chama_id, cycle_number
	`

	var cycles []*domain.ContributionCycle
	err := sqlx.SelectContext(ctx, r.db.ext(ctx), &cycles, query)
	if err != nil {
		return nil, err
	}

	return cycles, nil
}

func (r *cycleRepository) NextCycleNumber(ctx context.Context, chamaID uuid.UUID) (int, error) {
	query := `
		SELECT COALESCE(MAX(cycle_number), 0) + 1
		FROM contribution_cycles
		WHERE chama_id = $1
	`

	var next int
	err := sqlx.GetContext(ctx, r.db.ext(ctx), &next, query, chamaID)
	return next, err
}

func (r *cycleRepository) CountByChama(ctx context.Context, chamaID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM contribution_cycles
		WHERE chama_id = $1 AND status != 'cancelled'
	`

	var count int
	err := sqlx.GetContext(ctx, r.db.ext(ctx), &count, query, chamaID)
	return count, err
}

func (r *cycleRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE contribution_cycles
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ext(ctx).ExecContext(ctx, query, id, status, time.Now())
	return err
}

func (r *cycleRepository) CompleteActive(ctx context.Context, chamaID, exceptID uuid.UUID) (int64, error) {
	query := `
		UPDATE contribution_cycles
		SET status = 'completed', updated_at = $3
		WHERE chama_id = $1 AND status = 'active' AND id != $2
	`

	result, err := r.db.ext(ctx).ExecContext(ctx, query, chamaID, exceptID, time.Now())
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r *cycleRepository) AddCollected(ctx context.Context, cycleID uuid.UUID, delta decimal.Decimal) error {
	// Decrements (contribution cancellation) clamp at zero.
	query := `
		UPDATE contribution_cycles
		SET collected_amount = GREATEST(0, collected_amount + $2), updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ext(ctx).ExecContext(ctx, query, cycleID, delta, time.Now())
	return err
}

func (r *cycleRepository) AttachType(ctx context.Context, expectation *domain.CycleTypeExpectation) error {
	query := `
		INSERT INTO cycle_types (cycle_id, type_id, expected_amount, position)
		VALUES ($1, $2, $3, (
			SELECT COALESCE(MAX(position), 0) + 1 FROM cycle_types WHERE cycle_id = $1
		))
	`

	_, err := r.db.ext(ctx).ExecContext(ctx, query,
		expectation.CycleID,
		expectation.TypeID,
		expectation.ExpectedAmount,
	)

	return err
}

func (r *cycleRepository) Composition(ctx context.Context, cycleID uuid.UUID) ([]domain.CycleTypeExpectation, error) {
	query := `
		SELECT cycle_id, type_id, expected_amount, position
		FROM cycle_types
		WHERE cycle_id = $1
		ORDER BY position
	`

	var expectations []domain.CycleTypeExpectation
	err := sqlx.SelectContext(ctx, r.db.ext(ctx), &expectations, query, cycleID)
	if err != nil {
		return nil, err
	}

	return expectations, nil
}
