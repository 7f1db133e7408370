package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/chamapesa/chama-engine/internal/domain"
)

type contributionTypeRepository struct {
	db *DB
}

func NewContributionTypeRepository(db *DB) ContributionTypeRepository {
	return &contributionTypeRepository{db: db}
}

func (r *contributionTypeRepository) Create(ctx context.Context, ct *domain.ContributionType) error {
	query := `
		INSERT INTO contribution_types (id, chama_id, name, default_amount, frequency, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ext(ctx).ExecContext(ctx, query,
		ct.ID,
		ct.ChamaID,
		ct.Name,
		ct.DefaultAmount,
		ct.Frequency,
		ct.Active,
		ct.CreatedAt,
	)

	return err
}

func (r *contributionTypeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ContributionType, error) {
	query := `
		SELECT id, chama_id, name, default_amount, frequency, active, created_at
		FROM contribution_types
		WHERE id = $1
	`

	var ct domain.ContributionType
	err := sqlx.GetContext(ctx, r.db.ext(ctx), &ct, query, id)
	if err != nil {
		return nil, err
	}

	return &ct, nil
}

func (r *contributionTypeRepository) ListByChama(ctx context.Context, chamaID uuid.UUID) ([]*domain.ContributionType, error) {
	query := `
		SELECT id, chama_id, name, default_amount, frequency, active, created_at
		FROM contribution_types
		WHERE chama_id = $1 AND active = true
		ORDER BY created_at
	`

	var types []*domain.ContributionType
	err := sqlx.SelectContext(ctx, r.db.ext(ctx), &types, query, chamaID)
	if err != nil {
		return nil, err
	}

	return types, nil
}

func (r *contributionTypeRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE contribution_types
		SET active = false
		WHERE id = $1
	`

	_, err := r.db.ext(ctx).ExecContext(ctx, query, id)
	return err
}
