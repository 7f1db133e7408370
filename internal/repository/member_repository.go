package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/chamapesa/chama-engine/internal/domain"
)

type memberRepository struct {
	db *DB
}

func NewMemberRepository(db *DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Create(ctx context.Context, member *domain.Member) error {
	query := `
		INSERT INTO members (id, chama_id, name, phone, balance, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ext(ctx).ExecContext(ctx, query,
		member.ID,
		member.ChamaID,
		member.Name,
		member.Phone,
		member.Balance,
		member.Active,
		member.CreatedAt,
		member.UpdatedAt,
	)

	return err
}

func (r *memberRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	query := `
		SELECT id, chama_id, name, phone, balance, active, created_at, updated_at
		FROM members
		WHERE id = $1
	`

	var member domain.Member
	err := sqlx.GetContext(ctx, r.db.ext(ctx), &member, query, id)
	if err != nil {
		return nil, err
	}

	return &member, nil
}

func (r *memberRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	query := `
		SELECT id, chama_id, name, phone, balance, active, created_at, updated_at
		FROM members
		WHERE id = $1
		FOR UPDATE
	`

	var member domain.Member
	err := sqlx.GetContext(ctx, r.db.ext(ctx), &member, query, id)
	if err != nil {
		return nil, err
	}

	return &member, nil
}

func (r *memberRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	query := `
		UPDATE members
		SET balance = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ext(ctx).ExecContext(ctx, query, id, balance, time.Now())
	return err
}

func (r *memberRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE members
		SET active = false, updated_at = $2
		WHERE id = $1
	`

	_, err := r.db.ext(ctx).ExecContext(ctx, query, id, time.Now())
	return err
}

func (r *memberRepository) ListActiveByChama(ctx context.Context, chamaID uuid.UUID) ([]*domain.Member, error) {
	query := `
		SELECT id, chama_id, name, phone, balance, active, created_at, updated_at
		FROM members
		WHERE chama_id = $1 AND active = true
		ORDER BY created_at
	`

	var members []*domain.Member
	err := sqlx.SelectContext(ctx, r.db.ext(ctx), &members, query, chamaID)
	if err != nil {
		return nil, err
	}

	return members, nil
}

func (r *memberRepository) CountActiveByChama(ctx context.Context, chamaID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM members
		WHERE chama_id = $1 AND active = true
	`

	var count int
	err := sqlx.GetContext(ctx, r.db.ext(ctx), &count, query, chamaID)
	return count, err
}
