package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chamapesa/chama-engine/internal/domain"
	"github.com/chamapesa/chama-engine/internal/repository"
	customError "github.com/chamapesa/chama-engine/pkg/errors"
)

// MemberService handles member lifecycle. Balance mutations are not here;
// they only go through the ledger service.
type MemberService struct {
	Members repository.MemberRepository
}

func NewMemberService(members repository.MemberRepository) *MemberService {
	return &MemberService{Members: members}
}

// CreateMember registers a member in the chama with a zero balance.
func (s *MemberService) CreateMember(ctx context.Context, chamaID uuid.UUID, req *domain.CreateMemberRequest) (*domain.Member, error) {
	now := time.Now()
	member := &domain.Member{
		ID:        uuid.New(),
		ChamaID:   chamaID,
		Name:      req.Name,
		Phone:     req.Phone,
		Balance:   decimal.Zero,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Members.Create(ctx, member); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return member, nil
}

// GetMember fetches a member by ID.
func (s *MemberService) GetMember(ctx context.Context, memberID uuid.UUID) (*domain.Member, error) {
	member, err := s.Members.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapMemberNotFound(memberID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	return member, nil
}

// RemoveMember soft-removes the member from the chama. The member row and
// its ledger stay for audit.
func (s *MemberService) RemoveMember(ctx context.Context, memberID uuid.UUID) error {
	if _, err := s.GetMember(ctx, memberID); err != nil {
		return err
	}

	if err := s.Members.Deactivate(ctx, memberID); err != nil {
		return customError.WrapDatabaseError(err)
	}

	return nil
}
