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
	"github.com/chamapesa/chama-engine/pkg/utils"
)

// LedgerService is the only path by which a member's balance changes. Every
// delta locks the member row, writes the new balance, and appends a ledger
// entry in the same transaction; a failed ledger append fails the whole
// balance update.
type LedgerService struct {
	tx      repository.TxRunner
	Members repository.MemberRepository
	Ledger  repository.LedgerRepository
}

func NewLedgerService(
	tx repository.TxRunner,
	members repository.MemberRepository,
	ledger repository.LedgerRepository,
) *LedgerService {
	return &LedgerService{
		tx:      tx,
		Members: members,
		Ledger:  ledger,
	}
}

// ApplyDeltaParams describes one balance mutation.
type ApplyDeltaParams struct {
	MemberID        uuid.UUID
	Amount          decimal.Decimal
	TransactionType string
	Description     string
	ActingUserID    uuid.UUID
	CycleID         *uuid.UUID
	ContributionID  *uuid.UUID
}

// ApplyDelta atomically moves the member's balance by params.Amount and
// appends the matching ledger entry. Returns the new balance. When called
// inside an ambient transaction (a payment allocation), it joins it; the row
// lock then serializes concurrent mutations of the same member.
func (s *LedgerService) ApplyDelta(ctx context.Context, params ApplyDeltaParams) (decimal.Decimal, error) {
	if params.Amount.IsZero() {
		return decimal.Zero, customError.WrapValidation("adjustment amount must be non-zero")
	}
	if params.TransactionType == "" {
		return decimal.Zero, customError.WrapValidation("transaction type is required")
	}

	amount := utils.NormalizeAmount(params.Amount)

	var newBalance decimal.Decimal
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		member, err := s.Members.GetForUpdate(ctx, params.MemberID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapMemberNotFound(params.MemberID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		newBalance = member.Balance.Add(amount)

		if err := s.Members.UpdateBalance(ctx, member.ID, newBalance); err != nil {
			return customError.WrapDatabaseError(err)
		}

		entry := &domain.LedgerEntry{
			ID:              uuid.New(),
			MemberID:        member.ID,
			Amount:          amount,
			BalanceBefore:   member.Balance,
			BalanceAfter:    newBalance,
			TransactionType: params.TransactionType,
			Description:     params.Description,
			CycleID:         params.CycleID,
			ContributionID:  params.ContributionID,
			CreatedBy:       params.ActingUserID,
			CreatedAt:       time.Now(),
		}

		if err := s.Ledger.Append(ctx, entry); err != nil {
			return customError.WrapDatabaseError(err)
		}

		return nil
	})
	if err != nil {
		if repository.IsSerializationFailure(err) {
			return decimal.Zero, customError.WrapConcurrencyConflict(err)
		}
		return decimal.Zero, err
	}

	return newBalance, nil
}

// History returns the member's ledger entries, newest first.
func (s *LedgerService) History(ctx context.Context, memberID uuid.UUID, limit int) ([]*domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	if _, err := s.Members.GetByID(ctx, memberID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapMemberNotFound(memberID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	entries, err := s.Ledger.ListByMember(ctx, memberID, limit)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return entries, nil
}
