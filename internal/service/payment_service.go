package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chamapesa/chama-engine/internal/cache"
	"github.com/chamapesa/chama-engine/internal/domain"
	"github.com/chamapesa/chama-engine/internal/repository"
	customError "github.com/chamapesa/chama-engine/pkg/errors"
	"github.com/chamapesa/chama-engine/pkg/utils"
)

// PaymentService distributes incoming payments across a member's outstanding
// obligations. One payment runs as one transaction: the member row lock taken
// at the start serializes allocations per member, and any failure rolls back
// every contribution row, ledger entry and cycle total written so far.
type PaymentService struct {
	tx            repository.TxRunner
	Members       repository.MemberRepository
	Cycles        repository.CycleRepository
	Contributions repository.ContributionRepository
	Payments      repository.PaymentRepository
	Ledger        *LedgerService
	Registry      *CycleService
	guard         *cache.IdempotencyGuard
	notifier      Notifier
	logger        *slog.Logger
}

func NewPaymentService(
	tx repository.TxRunner,
	members repository.MemberRepository,
	cycles repository.CycleRepository,
	contributions repository.ContributionRepository,
	payments repository.PaymentRepository,
	ledger *LedgerService,
	registry *CycleService,
	guard *cache.IdempotencyGuard,
	notifier Notifier,
) *PaymentService {
	return &PaymentService{
		tx:            tx,
		Members:       members,
		Cycles:        cycles,
		Contributions: contributions,
		Payments:      payments,
		Ledger:        ledger,
		Registry:      registry,
		guard:         guard,
		notifier:      notifier,
		logger:        slog.Default(),
	}
}

// RecordPayment applies one confirmed payment exactly once, keyed by its
// gateway reference. Allocation order is fixed:
//
//  1. the targeted type's shortfall, when a type is given;
//  2. arrears clearance, when apply_to_balance is set and the balance is
//     negative;
//  3. the remaining cycle types in composition order (skipped for targeted
//     payments unless apply_to_balance is also set);
//  4. overflow, rolled into the next upcoming/active cycle when one exists,
//     otherwise credited to the balance.
//
// The returned breakdown always sums to the payment amount.
func (s *PaymentService) RecordPayment(ctx context.Context, req *domain.RecordPaymentRequest, actingUserID uuid.UUID) (*domain.AllocationResult, error) {
	amount := utils.NormalizeAmount(req.Amount)
	if !amount.IsPositive() {
		return nil, customError.WrapValidation("payment amount must be positive")
	}
	if req.Reference == "" {
		return nil, customError.WrapValidation("payment reference is required")
	}

	// Fast-path replay check. The unique reference constraint on the
	// payments table remains the durable guard, so a cache failure only
	// costs us the short-circuit.
	reserved := false
	if s.guard != nil {
		ok, err := s.guard.Reserve(ctx, req.Reference)
		if err != nil {
			s.logger.WarnContext(ctx, "idempotency cache unavailable", "error", customError.WrapCacheError(err))
		} else if !ok {
			return nil, customError.WrapDuplicatePayment(req.Reference)
		} else {
			reserved = true
		}
	}

	result, err := s.allocate(ctx, req, amount, actingUserID)
	if err != nil {
		// Free the reservation so the caller can retry once the cause is
		// fixed; a genuine duplicate keeps its reservation.
		if reserved && !errors.Is(err, customError.ErrDuplicatePayment) {
			if relErr := s.guard.Release(ctx, req.Reference); relErr != nil {
				s.logger.WarnContext(ctx, "failed to release payment reservation", "reference", req.Reference, "error", relErr)
			}
		}
		if repository.IsSerializationFailure(err) {
			return nil, customError.WrapConcurrencyConflict(err)
		}
		return nil, err
	}

	if s.notifier != nil {
		if nerr := s.notifier.PaymentRecorded(ctx, result); nerr != nil {
			s.logger.WarnContext(ctx, "payment notification failed", "reference", result.Reference, "error", nerr)
		}
	}

	return result, nil
}

func (s *PaymentService) allocate(ctx context.Context, req *domain.RecordPaymentRequest, amount decimal.Decimal, actingUserID uuid.UUID) (*domain.AllocationResult, error) {
	result := &domain.AllocationResult{
		Reference:      req.Reference,
		MemberID:       req.MemberID,
		Amount:         amount,
		BalanceCleared: decimal.Zero,
		Rollover:       decimal.Zero,
		Credit:         decimal.Zero,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// Locking the member row serializes all allocations and balance
		// adjustments for this member.
		member, err := s.Members.GetForUpdate(ctx, req.MemberID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapMemberNotFound(req.MemberID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		cycle, err := s.Cycles.GetActive(ctx, member.ChamaID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapNoActiveCycle(member.ChamaID.String())
			}
			return customError.WrapDatabaseError(err)
		}
		result.CycleID = cycle.ID

		payment := &domain.Payment{
			ID:        uuid.New(),
			Reference: req.Reference,
			MemberID:  member.ID,
			CycleID:   cycle.ID,
			Amount:    amount,
			CreatedBy: actingUserID,
			CreatedAt: time.Now(),
		}
		if err := s.Payments.Create(ctx, payment); err != nil {
			if repository.IsUniqueViolation(err) {
				return customError.WrapDuplicatePayment(req.Reference)
			}
			return customError.WrapDatabaseError(err)
		}
		result.PaymentID = payment.ID

		composition, err := s.Cycles.Composition(ctx, cycle.ID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		remaining := amount
		newBalance := member.Balance

		// Step 1: targeted type.
		if req.TypeID != nil {
			exp, ok := findExpectation(composition, *req.TypeID)
			if !ok {
				return customError.WrapTypeNotFound(req.TypeID.String())
			}
			remaining, err = s.allocateToType(ctx, member.ID, cycle.ID, exp, remaining, result)
			if err != nil {
				return err
			}
		}

		// Step 2: arrears clearance.
		if req.ApplyToBalance && remaining.IsPositive() && newBalance.IsNegative() {
			clear := utils.MinAmount(remaining, newBalance.Neg())
			newBalance, err = s.Ledger.ApplyDelta(ctx, ApplyDeltaParams{
				MemberID:        member.ID,
				Amount:          clear,
				TransactionType: domain.TxnTypeContribution,
				Description:     fmt.Sprintf("arrears cleared by payment %s", req.Reference),
				ActingUserID:    actingUserID,
				CycleID:         &cycle.ID,
			})
			if err != nil {
				return err
			}
			result.BalanceCleared = clear
			remaining = remaining.Sub(clear)
		}

		// Step 3: remaining cycle types in composition order. A targeted
		// payment spreads its surplus only when apply_to_balance asked for
		// general settling.
		if req.TypeID == nil || req.ApplyToBalance {
			for _, exp := range composition {
				if !remaining.IsPositive() {
					break
				}
				if req.TypeID != nil && exp.TypeID == *req.TypeID {
					continue
				}
				remaining, err = s.allocateToType(ctx, member.ID, cycle.ID, exp, remaining, result)
				if err != nil {
					return err
				}
			}
		}

		// Step 4: overflow, exactly one terminal path.
		if remaining.IsPositive() {
			next, err := s.Cycles.GetNext(ctx, member.ChamaID, cycle.CycleNumber)
			switch {
			case err == nil:
				rollover := &domain.Contribution{
					ID:             uuid.New(),
					MemberID:       member.ID,
					CycleID:        next.ID,
					Amount:         remaining,
					ExpectedAmount: remaining,
					Status:         domain.ContributionStatusPaid,
					Rollover:       true,
					CreatedAt:      time.Now(),
					UpdatedAt:      time.Now(),
				}
				if err := s.Contributions.Create(ctx, rollover); err != nil {
					return customError.WrapDatabaseError(err)
				}
				newBalance, err = s.Ledger.ApplyDelta(ctx, ApplyDeltaParams{
					MemberID:        member.ID,
					Amount:          remaining,
					TransactionType: domain.TxnTypeRollover,
					Description:     fmt.Sprintf("surplus from payment %s rolled into cycle %d", req.Reference, next.CycleNumber),
					ActingUserID:    actingUserID,
					CycleID:         &next.ID,
					ContributionID:  &rollover.ID,
				})
				if err != nil {
					return err
				}
				if err := s.Registry.RecordCollected(ctx, next.ID, remaining); err != nil {
					return err
				}
				result.Rollover = remaining
				result.RolloverCycleID = &next.ID
			case errors.Is(err, sql.ErrNoRows):
				newBalance, err = s.Ledger.ApplyDelta(ctx, ApplyDeltaParams{
					MemberID:        member.ID,
					Amount:          remaining,
					TransactionType: domain.TxnTypeCredit,
					Description:     fmt.Sprintf("credit from payment %s", req.Reference),
					ActingUserID:    actingUserID,
				})
				if err != nil {
					return err
				}
				result.Credit = remaining
			default:
				return customError.WrapDatabaseError(err)
			}
			remaining = decimal.Zero
		}

		result.NewBalance = newBalance
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// allocateToType applies min(remaining, shortfall) to the member's
// accumulation row for the type and bumps the cycle's collected total.
// A waived row absorbs nothing; a cancelled row restarts the obligation.
// Returns what is left of the payment.
func (s *PaymentService) allocateToType(ctx context.Context, memberID, cycleID uuid.UUID, exp domain.CycleTypeExpectation, remaining decimal.Decimal, result *domain.AllocationResult) (decimal.Decimal, error) {
	alreadyPaid := decimal.Zero
	existing, err := s.Contributions.GetByKey(ctx, memberID, cycleID, exp.TypeID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return remaining, customError.WrapDatabaseError(err)
	}
	if existing != nil {
		switch existing.Status {
		case domain.ContributionStatusWaived:
			// A forgiven obligation takes no further money.
			return remaining, nil
		case domain.ContributionStatusCancelled:
			// The cancelled amount was reversed out of the cycle total,
			// so the obligation starts over from zero.
		default:
			alreadyPaid = existing.Amount
		}
	}

	alloc := utils.MinAmount(remaining, utils.Shortfall(exp.ExpectedAmount, alreadyPaid))
	if !alloc.IsPositive() {
		return remaining, nil
	}

	contribution, err := s.Contributions.UpsertAccumulate(ctx, memberID, cycleID, exp.TypeID, exp.ExpectedAmount, alloc)
	if err != nil {
		return remaining, customError.WrapDatabaseError(err)
	}

	if err := s.Registry.RecordCollected(ctx, cycleID, alloc); err != nil {
		return remaining, err
	}

	result.TypeAllocations = append(result.TypeAllocations, domain.TypeAllocation{
		TypeID:         exp.TypeID,
		ContributionID: contribution.ID,
		Amount:         alloc,
		Status:         contribution.Status,
	})

	return remaining.Sub(alloc), nil
}

func findExpectation(composition []domain.CycleTypeExpectation, typeID uuid.UUID) (domain.CycleTypeExpectation, bool) {
	for _, exp := range composition {
		if exp.TypeID == typeID {
			return exp, true
		}
	}
	return domain.CycleTypeExpectation{}, false
}

// WaiveContribution marks an obligation as waived without moving money.
func (s *PaymentService) WaiveContribution(ctx context.Context, contributionID uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		contribution, err := s.Contributions.GetByID(ctx, contributionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapContributionNotFound(contributionID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		switch contribution.Status {
		case domain.ContributionStatusPaid, domain.ContributionStatusCancelled, domain.ContributionStatusWaived:
			return customError.WrapValidation("contribution cannot be waived in status " + contribution.Status)
		}

		if err := s.Contributions.UpdateStatus(ctx, contributionID, domain.ContributionStatusWaived); err != nil {
			return customError.WrapDatabaseError(err)
		}

		return nil
	})
}

// CancelContribution voids a contribution row. The cycle's collected total
// is decremented (clamped at zero); a rollover row also reverses the balance
// credit it carried, through the ledger.
func (s *PaymentService) CancelContribution(ctx context.Context, contributionID, actingUserID uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		contribution, err := s.Contributions.GetByID(ctx, contributionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapContributionNotFound(contributionID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		if contribution.Status == domain.ContributionStatusCancelled {
			return customError.WrapValidation("contribution is already cancelled")
		}

		if err := s.Contributions.UpdateStatus(ctx, contributionID, domain.ContributionStatusCancelled); err != nil {
			return customError.WrapDatabaseError(err)
		}

		if contribution.Amount.IsPositive() {
			if err := s.Registry.RecordCollected(ctx, contribution.CycleID, contribution.Amount.Neg()); err != nil {
				return err
			}
		}

		if contribution.Rollover && contribution.Amount.IsPositive() {
			_, err := s.Ledger.ApplyDelta(ctx, ApplyDeltaParams{
				MemberID:        contribution.MemberID,
				Amount:          contribution.Amount.Neg(),
				TransactionType: domain.TxnTypeAdjustment,
				Description:     "rollover contribution cancelled",
				ActingUserID:    actingUserID,
				CycleID:         &contribution.CycleID,
				ContributionID:  &contribution.ID,
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
}
