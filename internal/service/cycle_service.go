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

// CycleService is the single source of truth for which cycle is active and
// what each cycle expects.
type CycleService struct {
	tx     repository.TxRunner
	Cycles repository.CycleRepository
	Types  repository.ContributionTypeRepository
}

func NewCycleService(
	tx repository.TxRunner,
	cycles repository.CycleRepository,
	types repository.ContributionTypeRepository,
) *CycleService {
	return &CycleService{
		tx:     tx,
		Cycles: cycles,
		Types:  types,
	}
}

// CreateCycle creates the chama's next cycle in upcoming status. Cycle
// numbers are monotonic per chama; the unique constraint on
// (chama_id, cycle_number) backstops concurrent creation.
func (s *CycleService) CreateCycle(ctx context.Context, chamaID uuid.UUID, dueDate time.Time) (*domain.ContributionCycle, error) {
	if dueDate.IsZero() {
		return nil, customError.WrapValidation("due date is required")
	}

	var cycle *domain.ContributionCycle
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		number, err := s.Cycles.NextCycleNumber(ctx, chamaID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		now := time.Now()
		cycle = &domain.ContributionCycle{
			ID:              uuid.New(),
			ChamaID:         chamaID,
			CycleNumber:     number,
			Status:          domain.CycleStatusUpcoming,
			DueDate:         dueDate,
			CollectedAmount: decimal.Zero,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if err := s.Cycles.Create(ctx, cycle); err != nil {
			if repository.IsUniqueViolation(err) {
				return customError.WrapConcurrencyConflict(err)
			}
			return customError.WrapDatabaseError(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return cycle, nil
}

// ActivateCycle promotes the cycle to active. Any other active cycle of the
// same chama is demoted to completed in the same transaction, so the
// single-active invariant holds at every commit point. Activating an already
// active cycle is a no-op.
func (s *CycleService) ActivateCycle(ctx context.Context, chamaID, cycleID uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cycle, err := s.Cycles.GetByID(ctx, cycleID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapCycleNotFound(cycleID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		if cycle.ChamaID != chamaID {
			return customError.WrapCycleNotFound(cycleID.String())
		}

		if cycle.Status == domain.CycleStatusActive {
			return nil
		}

		if !domain.CanTransitionCycle(cycle.Status, domain.CycleStatusActive) {
			return customError.WrapInvalidTransition(cycle.Status, domain.CycleStatusActive)
		}

		if _, err := s.Cycles.CompleteActive(ctx, chamaID, cycleID); err != nil {
			return customError.WrapDatabaseError(err)
		}

		if err := s.Cycles.UpdateStatus(ctx, cycleID, domain.CycleStatusActive); err != nil {
			if repository.IsUniqueViolation(err) {
				return customError.WrapConcurrencyConflict(err)
			}
			return customError.WrapDatabaseError(err)
		}

		return nil
	})
}

// CancelCycle cancels an upcoming or active cycle.
func (s *CycleService) CancelCycle(ctx context.Context, cycleID uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cycle, err := s.Cycles.GetByID(ctx, cycleID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapCycleNotFound(cycleID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		if !domain.CanTransitionCycle(cycle.Status, domain.CycleStatusCancelled) {
			return customError.WrapInvalidTransition(cycle.Status, domain.CycleStatusCancelled)
		}

		if err := s.Cycles.UpdateStatus(ctx, cycleID, domain.CycleStatusCancelled); err != nil {
			return customError.WrapDatabaseError(err)
		}

		return nil
	})
}

// GetActiveCycle returns the chama's active cycle.
func (s *CycleService) GetActiveCycle(ctx context.Context, chamaID uuid.UUID) (*domain.ContributionCycle, error) {
	cycle, err := s.Cycles.GetActive(ctx, chamaID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapNoActiveCycle(chamaID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	return cycle, nil
}

// AttachType adds a contribution type to a cycle's expected composition.
// The attachment order fixes allocation priority. When no cycle-specific
// amount is given, the type's default applies.
func (s *CycleService) AttachType(ctx context.Context, cycleID, typeID uuid.UUID, expectedAmount *decimal.Decimal) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cycle, err := s.Cycles.GetByID(ctx, cycleID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapCycleNotFound(cycleID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		if cycle.Status == domain.CycleStatusCompleted || cycle.Status == domain.CycleStatusCancelled {
			return customError.WrapValidation("cannot change the composition of a finished cycle")
		}

		ct, err := s.Types.GetByID(ctx, typeID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapTypeNotFound(typeID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		if ct.ChamaID != cycle.ChamaID {
			return customError.WrapTypeNotFound(typeID.String())
		}
		if !ct.Active {
			return customError.WrapValidation("contribution type is deactivated")
		}

		expected := ct.DefaultAmount
		if expectedAmount != nil {
			expected = *expectedAmount
		}
		expected = utils.NormalizeAmount(expected)
		if !expected.IsPositive() {
			return customError.WrapValidation("expected amount must be positive")
		}

		expectation := &domain.CycleTypeExpectation{
			CycleID:        cycleID,
			TypeID:         typeID,
			ExpectedAmount: expected,
		}

		if err := s.Cycles.AttachType(ctx, expectation); err != nil {
			if repository.IsUniqueViolation(err) {
				return customError.WrapValidation("type already attached to cycle")
			}
			return customError.WrapDatabaseError(err)
		}

		return nil
	})
}

// ExpectedComposition returns the cycle's ordered expectations and their
// total.
func (s *CycleService) ExpectedComposition(ctx context.Context, cycleID uuid.UUID) (*domain.CompositionResponse, error) {
	if _, err := s.Cycles.GetByID(ctx, cycleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapCycleNotFound(cycleID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	expectations, err := s.Cycles.Composition(ctx, cycleID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	total := decimal.Zero
	for _, e := range expectations {
		total = total.Add(e.ExpectedAmount)
	}

	return &domain.CompositionResponse{
		CycleID:       cycleID,
		Expectations:  expectations,
		ExpectedTotal: total,
	}, nil
}

// RecordCollected adjusts the cycle's aggregate collected amount; negative
// deltas clamp at zero.
func (s *CycleService) RecordCollected(ctx context.Context, cycleID uuid.UUID, delta decimal.Decimal) error {
	if err := s.Cycles.AddCollected(ctx, cycleID, utils.NormalizeAmount(delta)); err != nil {
		return customError.WrapDatabaseError(err)
	}
	return nil
}

// CreateType creates a new contribution type for the chama.
func (s *CycleService) CreateType(ctx context.Context, chamaID uuid.UUID, req *domain.CreateTypeRequest) (*domain.ContributionType, error) {
	amount := utils.NormalizeAmount(req.DefaultAmount)
	if !amount.IsPositive() {
		return nil, customError.WrapValidation("default amount must be positive")
	}

	ct := &domain.ContributionType{
		ID:            uuid.New(),
		ChamaID:       chamaID,
		Name:          req.Name,
		DefaultAmount: amount,
		Frequency:     req.Frequency,
		Active:        true,
		CreatedAt:     time.Now(),
	}

	if err := s.Types.Create(ctx, ct); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return ct, nil
}

// DeactivateType soft-deletes a contribution type. Types referenced by a
// cycle stay queryable through the composition.
func (s *CycleService) DeactivateType(ctx context.Context, typeID uuid.UUID) error {
	if _, err := s.Types.GetByID(ctx, typeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return customError.WrapTypeNotFound(typeID.String())
		}
		return customError.WrapDatabaseError(err)
	}

	if err := s.Types.Deactivate(ctx, typeID); err != nil {
		return customError.WrapDatabaseError(err)
	}

	return nil
}
