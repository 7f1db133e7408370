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

// ReportService derives read-only summaries. Every query runs inside a
// single repeatable-read snapshot so concurrent payments cannot produce a
// report that mixes states.
type ReportService struct {
	tx            repository.TxRunner
	Members       repository.MemberRepository
	Cycles        repository.CycleRepository
	Contributions repository.ContributionRepository
}

func NewReportService(
	tx repository.TxRunner,
	members repository.MemberRepository,
	cycles repository.CycleRepository,
	contributions repository.ContributionRepository,
) *ReportService {
	return &ReportService{
		tx:            tx,
		Members:       members,
		Cycles:        cycles,
		Contributions: contributions,
	}
}

// MemberSummary reports the member's outstanding obligations in the active
// cycle, overdue state, compliance rate and balance standing.
func (s *ReportService) MemberSummary(ctx context.Context, memberID uuid.UUID) (*domain.MemberSummary, error) {
	var summary *domain.MemberSummary

	err := s.tx.WithinReadTx(ctx, func(ctx context.Context) error {
		member, err := s.Members.GetByID(ctx, memberID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapMemberNotFound(memberID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		summary = &domain.MemberSummary{
			MemberID:        member.ID,
			ChamaID:         member.ChamaID,
			Balance:         member.Balance,
			BalanceStanding: domain.BalanceStanding(member.Balance),
			Outstanding:     decimal.Zero,
			ComplianceRate:  decimal.Zero,
		}

		cycle, err := s.Cycles.GetActive(ctx, member.ChamaID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return customError.WrapDatabaseError(err)
		}

		if cycle != nil {
			summary.ActiveCycleID = &cycle.ID

			perType, outstanding, err := s.outstandingByType(ctx, cycle.ID, &memberID, 1)
			if err != nil {
				return err
			}
			summary.PerType = perType
			summary.Outstanding = outstanding
			summary.Overdue = cycle.DueDate.Before(time.Now()) && outstanding.IsPositive()
		}

		total, err := s.Cycles.CountByChama(ctx, member.ChamaID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		paid, err := s.Contributions.CountCyclesWithPaid(ctx, memberID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		summary.CyclesTotal = total
		summary.CyclesPaid = paid
		summary.ComplianceRate = utils.Ratio(decimal.NewFromInt(int64(paid)), decimal.NewFromInt(int64(total)))

		return nil
	})
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// CycleSummary reports collection progress across the whole cycle.
func (s *ReportService) CycleSummary(ctx context.Context, cycleID uuid.UUID) (*domain.CycleSummary, error) {
	var summary *domain.CycleSummary

	err := s.tx.WithinReadTx(ctx, func(ctx context.Context) error {
		cycle, err := s.Cycles.GetByID(ctx, cycleID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapCycleNotFound(cycleID.String())
			}
			return customError.WrapDatabaseError(err)
		}

		memberCount, err := s.Members.CountActiveByChama(ctx, cycle.ChamaID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		perType, _, err := s.outstandingByType(ctx, cycle.ID, nil, memberCount)
		if err != nil {
			return err
		}

		contributions, err := s.Contributions.ListByCycle(ctx, cycle.ID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		countByStatus := make(map[string]int)
		for _, c := range contributions {
			countByStatus[c.Status]++
		}

		expectedTotal := decimal.Zero
		for _, pt := range perType {
			expectedTotal = expectedTotal.Add(pt.Expected)
		}

		summary = &domain.CycleSummary{
			CycleID:        cycle.ID,
			ChamaID:        cycle.ChamaID,
			CycleNumber:    cycle.CycleNumber,
			Status:         cycle.Status,
			DueDate:        cycle.DueDate,
			MemberCount:    memberCount,
			ExpectedTotal:  expectedTotal,
			Collected:      cycle.CollectedAmount,
			Outstanding:    utils.Shortfall(expectedTotal, cycle.CollectedAmount),
			CollectionRate: utils.Ratio(cycle.CollectedAmount, expectedTotal),
			PerType:        perType,
			CountByStatus:  countByStatus,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// outstandingByType computes per-type expected/paid/outstanding for one
// member (memberID set, multiplier 1) or the whole cycle (memberID nil,
// multiplier = member count).
func (s *ReportService) outstandingByType(ctx context.Context, cycleID uuid.UUID, memberID *uuid.UUID, multiplier int) ([]domain.TypeOutstanding, decimal.Decimal, error) {
	composition, err := s.Cycles.Composition(ctx, cycleID)
	if err != nil {
		return nil, decimal.Zero, customError.WrapDatabaseError(err)
	}

	var contributions []*domain.Contribution
	if memberID != nil {
		contributions, err = s.Contributions.ListByMemberCycle(ctx, *memberID, cycleID)
	} else {
		contributions, err = s.Contributions.ListByCycle(ctx, cycleID)
	}
	if err != nil {
		return nil, decimal.Zero, customError.WrapDatabaseError(err)
	}

	paidByType := make(map[uuid.UUID]decimal.Decimal)
	forgivenByType := make(map[uuid.UUID]decimal.Decimal)
	for _, c := range contributions {
		if c.TypeID == nil || c.Status == domain.ContributionStatusCancelled {
			continue
		}
		paidByType[*c.TypeID] = paidByType[*c.TypeID].Add(c.Amount)
		if c.Status == domain.ContributionStatusWaived {
			// A waiver forgives whatever was still owed on the row.
			forgivenByType[*c.TypeID] = forgivenByType[*c.TypeID].Add(utils.Shortfall(c.ExpectedAmount, c.Amount))
		}
	}

	perType := make([]domain.TypeOutstanding, 0, len(composition))
	totalOutstanding := decimal.Zero
	for _, exp := range composition {
		expected := exp.ExpectedAmount.Mul(decimal.NewFromInt(int64(multiplier)))
		paid := paidByType[exp.TypeID]
		outstanding := utils.Shortfall(expected, paid.Add(forgivenByType[exp.TypeID]))
		totalOutstanding = totalOutstanding.Add(outstanding)

		perType = append(perType, domain.TypeOutstanding{
			TypeID:      exp.TypeID,
			Expected:    expected,
			Paid:        paid,
			Outstanding: outstanding,
		})
	}

	return perType, totalOutstanding, nil
}
