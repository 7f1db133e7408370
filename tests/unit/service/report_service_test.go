package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chamapesa/chama-engine/internal/domain"
	chamaService "github.com/chamapesa/chama-engine/internal/service"
	customError "github.com/chamapesa/chama-engine/pkg/errors"
	"github.com/chamapesa/chama-engine/tests/mocks"
)

type reportFixture struct {
	members       *mocks.MockMemberRepository
	cycles        *mocks.MockCycleRepository
	contributions *mocks.MockContributionRepository
	service       *chamaService.ReportService
}

func newReportFixture() *reportFixture {
	f := &reportFixture{
		members:       &mocks.MockMemberRepository{},
		cycles:        &mocks.MockCycleRepository{},
		contributions: &mocks.MockContributionRepository{},
	}
	f.service = chamaService.NewReportService(mocks.PassthroughTxRunner{}, f.members, f.cycles, f.contributions)
	return f
}

func TestMemberSummary_OverdueWithOutstanding(t *testing.T) {
	f := newReportFixture()

	member := testMember(decimal.NewFromInt(-200))
	savingsID := uuid.New()
	welfareID := uuid.New()
	cycle := &domain.ContributionCycle{
		ID:          uuid.New(),
		ChamaID:     member.ChamaID,
		CycleNumber: 4,
		Status:      domain.CycleStatusActive,
		DueDate:     time.Now().Add(-24 * time.Hour),
	}

	f.members.On("GetByID", mock.Anything, member.ID).Return(member, nil)
	f.cycles.On("GetActive", mock.Anything, member.ChamaID).Return(cycle, nil)
	f.cycles.On("Composition", mock.Anything, cycle.ID).Return([]domain.CycleTypeExpectation{
		{TypeID: savingsID, ExpectedAmount: decimal.NewFromInt(1000), Position: 1},
		{TypeID: welfareID, ExpectedAmount: decimal.NewFromInt(500), Position: 2},
	}, nil)
	f.contributions.On("ListByMemberCycle", mock.Anything, member.ID, cycle.ID).Return([]*domain.Contribution{
		{TypeID: &savingsID, Amount: decimal.NewFromInt(400), Status: domain.ContributionStatusPartial},
	}, nil)
	f.cycles.On("CountByChama", mock.Anything, member.ChamaID).Return(4, nil)
	f.contributions.On("CountCyclesWithPaid", mock.Anything, member.ID).Return(3, nil)

	summary, err := f.service.MemberSummary(context.Background(), member.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.BalanceStandingArrears, summary.BalanceStanding)
	assert.True(t, summary.Outstanding.Equal(decimal.NewFromInt(1100)))
	assert.True(t, summary.Overdue)
	assert.True(t, summary.ComplianceRate.Equal(decimal.RequireFromString("0.75")))
	require.Len(t, summary.PerType, 2)
	assert.True(t, summary.PerType[0].Outstanding.Equal(decimal.NewFromInt(600)))
	assert.True(t, summary.PerType[1].Outstanding.Equal(decimal.NewFromInt(500)))
}

func TestMemberSummary_CancelledRowsDoNotCountAsPaid(t *testing.T) {
	f := newReportFixture()

	member := testMember(decimal.Zero)
	savingsID := uuid.New()
	cycle := &domain.ContributionCycle{
		ID:      uuid.New(),
		ChamaID: member.ChamaID,
		Status:  domain.CycleStatusActive,
		DueDate: time.Now().Add(24 * time.Hour),
	}

	f.members.On("GetByID", mock.Anything, member.ID).Return(member, nil)
	f.cycles.On("GetActive", mock.Anything, member.ChamaID).Return(cycle, nil)
	f.cycles.On("Composition", mock.Anything, cycle.ID).Return([]domain.CycleTypeExpectation{
		{TypeID: savingsID, ExpectedAmount: decimal.NewFromInt(1000), Position: 1},
	}, nil)
	f.contributions.On("ListByMemberCycle", mock.Anything, member.ID, cycle.ID).Return([]*domain.Contribution{
		{TypeID: &savingsID, Amount: decimal.NewFromInt(1000), Status: domain.ContributionStatusCancelled},
	}, nil)
	f.cycles.On("CountByChama", mock.Anything, member.ChamaID).Return(1, nil)
	f.contributions.On("CountCyclesWithPaid", mock.Anything, member.ID).Return(0, nil)

	summary, err := f.service.MemberSummary(context.Background(), member.ID)

	require.NoError(t, err)
	assert.True(t, summary.Outstanding.Equal(decimal.NewFromInt(1000)))
	assert.False(t, summary.Overdue)
}

func TestMemberSummary_NoActiveCycleStillReports(t *testing.T) {
	f := newReportFixture()

	member := testMember(decimal.NewFromInt(300))
	f.members.On("GetByID", mock.Anything, member.ID).Return(member, nil)
	f.cycles.On("GetActive", mock.Anything, member.ChamaID).Return(nil, sql.ErrNoRows)
	f.cycles.On("CountByChama", mock.Anything, member.ChamaID).Return(0, nil)
	f.contributions.On("CountCyclesWithPaid", mock.Anything, member.ID).Return(0, nil)

	summary, err := f.service.MemberSummary(context.Background(), member.ID)

	require.NoError(t, err)
	assert.Nil(t, summary.ActiveCycleID)
	assert.Equal(t, domain.BalanceStandingCredit, summary.BalanceStanding)
	assert.True(t, summary.Outstanding.IsZero())
	assert.True(t, summary.ComplianceRate.IsZero(), "zero cycles must not divide by zero")
}

func TestMemberSummary_MemberNotFound(t *testing.T) {
	f := newReportFixture()

	memberID := uuid.New()
	f.members.On("GetByID", mock.Anything, memberID).Return(nil, sql.ErrNoRows)

	_, err := f.service.MemberSummary(context.Background(), memberID)

	assert.ErrorIs(t, err, customError.ErrMemberNotFound)
}

func TestCycleSummary_AggregatesAcrossMembers(t *testing.T) {
	f := newReportFixture()

	chamaID := uuid.New()
	savingsID := uuid.New()
	cycle := &domain.ContributionCycle{
		ID:              uuid.New(),
		ChamaID:         chamaID,
		CycleNumber:     2,
		Status:          domain.CycleStatusActive,
		DueDate:         time.Now().Add(48 * time.Hour),
		CollectedAmount: decimal.NewFromInt(1500),
	}

	f.cycles.On("GetByID", mock.Anything, cycle.ID).Return(cycle, nil)
	f.members.On("CountActiveByChama", mock.Anything, chamaID).Return(3, nil)
	f.cycles.On("Composition", mock.Anything, cycle.ID).Return([]domain.CycleTypeExpectation{
		{TypeID: savingsID, ExpectedAmount: decimal.NewFromInt(1000), Position: 1},
	}, nil)
	f.contributions.On("ListByCycle", mock.Anything, cycle.ID).Return([]*domain.Contribution{
		{TypeID: &savingsID, Amount: decimal.NewFromInt(1000), Status: domain.ContributionStatusPaid},
		{TypeID: &savingsID, Amount: decimal.NewFromInt(500), Status: domain.ContributionStatusPartial},
		{TypeID: &savingsID, Amount: decimal.Zero, Status: domain.ContributionStatusPending},
	}, nil)

	summary, err := f.service.CycleSummary(context.Background(), cycle.ID)

	require.NoError(t, err)
	assert.Equal(t, 3, summary.MemberCount)
	assert.True(t, summary.ExpectedTotal.Equal(decimal.NewFromInt(3000)))
	assert.True(t, summary.Collected.Equal(decimal.NewFromInt(1500)))
	assert.True(t, summary.Outstanding.Equal(decimal.NewFromInt(1500)))
	assert.True(t, summary.CollectionRate.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, 1, summary.CountByStatus[domain.ContributionStatusPaid])
	assert.Equal(t, 1, summary.CountByStatus[domain.ContributionStatusPartial])
	assert.Equal(t, 1, summary.CountByStatus[domain.ContributionStatusPending])
}

func TestCycleSummary_CycleNotFound(t *testing.T) {
	f := newReportFixture()

	cycleID := uuid.New()
	f.cycles.On("GetByID", mock.Anything, cycleID).Return(nil, sql.ErrNoRows)

	_, err := f.service.CycleSummary(context.Background(), cycleID)

	assert.ErrorIs(t, err, customError.ErrCycleNotFound)
}

func TestMemberSummary_WaivedObligationNotOutstanding(t *testing.T) {
	f := newReportFixture()

	member := testMember(decimal.Zero)
	savingsID := uuid.New()
	cycle := &domain.ContributionCycle{
		ID:      uuid.New(),
		ChamaID: member.ChamaID,
		Status:  domain.CycleStatusActive,
		DueDate: time.Now().Add(-24 * time.Hour),
	}

	f.members.On("GetByID", mock.Anything, member.ID).Return(member, nil)
	f.cycles.On("GetActive", mock.Anything, member.ChamaID).Return(cycle, nil)
	f.cycles.On("Composition", mock.Anything, cycle.ID).Return([]domain.CycleTypeExpectation{
		{TypeID: savingsID, ExpectedAmount: decimal.NewFromInt(1000), Position: 1},
	}, nil)
	// 300 was paid before the remaining 700 was forgiven.
	f.contributions.On("ListByMemberCycle", mock.Anything, member.ID, cycle.ID).Return([]*domain.Contribution{
		{TypeID: &savingsID, Amount: decimal.NewFromInt(300), ExpectedAmount: decimal.NewFromInt(1000), Status: domain.ContributionStatusWaived},
	}, nil)
	f.cycles.On("CountByChama", mock.Anything, member.ChamaID).Return(1, nil)
	f.contributions.On("CountCyclesWithPaid", mock.Anything, member.ID).Return(0, nil)

	summary, err := f.service.MemberSummary(context.Background(), member.ID)

	require.NoError(t, err)
	assert.True(t, summary.Outstanding.IsZero())
	assert.False(t, summary.Overdue, "a forgiven obligation must not flag the member overdue")
	require.Len(t, summary.PerType, 1)
	assert.True(t, summary.PerType[0].Paid.Equal(decimal.NewFromInt(300)))
	assert.True(t, summary.PerType[0].Outstanding.IsZero())
}
