package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chamapesa/chama-engine/internal/domain"
	chamaService "github.com/chamapesa/chama-engine/internal/service"
	customError "github.com/chamapesa/chama-engine/pkg/errors"
	"github.com/chamapesa/chama-engine/tests/mocks"
)

type paymentFixture struct {
	members       *mocks.MockMemberRepository
	cycles        *mocks.MockCycleRepository
	contributions *mocks.MockContributionRepository
	payments      *mocks.MockPaymentRepository
	ledger        *mocks.MockLedgerRepository
	service       *chamaService.PaymentService
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		members:       &mocks.MockMemberRepository{},
		cycles:        &mocks.MockCycleRepository{},
		contributions: &mocks.MockContributionRepository{},
		payments:      &mocks.MockPaymentRepository{},
		ledger:        &mocks.MockLedgerRepository{},
	}
	tx := mocks.PassthroughTxRunner{}
	types := &mocks.MockContributionTypeRepository{}
	ledgerSvc := chamaService.NewLedgerService(tx, f.members, f.ledger)
	registry := chamaService.NewCycleService(tx, f.cycles, types)
	f.service = chamaService.NewPaymentService(
		tx, f.members, f.cycles, f.contributions, f.payments,
		ledgerSvc, registry, nil, nil,
	)
	return f
}

func (f *paymentFixture) assertExpectations(t *testing.T) {
	f.members.AssertExpectations(t)
	f.cycles.AssertExpectations(t)
	f.contributions.AssertExpectations(t)
	f.payments.AssertExpectations(t)
	f.ledger.AssertExpectations(t)
}

func testMember(balance decimal.Decimal) *domain.Member {
	return &domain.Member{
		ID:      uuid.New(),
		ChamaID: uuid.New(),
		Name:    "Wanjiku",
		Phone:   "+254700000001",
		Balance: balance,
		Active:  true,
	}
}

func testCycle(chamaID uuid.UUID, number int) *domain.ContributionCycle {
	return &domain.ContributionCycle{
		ID:          uuid.New(),
		ChamaID:     chamaID,
		CycleNumber: number,
		Status:      domain.CycleStatusActive,
		DueDate:     time.Now().Add(7 * 24 * time.Hour),
	}
}

func TestRecordPayment_ClearsArrearsThenFundsTypes(t *testing.T) {
	f := newPaymentFixture()

	member := testMember(decimal.NewFromInt(-500))
	cycle := testCycle(member.ChamaID, 3)
	typeID := uuid.New()
	actor := uuid.New()

	f.members.On("GetForUpdate", mock.Anything, member.ID).Return(member, nil)
	f.cycles.On("GetActive", mock.Anything, member.ChamaID).Return(cycle, nil)
	f.payments.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.Reference == "MPESA-001" && p.Amount.Equal(decimal.NewFromInt(1500))
	})).Return(nil)
	f.cycles.On("Composition", mock.Anything, cycle.ID).Return([]domain.CycleTypeExpectation{
		{CycleID: cycle.ID, TypeID: typeID, ExpectedAmount: decimal.NewFromInt(1000), Position: 1},
	}, nil)

	// Arrears clearance runs through the ledger.
	f.members.On("UpdateBalance", mock.Anything, member.ID, mock.MatchedBy(func(b decimal.Decimal) bool {
		return b.IsZero()
	})).Return(nil)
	f.ledger.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.LedgerEntry) bool {
		return e.Amount.Equal(decimal.NewFromInt(500)) &&
			e.BalanceBefore.Equal(decimal.NewFromInt(-500)) &&
			e.BalanceAfter.IsZero() &&
			e.TransactionType == domain.TxnTypeContribution
	})).Return(nil)

	f.contributions.On("GetByKey", mock.Anything, member.ID, cycle.ID, typeID).Return(nil, sql.ErrNoRows)
	f.contributions.On("UpsertAccumulate", mock.Anything, member.ID, cycle.ID, typeID,
		mock.MatchedBy(func(expected decimal.Decimal) bool { return expected.Equal(decimal.NewFromInt(1000)) }),
		mock.MatchedBy(func(delta decimal.Decimal) bool { return delta.Equal(decimal.NewFromInt(1000)) }),
	).Return(&domain.Contribution{
		ID:     uuid.New(),
		Amount: decimal.NewFromInt(1000),
		Status: domain.ContributionStatusPaid,
	}, nil)
	f.cycles.On("AddCollected", mock.Anything, cycle.ID, mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.NewFromInt(1000))
	})).Return(nil)

	result, err := f.service.RecordPayment(context.Background(), &domain.RecordPaymentRequest{
		MemberID:       member.ID,
		Amount:         decimal.NewFromInt(1500),
		Reference:      "MPESA-001",
		ApplyToBalance: true,
	}, actor)

	require.NoError(t, err)
	assert.True(t, result.BalanceCleared.Equal(decimal.NewFromInt(500)))
	require.Len(t, result.TypeAllocations, 1)
	assert.True(t, result.TypeAllocations[0].Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, domain.ContributionStatusPaid, result.TypeAllocations[0].Status)
	assert.True(t, result.Rollover.IsZero())
	assert.True(t, result.Credit.IsZero())
	assert.True(t, result.NewBalance.IsZero())
	assert.True(t, result.Allocated().Equal(result.Amount), "allocation must conserve the payment amount")
	f.assertExpectations(t)
}

func TestRecordPayment_AccumulatesPartialIntoPaid(t *testing.T) {
	f := newPaymentFixture()

	member := testMember(decimal.Zero)
	cycle := testCycle(member.ChamaID, 1)
	typeID := uuid.New()

	f.members.On("GetForUpdate", mock.Anything, member.ID).Return(member, nil)
	f.cycles.On("GetActive", mock.Anything, member.ChamaID).Return(cycle, nil)
	f.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.cycles.On("Composition", mock.Anything, cycle.ID).Return([]domain.CycleTypeExpectation{
		{CycleID: cycle.ID, TypeID: typeID, ExpectedAmount: decimal.NewFromInt(1000), Position: 1},
	}, nil)

	// A 300 partial already exists, so only the 700 shortfall is taken.
	f.contributions.On("GetByKey", mock.Anything, member.ID, cycle.ID, typeID).Return(&domain.Contribution{
		ID:     uuid.New(),
		Amount: decimal.NewFromInt(300),
		Status: domain.ContributionStatusPartial,
	}, nil)
	f.contributions.On("UpsertAccumulate", mock.Anything, member.ID, cycle.ID, typeID,
		mock.Anything,
		mock.MatchedBy(func(delta decimal.Decimal) bool { return delta.Equal(decimal.NewFromInt(700)) }),
	).Return(&domain.Contribution{
		ID:     uuid.New(),
		Amount: decimal.NewFromInt(1000),
		Status: domain.ContributionStatusPaid,
	}, nil)
	f.cycles.On("AddCollected", mock.Anything, cycle.ID, mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.NewFromInt(700))
	})).Return(nil)

	result, err := f.service.RecordPayment(context.Background(), &domain.RecordPaymentRequest{
		MemberID:  member.ID,
		Amount:    decimal.NewFromInt(700),
		Reference: "MPESA-002",
	}, uuid.New())

	require.NoError(t, err)
	require.Len(t, result.TypeAllocations, 1)
	assert.Equal(t, domain.ContributionStatusPaid, result.TypeAllocations[0].Status)
	assert.True(t, result.NewBalance.IsZero())
	f.assertExpectations(t)
}

func TestRecordPayment_SurplusBecomesCreditWithoutNextCycle(t *testing.T) {
	f := newPaymentFixture()

	member := testMember(decimal.Zero)
	cycle := testCycle(member.ChamaID, 5)
	typeID := uuid.New()

	f.members.On("GetForUpdate", mock.Anything, member.ID).Return(member, nil)
	f.cycles.On("GetActive", mock.Anything, member.ChamaID).Return(cycle, nil)
	f.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.cycles.On("Composition", mock.Anything, cycle.ID).Return([]domain.CycleTypeExpectation{
		{CycleID: cycle.ID, TypeID: typeID, ExpectedAmount: decimal.NewFromInt(1000), Position: 1},
	}, nil)
	f.contributions.On("GetByKey", mock.Anything, member.ID, cycle.ID, typeID).Return(nil, sql.ErrNoRows)
	f.contributions.On("UpsertAccumulate", mock.Anything, member.ID, cycle.ID, typeID, mock.Anything, mock.Anything).
		Return(&domain.Contribution{ID: uuid.New(), Amount: decimal.NewFromInt(1000), Status: domain.ContributionStatusPaid}, nil)
	f.cycles.On("AddCollected", mock.Anything, cycle.ID, mock.Anything).Return(nil)

	f.cycles.On("GetNext", mock.Anything, member.ChamaID, 5).Return(nil, sql.ErrNoRows)
	f.members.On("UpdateBalance", mock.Anything, member.ID, mock.MatchedBy(func(b decimal.Decimal) bool {
		return b.Equal(decimal.NewFromInt(200))
	})).Return(nil)
	f.ledger.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.LedgerEntry) bool {
		return e.TransactionType == domain.TxnTypeCredit && e.Amount.Equal(decimal.NewFromInt(200))
	})).Return(nil)

	result, err := f.service.RecordPayment(context.Background(), &domain.RecordPaymentRequest{
		MemberID:  member.ID,
		Amount:    decimal.NewFromInt(1200),
		Reference: "MPESA-003",
	}, uuid.New())

	require.NoError(t, err)
	assert.True(t, result.Credit.Equal(decimal.NewFromInt(200)))
	assert.Nil(t, result.RolloverCycleID)
	assert.True(t, result.NewBalance.Equal(decimal.NewFromInt(200)))
	assert.True(t, result.Allocated().Equal(result.Amount))
	f.assertExpectations(t)
}

func TestRecordPayment_SurplusRollsIntoNextCycle(t *testing.T) {
	f := newPaymentFixture()

	member := testMember(decimal.Zero)
	cycle := testCycle(member.ChamaID, 2)
	next := testCycle(member.ChamaID, 3)
	next.Status = domain.CycleStatusUpcoming
	typeID := uuid.New()

	f.members.On("GetForUpdate", mock.Anything, member.ID).Return(member, nil)
	f.cycles.On("GetActive", mock.Anything, member.ChamaID).Return(cycle, nil)
	f.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.cycles.On("Composition", mock.Anything, cycle.ID).Return([]domain.CycleTypeExpectation{
		{CycleID: cycle.ID, TypeID: typeID, ExpectedAmount: decimal.NewFromInt(1000), Position: 1},
	}, nil)
	f.contributions.On("GetByKey", mock.Anything, member.ID, cycle.ID, typeID).Return(nil, sql.ErrNoRows)
	f.contributions.On("UpsertAccumulate", mock.Anything, member.ID, cycle.ID, typeID, mock.Anything, mock.Anything).
		Return(&domain.Contribution{ID: uuid.New(), Amount: decimal.NewFromInt(1000), Status: domain.ContributionStatusPaid}, nil)
	f.cycles.On("AddCollected", mock.Anything, cycle.ID, mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.NewFromInt(1000))
	})).Return(nil)

	f.cycles.On("GetNext", mock.Anything, member.ChamaID, 2).Return(next, nil)
	f.contributions.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Contribution) bool {
		return c.Rollover && c.CycleID == next.ID &&
			c.Amount.Equal(decimal.NewFromInt(250)) &&
			c.Status == domain.ContributionStatusPaid
	})).Return(nil)
	f.members.On("UpdateBalance", mock.Anything, member.ID, mock.Anything).Return(nil)
	f.ledger.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.LedgerEntry) bool {
		return e.TransactionType == domain.TxnTypeRollover && e.Amount.Equal(decimal.NewFromInt(250))
	})).Return(nil)
	f.cycles.On("AddCollected", mock.Anything, next.ID, mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.NewFromInt(250))
	})).Return(nil)

	result, err := f.service.RecordPayment(context.Background(), &domain.RecordPaymentRequest{
		MemberID:  member.ID,
		Amount:    decimal.NewFromInt(1250),
		Reference: "MPESA-004",
	}, uuid.New())

	require.NoError(t, err)
	assert.True(t, result.Rollover.Equal(decimal.NewFromInt(250)))
	require.NotNil(t, result.RolloverCycleID)
	assert.Equal(t, next.ID, *result.RolloverCycleID)
	assert.True(t, result.Allocated().Equal(result.Amount))
	f.assertExpectations(t)
}

func TestRecordPayment_TargetedPaymentSkipsOtherTypes(t *testing.T) {
	f := newPaymentFixture()

	member := testMember(decimal.Zero)
	cycle := testCycle(member.ChamaID, 1)
	savingsID := uuid.New()
	welfareID := uuid.New()

	f.members.On("GetForUpdate", mock.Anything, member.ID).Return(member, nil)
	f.cycles.On("GetActive", mock.Anything, member.ChamaID).Return(cycle, nil)
	f.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.cycles.On("Composition", mock.Anything, cycle.ID).Return([]domain.CycleTypeExpectation{
		{CycleID: cycle.ID, TypeID: savingsID, ExpectedAmount: decimal.NewFromInt(1000), Position: 1},
		{CycleID: cycle.ID, TypeID: welfareID, ExpectedAmount: decimal.NewFromInt(500), Position: 2},
	}, nil)

	// Only the targeted type is funded; no GetByKey for welfare is expected.
	f.contributions.On("GetByKey", mock.Anything, member.ID, cycle.ID, savingsID).Return(nil, sql.ErrNoRows)
	f.contributions.On("UpsertAccumulate", mock.Anything, member.ID, cycle.ID, savingsID, mock.Anything,
		mock.MatchedBy(func(delta decimal.Decimal) bool { return delta.Equal(decimal.NewFromInt(1000)) }),
	).Return(&domain.Contribution{ID: uuid.New(), Amount: decimal.NewFromInt(1000), Status: domain.ContributionStatusPaid}, nil)
	f.cycles.On("AddCollected", mock.Anything, cycle.ID, mock.Anything).Return(nil)

	f.cycles.On("GetNext", mock.Anything, member.ChamaID, 1).Return(nil, sql.ErrNoRows)
	f.members.On("UpdateBalance", mock.Anything, member.ID, mock.Anything).Return(nil)
	f.ledger.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.LedgerEntry) bool {
		return e.TransactionType == domain.TxnTypeCredit && e.Amount.Equal(decimal.NewFromInt(300))
	})).Return(nil)

	result, err := f.service.RecordPayment(context.Background(), &domain.RecordPaymentRequest{
		MemberID:  member.ID,
		Amount:    decimal.NewFromInt(1300),
		Reference: "MPESA-005",
		TypeID:    &savingsID,
	}, uuid.New())

	require.NoError(t, err)
	require.Len(t, result.TypeAllocations, 1)
	assert.Equal(t, savingsID, result.TypeAllocations[0].TypeID)
	assert.True(t, result.Credit.Equal(decimal.NewFromInt(300)))
	f.assertExpectations(t)
}

func TestRecordPayment_TargetedTypeNotInComposition(t *testing.T) {
	f := newPaymentFixture()

	member := testMember(decimal.Zero)
	cycle := testCycle(member.ChamaID, 1)
	strangerID := uuid.New()

	f.members.On("GetForUpdate", mock.Anything, member.ID).Return(member, nil)
	f.cycles.On("GetActive", mock.Anything, member.ChamaID).Return(cycle, nil)
	f.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.cycles.On("Composition", mock.Anything, cycle.ID).Return([]domain.CycleTypeExpectation{}, nil)

	_, err := f.service.RecordPayment(context.Background(), &domain.RecordPaymentRequest{
		MemberID:  member.ID,
		Amount:    decimal.NewFromInt(100),
		Reference: "MPESA-006",
		TypeID:    &strangerID,
	}, uuid.New())

	assert.ErrorIs(t, err, customError.ErrTypeNotFound)
}

func TestRecordPayment_DuplicateReference(t *testing.T) {
	f := newPaymentFixture()

	member := testMember(decimal.Zero)
	cycle := testCycle(member.ChamaID, 1)

	f.members.On("GetForUpdate", mock.Anything, member.ID).Return(member, nil)
	f.cycles.On("GetActive", mock.Anything, member.ChamaID).Return(cycle, nil)
	f.payments.On("Create", mock.Anything, mock.Anything).Return(&pq.Error{Code: "23505"})

	_, err := f.service.RecordPayment(context.Background(), &domain.RecordPaymentRequest{
		MemberID:  member.ID,
		Amount:    decimal.NewFromInt(100),
		Reference: "MPESA-007",
	}, uuid.New())

	assert.ErrorIs(t, err, customError.ErrDuplicatePayment)
	f.assertExpectations(t)
}

func TestRecordPayment_NoActiveCycle(t *testing.T) {
	f := newPaymentFixture()

	member := testMember(decimal.Zero)

	f.members.On("GetForUpdate", mock.Anything, member.ID).Return(member, nil)
	f.cycles.On("GetActive", mock.Anything, member.ChamaID).Return(nil, sql.ErrNoRows)

	_, err := f.service.RecordPayment(context.Background(), &domain.RecordPaymentRequest{
		MemberID:  member.ID,
		Amount:    decimal.NewFromInt(100),
		Reference: "MPESA-008",
	}, uuid.New())

	assert.ErrorIs(t, err, customError.ErrNoActiveCycle)
}

func TestRecordPayment_RejectsBadInput(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.service.RecordPayment(context.Background(), &domain.RecordPaymentRequest{
		MemberID:  uuid.New(),
		Amount:    decimal.Zero,
		Reference: "MPESA-009",
	}, uuid.New())
	assert.ErrorIs(t, err, customError.ErrValidation)

	_, err = f.service.RecordPayment(context.Background(), &domain.RecordPaymentRequest{
		MemberID: uuid.New(),
		Amount:   decimal.NewFromInt(100),
	}, uuid.New())
	assert.ErrorIs(t, err, customError.ErrValidation)
}

func TestRecordPayment_MemberNotFound(t *testing.T) {
	f := newPaymentFixture()

	memberID := uuid.New()
	f.members.On("GetForUpdate", mock.Anything, memberID).Return(nil, sql.ErrNoRows)

	_, err := f.service.RecordPayment(context.Background(), &domain.RecordPaymentRequest{
		MemberID:  memberID,
		Amount:    decimal.NewFromInt(100),
		Reference: "MPESA-010",
	}, uuid.New())

	assert.ErrorIs(t, err, customError.ErrMemberNotFound)
}

func TestWaiveContribution(t *testing.T) {
	tests := []struct {
		name          string
		status        string
		expectedError bool
	}{
		{name: "pending can be waived", status: domain.ContributionStatusPending},
		{name: "partial can be waived", status: domain.ContributionStatusPartial},
		{name: "late can be waived", status: domain.ContributionStatusLate},
		{name: "paid cannot be waived", status: domain.ContributionStatusPaid, expectedError: true},
		{name: "cancelled cannot be waived", status: domain.ContributionStatusCancelled, expectedError: true},
		{name: "waived cannot be waived again", status: domain.ContributionStatusWaived, expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentFixture()
			id := uuid.New()

			f.contributions.On("GetByID", mock.Anything, id).Return(&domain.Contribution{
				ID:     id,
				Status: tt.status,
			}, nil)
			if !tt.expectedError {
				f.contributions.On("UpdateStatus", mock.Anything, id, domain.ContributionStatusWaived).Return(nil)
			}

			err := f.service.WaiveContribution(context.Background(), id)

			if tt.expectedError {
				assert.ErrorIs(t, err, customError.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
			f.assertExpectations(t)
		})
	}
}

func TestCancelContribution_RolloverReversesLedgerCredit(t *testing.T) {
	f := newPaymentFixture()

	member := testMember(decimal.NewFromInt(250))
	cycleID := uuid.New()
	contribution := &domain.Contribution{
		ID:       uuid.New(),
		MemberID: member.ID,
		CycleID:  cycleID,
		Amount:   decimal.NewFromInt(250),
		Status:   domain.ContributionStatusPaid,
		Rollover: true,
	}

	f.contributions.On("GetByID", mock.Anything, contribution.ID).Return(contribution, nil)
	f.contributions.On("UpdateStatus", mock.Anything, contribution.ID, domain.ContributionStatusCancelled).Return(nil)
	f.cycles.On("AddCollected", mock.Anything, cycleID, mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.NewFromInt(-250))
	})).Return(nil)
	f.members.On("GetForUpdate", mock.Anything, member.ID).Return(member, nil)
	f.members.On("UpdateBalance", mock.Anything, member.ID, mock.MatchedBy(func(b decimal.Decimal) bool {
		return b.IsZero()
	})).Return(nil)
	f.ledger.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.LedgerEntry) bool {
		return e.TransactionType == domain.TxnTypeAdjustment && e.Amount.Equal(decimal.NewFromInt(-250))
	})).Return(nil)

	err := f.service.CancelContribution(context.Background(), contribution.ID, uuid.New())

	require.NoError(t, err)
	f.assertExpectations(t)
}

func TestCancelContribution_AlreadyCancelled(t *testing.T) {
	f := newPaymentFixture()

	id := uuid.New()
	f.contributions.On("GetByID", mock.Anything, id).Return(&domain.Contribution{
		ID:     id,
		Status: domain.ContributionStatusCancelled,
	}, nil)

	err := f.service.CancelContribution(context.Background(), id, uuid.New())
	assert.ErrorIs(t, err, customError.ErrValidation)
}

func TestRecordPayment_RefundsCancelledObligation(t *testing.T) {
	f := newPaymentFixture()

	member := testMember(decimal.Zero)
	cycle := testCycle(member.ChamaID, 2)
	typeID := uuid.New()

	f.members.On("GetForUpdate", mock.Anything, member.ID).Return(member, nil)
	f.cycles.On("GetActive", mock.Anything, member.ChamaID).Return(cycle, nil)
	f.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.cycles.On("Composition", mock.Anything, cycle.ID).Return([]domain.CycleTypeExpectation{
		{CycleID: cycle.ID, TypeID: typeID, ExpectedAmount: decimal.NewFromInt(1000), Position: 1},
	}, nil)

	// The fully funded row was cancelled and its money reversed, so the
	// obligation is owed again in full.
	f.contributions.On("GetByKey", mock.Anything, member.ID, cycle.ID, typeID).Return(&domain.Contribution{
		ID:             uuid.New(),
		MemberID:       member.ID,
		CycleID:        cycle.ID,
		TypeID:         &typeID,
		Amount:         decimal.NewFromInt(1000),
		ExpectedAmount: decimal.NewFromInt(1000),
		Status:         domain.ContributionStatusCancelled,
	}, nil)
	f.contributions.On("UpsertAccumulate", mock.Anything, member.ID, cycle.ID, typeID,
		mock.MatchedBy(func(expected decimal.Decimal) bool { return expected.Equal(decimal.NewFromInt(1000)) }),
		mock.MatchedBy(func(delta decimal.Decimal) bool { return delta.Equal(decimal.NewFromInt(1000)) }),
	).Return(&domain.Contribution{
		ID:     uuid.New(),
		Amount: decimal.NewFromInt(1000),
		Status: domain.ContributionStatusPaid,
	}, nil)
	f.cycles.On("AddCollected", mock.Anything, cycle.ID, mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.NewFromInt(1000))
	})).Return(nil)

	result, err := f.service.RecordPayment(context.Background(), &domain.RecordPaymentRequest{
		MemberID:  member.ID,
		Amount:    decimal.NewFromInt(1000),
		Reference: "MPESA-CANCEL-REFUND",
	}, uuid.New())

	require.NoError(t, err)
	require.Len(t, result.TypeAllocations, 1)
	assert.True(t, result.TypeAllocations[0].Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, domain.ContributionStatusPaid, result.TypeAllocations[0].Status)
	assert.True(t, result.Credit.IsZero())
	assert.True(t, result.Rollover.IsZero())
	assert.True(t, result.Allocated().Equal(result.Amount))
	f.assertExpectations(t)
}

func TestRecordPayment_WaivedObligationTakesNoMoney(t *testing.T) {
	f := newPaymentFixture()

	member := testMember(decimal.Zero)
	cycle := testCycle(member.ChamaID, 2)
	typeID := uuid.New()

	f.members.On("GetForUpdate", mock.Anything, member.ID).Return(member, nil)
	f.cycles.On("GetActive", mock.Anything, member.ChamaID).Return(cycle, nil)
	f.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.cycles.On("Composition", mock.Anything, cycle.ID).Return([]domain.CycleTypeExpectation{
		{CycleID: cycle.ID, TypeID: typeID, ExpectedAmount: decimal.NewFromInt(1000), Position: 1},
	}, nil)
	f.contributions.On("GetByKey", mock.Anything, member.ID, cycle.ID, typeID).Return(&domain.Contribution{
		ID:             uuid.New(),
		MemberID:       member.ID,
		CycleID:        cycle.ID,
		TypeID:         &typeID,
		Amount:         decimal.NewFromInt(300),
		ExpectedAmount: decimal.NewFromInt(1000),
		Status:         domain.ContributionStatusWaived,
	}, nil)

	// The forgiven type absorbs nothing, so the whole payment overflows.
	f.cycles.On("GetNext", mock.Anything, member.ChamaID, cycle.CycleNumber).Return(nil, sql.ErrNoRows)
	f.members.On("UpdateBalance", mock.Anything, member.ID, mock.MatchedBy(func(b decimal.Decimal) bool {
		return b.Equal(decimal.NewFromInt(700))
	})).Return(nil)
	f.ledger.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.LedgerEntry) bool {
		return e.Amount.Equal(decimal.NewFromInt(700)) && e.TransactionType == domain.TxnTypeCredit
	})).Return(nil)

	result, err := f.service.RecordPayment(context.Background(), &domain.RecordPaymentRequest{
		MemberID:  member.ID,
		Amount:    decimal.NewFromInt(700),
		Reference: "MPESA-WAIVED-SKIP",
	}, uuid.New())

	require.NoError(t, err)
	assert.Empty(t, result.TypeAllocations)
	assert.True(t, result.Credit.Equal(decimal.NewFromInt(700)))
	assert.True(t, result.NewBalance.Equal(decimal.NewFromInt(700)))
	f.contributions.AssertNotCalled(t, "UpsertAccumulate",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}
