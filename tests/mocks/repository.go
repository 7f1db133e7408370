package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/chamapesa/chama-engine/internal/domain"
)

// PassthroughTxRunner satisfies repository.TxRunner without a database.
// Both methods just run fn against the same context.
type PassthroughTxRunner struct{}

func (PassthroughTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (PassthroughTxRunner) WithinReadTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) Create(ctx context.Context, member *domain.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockMemberRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

func (m *MockMemberRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

func (m *MockMemberRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	args := m.Called(ctx, id, balance)
	return args.Error(0)
}

func (m *MockMemberRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMemberRepository) ListActiveByChama(ctx context.Context, chamaID uuid.UUID) ([]*domain.Member, error) {
	args := m.Called(ctx, chamaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Member), args.Error(1)
}

func (m *MockMemberRepository) CountActiveByChama(ctx context.Context, chamaID uuid.UUID) (int, error) {
	args := m.Called(ctx, chamaID)
	return args.Int(0), args.Error(1)
}

type MockCycleRepository struct {
	mock.Mock
}

func (m *MockCycleRepository) Create(ctx context.Context, cycle *domain.ContributionCycle) error {
	args := m.Called(ctx, cycle)
	return args.Error(0)
}

func (m *MockCycleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ContributionCycle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContributionCycle), args.Error(1)
}

func (m *MockCycleRepository) GetActive(ctx context.Context, chamaID uuid.UUID) (*domain.ContributionCycle, error) {
	args := m.Called(ctx, chamaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContributionCycle), args.Error(1)
}

func (m *MockCycleRepository) GetNext(ctx context.Context, chamaID uuid.UUID, afterNumber int) (*domain.ContributionCycle, error) {
	args := m.Called(ctx, chamaID, afterNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContributionCycle), args.Error(1)
}

func (m *MockCycleRepository) ListByChama(ctx context.Context, chamaID uuid.UUID) ([]*domain.ContributionCycle, error) {
	args := m.Called(ctx, chamaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ContributionCycle), args.Error(1)
}

func (m *MockCycleRepository) ListActive(ctx context.Context) ([]*domain.ContributionCycle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ContributionCycle), args.Error(1)
}

func (m *MockCycleRepository) NextCycleNumber(ctx context.Context, chamaID uuid.UUID) (int, error) {
	args := m.Called(ctx, chamaID)
	return args.Int(0), args.Error(1)
}

func (m *MockCycleRepository) CountByChama(ctx context.Context, chamaID uuid.UUID) (int, error) {
	args := m.Called(ctx, chamaID)
	return args.Int(0), args.Error(1)
}

func (m *MockCycleRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockCycleRepository) CompleteActive(ctx context.Context, chamaID, exceptID uuid.UUID) (int64, error) {
	args := m.Called(ctx, chamaID, exceptID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCycleRepository) AddCollected(ctx context.Context, cycleID uuid.UUID, delta decimal.Decimal) error {
	args := m.Called(ctx, cycleID, delta)
	return args.Error(0)
}

func (m *MockCycleRepository) AttachType(ctx context.Context, expectation *domain.CycleTypeExpectation) error {
	args := m.Called(ctx, expectation)
	return args.Error(0)
}

func (m *MockCycleRepository) Composition(ctx context.Context, cycleID uuid.UUID) ([]domain.CycleTypeExpectation, error) {
	args := m.Called(ctx, cycleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CycleTypeExpectation), args.Error(1)
}

type MockContributionTypeRepository struct {
	mock.Mock
}

func (m *MockContributionTypeRepository) Create(ctx context.Context, ct *domain.ContributionType) error {
	args := m.Called(ctx, ct)
	return args.Error(0)
}

func (m *MockContributionTypeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ContributionType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContributionType), args.Error(1)
}

func (m *MockContributionTypeRepository) ListByChama(ctx context.Context, chamaID uuid.UUID) ([]*domain.ContributionType, error) {
	args := m.Called(ctx, chamaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ContributionType), args.Error(1)
}

func (m *MockContributionTypeRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockContributionRepository struct {
	mock.Mock
}

func (m *MockContributionRepository) Create(ctx context.Context, c *domain.Contribution) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockContributionRepository) UpsertAccumulate(ctx context.Context, memberID, cycleID, typeID uuid.UUID, expected, delta decimal.Decimal) (*domain.Contribution, error) {
	args := m.Called(ctx, memberID, cycleID, typeID, expected, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contribution), args.Error(1)
}

func (m *MockContributionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contribution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contribution), args.Error(1)
}

func (m *MockContributionRepository) GetByKey(ctx context.Context, memberID, cycleID, typeID uuid.UUID) (*domain.Contribution, error) {
	args := m.Called(ctx, memberID, cycleID, typeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contribution), args.Error(1)
}

func (m *MockContributionRepository) ListByMemberCycle(ctx context.Context, memberID, cycleID uuid.UUID) ([]*domain.Contribution, error) {
	args := m.Called(ctx, memberID, cycleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Contribution), args.Error(1)
}

func (m *MockContributionRepository) ListByCycle(ctx context.Context, cycleID uuid.UUID) ([]*domain.Contribution, error) {
	args := m.Called(ctx, cycleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Contribution), args.Error(1)
}

func (m *MockContributionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockContributionRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockContributionRepository) CountCyclesWithPaid(ctx context.Context, memberID uuid.UUID) (int, error) {
	args := m.Called(ctx, memberID)
	return args.Int(0), args.Error(1)
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) ListByMember(ctx context.Context, memberID uuid.UUID, limit int) ([]*domain.LedgerEntry, error) {
	args := m.Called(ctx, memberID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) SumByMember(ctx context.Context, memberID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, memberID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) PaymentRecorded(ctx context.Context, result *domain.AllocationResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockNotifier) ContributionReminder(ctx context.Context, memberID uuid.UUID, cycleID uuid.UUID, outstanding decimal.Decimal) error {
	args := m.Called(ctx, memberID, cycleID, outstanding)
	return args.Error(0)
}
