package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chamapesa/chama-engine/internal/domain"
)

// MemberRepository defines the interface for member data operations
type MemberRepository interface {
	// Create creates a new member with a zero balance
	Create(ctx context.Context, member *domain.Member) error

	// GetByID retrieves a member by ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)

	// GetForUpdate retrieves a member and takes an exclusive row lock.
	// Must run inside a transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Member, error)

	// UpdateBalance sets the member's balance
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error

	// Deactivate soft-removes a member from the chama
	Deactivate(ctx context.Context, id uuid.UUID) error

	// ListActiveByChama returns all active members of a chama
	ListActiveByChama(ctx context.Context, chamaID uuid.UUID) ([]*domain.Member, error)

	// CountActiveByChama counts active members of a chama
	CountActiveByChama(ctx context.Context, chamaID uuid.UUID) (int, error)
}

// CycleRepository defines the interface for cycle and composition data
type CycleRepository interface {
	// Create creates a new contribution cycle
	Create(ctx context.Context, cycle *domain.ContributionCycle) error

	// GetByID retrieves a cycle by ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ContributionCycle, error)

	// GetActive retrieves the chama's active cycle
	GetActive(ctx context.Context, chamaID uuid.UUID) (*domain.ContributionCycle, error)

	// GetNext retrieves the cycle with the lowest cycle number greater than
	// afterNumber whose status is upcoming or active
	GetNext(ctx context.Context, chamaID uuid.UUID, afterNumber int) (*domain.ContributionCycle, error)

	// ListByChama returns all cycles of a chama ordered by cycle number
	ListByChama(ctx context.Context, chamaID uuid.UUID) ([]*domain.ContributionCycle, error)

	// ListActive returns every active cycle across chamas (scheduler use)
	ListActive(ctx context.Context) ([]*domain.ContributionCycle, error)

	// NextCycleNumber returns max(cycle_number)+1 for the chama
	NextCycleNumber(ctx context.Context, chamaID uuid.UUID) (int, error)

	// CountByChama counts the chama's non-cancelled cycles
	CountByChama(ctx context.Context, chamaID uuid.UUID) (int, error)

	// UpdateStatus sets a cycle's status
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error

	// CompleteActive demotes any active cycle of the chama, except the given
	// one, to completed. Returns the number of demoted cycles.
	CompleteActive(ctx context.Context, chamaID, exceptID uuid.UUID) (int64, error)

	// AddCollected adjusts the cycle's aggregate collected amount; the result
	// is clamped at zero on decrements
	AddCollected(ctx context.Context, cycleID uuid.UUID, delta decimal.Decimal) error

	// AttachType adds a contribution type to the cycle's composition
	AttachType(ctx context.Context, expectation *domain.CycleTypeExpectation) error

	// Composition returns the cycle's expectations in attachment order
	Composition(ctx context.Context, cycleID uuid.UUID) ([]domain.CycleTypeExpectation, error)
}

// ContributionTypeRepository defines the interface for contribution types
type ContributionTypeRepository interface {
	// Create creates a new contribution type
	Create(ctx context.Context, ct *domain.ContributionType) error

	// GetByID retrieves a contribution type by ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ContributionType, error)

	// ListByChama returns the chama's active contribution types
	ListByChama(ctx context.Context, chamaID uuid.UUID) ([]*domain.ContributionType, error)

	// Deactivate soft-deletes a contribution type
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// ContributionRepository defines the interface for contribution rows
type ContributionRepository interface {
	// Create inserts a contribution row (used for rollover rows)
	Create(ctx context.Context, c *domain.Contribution) error

	// UpsertAccumulate adds delta to the (member, cycle, type) row, creating
	// it when absent, and rederives the status from the new total. Returns
	// the row after the update.
	UpsertAccumulate(ctx context.Context, memberID, cycleID, typeID uuid.UUID, expected, delta decimal.Decimal) (*domain.Contribution, error)

	// GetByID retrieves a contribution by ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Contribution, error)

	// GetByKey retrieves the (member, cycle, type) accumulation row
	GetByKey(ctx context.Context, memberID, cycleID, typeID uuid.UUID) (*domain.Contribution, error)

	// ListByMemberCycle returns the member's contributions in a cycle
	ListByMemberCycle(ctx context.Context, memberID, cycleID uuid.UUID) ([]*domain.Contribution, error)

	// ListByCycle returns all contributions in a cycle
	ListByCycle(ctx context.Context, cycleID uuid.UUID) ([]*domain.Contribution, error)

	// UpdateStatus sets a contribution's status
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error

	// MarkOverdue flips pending/partial contributions of past-due active
	// cycles to late. Returns the number of rows updated.
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)

	// CountCyclesWithPaid counts distinct non-cancelled cycles in which the
	// member has at least one paid contribution
	CountCyclesWithPaid(ctx context.Context, memberID uuid.UUID) (int, error)
}

// LedgerRepository defines the interface for the append-only balance ledger
type LedgerRepository interface {
	// Append inserts a ledger entry; entries are never updated or deleted
	Append(ctx context.Context, entry *domain.LedgerEntry) error

	// ListByMember returns the member's entries, newest first
	ListByMember(ctx context.Context, memberID uuid.UUID, limit int) ([]*domain.LedgerEntry, error)

	// SumByMember returns the sum of signed entry amounts for the member
	SumByMember(ctx context.Context, memberID uuid.UUID) (decimal.Decimal, error)
}

// PaymentRepository defines the interface for raw payment events
type PaymentRepository interface {
	// Create inserts a payment; the reference column is unique
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByReference retrieves a payment by its gateway reference
	GetByReference(ctx context.Context, reference string) (*domain.Payment, error)
}
