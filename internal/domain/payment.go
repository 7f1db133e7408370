package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is one confirmed incoming payment event, as delivered by the
// payment gateway. Reference is the gateway's unique receipt identifier and
// is the idempotency key for the whole allocation.
type Payment struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Reference string          `json:"reference" db:"reference"`
	MemberID  uuid.UUID       `json:"member_id" db:"member_id"`
	CycleID   uuid.UUID       `json:"cycle_id" db:"cycle_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	CreatedBy uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

type RecordPaymentRequest struct {
	MemberID       uuid.UUID       `json:"member_id" validate:"required"`
	Amount         decimal.Decimal `json:"amount" validate:"required"`
	Reference      string          `json:"reference" validate:"required"`
	TypeID         *uuid.UUID      `json:"type_id,omitempty"`
	ApplyToBalance bool            `json:"apply_to_balance"`
}

// TypeAllocation is the portion of a payment applied to one contribution
// type's shortfall.
type TypeAllocation struct {
	TypeID         uuid.UUID       `json:"type_id"`
	ContributionID uuid.UUID       `json:"contribution_id"`
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"`
}

// AllocationResult is the complete breakdown of how one payment was
// distributed. The type allocations, balance clearance, rollover and credit
// always sum to the payment amount.
type AllocationResult struct {
	PaymentID       uuid.UUID        `json:"payment_id"`
	Reference       string           `json:"reference"`
	MemberID        uuid.UUID        `json:"member_id"`
	CycleID         uuid.UUID        `json:"cycle_id"`
	Amount          decimal.Decimal  `json:"amount"`
	TypeAllocations []TypeAllocation `json:"type_allocations"`
	BalanceCleared  decimal.Decimal  `json:"balance_cleared"`
	Rollover        decimal.Decimal  `json:"rollover"`
	RolloverCycleID *uuid.UUID       `json:"rollover_cycle_id,omitempty"`
	Credit          decimal.Decimal  `json:"credit"`
	NewBalance      decimal.Decimal  `json:"new_balance"`
}

// Allocated returns the total amount distributed across all allocation paths.
func (r *AllocationResult) Allocated() decimal.Decimal {
	total := r.BalanceCleared.Add(r.Rollover).Add(r.Credit)
	for _, ta := range r.TypeAllocations {
		total = total.Add(ta.Amount)
	}
	return total
}
