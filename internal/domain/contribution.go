package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ContributionStatusPending   = "pending"
	ContributionStatusPartial   = "partial"
	ContributionStatusPaid      = "paid"
	ContributionStatusLate      = "late"
	ContributionStatusWaived    = "waived"
	ContributionStatusCancelled = "cancelled"
)

// Contribution is the accumulation target for one (member, cycle, type)
// obligation. Repeat payments toward the same obligation update the same row.
// Rows with a nil TypeID and Rollover true carry surplus forwarded from an
// earlier cycle.
type Contribution struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	MemberID       uuid.UUID       `json:"member_id" db:"member_id"`
	CycleID        uuid.UUID       `json:"cycle_id" db:"cycle_id"`
	TypeID         *uuid.UUID      `json:"type_id,omitempty" db:"type_id"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	ExpectedAmount decimal.Decimal `json:"expected_amount" db:"expected_amount"`
	Status         string          `json:"status" db:"status"`
	Rollover       bool            `json:"rollover" db:"rollover"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// DeriveContributionStatus computes the status implied by the accumulated
// amount against the expected amount. Amounts are exact decimals, so the
// comparison is exact: covering the expectation means paid, anything above
// zero is partial, zero is pending.
func DeriveContributionStatus(amount, expected decimal.Decimal) string {
	if expected.IsPositive() && amount.GreaterThanOrEqual(expected) {
		return ContributionStatusPaid
	}
	if amount.IsPositive() {
		return ContributionStatusPartial
	}
	return ContributionStatusPending
}
