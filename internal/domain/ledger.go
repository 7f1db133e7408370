package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger transaction types.
const (
	TxnTypeContribution = "contribution"
	TxnTypeRollover     = "rollover"
	TxnTypeCredit       = "credit"
	TxnTypeAdjustment   = "adjustment"
)

// LedgerEntry records one balance delta for a member. Entries are append-only
// and never mutated; the sum of signed amounts for a member must always equal
// that member's current balance.
type LedgerEntry struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	MemberID        uuid.UUID       `json:"member_id" db:"member_id"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	BalanceBefore   decimal.Decimal `json:"balance_before" db:"balance_before"`
	BalanceAfter    decimal.Decimal `json:"balance_after" db:"balance_after"`
	TransactionType string          `json:"transaction_type" db:"transaction_type"`
	Description     string          `json:"description" db:"description"`
	CycleID         *uuid.UUID      `json:"cycle_id,omitempty" db:"cycle_id"`
	ContributionID  *uuid.UUID      `json:"contribution_id,omitempty" db:"contribution_id"`
	CreatedBy       uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

type LedgerResponse struct {
	MemberID uuid.UUID      `json:"member_id"`
	Entries  []*LedgerEntry `json:"entries"`
}
