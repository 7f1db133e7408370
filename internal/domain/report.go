package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TypeOutstanding is the remaining shortfall for one contribution type in the
// active cycle.
type TypeOutstanding struct {
	TypeID      uuid.UUID       `json:"type_id"`
	Expected    decimal.Decimal `json:"expected"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// MemberSummary is a read-only view of one member's standing, derived from a
// single consistent snapshot of cycle and ledger state.
type MemberSummary struct {
	MemberID        uuid.UUID         `json:"member_id"`
	ChamaID         uuid.UUID         `json:"chama_id"`
	Balance         decimal.Decimal   `json:"balance"`
	BalanceStanding string            `json:"balance_standing"`
	ActiveCycleID   *uuid.UUID        `json:"active_cycle_id,omitempty"`
	Outstanding     decimal.Decimal   `json:"outstanding"`
	PerType         []TypeOutstanding `json:"per_type"`
	Overdue         bool              `json:"overdue"`
	ComplianceRate  decimal.Decimal   `json:"compliance_rate"`
	CyclesPaid      int               `json:"cycles_paid"`
	CyclesTotal     int               `json:"cycles_total"`
}

// CycleSummary aggregates collection progress for one cycle.
type CycleSummary struct {
	CycleID        uuid.UUID         `json:"cycle_id"`
	ChamaID        uuid.UUID         `json:"chama_id"`
	CycleNumber    int               `json:"cycle_number"`
	Status         string            `json:"status"`
	DueDate        time.Time         `json:"due_date"`
	MemberCount    int               `json:"member_count"`
	ExpectedTotal  decimal.Decimal   `json:"expected_total"`
	Collected      decimal.Decimal   `json:"collected"`
	Outstanding    decimal.Decimal   `json:"outstanding"`
	CollectionRate decimal.Decimal   `json:"collection_rate"`
	PerType        []TypeOutstanding `json:"per_type"`
	CountByStatus  map[string]int    `json:"count_by_status"`
}
