package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CycleStatusUpcoming  = "upcoming"
	CycleStatusActive    = "active"
	CycleStatusCompleted = "completed"
	CycleStatusCancelled = "cancelled"
)

// ContributionCycle is one bounded contribution period for a chama. At most
// one cycle per chama is active at a time; CollectedAmount is a denormalized
// aggregate maintained by the payment service.
type ContributionCycle struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	ChamaID         uuid.UUID       `json:"chama_id" db:"chama_id"`
	CycleNumber     int             `json:"cycle_number" db:"cycle_number"`
	Status          string          `json:"status" db:"status"`
	DueDate         time.Time       `json:"due_date" db:"due_date"`
	CollectedAmount decimal.Decimal `json:"collected_amount" db:"collected_amount"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// CanTransitionCycle reports whether a cycle status change is legal.
// upcoming -> active -> completed, with cancelled reachable from any
// non-terminal status.
func CanTransitionCycle(from, to string) bool {
	switch from {
	case CycleStatusUpcoming:
		return to == CycleStatusActive || to == CycleStatusCancelled
	case CycleStatusActive:
		return to == CycleStatusCompleted || to == CycleStatusCancelled
	default:
		return false
	}
}

// ContributionType is a named obligation within a chama, e.g. "monthly dues".
// Types referenced by cycles are deactivated rather than deleted.
type ContributionType struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	ChamaID       uuid.UUID       `json:"chama_id" db:"chama_id"`
	Name          string          `json:"name" db:"name"`
	DefaultAmount decimal.Decimal `json:"default_amount" db:"default_amount"`
	Frequency     string          `json:"frequency" db:"frequency"`
	Active        bool            `json:"active" db:"active"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// CycleTypeExpectation is one entry of a cycle's expected composition. The
// position determines allocation priority when a payment is spread across
// types.
type CycleTypeExpectation struct {
	CycleID        uuid.UUID       `json:"cycle_id" db:"cycle_id"`
	TypeID         uuid.UUID       `json:"type_id" db:"type_id"`
	ExpectedAmount decimal.Decimal `json:"expected_amount" db:"expected_amount"`
	Position       int             `json:"position" db:"position"`
}

// DTOs for requests and responses

type CreateCycleRequest struct {
	DueDate time.Time `json:"due_date" validate:"required"`
}

type CreateTypeRequest struct {
	Name          string          `json:"name" validate:"required"`
	DefaultAmount decimal.Decimal `json:"default_amount" validate:"required"`
	Frequency     string          `json:"frequency" validate:"required,oneof=weekly monthly quarterly custom"`
}

type AttachTypeRequest struct {
	TypeID         uuid.UUID        `json:"type_id" validate:"required"`
	ExpectedAmount *decimal.Decimal `json:"expected_amount,omitempty"`
}

type CompositionResponse struct {
	CycleID       uuid.UUID              `json:"cycle_id"`
	Expectations  []CycleTypeExpectation `json:"expectations"`
	ExpectedTotal decimal.Decimal        `json:"expected_total"`
}
