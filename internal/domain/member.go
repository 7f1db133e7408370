package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Member represents a chama member. Balance is signed: negative means the
// member is in arrears, positive means the member holds a credit. The balance
// column is only ever written through the ledger service.
type Member struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	ChamaID   uuid.UUID       `json:"chama_id" db:"chama_id"`
	Name      string          `json:"name" db:"name"`
	Phone     string          `json:"phone" db:"phone"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	Active    bool            `json:"active" db:"active"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

const (
	BalanceStandingCredit  = "credit"
	BalanceStandingArrears = "arrears"
)

// BalanceStanding classifies a balance: zero or above is credit, below zero
// is arrears.
func BalanceStanding(balance decimal.Decimal) string {
	if balance.IsNegative() {
		return BalanceStandingArrears
	}
	return BalanceStandingCredit
}

// DTOs for requests and responses

type CreateMemberRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"required"`
}

type AdjustBalanceRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description string          `json:"description" validate:"required"`
}

type AdjustBalanceResponse struct {
	MemberID   uuid.UUID       `json:"member_id"`
	Amount     decimal.Decimal `json:"amount"`
	NewBalance decimal.Decimal `json:"new_balance"`
}
