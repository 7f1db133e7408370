package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chamapesa/chama-engine/internal/domain"
)

// Notifier is the outbound notification dispatcher. Deliveries are
// best-effort: a failed notification is logged and never propagated into the
// financial transaction that triggered it.
type Notifier interface {
	PaymentRecorded(ctx context.Context, result *domain.AllocationResult) error
	ContributionReminder(ctx context.Context, memberID uuid.UUID, cycleID uuid.UUID, outstanding decimal.Decimal) error
}

// LogNotifier writes notification events to the structured log. It stands in
// for the SMS dispatcher in environments without one configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) PaymentRecorded(ctx context.Context, result *domain.AllocationResult) error {
	n.logger.InfoContext(ctx, "payment recorded",
		"member_id", result.MemberID,
		"reference", result.Reference,
		"amount", result.Amount.String(),
		"new_balance", result.NewBalance.String(),
	)
	return nil
}

func (n *LogNotifier) ContributionReminder(ctx context.Context, memberID uuid.UUID, cycleID uuid.UUID, outstanding decimal.Decimal) error {
	n.logger.InfoContext(ctx, "contribution reminder",
		"member_id", memberID,
		"cycle_id", cycleID,
		"outstanding", outstanding.String(),
	)
	return nil
}
