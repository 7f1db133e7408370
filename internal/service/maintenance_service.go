package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/chamapesa/chama-engine/internal/repository"
	customError "github.com/chamapesa/chama-engine/pkg/errors"
)

// MaintenanceService runs the scheduled housekeeping jobs.
type MaintenanceService struct {
	Cycles        repository.CycleRepository
	Contributions repository.ContributionRepository
	reports       *ReportService
	notifier      Notifier
	logger        *slog.Logger
}

func NewMaintenanceService(
	cycles repository.CycleRepository,
	contributions repository.ContributionRepository,
	reports *ReportService,
	notifier Notifier,
) *MaintenanceService {
	return &MaintenanceService{
		Cycles:        cycles,
		Contributions: contributions,
		reports:       reports,
		notifier:      notifier,
		logger:        slog.Default(),
	}
}

// MarkOverdueContributions flips pending and partial contributions of
// past-due active cycles to late. Returns how many rows changed.
func (s *MaintenanceService) MarkOverdueContributions(ctx context.Context) (int64, error) {
	updated, err := s.Contributions.MarkOverdue(ctx, time.Now())
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	if updated > 0 {
		s.logger.InfoContext(ctx, "marked contributions late", "count", updated)
	}

	return updated, nil
}

// SendReminders notifies every member with an outstanding amount in an
// active cycle. Notification failures are logged per member and never abort
// the sweep.
func (s *MaintenanceService) SendReminders(ctx context.Context) error {
	cycles, err := s.Cycles.ListActive(ctx)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	for _, cycle := range cycles {
		members, err := s.reports.Members.ListActiveByChama(ctx, cycle.ChamaID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		for _, member := range members {
			summary, err := s.reports.MemberSummary(ctx, member.ID)
			if err != nil {
				s.logger.WarnContext(ctx, "reminder summary failed", "member_id", member.ID, "error", err)
				continue
			}
			if !summary.Outstanding.IsPositive() {
				continue
			}
			if s.notifier == nil {
				continue
			}
			if err := s.notifier.ContributionReminder(ctx, member.ID, cycle.ID, summary.Outstanding); err != nil {
				s.logger.WarnContext(ctx, "reminder dispatch failed", "member_id", member.ID, "error", err)
			}
		}
	}

	return nil
}
