package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/rapid-ticketing/internal/domain"
	"github.com/spec-kit/rapid-ticketing/internal/observability"
	"github.com/spec-kit/rapid-ticketing/internal/repository"
	apperrors "github.com/spec-kit/rapid-ticketing/pkg/util"
)

const alertMessageLimit = 250

// AlertService derives OVERDUE / DUE_TODAY alerts from ticket state. A scan
// is idempotent: re-running it with unchanged tickets refreshes timestamps on
// the same rows and creates nothing new. Alerts are pruned strictly by age;
// a ticket closing does not sweep its alerts — callers filter by current
// ticket status at render time.
type AlertService struct {
	tickets   repository.TicketRepository
	alerts    repository.AlertRepository
	retention time.Duration
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// AlertDependencies bundles requirements for the alert service.
type AlertDependencies struct {
	TicketRepo repository.TicketRepository
	AlertRepo  repository.AlertRepository
	Retention  time.Duration
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// ScanStats summarizes one scan pass.
type ScanStats struct {
	Upserted int
	Pruned   int
}

// NewAlertService constructs the service.
func NewAlertService(deps AlertDependencies) *AlertService {
	retention := deps.Retention
	if retention <= 0 {
		retention = 72 * time.Hour
	}
	return &AlertService{
		tickets:   deps.TicketRepo,
		alerts:    deps.AlertRepo,
		retention: retention,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}
}

// RunScan executes one derivation pass at the given moment.
func (s *AlertService) RunScan(ctx context.Context, now time.Time) (ScanStats, error) {
	var stats ScanStats

	candidates, err := s.tickets.ListAlertCandidates(ctx, now)
	if err != nil {
		return stats, fmt.Errorf("list alert candidates: %w", err)
	}

	for i := range candidates {
		ticket := &candidates[i]
		var kind domain.AlertKind
		var title string
		switch ticket.DueStateOn(now) {
		case domain.Overdue:
			kind = domain.AlertKindOverdue
			title = fmt.Sprintf("Ticket %s is overdue", ticket.ID)
		case domain.DueToday:
			kind = domain.AlertKindDueToday
			title = fmt.Sprintf("Ticket %s is due today", ticket.ID)
		default:
			continue
		}

		alert := domain.Alert{
			TicketID:    ticket.ID,
			Kind:        kind,
			Title:       title,
			Message:     alertMessage(ticket),
			RefreshedAt: now,
		}
		if err := s.alerts.Upsert(ctx, &alert); err != nil {
			return stats, fmt.Errorf("upsert alert for ticket %s: %w", ticket.ID, err)
		}
		stats.Upserted++
	}

	pruned, err := s.alerts.DeleteOlderThan(ctx, now.Add(-s.retention))
	if err != nil {
		return stats, fmt.Errorf("prune alerts: %w", err)
	}
	stats.Pruned = pruned

	s.metrics.RecordScan(stats.Upserted, stats.Pruned)
	s.logger.Debug("alert scan complete",
		zap.Int("upserted", stats.Upserted),
		zap.Int("pruned", stats.Pruned))
	return stats, nil
}

// ListForSupervisor returns the destination's alerts with current ticket
// state attached.
func (s *AlertService) ListForSupervisor(ctx context.Context, actor *domain.User) ([]domain.AlertWithTicket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("supervisor required")
	}
	alerts, err := s.alerts.ListByDestination(ctx, actor.FullName)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return alerts, nil
}

// Acknowledge marks one (ticket, kind) alert as seen.
func (s *AlertService) Acknowledge(ctx context.Context, ticketID string, kind domain.AlertKind) error {
	if kind != domain.AlertKindOverdue && kind != domain.AlertKindDueToday {
		return apperrors.NewValidationError("unknown alert kind", map[string]any{"kind": kind})
	}
	if err := s.alerts.SetAcknowledged(ctx, ticketID, kind, true); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("alert", map[string]any{"ticket_id": ticketID, "kind": kind})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// alertMessage prefers the ticket's remarks, falling back to a prefix of the
// issue text. The prefix counts runes, not bytes, so multibyte text is never
// cut mid-character.
func alertMessage(ticket *domain.Ticket) string {
	if ticket.Remarks != nil && *ticket.Remarks != "" {
		return *ticket.Remarks
	}
	runes := []rune(ticket.IssueText)
	if len(runes) > alertMessageLimit {
		return string(runes[:alertMessageLimit])
	}
	return ticket.IssueText
}
