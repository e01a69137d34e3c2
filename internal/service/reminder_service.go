package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/rapid-ticketing/internal/domain"
	"github.com/spec-kit/rapid-ticketing/internal/mail"
	"github.com/spec-kit/rapid-ticketing/internal/observability"
	"github.com/spec-kit/rapid-ticketing/internal/repository"
	apperrors "github.com/spec-kit/rapid-ticketing/pkg/util"
)

// ReminderService sends ad hoc reminder mails for overdue work. A reminder is
// fire-and-forget relative to the ticket: no ticket field is mutated, and a
// transport failure is a warning, not a failure of anything else.
type ReminderService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	mailer     mail.Mailer
	senderName string
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// ReminderDependencies bundles requirements for the reminder service.
type ReminderDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Mailer     mail.Mailer
	SenderName string
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewReminderService constructs the service.
func NewReminderService(deps ReminderDependencies) *ReminderService {
	return &ReminderService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		mailer:     deps.Mailer,
		senderName: deps.SenderName,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// Remind dispatches one reminder mail to the ticket's assignee. A returned
// *util.DispatchFailure means every precondition held and only the transport
// failed; callers surface it as a warning.
func (s *ReminderService) Remind(ctx context.Context, actor *domain.User, ticketID, message string) error {
	if actor == nil {
		return apperrors.NewUnauthorized("supervisor required")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return apperrors.NewPreconditionFailed("reminder message required", nil)
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}
	if ticket.ReportingTo != actor.FullName {
		return apperrors.NewForbidden("access denied")
	}
	if ticket.Status.IsTerminal() {
		return apperrors.NewInvalidTransition("ticket is closed", map[string]any{
			"ticket_id": ticketID,
			"status":    ticket.Status,
		})
	}
	if ticket.AssignedTo == nil {
		return apperrors.NewPreconditionFailed("ticket has no assigned technician", map[string]any{
			"ticket_id": ticketID,
		})
	}

	tech, err := s.users.GetByNameOrUsername(ctx, *ticket.AssignedTo)
	if err != nil || tech.Email == "" {
		return apperrors.NewPreconditionFailed("technician email not found", map[string]any{
			"assigned_to": *ticket.AssignedTo,
		})
	}
	if !actor.CanSendMail() {
		return apperrors.NewPreconditionFailed("sender mail credentials missing", nil)
	}

	msg := mail.Message{
		Credential: *actor.MailAPIKey,
		FromName:   s.senderName,
		From:       actor.Email,
		To:         tech.Email,
		Subject:    fmt.Sprintf("Reminder: Ticket %s Overdue", ticket.ID),
		HTML:       reminderBody(actor, ticket, message),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.metrics.RecordMail(false)
		s.logger.Warn("reminder mail failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("to", tech.Email),
			zap.Error(err))
		return apperrors.NewDispatchFailure(tech.Email, err)
	}

	s.metrics.RecordMail(true)
	s.logger.Info("reminder mail sent",
		zap.String("ticket_id", ticket.ID),
		zap.String("to", tech.Email))
	return nil
}

func reminderBody(actor *domain.User, ticket *domain.Ticket, message string) string {
	return fmt.Sprintf(`
        <p>Dear %s,</p>
        <p>This is a gentle reminder from <strong>%s</strong> regarding the overdue ticket:</p>
        <p>
          <strong>Ticket ID:</strong> %s<br/>
          <strong>User:</strong> %s<br/>
          <strong>Issue:</strong> %s<br/>
          <strong>End Date:</strong> %s
        </p>
        <hr/>
        <p><strong>Admin Message:</strong></p>
        <p style="font-style: italic; color:#333;">%s</p>
        <p>&mdash; Rapid Ticketing System</p>`,
		*ticket.AssignedTo,
		actor.FullName,
		ticket.ID,
		ticket.FullName,
		ticket.IssueText,
		formatDate(ticket.EndDate),
		message)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
