package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/rapid-ticketing/internal/domain"
	"github.com/spec-kit/rapid-ticketing/internal/events"
	"github.com/spec-kit/rapid-ticketing/internal/mail"
	"github.com/spec-kit/rapid-ticketing/internal/observability"
	"github.com/spec-kit/rapid-ticketing/internal/repository"
)

// MailNotifier turns transition events into best-effort mails. Every send is
// decoupled from the transition that triggered it: a missing address or a
// transport failure is logged and dropped, never surfaced to the actor.
type MailNotifier struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	mailer     mail.Mailer
	dispatcher events.Dispatcher
	senderName string
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// MailNotifierDependencies bundles requirements for the notifier.
type MailNotifierDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Mailer     mail.Mailer
	Dispatcher events.Dispatcher
	SenderName string
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewMailNotifier creates the notifier.
func NewMailNotifier(deps MailNotifierDependencies) *MailNotifier {
	return &MailNotifier{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		mailer:     deps.Mailer,
		dispatcher: deps.Dispatcher,
		senderName: deps.SenderName,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// RegisterHandlers subscribes to transition events.
func (n *MailNotifier) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleStatusChanged)
}

func (n *MailNotifier) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	ticket, err := n.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		n.logger.Warn("assignment mail skipped: ticket lookup failed", zap.Error(err))
		return err
	}
	sender, ok := n.resolveSender(ctx, event.Actor.Username)
	if !ok {
		return nil
	}

	if tech, err := n.users.GetByNameOrUsername(ctx, payload.AssignedTo); err == nil && tech.Email != "" {
		n.send(ctx, sender, tech.Email, "Ticket Assigned by Admin", fmt.Sprintf(`
            <p>Dear %s,</p>
            <p>A new issue has been assigned by <strong>%s</strong>.</p>
            <p>
              <strong>User:</strong> %s<br/>
              <strong>Issue:</strong> %s<br/>
              <strong>Start:</strong> %s<br/>
              <strong>End:</strong> %s
            </p>
            <p>&mdash; Rapid Ticketing System</p>`,
			payload.AssignedTo, event.Actor.DisplayName, ticket.FullName, ticket.IssueText,
			formatDate(payload.StartDate), formatDate(payload.EndDate)))
	}

	if employee, err := n.users.GetByUsername(ctx, ticket.Username); err == nil && employee.Email != "" {
		n.send(ctx, sender, employee.Email, "Your Ticket Has Been Assigned", fmt.Sprintf(`
            <p>Dear <strong>%s</strong>,</p>
            <p>Your issue has been assigned to a technician by <strong>%s</strong>.</p>
            <p><strong>Issue:</strong> %s</p>
            <p>Our team will begin working on it shortly.</p>
            <p>&mdash; Rapid Ticketing System</p>`,
			ticket.FullName, event.Actor.DisplayName, ticket.IssueText))
	}
	return nil
}

func (n *MailNotifier) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	ticket, err := n.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		n.logger.Warn("status mail skipped: ticket lookup failed", zap.Error(err))
		return err
	}
	sender, ok := n.resolveSender(ctx, event.Actor.Username)
	if !ok {
		return nil
	}

	switch payload.NewStatus {
	case domain.TicketStatusInProcess:
		if employee, err := n.users.GetByUsername(ctx, ticket.Username); err == nil && employee.Email != "" {
			n.send(ctx, sender, employee.Email, "Issue Taken Over", fmt.Sprintf(`
                <p>Dear %s,</p>
                <p>Your issue has been taken over by <strong>%s</strong>.</p>
                <p>&mdash; Rapid Ticketing System</p>`,
				ticket.FullName, event.Actor.DisplayName))
		}
	case domain.TicketStatusComplete:
		if employee, err := n.users.GetByUsername(ctx, ticket.Username); err == nil && employee.Email != "" {
			n.send(ctx, sender, employee.Email,
				fmt.Sprintf("Issue Fixed by %s", event.Actor.DisplayName), fmt.Sprintf(`
                <p>Dear %s,</p>
                <p>Your issue "%s" marked as <strong>COMPLETE</strong>.</p>
                <p><strong>Technician Note:</strong><br/>%s</p>
                <p>&mdash; From: %s</p>`,
					ticket.FullName, ticket.IssueText, noteOrDefault(payload.Note), event.Actor.DisplayName))
		}
	case domain.TicketStatusRejected:
		n.notifyRejection(ctx, sender, event, ticket, payload.Note)
	}
	return nil
}

// notifyRejection mails the originator when a supervisor declines, and the
// supervisor when the technician declines.
func (n *MailNotifier) notifyRejection(ctx context.Context, sender *domain.User, event events.Event, ticket *domain.Ticket, note string) {
	if event.Actor.Role == domain.RoleAdmin {
		if employee, err := n.users.GetByUsername(ctx, ticket.Username); err == nil && employee.Email != "" {
			n.send(ctx, sender, employee.Email, "Your Ticket has been Rejected", fmt.Sprintf(`
                <p>Dear <strong>%s</strong>,</p>
                <p>Your submitted ticket has been <strong style="color:red;">REJECTED</strong> by <strong>%s</strong>.</p>
                <p><strong>Issue:</strong> %s</p>
                <p>&mdash; Rapid Ticketing System</p>`,
				ticket.FullName, event.Actor.DisplayName, ticket.IssueText))
		}
		return
	}
	if admin, err := n.users.GetByNameOrUsername(ctx, ticket.ReportingTo); err == nil && admin.Email != "" {
		n.send(ctx, sender, admin.Email,
			fmt.Sprintf("Ticket Rejected by %s", event.Actor.DisplayName), fmt.Sprintf(`
            <p>Dear %s,</p>
            <p>Technician <strong>%s</strong> rejected ticket:</p>
            <p><strong>User:</strong> %s<br/>
            <strong>Issue:</strong> %s</p>
            <p><strong>Reason:</strong><br/>%s</p>
            <p>&mdash; Rapid Ticketing System</p>`,
				ticket.ReportingTo, event.Actor.DisplayName, ticket.FullName, ticket.IssueText,
				noteOrDefault(note)))
	}
}

// resolveSender loads the acting user and checks they hold mail credentials.
func (n *MailNotifier) resolveSender(ctx context.Context, username string) (*domain.User, bool) {
	sender, err := n.users.GetByUsername(ctx, username)
	if err != nil || !sender.CanSendMail() {
		n.logger.Debug("notification mail skipped: sender credentials missing",
			zap.String("actor", username))
		return nil, false
	}
	return sender, true
}

func (n *MailNotifier) send(ctx context.Context, sender *domain.User, to, subject, body string) {
	msg := mail.Message{
		Credential: *sender.MailAPIKey,
		FromName:   n.senderName,
		From:       sender.Email,
		To:         to,
		Subject:    subject,
		HTML:       body,
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		n.metrics.RecordMail(false)
		n.logger.Warn("notification mail failed",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err))
		return
	}
	n.metrics.RecordMail(true)
	n.logger.Info("notification mail sent",
		zap.String("to", to),
		zap.String("subject", subject))
}

func noteOrDefault(note string) string {
	if note == "" {
		return "No remarks provided."
	}
	return note
}
