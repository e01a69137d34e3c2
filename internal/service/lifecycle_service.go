package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/rapid-ticketing/internal/domain"
	"github.com/spec-kit/rapid-ticketing/internal/events"
	"github.com/spec-kit/rapid-ticketing/internal/repository"
	apperrors "github.com/spec-kit/rapid-ticketing/pkg/util"
)

// Action enumerates lifecycle transitions.
type Action string

const (
	ActionAssign      Action = "assign"
	ActionReject      Action = "reject"
	ActionBeginReview Action = "begin-review"
	ActionStartWork   Action = "start-work"
	ActionComplete    Action = "complete"
)

type transitionKey struct {
	from   domain.TicketStatus
	action Action
}

type transitionRule struct {
	role         domain.Role
	to           domain.TicketStatus
	requiresNote bool
	// assigns marks the single transition allowed to write the assignee and
	// the assignment metadata (dates, priority, remarks).
	assigns bool
}

// transitionTable is the complete lifecycle. Any (status, action) pair absent
// here, or attempted by the wrong role, is an invalid transition and leaves
// the ticket unchanged.
var transitionTable = map[transitionKey]transitionRule{
	{domain.TicketStatusNotAssigned, ActionAssign}: {role: domain.RoleAdmin, to: domain.TicketStatusAssigned, assigns: true},
	{domain.TicketStatusNotAssigned, ActionReject}: {role: domain.RoleAdmin, to: domain.TicketStatusRejected, requiresNote: true},
	{domain.TicketStatusAssigned, ActionBeginReview}: {role: domain.RoleTechnician, to: domain.TicketStatusNotStarted},
	{domain.TicketStatusNotStarted, ActionStartWork}: {role: domain.RoleTechnician, to: domain.TicketStatusInProcess},
	{domain.TicketStatusInProcess, ActionComplete}: {role: domain.RoleTechnician, to: domain.TicketStatusComplete, requiresNote: true},
	{domain.TicketStatusInProcess, ActionReject}:   {role: domain.RoleTechnician, to: domain.TicketStatusRejected, requiresNote: true},
}

// TransitionInput carries the optional fields a transition may consume.
type TransitionInput struct {
	AssignedTo string
	StartDate  *time.Time
	EndDate    *time.Time
	Priority   *domain.TicketPriority
	Remarks    *string
	Note       string
}

// LifecycleService validates and applies state transitions. Writes are
// compare-and-swapped on the status column, so two racing transitions on the
// same ticket cannot both succeed from one stale read.
type LifecycleService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// LifecycleDependencies bundles requirements for the lifecycle service.
type LifecycleDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	return &LifecycleService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Apply performs one lifecycle transition on behalf of the actor.
func (s *LifecycleService) Apply(ctx context.Context, actor *domain.User, ticketID string, action Action, input TransitionInput) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authenticated caller required")
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	rule, ok := transitionTable[transitionKey{from: ticket.Status, action: action}]
	if !ok {
		return nil, apperrors.NewInvalidTransition("action not allowed from current status", map[string]any{
			"status": ticket.Status,
			"action": action,
		})
	}
	if actor.Role != rule.role {
		return nil, apperrors.NewInvalidTransition("role not permitted for this action", map[string]any{
			"action": action,
			"role":   actor.Role,
		})
	}
	if !s.actorOwnsTicket(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}

	note := strings.TrimSpace(input.Note)
	if rule.requiresNote && note == "" {
		return nil, apperrors.NewPreconditionFailed("note required for this transition", map[string]any{
			"action": action,
		})
	}

	from := ticket.Status
	updated := *ticket
	updated.Status = rule.to

	if rule.assigns {
		assignee, err := s.resolveAssignee(ctx, input.AssignedTo)
		if err != nil {
			return nil, err
		}
		updated.AssignedTo = &assignee.FullName
		updated.StartDate = input.StartDate
		updated.EndDate = input.EndDate
		updated.Priority = input.Priority
		if input.Remarks != nil {
			updated.Remarks = input.Remarks
		}
	}
	if rule.to.IsTerminal() {
		updated.Remarks = &note
	}

	swapped, err := s.tickets.UpdateFromStatus(ctx, &updated, from)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !swapped {
		// Another writer moved the status between our read and this write.
		if _, err := s.tickets.GetByID(ctx, ticketID); errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewInvalidTransition("ticket status changed concurrently", map[string]any{
			"ticket_id": ticketID,
			"action":    action,
		})
	}

	s.logger.Info("ticket transition",
		zap.String("ticket_id", ticket.ID),
		zap.String("action", string(action)),
		zap.String("from", string(from)),
		zap.String("to", string(rule.to)),
		zap.String("actor", actor.Username))

	s.publishTransition(ctx, actor, &updated, action, from, note)
	return &updated, nil
}

// ListTechnicians returns the workers an admin may assign to.
func (s *LifecycleService) ListTechnicians(ctx context.Context) ([]domain.User, error) {
	techs, err := s.users.ListByRole(ctx, domain.RoleTechnician)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return techs, nil
}

func (s *LifecycleService) actorOwnsTicket(actor *domain.User, ticket *domain.Ticket) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return ticket.ReportingTo == actor.FullName
	case domain.RoleTechnician:
		return ticket.AssignedTo != nil && *ticket.AssignedTo == actor.FullName
	}
	return false
}

func (s *LifecycleService) resolveAssignee(ctx context.Context, key string) (*domain.User, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, apperrors.NewPreconditionFailed("assigned_to required", nil)
	}
	assignee, err := s.users.GetByNameOrUsername(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("technician", map[string]any{"assigned_to": key})
		}
		return nil, apperrors.MapError(err)
	}
	if assignee.Role != domain.RoleTechnician {
		return nil, apperrors.NewPreconditionFailed("assignee is not a technician", map[string]any{
			"assigned_to": key,
		})
	}
	return assignee, nil
}

func (s *LifecycleService) publishTransition(ctx context.Context, actor *domain.User, ticket *domain.Ticket, action Action, from domain.TicketStatus, note string) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		TicketID:  ticket.ID,
		Actor:     eventActor(actor),
		Timestamp: time.Now(),
	}
	if action == ActionAssign && ticket.AssignedTo != nil {
		event.Type = events.EventTicketAssigned
		event.Payload = events.TicketAssignedPayload{
			AssignedTo: *ticket.AssignedTo,
			StartDate:  ticket.StartDate,
			EndDate:    ticket.EndDate,
		}
	} else {
		event.Type = events.EventTicketStatusChanged
		event.Payload = events.TicketStatusChangedPayload{
			OldStatus: from,
			NewStatus: ticket.Status,
			Note:      note,
		}
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func eventActor(actor *domain.User) events.Actor {
	return events.Actor{
		Username:    actor.Username,
		DisplayName: actor.FullName,
		Role:        actor.Role,
	}
}
