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

// TicketService coordinates ticket intake and queries. Submission fans one
// report out into one independent ticket per destination; the siblings share
// nothing after creation.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles requirements for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// SubmitInput describes one issue report naming one or more destinations.
type SubmitInput struct {
	EmpID        string
	Username     string
	FullName     string
	Department   string
	Destinations []string
	SystemIP     string
	IssueText    string
	Remarks      *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Submit creates one NOT_ASSIGNED ticket per destination.
func (s *TicketService) Submit(ctx context.Context, input SubmitInput) ([]domain.Ticket, error) {
	if strings.TrimSpace(input.EmpID) == "" ||
		strings.TrimSpace(input.Username) == "" ||
		strings.TrimSpace(input.FullName) == "" ||
		strings.TrimSpace(input.Department) == "" ||
		strings.TrimSpace(input.IssueText) == "" {
		return nil, apperrors.NewPreconditionFailed("missing required fields", nil)
	}
	destinations := make([]string, 0, len(input.Destinations))
	for _, dest := range input.Destinations {
		if d := strings.TrimSpace(dest); d != "" {
			destinations = append(destinations, d)
		}
	}
	if len(destinations) == 0 {
		return nil, apperrors.NewPreconditionFailed("at least one destination required", nil)
	}

	created := make([]domain.Ticket, 0, len(destinations))
	for _, dest := range destinations {
		ticket := domain.Ticket{
			EmpID:       input.EmpID,
			Username:    input.Username,
			FullName:    input.FullName,
			Department:  input.Department,
			ReportingTo: dest,
			SystemIP:    input.SystemIP,
			IssueText:   strings.TrimSpace(input.IssueText),
			Remarks:     input.Remarks,
			Status:      domain.TicketStatusNotAssigned,
		}
		if err := s.tickets.Create(ctx, &ticket); err != nil {
			return nil, apperrors.MapError(err)
		}
		created = append(created, ticket)
		s.publishSubmitted(ctx, &ticket)
	}

	s.logger.Info("report submitted",
		zap.String("emp_id", input.EmpID),
		zap.Int("tickets", len(created)))
	return created, nil
}

// FindEmployee resolves an employee by emp id or username.
func (s *TicketService) FindEmployee(ctx context.Context, key string) (*domain.User, error) {
	if strings.TrimSpace(key) == "" {
		return nil, apperrors.NewValidationError("key required", nil)
	}
	user, err := s.users.GetByEmpIDOrUsername(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("employee", map[string]any{"key": key})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// ListSupervisors returns the display names reports can be routed to.
func (s *TicketService) ListSupervisors(ctx context.Context) ([]string, error) {
	admins, err := s.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	names := make([]string, 0, len(admins))
	for _, admin := range admins {
		names = append(names, admin.FullName)
	}
	return names, nil
}

// ListForEmployee returns an originator's tickets across all destinations.
func (s *TicketService) ListForEmployee(ctx context.Context, empID string) ([]domain.Ticket, error) {
	if strings.TrimSpace(empID) == "" {
		return nil, apperrors.NewValidationError("emp_id required", nil)
	}
	tickets, err := s.tickets.ListByEmployee(ctx, empID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListForSupervisor returns the destination inbox, optionally status-filtered.
func (s *TicketService) ListForSupervisor(ctx context.Context, actor *domain.User, status *domain.TicketStatus) ([]domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("supervisor required")
	}
	tickets, err := s.tickets.ListByDestination(ctx, actor.FullName, status)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// CountsForSupervisor returns per-status ticket counts for the destination.
func (s *TicketService) CountsForSupervisor(ctx context.Context, actor *domain.User) (map[domain.TicketStatus]int, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("supervisor required")
	}
	counts, err := s.tickets.CountByDestination(ctx, actor.FullName)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return counts, nil
}

// ListForAssignee returns the worker's ticket list, optionally status-filtered.
func (s *TicketService) ListForAssignee(ctx context.Context, actor *domain.User, status *domain.TicketStatus) ([]domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("technician required")
	}
	tickets, err := s.tickets.ListByAssignee(ctx, actor.FullName, status)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// AcknowledgeTicket marks the ticket-level alert flag as seen.
func (s *TicketService) AcknowledgeTicket(ctx context.Context, ticketID string) error {
	if err := s.tickets.SetAlertAcknowledged(ctx, ticketID, true); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func (s *TicketService) publishSubmitted(ctx context.Context, ticket *domain.Ticket) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:       uuid.NewString(),
		Type:     events.EventTicketSubmitted,
		TicketID: ticket.ID,
		Actor: events.Actor{
			Username:    ticket.Username,
			DisplayName: ticket.FullName,
			Role:        domain.RoleUser,
		},
		Timestamp: time.Now(),
		Payload: events.TicketSubmittedPayload{
			Destination: ticket.ReportingTo,
			IssueText:   ticket.IssueText,
		},
	})
}
