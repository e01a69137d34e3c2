package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/spec-kit/rapid-ticketing/internal/domain"
	"github.com/spec-kit/rapid-ticketing/internal/events"
	apperrors "github.com/spec-kit/rapid-ticketing/pkg/util"
)

func newLifecycleFixture() (*LifecycleService, *mockTicketRepo, *mockUserRepo, *captureDispatcher) {
	tickets := new(mockTicketRepo)
	users := new(mockUserRepo)
	dispatcher := &captureDispatcher{}
	svc := NewLifecycleService(LifecycleDependencies{
		TicketRepo: tickets,
		UserRepo:   users,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
	return svc, tickets, users, dispatcher
}

func adminActor() *domain.User {
	return &domain.User{ID: "a1", Username: "asha", FullName: "Asha Verma", Role: domain.RoleAdmin, Email: "asha@corp.local"}
}

func techActor() *domain.User {
	return &domain.User{ID: "t1", Username: "ravi", FullName: "Ravi Kumar", Role: domain.RoleTechnician, Email: "ravi@corp.local"}
}

func pendingTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:          "tk-1",
		EmpID:       "E100",
		Username:    "meera",
		FullName:    "Meera Nair",
		Department:  "Finance",
		ReportingTo: "Asha Verma",
		SystemIP:    "10.0.0.12",
		IssueText:   "Monitor flickers on boot",
		Status:      domain.TicketStatusNotAssigned,
	}
}

func TestLifecycleAssign(t *testing.T) {
	ctx := context.Background()

	t.Run("writes assignee and metadata", func(t *testing.T) {
		svc, tickets, users, dispatcher := newLifecycleFixture()
		ticket := pendingTicket()
		start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
		end := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
		priority := domain.TicketPriorityHigh

		tickets.On("GetByID", ctx, "tk-1").Return(ticket, nil).Once()
		users.On("GetByNameOrUsername", ctx, "Ravi Kumar").Return(techActor(), nil).Once()
		tickets.On("UpdateFromStatus", ctx, mock.MatchedBy(func(u *domain.Ticket) bool {
			return u.Status == domain.TicketStatusAssigned &&
				u.AssignedTo != nil && *u.AssignedTo == "Ravi Kumar" &&
				u.StartDate != nil && u.StartDate.Equal(start) &&
				u.EndDate != nil && u.EndDate.Equal(end) &&
				u.Priority != nil && *u.Priority == priority
		}), domain.TicketStatusNotAssigned).Return(true, nil).Once()

		updated, err := svc.Apply(ctx, adminActor(), "tk-1", ActionAssign, TransitionInput{
			AssignedTo: "Ravi Kumar",
			StartDate:  &start,
			EndDate:    &end,
			Priority:   &priority,
		})

		assert.NoError(t, err)
		assert.Equal(t, domain.TicketStatusAssigned, updated.Status)
		assert.Equal(t, "Ravi Kumar", *updated.AssignedTo)

		published := dispatcher.published()
		if assert.Len(t, published, 1) {
			assert.Equal(t, events.EventTicketAssigned, published[0].Type)
			payload := published[0].Payload.(events.TicketAssignedPayload)
			assert.Equal(t, "Ravi Kumar", payload.AssignedTo)
		}
		tickets.AssertExpectations(t)
		users.AssertExpectations(t)
	})

	t.Run("rejects non technician assignee", func(t *testing.T) {
		svc, tickets, users, _ := newLifecycleFixture()
		tickets.On("GetByID", ctx, "tk-1").Return(pendingTicket(), nil).Once()
		otherAdmin := &domain.User{ID: "a2", Username: "nidhi", FullName: "Nidhi Rao", Role: domain.RoleAdmin}
		users.On("GetByNameOrUsername", ctx, "Nidhi Rao").Return(otherAdmin, nil).Once()

		_, err := svc.Apply(ctx, adminActor(), "tk-1", ActionAssign, TransitionInput{AssignedTo: "Nidhi Rao"})

		de := apperrors.ToDomainError(err)
		assert.Equal(t, "PRECONDITION_FAILED", de.Code)
		tickets.AssertNotCalled(t, "UpdateFromStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown assignee is not found", func(t *testing.T) {
		svc, tickets, users, _ := newLifecycleFixture()
		tickets.On("GetByID", ctx, "tk-1").Return(pendingTicket(), nil).Once()
		users.On("GetByNameOrUsername", ctx, "ghost").Return(nil, pgx.ErrNoRows).Once()

		_, err := svc.Apply(ctx, adminActor(), "tk-1", ActionAssign, TransitionInput{AssignedTo: "ghost"})

		de := apperrors.ToDomainError(err)
		assert.Equal(t, "NOT_FOUND", de.Code)
	})
}

func TestLifecycleTransitionTable(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name    string
		from    domain.TicketStatus
		action  Action
		actor   *domain.User
		note    string
		wantTo  domain.TicketStatus
		wantErr string
	}{
		{name: "admin rejects unassigned with note", from: domain.TicketStatusNotAssigned, action: ActionReject, actor: adminActor(), note: "duplicate report", wantTo: domain.TicketStatusRejected},
		{name: "tech begins review", from: domain.TicketStatusAssigned, action: ActionBeginReview, actor: techActor(), wantTo: domain.TicketStatusNotStarted},
		{name: "tech starts work", from: domain.TicketStatusNotStarted, action: ActionStartWork, actor: techActor(), wantTo: domain.TicketStatusInProcess},
		{name: "tech completes with note", from: domain.TicketStatusInProcess, action: ActionComplete, actor: techActor(), note: "replaced cable", wantTo: domain.TicketStatusComplete},
		{name: "tech rejects in process with note", from: domain.TicketStatusInProcess, action: ActionReject, actor: techActor(), note: "hardware fault", wantTo: domain.TicketStatusRejected},
		{name: "no reject once assigned", from: domain.TicketStatusAssigned, action: ActionReject, actor: techActor(), note: "n", wantErr: "INVALID_TRANSITION"},
		{name: "admin cannot work a ticket", from: domain.TicketStatusAssigned, action: ActionBeginReview, actor: adminActor(), wantErr: "INVALID_TRANSITION"},
		{name: "complete requires a note", from: domain.TicketStatusInProcess, action: ActionComplete, actor: techActor(), wantErr: "PRECONDITION_FAILED"},
		{name: "reject requires a note", from: domain.TicketStatusNotAssigned, action: ActionReject, actor: adminActor(), wantErr: "PRECONDITION_FAILED"},
		{name: "terminal states have no exits", from: domain.TicketStatusComplete, action: ActionStartWork, actor: techActor(), wantErr: "INVALID_TRANSITION"},
		{name: "rejected stays rejected", from: domain.TicketStatusRejected, action: ActionAssign, actor: adminActor(), wantErr: "INVALID_TRANSITION"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, tickets, _, _ := newLifecycleFixture()
			ticket := pendingTicket()
			ticket.Status = tc.from
			if tc.actor.Role == domain.RoleTechnician {
				ticket.AssignedTo = strPtr(tc.actor.FullName)
			}
			tickets.On("GetByID", ctx, "tk-1").Return(ticket, nil).Once()

			if tc.wantErr == "" {
				tickets.On("UpdateFromStatus", ctx, mock.MatchedBy(func(u *domain.Ticket) bool {
					return u.Status == tc.wantTo
				}), tc.from).Return(true, nil).Once()
			}

			updated, err := svc.Apply(ctx, tc.actor, "tk-1", tc.action, TransitionInput{Note: tc.note})

			if tc.wantErr != "" {
				assert.Equal(t, tc.wantErr, apperrors.ToDomainError(err).Code)
				tickets.AssertNotCalled(t, "UpdateFromStatus", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.wantTo, updated.Status)
			if tc.wantTo.IsTerminal() {
				assert.Equal(t, tc.note, *updated.Remarks)
			}
			tickets.AssertExpectations(t)
		})
	}
}

func TestLifecycleOwnership(t *testing.T) {
	ctx := context.Background()

	t.Run("admin of another inbox is denied", func(t *testing.T) {
		svc, tickets, _, _ := newLifecycleFixture()
		ticket := pendingTicket()
		ticket.ReportingTo = "Someone Else"
		tickets.On("GetByID", ctx, "tk-1").Return(ticket, nil).Once()

		_, err := svc.Apply(ctx, adminActor(), "tk-1", ActionReject, TransitionInput{Note: "n"})

		assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
	})

	t.Run("tech not assigned is denied", func(t *testing.T) {
		svc, tickets, _, _ := newLifecycleFixture()
		ticket := pendingTicket()
		ticket.Status = domain.TicketStatusAssigned
		ticket.AssignedTo = strPtr("Other Tech")
		tickets.On("GetByID", ctx, "tk-1").Return(ticket, nil).Once()

		_, err := svc.Apply(ctx, techActor(), "tk-1", ActionBeginReview, TransitionInput{})

		assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
	})
}

func TestLifecycleConcurrentWriter(t *testing.T) {
	ctx := context.Background()
	svc, tickets, _, dispatcher := newLifecycleFixture()

	ticket := pendingTicket()
	ticket.Status = domain.TicketStatusAssigned
	ticket.AssignedTo = strPtr("Ravi Kumar")

	tickets.On("GetByID", ctx, "tk-1").Return(ticket, nil).Twice()
	tickets.On("UpdateFromStatus", ctx, mock.Anything, domain.TicketStatusAssigned).Return(false, nil).Once()

	_, err := svc.Apply(ctx, techActor(), "tk-1", ActionBeginReview, TransitionInput{})

	de := apperrors.ToDomainError(err)
	assert.Equal(t, "INVALID_TRANSITION", de.Code)
	assert.Empty(t, dispatcher.published())
	tickets.AssertExpectations(t)
}

func TestLifecycleTicketMissing(t *testing.T) {
	ctx := context.Background()
	svc, tickets, _, _ := newLifecycleFixture()
	tickets.On("GetByID", ctx, "nope").Return(nil, pgx.ErrNoRows).Once()

	_, err := svc.Apply(ctx, adminActor(), "nope", ActionReject, TransitionInput{Note: "n"})

	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}
