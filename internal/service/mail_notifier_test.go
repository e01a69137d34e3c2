package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/spec-kit/rapid-ticketing/internal/domain"
	"github.com/spec-kit/rapid-ticketing/internal/events"
	"github.com/spec-kit/rapid-ticketing/internal/mail"
	"github.com/spec-kit/rapid-ticketing/internal/observability"
)

func newNotifierFixture() (*MailNotifier, *mockTicketRepo, *mockUserRepo, *mockMailer) {
	tickets := new(mockTicketRepo)
	users := new(mockUserRepo)
	mailer := new(mockMailer)
	notifier := NewMailNotifier(MailNotifierDependencies{
		TicketRepo: tickets,
		UserRepo:   users,
		Mailer:     mailer,
		Dispatcher: &captureDispatcher{},
		SenderName: "Rapid Ticketing System",
		Metrics:    observability.NewMetrics(),
		Logger:     zap.NewNop(),
	})
	return notifier, tickets, users, mailer
}

func notifierAdmin() *domain.User {
	return &domain.User{
		ID:         "a1",
		Username:   "asha",
		FullName:   "Asha Verma",
		Email:      "asha@corp.local",
		Role:       domain.RoleAdmin,
		MailAPIKey: strPtr("re_test_key"),
	}
}

func notifierTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:          "tk-1",
		Username:    "meera",
		FullName:    "Meera Nair",
		ReportingTo: "Asha Verma",
		AssignedTo:  strPtr("Ravi Kumar"),
		IssueText:   "Monitor flickers",
		Status:      domain.TicketStatusAssigned,
	}
}

func TestAssignmentMailsBothParties(t *testing.T) {
	ctx := context.Background()
	notifier, tickets, users, mailer := newNotifierFixture()

	tickets.On("GetByID", ctx, "tk-1").Return(notifierTicket(), nil).Once()
	users.On("GetByUsername", ctx, "asha").Return(notifierAdmin(), nil).Once()
	users.On("GetByNameOrUsername", ctx, "Ravi Kumar").Return(&domain.User{
		FullName: "Ravi Kumar", Email: "ravi@corp.local", Role: domain.RoleTechnician,
	}, nil).Once()
	users.On("GetByUsername", ctx, "meera").Return(&domain.User{
		Username: "meera", FullName: "Meera Nair", Email: "meera@corp.local", Role: domain.RoleUser,
	}, nil).Once()

	mailer.On("Send", ctx, mock.MatchedBy(func(m mail.Message) bool {
		return m.To == "ravi@corp.local" && m.Subject == "Ticket Assigned by Admin"
	})).Return(nil).Once()
	mailer.On("Send", ctx, mock.MatchedBy(func(m mail.Message) bool {
		return m.To == "meera@corp.local" && m.Subject == "Your Ticket Has Been Assigned"
	})).Return(nil).Once()

	err := notifier.handleTicketAssigned(ctx, events.Event{
		TicketID: "tk-1",
		Type:     events.EventTicketAssigned,
		Actor:    events.Actor{Username: "asha", DisplayName: "Asha Verma", Role: domain.RoleAdmin},
		Payload:  events.TicketAssignedPayload{AssignedTo: "Ravi Kumar"},
	})

	assert.NoError(t, err)
	mailer.AssertExpectations(t)
}

func TestSenderWithoutCredentialSkipsQuietly(t *testing.T) {
	ctx := context.Background()
	notifier, tickets, users, mailer := newNotifierFixture()

	tickets.On("GetByID", ctx, "tk-1").Return(notifierTicket(), nil).Once()
	admin := notifierAdmin()
	admin.MailAPIKey = nil
	users.On("GetByUsername", ctx, "asha").Return(admin, nil).Once()

	err := notifier.handleTicketAssigned(ctx, events.Event{
		TicketID: "tk-1",
		Type:     events.EventTicketAssigned,
		Actor:    events.Actor{Username: "asha", DisplayName: "Asha Verma", Role: domain.RoleAdmin},
		Payload:  events.TicketAssignedPayload{AssignedTo: "Ravi Kumar"},
	})

	assert.NoError(t, err)
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestCompletionMailsOriginator(t *testing.T) {
	ctx := context.Background()
	notifier, tickets, users, mailer := newNotifierFixture()

	tech := &domain.User{
		Username: "ravi", FullName: "Ravi Kumar", Email: "ravi@corp.local",
		Role: domain.RoleTechnician, MailAPIKey: strPtr("re_tech_key"),
	}
	ticket := notifierTicket()
	ticket.Status = domain.TicketStatusComplete

	tickets.On("GetByID", ctx, "tk-1").Return(ticket, nil).Once()
	users.On("GetByUsername", ctx, "ravi").Return(tech, nil).Once()
	users.On("GetByUsername", ctx, "meera").Return(&domain.User{
		Username: "meera", FullName: "Meera Nair", Email: "meera@corp.local", Role: domain.RoleUser,
	}, nil).Once()
	mailer.On("Send", ctx, mock.MatchedBy(func(m mail.Message) bool {
		return m.To == "meera@corp.local" && m.Subject == "Issue Fixed by Ravi Kumar"
	})).Return(nil).Once()

	err := notifier.handleStatusChanged(ctx, events.Event{
		TicketID: "tk-1",
		Type:     events.EventTicketStatusChanged,
		Actor:    events.Actor{Username: "ravi", DisplayName: "Ravi Kumar", Role: domain.RoleTechnician},
		Payload: events.TicketStatusChangedPayload{
			OldStatus: domain.TicketStatusInProcess,
			NewStatus: domain.TicketStatusComplete,
			Note:      "replaced cable",
		},
	})

	assert.NoError(t, err)
	mailer.AssertExpectations(t)
}

func TestTechnicianRejectionMailsSupervisor(t *testing.T) {
	ctx := context.Background()
	notifier, tickets, users, mailer := newNotifierFixture()

	tech := &domain.User{
		Username: "ravi", FullName: "Ravi Kumar", Email: "ravi@corp.local",
		Role: domain.RoleTechnician, MailAPIKey: strPtr("re_tech_key"),
	}
	ticket := notifierTicket()
	ticket.Status = domain.TicketStatusRejected

	tickets.On("GetByID", ctx, "tk-1").Return(ticket, nil).Once()
	users.On("GetByUsername", ctx, "ravi").Return(tech, nil).Once()
	users.On("GetByNameOrUsername", ctx, "Asha Verma").Return(notifierAdmin(), nil).Once()
	mailer.On("Send", ctx, mock.MatchedBy(func(m mail.Message) bool {
		return m.To == "asha@corp.local" && m.Subject == "Ticket Rejected by Ravi Kumar"
	})).Return(nil).Once()

	err := notifier.handleStatusChanged(ctx, events.Event{
		TicketID: "tk-1",
		Type:     events.EventTicketStatusChanged,
		Actor:    events.Actor{Username: "ravi", DisplayName: "Ravi Kumar", Role: domain.RoleTechnician},
		Payload: events.TicketStatusChangedPayload{
			OldStatus: domain.TicketStatusInProcess,
			NewStatus: domain.TicketStatusRejected,
			Note:      "hardware fault",
		},
	})

	assert.NoError(t, err)
	mailer.AssertExpectations(t)
}

func TestMissingRecipientSkipsSend(t *testing.T) {
	ctx := context.Background()
	notifier, tickets, users, mailer := newNotifierFixture()

	ticket := notifierTicket()
	ticket.Status = domain.TicketStatusInProcess

	tickets.On("GetByID", ctx, "tk-1").Return(ticket, nil).Once()
	tech := &domain.User{
		Username: "ravi", FullName: "Ravi Kumar", Email: "ravi@corp.local",
		Role: domain.RoleTechnician, MailAPIKey: strPtr("re_tech_key"),
	}
	users.On("GetByUsername", ctx, "ravi").Return(tech, nil).Once()
	users.On("GetByUsername", ctx, "meera").Return(nil, pgx.ErrNoRows).Once()

	err := notifier.handleStatusChanged(ctx, events.Event{
		TicketID: "tk-1",
		Type:     events.EventTicketStatusChanged,
		Actor:    events.Actor{Username: "ravi", DisplayName: "Ravi Kumar", Role: domain.RoleTechnician},
		Payload: events.TicketStatusChangedPayload{
			OldStatus: domain.TicketStatusNotStarted,
			NewStatus: domain.TicketStatusInProcess,
		},
	})

	assert.NoError(t, err)
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}
