package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/spec-kit/rapid-ticketing/internal/domain"
	"github.com/spec-kit/rapid-ticketing/internal/events"
	"github.com/spec-kit/rapid-ticketing/internal/mail"
)

type mockTicketRepo struct {
	mock.Mock
}

func (m *mockTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *mockTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if t, ok := args.Get(0).(*domain.Ticket); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *mockTicketRepo) UpdateFromStatus(ctx context.Context, ticket *domain.Ticket, from domain.TicketStatus) (bool, error) {
	args := m.Called(ctx, ticket, from)
	return args.Bool(0), args.Error(1)
}

func (m *mockTicketRepo) ListByDestination(ctx context.Context, destination string, status *domain.TicketStatus) ([]domain.Ticket, error) {
	args := m.Called(ctx, destination, status)
	if t, ok := args.Get(0).([]domain.Ticket); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTicketRepo) ListByAssignee(ctx context.Context, assignee string, status *domain.TicketStatus) ([]domain.Ticket, error) {
	args := m.Called(ctx, assignee, status)
	if t, ok := args.Get(0).([]domain.Ticket); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTicketRepo) ListByEmployee(ctx context.Context, empID string) ([]domain.Ticket, error) {
	args := m.Called(ctx, empID)
	if t, ok := args.Get(0).([]domain.Ticket); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTicketRepo) CountByDestination(ctx context.Context, destination string) (map[domain.TicketStatus]int, error) {
	args := m.Called(ctx, destination)
	if c, ok := args.Get(0).(map[domain.TicketStatus]int); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTicketRepo) ListAlertCandidates(ctx context.Context, day time.Time) ([]domain.Ticket, error) {
	args := m.Called(ctx, day)
	if t, ok := args.Get(0).([]domain.Ticket); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTicketRepo) SetAlertAcknowledged(ctx context.Context, id string, acknowledged bool) error {
	args := m.Called(ctx, id, acknowledged)
	return args.Error(0)
}

type mockAlertRepo struct {
	mock.Mock
}

func (m *mockAlertRepo) Upsert(ctx context.Context, alert *domain.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *mockAlertRepo) ListByDestination(ctx context.Context, destination string) ([]domain.AlertWithTicket, error) {
	args := m.Called(ctx, destination)
	if a, ok := args.Get(0).([]domain.AlertWithTicket); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAlertRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Alert, error) {
	args := m.Called(ctx, ticketID)
	if a, ok := args.Get(0).([]domain.Alert); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAlertRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

func (m *mockAlertRepo) SetAcknowledged(ctx context.Context, ticketID string, kind domain.AlertKind, acknowledged bool) error {
	args := m.Called(ctx, ticketID, kind, acknowledged)
	return args.Error(0)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*domain.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if u, ok := args.Get(0).(*domain.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) GetByNameOrUsername(ctx context.Context, key string) (*domain.User, error) {
	args := m.Called(ctx, key)
	if u, ok := args.Get(0).(*domain.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) GetByEmpIDOrUsername(ctx context.Context, key string) (*domain.User, error) {
	args := m.Called(ctx, key)
	if u, ok := args.Get(0).(*domain.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	args := m.Called(ctx, role)
	if u, ok := args.Get(0).([]domain.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, msg mail.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// captureDispatcher records published events for assertions.
type captureDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *captureDispatcher) published() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.Event, len(d.events))
	copy(out, d.events)
	return out
}

func strPtr(s string) *string {
	return &s
}
