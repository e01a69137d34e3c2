package domain

import "time"

// AlertKind differentiates derived alert types.
type AlertKind string

const (
	AlertKindOverdue  AlertKind = "OVERDUE"
	AlertKindDueToday AlertKind = "DUE_TODAY"
)

// Alert is derived state computed from tickets by the periodic scan. At most
// one alert exists per (ticket, kind); alerts are never authoritative and are
// pruned purely by age.
type Alert struct {
	ID           string
	TicketID     string
	Kind         AlertKind
	Title        string
	Message      string
	Acknowledged bool
	RefreshedAt  time.Time
}

// AlertWithTicket pairs an alert with the owning ticket's current state so
// callers can filter stale alerts for closed tickets at render time.
type AlertWithTicket struct {
	Alert
	TicketStatus TicketStatus
	EmpID        string
	FullName     string
	AssignedTo   *string
	Department   string
	EndDate      *time.Time
}
