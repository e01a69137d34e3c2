package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNotAssigned TicketStatus = "NOT_ASSIGNED"
	TicketStatusAssigned    TicketStatus = "ASSIGNED"
	TicketStatusNotStarted  TicketStatus = "NOT_STARTED"
	TicketStatusInProcess   TicketStatus = "INPROCESS"
	TicketStatusComplete    TicketStatus = "COMPLETE"
	TicketStatusRejected    TicketStatus = "REJECTED"
)

// IsTerminal reports whether no further transition leaves the status.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusComplete || s == TicketStatusRejected
}

// Valid reports membership in the status enum.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusNotAssigned, TicketStatusAssigned, TicketStatusNotStarted,
		TicketStatusInProcess, TicketStatusComplete, TicketStatusRejected:
		return true
	}
	return false
}

// TicketPriority is a display hint attached at assignment time.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// Ticket is the aggregate for reported issues. One submitted report fans out
// into one independent ticket per supervising destination; the destination is
// fixed at creation and only the assignee ever changes.
type Ticket struct {
	ID                string
	EmpID             string
	Username          string
	FullName          string
	Department        string
	ReportingTo       string
	AssignedTo        *string
	SystemIP          string
	IssueText         string
	Remarks           *string
	Status            TicketStatus
	Priority          *TicketPriority
	StartDate         *time.Time
	EndDate           *time.Time
	AlertAcknowledged bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DueState classifies a ticket's due date against a calendar day.
type DueState int

const (
	DueNone DueState = iota
	DueFuture
	DueToday
	Overdue
)

// DueStateOn compares the due date against the given moment, time-of-day
// ignored on both sides. Each side is read as a calendar day in its own zone:
// DATE columns scan back as UTC midnight while the scan clock is
// process-local, and comparing the two as instants would shift the day.
func (t *Ticket) DueStateOn(now time.Time) DueState {
	if t.EndDate == nil {
		return DueNone
	}
	due := DateOnly(*t.EndDate)
	today := DateOnly(now)
	switch {
	case due.Before(today):
		return Overdue
	case due.Equal(today):
		return DueToday
	default:
		return DueFuture
	}
}

// DateOnly reduces a moment to the calendar date it shows in its own zone,
// normalized to UTC midnight so dates taken in different zones compare as
// plain days.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
