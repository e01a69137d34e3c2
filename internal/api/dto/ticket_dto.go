package dto

import (
	"time"

	"github.com/spec-kit/rapid-ticketing/internal/domain"
)

// SubmitTicketRequest payload. ReportingTo accepts one destination or many;
// each destination becomes its own ticket.
type SubmitTicketRequest struct {
	EmpID       string   `json:"emp_id"`
	Username    string   `json:"username"`
	FullName    string   `json:"full_name"`
	Department  string   `json:"department"`
	ReportingTo []string `json:"reporting_to"`
	IssueText   string   `json:"issue_text"`
	Remarks     *string  `json:"remarks"`
	IPAddress   string   `json:"ip_address"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AssignedTo string                 `json:"assigned_to"`
	StartDate  *string                `json:"start_date"`
	EndDate    *string                `json:"end_date"`
	Priority   *domain.TicketPriority `json:"priority"`
	Remarks    *string                `json:"remarks"`
}

// RejectTicketRequest payload.
type RejectTicketRequest struct {
	Note string `json:"note"`
}

// TransitionRequest is the technician's action payload.
type TransitionRequest struct {
	Action string `json:"action"`
	Note   string `json:"note"`
}

// RemindRequest payload.
type RemindRequest struct {
	Message string `json:"message"`
}

// TicketResponse is the full ticket view.
type TicketResponse struct {
	ID                string                 `json:"id"`
	EmpID             string                 `json:"emp_id"`
	Username          string                 `json:"username"`
	FullName          string                 `json:"full_name"`
	Department        string                 `json:"department"`
	ReportingTo       string                 `json:"reporting_to"`
	AssignedTo        *string                `json:"assigned_to"`
	SystemIP          string                 `json:"system_ip"`
	IssueText         string                 `json:"issue_text"`
	Remarks           *string                `json:"remarks"`
	Status            domain.TicketStatus    `json:"status"`
	Priority          *domain.TicketPriority `json:"priority"`
	StartDate         *string                `json:"start_date"`
	EndDate           *string                `json:"end_date"`
	AlertAcknowledged bool                   `json:"alert_acknowledged"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// AlertResponse pairs a derived alert with the owning ticket's current state.
type AlertResponse struct {
	ID           string              `json:"id"`
	TicketID     string              `json:"ticket_id"`
	Kind         domain.AlertKind    `json:"kind"`
	Title        string              `json:"title"`
	Message      string              `json:"message"`
	Acknowledged bool                `json:"acknowledged"`
	RefreshedAt  time.Time           `json:"refreshed_at"`
	TicketStatus domain.TicketStatus `json:"ticket_status"`
	EmpID        string              `json:"emp_id"`
	FullName     string              `json:"full_name"`
	AssignedTo   *string             `json:"assigned_to"`
	Department   string              `json:"department"`
	EndDate      *string             `json:"end_date"`
}

// FromTicket maps a domain ticket.
func FromTicket(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                t.ID,
		EmpID:             t.EmpID,
		Username:          t.Username,
		FullName:          t.FullName,
		Department:        t.Department,
		ReportingTo:       t.ReportingTo,
		AssignedTo:        t.AssignedTo,
		SystemIP:          t.SystemIP,
		IssueText:         t.IssueText,
		Remarks:           t.Remarks,
		Status:            t.Status,
		Priority:          t.Priority,
		StartDate:         DateString(t.StartDate),
		EndDate:           DateString(t.EndDate),
		AlertAcknowledged: t.AlertAcknowledged,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

// FromAlert maps an alert joined with ticket state.
func FromAlert(a *domain.AlertWithTicket) AlertResponse {
	return AlertResponse{
		ID:           a.ID,
		TicketID:     a.TicketID,
		Kind:         a.Kind,
		Title:        a.Title,
		Message:      a.Message,
		Acknowledged: a.Acknowledged,
		RefreshedAt:  a.RefreshedAt,
		TicketStatus: a.TicketStatus,
		EmpID:        a.EmpID,
		FullName:     a.FullName,
		AssignedTo:   a.AssignedTo,
		Department:   a.Department,
		EndDate:      DateString(a.EndDate),
	}
}

// DateString renders an optional date as YYYY-MM-DD.
func DateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

// ParseDate parses an optional YYYY-MM-DD value.
func ParseDate(val *string) (*time.Time, bool) {
	if val == nil || *val == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", *val)
	if err != nil {
		return nil, false
	}
	return &t, true
}
