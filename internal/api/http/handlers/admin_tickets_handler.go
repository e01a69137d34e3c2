package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/rapid-ticketing/internal/api/dto"
	"github.com/spec-kit/rapid-ticketing/internal/auth"
	"github.com/spec-kit/rapid-ticketing/internal/domain"
	"github.com/spec-kit/rapid-ticketing/internal/service"
	apperrors "github.com/spec-kit/rapid-ticketing/pkg/util"
)

// AdminTicketsHandler serves the supervisor workbench: listing, assignment,
// rejection, and reminder dispatch.
type AdminTicketsHandler struct {
	tickets   *service.TicketService
	lifecycle *service.LifecycleService
	reminders *service.ReminderService
}

// NewAdminTicketsHandler constructs handler.
func NewAdminTicketsHandler(tickets *service.TicketService, lifecycle *service.LifecycleService, reminders *service.ReminderService) *AdminTicketsHandler {
	return &AdminTicketsHandler{tickets: tickets, lifecycle: lifecycle, reminders: reminders}
}

// ListTickets GET /api/admin/tickets?status=.
func (h *AdminTicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("admin required")
	}
	status, err := parseStatusFilter(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.ListForSupervisor(c.UserContext(), principal.User, status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketItems(tickets)})
}

// Counts GET /api/admin/tickets/counts.
func (h *AdminTicketsHandler) Counts(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("admin required")
	}
	counts, err := h.tickets.CountsForSupervisor(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": counts})
}

// ListTechnicians GET /api/admin/technicians.
func (h *AdminTicketsHandler) ListTechnicians(c *fiber.Ctx) error {
	techs, err := h.lifecycle.ListTechnicians(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.UserSummary, 0, len(techs))
	for i := range techs {
		items = append(items, dto.UserResponse(&techs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Assign PATCH /api/admin/tickets/:id/assign.
func (h *AdminTicketsHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("admin required")
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.AssignedTo) == "" {
		return apperrors.NewValidationError("assigned_to required", nil)
	}
	startDate, ok := dto.ParseDate(req.StartDate)
	if !ok {
		return apperrors.NewValidationError("start_date must be YYYY-MM-DD", nil)
	}
	endDate, ok := dto.ParseDate(req.EndDate)
	if !ok {
		return apperrors.NewValidationError("end_date must be YYYY-MM-DD", nil)
	}

	input := service.TransitionInput{
		AssignedTo: strings.TrimSpace(req.AssignedTo),
		StartDate:  startDate,
		EndDate:    endDate,
		Priority:   req.Priority,
		Remarks:    req.Remarks,
	}
	ticket, err := h.lifecycle.Apply(c.UserContext(), principal.User, c.Params("id"), service.ActionAssign, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// Reject PATCH /api/admin/tickets/:id/reject.
func (h *AdminTicketsHandler) Reject(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("admin required")
	}
	var req dto.RejectTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.TransitionInput{Note: strings.TrimSpace(req.Note)}
	ticket, err := h.lifecycle.Apply(c.UserContext(), principal.User, c.Params("id"), service.ActionReject, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// Remind POST /api/admin/tickets/:id/remind. A failed send is reported as a
// warning on a 200 response, never as a request failure.
func (h *AdminTicketsHandler) Remind(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("admin required")
	}
	var req dto.RemindRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	err := h.reminders.Remind(c.UserContext(), principal.User, c.Params("id"), req.Message)
	if err != nil {
		if apperrors.IsDispatchFailure(err) {
			return c.JSON(fiber.Map{"ok": false, "warning": err.Error()})
		}
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

// MarkSeen PATCH /api/admin/tickets/:id/seen.
func (h *AdminTicketsHandler) MarkSeen(c *fiber.Ctx) error {
	if err := h.tickets.AcknowledgeTicket(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

func parseStatusFilter(c *fiber.Ctx) (*domain.TicketStatus, error) {
	raw := strings.TrimSpace(c.Query("status"))
	if raw == "" {
		return nil, nil
	}
	status := domain.TicketStatus(strings.ToUpper(raw))
	if !status.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": raw})
	}
	return &status, nil
}

func ticketItems(tickets []domain.Ticket) []dto.TicketResponse {
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.FromTicket(&tickets[i]))
	}
	return items
}
