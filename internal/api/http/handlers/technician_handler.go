package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/rapid-ticketing/internal/api/dto"
	"github.com/spec-kit/rapid-ticketing/internal/auth"
	"github.com/spec-kit/rapid-ticketing/internal/service"
	apperrors "github.com/spec-kit/rapid-ticketing/pkg/util"
)

// TechnicianHandler serves the assignee's worklist and progress actions.
type TechnicianHandler struct {
	tickets   *service.TicketService
	lifecycle *service.LifecycleService
}

// NewTechnicianHandler constructs handler.
func NewTechnicianHandler(tickets *service.TicketService, lifecycle *service.LifecycleService) *TechnicianHandler {
	return &TechnicianHandler{tickets: tickets, lifecycle: lifecycle}
}

// MyTickets GET /api/technician/my-tickets?status=.
func (h *TechnicianHandler) MyTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("technician required")
	}
	status, err := parseStatusFilter(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.ListForAssignee(c.UserContext(), principal.User, status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketItems(tickets)})
}

// Transition PATCH /api/technician/tickets/:id/transition.
func (h *TechnicianHandler) Transition(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("technician required")
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	var action service.Action
	switch service.Action(strings.TrimSpace(req.Action)) {
	case service.ActionBeginReview:
		action = service.ActionBeginReview
	case service.ActionStartWork:
		action = service.ActionStartWork
	case service.ActionComplete:
		action = service.ActionComplete
	case service.ActionReject:
		action = service.ActionReject
	default:
		return apperrors.NewValidationError("unknown action", map[string]any{"action": req.Action})
	}

	input := service.TransitionInput{Note: strings.TrimSpace(req.Note)}
	ticket, err := h.lifecycle.Apply(c.UserContext(), principal.User, c.Params("id"), action, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}
