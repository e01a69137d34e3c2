package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/rapid-ticketing/internal/api/dto"
	"github.com/spec-kit/rapid-ticketing/internal/service"
	apperrors "github.com/spec-kit/rapid-ticketing/pkg/util"
)

// TicketsHandler serves the public reporting endpoints used by the kiosk
// form: submit, employee lookup, and per-employee status.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// Submit POST /api/tickets. One ticket is created per listed destination.
func (h *TicketsHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ip := strings.TrimSpace(req.IPAddress)
	if ip == "" {
		ip = c.IP()
	}

	input := service.SubmitInput{
		EmpID:        strings.TrimSpace(req.EmpID),
		Username:     strings.TrimSpace(req.Username),
		FullName:     strings.TrimSpace(req.FullName),
		Department:   strings.TrimSpace(req.Department),
		Destinations: req.ReportingTo,
		SystemIP:     ip,
		IssueText:    strings.TrimSpace(req.IssueText),
		Remarks:      req.Remarks,
	}
	tickets, err := h.service.Submit(c.UserContext(), input)
	if err != nil {
		return err
	}

	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.FromTicket(&tickets[i]))
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": items})
}

// FindEmployee GET /api/employees/find?key=. Looks up the reporter's profile
// by employee id or username so the form can prefill.
func (h *TicketsHandler) FindEmployee(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Query("key"))
	if key == "" {
		return apperrors.NewValidationError("key required", nil)
	}
	user, err := h.service.FindEmployee(c.UserContext(), key)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UserResponse(user)})
}

// ListAdmins GET /api/admins. Returns the destination display names a report
// can be addressed to.
func (h *TicketsHandler) ListAdmins(c *fiber.Ctx) error {
	names, err := h.service.ListSupervisors(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": names})
}

// StatusForEmployee GET /api/tickets/status?emp_id=.
func (h *TicketsHandler) StatusForEmployee(c *fiber.Ctx) error {
	empID := strings.TrimSpace(c.Query("emp_id"))
	if empID == "" {
		return apperrors.NewValidationError("emp_id required", nil)
	}
	tickets, err := h.service.ListForEmployee(c.UserContext(), empID)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.FromTicket(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
