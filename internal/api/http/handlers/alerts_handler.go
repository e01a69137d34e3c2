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

// AlertsHandler serves the supervisor's due-date alert feed.
type AlertsHandler struct {
	service *service.AlertService
}

// NewAlertsHandler constructs handler.
func NewAlertsHandler(alertService *service.AlertService) *AlertsHandler {
	return &AlertsHandler{service: alertService}
}

// List GET /api/admin/alerts.
func (h *AlertsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("admin required")
	}
	alerts, err := h.service.ListForSupervisor(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	items := make([]dto.AlertResponse, 0, len(alerts))
	for i := range alerts {
		items = append(items, dto.FromAlert(&alerts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Acknowledge PATCH /api/admin/alerts/:ticketId/:kind/ack.
func (h *AlertsHandler) Acknowledge(c *fiber.Ctx) error {
	kind := domain.AlertKind(strings.ToUpper(c.Params("kind")))
	if kind != domain.AlertKindOverdue && kind != domain.AlertKindDueToday {
		return apperrors.NewValidationError("unknown alert kind", map[string]any{"kind": c.Params("kind")})
	}
	if err := h.service.Acknowledge(c.UserContext(), c.Params("ticketId"), kind); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}
