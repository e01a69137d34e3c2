package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/rapid-ticketing/internal/api/http/handlers"
	"github.com/spec-kit/rapid-ticketing/internal/auth"
	"github.com/spec-kit/rapid-ticketing/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	AdminTickets   *handlers.AdminTicketsHandler
	Alerts         *handlers.AlertsHandler
	Technician     *handlers.TechnicianHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Post("/login", cfg.Auth.Login)

	// Reporting endpoints are open: the reporting form runs on shared
	// kiosk machines without accounts.
	api.Post("/tickets", cfg.Tickets.Submit)
	api.Get("/tickets/status", cfg.Tickets.StatusForEmployee)
	api.Get("/employees/find", cfg.Tickets.FindEmployee)
	api.Get("/admins", cfg.Tickets.ListAdmins)

	admin := api.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Get("/tickets", cfg.AdminTickets.ListTickets)
	admin.Get("/tickets/counts", cfg.AdminTickets.Counts)
	admin.Get("/technicians", cfg.AdminTickets.ListTechnicians)
	admin.Patch("/tickets/:id/assign", cfg.AdminTickets.Assign)
	admin.Patch("/tickets/:id/reject", cfg.AdminTickets.Reject)
	admin.Post("/tickets/:id/remind", cfg.AdminTickets.Remind)
	admin.Patch("/tickets/:id/seen", cfg.AdminTickets.MarkSeen)
	admin.Get("/alerts", cfg.Alerts.List)
	admin.Patch("/alerts/:ticketId/:kind/ack", cfg.Alerts.Acknowledge)

	tech := api.Group("/technician", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleTechnician))
	tech.Get("/my-tickets", cfg.Technician.MyTickets)
	tech.Patch("/tickets/:id/transition", cfg.Technician.Transition)
}
