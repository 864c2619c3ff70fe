package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-intake/internal/api/http/handlers"
	"github.com/spec-kit/ticket-intake/internal/auth"
	"github.com/spec-kit/ticket-intake/internal/domain"
	"github.com/spec-kit/ticket-intake/internal/limiter"
)

// RateLimits sizes the two request limiters.
type RateLimits struct {
	CreateMax     int
	CreateWindow  time.Duration
	GeneralMax    int
	GeneralWindow time.Duration
}

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Tickets   *handlers.TicketsHandler
	StaffAuth *auth.StaffAuth
	Limiter   *limiter.Manager
	Limits    RateLimits
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api", RateLimit(cfg.Limiter, "api", cfg.Limits.GeneralMax, cfg.Limits.GeneralWindow))

	tickets := api.Group("/tickets")
	tickets.Post("/", RateLimit(cfg.Limiter, "create", cfg.Limits.CreateMax, cfg.Limits.CreateWindow), cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)

	staffOnly := cfg.StaffAuth.RequireStaffRole(domain.StaffRoleAgent, domain.StaffRoleTeamLead, domain.StaffRoleAdmin)
	tickets.Put("/:id", cfg.StaffAuth.Handle, staffOnly, cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.StaffAuth.Handle, cfg.StaffAuth.RequireStaffRole(domain.StaffRoleTeamLead, domain.StaffRoleAdmin), cfg.Tickets.DeleteTicket)

	app.Use(notFound)
}
