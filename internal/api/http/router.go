package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-engine/internal/api/http/handlers"
	"github.com/spec-kit/support-engine/internal/auth"
	"github.com/spec-kit/support-engine/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	AgentTickets   *handlers.AgentTicketsHandler
	Agents         *handlers.AgentsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/agents/login", cfg.Agents.Login)
	authGroup.Post("/customers/token", cfg.Agents.CustomerToken)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireCustomer())
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)

	agentTickets := app.Group("/agent/tickets", cfg.AuthMiddleware.Handle, auth.RequireAgentRole())
	agentTickets.Get("", cfg.AgentTickets.ListTickets)
	agentTickets.Get("/:id", cfg.AgentTickets.GetTicket)
	agentTickets.Post("/:id/messages", cfg.AgentTickets.AddMessage)
	agentTickets.Patch("/:id/status", cfg.AgentTickets.UpdateStatus)
	agentTickets.Patch("/:id/priority", cfg.AgentTickets.UpdatePriority)
	agentTickets.Patch("/:id/category", cfg.AgentTickets.UpdateCategory)
	agentTickets.Post("/:id/reassign", cfg.AgentTickets.Reassign)
	agentTickets.Post("/:id/review/clear", cfg.AgentTickets.ClearReview)
	agentTickets.Post("/:id/review/flag", cfg.AgentTickets.FlagReview)

	agents := app.Group("/agents", cfg.AuthMiddleware.Handle)
	agents.Get("", auth.RequireAgentRole(), cfg.Agents.ListAgents)
	agents.Get("/:id", auth.RequireAgentRole(), cfg.Agents.GetAgent)
	agents.Post("", auth.RequireAgentRole(domain.AgentRoleAdmin), cfg.Agents.CreateAgent)
	agents.Patch("/:id", auth.RequireAgentRole(domain.AgentRoleAdmin), cfg.Agents.UpdateAgent)
}
