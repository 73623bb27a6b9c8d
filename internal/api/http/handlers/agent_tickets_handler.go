package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-engine/internal/api/dto"
	"github.com/spec-kit/support-engine/internal/auth"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/events"
	"github.com/spec-kit/support-engine/internal/service"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

// AgentTicketsHandler manages the agent-side ticket queue.
type AgentTicketsHandler struct {
	lifecycle  *service.LifecycleService
	assignment *service.AssignmentService
	tickets    *TicketsHandler
}

// NewAgentTicketsHandler constructs handler.
func NewAgentTicketsHandler(lifecycle *service.LifecycleService, assignment *service.AssignmentService, tickets *TicketsHandler) *AgentTicketsHandler {
	return &AgentTicketsHandler{lifecycle: lifecycle, assignment: assignment, tickets: tickets}
}

// ListTickets GET /agent/tickets.
func (h *AgentTicketsHandler) ListTickets(c *fiber.Ctx) error {
	if _, err := requireAgent(c); err != nil {
		return err
	}
	filter := parseTicketQuery(c)
	if customerID := strings.TrimSpace(c.Query("customer_id")); customerID != "" {
		filter.CustomerID = &customerID
	}
	if agentID := strings.TrimSpace(c.Query("assigned_agent_id")); agentID != "" {
		filter.AssignedAgentID = &agentID
	}
	tickets, err := h.lifecycle.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		summary, err := h.tickets.ticketSummary(c.UserContext(), &tickets[i])
		if err != nil {
			return err
		}
		items = append(items, summary)
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /agent/tickets/:id.
func (h *AgentTicketsHandler) GetTicket(c *fiber.Ctx) error {
	if _, err := requireAgent(c); err != nil {
		return err
	}
	ticket, err := h.lifecycle.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	detail, err := h.tickets.ticketDetail(c.UserContext(), ticket)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": detail})
}

// AddMessage POST /agent/tickets/:id/messages appends an agent reply,
// recording the first response time and starting progress on open tickets.
func (h *AgentTicketsHandler) AddMessage(c *fiber.Ctx) error {
	principal, err := requireAgent(c)
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, err := h.lifecycle.AddAgentMessage(c.UserContext(), c.Params("id"), principal.Agent.ID, req.Content)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

// UpdateStatus PATCH /agent/tickets/:id/status.
func (h *AgentTicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, err := requireAgent(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.UpdateStatus(c.UserContext(), agentActor(principal), c.Params("id"), req.Status, req.ClosureReason)
	if err != nil {
		return err
	}
	summary, err := h.tickets.ticketSummary(c.UserContext(), ticket)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// UpdatePriority PATCH /agent/tickets/:id/priority.
func (h *AgentTicketsHandler) UpdatePriority(c *fiber.Ctx) error {
	principal, err := requireAgent(c)
	if err != nil {
		return err
	}
	var req dto.UpdatePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.UpdatePriority(c.UserContext(), agentActor(principal), c.Params("id"), req.Priority)
	if err != nil {
		return err
	}
	summary, err := h.tickets.ticketSummary(c.UserContext(), ticket)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// UpdateCategory PATCH /agent/tickets/:id/category.
func (h *AgentTicketsHandler) UpdateCategory(c *fiber.Ctx) error {
	principal, err := requireAgent(c)
	if err != nil {
		return err
	}
	var req dto.UpdateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.UpdateCategory(c.UserContext(), agentActor(principal), c.Params("id"), req.Category)
	if err != nil {
		return err
	}
	summary, err := h.tickets.ticketSummary(c.UserContext(), ticket)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// Reassign POST /agent/tickets/:id/reassign.
func (h *AgentTicketsHandler) Reassign(c *fiber.Ctx) error {
	principal, err := requireAgent(c)
	if err != nil {
		return err
	}
	var req dto.ReassignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.AgentID) == "" {
		return apperrors.NewValidationError("agent_id required", nil)
	}
	ticket, err := h.assignment.Reassign(c.UserContext(), agentActor(principal), c.Params("id"), req.AgentID)
	if err != nil {
		return err
	}
	summary, err := h.tickets.ticketSummary(c.UserContext(), ticket)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// ClearReview POST /agent/tickets/:id/review/clear.
func (h *AgentTicketsHandler) ClearReview(c *fiber.Ctx) error {
	if _, err := requireAgent(c); err != nil {
		return err
	}
	ticket, err := h.lifecycle.ClearManualReview(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	summary, err := h.tickets.ticketSummary(c.UserContext(), ticket)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// FlagReview POST /agent/tickets/:id/review/flag.
func (h *AgentTicketsHandler) FlagReview(c *fiber.Ctx) error {
	if _, err := requireAgent(c); err != nil {
		return err
	}
	ticket, err := h.lifecycle.FlagManualReview(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	summary, err := h.tickets.ticketSummary(c.UserContext(), ticket)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

func requireAgent(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.SubjectType != domain.SubjectTypeAgent || principal.Agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	return principal, nil
}

func agentActor(principal *auth.Principal) events.Actor {
	id := principal.Agent.ID
	return events.Actor{Type: domain.SubjectTypeAgent, AgentID: &id}
}
