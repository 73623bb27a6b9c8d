package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-engine/internal/api/dto"
	"github.com/spec-kit/support-engine/internal/auth"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/repository"
	"github.com/spec-kit/support-engine/internal/service"
	"github.com/spec-kit/support-engine/internal/sla"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

// TicketsHandler manages customer-facing ticket endpoints.
type TicketsHandler struct {
	lifecycle *service.LifecycleService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(lifecycle *service.LifecycleService) *TicketsHandler {
	return &TicketsHandler{lifecycle: lifecycle}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.CustomerID == "" {
		return apperrors.NewUnauthorized("customer required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.lifecycle.CreateTicket(c.UserContext(), service.TicketCreateInput{
		CustomerID:  principal.CustomerID,
		Subject:     req.Subject,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	summary, err := h.ticketSummary(c.UserContext(), ticket)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": summary})
}

// ListTickets GET /tickets returns the caller's own tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.CustomerID == "" {
		return apperrors.NewUnauthorized("customer required")
	}
	filter := parseTicketQuery(c)
	filter.CustomerID = &principal.CustomerID
	tickets, err := h.lifecycle.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		summary, err := h.ticketSummary(c.UserContext(), &tickets[i])
		if err != nil {
			return err
		}
		items = append(items, summary)
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.CustomerID == "" {
		return apperrors.NewUnauthorized("customer required")
	}
	ticket, err := h.lifecycle.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if ticket.CustomerID != principal.CustomerID {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": c.Params("id")})
	}
	detail, err := h.ticketDetail(c.UserContext(), ticket)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": detail})
}

// AddMessage POST /tickets/:id/messages appends a customer reply. Replying
// to a resolved ticket reopens it; replying to a closed one is rejected.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.CustomerID == "" {
		return apperrors.NewUnauthorized("customer required")
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, err := h.lifecycle.AddCustomerMessage(c.UserContext(), c.Params("id"), principal.CustomerID, req.Content)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

func (h *TicketsHandler) ticketSummary(ctx context.Context, ticket *domain.Ticket) (dto.TicketSummary, error) {
	health, err := h.lifecycle.SLAHealth(ctx, ticket)
	if err != nil {
		return dto.TicketSummary{}, err
	}
	return ticketSummary(ticket, health), nil
}

func (h *TicketsHandler) ticketDetail(ctx context.Context, ticket *domain.Ticket) (dto.TicketDetailResponse, error) {
	health, err := h.lifecycle.SLAHealth(ctx, ticket)
	if err != nil {
		return dto.TicketDetailResponse{}, err
	}
	messages, err := h.lifecycle.Conversation(ctx, ticket.ID)
	if err != nil {
		return dto.TicketDetailResponse{}, err
	}
	return ticketDetail(ticket, health, messages), nil
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if categoryStr := c.Query("category"); categoryStr != "" {
		for _, part := range strings.Split(categoryStr, ",") {
			filter.Categories = append(filter.Categories, domain.TicketCategory(strings.TrimSpace(part)))
		}
	}
	if reviewStr := c.Query("needs_manual_review"); reviewStr != "" {
		if parsed, err := strconv.ParseBool(reviewStr); err == nil {
			filter.NeedsManualReview = &parsed
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket, health sla.Status) dto.TicketSummary {
	return dto.TicketSummary{
		ID:                ticket.ID,
		ExternalKey:       ticket.ExternalKey,
		CustomerID:        ticket.CustomerID,
		Subject:           ticket.Subject,
		Category:          ticket.Category,
		Priority:          ticket.Priority,
		Status:            ticket.Status,
		AssignedAgentID:   ticket.AssignedAgentID,
		SLADueAt:          ticket.SLADueAt,
		SLAHealth:         health,
		NeedsManualReview: ticket.NeedsManualReview,
		CreatedAt:         ticket.CreatedAt,
		UpdatedAt:         ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, health sla.Status, messages []domain.Message) dto.TicketDetailResponse {
	msgs := make([]dto.MessageResponse, 0, len(messages))
	for i := range messages {
		msgs = append(msgs, messageResponse(&messages[i]))
	}
	return dto.TicketDetailResponse{
		TicketSummary:   ticketSummary(ticket, health),
		Description:     ticket.Description,
		SLABreached:     ticket.SLABreached,
		FirstResponseAt: ticket.FirstResponseAt,
		ReopenCount:     ticket.ReopenCount,
		ReopenedAt:      ticket.ReopenedAt,
		ResolvedAt:      ticket.ResolvedAt,
		ClosedAt:        ticket.ClosedAt,
		ClosureReason:   ticket.ClosureReason,
		Messages:        msgs,
	}
}

func messageResponse(msg *domain.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:        msg.ID,
		Role:      msg.Role,
		AuthorID:  msg.AuthorID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}
