package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-engine/internal/api/dto"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/repository"
	"github.com/spec-kit/support-engine/internal/service"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

// AgentsHandler exposes agent directory and auth endpoints.
type AgentsHandler struct {
	agents *service.AgentService
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(agents *service.AgentService) *AgentsHandler {
	return &AgentsHandler{agents: agents}
}

// Login handles POST /auth/agents/login.
func (h *AgentsHandler) Login(c *fiber.Ctx) error {
	var req dto.AgentLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	agent, token, expiresAt, err := h.agents.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"agent": agentResponse(agent),
			"auth":  dto.TokenResponse{Token: token, ExpiresAt: expiresAt},
		},
	})
}

// CustomerToken handles POST /auth/customers/token.
func (h *AgentsHandler) CustomerToken(c *fiber.Ctx) error {
	var req dto.CustomerTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	token, expiresAt, err := h.agents.CustomerToken(req.CustomerID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TokenResponse{Token: token, ExpiresAt: expiresAt}})
}

// CreateAgent handles POST /agents.
func (h *AgentsHandler) CreateAgent(c *fiber.Ctx) error {
	var req dto.CreateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	agent, err := h.agents.Register(c.UserContext(), service.AgentCreateInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Role:       req.Role,
		Categories: req.Categories,
		MaxLoad:    req.MaxLoad,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": agentResponse(agent)})
}

// UpdateAgent handles PATCH /agents/:id.
func (h *AgentsHandler) UpdateAgent(c *fiber.Ctx) error {
	var req dto.UpdateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	agent, err := h.agents.Update(c.UserContext(), c.Params("id"), service.AgentUpdateInput{
		Name:       req.Name,
		Categories: req.Categories,
		Active:     req.Active,
		MaxLoad:    req.MaxLoad,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agentResponse(agent)})
}

// GetAgent handles GET /agents/:id.
func (h *AgentsHandler) GetAgent(c *fiber.Ctx) error {
	agent, err := h.agents.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agentResponse(agent)})
}

// ListAgents handles GET /agents.
func (h *AgentsHandler) ListAgents(c *fiber.Ctx) error {
	filter := repository.AgentFilter{}
	if activeStr := c.Query("active"); activeStr != "" {
		if parsed, err := strconv.ParseBool(activeStr); err == nil {
			filter.Active = &parsed
		}
	}
	if categoryStr := strings.TrimSpace(c.Query("category")); categoryStr != "" {
		category := domain.TicketCategory(categoryStr)
		filter.Category = &category
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	agents, err := h.agents.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.AgentResponse, 0, len(agents))
	for i := range agents {
		items = append(items, agentResponse(&agents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func agentResponse(agent *domain.Agent) dto.AgentResponse {
	return dto.AgentResponse{
		ID:          agent.ID,
		Name:        agent.Name,
		Email:       agent.Email,
		Role:        agent.Role,
		Categories:  agent.Categories,
		Active:      agent.Active,
		CurrentLoad: agent.CurrentLoad,
		MaxLoad:     agent.MaxLoad,
		CreatedAt:   agent.CreatedAt,
		UpdatedAt:   agent.UpdatedAt,
	}
}
