package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-engine/internal/auth"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/repository"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

// AgentService manages the agent directory. Load counters are out of its
// reach: only the capacity tracker writes them.
type AgentService struct {
	agents     repository.AgentRepository
	tokens     *auth.TokenManager
	bcryptCost int
}

// NewAgentService constructs the service.
func NewAgentService(agents repository.AgentRepository, tokens *auth.TokenManager, bcryptCost int) *AgentService {
	return &AgentService{agents: agents, tokens: tokens, bcryptCost: bcryptCost}
}

// AgentCreateInput describes registration payload.
type AgentCreateInput struct {
	Name       string
	Email      string
	Password   string
	Role       *domain.AgentRole
	Categories []domain.TicketCategory
	MaxLoad    int
}

// AgentUpdateInput describes a partial profile update. Nil fields keep
// their stored value.
type AgentUpdateInput struct {
	Name       *string
	Categories []domain.TicketCategory
	Active     *bool
	MaxLoad    *int
}

// Register creates an agent with a hashed password.
func (s *AgentService) Register(ctx context.Context, input AgentCreateInput) (*domain.Agent, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.NewValidationError("email required", nil)
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	if input.MaxLoad <= 0 {
		return nil, apperrors.NewValidationError("max_load must be positive", nil)
	}
	for _, category := range input.Categories {
		if !category.Valid() {
			return nil, apperrors.NewValidationError("invalid category", map[string]any{"category": string(category)})
		}
	}

	if existing, err := s.agents.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hashed, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	role := domain.AgentRoleAgent
	if input.Role != nil {
		if *input.Role != domain.AgentRoleAgent && *input.Role != domain.AgentRoleAdmin {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": string(*input.Role)})
		}
		role = *input.Role
	}

	agent := &domain.Agent{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hashed,
		Role:         role,
		Categories:   input.Categories,
		Active:       true,
		MaxLoad:      input.MaxLoad,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, apperrors.MapError(err)
	}
	return agent, nil
}

// Update applies a partial profile update. Lowering max_load below the
// current load is rejected so the capacity invariant keeps holding.
func (s *AgentService) Update(ctx context.Context, agentID string, input AgentUpdateInput) (*domain.Agent, error) {
	agent, err := s.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, apperrors.NewValidationError("name required", nil)
		}
		agent.Name = strings.TrimSpace(*input.Name)
	}
	if input.Categories != nil {
		for _, category := range input.Categories {
			if !category.Valid() {
				return nil, apperrors.NewValidationError("invalid category", map[string]any{"category": string(category)})
			}
		}
		agent.Categories = input.Categories
	}
	if input.Active != nil {
		agent.Active = *input.Active
	}
	if input.MaxLoad != nil {
		if *input.MaxLoad <= 0 {
			return nil, apperrors.NewValidationError("max_load must be positive", nil)
		}
		if *input.MaxLoad < agent.CurrentLoad {
			return nil, apperrors.NewConflict("max_load below current load", map[string]any{
				"current_load": agent.CurrentLoad,
				"max_load":     *input.MaxLoad,
			})
		}
		agent.MaxLoad = *input.MaxLoad
	}
	if err := s.agents.Update(ctx, agent); err != nil {
		return nil, apperrors.MapError(err)
	}
	return agent, nil
}

// Get loads an agent by id.
func (s *AgentService) Get(ctx context.Context, agentID string) (*domain.Agent, error) {
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": agentID})
		}
		return nil, apperrors.MapError(err)
	}
	return agent, nil
}

// List returns agents matching the filter.
func (s *AgentService) List(ctx context.Context, filter repository.AgentFilter) ([]domain.Agent, error) {
	agents, err := s.agents.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return agents, nil
}

// Login verifies credentials and issues a token.
func (s *AgentService) Login(ctx context.Context, email, password string) (*domain.Agent, string, time.Time, error) {
	agent, err := s.agents.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(agent.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if !agent.Active {
		return nil, "", time.Time{}, apperrors.NewForbidden("agent deactivated")
	}
	role := agent.Role
	token, expiresAt, err := s.tokens.GenerateToken(agent.ID, domain.SubjectTypeAgent, &role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return agent, token, expiresAt, nil
}

// CustomerToken issues a token for an external customer identity.
func (s *AgentService) CustomerToken(customerID string) (string, time.Time, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return "", time.Time{}, apperrors.NewValidationError("customer_id required", nil)
	}
	token, expiresAt, err := s.tokens.GenerateToken(customerID, domain.SubjectTypeCustomer, nil)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	return token, expiresAt, nil
}
