// Package memory provides in-memory repository implementations. They back
// the test suite and the DSN-less startup path, and honor the same
// optimistic-version and capacity semantics as the Postgres repositories.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/repository"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

// TicketRepository is an in-memory repository.TicketRepository.
type TicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]domain.Ticket
}

// NewTicketRepository creates an empty store.
func NewTicketRepository() *TicketRepository {
	return &TicketRepository{tickets: make(map[string]domain.Ticket)}
}

func (r *TicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if ticket.CreatedAt.IsZero() {
		now := time.Now()
		ticket.CreatedAt = now
		ticket.UpdatedAt = now
	}
	ticket.Version = 1
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *TicketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != ticket.Version {
		return repository.ErrVersionConflict
	}
	ticket.Version++
	ticket.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *TicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	ticket := stored
	return &ticket, nil
}

func (r *TicketRepository) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if !matchesFilter(ticket, filter) {
			continue
		}
		result = append(result, ticket)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

func (r *TicketRepository) ListOpenDueBefore(_ context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.Status.Terminal() || ticket.SLABreached {
			continue
		}
		if ticket.SLADueAt.After(cutoff) {
			continue
		}
		result = append(result, ticket)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SLADueAt.Before(result[j].SLADueAt)
	})
	return result, nil
}

func matchesFilter(ticket domain.Ticket, filter repository.TicketFilter) bool {
	if filter.CustomerID != nil && ticket.CustomerID != *filter.CustomerID {
		return false
	}
	if filter.AssignedAgentID != nil {
		if ticket.AssignedAgentID == nil || *ticket.AssignedAgentID != *filter.AssignedAgentID {
			return false
		}
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
		return false
	}
	if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
		return false
	}
	if len(filter.Categories) > 0 && !containsCategory(filter.Categories, ticket.Category) {
		return false
	}
	if filter.NeedsManualReview != nil && ticket.NeedsManualReview != *filter.NeedsManualReview {
		return false
	}
	return true
}

func containsStatus(values []domain.TicketStatus, v domain.TicketStatus) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsPriority(values []domain.TicketPriority, v domain.TicketPriority) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsCategory(values []domain.TicketCategory, v domain.TicketCategory) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func paginate(tickets []domain.Ticket, limit, offset int) []domain.Ticket {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(tickets) {
		return nil
	}
	end := offset + limit
	if end > len(tickets) {
		end = len(tickets)
	}
	return tickets[offset:end]
}

// AgentRepository is an in-memory repository.AgentRepository.
type AgentRepository struct {
	mu     sync.Mutex
	agents map[string]domain.Agent
}

// NewAgentRepository creates an empty store.
func NewAgentRepository() *AgentRepository {
	return &AgentRepository{agents: make(map[string]domain.Agent)}
}

func (r *AgentRepository) Create(_ context.Context, agent *domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	now := time.Now()
	agent.CreatedAt = now
	agent.UpdatedAt = now
	r.agents[agent.ID] = *agent
	return nil
}

func (r *AgentRepository) Update(_ context.Context, agent *domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.agents[agent.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	// current_load belongs to the capacity tracker; keep the stored value.
	agent.CurrentLoad = stored.CurrentLoad
	agent.UpdatedAt = time.Now()
	r.agents[agent.ID] = *agent
	return nil
}

func (r *AgentRepository) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.agents[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	agent := stored
	return &agent, nil
}

func (r *AgentRepository) GetByEmail(_ context.Context, email string) (*domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.agents {
		if stored.Email == email {
			agent := stored
			return &agent, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *AgentRepository) List(_ context.Context, filter repository.AgentFilter) ([]domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Agent
	for _, agent := range r.agents {
		if filter.Active != nil && agent.Active != *filter.Active {
			continue
		}
		if filter.Category != nil && !agent.HandlesCategory(*filter.Category) {
			continue
		}
		result = append(result, agent)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *AgentRepository) IncrementLoad(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[id]
	if !ok {
		return apperrors.NewNotFound("agent", map[string]any{"agent_id": id})
	}
	if agent.CurrentLoad >= agent.MaxLoad {
		return apperrors.NewCapacityExceeded(id)
	}
	agent.CurrentLoad++
	agent.UpdatedAt = time.Now()
	r.agents[id] = agent
	return nil
}

func (r *AgentRepository) DecrementLoad(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[id]
	if !ok {
		return apperrors.NewNotFound("agent", map[string]any{"agent_id": id})
	}
	if agent.CurrentLoad > 0 {
		agent.CurrentLoad--
	}
	agent.UpdatedAt = time.Now()
	r.agents[id] = agent
	return nil
}

// MessageRepository is an in-memory repository.MessageRepository.
type MessageRepository struct {
	mu       sync.RWMutex
	messages map[string][]domain.Message
}

// NewMessageRepository creates an empty store.
func NewMessageRepository() *MessageRepository {
	return &MessageRepository{messages: make(map[string][]domain.Message)}
}

func (r *MessageRepository) Create(_ context.Context, message *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	r.messages[message.TicketID] = append(r.messages[message.TicketID], *message)
	return nil
}

func (r *MessageRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.messages[ticketID]
	result := make([]domain.Message, len(stored))
	copy(result, stored)
	return result, nil
}

func (r *MessageRepository) LatestTimestamp(_ context.Context, ticketID string) (time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.messages[ticketID]
	if len(stored) == 0 {
		return time.Time{}, nil
	}
	return stored[len(stored)-1].CreatedAt, nil
}
