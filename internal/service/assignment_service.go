package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/events"
	"github.com/spec-kit/support-engine/internal/repository"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

// AssignmentService routes tickets to agents and handles reassignment.
type AssignmentService struct {
	tickets    repository.TicketRepository
	agents     repository.AgentRepository
	capacity   *CapacityService
	dispatcher events.Dispatcher
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	TicketRepo repository.TicketRepository
	AgentRepo  repository.AgentRepository
	Capacity   *CapacityService
	Dispatcher events.Dispatcher
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		tickets:    deps.TicketRepo,
		agents:     deps.AgentRepo,
		capacity:   deps.Capacity,
		dispatcher: deps.Dispatcher,
	}
}

// SelectAgent picks the best agent for a category. Eligible agents are
// active and under capacity. Agents qualified for the category are always
// preferred; within each partition the order is ascending current load,
// then agent id, so the choice is deterministic for a given candidate set.
func SelectAgent(candidates []domain.Agent, category domain.TicketCategory) (string, error) {
	eligible := make([]domain.Agent, 0, len(candidates))
	for _, agent := range candidates {
		if agent.Active && agent.HasCapacity() {
			eligible = append(eligible, agent)
		}
	}
	if len(eligible) == 0 {
		return "", apperrors.NewNoEligibleAgent(string(category))
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].CurrentLoad != eligible[j].CurrentLoad {
			return eligible[i].CurrentLoad < eligible[j].CurrentLoad
		}
		return eligible[i].ID < eligible[j].ID
	})

	for _, agent := range eligible {
		if agent.HandlesCategory(category) {
			return agent.ID, nil
		}
	}
	return eligible[0].ID, nil
}

// ClaimAgent selects an agent and reserves one load slot for it. When the
// chosen agent fills up between selection and claim, the loser is dropped
// and selection runs again on the rest.
func (s *AssignmentService) ClaimAgent(ctx context.Context, category domain.TicketCategory) (string, error) {
	active := true
	candidates, err := s.agents.List(ctx, repository.AgentFilter{Active: &active})
	if err != nil {
		return "", apperrors.MapError(err)
	}

	for len(candidates) > 0 {
		agentID, err := SelectAgent(candidates, category)
		if err != nil {
			return "", err
		}
		claimErr := s.capacity.Increment(ctx, agentID)
		if claimErr == nil {
			return agentID, nil
		}
		if !apperrors.HasCode(claimErr, apperrors.CodeCapacityExceeded) {
			return "", claimErr
		}
		candidates = removeAgent(candidates, agentID)
	}
	return "", apperrors.NewNoEligibleAgent(string(category))
}

// Reassign moves a ticket to another agent. The target's capacity check and
// increment are one atomic step; on any later failure the reserved slot is
// released, so a rejected reassignment leaves both agents' loads unchanged.
// Reassignment never touches the SLA.
func (s *AssignmentService) Reassign(ctx context.Context, actor events.Actor, ticketID, newAgentID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewTicketClosed(ticket.ID)
	}
	if ticket.AssignedAgentID != nil && *ticket.AssignedAgentID == newAgentID {
		return ticket, nil
	}
	if _, err := s.agents.GetByID(ctx, newAgentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": newAgentID})
		}
		return nil, apperrors.MapError(err)
	}

	countsAgainstLoad := !ticket.Status.Terminal()
	if countsAgainstLoad {
		if err := s.capacity.Increment(ctx, newAgentID); err != nil {
			return nil, err
		}
	}

	oldAgentID := ticket.AssignedAgentID
	ticket.AssignedAgentID = &newAgentID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		if countsAgainstLoad {
			_ = s.capacity.Decrement(ctx, newAgentID)
		}
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.NewConflict("ticket changed concurrently", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	if countsAgainstLoad && oldAgentID != nil {
		_ = s.capacity.Decrement(ctx, *oldAgentID)
	}

	s.publishAssigned(ctx, actor, ticket.ID, oldAgentID, ticket.AssignedAgentID)
	return ticket, nil
}

func removeAgent(agents []domain.Agent, id string) []domain.Agent {
	out := agents[:0]
	for _, agent := range agents {
		if agent.ID != id {
			out = append(out, agent)
		}
	}
	return out
}

func (s *AssignmentService) publishAssigned(ctx context.Context, actor events.Actor, ticketID string, oldAgentID, newAgentID *string) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventAgentAssigned,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: time.Now(),
		Payload: events.AgentAssignedPayload{
			OldAgentID: oldAgentID,
			NewAgentID: newAgentID,
		},
	}
	_ = s.dispatcher.Publish(ctx, event)
}
