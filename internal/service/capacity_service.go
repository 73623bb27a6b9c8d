package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-engine/internal/locks"
	"github.com/spec-kit/support-engine/internal/repository"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

// CapacityService is the sole writer of agent load counters. Increment and
// decrement are linearizable per agent: the repository performs the
// check-then-increment as one atomic step, and the keyed mutex serializes
// in-process callers on the same agent.
type CapacityService struct {
	agents repository.AgentRepository
	locks  *locks.KeyedMutex
}

// NewCapacityService creates the service.
func NewCapacityService(agents repository.AgentRepository, agentLocks *locks.KeyedMutex) *CapacityService {
	if agentLocks == nil {
		agentLocks = locks.NewKeyedMutex()
	}
	return &CapacityService{agents: agents, locks: agentLocks}
}

// Increment adds one to the agent's load. Fails with CAPACITY_EXCEEDED when
// the agent is at max load, NOT_FOUND when the agent does not exist.
func (s *CapacityService) Increment(ctx context.Context, agentID string) error {
	s.locks.Lock(agentID)
	defer s.locks.Unlock(agentID)
	if err := s.agents.IncrementLoad(ctx, agentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("agent", map[string]any{"agent_id": agentID})
		}
		return err
	}
	return nil
}

// Decrement subtracts one from the agent's load, never below zero.
func (s *CapacityService) Decrement(ctx context.Context, agentID string) error {
	s.locks.Lock(agentID)
	defer s.locks.Unlock(agentID)
	if err := s.agents.DecrementLoad(ctx, agentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("agent", map[string]any{"agent_id": agentID})
		}
		return err
	}
	return nil
}
