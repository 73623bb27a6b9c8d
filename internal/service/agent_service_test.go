package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-engine/internal/auth"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/repository/memory"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

func newAgentService() (*AgentService, *memory.AgentRepository) {
	agents := memory.NewAgentRepository()
	tokens := auth.NewTokenManager("test-secret", 60)
	return NewAgentService(agents, tokens, 4), agents
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAgentService()

	agent, err := svc.Register(context.Background(), AgentCreateInput{
		Name:       "Dana",
		Email:      "Dana@Example.com",
		Password:   "correct-horse",
		Categories: []domain.TicketCategory{domain.CategoryBilling},
		MaxLoad:    5,
	})
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", agent.Email)
	assert.Equal(t, domain.AgentRoleAgent, agent.Role)
	assert.True(t, agent.Active)
	assert.NotEqual(t, "correct-horse", agent.PasswordHash)

	logged, token, expiresAt, err := svc.Login(context.Background(), "dana@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, agent.ID, logged.ID)
	assert.NotEmpty(t, token)
	assert.False(t, expiresAt.IsZero())

	_, _, _, err = svc.Login(context.Background(), "dana@example.com", "wrong")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	_, _, _, err = svc.Login(context.Background(), "nobody@example.com", "whatever")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAgentService()

	tests := []struct {
		name  string
		input AgentCreateInput
	}{
		{"missing name", AgentCreateInput{Email: "a@b.c", Password: "long-enough", MaxLoad: 1}},
		{"missing email", AgentCreateInput{Name: "A", Password: "long-enough", MaxLoad: 1}},
		{"short password", AgentCreateInput{Name: "A", Email: "a@b.c", Password: "short", MaxLoad: 1}},
		{"zero max load", AgentCreateInput{Name: "A", Email: "a@b.c", Password: "long-enough"}},
		{"bad category", AgentCreateInput{Name: "A", Email: "a@b.c", Password: "long-enough", MaxLoad: 1, Categories: []domain.TicketCategory{"NOPE"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.input)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAgentService()
	input := AgentCreateInput{Name: "A", Email: "a@b.c", Password: "long-enough", MaxLoad: 1}

	_, err := svc.Register(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), input)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestLoginDeactivatedAgent(t *testing.T) {
	svc, _ := newAgentService()
	agent, err := svc.Register(context.Background(), AgentCreateInput{Name: "A", Email: "a@b.c", Password: "long-enough", MaxLoad: 1})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), agent.ID, AgentUpdateInput{Active: ptr(false)})
	require.NoError(t, err)

	_, _, _, err = svc.Login(context.Background(), "a@b.c", "long-enough")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestUpdateRejectsMaxLoadBelowCurrentLoad(t *testing.T) {
	svc, agents := newAgentService()
	agent, err := svc.Register(context.Background(), AgentCreateInput{Name: "A", Email: "a@b.c", Password: "long-enough", MaxLoad: 3})
	require.NoError(t, err)

	require.NoError(t, agents.IncrementLoad(context.Background(), agent.ID))
	require.NoError(t, agents.IncrementLoad(context.Background(), agent.ID))

	_, err = svc.Update(context.Background(), agent.ID, AgentUpdateInput{MaxLoad: ptr(1)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	updated, err := svc.Update(context.Background(), agent.ID, AgentUpdateInput{MaxLoad: ptr(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.MaxLoad)
	assert.Equal(t, 2, updated.CurrentLoad)
}

func TestCustomerToken(t *testing.T) {
	svc, _ := newAgentService()

	token, expiresAt, err := svc.CustomerToken("cust-42")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.False(t, expiresAt.IsZero())

	_, _, err = svc.CustomerToken("  ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}
