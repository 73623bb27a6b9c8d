package domain

import "time"

// AgentRole enumerates internal operator roles.
type AgentRole string

const (
	AgentRoleAgent AgentRole = "AGENT"
	AgentRoleAdmin AgentRole = "ADMIN"
)

// Agent models a support agent handling assigned tickets.
//
// Invariant: CurrentLoad equals the number of OPEN or IN_PROGRESS tickets
// whose AssignedAgentID references this agent. Only the capacity tracker
// writes CurrentLoad.
type Agent struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         AgentRole
	Categories   []TicketCategory
	Active       bool
	CurrentLoad  int
	MaxLoad      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasCapacity reports whether the agent can take one more ticket.
func (a *Agent) HasCapacity() bool {
	return a.CurrentLoad < a.MaxLoad
}

// HandlesCategory reports whether the agent is qualified for the category.
func (a *Agent) HandlesCategory(category TicketCategory) bool {
	for _, c := range a.Categories {
		if c == category {
			return true
		}
	}
	return false
}
