package dto

import (
	"time"

	"github.com/spec-kit/support-engine/internal/domain"
)

// CreateAgentRequest payload.
type CreateAgentRequest struct {
	Name       string                  `json:"name"`
	Email      string                  `json:"email"`
	Password   string                  `json:"password"`
	Role       *domain.AgentRole       `json:"role,omitempty"`
	Categories []domain.TicketCategory `json:"categories"`
	MaxLoad    int                     `json:"max_load"`
}

// UpdateAgentRequest payload. Nil fields are left untouched.
type UpdateAgentRequest struct {
	Name       *string                 `json:"name,omitempty"`
	Categories []domain.TicketCategory `json:"categories,omitempty"`
	Active     *bool                   `json:"active,omitempty"`
	MaxLoad    *int                    `json:"max_load,omitempty"`
}

// AgentLoginRequest payload.
type AgentLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CustomerTokenRequest payload for issuing customer tokens. Customers are
// external identities, so only the ID is required.
type CustomerTokenRequest struct {
	CustomerID string `json:"customer_id"`
}

// TokenResponse carries an issued JWT.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AgentResponse response.
type AgentResponse struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Email       string                  `json:"email"`
	Role        domain.AgentRole        `json:"role"`
	Categories  []domain.TicketCategory `json:"categories"`
	Active      bool                    `json:"active"`
	CurrentLoad int                     `json:"current_load"`
	MaxLoad     int                     `json:"max_load"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}
