package dto

import (
	"time"

	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/sla"
)

// CreateTicketRequest payload. Category and priority are optional; when
// omitted the classifier fills them in.
type CreateTicketRequest struct {
	Subject     string                 `json:"subject"`
	Description string                 `json:"description"`
	Category    *domain.TicketCategory `json:"category,omitempty"`
	Priority    *domain.TicketPriority `json:"priority,omitempty"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	Content string `json:"content"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status        domain.TicketStatus `json:"status"`
	ClosureReason *string             `json:"closure_reason,omitempty"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// UpdateCategoryRequest payload.
type UpdateCategoryRequest struct {
	Category domain.TicketCategory `json:"category"`
}

// ReassignRequest payload.
type ReassignRequest struct {
	AgentID string `json:"agent_id"`
}

// TicketSummary response.
type TicketSummary struct {
	ID                string                `json:"id"`
	ExternalKey       string                `json:"external_key"`
	CustomerID        string                `json:"customer_id"`
	Subject           string                `json:"subject"`
	Category          domain.TicketCategory `json:"category"`
	Priority          domain.TicketPriority `json:"priority"`
	Status            domain.TicketStatus   `json:"status"`
	AssignedAgentID   *string               `json:"assigned_agent_id"`
	SLADueAt          time.Time             `json:"sla_due_at"`
	SLAHealth         sla.Status            `json:"sla_health"`
	NeedsManualReview bool                  `json:"needs_manual_review"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description     string            `json:"description"`
	SLABreached     bool              `json:"sla_breached"`
	FirstResponseAt *time.Time        `json:"first_response_at"`
	ReopenCount     int               `json:"reopen_count"`
	ReopenedAt      *time.Time        `json:"reopened_at"`
	ResolvedAt      *time.Time        `json:"resolved_at"`
	ClosedAt        *time.Time        `json:"closed_at"`
	ClosureReason   *string           `json:"closure_reason"`
	Messages        []MessageResponse `json:"messages"`
}

// MessageResponse represents one conversation entry.
type MessageResponse struct {
	ID        string             `json:"id"`
	Role      domain.MessageRole `json:"role"`
	AuthorID  *string            `json:"author_id"`
	Content   string             `json:"content"`
	CreatedAt time.Time          `json:"created_at"`
}
