package events

import (
	"time"

	"github.com/spec-kit/support-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = "ticket_created"
	EventAgentAssigned EventType = "agent_assigned"
	EventMessageAdded  EventType = "message_added"
	EventStatusChanged EventType = "status_changed"
	EventSLABreached   EventType = "sla_breached"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type       domain.SubjectType `json:"type"`
	CustomerID *string            `json:"customer_id,omitempty"`
	AgentID    *string            `json:"agent_id,omitempty"`
}

// Event represents a domain event emitted by services. Delivery is
// fire-and-forget: no operation waits on subscribers for correctness.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Category          domain.TicketCategory `json:"category"`
	Priority          domain.TicketPriority `json:"priority"`
	AssignedAgentID   *string               `json:"assigned_agent_id,omitempty"`
	SLADueAt          time.Time             `json:"sla_due_at"`
	NeedsManualReview bool                  `json:"needs_manual_review"`
}

// AgentAssignedPayload payload.
type AgentAssignedPayload struct {
	OldAgentID *string `json:"old_agent_id,omitempty"`
	NewAgentID *string `json:"new_agent_id,omitempty"`
}

// MessageAddedPayload payload.
type MessageAddedPayload struct {
	MessageID   string             `json:"message_id"`
	Role        domain.MessageRole `json:"role"`
	Reopened    bool               `json:"reopened"`
	BodyPreview string             `json:"body_preview"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus     domain.TicketStatus `json:"old_status"`
	NewStatus     domain.TicketStatus `json:"new_status"`
	ClosureReason *string             `json:"closure_reason,omitempty"`
}

// SLABreachedPayload payload.
type SLABreachedPayload struct {
	Priority domain.TicketPriority `json:"priority"`
	DueAt    time.Time             `json:"due_at"`
}
