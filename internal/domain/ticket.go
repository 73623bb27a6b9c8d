package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// Valid reports whether the status is one of the enumerated values.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// Terminal reports whether the status stops counting against agent load.
// RESOLVED is soft-terminal (a customer reply reopens it); CLOSED is final.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Valid reports whether the priority is one of the enumerated values.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// TicketCategory enumerates routing categories.
type TicketCategory string

const (
	CategoryAccount   TicketCategory = "ACCOUNT"
	CategoryBilling   TicketCategory = "BILLING"
	CategoryTechnical TicketCategory = "TECHNICAL"
	CategoryGameplay  TicketCategory = "GAMEPLAY"
	CategorySecurity  TicketCategory = "SECURITY"
	CategoryGeneral   TicketCategory = "GENERAL"
)

// Valid reports whether the category is one of the enumerated values.
func (c TicketCategory) Valid() bool {
	switch c {
	case CategoryAccount, CategoryBilling, CategoryTechnical, CategoryGameplay, CategorySecurity, CategoryGeneral:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
//
// Version guards optimistic concurrency: every successful update increments
// it, and writers must present the version they loaded.
type Ticket struct {
	ID                string
	ExternalKey       string
	CustomerID        string
	Subject           string
	Description       string
	Category          TicketCategory
	Priority          TicketPriority
	Status            TicketStatus
	AssignedAgentID   *string
	SLADueAt          time.Time
	SLABreached       bool
	FirstResponseAt   *time.Time
	ReopenCount       int
	ReopenedAt        *time.Time
	ResolvedAt        *time.Time
	ClosedAt          *time.Time
	ClosureReason     *string
	NeedsManualReview bool
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
