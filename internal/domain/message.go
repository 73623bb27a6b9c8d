package domain

import "time"

// MessageRole indicates who authored a conversation message.
type MessageRole string

const (
	MessageRoleCustomer MessageRole = "CUSTOMER"
	MessageRoleAgent    MessageRole = "AGENT"
	MessageRoleSystem   MessageRole = "SYSTEM"
)

// Valid reports whether the role is one of the enumerated values.
func (r MessageRole) Valid() bool {
	switch r {
	case MessageRoleCustomer, MessageRoleAgent, MessageRoleSystem:
		return true
	}
	return false
}

// Message is one immutable entry in a ticket conversation. Ordering is
// insertion order; messages are never edited or deleted.
type Message struct {
	ID        string
	TicketID  string
	Role      MessageRole
	AuthorID  *string
	Content   string
	CreatedAt time.Time
}
