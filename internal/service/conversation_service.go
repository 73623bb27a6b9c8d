package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/repository"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

// ConversationService maintains the append-only message log per ticket.
// Messages keep insertion order and their timestamps never go backward
// within a ticket, even when the wall clock does.
type ConversationService struct {
	messages repository.MessageRepository
	now      func() time.Time
}

// NewConversationService creates the service.
func NewConversationService(messages repository.MessageRepository, now func() time.Time) *ConversationService {
	if now == nil {
		now = time.Now
	}
	return &ConversationService{messages: messages, now: now}
}

// Append records a message. Callers serialize appends per ticket (the
// lifecycle service holds the ticket lock), which makes the
// read-latest-then-clamp step safe.
func (s *ConversationService) Append(ctx context.Context, ticketID string, role domain.MessageRole, authorID *string, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("message content required", nil)
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid message role", map[string]any{"role": string(role)})
	}

	last, err := s.messages.LatestTimestamp(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ts := s.now()
	if ts.Before(last) {
		ts = last
	}

	message := &domain.Message{
		TicketID:  ticketID,
		Role:      role,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: ts,
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, apperrors.MapError(err)
	}
	return message, nil
}

// List returns the conversation in append order.
func (s *ConversationService) List(ctx context.Context, ticketID string) ([]domain.Message, error) {
	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return msgs, nil
}
