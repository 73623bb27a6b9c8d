package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/classifier"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/events"
	"github.com/spec-kit/support-engine/internal/locks"
	"github.com/spec-kit/support-engine/internal/repository"
	"github.com/spec-kit/support-engine/internal/sla"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

const ticketUpdateAttempts = 3

// errNoChange signals that a mutation callback decided nothing needs
// persisting.
var errNoChange = errors.New("no change")

// LifecycleService drives the ticket status state machine. All mutations to
// one ticket are serialized: a per-ticket mutex covers in-process callers
// and the optimistic version on the stored row covers everything else.
type LifecycleService struct {
	tickets      repository.TicketRepository
	agents       repository.AgentRepository
	conversation *ConversationService
	capacity     *CapacityService
	assignment   *AssignmentService
	classify     classifier.Classifier
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	ticketLocks  *locks.KeyedMutex

	riskWindow          time.Duration
	confidenceThreshold float64
	classifyTimeout     time.Duration
	now                 func() time.Time
}

// LifecycleDependencies bundles collaborators.
type LifecycleDependencies struct {
	TicketRepo   repository.TicketRepository
	AgentRepo    repository.AgentRepository
	Conversation *ConversationService
	Capacity     *CapacityService
	Assignment   *AssignmentService
	Classifier   classifier.Classifier
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// LifecycleOptions tunes SLA evaluation and classification handling.
type LifecycleOptions struct {
	RiskWindow          time.Duration
	ConfidenceThreshold float64
	ClassifyTimeout     time.Duration
	Now                 func() time.Time
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies, opts LifecycleOptions) *LifecycleService {
	if opts.RiskWindow <= 0 {
		opts.RiskWindow = sla.DefaultRiskWindow
	}
	if opts.ConfidenceThreshold <= 0 {
		opts.ConfidenceThreshold = 0.5
	}
	if opts.ClassifyTimeout <= 0 {
		opts.ClassifyTimeout = 2 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		tickets:             deps.TicketRepo,
		agents:              deps.AgentRepo,
		conversation:        deps.Conversation,
		capacity:            deps.Capacity,
		assignment:          deps.Assignment,
		classify:            deps.Classifier,
		dispatcher:          deps.Dispatcher,
		logger:              logger,
		ticketLocks:         locks.NewKeyedMutex(),
		riskWindow:          opts.RiskWindow,
		confidenceThreshold: opts.ConfidenceThreshold,
		classifyTimeout:     opts.ClassifyTimeout,
		now:                 opts.Now,
	}
}

// TicketCreateInput describes ticket creation payload. Category and
// Priority override the classifier suggestion when provided.
type TicketCreateInput struct {
	CustomerID  string
	Subject     string
	Description string
	Category    *domain.TicketCategory
	Priority    *domain.TicketPriority
}

// AIProposal is a field update proposed by the AI collaborator. It goes
// through the same guarded update paths as a human change.
type AIProposal struct {
	Status        *domain.TicketStatus
	ClosureReason *string
	Priority      *domain.TicketPriority
	Category      *domain.TicketCategory
	Confidence    float64
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusOpen, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed},
	domain.TicketStatusClosed:     {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// CreateTicket classifies, schedules, routes and persists a new ticket,
// then records the description as the first customer message. Assignment
// failure is not fatal: the ticket is created unassigned and flagged for
// manual review.
func (s *LifecycleService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.CustomerID) == "" {
		return nil, apperrors.NewValidationError("customer id required", nil)
	}
	if strings.TrimSpace(input.Subject) == "" {
		return nil, apperrors.NewValidationError("subject required", nil)
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, apperrors.NewValidationError("description required", nil)
	}
	if input.Category != nil && !input.Category.Valid() {
		return nil, apperrors.NewValidationError("invalid category", map[string]any{"category": string(*input.Category)})
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": string(*input.Priority)})
	}

	category, priority, needsReview := s.classifyTicket(ctx, input)

	now := s.now()
	ticket := &domain.Ticket{
		ExternalKey:       generateTicketKey(),
		CustomerID:        input.CustomerID,
		Subject:           strings.TrimSpace(input.Subject),
		Description:       strings.TrimSpace(input.Description),
		Category:          category,
		Priority:          priority,
		Status:            domain.TicketStatusOpen,
		SLADueAt:          sla.ComputeDueDate(priority, now),
		NeedsManualReview: needsReview,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	agentID, err := s.assignment.ClaimAgent(ctx, category)
	switch {
	case err == nil:
		ticket.AssignedAgentID = &agentID
	case apperrors.HasCode(err, apperrors.CodeNoEligibleAgent):
		ticket.NeedsManualReview = true
	default:
		return nil, err
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		if ticket.AssignedAgentID != nil {
			_ = s.capacity.Decrement(ctx, *ticket.AssignedAgentID)
		}
		return nil, apperrors.MapError(err)
	}

	message, err := s.conversation.Append(ctx, ticket.ID, domain.MessageRoleCustomer, &ticket.CustomerID, ticket.Description)
	if err != nil {
		return nil, err
	}

	actor := customerActor(ticket.CustomerID)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketCreatedPayload{
			Category:          ticket.Category,
			Priority:          ticket.Priority,
			AssignedAgentID:   ticket.AssignedAgentID,
			SLADueAt:          ticket.SLADueAt,
			NeedsManualReview: ticket.NeedsManualReview,
		},
	})
	if ticket.AssignedAgentID != nil {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventAgentAssigned,
			TicketID: ticket.ID,
			Actor:    actor,
			Payload:  events.AgentAssignedPayload{NewAgentID: ticket.AssignedAgentID},
		})
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventMessageAdded,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.MessageAddedPayload{
			MessageID:   message.ID,
			Role:        message.Role,
			BodyPreview: stringPreview(message.Content, 120),
		},
	})
	return ticket, nil
}

// classifyTicket resolves category and priority from overrides or the
// classifier. Classifier failure degrades to GENERAL/MEDIUM with the
// manual-review flag set; it never blocks creation.
func (s *LifecycleService) classifyTicket(ctx context.Context, input TicketCreateInput) (domain.TicketCategory, domain.TicketPriority, bool) {
	if input.Category != nil && input.Priority != nil {
		return *input.Category, *input.Priority, false
	}

	category := domain.CategoryGeneral
	priority := domain.TicketPriorityMedium
	needsReview := false

	if s.classify == nil {
		needsReview = true
	} else {
		classifyCtx, cancel := context.WithTimeout(ctx, s.classifyTimeout)
		defer cancel()
		suggestion, err := s.classify.Classify(classifyCtx, input.Description)
		switch {
		case err != nil:
			s.logger.Warn("classifier unavailable", zap.Error(err))
			needsReview = true
		case !suggestion.Category.Valid() || !suggestion.Priority.Valid():
			needsReview = true
		default:
			category = suggestion.Category
			priority = suggestion.Priority
			if suggestion.Confidence < s.confidenceThreshold {
				needsReview = true
			}
		}
	}

	if input.Category != nil {
		category = *input.Category
	}
	if input.Priority != nil {
		priority = *input.Priority
	}
	return category, priority, needsReview
}

// AddCustomerMessage appends a customer reply. A reply to a RESOLVED ticket
// reopens it; a reply to a CLOSED ticket is rejected without side effects.
func (s *LifecycleService) AddCustomerMessage(ctx context.Context, ticketID, customerID, content string) (*domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.NewValidationError("message content required", nil)
	}

	var reopened bool
	var restoreAgentID *string
	var oldStatus domain.TicketStatus

	ticket, err := s.mutateTicket(ctx, ticketID, func(t *domain.Ticket) error {
		reopened = false
		restoreAgentID = nil
		oldStatus = t.Status

		if customerID != "" && t.CustomerID != customerID {
			return apperrors.NewForbidden("not the ticket requester")
		}
		if t.Status == domain.TicketStatusClosed {
			return apperrors.NewTicketClosed(t.ID)
		}
		if t.Status != domain.TicketStatusResolved {
			return nil
		}

		now := s.now()
		t.Status = domain.TicketStatusOpen
		t.ReopenCount++
		t.ReopenedAt = &now
		t.ResolvedAt = nil
		reopened = true

		if t.AssignedAgentID == nil {
			return nil
		}
		agent, err := s.agents.GetByID(ctx, *t.AssignedAgentID)
		if err != nil || !agent.Active || !agent.HasCapacity() {
			// The previous assignee cannot take the ticket back; leave it
			// unassigned for a human to route.
			t.AssignedAgentID = nil
			t.NeedsManualReview = true
			return nil
		}
		restoreAgentID = t.AssignedAgentID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reopened && restoreAgentID != nil {
		if err := s.capacity.Increment(ctx, *restoreAgentID); err != nil {
			s.logger.Warn("reopen could not restore agent load",
				zap.String("ticket_id", ticketID),
				zap.String("agent_id", *restoreAgentID),
				zap.Error(err))
			if _, unassignErr := s.mutateTicket(ctx, ticketID, func(t *domain.Ticket) error {
				t.AssignedAgentID = nil
				t.NeedsManualReview = true
				return nil
			}); unassignErr != nil {
				s.logger.Error("reopen unassign failed", zap.String("ticket_id", ticketID), zap.Error(unassignErr))
			}
		}
	}

	message, err := s.conversation.Append(ctx, ticket.ID, domain.MessageRoleCustomer, &ticket.CustomerID, content)
	if err != nil {
		return nil, err
	}

	actor := customerActor(ticket.CustomerID)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventMessageAdded,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.MessageAddedPayload{
			MessageID:   message.ID,
			Role:        message.Role,
			Reopened:    reopened,
			BodyPreview: stringPreview(message.Content, 120),
		},
	})
	if reopened {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventStatusChanged,
			TicketID: ticket.ID,
			Actor:    actor,
			Payload: events.StatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: domain.TicketStatusOpen,
			},
		})
	}
	return message, nil
}

// AddAgentMessage appends an agent reply, captures the first response time
// exactly once and moves an OPEN ticket to IN_PROGRESS.
func (s *LifecycleService) AddAgentMessage(ctx context.Context, ticketID, agentID, content string) (*domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.NewValidationError("message content required", nil)
	}

	var startedProgress bool
	var oldStatus domain.TicketStatus

	ticket, err := s.mutateTicket(ctx, ticketID, func(t *domain.Ticket) error {
		startedProgress = false
		oldStatus = t.Status

		if t.Status == domain.TicketStatusClosed {
			return apperrors.NewTicketClosed(t.ID)
		}
		if t.FirstResponseAt == nil {
			now := s.now()
			t.FirstResponseAt = &now
		}
		if t.Status == domain.TicketStatusOpen {
			t.Status = domain.TicketStatusInProgress
			startedProgress = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	message, err := s.conversation.Append(ctx, ticket.ID, domain.MessageRoleAgent, &agentID, content)
	if err != nil {
		return nil, err
	}

	actor := agentActor(agentID)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventMessageAdded,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.MessageAddedPayload{
			MessageID:   message.ID,
			Role:        message.Role,
			BodyPreview: stringPreview(message.Content, 120),
		},
	})
	if startedProgress {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventStatusChanged,
			TicketID: ticket.ID,
			Actor:    actor,
			Payload: events.StatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: domain.TicketStatusInProgress,
			},
		})
	}
	return message, nil
}

// UpdateStatus applies an explicit status change through the transition
// guard. Closing requires a non-empty reason. Either the whole transition
// commits or nothing does.
func (s *LifecycleService) UpdateStatus(ctx context.Context, actor events.Actor, ticketID string, newStatus domain.TicketStatus, closureReason *string) (*domain.Ticket, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": string(newStatus)})
	}
	var reason string
	if newStatus == domain.TicketStatusClosed {
		if closureReason == nil || strings.TrimSpace(*closureReason) == "" {
			return nil, apperrors.NewValidationError("closure reason required", nil)
		}
		reason = strings.TrimSpace(*closureReason)
	}

	var releaseAgentID *string
	var oldStatus domain.TicketStatus

	ticket, err := s.mutateTicket(ctx, ticketID, func(t *domain.Ticket) error {
		releaseAgentID = nil
		oldStatus = t.Status

		if !isValidTransition(t.Status, newStatus) {
			return apperrors.NewInvalidStatusTransition(string(t.Status), string(newStatus))
		}
		wasCounting := !t.Status.Terminal()

		now := s.now()
		t.Status = newStatus
		switch newStatus {
		case domain.TicketStatusResolved:
			t.ResolvedAt = &now
		case domain.TicketStatusClosed:
			t.ClosedAt = &now
			t.ClosureReason = &reason
		}
		if wasCounting && newStatus.Terminal() && t.AssignedAgentID != nil {
			releaseAgentID = t.AssignedAgentID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if releaseAgentID != nil {
		if err := s.capacity.Decrement(ctx, *releaseAgentID); err != nil {
			s.logger.Warn("load release failed",
				zap.String("ticket_id", ticketID),
				zap.String("agent_id", *releaseAgentID),
				zap.Error(err))
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventStatusChanged,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.StatusChangedPayload{
			OldStatus:     oldStatus,
			NewStatus:     newStatus,
			ClosureReason: ticket.ClosureReason,
		},
	})
	return ticket, nil
}

// UpdatePriority changes the priority of a non-terminal ticket and
// recomputes the SLA due date from the creation time. An already-breached
// flag is never cleared; a due date now in the past flips it.
func (s *LifecycleService) UpdatePriority(ctx context.Context, actor events.Actor, ticketID string, newPriority domain.TicketPriority) (*domain.Ticket, error) {
	if !newPriority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": string(newPriority)})
	}

	var breachFlipped bool

	ticket, err := s.mutateTicket(ctx, ticketID, func(t *domain.Ticket) error {
		breachFlipped = false
		if t.Status.Terminal() {
			return apperrors.NewConflict("cannot change priority of a terminal ticket", map[string]any{
				"ticket_id": t.ID,
				"status":    string(t.Status),
			})
		}
		t.Priority = newPriority
		t.SLADueAt = sla.ComputeDueDate(newPriority, t.CreatedAt)
		if !t.SLABreached && sla.Evaluate(t.SLADueAt, false, s.now(), s.riskWindow) == sla.StatusBreached {
			t.SLABreached = true
			breachFlipped = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if breachFlipped {
		s.publishBreach(ctx, ticket)
	}
	return ticket, nil
}

// UpdateCategory changes the routing category of a non-terminal ticket.
// The SLA is untouched.
func (s *LifecycleService) UpdateCategory(ctx context.Context, actor events.Actor, ticketID string, newCategory domain.TicketCategory) (*domain.Ticket, error) {
	if !newCategory.Valid() {
		return nil, apperrors.NewValidationError("invalid category", map[string]any{"category": string(newCategory)})
	}
	return s.mutateTicket(ctx, ticketID, func(t *domain.Ticket) error {
		if t.Status.Terminal() {
			return apperrors.NewConflict("cannot change category of a terminal ticket", map[string]any{
				"ticket_id": t.ID,
				"status":    string(t.Status),
			})
		}
		t.Category = newCategory
		return nil
	})
}

// ClearManualReview is the explicit agent action that resets the review
// flag; no status transition ever clears it.
func (s *LifecycleService) ClearManualReview(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return s.mutateTicket(ctx, ticketID, func(t *domain.Ticket) error {
		if !t.NeedsManualReview {
			return errNoChange
		}
		t.NeedsManualReview = false
		return nil
	})
}

// FlagManualReview marks the ticket for human oversight.
func (s *LifecycleService) FlagManualReview(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return s.mutateTicket(ctx, ticketID, func(t *domain.Ticket) error {
		if t.NeedsManualReview {
			return errNoChange
		}
		t.NeedsManualReview = true
		return nil
	})
}

// MarkBreached flips the SLA breached flag on a non-terminal ticket whose
// due date has passed. Re-evaluating an already-breached ticket is a no-op,
// so lazy reads and the background sweep can both call it freely.
func (s *LifecycleService) MarkBreached(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	var flipped bool
	ticket, err := s.mutateTicket(ctx, ticketID, func(t *domain.Ticket) error {
		flipped = false
		if t.SLABreached || t.Status.Terminal() {
			return errNoChange
		}
		if sla.Evaluate(t.SLADueAt, false, s.now(), s.riskWindow) != sla.StatusBreached {
			return errNoChange
		}
		t.SLABreached = true
		flipped = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if flipped {
		s.publishBreach(ctx, ticket)
	}
	return ticket, nil
}

// SLAHealth evaluates a ticket's SLA lazily, persisting a first-time
// breach. Terminal tickets report their stored flag and are never
// re-evaluated against the clock.
func (s *LifecycleService) SLAHealth(ctx context.Context, ticket *domain.Ticket) (sla.Status, error) {
	if ticket.Status.Terminal() {
		if ticket.SLABreached {
			return sla.StatusBreached, nil
		}
		return sla.StatusOnTrack, nil
	}
	status := sla.Evaluate(ticket.SLADueAt, ticket.SLABreached, s.now(), s.riskWindow)
	if status == sla.StatusBreached && !ticket.SLABreached {
		updated, err := s.MarkBreached(ctx, ticket.ID)
		if err != nil {
			return status, err
		}
		*ticket = *updated
	}
	return status, nil
}

// ApplyAIProposal routes AI-suggested updates through the same guarded
// paths as human edits. A low-confidence proposal is not applied; any
// rejected part flags the ticket for manual review.
func (s *LifecycleService) ApplyAIProposal(ctx context.Context, ticketID string, proposal AIProposal) (*domain.Ticket, error) {
	if proposal.Confidence < s.confidenceThreshold {
		return s.FlagManualReview(ctx, ticketID)
	}

	actor := systemActor()
	apply := func() error {
		if proposal.Category != nil {
			if _, err := s.UpdateCategory(ctx, actor, ticketID, *proposal.Category); err != nil {
				return err
			}
		}
		if proposal.Priority != nil {
			if _, err := s.UpdatePriority(ctx, actor, ticketID, *proposal.Priority); err != nil {
				return err
			}
		}
		if proposal.Status != nil {
			if _, err := s.UpdateStatus(ctx, actor, ticketID, *proposal.Status, proposal.ClosureReason); err != nil {
				return err
			}
		}
		return nil
	}

	if err := apply(); err != nil {
		if _, flagErr := s.FlagManualReview(ctx, ticketID); flagErr != nil {
			s.logger.Warn("manual review flag failed", zap.String("ticket_id", ticketID), zap.Error(flagErr))
		}
		return nil, err
	}
	return s.GetTicket(ctx, ticketID)
}

// GetTicket loads a ticket by id.
func (s *LifecycleService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ListTickets returns tickets matching the filter.
func (s *LifecycleService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	result, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// Conversation returns the message log in append order.
func (s *LifecycleService) Conversation(ctx context.Context, ticketID string) ([]domain.Message, error) {
	return s.conversation.List(ctx, ticketID)
}

// mutateTicket loads, mutates and saves a ticket under its lock, retrying
// a bounded number of times when the optimistic version check loses to an
// external writer. The callback sees a fresh copy on every attempt, so a
// rejected mutation leaves nothing applied.
func (s *LifecycleService) mutateTicket(ctx context.Context, ticketID string, fn func(*domain.Ticket) error) (*domain.Ticket, error) {
	s.ticketLocks.Lock(ticketID)
	defer s.ticketLocks.Unlock(ticketID)

	for attempt := 0; attempt < ticketUpdateAttempts; attempt++ {
		ticket, err := s.tickets.GetByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return nil, apperrors.MapError(err)
		}
		if err := fn(ticket); err != nil {
			if errors.Is(err, errNoChange) {
				return ticket, nil
			}
			return nil, err
		}
		err = s.tickets.Update(ctx, ticket)
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		return ticket, nil
	}
	return nil, apperrors.NewConflict("ticket changed concurrently", map[string]any{"ticket_id": ticketID})
}

func (s *LifecycleService) publishBreach(ctx context.Context, ticket *domain.Ticket) {
	s.publishEvent(ctx, events.Event{
		Type:     events.EventSLABreached,
		TicketID: ticket.ID,
		Actor:    systemActor(),
		Payload: events.SLABreachedPayload{
			Priority: ticket.Priority,
			DueAt:    ticket.SLADueAt,
		},
	})
}

func (s *LifecycleService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func customerActor(customerID string) events.Actor {
	return events.Actor{
		Type:       domain.SubjectTypeCustomer,
		CustomerID: &customerID,
	}
}

func agentActor(agentID string) events.Actor {
	return events.Actor{
		Type:    domain.SubjectTypeAgent,
		AgentID: &agentID,
	}
}

func systemActor() events.Actor {
	return events.Actor{Type: domain.SubjectTypeSystem}
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
