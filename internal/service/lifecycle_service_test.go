package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-engine/internal/classifier"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/events"
	"github.com/spec-kit/support-engine/internal/locks"
	"github.com/spec-kit/support-engine/internal/repository/memory"
	"github.com/spec-kit/support-engine/internal/sla"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{t: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type stubClassifier struct {
	suggestion classifier.Suggestion
	err        error
}

func (s *stubClassifier) Classify(context.Context, string) (classifier.Suggestion, error) {
	return s.suggestion, s.err
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

type fixture struct {
	clock      *fakeClock
	tickets    *memory.TicketRepository
	agents     *memory.AgentRepository
	messages   *memory.MessageRepository
	capacity   *CapacityService
	assignment *AssignmentService
	lifecycle  *LifecycleService
	dispatcher *recordingDispatcher
}

func newFixture(t *testing.T, classify classifier.Classifier) *fixture {
	t.Helper()
	if classify == nil {
		classify = &stubClassifier{suggestion: classifier.Suggestion{
			Category:   domain.CategoryGeneral,
			Priority:   domain.TicketPriorityMedium,
			Confidence: 0.9,
		}}
	}

	clock := newFakeClock(t0)
	tickets := memory.NewTicketRepository()
	agents := memory.NewAgentRepository()
	messages := memory.NewMessageRepository()
	dispatcher := &recordingDispatcher{}

	capacity := NewCapacityService(agents, locks.NewKeyedMutex())
	conversation := NewConversationService(messages, clock.Now)
	assignment := NewAssignmentService(AssignmentDependencies{
		TicketRepo: tickets,
		AgentRepo:  agents,
		Capacity:   capacity,
		Dispatcher: dispatcher,
	})
	lifecycle := NewLifecycleService(LifecycleDependencies{
		TicketRepo:   tickets,
		AgentRepo:    agents,
		Conversation: conversation,
		Capacity:     capacity,
		Assignment:   assignment,
		Classifier:   classify,
		Dispatcher:   dispatcher,
	}, LifecycleOptions{Now: clock.Now})

	return &fixture{
		clock:      clock,
		tickets:    tickets,
		agents:     agents,
		messages:   messages,
		capacity:   capacity,
		assignment: assignment,
		lifecycle:  lifecycle,
		dispatcher: dispatcher,
	}
}

func (f *fixture) addAgent(t *testing.T, id string, categories []domain.TicketCategory, maxLoad int) *domain.Agent {
	t.Helper()
	agent := &domain.Agent{
		ID:         id,
		Name:       "Agent " + id,
		Email:      id + "@example.com",
		Role:       domain.AgentRoleAgent,
		Categories: categories,
		Active:     true,
		MaxLoad:    maxLoad,
	}
	require.NoError(t, f.agents.Create(context.Background(), agent))
	return agent
}

func (f *fixture) agentLoad(t *testing.T, id string) int {
	t.Helper()
	agent, err := f.agents.GetByID(context.Background(), id)
	require.NoError(t, err)
	return agent.CurrentLoad
}

func (f *fixture) createTicket(t *testing.T, input TicketCreateInput) *domain.Ticket {
	t.Helper()
	if input.CustomerID == "" {
		input.CustomerID = "cust-1"
	}
	if input.Subject == "" {
		input.Subject = "Cannot log in"
	}
	if input.Description == "" {
		input.Description = "I cannot log in to my account since yesterday."
	}
	ticket, err := f.lifecycle.CreateTicket(context.Background(), input)
	require.NoError(t, err)
	return ticket
}

func ptr[T any](v T) *T { return &v }

func TestCreateTicketAssignsAndSchedules(t *testing.T) {
	f := newFixture(t, nil)
	f.addAgent(t, "agent-a", []domain.TicketCategory{domain.CategoryBilling}, 5)
	f.addAgent(t, "agent-b", []domain.TicketCategory{domain.CategoryBilling}, 5)

	ticket := f.createTicket(t, TicketCreateInput{
		Category: ptr(domain.CategoryBilling),
		Priority: ptr(domain.TicketPriorityUrgent),
	})

	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.CategoryBilling, ticket.Category)
	assert.Equal(t, domain.TicketPriorityUrgent, ticket.Priority)
	assert.Equal(t, t0.Add(8*time.Hour), ticket.SLADueAt)
	assert.False(t, ticket.NeedsManualReview)
	// Equal load, so the lexicographically smaller agent id wins.
	require.NotNil(t, ticket.AssignedAgentID)
	assert.Equal(t, "agent-a", *ticket.AssignedAgentID)
	assert.Equal(t, 1, f.agentLoad(t, "agent-a"))
	assert.Equal(t, 0, f.agentLoad(t, "agent-b"))

	msgs, err := f.lifecycle.Conversation(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.MessageRoleCustomer, msgs[0].Role)
	assert.Equal(t, ticket.Description, msgs[0].Content)

	assert.Len(t, f.dispatcher.byType(events.EventTicketCreated), 1)
	assert.Len(t, f.dispatcher.byType(events.EventAgentAssigned), 1)
	assert.Len(t, f.dispatcher.byType(events.EventMessageAdded), 1)
}

func TestCreateTicketPrefersCategoryMatchOverLoad(t *testing.T) {
	f := newFixture(t, nil)
	f.addAgent(t, "agent-generalist", nil, 5)
	specialist := f.addAgent(t, "agent-specialist", []domain.TicketCategory{domain.CategoryTechnical}, 5)
	require.NoError(t, f.capacity.Increment(context.Background(), specialist.ID))
	require.NoError(t, f.capacity.Increment(context.Background(), specialist.ID))

	ticket := f.createTicket(t, TicketCreateInput{
		Category: ptr(domain.CategoryTechnical),
		Priority: ptr(domain.TicketPriorityMedium),
	})

	// The busier specialist still beats the idle generalist.
	require.NotNil(t, ticket.AssignedAgentID)
	assert.Equal(t, "agent-specialist", *ticket.AssignedAgentID)
}

func TestCreateTicketNoEligibleAgentFlagsReview(t *testing.T) {
	f := newFixture(t, nil)

	ticket := f.createTicket(t, TicketCreateInput{
		Category: ptr(domain.CategoryBilling),
		Priority: ptr(domain.TicketPriorityLow),
	})

	assert.Nil(t, ticket.AssignedAgentID)
	assert.True(t, ticket.NeedsManualReview)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
}

func TestCreateTicketClassifierFailureDegrades(t *testing.T) {
	f := newFixture(t, &stubClassifier{err: errors.New("model offline")})
	f.addAgent(t, "agent-a", nil, 5)

	ticket := f.createTicket(t, TicketCreateInput{})

	assert.Equal(t, domain.CategoryGeneral, ticket.Category)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.True(t, ticket.NeedsManualReview)
	assert.Equal(t, t0.Add(48*time.Hour), ticket.SLADueAt)
	// Degraded classification still routes the ticket.
	assert.NotNil(t, ticket.AssignedAgentID)
}

func TestCreateTicketLowConfidenceFlagsReview(t *testing.T) {
	f := newFixture(t, &stubClassifier{suggestion: classifier.Suggestion{
		Category:   domain.CategoryGameplay,
		Priority:   domain.TicketPriorityLow,
		Confidence: 0.3,
	}})

	ticket := f.createTicket(t, TicketCreateInput{})

	assert.Equal(t, domain.CategoryGameplay, ticket.Category)
	assert.Equal(t, domain.TicketPriorityLow, ticket.Priority)
	assert.True(t, ticket.NeedsManualReview)
}

func TestCreateTicketExplicitOverridesSkipClassifier(t *testing.T) {
	f := newFixture(t, &stubClassifier{err: errors.New("model offline")})

	ticket := f.createTicket(t, TicketCreateInput{
		Category: ptr(domain.CategorySecurity),
		Priority: ptr(domain.TicketPriorityUrgent),
	})

	assert.Equal(t, domain.CategorySecurity, ticket.Category)
	assert.Equal(t, domain.TicketPriorityUrgent, ticket.Priority)
	assert.True(t, ticket.NeedsManualReview) // no eligible agent, not the classifier
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.lifecycle.CreateTicket(context.Background(), TicketCreateInput{Subject: "x", Description: "y"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	_, err = f.lifecycle.CreateTicket(context.Background(), TicketCreateInput{CustomerID: "c", Description: "y"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	_, err = f.lifecycle.CreateTicket(context.Background(), TicketCreateInput{CustomerID: "c", Subject: "x"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestAgentMessageRecordsFirstResponseOnce(t *testing.T) {
	f := newFixture(t, nil)
	f.addAgent(t, "agent-a", nil, 5)
	ticket := f.createTicket(t, TicketCreateInput{})

	f.clock.Advance(30 * time.Minute)
	firstReplyAt := f.clock.Now()
	_, err := f.lifecycle.AddAgentMessage(context.Background(), ticket.ID, "agent-a", "Looking into it.")
	require.NoError(t, err)

	updated, err := f.lifecycle.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	require.NotNil(t, updated.FirstResponseAt)
	assert.Equal(t, firstReplyAt, *updated.FirstResponseAt)

	f.clock.Advance(2 * time.Hour)
	_, err = f.lifecycle.AddAgentMessage(context.Background(), ticket.ID, "agent-a", "Any news?")
	require.NoError(t, err)

	updated, err = f.lifecycle.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, firstReplyAt, *updated.FirstResponseAt)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
}

func TestCustomerReplyReopensResolvedTicket(t *testing.T) {
	f := newFixture(t, nil)
	f.addAgent(t, "agent-a", nil, 5)
	ticket := f.createTicket(t, TicketCreateInput{})

	_, err := f.lifecycle.AddAgentMessage(context.Background(), ticket.ID, "agent-a", "Fixed, please verify.")
	require.NoError(t, err)
	_, err = f.lifecycle.UpdateStatus(context.Background(), events.Actor{Type: domain.SubjectTypeAgent}, ticket.ID, domain.TicketStatusResolved, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, f.agentLoad(t, "agent-a"))

	f.clock.Advance(time.Hour)
	_, err = f.lifecycle.AddCustomerMessage(context.Background(), ticket.ID, "cust-1", "Still broken for me.")
	require.NoError(t, err)

	updated, err := f.lifecycle.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, updated.Status)
	assert.Equal(t, 1, updated.ReopenCount)
	require.NotNil(t, updated.ReopenedAt)
	assert.Equal(t, f.clock.Now(), *updated.ReopenedAt)
	assert.Nil(t, updated.ResolvedAt)
	// The previous assignee takes the ticket back and counts it again.
	require.NotNil(t, updated.AssignedAgentID)
	assert.Equal(t, "agent-a", *updated.AssignedAgentID)
	assert.Equal(t, 1, f.agentLoad(t, "agent-a"))
}

func TestReopenUnassignsWhenAgentIsFull(t *testing.T) {
	f := newFixture(t, nil)
	f.addAgent(t, "agent-a", nil, 1)
	ticket := f.createTicket(t, TicketCreateInput{})

	_, err := f.lifecycle.UpdateStatus(context.Background(), events.Actor{Type: domain.SubjectTypeAgent}, ticket.ID, domain.TicketStatusResolved, nil)
	require.NoError(t, err)

	// The freed slot goes to another ticket before the customer replies.
	second := f.createTicket(t, TicketCreateInput{CustomerID: "cust-2"})
	require.NotNil(t, second.AssignedAgentID)
	assert.Equal(t, 1, f.agentLoad(t, "agent-a"))

	_, err = f.lifecycle.AddCustomerMessage(context.Background(), ticket.ID, "cust-1", "It came back.")
	require.NoError(t, err)

	updated, err := f.lifecycle.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, updated.Status)
	assert.Nil(t, updated.AssignedAgentID)
	assert.True(t, updated.NeedsManualReview)
	assert.Equal(t, 1, f.agentLoad(t, "agent-a"))
}

func TestMessagesRejectedOnClosedTicket(t *testing.T) {
	f := newFixture(t, nil)
	f.addAgent(t, "agent-a", nil, 5)
	ticket := f.createTicket(t, TicketCreateInput{})

	_, err := f.lifecycle.UpdateStatus(context.Background(), events.Actor{Type: domain.SubjectTypeAgent}, ticket.ID, domain.TicketStatusClosed, ptr("duplicate"))
	require.NoError(t, err)

	_, err = f.lifecycle.AddCustomerMessage(context.Background(), ticket.ID, "cust-1", "One more thing...")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTicketClosed))

	_, err = f.lifecycle.AddAgentMessage(context.Background(), ticket.ID, "agent-a", "Closing note")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTicketClosed))

	// The rejected replies left no trace in the conversation.
	msgs, err := f.lifecycle.Conversation(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestUpdateStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.TicketStatus
		to      domain.TicketStatus
		allowed bool
	}{
		{"open to in-progress", domain.TicketStatusOpen, domain.TicketStatusInProgress, true},
		{"open to resolved", domain.TicketStatusOpen, domain.TicketStatusResolved, true},
		{"open to closed", domain.TicketStatusOpen, domain.TicketStatusClosed, true},
		{"in-progress back to open", domain.TicketStatusInProgress, domain.TicketStatusOpen, true},
		{"in-progress to resolved", domain.TicketStatusInProgress, domain.TicketStatusResolved, true},
		{"resolved to closed", domain.TicketStatusResolved, domain.TicketStatusClosed, true},
		{"resolved to in-progress", domain.TicketStatusResolved, domain.TicketStatusInProgress, false},
		{"resolved to open via status update", domain.TicketStatusResolved, domain.TicketStatusOpen, false},
		{"closed to open", domain.TicketStatusClosed, domain.TicketStatusOpen, false},
		{"closed to in-progress", domain.TicketStatusClosed, domain.TicketStatusInProgress, false},
		{"open to open", domain.TicketStatusOpen, domain.TicketStatusOpen, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			ticket := f.createTicket(t, TicketCreateInput{})
			forceStatus(t, f, ticket.ID, tc.from)

			_, err := f.lifecycle.UpdateStatus(context.Background(), events.Actor{Type: domain.SubjectTypeAgent}, ticket.ID, tc.to, ptr("done"))
			if tc.allowed {
				require.NoError(t, err)
				return
			}
			assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidStatusTransition), "got %v", err)

			// Rejected transitions change nothing.
			stored, getErr := f.lifecycle.GetTicket(context.Background(), ticket.ID)
			require.NoError(t, getErr)
			assert.Equal(t, tc.from, stored.Status)
		})
	}
}

// forceStatus walks the ticket to the wanted state through real transitions.
func forceStatus(t *testing.T, f *fixture, ticketID string, status domain.TicketStatus) {
	t.Helper()
	actor := events.Actor{Type: domain.SubjectTypeAgent}
	switch status {
	case domain.TicketStatusOpen:
	case domain.TicketStatusInProgress, domain.TicketStatusResolved:
		_, err := f.lifecycle.UpdateStatus(context.Background(), actor, ticketID, status, nil)
		require.NoError(t, err)
	case domain.TicketStatusClosed:
		_, err := f.lifecycle.UpdateStatus(context.Background(), actor, ticketID, status, ptr("setup"))
		require.NoError(t, err)
	}
}

func TestCloseRequiresReason(t *testing.T) {
	f := newFixture(t, nil)
	ticket := f.createTicket(t, TicketCreateInput{})

	_, err := f.lifecycle.UpdateStatus(context.Background(), events.Actor{Type: domain.SubjectTypeAgent}, ticket.ID, domain.TicketStatusClosed, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	_, err = f.lifecycle.UpdateStatus(context.Background(), events.Actor{Type: domain.SubjectTypeAgent}, ticket.ID, domain.TicketStatusClosed, ptr("   "))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	closed, err := f.lifecycle.UpdateStatus(context.Background(), events.Actor{Type: domain.SubjectTypeAgent}, ticket.ID, domain.TicketStatusClosed, ptr("resolved by customer"))
	require.NoError(t, err)
	require.NotNil(t, closed.ClosureReason)
	assert.Equal(t, "resolved by customer", *closed.ClosureReason)
	require.NotNil(t, closed.ClosedAt)
}

func TestTerminalStatusReleasesAgentLoad(t *testing.T) {
	f := newFixture(t, nil)
	f.addAgent(t, "agent-a", nil, 5)
	ticket := f.createTicket(t, TicketCreateInput{})
	require.Equal(t, 1, f.agentLoad(t, "agent-a"))

	_, err := f.lifecycle.UpdateStatus(context.Background(), events.Actor{Type: domain.SubjectTypeAgent}, ticket.ID, domain.TicketStatusResolved, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, f.agentLoad(t, "agent-a"))

	// Resolved to closed must not release the slot a second time.
	_, err = f.lifecycle.UpdateStatus(context.Background(), events.Actor{Type: domain.SubjectTypeAgent}, ticket.ID, domain.TicketStatusClosed, ptr("confirmed"))
	require.NoError(t, err)
	assert.Equal(t, 0, f.agentLoad(t, "agent-a"))
}

func TestUpdatePriorityRecomputesDueDate(t *testing.T) {
	f := newFixture(t, nil)
	ticket := f.createTicket(t, TicketCreateInput{Priority: ptr(domain.TicketPriorityLow), Category: ptr(domain.CategoryGeneral)})
	assert.Equal(t, t0.Add(72*time.Hour), ticket.SLADueAt)

	f.clock.Advance(2 * time.Hour)
	updated, err := f.lifecycle.UpdatePriority(context.Background(), events.Actor{Type: domain.SubjectTypeAgent}, ticket.ID, domain.TicketPriorityHigh)
	require.NoError(t, err)
	// Anchored to creation time, not the time of the change.
	assert.Equal(t, t0.Add(24*time.Hour), updated.SLADueAt)
	assert.False(t, updated.SLABreached)
}

func TestUpdatePriorityCanFlipBreach(t *testing.T) {
	f := newFixture(t, nil)
	ticket := f.createTicket(t, TicketCreateInput{Priority: ptr(domain.TicketPriorityMedium), Category: ptr(domain.CategoryGeneral)})

	f.clock.Advance(10 * time.Hour)
	updated, err := f.lifecycle.UpdatePriority(context.Background(), events.Actor{Type: domain.SubjectTypeAgent}, ticket.ID, domain.TicketPriorityUrgent)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(8*time.Hour), updated.SLADueAt)
	assert.True(t, updated.SLABreached)
	assert.Len(t, f.dispatcher.byType(events.EventSLABreached), 1)
}

func TestUpdatePriorityRejectedOnTerminalTicket(t *testing.T) {
	f := newFixture(t, nil)
	ticket := f.createTicket(t, TicketCreateInput{})
	forceStatus(t, f, ticket.ID, domain.TicketStatusResolved)

	_, err := f.lifecycle.UpdatePriority(context.Background(), events.Actor{Type: domain.SubjectTypeAgent}, ticket.ID, domain.TicketPriorityUrgent)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = f.lifecycle.UpdateCategory(context.Background(), events.Actor{Type: domain.SubjectTypeAgent}, ticket.ID, domain.CategoryBilling)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestMarkBreachedIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ticket := f.createTicket(t, TicketCreateInput{Priority: ptr(domain.TicketPriorityUrgent), Category: ptr(domain.CategoryGeneral)})

	// Not yet due: nothing happens.
	updated, err := f.lifecycle.MarkBreached(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.False(t, updated.SLABreached)

	f.clock.Advance(9 * time.Hour)
	updated, err = f.lifecycle.MarkBreached(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.True(t, updated.SLABreached)

	updated, err = f.lifecycle.MarkBreached(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.True(t, updated.SLABreached)
	assert.Len(t, f.dispatcher.byType(events.EventSLABreached), 1)
}

func TestSLAHealthLazyEvaluation(t *testing.T) {
	f := newFixture(t, nil)
	ticket := f.createTicket(t, TicketCreateInput{Priority: ptr(domain.TicketPriorityUrgent), Category: ptr(domain.CategoryGeneral)})

	health, err := f.lifecycle.SLAHealth(context.Background(), ticket)
	require.NoError(t, err)
	assert.Equal(t, sla.StatusOnTrack, health)

	f.clock.Advance(5 * time.Hour)
	health, err = f.lifecycle.SLAHealth(context.Background(), ticket)
	require.NoError(t, err)
	assert.Equal(t, sla.StatusAtRisk, health)

	f.clock.Advance(4 * time.Hour)
	health, err = f.lifecycle.SLAHealth(context.Background(), ticket)
	require.NoError(t, err)
	assert.Equal(t, sla.StatusBreached, health)
	// The read persisted the breach.
	assert.True(t, ticket.SLABreached)
	stored, err := f.lifecycle.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.True(t, stored.SLABreached)
}

func TestSLAHealthTerminalTicketReportsStoredFlag(t *testing.T) {
	f := newFixture(t, nil)
	ticket := f.createTicket(t, TicketCreateInput{Priority: ptr(domain.TicketPriorityUrgent), Category: ptr(domain.CategoryGeneral)})
	forceStatus(t, f, ticket.ID, domain.TicketStatusClosed)

	stored, err := f.lifecycle.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)

	// Far past the due date, but the ticket closed in time.
	f.clock.Advance(100 * time.Hour)
	health, err := f.lifecycle.SLAHealth(context.Background(), stored)
	require.NoError(t, err)
	assert.Equal(t, sla.StatusOnTrack, health)
	assert.False(t, stored.SLABreached)
}

func TestManualReviewFlagLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	ticket := f.createTicket(t, TicketCreateInput{Category: ptr(domain.CategoryBilling), Priority: ptr(domain.TicketPriorityLow)})
	assert.True(t, ticket.NeedsManualReview) // no eligible agent

	// Status transitions never clear the flag.
	forceStatus(t, f, ticket.ID, domain.TicketStatusInProgress)
	stored, err := f.lifecycle.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.True(t, stored.NeedsManualReview)

	cleared, err := f.lifecycle.ClearManualReview(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.False(t, cleared.NeedsManualReview)

	flagged, err := f.lifecycle.FlagManualReview(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.True(t, flagged.NeedsManualReview)
}

func TestApplyAIProposalLowConfidenceOnlyFlags(t *testing.T) {
	f := newFixture(t, nil)
	ticket := f.createTicket(t, TicketCreateInput{Category: ptr(domain.CategoryGeneral), Priority: ptr(domain.TicketPriorityMedium)})

	updated, err := f.lifecycle.ApplyAIProposal(context.Background(), ticket.ID, AIProposal{
		Category:   ptr(domain.CategoryBilling),
		Priority:   ptr(domain.TicketPriorityUrgent),
		Confidence: 0.2,
	})
	require.NoError(t, err)
	assert.True(t, updated.NeedsManualReview)
	assert.Equal(t, domain.CategoryGeneral, updated.Category)
	assert.Equal(t, domain.TicketPriorityMedium, updated.Priority)
}

func TestApplyAIProposalAppliesConfidentUpdates(t *testing.T) {
	f := newFixture(t, nil)
	f.addAgent(t, "agent-a", nil, 5)
	ticket := f.createTicket(t, TicketCreateInput{Category: ptr(domain.CategoryGeneral), Priority: ptr(domain.TicketPriorityMedium)})

	updated, err := f.lifecycle.ApplyAIProposal(context.Background(), ticket.ID, AIProposal{
		Category:   ptr(domain.CategoryBilling),
		Priority:   ptr(domain.TicketPriorityHigh),
		Confidence: 0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryBilling, updated.Category)
	assert.Equal(t, domain.TicketPriorityHigh, updated.Priority)
	assert.Equal(t, t0.Add(24*time.Hour), updated.SLADueAt)
	assert.False(t, updated.NeedsManualReview)
}

func TestApplyAIProposalRejectedTransitionFlagsReview(t *testing.T) {
	f := newFixture(t, nil)
	ticket := f.createTicket(t, TicketCreateInput{})
	forceStatus(t, f, ticket.ID, domain.TicketStatusClosed)

	_, err := f.lifecycle.ApplyAIProposal(context.Background(), ticket.ID, AIProposal{
		Status:     ptr(domain.TicketStatusInProgress),
		Confidence: 0.9,
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidStatusTransition))

	stored, getErr := f.lifecycle.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.TicketStatusClosed, stored.Status)
	assert.True(t, stored.NeedsManualReview)
}

func TestResolveReopenCloseFlow(t *testing.T) {
	f := newFixture(t, nil)
	f.addAgent(t, "agent-a", nil, 5)
	ticket := f.createTicket(t, TicketCreateInput{})
	actor := events.Actor{Type: domain.SubjectTypeAgent}

	_, err := f.lifecycle.UpdateStatus(context.Background(), actor, ticket.ID, domain.TicketStatusResolved, nil)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	_, err = f.lifecycle.AddCustomerMessage(context.Background(), ticket.ID, "cust-1", "Same issue again.")
	require.NoError(t, err)

	reopened, err := f.lifecycle.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, reopened.Status)
	assert.Equal(t, 1, reopened.ReopenCount)

	closed, err := f.lifecycle.UpdateStatus(context.Background(), actor, ticket.ID, domain.TicketStatusClosed, ptr("duplicate"))
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, "duplicate", *closed.ClosureReason)

	_, err = f.lifecycle.AddCustomerMessage(context.Background(), ticket.ID, "cust-1", "Hello?")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTicketClosed))
}

func TestGetTicketNotFound(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.lifecycle.GetTicket(context.Background(), "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestCustomerMessageWrongCustomerRejected(t *testing.T) {
	f := newFixture(t, nil)
	ticket := f.createTicket(t, TicketCreateInput{CustomerID: "cust-1"})

	_, err := f.lifecycle.AddCustomerMessage(context.Background(), ticket.ID, "cust-2", "let me in")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}
