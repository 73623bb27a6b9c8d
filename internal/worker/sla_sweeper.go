// Package worker hosts background jobs that run beside the request path.
package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/observability"
	"github.com/spec-kit/support-engine/internal/repository"
	"github.com/spec-kit/support-engine/internal/service"
)

// SLASweeper periodically flips the breached flag on overdue tickets.
// Every pass is idempotent: tickets already breached or terminal are
// skipped by the lifecycle service, so overlapping with lazy read-time
// evaluation is harmless.
type SLASweeper struct {
	tickets   repository.TicketRepository
	lifecycle *service.LifecycleService
	metrics   *observability.Metrics
	logger    *zap.Logger
	schedule  string
	cron      *cron.Cron
}

// NewSLASweeper creates the sweeper.
func NewSLASweeper(tickets repository.TicketRepository, lifecycle *service.LifecycleService, metrics *observability.Metrics, logger *zap.Logger, schedule string) *SLASweeper {
	if schedule == "" {
		schedule = "@every 1m"
	}
	return &SLASweeper{
		tickets:   tickets,
		lifecycle: lifecycle,
		metrics:   metrics,
		logger:    logger,
		schedule:  schedule,
	}
}

// Start schedules the sweep. Returns an error when the schedule spec does
// not parse.
func (s *SLASweeper) Start(ctx context.Context) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.Sweep(ctx)
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("sla sweeper started", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *SLASweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// Sweep marks every overdue non-terminal ticket as breached.
func (s *SLASweeper) Sweep(ctx context.Context) {
	overdue, err := s.tickets.ListOpenDueBefore(ctx, time.Now())
	if err != nil {
		s.logger.Error("sla sweep listing failed", zap.Error(err))
		return
	}
	for _, ticket := range overdue {
		if _, err := s.lifecycle.MarkBreached(ctx, ticket.ID); err != nil {
			s.logger.Warn("sla breach mark failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
			continue
		}
		s.metrics.RecordSLABreach()
	}
	if len(overdue) > 0 {
		s.logger.Info("sla sweep finished", zap.Int("overdue", len(overdue)))
	}
}
