// Package sla computes service-level deadlines and breach state for
// tickets. Everything here is pure; callers persist any resulting flag
// changes themselves.
package sla

import (
	"time"

	"github.com/spec-kit/support-engine/internal/domain"
)

// DefaultRiskWindow is how close to the due date a ticket counts as at
// risk.
const DefaultRiskWindow = 4 * time.Hour

// Resolution targets per priority.
var dueHours = map[domain.TicketPriority]time.Duration{
	domain.TicketPriorityUrgent: 8 * time.Hour,
	domain.TicketPriorityHigh:   24 * time.Hour,
	domain.TicketPriorityMedium: 48 * time.Hour,
	domain.TicketPriorityLow:    72 * time.Hour,
}

// Status is the evaluated SLA health of a ticket.
type Status string

const (
	StatusOnTrack  Status = "ON_TRACK"
	StatusAtRisk   Status = "AT_RISK"
	StatusBreached Status = "BREACHED"
)

// ComputeDueDate returns createdAt plus the resolution target for the
// priority. Unknown priorities fall back to the MEDIUM target; the
// boundary rejects them before they get here.
func ComputeDueDate(priority domain.TicketPriority, createdAt time.Time) time.Time {
	hours, ok := dueHours[priority]
	if !ok {
		hours = dueHours[domain.TicketPriorityMedium]
	}
	return createdAt.Add(hours)
}

// Evaluate classifies a ticket's SLA health at the given instant. A
// breached flag already persisted wins over any clock comparison, so an
// already-breached ticket never reports otherwise.
func Evaluate(dueAt time.Time, breached bool, now time.Time, riskWindow time.Duration) Status {
	if breached || !now.Before(dueAt) {
		return StatusBreached
	}
	if riskWindow <= 0 {
		riskWindow = DefaultRiskWindow
	}
	if dueAt.Sub(now) <= riskWindow {
		return StatusAtRisk
	}
	return StatusOnTrack
}
