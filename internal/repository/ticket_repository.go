package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-engine/internal/domain"
)

// ErrVersionConflict is returned when an optimistic update loses the race:
// the stored ticket moved past the version the caller loaded.
var ErrVersionConflict = errors.New("ticket version conflict")

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CustomerID        *string
	AssignedAgentID   *string
	Statuses          []domain.TicketStatus
	Priorities        []domain.TicketPriority
	Categories        []domain.TicketCategory
	NeedsManualReview *bool
	Limit             int
	Offset            int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update persists the ticket only if the stored version still matches
	// ticket.Version, then increments it. Returns ErrVersionConflict when
	// a concurrent writer got there first.
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// ListOpenDueBefore returns non-terminal, not-yet-breached tickets whose
	// SLA due date falls before cutoff. Used by the breach sweeper.
	ListOpenDueBefore(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, external_key, customer_id, subject, description, category, priority, status,
       assigned_agent_id, sla_due_at, sla_breached, first_response_at, reopen_count, reopened_at,
       resolved_at, closed_at, closure_reason, needs_manual_review, version, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, customer_id, subject, description, category, priority, status,
            assigned_agent_id, sla_due_at, sla_breached, first_response_at, reopen_count, reopened_at,
            resolved_at, closed_at, closure_reason, needs_manual_review, version, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,1,$18,$19)
        RETURNING id, version`
	return r.pool.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.CustomerID,
		ticket.Subject,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.AssignedAgentID,
		ticket.SLADueAt,
		ticket.SLABreached,
		ticket.FirstResponseAt,
		ticket.ReopenCount,
		ticket.ReopenedAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ClosureReason,
		ticket.NeedsManualReview,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	).Scan(&ticket.ID, &ticket.Version)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET category=$1, priority=$2, status=$3, assigned_agent_id=$4, sla_due_at=$5,
            sla_breached=$6, first_response_at=$7, reopen_count=$8, reopened_at=$9, resolved_at=$10,
            closed_at=$11, closure_reason=$12, needs_manual_review=$13, version=version+1, updated_at=NOW()
        WHERE id=$14 AND version=$15`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.AssignedAgentID,
		ticket.SLADueAt,
		ticket.SLABreached,
		ticket.FirstResponseAt,
		ticket.ReopenCount,
		ticket.ReopenedAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ClosureReason,
		ticket.NeedsManualReview,
		ticket.ID,
		ticket.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	ticket.Version++
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	row := r.pool.QueryRow(ctx, query, id)
	return scanTicketRow(row)
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.AssignedAgentID != nil {
		args = append(args, *filter.AssignedAgentID)
		clauses = append(clauses, fmt.Sprintf("assigned_agent_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, cat := range filter.Categories {
			args = append(args, cat)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.NeedsManualReview != nil {
		args = append(args, *filter.NeedsManualReview)
		clauses = append(clauses, fmt.Sprintf("needs_manual_review=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListOpenDueBefore(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE status IN ($1,$2) AND sla_breached=FALSE AND sla_due_at <= $3
        ORDER BY sla_due_at ASC`, ticketColumns)
	rows, err := r.pool.Query(ctx, query, domain.TicketStatusOpen, domain.TicketStatusInProgress, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicketRow(row rowScanner) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.CustomerID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.AssignedAgentID,
		&ticket.SLADueAt,
		&ticket.SLABreached,
		&ticket.FirstResponseAt,
		&ticket.ReopenCount,
		&ticket.ReopenedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.ClosureReason,
		&ticket.NeedsManualReview,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicketRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
