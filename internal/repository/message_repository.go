package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-engine/internal/domain"
)

// MessageRepository persists the append-only conversation log. There is no
// update or delete: history is immutable.
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error)
	// LatestTimestamp returns the timestamp of the newest message on the
	// ticket, or the zero time when the conversation is empty.
	LatestTimestamp(ctx context.Context, ticketID string) (time.Time, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository instantiates the repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	const query = `
        INSERT INTO ticket_messages (ticket_id, role, author_id, content, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		message.TicketID,
		message.Role,
		message.AuthorID,
		message.Content,
		message.CreatedAt,
	).Scan(&message.ID)
}

func (r *messageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	const query = `
        SELECT id, ticket_id, role, author_id, content, created_at
        FROM ticket_messages WHERE ticket_id=$1
        ORDER BY seq ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Message
	for rows.Next() {
		var message domain.Message
		if err := rows.Scan(
			&message.ID,
			&message.TicketID,
			&message.Role,
			&message.AuthorID,
			&message.Content,
			&message.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, message)
	}
	return result, rows.Err()
}

func (r *messageRepository) LatestTimestamp(ctx context.Context, ticketID string) (time.Time, error) {
	const query = `
        SELECT created_at FROM ticket_messages
        WHERE ticket_id=$1 ORDER BY seq DESC LIMIT 1`
	var ts time.Time
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return ts, nil
}
