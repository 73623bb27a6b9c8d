package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-engine/internal/domain"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

// AgentFilter defines query params for agent listing.
type AgentFilter struct {
	Active   *bool
	Category *domain.TicketCategory
	Limit    int
	Offset   int
}

// AgentRepository handles persistence for agents. IncrementLoad and
// DecrementLoad are the only writers of current_load; both are atomic
// with respect to each other per agent.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	Update(ctx context.Context, agent *domain.Agent) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	GetByEmail(ctx context.Context, email string) (*domain.Agent, error)
	List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error)
	// IncrementLoad adds one to current_load, failing with CAPACITY_EXCEEDED
	// when the agent is already at max_load. The check and the increment are
	// a single atomic step.
	IncrementLoad(ctx context.Context, id string) error
	// DecrementLoad subtracts one from current_load, never going below zero.
	DecrementLoad(ctx context.Context, id string) error
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates the repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	const query = `
        INSERT INTO agents (name, email, password_hash, role, categories, active_flag, current_load, max_load)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		agent.Name,
		agent.Email,
		agent.PasswordHash,
		agent.Role,
		categoriesToStrings(agent.Categories),
		agent.Active,
		agent.CurrentLoad,
		agent.MaxLoad,
	).Scan(&agent.ID, &agent.CreatedAt, &agent.UpdatedAt)
}

// Update persists everything except current_load, which belongs to the
// capacity tracker.
func (r *agentRepository) Update(ctx context.Context, agent *domain.Agent) error {
	const query = `
        UPDATE agents
        SET name=$1, email=$2, password_hash=$3, role=$4, categories=$5, active_flag=$6, max_load=$7, updated_at=NOW()
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		agent.Name,
		agent.Email,
		agent.PasswordHash,
		agent.Role,
		categoriesToStrings(agent.Categories),
		agent.Active,
		agent.MaxLoad,
		agent.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	const query = `
        SELECT id, name, email, password_hash, role, categories, active_flag, current_load, max_load, created_at, updated_at
        FROM agents WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *agentRepository) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	const query = `
        SELECT id, name, email, password_hash, role, categories, active_flag, current_load, max_load, created_at, updated_at
        FROM agents WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *agentRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Agent, error) {
	var agent domain.Agent
	var categories []string
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&agent.ID,
		&agent.Name,
		&agent.Email,
		&agent.PasswordHash,
		&agent.Role,
		&categories,
		&agent.Active,
		&agent.CurrentLoad,
		&agent.MaxLoad,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return nil, err
	}
	agent.Categories = categoriesFromStrings(categories)
	return &agent, nil
}

func (r *agentRepository) List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error) {
	query := `
        SELECT id, name, email, password_hash, role, categories, active_flag, current_load, max_load, created_at, updated_at
        FROM agents`
	args := []any{}
	clauses := []string{}

	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active_flag=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, string(*filter.Category))
		clauses = append(clauses, fmt.Sprintf("$%d = ANY(categories)", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY id ASC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Agent
	for rows.Next() {
		var agent domain.Agent
		var categories []string
		if err := rows.Scan(
			&agent.ID,
			&agent.Name,
			&agent.Email,
			&agent.PasswordHash,
			&agent.Role,
			&categories,
			&agent.Active,
			&agent.CurrentLoad,
			&agent.MaxLoad,
			&agent.CreatedAt,
			&agent.UpdatedAt,
		); err != nil {
			return nil, err
		}
		agent.Categories = categoriesFromStrings(categories)
		result = append(result, agent)
	}
	return result, rows.Err()
}

func (r *agentRepository) IncrementLoad(ctx context.Context, id string) error {
	const query = `
        UPDATE agents SET current_load=current_load+1, updated_at=NOW()
        WHERE id=$1 AND current_load < max_load`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("agent", map[string]any{"agent_id": id})
			}
			return err
		}
		return apperrors.NewCapacityExceeded(id)
	}
	return nil
}

func (r *agentRepository) DecrementLoad(ctx context.Context, id string) error {
	const query = `
        UPDATE agents SET current_load=GREATEST(current_load-1, 0), updated_at=NOW()
        WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("agent", map[string]any{"agent_id": id})
	}
	return nil
}

func categoriesToStrings(categories []domain.TicketCategory) []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = string(c)
	}
	return out
}

func categoriesFromStrings(values []string) []domain.TicketCategory {
	out := make([]domain.TicketCategory, len(values))
	for i, v := range values {
		out[i] = domain.TicketCategory(v)
	}
	return out
}
