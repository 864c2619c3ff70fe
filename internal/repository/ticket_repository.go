package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-intake/internal/domain"
)

// ErrNotFound is returned when no ticket matches the identifier.
var ErrNotFound = errors.New("ticket not found")

// SortField names a sortable ticket attribute, using the API spelling.
type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByPriority  SortField = "priority"
	SortByCategory  SortField = "category"
	SortByStatus    SortField = "status"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

var sortColumns = map[SortField]string{
	SortByCreatedAt: "created_at",
	SortByPriority:  "priority",
	SortByCategory:  "category",
	SortByStatus:    "status",
}

// ValidSortField reports whether f can be used for ordering.
func ValidSortField(f SortField) bool {
	_, ok := sortColumns[f]
	return ok
}

// TicketFilter captures list parameters. Nil fields do not filter.
type TicketFilter struct {
	Category      *domain.TicketCategory
	Priority      *domain.TicketPriority
	Status        *domain.TicketStatus
	CreatedBefore *time.Time
	SortBy        SortField
	SortOrder     SortOrder
	Limit         int
	Offset        int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Count(ctx context.Context, filter TicketFilter) (int, error)
	Ping(ctx context.Context) error
}

// querier is the subset of *pgxpool.Pool the repository uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

type ticketRepository struct {
	pool querier
}

// NewTicketRepository instantiates the Postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	if pool == nil {
		return newTicketRepository(nil)
	}
	return newTicketRepository(pool)
}

func newTicketRepository(db querier) *ticketRepository {
	return &ticketRepository{pool: db}
}

const ticketColumns = `id, customer_name, email, subject, description, category, priority, summary,
               status, assigned_team, ai_confidence, ai_processing_error, ai_processed_at,
               created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (customer_name, email, subject, description, category, priority, summary,
            status, assigned_team, ai_confidence, ai_processing_error, ai_processed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.CustomerName,
		ticket.Email,
		ticket.Subject,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Summary,
		ticket.Status,
		ticket.AssignedTeam,
		ticket.AIConfidence,
		ticket.AIProcessingError,
		ticket.AIProcessedAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

// Update writes every mutable column. User-supplied fields are never rewritten.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET category=$1, priority=$2, summary=$3, status=$4, assigned_team=$5,
            ai_confidence=$6, ai_processing_error=$7, ai_processed_at=$8, updated_at=NOW()
        WHERE id=$9
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.Category,
		ticket.Priority,
		ticket.Summary,
		ticket.Status,
		ticket.AssignedTeam,
		ticket.AIConfidence,
		ticket.AIProcessingError,
		ticket.AIProcessedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query, args := listQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Count(ctx context.Context, filter TicketFilter) (int, error) {
	where, args := buildTicketWhere(filter)
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets `+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *ticketRepository) Ping(ctx context.Context) error {
	if r.pool == nil {
		return errors.New("postgres pool not configured")
	}
	return r.pool.Ping(ctx)
}

// listQuery builds the paged SELECT for filter. The sort column comes from a
// whitelist and id breaks ties in the same direction.
func listQuery(filter TicketFilter) (string, []any) {
	where, args := buildTicketWhere(filter)

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = sortColumns[SortByCreatedAt]
	}
	order := "DESC"
	if filter.SortOrder == SortAsc {
		order = "ASC"
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM tickets %s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		ticketColumns, where, column, order, order, len(args)-1, len(args))
	return query, args
}

func buildTicketWhere(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.CreatedBefore != nil {
		args = append(args, *filter.CreatedBefore)
		clauses = append(clauses, fmt.Sprintf("created_at < $%d", len(args)))
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.CustomerName,
		&ticket.Email,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Summary,
		&ticket.Status,
		&ticket.AssignedTeam,
		&ticket.AIConfidence,
		&ticket.AIProcessingError,
		&ticket.AIProcessedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
