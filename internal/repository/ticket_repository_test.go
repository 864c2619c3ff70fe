package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-intake/internal/domain"
)

func TestBuildTicketWhere(t *testing.T) {
	category := domain.TicketCategoryBilling
	priority := domain.TicketPriorityHigh
	status := domain.TicketStatusNew
	before := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		filter    TicketFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "no filters",
			wantWhere: "WHERE 1=1",
			wantArgs:  []any{},
		},
		{
			name:      "category only",
			filter:    TicketFilter{Category: &category},
			wantWhere: "WHERE 1=1 AND category=$1",
			wantArgs:  []any{category},
		},
		{
			name:      "status only",
			filter:    TicketFilter{Status: &status},
			wantWhere: "WHERE 1=1 AND status=$1",
			wantArgs:  []any{status},
		},
		{
			name:      "priority and created before",
			filter:    TicketFilter{Priority: &priority, CreatedBefore: &before},
			wantWhere: "WHERE 1=1 AND priority=$1 AND created_at < $2",
			wantArgs:  []any{priority, before},
		},
		{
			name:      "all filters",
			filter:    TicketFilter{Category: &category, Priority: &priority, Status: &status, CreatedBefore: &before},
			wantWhere: "WHERE 1=1 AND category=$1 AND priority=$2 AND status=$3 AND created_at < $4",
			wantArgs:  []any{category, priority, status, before},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			where, args := buildTicketWhere(tc.filter)
			assert.Equal(t, tc.wantWhere, where)
			assert.Equal(t, tc.wantArgs, args)
		})
	}
}

func TestListQuery(t *testing.T) {
	status := domain.TicketStatusClosed
	priority := domain.TicketPriorityLow

	cases := []struct {
		name     string
		filter   TicketFilter
		wantTail string
		wantArgs []any
	}{
		{
			name:     "defaults",
			wantTail: "FROM tickets WHERE 1=1 ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2",
			wantArgs: []any{50, 0},
		},
		{
			name:     "ascending priority with filters",
			filter:   TicketFilter{Status: &status, Priority: &priority, SortBy: SortByPriority, SortOrder: SortAsc, Limit: 20, Offset: 40},
			wantTail: "FROM tickets WHERE 1=1 AND priority=$1 AND status=$2 ORDER BY priority ASC, id ASC LIMIT $3 OFFSET $4",
			wantArgs: []any{priority, status, 20, 40},
		},
		{
			name:     "unknown sort field falls back",
			filter:   TicketFilter{SortBy: "email; DROP TABLE tickets", SortOrder: "sideways", Limit: -1, Offset: -5},
			wantTail: "FROM tickets WHERE 1=1 ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2",
			wantArgs: []any{50, 0},
		},
		{
			name:     "category sort",
			filter:   TicketFilter{SortBy: SortByCategory, SortOrder: SortDesc, Limit: 5},
			wantTail: "FROM tickets WHERE 1=1 ORDER BY category DESC, id DESC LIMIT $1 OFFSET $2",
			wantArgs: []any{5, 0},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			query, args := listQuery(tc.filter)
			assert.True(t, strings.HasPrefix(query, "SELECT "+ticketColumns+" "), query)
			assert.True(t, strings.HasSuffix(query, tc.wantTail), query)
			assert.Equal(t, tc.wantArgs, args)
		})
	}
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

// fakeDB records the last statement and answers with canned results.
type fakeDB struct {
	sql  string
	args []any
	row  pgx.Row
	tag  pgconn.CommandTag
	err  error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql, f.args = sql, args
	return f.tag, f.err
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.sql, f.args = sql, args
	return nil, f.err
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.sql, f.args = sql, args
	return f.row
}

func (f *fakeDB) Ping(context.Context) error { return f.err }

func TestTicketRepositoryMapsMissingRows(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{row: errRow{err: pgx.ErrNoRows}, tag: pgconn.NewCommandTag("DELETE 0")}
	repo := newTicketRepository(db)

	_, err := repo.GetByID(ctx, "t-404")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []any{"t-404"}, db.args)

	err = repo.Update(ctx, &domain.Ticket{ID: "t-404"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "t-404", db.args[len(db.args)-1])

	assert.ErrorIs(t, repo.Delete(ctx, "t-404"), ErrNotFound)

	db.tag = pgconn.NewCommandTag("DELETE 1")
	assert.NoError(t, repo.Delete(ctx, "t-1"))
}

func TestTicketRepositoryPassesThroughErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection reset")
	db := &fakeDB{row: errRow{err: boom}, err: boom}
	repo := newTicketRepository(db)

	_, err := repo.GetByID(ctx, "t-1")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = repo.List(ctx, TicketFilter{})
	assert.ErrorIs(t, err, boom)

	status := domain.TicketStatusNew
	_, err = repo.Count(ctx, TicketFilter{Status: &status})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "SELECT COUNT(*) FROM tickets WHERE 1=1 AND status=$1", db.sql)
	assert.Equal(t, []any{status}, db.args)
}

func TestTicketRepositoryPingWithoutPool(t *testing.T) {
	repo := NewTicketRepository(nil)
	require.Error(t, repo.Ping(context.Background()))
}
