package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-intake/internal/domain"
)

// memoryTicketRepository keeps tickets in process memory. It backs local
// development when no Postgres DSN is configured and the HTTP tests.
type memoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]domain.Ticket
	now     func() time.Time
}

// NewMemoryTicketRepository returns an empty in-memory repository.
func NewMemoryTicketRepository() TicketRepository {
	return &memoryTicketRepository{
		tickets: make(map[string]domain.Ticket),
		now:     time.Now,
	}
}

func (r *memoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *memoryTicketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Category = ticket.Category
	stored.Priority = ticket.Priority
	stored.Summary = ticket.Summary
	stored.Status = ticket.Status
	stored.AssignedTeam = ticket.AssignedTeam
	stored.AIConfidence = ticket.AIConfidence
	stored.AIProcessingError = ticket.AIProcessingError
	stored.AIProcessedAt = ticket.AIProcessedAt
	stored.UpdatedAt = r.now().UTC()
	r.tickets[ticket.ID] = cloneTicket(stored)

	ticket.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *memoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	ticket := cloneTicket(stored)
	return &ticket, nil
}

func (r *memoryTicketRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tickets[id]; !ok {
		return ErrNotFound
	}
	delete(r.tickets, id)
	return nil
}

func (r *memoryTicketRepository) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	matches := r.matching(filter)
	r.mu.RUnlock()

	less := ticketLess(filter.SortBy)
	desc := filter.SortOrder != SortAsc
	sort.SliceStable(matches, func(i, j int) bool {
		if desc {
			return less(matches[j], matches[i])
		}
		return less(matches[i], matches[j])
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matches) {
		return []domain.Ticket{}, nil
	}
	end := offset + limit
	if end > len(matches) {
		end = len(matches)
	}
	return matches[offset:end], nil
}

func (r *memoryTicketRepository) Count(_ context.Context, filter TicketFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matching(filter)), nil
}

func (r *memoryTicketRepository) Ping(context.Context) error {
	return nil
}

// matching must be called with the lock held.
func (r *memoryTicketRepository) matching(filter TicketFilter) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(r.tickets))
	for _, t := range r.tickets {
		if filter.Category != nil && t.Category != *filter.Category {
			continue
		}
		if filter.Priority != nil && t.Priority != *filter.Priority {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.CreatedBefore != nil && !t.CreatedAt.Before(*filter.CreatedBefore) {
			continue
		}
		out = append(out, cloneTicket(t))
	}
	return out
}

// ticketLess orders by the sort field, then by id, mirroring the SQL ORDER BY.
func ticketLess(field SortField) func(a, b domain.Ticket) bool {
	return func(a, b domain.Ticket) bool {
		switch field {
		case SortByPriority:
			if a.Priority != b.Priority {
				return a.Priority < b.Priority
			}
		case SortByCategory:
			if a.Category != b.Category {
				return a.Category < b.Category
			}
		case SortByStatus:
			if a.Status != b.Status {
				return a.Status < b.Status
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	}
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	if t.Summary != nil {
		v := *t.Summary
		t.Summary = &v
	}
	if t.AssignedTeam != nil {
		v := *t.AssignedTeam
		t.AssignedTeam = &v
	}
	if t.AIConfidence != nil {
		v := *t.AIConfidence
		t.AIConfidence = &v
	}
	if t.AIProcessingError != nil {
		v := *t.AIProcessingError
		t.AIProcessingError = &v
	}
	if t.AIProcessedAt != nil {
		v := *t.AIProcessedAt
		t.AIProcessedAt = &v
	}
	return t
}
