package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-intake/internal/classifier"
	"github.com/spec-kit/ticket-intake/internal/domain"
	"github.com/spec-kit/ticket-intake/internal/events"
	"github.com/spec-kit/ticket-intake/internal/observability"
	"github.com/spec-kit/ticket-intake/internal/repository"
	apperrors "github.com/spec-kit/ticket-intake/pkg/util"
)

// Paging bounds for ListTickets.
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// defaultConfidence stands in when the classifier answers without one.
const defaultConfidence = 0.5

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	classifier classifier.Classifier
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Classifier classifier.Classifier
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	CustomerName string
	Email        string
	Subject      string
	Description  string
}

// TicketListFilter holds optional exact-match filters.
type TicketListFilter struct {
	Category *domain.TicketCategory
	Priority *domain.TicketPriority
	Status   *domain.TicketStatus
}

// ListOptions controls paging and ordering. Zero values select defaults.
type ListOptions struct {
	Page      int
	Limit     int
	SortBy    repository.SortField
	SortOrder repository.SortOrder
}

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	CurrentPage     int  `json:"currentPage"`
	TotalPages      int  `json:"totalPages"`
	TotalItems      int  `json:"totalItems"`
	ItemsPerPage    int  `json:"itemsPerPage"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// TicketPage is one page of tickets.
type TicketPage struct {
	Tickets    []domain.Ticket
	Pagination Pagination
}

// TicketUpdateInput lists the mutable fields. Nil means unchanged.
type TicketUpdateInput struct {
	Status       *domain.TicketStatus
	AssignedTeam *string
	Category     *domain.TicketCategory
	Priority     *domain.TicketPriority
}

// Empty reports whether no field was supplied.
func (in TicketUpdateInput) Empty() bool {
	return in.Status == nil && in.AssignedTeam == nil && in.Category == nil && in.Priority == nil
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clf := deps.Classifier
	if clf == nil {
		clf = classifier.NewDisabled("no classifier configured")
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		classifier: clf,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateTicket persists a submitted ticket, classifies it and stores the
// classification. Only the first write can fail the call: classifier
// problems become ticket metadata and a failed second write leaves the ticket
// in Processing for the re-classification sweep.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	ticket := &domain.Ticket{
		CustomerName: strings.TrimSpace(input.CustomerName),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		Subject:      strings.TrimSpace(input.Subject),
		Description:  strings.TrimSpace(input.Description),
		Category:     domain.DefaultCategory,
		Priority:     domain.DefaultPriority,
		Status:       domain.TicketStatusProcessing,
	}
	if err := validateNewTicket(ticket); err != nil {
		return nil, err
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	s.logger.Info("ticket created", zap.String("ticket_id", ticket.ID))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{Type: events.ActorCustomer},
		Payload: events.TicketCreatedPayload{
			Email:   ticket.Email,
			Subject: ticket.Subject,
			Status:  ticket.Status,
		},
	})

	// The ticket is durable from here on; the client going away must not
	// abandon classification half way.
	return s.classifyAndStore(context.WithoutCancel(ctx), ticket, events.Actor{Type: events.ActorSystem})
}

// Reclassify re-runs classification for a ticket still in Processing.
// Tickets in any other status are returned unchanged.
func (s *TicketService) Reclassify(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusProcessing {
		return ticket, nil
	}
	return s.classifyAndStore(ctx, ticket, events.Actor{Type: events.ActorSystem})
}

// ListStaleProcessing returns tickets that have sat in Processing for longer than minAge.
func (s *TicketService) ListStaleProcessing(ctx context.Context, minAge time.Duration, limit int) ([]domain.Ticket, error) {
	status := domain.TicketStatusProcessing
	cutoff := s.now().Add(-minAge)
	return s.tickets.List(ctx, repository.TicketFilter{
		Status:        &status,
		CreatedBefore: &cutoff,
		SortBy:        repository.SortByCreatedAt,
		SortOrder:     repository.SortAsc,
		Limit:         limit,
	})
}

func (s *TicketService) classifyAndStore(ctx context.Context, ticket *domain.Ticket, actor events.Actor) (*domain.Ticket, error) {
	persisted := *ticket
	s.applyClassification(ctx, ticket)

	if err := s.tickets.Update(ctx, ticket); err != nil {
		s.logger.Error("failed to store classification; ticket left in Processing",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		return &persisted, nil
	}
	s.logger.Info("ticket classified",
		zap.String("ticket_id", ticket.ID),
		zap.String("category", string(ticket.Category)),
		zap.String("priority", string(ticket.Priority)),
		zap.Bool("ai_failed", ticket.AIProcessingError != nil))

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketClassified,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketClassifiedPayload{
			Category:     ticket.Category,
			Priority:     ticket.Priority,
			AssignedTeam: ticket.AssignedTeam,
			Confidence:   ticket.AIConfidence,
			Error:        ticket.AIProcessingError,
			Model:        s.classifier.Model(),
		},
	})
	return ticket, nil
}

// applyClassification fills the classification fields in place and moves the
// ticket to New whatever the classifier outcome.
func (s *TicketService) applyClassification(ctx context.Context, ticket *domain.Ticket) {
	result, err := s.classifier.Classify(ctx, ticket.Subject, ticket.Description)
	if err != nil {
		outcome := "error"
		msg := "AI service error: " + err.Error()
		if errors.Is(err, classifier.ErrDisabled) {
			outcome = "disabled"
			msg = err.Error()
			s.logger.Debug("classification skipped", zap.String("ticket_id", ticket.ID), zap.Error(err))
		} else {
			s.logger.Warn("classification failed; using defaults",
				zap.String("ticket_id", ticket.ID),
				zap.String("model", s.classifier.Model()),
				zap.Error(err))
		}
		s.metrics.RecordClassification(outcome)

		ticket.Category = domain.DefaultCategory
		ticket.Priority = domain.DefaultPriority
		ticket.Summary = nil
		ticket.AIConfidence = nil
		ticket.AIProcessedAt = nil
		ticket.AIProcessingError = &msg
	} else {
		s.metrics.RecordClassification("ok")
		processedAt := s.now().UTC()

		ticket.Category = sanitizeCategory(result.Category)
		ticket.Priority = sanitizePriority(result.Priority)
		ticket.Summary = sanitizeSummary(result.Summary)
		confidence := clampConfidence(result.Confidence)
		ticket.AIConfidence = &confidence
		ticket.AIProcessedAt = &processedAt
		ticket.AIProcessingError = nil
	}

	team := domain.TeamForCategory(ticket.Category)
	ticket.AssignedTeam = &team
	ticket.Status = domain.TicketStatusNew
}

// ListTickets returns one page of tickets matching filter.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter, opts ListOptions) (*TicketPage, error) {
	opts = normalizeListOptions(opts)

	repoFilter := repository.TicketFilter{
		Category:  filter.Category,
		Priority:  filter.Priority,
		Status:    filter.Status,
		SortBy:    opts.SortBy,
		SortOrder: opts.SortOrder,
		Limit:     opts.Limit,
	}

	total, err := s.tickets.Count(ctx, repoFilter)
	if err != nil {
		return nil, fmt.Errorf("count tickets: %w", err)
	}
	totalPages := int(math.Ceil(float64(total) / float64(opts.Limit)))

	// Pages past the end are empty. Skipping the query also keeps the offset
	// from overflowing for absurd page numbers.
	tickets := []domain.Ticket{}
	if opts.Page <= totalPages {
		repoFilter.Offset = (opts.Page - 1) * opts.Limit
		tickets, err = s.tickets.List(ctx, repoFilter)
		if err != nil {
			return nil, fmt.Errorf("list tickets: %w", err)
		}
		if tickets == nil {
			tickets = []domain.Ticket{}
		}
	}

	return &TicketPage{
		Tickets: tickets,
		Pagination: Pagination{
			CurrentPage:     opts.Page,
			TotalPages:      totalPages,
			TotalItems:      total,
			ItemsPerPage:    opts.Limit,
			HasNextPage:     opts.Page < totalPages,
			HasPreviousPage: opts.Page > 1,
		},
	}, nil
}

// GetTicket fetches one ticket.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	if err := ValidateTicketID(id); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, id)
	}
	return ticket, nil
}

// UpdateTicket applies the supplied mutable fields. Changing the category
// without naming a team re-derives the team from the new category.
func (s *TicketService) UpdateTicket(ctx context.Context, id string, input TicketUpdateInput, actor events.Actor) (*domain.Ticket, error) {
	if input.Empty() {
		return nil, apperrors.NewValidationError("No updatable fields provided", map[string]any{
			"fields": "status, assignedTeam, category, priority",
		})
	}
	if err := validateUpdate(input); err != nil {
		return nil, err
	}

	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]events.FieldChange{}
	if input.Status != nil && *input.Status != ticket.Status {
		changes["status"] = events.FieldChange{Old: ticket.Status, New: *input.Status}
		ticket.Status = *input.Status
	}
	if input.Priority != nil && *input.Priority != ticket.Priority {
		changes["priority"] = events.FieldChange{Old: ticket.Priority, New: *input.Priority}
		ticket.Priority = *input.Priority
	}
	if input.Category != nil && *input.Category != ticket.Category {
		changes["category"] = events.FieldChange{Old: ticket.Category, New: *input.Category}
		ticket.Category = *input.Category
		if input.AssignedTeam == nil {
			team := domain.TeamForCategory(ticket.Category)
			input.AssignedTeam = &team
		}
	}
	if input.AssignedTeam != nil {
		team := strings.TrimSpace(*input.AssignedTeam)
		if ticket.AssignedTeam == nil || *ticket.AssignedTeam != team {
			changes["assignedTeam"] = events.FieldChange{Old: ticket.AssignedTeam, New: team}
		}
		ticket.AssignedTeam = &team
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapRepoError(err, id)
	}
	s.logger.Info("ticket updated", zap.String("ticket_id", id), zap.Int("changed_fields", len(changes)))

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: id,
		Actor:    actor,
		Payload:  events.TicketUpdatedPayload{Changes: changes},
	})
	return ticket, nil
}

// DeleteTicket removes a ticket. Deleting an absent ticket is a not-found error.
func (s *TicketService) DeleteTicket(ctx context.Context, id string, actor events.Actor) error {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, id); err != nil {
		return mapRepoError(err, id)
	}
	s.logger.Info("ticket deleted", zap.String("ticket_id", id))

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: id,
		Actor:    actor,
		Payload:  events.TicketDeletedPayload{Subject: ticket.Subject},
	})
	return nil
}

// ValidateTicketID rejects identifiers that are not canonical UUIDs.
func ValidateTicketID(id string) error {
	if len(id) != 36 {
		return invalidIDError(id)
	}
	if _, err := uuid.Parse(id); err != nil {
		return invalidIDError(id)
	}
	return nil
}

func invalidIDError(id string) error {
	return apperrors.NewValidationError("Invalid ticket ID format", map[string]any{"id": id})
}

func mapRepoError(err error, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("Ticket", map[string]any{"id": id})
	}
	return err
}

func normalizeListOptions(opts ListOptions) ListOptions {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = DefaultPageSize
	}
	if opts.Limit > MaxPageSize {
		opts.Limit = MaxPageSize
	}
	if !repository.ValidSortField(opts.SortBy) {
		opts.SortBy = repository.SortByCreatedAt
	}
	if opts.SortOrder != repository.SortAsc && opts.SortOrder != repository.SortDesc {
		opts.SortOrder = repository.SortDesc
	}
	return opts
}

func sanitizeCategory(raw string) domain.TicketCategory {
	category := domain.TicketCategory(strings.TrimSpace(raw))
	if !category.Valid() {
		return domain.DefaultCategory
	}
	return category
}

func sanitizePriority(raw string) domain.TicketPriority {
	priority := domain.TicketPriority(strings.TrimSpace(raw))
	if !priority.Valid() {
		return domain.DefaultPriority
	}
	return priority
}

func sanitizeSummary(raw string) *string {
	summary := strings.TrimSpace(raw)
	if summary == "" {
		return nil
	}
	if utf8.RuneCountInString(summary) > domain.MaxSummaryLength {
		summary = strings.TrimSpace(string([]rune(summary)[:domain.MaxSummaryLength]))
	}
	return &summary
}

func clampConfidence(raw *float64) float64 {
	if raw == nil || math.IsNaN(*raw) {
		return defaultConfidence
	}
	return math.Max(0, math.Min(1, *raw))
}

func validateNewTicket(ticket *domain.Ticket) error {
	fields := map[string]string{}
	switch n := utf8.RuneCountInString(ticket.CustomerName); {
	case n == 0:
		fields["customerName"] = "Customer name is required"
	case n > domain.MaxCustomerNameLength:
		fields["customerName"] = "Customer name cannot exceed 100 characters"
	}
	switch {
	case ticket.Email == "":
		fields["email"] = "Email is required"
	case utf8.RuneCountInString(ticket.Email) > domain.MaxEmailLength:
		fields["email"] = "Email cannot exceed 255 characters"
	default:
		if addr, err := mail.ParseAddress(ticket.Email); err != nil || addr.Address != ticket.Email {
			fields["email"] = "Please provide a valid email address"
		}
	}
	switch n := utf8.RuneCountInString(ticket.Subject); {
	case n == 0:
		fields["subject"] = "Subject is required"
	case n > domain.MaxSubjectLength:
		fields["subject"] = "Subject cannot exceed 200 characters"
	}
	switch n := utf8.RuneCountInString(ticket.Description); {
	case n == 0:
		fields["description"] = "Description is required"
	case n < domain.MinDescriptionLength:
		fields["description"] = "Description must be at least 10 characters long"
	case n > domain.MaxDescriptionLength:
		fields["description"] = "Description cannot exceed 5000 characters"
	}
	if len(fields) > 0 {
		return apperrors.NewFieldErrors(fields)
	}
	return nil
}

func validateUpdate(input TicketUpdateInput) error {
	fields := map[string]string{}
	if input.Status != nil && !input.Status.Valid() {
		fields["status"] = "Invalid status. Must be one of: " + strings.Join(domain.StatusNames(), ", ")
	}
	if input.Category != nil && !input.Category.Valid() {
		fields["category"] = "Invalid category. Must be one of: " + strings.Join(domain.CategoryNames(), ", ")
	}
	if input.Priority != nil && !input.Priority.Valid() {
		fields["priority"] = "Invalid priority. Must be one of: " + strings.Join(domain.PriorityNames(), ", ")
	}
	if input.AssignedTeam != nil && utf8.RuneCountInString(strings.TrimSpace(*input.AssignedTeam)) > domain.MaxAssignedTeamLength {
		fields["assignedTeam"] = "Assigned team cannot exceed 100 characters"
	}
	if len(fields) > 0 {
		return apperrors.NewFieldErrors(fields)
	}
	return nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Debug("event publish failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err),
		)
	}
}
