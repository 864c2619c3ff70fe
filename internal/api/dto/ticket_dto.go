package dto

import (
	"strings"
	"time"

	"github.com/spec-kit/ticket-intake/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	CustomerName string `json:"customerName" validate:"required,max=100"`
	Email        string `json:"email" validate:"required,email,max=255"`
	Subject      string `json:"subject" validate:"required,max=200"`
	Description  string `json:"description" validate:"required,min=10,max=5000"`
}

// Normalize trims every field and lower-cases the email.
func (r *CreateTicketRequest) Normalize() {
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Subject = strings.TrimSpace(r.Subject)
	r.Description = strings.TrimSpace(r.Description)
}

// UpdateTicketRequest payload. Absent fields are left unchanged.
type UpdateTicketRequest struct {
	Status       *string `json:"status" validate:"omitempty,ticket_status"`
	AssignedTeam *string `json:"assignedTeam" validate:"omitempty,max=100"`
	Category     *string `json:"category" validate:"omitempty,ticket_category"`
	Priority     *string `json:"priority" validate:"omitempty,ticket_priority"`
}

// Normalize trims the assigned team and drops empty values.
func (r *UpdateTicketRequest) Normalize() {
	r.Status = trimOptional(r.Status)
	r.AssignedTeam = trimOptional(r.AssignedTeam)
	r.Category = trimOptional(r.Category)
	r.Priority = trimOptional(r.Priority)
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// TicketListQuery captures the raw list query string.
type TicketListQuery struct {
	Category  string `query:"category" validate:"omitempty,ticket_category"`
	Priority  string `query:"priority" validate:"omitempty,ticket_priority"`
	Status    string `query:"status" validate:"omitempty,ticket_status"`
	SortBy    string `query:"sortBy" validate:"omitempty,oneof=createdAt priority category status"`
	SortOrder string `query:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page      string `query:"page" validate:"omitempty,positive_int"`
	Limit     string `query:"limit" validate:"omitempty,positive_int"`
}

// TicketResponse is the wire form of a ticket.
type TicketResponse struct {
	ID                string                `json:"id"`
	CustomerName      string                `json:"customerName"`
	Email             string                `json:"email"`
	Subject           string                `json:"subject"`
	Description       string                `json:"description"`
	Category          domain.TicketCategory `json:"category"`
	Priority          domain.TicketPriority `json:"priority"`
	Summary           *string               `json:"summary"`
	Status            domain.TicketStatus   `json:"status"`
	AssignedTeam      *string               `json:"assignedTeam"`
	AIConfidence      *float64              `json:"aiConfidence"`
	AIProcessingError *string               `json:"aiProcessingError"`
	AIProcessedAt     *time.Time            `json:"aiProcessedAt"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                t.ID,
		CustomerName:      t.CustomerName,
		Email:             t.Email,
		Subject:           t.Subject,
		Description:       t.Description,
		Category:          t.Category,
		Priority:          t.Priority,
		Summary:           t.Summary,
		Status:            t.Status,
		AssignedTeam:      t.AssignedTeam,
		AIConfidence:      t.AIConfidence,
		AIProcessingError: t.AIProcessingError,
		AIProcessedAt:     t.AIProcessedAt,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

// PaginationResponse mirrors the paging block of a list response.
type PaginationResponse struct {
	CurrentPage     int  `json:"currentPage"`
	TotalPages      int  `json:"totalPages"`
	TotalItems      int  `json:"totalItems"`
	ItemsPerPage    int  `json:"itemsPerPage"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// TicketListResponse is the data block of GET /api/tickets.
type TicketListResponse struct {
	Tickets    []TicketResponse   `json:"tickets"`
	Pagination PaginationResponse `json:"pagination"`
}

// DeletedTicketResponse is the data block of DELETE /api/tickets/:id.
type DeletedTicketResponse struct {
	ID string `json:"id"`
}

// Envelope wraps every successful response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorBody is the error block of a failed response.
type ErrorBody struct {
	Message string         `json:"message"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorEnvelope wraps every failed response.
type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}
