package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-intake/internal/api/dto"
	"github.com/spec-kit/ticket-intake/internal/auth"
	"github.com/spec-kit/ticket-intake/internal/domain"
	"github.com/spec-kit/ticket-intake/internal/events"
	"github.com/spec-kit/ticket-intake/internal/repository"
	"github.com/spec-kit/ticket-intake/internal/service"
	apperrors "github.com/spec-kit/ticket-intake/pkg/util"
)

// TicketsHandler serves the /api/tickets endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("Invalid request body", nil)
	}
	req.Normalize()
	if err := dto.Validate(&req); err != nil {
		return err
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), service.TicketCreateInput{
		CustomerName: req.CustomerName,
		Email:        req.Email,
		Subject:      req.Subject,
		Description:  req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.Envelope{
		Success: true,
		Data:    dto.NewTicketResponse(ticket),
		Message: "Ticket created successfully",
	})
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	var q dto.TicketListQuery
	if err := c.QueryParser(&q); err != nil {
		return apperrors.NewValidationError("Invalid query string", nil)
	}
	if err := dto.Validate(&q); err != nil {
		return err
	}

	filter, opts := listParams(q)
	page, err := h.service.ListTickets(c.UserContext(), filter, opts)
	if err != nil {
		return err
	}

	items := make([]dto.TicketResponse, 0, len(page.Tickets))
	for i := range page.Tickets {
		items = append(items, dto.NewTicketResponse(&page.Tickets[i]))
	}
	return c.JSON(dto.Envelope{
		Success: true,
		Data: dto.TicketListResponse{
			Tickets:    items,
			Pagination: dto.PaginationResponse(page.Pagination),
		},
	})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.Envelope{Success: true, Data: dto.NewTicketResponse(ticket)})
}

// UpdateTicket PUT /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := service.ValidateTicketID(id); err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("Invalid request body", nil)
	}
	req.Normalize()
	if err := dto.Validate(&req); err != nil {
		return err
	}

	input := service.TicketUpdateInput{AssignedTeam: req.AssignedTeam}
	if req.Status != nil {
		status := domain.TicketStatus(*req.Status)
		input.Status = &status
	}
	if req.Category != nil {
		category := domain.TicketCategory(*req.Category)
		input.Category = &category
	}
	if req.Priority != nil {
		priority := domain.TicketPriority(*req.Priority)
		input.Priority = &priority
	}

	ticket, err := h.service.UpdateTicket(c.UserContext(), id, input, actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.Envelope{
		Success: true,
		Data:    dto.NewTicketResponse(ticket),
		Message: "Ticket updated successfully",
	})
}

// DeleteTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeleteTicket(c.UserContext(), id, actorFrom(c)); err != nil {
		return err
	}
	return c.JSON(dto.Envelope{
		Success: true,
		Data:    dto.DeletedTicketResponse{ID: id},
		Message: "Ticket deleted successfully",
	})
}

func actorFrom(c *fiber.Ctx) events.Actor {
	actor := events.Actor{Type: events.ActorStaff}
	if staff, ok := auth.StaffFromContext(c); ok {
		id := staff.ID
		actor.StaffID = &id
	}
	return actor
}

// listParams converts a validated query into service arguments.
func listParams(q dto.TicketListQuery) (service.TicketListFilter, service.ListOptions) {
	var filter service.TicketListFilter
	if q.Category != "" {
		category := domain.TicketCategory(q.Category)
		filter.Category = &category
	}
	if q.Priority != "" {
		priority := domain.TicketPriority(q.Priority)
		filter.Priority = &priority
	}
	if q.Status != "" {
		status := domain.TicketStatus(q.Status)
		filter.Status = &status
	}
	return filter, service.ListOptions{
		Page:      parseInt(q.Page, 1),
		Limit:     parseInt(q.Limit, service.DefaultPageSize),
		SortBy:    repository.SortField(q.SortBy),
		SortOrder: repository.SortOrder(q.SortOrder),
	}
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
