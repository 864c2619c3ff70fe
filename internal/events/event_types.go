package events

import (
	"time"

	"github.com/spec-kit/ticket-intake/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated    EventType = "ticket.created"
	EventTicketClassified EventType = "ticket.classified"
	EventTicketUpdated    EventType = "ticket.updated"
	EventTicketDeleted    EventType = "ticket.deleted"
)

// AllEventTypes lists every type, for subscribers that want everything.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketClassified,
	EventTicketUpdated,
	EventTicketDeleted,
}

// ActorType identifies who caused an event.
type ActorType string

const (
	ActorCustomer ActorType = "customer"
	ActorStaff    ActorType = "staff"
	ActorSystem   ActorType = "system"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    ActorType `json:"type"`
	StaffID *string   `json:"staffId,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticketId"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Email   string              `json:"email"`
	Subject string              `json:"subject"`
	Status  domain.TicketStatus `json:"status"`
}

// TicketClassifiedPayload records the outcome of a classification attempt.
type TicketClassifiedPayload struct {
	Category     domain.TicketCategory `json:"category"`
	Priority     domain.TicketPriority `json:"priority"`
	AssignedTeam *string               `json:"assignedTeam,omitempty"`
	Confidence   *float64              `json:"aiConfidence,omitempty"`
	Error        *string               `json:"aiProcessingError,omitempty"`
	Model        string                `json:"model"`
}

// FieldChange holds the before and after value of one updated field.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// TicketUpdatedPayload lists the fields an update actually changed.
type TicketUpdatedPayload struct {
	Changes map[string]FieldChange `json:"changes"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	Subject string `json:"subject"`
}
