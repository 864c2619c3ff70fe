package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "New"
	TicketStatusProcessing TicketStatus = "Processing"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
)

// TicketPriority enumerates triage urgency.
type TicketPriority string

const (
	TicketPriorityCritical TicketPriority = "Critical"
	TicketPriorityHigh     TicketPriority = "High"
	TicketPriorityMedium   TicketPriority = "Medium"
	TicketPriorityLow      TicketPriority = "Low"
)

// TicketCategory enumerates the triage buckets a ticket can be classified into.
type TicketCategory string

const (
	TicketCategoryBilling          TicketCategory = "Billing"
	TicketCategoryTechnicalSupport TicketCategory = "Technical Support"
	TicketCategorySales            TicketCategory = "Sales"
	TicketCategoryGeneralInquiry   TicketCategory = "General Inquiry"
	TicketCategoryBugReport        TicketCategory = "Bug Report"
	TicketCategoryFeatureRequest   TicketCategory = "Feature Request"
)

const (
	DefaultCategory = TicketCategoryGeneralInquiry
	DefaultPriority = TicketPriorityMedium
)

// Field limits shared by validation and sanitizing.
const (
	MaxCustomerNameLength = 100
	MaxEmailLength        = 255
	MaxSubjectLength      = 200
	MinDescriptionLength  = 10
	MaxDescriptionLength  = 5000
	MaxSummaryLength      = 500
	MaxAssignedTeamLength = 100
)

var (
	Categories = []TicketCategory{
		TicketCategoryBilling,
		TicketCategoryTechnicalSupport,
		TicketCategorySales,
		TicketCategoryGeneralInquiry,
		TicketCategoryBugReport,
		TicketCategoryFeatureRequest,
	}
	Priorities = []TicketPriority{
		TicketPriorityCritical,
		TicketPriorityHigh,
		TicketPriorityMedium,
		TicketPriorityLow,
	}
	Statuses = []TicketStatus{
		TicketStatusNew,
		TicketStatusProcessing,
		TicketStatusInProgress,
		TicketStatusResolved,
		TicketStatusClosed,
	}
)

var categoryTeams = map[TicketCategory]string{
	TicketCategoryBilling:          "Billing",
	TicketCategoryTechnicalSupport: "Technical Support",
	TicketCategorySales:            "Sales",
	TicketCategoryGeneralInquiry:   "General Support",
	TicketCategoryBugReport:        "Technical Support",
	TicketCategoryFeatureRequest:   "Product",
}

// Ticket is the aggregate for customer support requests.
type Ticket struct {
	ID                string
	CustomerName      string
	Email             string
	Subject           string
	Description       string
	Category          TicketCategory
	Priority          TicketPriority
	Summary           *string
	Status            TicketStatus
	AssignedTeam      *string
	AIConfidence      *float64
	AIProcessingError *string
	AIProcessedAt     *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TeamForCategory returns the team responsible for a category.
func TeamForCategory(category TicketCategory) string {
	if team, ok := categoryTeams[category]; ok {
		return team
	}
	return categoryTeams[DefaultCategory]
}

// Valid reports whether c is one of the known categories.
func (c TicketCategory) Valid() bool {
	_, ok := categoryTeams[c]
	return ok
}

// Valid reports whether p is one of the known priorities.
func (p TicketPriority) Valid() bool {
	for _, candidate := range Priorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s TicketStatus) Valid() bool {
	for _, candidate := range Statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CategoryNames returns the category values as strings, in declaration order.
func CategoryNames() []string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return names
}

// PriorityNames returns the priority values as strings, in declaration order.
func PriorityNames() []string {
	names := make([]string, len(Priorities))
	for i, p := range Priorities {
		names[i] = string(p)
	}
	return names
}

// StatusNames returns the status values as strings, in declaration order.
func StatusNames() []string {
	names := make([]string, len(Statuses))
	for i, s := range Statuses {
		names[i] = string(s)
	}
	return names
}
