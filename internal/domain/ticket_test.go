package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTeamForCategory(t *testing.T) {
	cases := map[TicketCategory]string{
		TicketCategoryBilling:          "Billing",
		TicketCategoryTechnicalSupport: "Technical Support",
		TicketCategorySales:            "Sales",
		TicketCategoryGeneralInquiry:   "General Support",
		TicketCategoryBugReport:        "Technical Support",
		TicketCategoryFeatureRequest:   "Product",
	}
	for category, team := range cases {
		assert.Equal(t, team, TeamForCategory(category), string(category))
	}
	assert.Equal(t, "General Support", TeamForCategory("Nonsense"))
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, TicketCategoryBugReport.Valid())
	assert.False(t, TicketCategory("bug report").Valid())

	assert.True(t, TicketPriorityCritical.Valid())
	assert.False(t, TicketPriority("Urgent").Valid())

	assert.True(t, TicketStatusInProgress.Valid())
	assert.False(t, TicketStatus("IN_PROGRESS").Valid())

	assert.Len(t, CategoryNames(), 6)
	assert.Equal(t, []string{"Critical", "High", "Medium", "Low"}, PriorityNames())
	assert.Contains(t, StatusNames(), "Processing")
}
