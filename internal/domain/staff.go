package domain

// StaffRole enumerates internal operator roles allowed to triage tickets.
type StaffRole string

const (
	StaffRoleAgent    StaffRole = "AGENT"
	StaffRoleTeamLead StaffRole = "TEAM_LEAD"
	StaffRoleAdmin    StaffRole = "ADMIN"
)

// Valid reports whether r is a known role.
func (r StaffRole) Valid() bool {
	switch r {
	case StaffRoleAgent, StaffRoleTeamLead, StaffRoleAdmin:
		return true
	}
	return false
}

// Staff identifies the operator behind an authenticated request.
type Staff struct {
	ID   string
	Name string
	Role StaffRole
}
