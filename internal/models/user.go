package models

type Role string

const (
	RoleCitizen Role = "citizen"
	RoleOfficer Role = "officer"
)

func (r Role) Valid() bool {
	return r == RoleCitizen || r == RoleOfficer
}

type User struct {
	ID                string `json:"id"`
	Identifier        string `json:"identifier"`
	Role              Role   `json:"role"`
	Name              string `json:"name"`
	BadgeNumber       string `json:"badge_number,omitempty"`
	PreferredLanguage string `json:"preferred_language,omitempty"`
}
