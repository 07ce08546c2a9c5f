package domain

import "gitlab.com/judge-relay.net/internal/static/errs"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Principal is the authenticated caller extracted from a bearer token.
type Principal struct {
	UserID  int64  `json:"user_id"`
	TeamID  *int64 `json:"team_id,omitempty"`
	EventID int64  `json:"event_id"`
	Role    Role   `json:"role"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// OwnerID resolves the scoring entity of the principal for the given kind.
func (p Principal) OwnerID(kind OwnerKind) (int64, error) {
	if kind == OwnerKindUser {
		return p.UserID, nil
	}
	if p.TeamID == nil || *p.TeamID <= 0 {
		return 0, errs.Validation("user %d is not in a team", p.UserID)
	}
	return *p.TeamID, nil
}
