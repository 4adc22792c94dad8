package models

// Principal is the authenticated actor behind a request. Identity and role
// come from the external identity provider and are trusted as-is.
type Principal struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// IsCoordinator reports whether the principal carries the elevated role.
func (p Principal) IsCoordinator() bool {
	return p.Role == RoleCoordinator
}
