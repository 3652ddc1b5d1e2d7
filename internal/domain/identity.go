package domain

// Identity is the authenticated caller resolved for a single request.
type Identity struct {
	AccountID   string
	PrincipalID string
	Username    string
	Email       string
	Role        Role
}

// HasRole reports whether the identity carries one of the given roles.
func (i *Identity) HasRole(roles ...Role) bool {
	if i == nil {
		return false
	}
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}
