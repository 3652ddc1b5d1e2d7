package domain

import "time"

// Role enumerates authorization roles carried by a principal.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleStaff  Role = "STAFF"
	RoleMember Role = "MEMBER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleMember:
		return true
	}
	return false
}

// Principal is the role-bearing authorization subject an account is linked to.
type Principal struct {
	ID          string
	Role        Role
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
