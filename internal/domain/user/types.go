package user

import "errors"

var ErrInvalidRole = errors.New("invalid role")

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleStaff      Role = "staff"
	RoleCustomer   Role = "customer"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleStaff, RoleCustomer:
		return true
	default:
		return false
	}
}

// IsPrivileged reports whether the role overrides booking ownership and status locks.
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleSupervisor
}

func NewRole(s string) (Role, error) {
	role := Role(s)
	if !role.IsValid() {
		return "", ErrInvalidRole
	}
	return role, nil
}
