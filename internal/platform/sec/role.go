// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
//
// Values are the backend's wire strings.
type UserRole string

const (
	// Store owner: full catalogue, users, audit and dashboard access
	RoleOwner UserRole = "Dueño"

	// Store employee: day-to-day purchases and sales
	RoleEmployee UserRole = "Empleado"
)

// Valid reports whether r is one of the two known roles.
func (r UserRole) Valid() bool {
	return r == RoleOwner || r == RoleEmployee
}

// In reports whether r is a member of roles.
func (r UserRole) In(roles ...UserRole) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}

// Label returns the English name used in console output.
func (r UserRole) Label() string {
	switch r {
	case RoleOwner:
		return "Owner"
	case RoleEmployee:
		return "Employee"
	default:
		return string(r)
	}
}
