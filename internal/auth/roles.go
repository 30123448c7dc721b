// SPDX-License-Identifier: MIT

// Package auth provides JWT-based authentication and role checks.
package auth

// Role is a user capability level. Roles form a total order
// Viewer < Operator < Admin.
type Role string

const (
	RoleViewer   Role = "Viewer"
	RoleOperator Role = "Operator"
	RoleAdmin    Role = "Admin"
)

var roleRank = map[Role]int{
	RoleViewer:   0,
	RoleOperator: 1,
	RoleAdmin:    2,
}

// Valid reports whether r is one of the known role literals.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants at least the capabilities of min.
// Unknown roles never satisfy any requirement.
func (r Role) AtLeast(min Role) bool {
	rr, ok := roleRank[r]
	if !ok {
		return false
	}
	return rr >= roleRank[min]
}

// IsAdmin is a convenience shorthand for AtLeast(RoleAdmin).
func (r Role) IsAdmin() bool { return r == RoleAdmin }
