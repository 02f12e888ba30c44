package domain

import "fmt"

// Role distinguishes citizen accounts from operator accounts. A single
// enumeration is shared by accounts and OTP rows so the two can never
// disagree on the value set.
type Role string

const (
	RoleCitizen  Role = "CITIZEN"
	RoleOperator Role = "OPERATOR"
)

// ParseRole converts a wire string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCitizen, RoleOperator:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q: %w", s, ErrBadRequest)
	}
}
