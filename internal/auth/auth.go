// Package auth holds the caller identity passed into every engine operation
// and the single guard that checks it.
package auth

import (
	"github.com/nazm-contest-api/internal/apperror"
)

// Role is the role resolved by the identity provider
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ValidRoles defines allowed roles
var ValidRoles = map[Role]bool{
	RoleUser:  true,
	RoleAdmin: true,
}

// Principal is the resolved caller of an operation
type Principal struct {
	UserID string `json:"id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
}

// IsAdmin reports whether the principal holds the administrator role
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Authenticated reports whether the principal was resolved from a credential
func (p Principal) Authenticated() bool {
	return p.UserID != "" && ValidRoles[p.Role]
}

// Authorize checks that p may perform an operation requiring role.
// RoleUser admits any authenticated principal; RoleAdmin admits administrators only.
func Authorize(p Principal, required Role) error {
	if !p.Authenticated() {
		return apperror.PermissionDenied("authentication required")
	}
	if required == RoleAdmin && !p.IsAdmin() {
		return apperror.PermissionDenied("admin access required")
	}
	return nil
}
