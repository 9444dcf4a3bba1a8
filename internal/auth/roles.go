package auth

import "github.com/destinos/platform/internal/domain"

// Role constants, shared with domain.User.Role.
const (
	RoleUser      = domain.RoleUser
	RoleModerator = domain.RoleModerator
	RoleAdmin     = domain.RoleAdmin
)

// AllRoles returns every valid role.
func AllRoles() []string {
	return []string{RoleUser, RoleModerator, RoleAdmin}
}

// ModerationRoles returns roles that can approve destinations and remove reviews.
func ModerationRoles() []string {
	return []string{RoleModerator, RoleAdmin}
}
