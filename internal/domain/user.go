package domain

import (
	"time"

	"github.com/google/uuid"
)

// User roles. Moderators manage destinations and reviews; admins manage
// everything, including users and season resets.
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User represents a users row without its gamification columns.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserSummary is the listing shape used by search, rankings and admin lists.
type UserSummary struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email,omitempty"`
	Role       string    `json:"role,omitempty"`
	TotalScore int       `json:"total_score"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserProfile is a user together with their gamification account.
type UserProfile struct {
	User
	TotalScore      int     `json:"total_score"`
	SubmissionCount int     `json:"submission_count"`
	ApprovalCount   int     `json:"approval_count"`
	Medals          []Medal `json:"medals"`
}
