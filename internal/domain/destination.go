package domain

import (
	"time"

	"github.com/google/uuid"
)

// DestinationStatus is the moderation state of a destination.
type DestinationStatus string

const (
	StatusPending  DestinationStatus = "pending"
	StatusActive   DestinationStatus = "active"
	StatusRejected DestinationStatus = "rejected"
)

// Destination represents a destinations row.
type Destination struct {
	ID          uuid.UUID         `json:"id"`
	Slug        string            `json:"slug"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Province    string            `json:"province"`
	Images      []string          `json:"images"`
	Status      DestinationStatus `json:"status"`
	CreatedBy   *uuid.UUID        `json:"created_by,omitempty"`
	IsPublic    bool              `json:"is_public"`
	Categories  []string          `json:"categories"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// DestinationDetail is a destination with its author and reviews.
type DestinationDetail struct {
	Destination
	Author  *string  `json:"author,omitempty"`
	Reviews []Review `json:"reviews"`
}

// DestinationInput holds the editable fields of a destination.
type DestinationInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Province    string   `json:"province"`
	Images      []string `json:"images"`
	IsPublic    *bool    `json:"is_public"`
	CategoryIDs []int    `json:"category_ids"`
}

// Category represents a categories row.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Review target types.
const TargetDestination = "destination"

// Review represents a reviews row.
type Review struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Username   string    `json:"username,omitempty"`
	TargetID   uuid.UUID `json:"target_id"`
	TargetType string    `json:"target_type"`
	TargetName *string   `json:"target_name,omitempty"`
	Comment    string    `json:"comment"`
	Stars      int       `json:"stars"`
	CreatedAt  time.Time `json:"created_at"`
}
