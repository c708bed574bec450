package models

import (
	"time"

	"gorm.io/gorm"
)

// PortalUser is a local snapshot of user data from the portal's profile service.
// Owned and managed solely by the progression service; populated by the roster
// sync worker. Task events for users with no snapshot row are rejected.
type PortalUser struct {
	ID             string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string     `gorm:"uniqueIndex;not null" json:"external_user_id"` // the profile service's UUID
	Username       string     `gorm:"index;not null" json:"username"`
	Email          string     `json:"email,omitempty"`
	Role           string     `gorm:"index" json:"role"`
	SchoolID       string     `gorm:"index" json:"school_id,omitempty"`
	FirstName      *string    `json:"first_name,omitempty"`
	LastName       *string    `json:"last_name,omitempty"`
	LastSeen       *time.Time `json:"last_seen,omitempty"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// RemoteUser mirrors the schema of the profile service's public user payload
// (read-only). Used by the roster sync worker.
type RemoteUser struct {
	ExternalID string     `json:"external_id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	SchoolID   string     `json:"school_id"`
	FirstName  *string    `json:"first_name"`
	LastName   *string    `json:"last_name"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at"`
}
