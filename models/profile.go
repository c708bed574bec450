package models

import (
	"time"

	"gorm.io/gorm"
)

// UserProgress tracks gamified progression for each portal user.
// Level, level progress and points-to-next-level are derived from TotalPoints
// on every read; they are intentionally NOT columns here (see LevelInfo).
type UserProgress struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to portal profile service

	Role     string `gorm:"index;not null" json:"role"`       // student, teacher, coordinator, school_admin
	SchoolID string `gorm:"index" json:"school_id,omitempty"` // cohort for rank scoping

	TotalPoints int64 `json:"total_points" gorm:"default:0"`

	// Legacy column kept for older readers; the real streak is always recomputed
	// from the activity log.
	Streak int `json:"-" gorm:"default:0"`

	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
