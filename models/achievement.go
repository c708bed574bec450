package models

import (
	"time"
)

// AchievementDefinition: static config, loaded at startup (see services.CatalogProvider).
// Not a database table; only per-user progress rows are persisted.
type AchievementDefinition struct {
	ID          string // slug of Title
	Title       string
	Description string
	Points      int64    // bonus awarded on completion
	Target      int64    // progress threshold
	Rarity      string   // common, rare, epic, legendary
	Roles       []string // applicable roles; empty = every role
	TaskTypes   []string // task types that advance this achievement
}

// UserAchievementProgress: one row per (user, achievement), seeded with zero
// progress when the profile is initialized. Completed is terminal: progress,
// completed and completed_at never change once completed is true, and
// claimed == completed at all times (both flip in a single conditional write).
type UserAchievementProgress struct {
	ID             string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string     `gorm:"index:idx_user_achievement,unique,priority:1;not null" json:"external_user_id"`
	AchievementID  string     `gorm:"index:idx_user_achievement,unique,priority:2;not null" json:"achievement_id"`
	Progress       int64      `json:"progress" gorm:"default:0"`
	Completed      bool       `json:"completed" gorm:"default:false"`
	Claimed        bool       `json:"claimed" gorm:"default:false"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`

	Timestamps
}
