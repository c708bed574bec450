package models

import (
	"time"
)

// Activity log entry types written by the engine itself. Task entries use the
// task type verbatim (document_downloaded, daily_login, ...).
const (
	ActivityAchievementCompleted = "achievement_completed"
	ActivityChallengeCompleted   = "challenge_completed"
)

// ActivityLog is the append-only record of point-earning events. Rows are
// immutable once written; the sum of Points per user always reconciles with
// UserProgress.TotalPoints, and streak/weekly aggregates are derived from
// these rows alone.
type ActivityLog struct {
	ID             string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string    `gorm:"index:idx_activity_user_date,priority:1;not null" json:"external_user_id"`
	Type           string    `gorm:"index;not null" json:"type"`
	Description    string    `json:"description"`
	Points         int64     `json:"points"`
	Metadata       string    `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time `gorm:"index:idx_activity_user_date,priority:2;autoCreateTime" json:"created_at"`
}
