package models

import (
	"time"
)

// BadgeType: badge catalog entry. Badge-earning triggers live outside this
// service (admin tools, compliance workflows); the engine only stores and
// returns awarded badges.
type BadgeType struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Code        string `gorm:"uniqueIndex;not null"` // e.g., "ISO_AUDIT_PASSED"
	Name        string `gorm:"not null"`
	Description string
	IconURL     string    `gorm:"type:text"`                         // R2 URL
	Rarity      string    `gorm:"type:varchar(16);default:'common'"` // common, rare, epic, legendary
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// UserBadge: awarded instance (many-to-many)
type UserBadge struct {
	ID             string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ExternalUserID string    `gorm:"index;not null"`
	BadgeTypeID    string    `gorm:"index;not null"`
	AwardedAt      time.Time `gorm:"autoCreateTime"`
	Metadata       string    `gorm:"type:jsonb"` // e.g., {"submission_id": "..."}
}
