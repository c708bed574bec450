package models

import (
	"time"
)

type ChallengeType string

const (
	ChallengeDaily   ChallengeType = "daily"
	ChallengeWeekly  ChallengeType = "weekly"
	ChallengeMonthly ChallengeType = "monthly"
)

// ChallengeDefinition: static config, same shape as achievements but time-boxed.
type ChallengeDefinition struct {
	ID          string
	Title       string
	Description string
	Type        ChallengeType
	Points      int64
	Target      int64
	Roles       []string
	TaskTypes   []string
}

// UserChallengeProgress: at most one *active* row per (user, challenge) at a
// time, bounded by Deadline. Expired incomplete rows are kept as history and a
// fresh row for the next period is issued lazily on the next access.
// PeriodKey is the issuance instant truncated to the challenge duration, so
// concurrent issuers compute the same key and the unique index makes the
// loser's insert a no-op.
type UserChallengeProgress struct {
	ID             string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string     `gorm:"index;index:idx_user_challenge_period,unique,priority:1;not null" json:"external_user_id"`
	ChallengeID    string     `gorm:"index;index:idx_user_challenge_period,unique,priority:2;not null" json:"challenge_id"`
	PeriodKey      int64      `gorm:"index:idx_user_challenge_period,unique,priority:3;not null" json:"-"`
	Progress       int64      `json:"progress" gorm:"default:0"`
	Completed      bool       `json:"completed" gorm:"default:false"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Deadline       time.Time  `gorm:"index;not null" json:"deadline"`

	Timestamps
}

// Active reports whether the row can still accept progress.
func (p *UserChallengeProgress) Active(now time.Time) bool {
	return !p.Completed && p.Deadline.After(now)
}
