package models

import (
	"time"
)

// LevelInfo is the analytic view over TotalPoints. Always computed, never stored.
type LevelInfo struct {
	Level             int     `json:"level"`
	LevelProgress     float64 `json:"level_progress"` // percent into the current level
	PointsToNextLevel int64   `json:"points_to_next_level"`
}

// TaskResult is returned from every task-completion call.
type TaskResult struct {
	PointsEarned int64 `json:"points_earned"`
	TotalPoints  int64 `json:"total_points"`
	LevelInfo
}

// AchievementStatus merges a catalog definition with the user's progress row.
// Catalog entries with no row yet show zero progress.
type AchievementStatus struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Points      int64      `json:"points"`
	Target      int64      `json:"target"`
	Rarity      string     `json:"rarity"`
	Progress    int64      `json:"progress"`
	Completed   bool       `json:"completed"`
	Claimed     bool       `json:"claimed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ChallengeStatus is the same merge for the user's current challenge period.
type ChallengeStatus struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Type        ChallengeType `json:"type"`
	Points      int64         `json:"points"`
	Target      int64         `json:"target"`
	Progress    int64         `json:"progress"`
	Completed   bool          `json:"completed"`
	Deadline    time.Time     `json:"deadline"`
}

// BadgeView is the display shape for an awarded badge.
type BadgeView struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Rarity    string    `json:"rarity"`
	IconURL   string    `json:"icon_url,omitempty"`
	AwardedAt time.Time `json:"awarded_at"`
}

// ProgressionStats is the read-only composite returned by the stats endpoint.
type ProgressionStats struct {
	UserID      string `json:"user_id"`
	TotalPoints int64  `json:"total_points"`
	LevelInfo

	Rank         int   `json:"rank"`
	Streak       int   `json:"streak"`
	WeeklyPoints int64 `json:"weekly_points"`
	MonthlyGoal  int64 `json:"monthly_goal"`

	Achievements   []AchievementStatus `json:"achievements"`
	Challenges     []ChallengeStatus   `json:"challenges"`
	Badges         []BadgeView         `json:"badges"`
	RecentActivity []ActivityLog       `json:"recent_activity"`
}
