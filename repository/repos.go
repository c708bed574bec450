package repository

import (
	"context"
	"errors"
	"time"

	"school-progression-service/models"
)

// ErrNotFound is returned by every implementation when a row does not exist,
// so services never depend on the storage driver's sentinel.
var ErrNotFound = errors.New("record not found")

// UserRepo reads the local portal-user mirror maintained by the roster worker.
type UserRepo interface {
	Get(ctx context.Context, externalUserID string) (*models.PortalUser, error)
	Exists(ctx context.Context, externalUserID string) (bool, error)
	Upsert(ctx context.Context, users []models.PortalUser) error
}

// ProfileRepo owns the per-user progression profile. AddPoints must be a
// single atomic add; concurrent callers never lose an increment.
type ProfileRepo interface {
	Get(ctx context.Context, externalUserID string) (*models.UserProgress, error)
	// Create is idempotent: a concurrent duplicate insert is not an error.
	Create(ctx context.Context, profile *models.UserProgress) error
	AddPoints(ctx context.Context, externalUserID string, points int64, at time.Time) error
	// CountWithMorePoints counts users with strictly greater totals, optionally
	// scoped to one school. Rank = count + 1.
	CountWithMorePoints(ctx context.Context, points int64, schoolID string) (int64, error)
}

// AchievementProgressRepo owns (user, achievement) progress rows.
type AchievementProgressRepo interface {
	ListByUser(ctx context.Context, externalUserID string) ([]models.UserAchievementProgress, error)
	// Seed inserts zero-progress rows, ignoring rows that already exist.
	Seed(ctx context.Context, rows []models.UserAchievementProgress) error
	// Increment adds 1 to progress, clamped at target, skipping completed rows.
	Increment(ctx context.Context, externalUserID, achievementID string, target int64) error
	// Complete performs the single conditional transition: set completed=true,
	// claimed=true, completed_at=at, only if the row was not yet completed and
	// progress has reached target. Returns true for the one caller that wins.
	Complete(ctx context.Context, externalUserID, achievementID string, target int64, at time.Time) (bool, error)
}

// ChallengeProgressRepo owns time-boxed (user, challenge) rows. All rows are
// kept as history; the latest row per challenge is the current period.
type ChallengeProgressRepo interface {
	ListByUser(ctx context.Context, externalUserID string) ([]models.UserChallengeProgress, error)
	// Latest returns the most recently issued row for (user, challenge).
	Latest(ctx context.Context, externalUserID, challengeID string) (*models.UserChallengeProgress, error)
	// Create is idempotent per (user, challenge, period key): a concurrent
	// duplicate issuance for the same period is not an error and inserts nothing.
	Create(ctx context.Context, row *models.UserChallengeProgress) error
	// Increment adds 1 to progress, clamped at target, only while the row's
	// deadline is still in the future and it is not completed.
	Increment(ctx context.Context, rowID string, target int64, now time.Time) error
	// Complete is the same conditional transition as for achievements, guarded
	// additionally on the deadline.
	Complete(ctx context.Context, rowID string, target int64, at time.Time) (bool, error)
	// ExpiredNeedingReissue lists rows that expired incomplete and have no
	// newer row for the same (user, challenge). Used by the sweep.
	ExpiredNeedingReissue(ctx context.Context, now time.Time) ([]models.UserChallengeProgress, error)
}

// LedgerRepo couples the activity log append with the matching points update
// so the total and the log can never diverge on a partial failure.
type LedgerRepo interface {
	// Record appends the entry and folds entry.Points into the user's total in
	// one transaction. Nothing is written when the profile row is missing.
	Record(ctx context.Context, entry *models.ActivityLog) error
}

// ActivityLogRepo is append-only. Nothing here updates or deletes.
type ActivityLogRepo interface {
	Append(ctx context.Context, entry *models.ActivityLog) error
	Recent(ctx context.Context, externalUserID string, limit int) ([]models.ActivityLog, error)
	ListByTypeSince(ctx context.Context, externalUserID, entryType string, since time.Time) ([]models.ActivityLog, error)
	SumPointsSince(ctx context.Context, externalUserID string, since time.Time) (int64, error)
	SumPoints(ctx context.Context, externalUserID string) (int64, error)
}

// BadgeRepo stores badge types and awarded badges. Earning logic is external.
type BadgeRepo interface {
	ListByUser(ctx context.Context, externalUserID string) ([]models.BadgeView, error)
	CreateType(ctx context.Context, badgeType *models.BadgeType) error
	GetTypeByCode(ctx context.Context, code string) (*models.BadgeType, error)
	Award(ctx context.Context, badge *models.UserBadge) error
}
