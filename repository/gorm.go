package repository

import (
	"context"
	"errors"
	"time"

	"school-progression-service/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepo {
	return &userRepository{db: db}
}

func (r *userRepository) Get(ctx context.Context, externalUserID string) (*models.PortalUser, error) {
	var user models.PortalUser
	err := r.db.WithContext(ctx).Where("external_user_id = ?", externalUserID).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) Exists(ctx context.Context, externalUserID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PortalUser{}).
		Where("external_user_id = ?", externalUserID).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepository) Upsert(ctx context.Context, users []models.PortalUser) error {
	if len(users) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username", "email", "role", "school_id", "first_name", "last_name", "updated_at",
		}),
	}).Create(&users).Error
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepo {
	return &profileRepository{db: db}
}

func (r *profileRepository) Get(ctx context.Context, externalUserID string) (*models.UserProgress, error) {
	var profile models.UserProgress
	err := r.db.WithContext(ctx).Where("external_user_id = ?", externalUserID).First(&profile).Error
	if err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

func (r *profileRepository) Create(ctx context.Context, profile *models.UserProgress) error {
	// Two lazy initializations can race; the loser's insert is a no-op.
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_user_id"}},
		DoNothing: true,
	}).Create(profile).Error
}

func (r *profileRepository) AddPoints(ctx context.Context, externalUserID string, points int64, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.UserProgress{}).
		Where("external_user_id = ?", externalUserID).
		Updates(map[string]interface{}{
			"total_points":     gorm.Expr("total_points + ?", points),
			"last_activity_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *profileRepository) CountWithMorePoints(ctx context.Context, points int64, schoolID string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.UserProgress{}).
		Where("total_points > ?", points)
	if schoolID != "" {
		q = q.Where("school_id = ?", schoolID)
	}
	var count int64
	err := q.Count(&count).Error
	return count, err
}

type achievementProgressRepository struct {
	db *gorm.DB
}

func NewAchievementProgressRepository(db *gorm.DB) AchievementProgressRepo {
	return &achievementProgressRepository{db: db}
}

func (r *achievementProgressRepository) ListByUser(ctx context.Context, externalUserID string) ([]models.UserAchievementProgress, error) {
	var rows []models.UserAchievementProgress
	err := r.db.WithContext(ctx).Where("external_user_id = ?", externalUserID).Find(&rows).Error
	return rows, err
}

func (r *achievementProgressRepository) Seed(ctx context.Context, rows []models.UserAchievementProgress) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_user_id"}, {Name: "achievement_id"}},
		DoNothing: true,
	}).Create(&rows).Error
}

func (r *achievementProgressRepository) Increment(ctx context.Context, externalUserID, achievementID string, target int64) error {
	return r.db.WithContext(ctx).Model(&models.UserAchievementProgress{}).
		Where("external_user_id = ? AND achievement_id = ? AND completed = ?", externalUserID, achievementID, false).
		UpdateColumn("progress", gorm.Expr("LEAST(progress + 1, ?)", target)).Error
}

func (r *achievementProgressRepository) Complete(ctx context.Context, externalUserID, achievementID string, target int64, at time.Time) (bool, error) {
	// One conditional write decides the winner; RowsAffected == 0 means another
	// caller already flipped the row (or the threshold is not reached yet).
	res := r.db.WithContext(ctx).Model(&models.UserAchievementProgress{}).
		Where("external_user_id = ? AND achievement_id = ? AND completed = ? AND progress >= ?",
			externalUserID, achievementID, false, target).
		Updates(map[string]interface{}{
			"completed":    true,
			"claimed":      true,
			"completed_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

type challengeProgressRepository struct {
	db *gorm.DB
}

func NewChallengeProgressRepository(db *gorm.DB) ChallengeProgressRepo {
	return &challengeProgressRepository{db: db}
}

func (r *challengeProgressRepository) ListByUser(ctx context.Context, externalUserID string) ([]models.UserChallengeProgress, error) {
	var rows []models.UserChallengeProgress
	err := r.db.WithContext(ctx).Where("external_user_id = ?", externalUserID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *challengeProgressRepository) Latest(ctx context.Context, externalUserID, challengeID string) (*models.UserChallengeProgress, error) {
	var row models.UserChallengeProgress
	err := r.db.WithContext(ctx).
		Where("external_user_id = ? AND challenge_id = ?", externalUserID, challengeID).
		Order("deadline DESC").
		First(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *challengeProgressRepository) Create(ctx context.Context, row *models.UserChallengeProgress) error {
	// Concurrent issuers of the same period carry the same period key; the
	// loser's insert is a no-op and both converge on the reread.
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_user_id"}, {Name: "challenge_id"}, {Name: "period_key"}},
		DoNothing: true,
	}).Create(row).Error
}

func (r *challengeProgressRepository) Increment(ctx context.Context, rowID string, target int64, now time.Time) error {
	return r.db.WithContext(ctx).Model(&models.UserChallengeProgress{}).
		Where("id = ? AND completed = ? AND deadline > ?", rowID, false, now).
		UpdateColumn("progress", gorm.Expr("LEAST(progress + 1, ?)", target)).Error
}

func (r *challengeProgressRepository) Complete(ctx context.Context, rowID string, target int64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.UserChallengeProgress{}).
		Where("id = ? AND completed = ? AND progress >= ? AND deadline > ?", rowID, false, target, at).
		Updates(map[string]interface{}{
			"completed":    true,
			"completed_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *challengeProgressRepository) ExpiredNeedingReissue(ctx context.Context, now time.Time) ([]models.UserChallengeProgress, error) {
	var rows []models.UserChallengeProgress
	err := r.db.WithContext(ctx).
		Where("completed = ? AND deadline <= ?", false, now).
		Where(`NOT EXISTS (
			SELECT 1 FROM user_challenge_progresses newer
			WHERE newer.external_user_id = user_challenge_progresses.external_user_id
			  AND newer.challenge_id = user_challenge_progresses.challenge_id
			  AND newer.deadline > user_challenge_progresses.deadline
		)`).
		Find(&rows).Error
	return rows, err
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepo {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Record(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserProgress{}).
			Where("external_user_id = ?", entry.ExternalUserID).
			Updates(map[string]interface{}{
				"total_points":     gorm.Expr("total_points + ?", entry.Points),
				"last_activity_at": entry.CreatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Create(entry).Error
	})
}

type activityLogRepository struct {
	db *gorm.DB
}

func NewActivityLogRepository(db *gorm.DB) ActivityLogRepo {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Append(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityLogRepository) Recent(ctx context.Context, externalUserID string, limit int) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	err := r.db.WithContext(ctx).Where("external_user_id = ?", externalUserID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *activityLogRepository) ListByTypeSince(ctx context.Context, externalUserID, entryType string, since time.Time) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	err := r.db.WithContext(ctx).
		Where("external_user_id = ? AND type = ? AND created_at >= ?", externalUserID, entryType, since).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

func (r *activityLogRepository) SumPointsSince(ctx context.Context, externalUserID string, since time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.ActivityLog{}).
		Where("external_user_id = ? AND created_at >= ?", externalUserID, since).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	return total, err
}

func (r *activityLogRepository) SumPoints(ctx context.Context, externalUserID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.ActivityLog{}).
		Where("external_user_id = ?", externalUserID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	return total, err
}

type badgeRepository struct {
	db *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) BadgeRepo {
	return &badgeRepository{db: db}
}

func (r *badgeRepository) ListByUser(ctx context.Context, externalUserID string) ([]models.BadgeView, error) {
	var views []models.BadgeView
	err := r.db.WithContext(ctx).Model(&models.UserBadge{}).
		Select(`user_badges.id, badge_types.code, badge_types.name,
			badge_types.rarity, badge_types.icon_url, user_badges.awarded_at`).
		Joins("INNER JOIN badge_types ON badge_types.id = user_badges.badge_type_id").
		Where("user_badges.external_user_id = ?", externalUserID).
		Order("user_badges.awarded_at DESC").
		Scan(&views).Error
	return views, err
}

func (r *badgeRepository) CreateType(ctx context.Context, badgeType *models.BadgeType) error {
	return r.db.WithContext(ctx).Create(badgeType).Error
}

func (r *badgeRepository) GetTypeByCode(ctx context.Context, code string) (*models.BadgeType, error) {
	var badgeType models.BadgeType
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&badgeType).Error
	if err != nil {
		return nil, translate(err)
	}
	return &badgeType, nil
}

func (r *badgeRepository) Award(ctx context.Context, badge *models.UserBadge) error {
	return r.db.WithContext(ctx).Create(badge).Error
}
