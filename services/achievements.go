package services

import (
	"context"
	"fmt"
	"time"

	"school-progression-service/models"
	"school-progression-service/repository"

	"go.uber.org/zap"
)

// AchievementService advances per-user achievement progress when tasks route
// to catalog entries, and awards the completion bonus exactly once.
type AchievementService struct {
	progress repository.AchievementProgressRepo
	ledger   repository.LedgerRepo
	catalog  *CatalogProvider

	log *zap.Logger
	now func() time.Time
}

func NewAchievementService(
	progress repository.AchievementProgressRepo,
	ledger repository.LedgerRepo,
	catalog *CatalogProvider,
	log *zap.Logger,
) *AchievementService {
	return &AchievementService{
		progress: progress,
		ledger:   ledger,
		catalog:  catalog,
		log:      log,
		now:      time.Now,
	}
}

func (s *AchievementService) Seed(ctx context.Context, rows []models.UserAchievementProgress) error {
	return s.progress.Seed(ctx, rows)
}

// Apply routes one task event to every applicable achievement: a clamped
// atomic increment followed by the conditional completion write. Only the one
// caller whose conditional write lands performs the bonus award, so two
// concurrent increments crossing the threshold cannot double-grant.
func (s *AchievementService) Apply(ctx context.Context, externalUserID, role, taskType string) error {
	for _, def := range s.catalog.AchievementsForTask(role, taskType) {
		if err := s.progress.Increment(ctx, externalUserID, def.ID, def.Target); err != nil {
			return fmt.Errorf("increment achievement %s: %w", def.ID, err)
		}

		now := s.now()
		won, err := s.progress.Complete(ctx, externalUserID, def.ID, def.Target, now)
		if err != nil {
			return fmt.Errorf("complete achievement %s: %w", def.ID, err)
		}
		if !won {
			continue
		}

		if err := s.awardBonus(ctx, externalUserID, def, now); err != nil {
			return fmt.Errorf("award achievement bonus %s: %w", def.ID, err)
		}
		s.log.Info("achievement completed",
			zap.String("user_id", externalUserID),
			zap.String("achievement_id", def.ID),
			zap.Int64("bonus", def.Points))
	}
	return nil
}

func (s *AchievementService) awardBonus(ctx context.Context, externalUserID string, def models.AchievementDefinition, now time.Time) error {
	return s.ledger.Record(ctx, &models.ActivityLog{
		ExternalUserID: externalUserID,
		Type:           models.ActivityAchievementCompleted,
		Description:    fmt.Sprintf("Achievement unlocked: %s", def.Title),
		Points:         def.Points,
		CreatedAt:      now,
	})
}
