package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"school-progression-service/models"
	"school-progression-service/repository"

	"go.uber.org/zap"
)

// ChallengeService is the time-boxed counterpart of AchievementService.
// Progress only lands on a row whose deadline is still in the future; expired
// rows stay as history and the next period's row is issued lazily.
type ChallengeService struct {
	progress repository.ChallengeProgressRepo
	ledger   repository.LedgerRepo
	catalog  *CatalogProvider

	log *zap.Logger
	now func() time.Time
}

func NewChallengeService(
	progress repository.ChallengeProgressRepo,
	ledger repository.LedgerRepo,
	catalog *CatalogProvider,
	log *zap.Logger,
) *ChallengeService {
	return &ChallengeService{
		progress: progress,
		ledger:   ledger,
		catalog:  catalog,
		log:      log,
		now:      time.Now,
	}
}

// SeedActive issues the first period's row for every challenge in the role's
// catalog. Called once at profile initialization.
func (s *ChallengeService) SeedActive(ctx context.Context, externalUserID, role string) error {
	for _, def := range s.catalog.ChallengesFor(role) {
		if _, err := s.ensureCurrentRow(ctx, externalUserID, def); err != nil {
			return err
		}
	}
	return nil
}

// ensureCurrentRow returns the row for the challenge's current period,
// issuing a fresh one when none exists or the latest has expired. The period
// key makes issuance idempotent: concurrent issuers compute the same key, one
// insert lands, and both converge on the reread.
func (s *ChallengeService) ensureCurrentRow(ctx context.Context, externalUserID string, def models.ChallengeDefinition) (*models.UserChallengeProgress, error) {
	now := s.now()
	latest, err := s.progress.Latest(ctx, externalUserID, def.ID)
	if err == nil && latest.Deadline.After(now) {
		return latest, nil
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	lifetime := s.catalog.DurationFor(def.Type)
	row := &models.UserChallengeProgress{
		ExternalUserID: externalUserID,
		ChallengeID:    def.ID,
		PeriodKey:      now.Truncate(lifetime).Unix(),
		Deadline:       now.Add(lifetime),
	}
	if err := s.progress.Create(ctx, row); err != nil {
		return nil, err
	}
	return s.progress.Latest(ctx, externalUserID, def.ID)
}

// Apply routes one task event to every applicable challenge, same mechanics
// as achievements but bounded by the row deadline.
func (s *ChallengeService) Apply(ctx context.Context, externalUserID, role, taskType string) error {
	for _, def := range s.catalog.ChallengesForTask(role, taskType) {
		row, err := s.ensureCurrentRow(ctx, externalUserID, def)
		if err != nil {
			return fmt.Errorf("resolve challenge row %s: %w", def.ID, err)
		}
		if row.Completed {
			continue // terminal for this period
		}

		now := s.now()
		if err := s.progress.Increment(ctx, row.ID, def.Target, now); err != nil {
			return fmt.Errorf("increment challenge %s: %w", def.ID, err)
		}
		won, err := s.progress.Complete(ctx, row.ID, def.Target, now)
		if err != nil {
			return fmt.Errorf("complete challenge %s: %w", def.ID, err)
		}
		if !won {
			continue
		}

		if err := s.awardBonus(ctx, externalUserID, def, now); err != nil {
			return fmt.Errorf("award challenge bonus %s: %w", def.ID, err)
		}
		s.log.Info("challenge completed",
			zap.String("user_id", externalUserID),
			zap.String("challenge_id", def.ID),
			zap.Int64("bonus", def.Points))
	}
	return nil
}

// StatusesFor merges the role catalog with the user's current-period rows,
// re-issuing expired rows lazily so the view always shows an active period.
func (s *ChallengeService) StatusesFor(ctx context.Context, externalUserID, role string) ([]models.ChallengeStatus, error) {
	var statuses []models.ChallengeStatus
	for _, def := range s.catalog.ChallengesFor(role) {
		row, err := s.ensureCurrentRow(ctx, externalUserID, def)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, models.ChallengeStatus{
			ID:          def.ID,
			Title:       def.Title,
			Description: def.Description,
			Type:        def.Type,
			Points:      def.Points,
			Target:      def.Target,
			Progress:    row.Progress,
			Completed:   row.Completed,
			Deadline:    row.Deadline,
		})
	}
	return statuses, nil
}

func (s *ChallengeService) awardBonus(ctx context.Context, externalUserID string, def models.ChallengeDefinition, now time.Time) error {
	return s.ledger.Record(ctx, &models.ActivityLog{
		ExternalUserID: externalUserID,
		Type:           models.ActivityChallengeCompleted,
		Description:    fmt.Sprintf("Challenge completed: %s", def.Title),
		Points:         def.Points,
		CreatedAt:      now,
	})
}
