package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"school-progression-service/models"
	"school-progression-service/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// ErrUserNotFound: the task event references a user with no roster mirror row.
// Surfaced to the caller as-is; this service never retries.
var ErrUserNotFound = errors.New("user not found")

// PointsPerLevel: flat leveling curve. Level and its derived fields are pure
// functions of the total and are never persisted.
const PointsPerLevel = 1000

func LevelForPoints(total int64) int {
	return int(total/PointsPerLevel) + 1
}

func PointsToNextLevel(total int64) int64 {
	return PointsPerLevel - total%PointsPerLevel
}

func LevelProgress(total int64) float64 {
	return float64(total%PointsPerLevel) / PointsPerLevel * 100
}

func levelInfoFor(total int64) models.LevelInfo {
	return models.LevelInfo{
		Level:             LevelForPoints(total),
		LevelProgress:     LevelProgress(total),
		PointsToNextLevel: PointsToNextLevel(total),
	}
}

var (
	tasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "progression_tasks_processed_total",
		Help: "Task completion events accepted by the engine.",
	}, []string{"task_type"})

	// The points/log write and the tracker updates are independent; a tracker
	// failure after the points committed is surfaced here instead of being
	// silently dropped.
	trackerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "progression_tracker_failures_total",
		Help: "Achievement/challenge tracker updates lost after the points write committed.",
	}, []string{"tracker"})
)

// ProgressionService is the single write entry point: one task event fans out
// to the activity log, the points ledger and both trackers.
type ProgressionService struct {
	users    repository.UserRepo
	profiles repository.ProfileRepo
	ledger   repository.LedgerRepo

	achievements *AchievementService
	challenges   *ChallengeService
	catalog      *CatalogProvider

	log *zap.Logger
	now func() time.Time
}

func NewProgressionService(
	users repository.UserRepo,
	profiles repository.ProfileRepo,
	ledger repository.LedgerRepo,
	achievements *AchievementService,
	challenges *ChallengeService,
	catalog *CatalogProvider,
	log *zap.Logger,
) *ProgressionService {
	return &ProgressionService{
		users:        users,
		profiles:     profiles,
		ledger:       ledger,
		achievements: achievements,
		challenges:   challenges,
		catalog:      catalog,
		log:          log,
		now:          time.Now,
	}
}

// EnsureProfile lazily creates the progression profile and its zero-progress
// achievement rows for the user's role catalog (idempotent).
func (s *ProgressionService) EnsureProfile(ctx context.Context, user *models.PortalUser) (*models.UserProgress, error) {
	profile, err := s.profiles.Get(ctx, user.ExternalUserID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	fresh := &models.UserProgress{
		ExternalUserID: user.ExternalUserID,
		Role:           user.Role,
		SchoolID:       user.SchoolID,
	}
	if err := s.profiles.Create(ctx, fresh); err != nil {
		return nil, err
	}

	var seed []models.UserAchievementProgress
	for _, def := range s.catalog.AchievementsFor(user.Role) {
		seed = append(seed, models.UserAchievementProgress{
			ExternalUserID: user.ExternalUserID,
			AchievementID:  def.ID,
		})
	}
	if err := s.achievements.Seed(ctx, seed); err != nil {
		return nil, err
	}
	if err := s.challenges.SeedActive(ctx, user.ExternalUserID, user.Role); err != nil {
		return nil, err
	}

	// A concurrent initializer may have won the insert; read back the row.
	return s.profiles.Get(ctx, user.ExternalUserID)
}

// CompleteTask records one already-validated task event: one transactional
// ledger write appends the activity row and adds the task's points, the level
// view is recomputed from the new total, then both trackers are dispatched.
// Tracker failures do not roll back the committed ledger write.
func (s *ProgressionService) CompleteTask(ctx context.Context, externalUserID, taskType, metadata string) (*models.TaskResult, error) {
	user, err := s.users.Get(ctx, externalUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, externalUserID)
		}
		return nil, err
	}

	if _, err := s.EnsureProfile(ctx, user); err != nil {
		return nil, err
	}

	now := s.now()
	points := s.catalog.PointsForTask(taskType)

	entry := &models.ActivityLog{
		ExternalUserID: externalUserID,
		Type:           taskType,
		Description:    fmt.Sprintf("Completed task: %s", taskType),
		Points:         points,
		Metadata:       metadata,
		CreatedAt:      now,
	}
	if err := s.ledger.Record(ctx, entry); err != nil {
		return nil, fmt.Errorf("record task in ledger: %w", err)
	}

	profile, err := s.profiles.Get(ctx, externalUserID)
	if err != nil {
		return nil, err
	}

	tasksProcessed.WithLabelValues(taskType).Inc()

	if err := s.achievements.Apply(ctx, externalUserID, user.Role, taskType); err != nil {
		trackerFailures.WithLabelValues("achievement").Inc()
		s.log.Error("achievement tracker update lost",
			zap.String("user_id", externalUserID),
			zap.String("task_type", taskType),
			zap.Error(err))
	}
	if err := s.challenges.Apply(ctx, externalUserID, user.Role, taskType); err != nil {
		trackerFailures.WithLabelValues("challenge").Inc()
		s.log.Error("challenge tracker update lost",
			zap.String("user_id", externalUserID),
			zap.String("task_type", taskType),
			zap.Error(err))
	}

	return &models.TaskResult{
		PointsEarned: points,
		TotalPoints:  profile.TotalPoints,
		LevelInfo:    levelInfoFor(profile.TotalPoints),
	}, nil
}
