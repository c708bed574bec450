package services

import (
	"context"
	"time"

	"school-progression-service/models"
	"school-progression-service/repository"
)

// MonthlyGoal is a fixed display target, not per-user configuration.
const MonthlyGoal = 5000

const recentActivityLimit = 10

// streakWindowDays bounds how far back the streak walk reads the log.
const streakWindowDays = 30

// StatsService is the read-only façade over the whole engine. Aside from lazy
// profile initialization it never mutates progression state.
type StatsService struct {
	profiles     repository.ProfileRepo
	achievements repository.AchievementProgressRepo
	activity     repository.ActivityLogRepo
	badges       repository.BadgeRepo

	progression *ProgressionService
	challenges  *ChallengeService
	catalog     *CatalogProvider

	now func() time.Time
}

func NewStatsService(
	profiles repository.ProfileRepo,
	achievements repository.AchievementProgressRepo,
	activity repository.ActivityLogRepo,
	badges repository.BadgeRepo,
	progression *ProgressionService,
	challenges *ChallengeService,
	catalog *CatalogProvider,
) *StatsService {
	return &StatsService{
		profiles:     profiles,
		achievements: achievements,
		activity:     activity,
		badges:       badges,
		progression:  progression,
		challenges:   challenges,
		catalog:      catalog,
		now:          time.Now,
	}
}

// Stats composes the full progression view for one user.
func (s *StatsService) Stats(ctx context.Context, externalUserID, role, scopeID string) (*models.ProgressionStats, error) {
	profile, err := s.progression.EnsureProfile(ctx, &models.PortalUser{
		ExternalUserID: externalUserID,
		Role:           role,
		SchoolID:       scopeID,
	})
	if err != nil {
		return nil, err
	}
	if role == "" {
		role = profile.Role
	}
	if scopeID == "" {
		scopeID = profile.SchoolID
	}

	rank, err := s.Rank(ctx, profile, scopeID)
	if err != nil {
		return nil, err
	}

	achievements, err := s.achievementStatuses(ctx, externalUserID, role)
	if err != nil {
		return nil, err
	}
	challenges, err := s.challenges.StatusesFor(ctx, externalUserID, role)
	if err != nil {
		return nil, err
	}
	badges, err := s.badges.ListByUser(ctx, externalUserID)
	if err != nil {
		return nil, err
	}
	recent, err := s.activity.Recent(ctx, externalUserID, recentActivityLimit)
	if err != nil {
		return nil, err
	}
	streak, err := s.Streak(ctx, externalUserID)
	if err != nil {
		return nil, err
	}
	weekly, err := s.WeeklyPoints(ctx, externalUserID)
	if err != nil {
		return nil, err
	}

	return &models.ProgressionStats{
		UserID:         externalUserID,
		TotalPoints:    profile.TotalPoints,
		LevelInfo:      levelInfoFor(profile.TotalPoints),
		Rank:           rank,
		Streak:         streak,
		WeeklyPoints:   weekly,
		MonthlyGoal:    MonthlyGoal,
		Achievements:   achievements,
		Challenges:     challenges,
		Badges:         badges,
		RecentActivity: recent,
	}, nil
}

// RecentActivity returns the newest activity rows, up to limit. The composite
// stats view always carries the default ten; callers wanting more come here.
func (s *StatsService) RecentActivity(ctx context.Context, externalUserID string, limit int) ([]models.ActivityLog, error) {
	return s.activity.Recent(ctx, externalUserID, limit)
}

// Rank is one plus the count of strictly-higher-scoring users in scope.
// Equal totals share a rank, so sequences can skip numbers on ties.
func (s *StatsService) Rank(ctx context.Context, profile *models.UserProgress, scopeID string) (int, error) {
	ahead, err := s.profiles.CountWithMorePoints(ctx, profile.TotalPoints, scopeID)
	if err != nil {
		return 0, err
	}
	return int(ahead) + 1, nil
}

// Streak walks backward from today's local midnight counting consecutive
// calendar days with at least one daily_login entry. Recomputed from the log
// on every query; the profile's stored streak column is never trusted.
func (s *StatsService) Streak(ctx context.Context, externalUserID string) (int, error) {
	now := s.now()
	since := now.AddDate(0, 0, -streakWindowDays)
	entries, err := s.activity.ListByTypeSince(ctx, externalUserID, TaskDailyLogin, since)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		seen[e.CreatedAt.In(now.Location()).Format("2006-01-02")] = true
	}

	streak := 0
	day := now
	for seen[day.Format("2006-01-02")] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak, nil
}

// WeeklyPoints sums all activity points since local Sunday midnight.
func (s *StatsService) WeeklyPoints(ctx context.Context, externalUserID string) (int64, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfWeek := midnight.AddDate(0, 0, -int(now.Weekday()))
	return s.activity.SumPointsSince(ctx, externalUserID, startOfWeek)
}

func (s *StatsService) achievementStatuses(ctx context.Context, externalUserID, role string) ([]models.AchievementStatus, error) {
	rows, err := s.achievements.ListByUser(ctx, externalUserID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.UserAchievementProgress, len(rows))
	for _, row := range rows {
		byID[row.AchievementID] = row
	}

	var statuses []models.AchievementStatus
	for _, def := range s.catalog.AchievementsFor(role) {
		status := models.AchievementStatus{
			ID:          def.ID,
			Title:       def.Title,
			Description: def.Description,
			Points:      def.Points,
			Target:      def.Target,
			Rarity:      def.Rarity,
		}
		// Catalog entries without a row yet show zero progress.
		if row, ok := byID[def.ID]; ok {
			status.Progress = row.Progress
			status.Completed = row.Completed
			status.Claimed = row.Claimed
			status.CompletedAt = row.CompletedAt
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
