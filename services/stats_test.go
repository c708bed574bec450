package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"school-progression-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankTiesShareAPosition(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	totals := map[string]int64{"u1": 500, "u2": 500, "u3": 300}
	for id, total := range totals {
		e.addUser(t, id, RoleStudent, "school-1")
		_, err := e.stats.Stats(ctx, id, RoleStudent, "school-1")
		require.NoError(t, err)
		require.NoError(t, e.store.Profiles().AddPoints(ctx, id, total, time.Now()))
	}

	wantRanks := map[string]int{"u1": 1, "u2": 1, "u3": 3}
	for id, want := range wantRanks {
		stats, err := e.stats.Stats(ctx, id, RoleStudent, "school-1")
		require.NoError(t, err)
		assert.Equal(t, want, stats.Rank, "rank for %s", id)
	}
}

func TestRankScopedToSchool(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.addUser(t, "a1", RoleStudent, "school-a")
	e.addUser(t, "b1", RoleStudent, "school-b")
	for id, total := range map[string]int64{"a1": 100, "b1": 900} {
		_, err := e.stats.Stats(ctx, id, RoleStudent, "")
		require.NoError(t, err)
		require.NoError(t, e.store.Profiles().AddPoints(ctx, id, total, time.Now()))
	}
	// Reload with school scope set at first stats call: profiles were created
	// without a school, so pass the scope explicitly.
	profileA, err := e.store.Profiles().Get(ctx, "a1")
	require.NoError(t, err)

	unscoped, err := e.stats.Rank(ctx, profileA, "")
	require.NoError(t, err)
	assert.Equal(t, 2, unscoped)

	scoped, err := e.stats.Rank(ctx, profileA, "school-a")
	require.NoError(t, err)
	assert.Equal(t, 1, scoped)
}

func loginEntry(userID string, at time.Time) *models.ActivityLog {
	return &models.ActivityLog{
		ExternalUserID: userID,
		Type:           TaskDailyLogin,
		Points:         10,
		CreatedAt:      at,
	}
}

func TestStreakZeroWithoutLoginToday(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)
	e.setNow(now)

	// Logins yesterday and the day before, none today.
	require.NoError(t, e.store.Activity().Append(ctx, loginEntry("u1", now.AddDate(0, 0, -1))))
	require.NoError(t, e.store.Activity().Append(ctx, loginEntry("u1", now.AddDate(0, 0, -2))))

	streak, err := e.stats.Streak(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, streak)
}

func TestStreakCountsConsecutiveDays(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)
	e.setNow(now)

	// Today, -1, -2, then a gap at -3 and an older island at -4.
	for _, daysAgo := range []int{0, 1, 2, 4} {
		require.NoError(t, e.store.Activity().Append(ctx, loginEntry("u1", now.AddDate(0, 0, -daysAgo))))
	}
	// Two logins on the same day count once.
	require.NoError(t, e.store.Activity().Append(ctx, loginEntry("u1", now.Add(-2*time.Hour))))

	streak, err := e.stats.Streak(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, streak)
}

func TestWeeklyPointsStartAtSundayMidnight(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	// Wednesday; the week started Sunday 2026-01-04 00:00.
	now := time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC)
	e.setNow(now)

	entries := []struct {
		at     time.Time
		points int64
	}{
		{time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC), 10},  // Monday
		{time.Date(2026, 1, 6, 10, 0, 0, 0, time.UTC), 20},  // Tuesday
		{time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC), 5},    // Sunday midnight, inclusive
		{time.Date(2026, 1, 3, 23, 0, 0, 0, time.UTC), 100}, // Saturday, previous week
	}
	for _, entry := range entries {
		require.NoError(t, e.store.Activity().Append(ctx, &models.ActivityLog{
			ExternalUserID: "u1",
			Type:           TaskDocumentDownloaded,
			Points:         entry.points,
			CreatedAt:      entry.at,
		}))
	}

	weekly, err := e.stats.WeeklyPoints(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(35), weekly)
}

func TestStatsComposite(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.addUser(t, "u1", RoleSchoolAdmin, "school-1")

	// First read lazily initializes everything with zero progress.
	stats, err := e.stats.Stats(ctx, "u1", RoleSchoolAdmin, "school-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalPoints)
	assert.Equal(t, 1, stats.Level)
	assert.Equal(t, int64(MonthlyGoal), stats.MonthlyGoal)
	assert.Equal(t, 1, stats.Rank)
	assert.Empty(t, stats.RecentActivity)

	// The admin catalog includes the role-specific entries.
	ids := make(map[string]bool)
	for _, a := range stats.Achievements {
		ids[a.ID] = true
		assert.Zero(t, a.Progress)
	}
	assert.True(t, ids["iso-champion"])
	assert.False(t, ids["recognition-master"]) // coordinator-only
	assert.Len(t, stats.Challenges, len(e.catalog.ChallengesFor(RoleSchoolAdmin)))

	for i := 0; i < 12; i++ {
		_, err := e.progression.CompleteTask(ctx, "u1", TaskMessageSent, fmt.Sprintf(`{"n":%d}`, i))
		require.NoError(t, err)
	}

	stats, err = e.stats.Stats(ctx, "u1", RoleSchoolAdmin, "school-1")
	require.NoError(t, err)
	require.Len(t, stats.RecentActivity, 10) // capped, newest first
	for i := 1; i < len(stats.RecentActivity); i++ {
		assert.False(t, stats.RecentActivity[i].CreatedAt.After(stats.RecentActivity[i-1].CreatedAt))
	}
	assert.Equal(t, stats.WeeklyPoints, stats.TotalPoints) // all activity is this week

	sum, err := e.store.Activity().SumPoints(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, sum, stats.TotalPoints)
}

func TestRecentActivityHonorsRequestedLimit(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.addUser(t, "u1", RoleStudent, "s1")

	// 15 tasks plus the Busy Week completion bonus: 16 log entries total.
	for i := 0; i < 15; i++ {
		_, err := e.progression.CompleteTask(ctx, "u1", TaskMessageSent, "")
		require.NoError(t, err)
	}

	recent, err := e.stats.RecentActivity(ctx, "u1", 12)
	require.NoError(t, err)
	assert.Len(t, recent, 12)

	recent, err = e.stats.RecentActivity(ctx, "u1", 5)
	require.NoError(t, err)
	assert.Len(t, recent, 5)
}

func TestStatsNeverMutatesProgressOnRepeatReads(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.addUser(t, "u1", RoleStudent, "s1")

	_, err := e.progression.CompleteTask(ctx, "u1", TaskDocumentDownloaded, "")
	require.NoError(t, err)

	first, err := e.stats.Stats(ctx, "u1", RoleStudent, "s1")
	require.NoError(t, err)
	second, err := e.stats.Stats(ctx, "u1", RoleStudent, "s1")
	require.NoError(t, err)

	assert.Equal(t, first.TotalPoints, second.TotalPoints)
	assert.Equal(t, first.Achievements, second.Achievements)
	assert.Equal(t, first.Challenges, second.Challenges)
}
