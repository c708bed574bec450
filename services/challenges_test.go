package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"school-progression-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func challengeRows(t *testing.T, e *testEngine, userID, challengeID string) []models.UserChallengeProgress {
	t.Helper()
	rows, err := e.store.Challenges().ListByUser(context.Background(), userID)
	require.NoError(t, err)
	var matched []models.UserChallengeProgress
	for _, row := range rows {
		if row.ChallengeID == challengeID {
			matched = append(matched, row)
		}
	}
	return matched
}

func TestDailyChallengeCompletesWithBonus(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.addUser(t, "u1", RoleStudent, "s1")

	// "Show Up" has target 1 and a 20 point bonus.
	result, err := e.progression.CompleteTask(ctx, "u1", TaskDailyLogin, "")
	require.NoError(t, err)
	assert.Equal(t, int64(10), result.PointsEarned)

	rows := challengeRows(t, e, "u1", "show-up")
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Completed)
	require.NotNil(t, rows[0].CompletedAt)

	profile, err := e.store.Profiles().Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(30), profile.TotalPoints) // 10 task + 20 bonus
	assert.Equal(t, 1, countActivityByType(t, e, "u1", models.ActivityChallengeCompleted))
}

func TestCompletedChallengeIsTerminalForThePeriod(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.addUser(t, "u1", RoleStudent, "s1")

	_, err := e.progression.CompleteTask(ctx, "u1", TaskDailyLogin, "")
	require.NoError(t, err)
	_, err = e.progression.CompleteTask(ctx, "u1", TaskDailyLogin, "")
	require.NoError(t, err)

	rows := challengeRows(t, e, "u1", "show-up")
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].Progress)
	assert.Equal(t, 1, countActivityByType(t, e, "u1", models.ActivityChallengeCompleted))
}

func TestExpiredChallengeRowIsKeptAndReissued(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.addUser(t, "u1", RoleStudent, "s1")

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	e.setNow(start)

	// One download on day one: "Paper Trail" (daily, target 3) at 1/3.
	_, err := e.progression.CompleteTask(ctx, "u1", TaskDocumentDownloaded, "")
	require.NoError(t, err)

	// Two days later the daily row has expired incomplete. The next download
	// lands on a freshly issued row; the old one stays as history.
	e.setNow(start.AddDate(0, 0, 2))
	_, err = e.progression.CompleteTask(ctx, "u1", TaskDocumentDownloaded, "")
	require.NoError(t, err)

	rows := challengeRows(t, e, "u1", "paper-trail")
	require.Len(t, rows, 2)

	var old, fresh models.UserChallengeProgress
	if rows[0].Deadline.After(rows[1].Deadline) {
		fresh, old = rows[0], rows[1]
	} else {
		fresh, old = rows[1], rows[0]
	}
	assert.Equal(t, int64(1), old.Progress) // untouched after expiry
	assert.False(t, old.Completed)
	assert.Equal(t, int64(1), fresh.Progress)
	assert.True(t, fresh.Deadline.After(start.AddDate(0, 0, 2)))
}

func TestChallengeStatusesReissueLazilyOnRead(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.addUser(t, "u1", RoleStudent, "s1")

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	e.setNow(start)
	_, err := e.progression.CompleteTask(ctx, "u1", TaskDailyLogin, "")
	require.NoError(t, err)

	// The completed daily row expires; a pure read issues the next period.
	e.setNow(start.AddDate(0, 0, 3))
	statuses, err := e.challenges.StatusesFor(ctx, "u1", RoleStudent)
	require.NoError(t, err)

	for _, status := range statuses {
		if status.ID != "show-up" {
			continue
		}
		assert.Zero(t, status.Progress)
		assert.False(t, status.Completed)
		assert.True(t, status.Deadline.After(start.AddDate(0, 0, 3)))
	}
	assert.Len(t, challengeRows(t, e, "u1", "show-up"), 2)
}

func TestChallengeDurationsByType(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.addUser(t, "u1", RoleStudent, "s1")

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	e.setNow(start)
	require.NoError(t, e.challenges.SeedActive(ctx, "u1", RoleStudent))

	cases := map[string]time.Duration{
		"show-up":    24 * time.Hour,
		"busy-week":  7 * 24 * time.Hour,
		"club-scout": 30 * 24 * time.Hour,
	}
	for id, lifetime := range cases {
		rows := challengeRows(t, e, "u1", id)
		require.Len(t, rows, 1, "seeded row for %s", id)
		assert.Equal(t, start.Add(lifetime), rows[0].Deadline, "deadline for %s", id)
	}
}

func TestConcurrentIssuanceLeavesSingleActiveRow(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.addUser(t, "u1", RoleStudent, "s1")

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	e.setNow(start)

	// Several profile initializations and a sweep can race on first access.
	// Every challenge must still end up with exactly one active row.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, e.challenges.SeedActive(ctx, "u1", RoleStudent))
		}()
	}
	wg.Wait()

	for _, def := range e.catalog.ChallengesFor(RoleStudent) {
		rows := challengeRows(t, e, "u1", def.ID)
		active := 0
		for _, row := range rows {
			if row.Active(start) {
				active++
			}
		}
		assert.Equal(t, 1, active, "active rows for %s", def.ID)
	}
}

func TestExpiredNeedingReissueFeedsSweep(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.addUser(t, "u1", RoleStudent, "s1")

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	e.setNow(start)
	require.NoError(t, e.challenges.SeedActive(ctx, "u1", RoleStudent))

	later := start.AddDate(0, 0, 2)
	expired, err := e.store.Challenges().ExpiredNeedingReissue(ctx, later)
	require.NoError(t, err)

	// Only the daily rows have passed their deadline after two days.
	ids := make(map[string]bool)
	for _, row := range expired {
		ids[row.ChallengeID] = true
	}
	assert.True(t, ids["show-up"])
	assert.True(t, ids["paper-trail"])
	assert.False(t, ids["busy-week"])
	assert.False(t, ids["club-scout"])

	// Re-issuing clears them from the next sweep.
	e.setNow(later)
	for _, row := range expired {
		def, ok := e.catalog.Challenge(row.ChallengeID)
		require.True(t, ok)
		_, err := e.challenges.ensureCurrentRow(ctx, row.ExternalUserID, def)
		require.NoError(t, err)
	}
	expired, err = e.store.Challenges().ExpiredNeedingReissue(ctx, later)
	require.NoError(t, err)
	assert.Empty(t, expired)
}
