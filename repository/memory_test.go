package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"school-progression-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionTransitionHasSingleWinner(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	repo := store.Achievements()

	require.NoError(t, repo.Seed(ctx, []models.UserAchievementProgress{
		{ExternalUserID: "u1", AchievementID: "a1", Progress: 5},
	}))

	const callers = 8
	var wg sync.WaitGroup
	wins := make(chan bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := repo.Complete(ctx, "u1", "a1", 5, time.Now())
			assert.NoError(t, err)
			wins <- won
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestIncrementSkipsCompletedRows(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	repo := store.Achievements()

	require.NoError(t, repo.Seed(ctx, []models.UserAchievementProgress{
		{ExternalUserID: "u1", AchievementID: "a1", Progress: 3},
	}))
	won, err := repo.Complete(ctx, "u1", "a1", 3, time.Now())
	require.NoError(t, err)
	require.True(t, won)

	require.NoError(t, repo.Increment(ctx, "u1", "a1", 3))
	rows, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0].Progress)
}

func TestConcurrentAddPointsLosesNothing(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	repo := store.Profiles()

	require.NoError(t, repo.Create(ctx, &models.UserProgress{ExternalUserID: "u1"}))

	const adders = 50
	var wg sync.WaitGroup
	for i := 0; i < adders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.AddPoints(ctx, "u1", 10, time.Now()))
		}()
	}
	wg.Wait()

	profile, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(adders*10), profile.TotalPoints)
}

func TestLedgerRecordIsAllOrNothing(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	ledger := store.Ledger()

	// No profile row: the whole write is rejected and nothing lands in the log.
	err := ledger.Record(ctx, &models.ActivityLog{ExternalUserID: "ghost", Type: "daily_login", Points: 10})
	require.ErrorIs(t, err, ErrNotFound)
	entries, err := store.Activity().Recent(ctx, "ghost", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, store.Profiles().Create(ctx, &models.UserProgress{ExternalUserID: "u1"}))
	require.NoError(t, ledger.Record(ctx, &models.ActivityLog{ExternalUserID: "u1", Type: "daily_login", Points: 10}))

	profile, err := store.Profiles().Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), profile.TotalPoints)
	entries, err = store.Activity().Recent(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(10), entries[0].Points)
}

func TestChallengeCreateDeduplicatesPeriod(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	repo := store.Challenges()

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		require.NoError(t, repo.Create(ctx, &models.UserChallengeProgress{
			ExternalUserID: "u1",
			ChallengeID:    "c1",
			PeriodKey:      now.Truncate(24 * time.Hour).Unix(),
			Deadline:       now.Add(24 * time.Hour),
		}))
	}
	rows, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestChallengeIncrementRespectsDeadline(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	repo := store.Challenges()

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	row := &models.UserChallengeProgress{
		ExternalUserID: "u1",
		ChallengeID:    "c1",
		Deadline:       now.Add(24 * time.Hour),
	}
	require.NoError(t, repo.Create(ctx, row))

	require.NoError(t, repo.Increment(ctx, row.ID, 3, now))
	require.NoError(t, repo.Increment(ctx, row.ID, 3, now.Add(48*time.Hour))) // past deadline, no-op

	latest, err := repo.Latest(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), latest.Progress)
}
