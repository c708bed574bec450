package services

import (
	"context"
	"testing"
	"time"

	"school-progression-service/models"
	"school-progression-service/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEngine struct {
	store        *repository.MemoryStore
	catalog      *CatalogProvider
	achievements *AchievementService
	challenges   *ChallengeService
	progression  *ProgressionService
	stats        *StatsService
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	store := repository.NewMemoryStore()
	logger := zap.NewNop()
	catalog := NewCatalogProvider()

	achievements := NewAchievementService(store.Achievements(), store.Ledger(), catalog, logger)
	challenges := NewChallengeService(store.Challenges(), store.Ledger(), catalog, logger)
	progression := NewProgressionService(store.Users(), store.Profiles(), store.Ledger(), achievements, challenges, catalog, logger)
	stats := NewStatsService(store.Profiles(), store.Achievements(), store.Activity(), store.Badges(), progression, challenges, catalog)

	return &testEngine{
		store:        store,
		catalog:      catalog,
		achievements: achievements,
		challenges:   challenges,
		progression:  progression,
		stats:        stats,
	}
}

// setNow pins the clock of every service in the engine.
func (e *testEngine) setNow(now time.Time) {
	clock := func() time.Time { return now }
	e.achievements.now = clock
	e.challenges.now = clock
	e.progression.now = clock
	e.stats.now = clock
}

func (e *testEngine) addUser(t *testing.T, id, role, schoolID string) {
	t.Helper()
	err := e.store.Users().Upsert(context.Background(), []models.PortalUser{
		{ExternalUserID: id, Username: id, Role: role, SchoolID: schoolID},
	})
	require.NoError(t, err)
}
