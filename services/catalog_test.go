package services

import (
	"testing"
	"time"

	"school-progression-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogIDsAreTitleSlugs(t *testing.T) {
	catalog := NewCatalogProvider()

	achievement, ok := catalog.Achievement("iso-champion")
	require.True(t, ok)
	assert.Equal(t, "ISO Champion", achievement.Title)

	challenge, ok := catalog.Challenge("paper-trail")
	require.True(t, ok)
	assert.Equal(t, models.ChallengeDaily, challenge.Type)
}

func TestTaskPointsDefaultToBaseline(t *testing.T) {
	catalog := NewCatalogProvider()
	assert.Equal(t, int64(100), catalog.PointsForTask(TaskISOSubmission))
	assert.Equal(t, int64(DefaultTaskPoints), catalog.PointsForTask("never_seen_before"))
}

func TestCatalogIsRoleScoped(t *testing.T) {
	catalog := NewCatalogProvider()

	studentIDs := make(map[string]bool)
	for _, a := range catalog.AchievementsFor(RoleStudent) {
		studentIDs[a.ID] = true
	}
	assert.True(t, studentIDs["resource-collector"]) // common entry
	assert.False(t, studentIDs["iso-champion"])
	assert.False(t, studentIDs["recognition-master"])

	adminIDs := make(map[string]bool)
	for _, a := range catalog.AchievementsFor(RoleSchoolAdmin) {
		adminIDs[a.ID] = true
	}
	assert.True(t, adminIDs["resource-collector"])
	assert.True(t, adminIDs["iso-champion"])
}

func TestTaskRoutingFansOut(t *testing.T) {
	catalog := NewCatalogProvider()

	// A document download advances one achievement and two challenges for a
	// student.
	achievements := catalog.AchievementsForTask(RoleStudent, TaskDocumentDownloaded)
	require.Len(t, achievements, 1)
	assert.Equal(t, "resource-collector", achievements[0].ID)

	challenges := catalog.ChallengesForTask(RoleStudent, TaskDocumentDownloaded)
	ids := make(map[string]bool)
	for _, c := range challenges {
		ids[c.ID] = true
	}
	assert.True(t, ids["paper-trail"])
	assert.True(t, ids["weekly-collector"])

	assert.Empty(t, catalog.AchievementsForTask(RoleStudent, "never_seen_before"))
}

func TestChallengeDurations(t *testing.T) {
	catalog := NewCatalogProvider()
	assert.Equal(t, 24*time.Hour, catalog.DurationFor(models.ChallengeDaily))
	assert.Equal(t, 7*24*time.Hour, catalog.DurationFor(models.ChallengeWeekly))
	assert.Equal(t, 30*24*time.Hour, catalog.DurationFor(models.ChallengeMonthly))
}
