package services

import (
	"time"

	"school-progression-service/models"

	"github.com/gosimple/slug"
)

// Task types reported by the rest of the portal. Unknown types are still
// accepted and earn the default award.
const (
	TaskDailyLogin         = "daily_login"
	TaskDocumentDownloaded = "document_downloaded"
	TaskDocumentUploaded   = "document_uploaded"
	TaskMessageSent        = "message_sent"
	TaskClubRegistered     = "club_registered"
	TaskISOSubmission      = "iso_submission"
	TaskRecognitionSent    = "recognition_sent"
	TaskProfileCompleted   = "profile_completed"
)

// Portal roles. An empty Roles list on a definition means "every role".
const (
	RoleStudent     = "student"
	RoleTeacher     = "teacher"
	RoleCoordinator = "coordinator"
	RoleSchoolAdmin = "school_admin"
)

// TaskPointTable defines the award per task type (tunable via config later).
type TaskPointTable map[string]int64

// DefaultTaskPoints is the baseline for any task type not in the table.
const DefaultTaskPoints = 10

var DefaultTaskPointTable = TaskPointTable{
	TaskDailyLogin:         10,
	TaskDocumentDownloaded: 5,
	TaskDocumentUploaded:   20,
	TaskMessageSent:        5,
	TaskClubRegistered:     25,
	TaskISOSubmission:      100,
	TaskRecognitionSent:    15,
	TaskProfileCompleted:   50,
}

// Definition IDs are slugs of the titles, so config stays readable and the
// IDs stay stable ("ISO Champion" → "iso-champion").
func defID(title string) string {
	return slug.Make(title)
}

var defaultAchievements = []models.AchievementDefinition{
	{
		Title:       "First Steps",
		Description: "Completed your portal profile",
		Points:      50,
		Target:      1,
		Rarity:      "common",
		TaskTypes:   []string{TaskProfileCompleted},
	},
	{
		Title:       "Dedicated Learner",
		Description: "Logged in on 7 different days",
		Points:      100,
		Target:      7,
		Rarity:      "common",
		TaskTypes:   []string{TaskDailyLogin},
	},
	{
		Title:       "Resource Collector",
		Description: "Downloaded 10 documents",
		Points:      150,
		Target:      10,
		Rarity:      "rare",
		TaskTypes:   []string{TaskDocumentDownloaded},
	},
	{
		Title:       "Archivist",
		Description: "Uploaded 25 documents",
		Points:      200,
		Target:      25,
		Rarity:      "epic",
		TaskTypes:   []string{TaskDocumentUploaded},
	},
	{
		Title:       "Communicator",
		Description: "Sent 25 messages",
		Points:      100,
		Target:      25,
		Rarity:      "rare",
		TaskTypes:   []string{TaskMessageSent},
	},
	{
		Title:       "Club Enthusiast",
		Description: "Registered for 3 clubs",
		Points:      120,
		Target:      3,
		Rarity:      "rare",
		TaskTypes:   []string{TaskClubRegistered},
	},
	{
		Title:       "ISO Champion",
		Description: "Submitted 5 ISO compliance reviews",
		Points:      300,
		Target:      5,
		Rarity:      "epic",
		Roles:       []string{RoleSchoolAdmin},
		TaskTypes:   []string{TaskISOSubmission},
	},
	{
		Title:       "Recognition Master",
		Description: "Sent 10 student recognitions",
		Points:      250,
		Target:      10,
		Rarity:      "epic",
		Roles:       []string{RoleCoordinator},
		TaskTypes:   []string{TaskRecognitionSent},
	},
}

var defaultChallenges = []models.ChallengeDefinition{
	{
		Title:       "Show Up",
		Description: "Log in today",
		Type:        models.ChallengeDaily,
		Points:      20,
		Target:      1,
		TaskTypes:   []string{TaskDailyLogin},
	},
	{
		Title:       "Paper Trail",
		Description: "Download 3 documents today",
		Type:        models.ChallengeDaily,
		Points:      30,
		Target:      3,
		TaskTypes:   []string{TaskDocumentDownloaded},
	},
	{
		Title:       "Busy Week",
		Description: "Send 10 messages this week",
		Type:        models.ChallengeWeekly,
		Points:      75,
		Target:      10,
		TaskTypes:   []string{TaskMessageSent},
	},
	{
		Title:       "Weekly Collector",
		Description: "Download 5 documents this week",
		Type:        models.ChallengeWeekly,
		Points:      60,
		Target:      5,
		TaskTypes:   []string{TaskDocumentDownloaded},
	},
	{
		Title:       "Club Scout",
		Description: "Join a club this month",
		Type:        models.ChallengeMonthly,
		Points:      100,
		Target:      1,
		TaskTypes:   []string{TaskClubRegistered},
	},
	{
		Title:       "Compliance Sprint",
		Description: "Submit 3 ISO reviews this month",
		Type:        models.ChallengeMonthly,
		Points:      250,
		Target:      3,
		Roles:       []string{RoleSchoolAdmin},
		TaskTypes:   []string{TaskISOSubmission},
	},
}

var challengeDurations = map[models.ChallengeType]time.Duration{
	models.ChallengeDaily:   24 * time.Hour,
	models.ChallengeWeekly:  7 * 24 * time.Hour,
	models.ChallengeMonthly: 30 * 24 * time.Hour,
}

// CatalogProvider is the immutable, role-keyed view over the achievement and
// challenge catalogs plus the task point table. Built once at startup and
// injected into the engine; nothing here is runtime-editable.
type CatalogProvider struct {
	taskPoints   TaskPointTable
	achievements []models.AchievementDefinition
	challenges   []models.ChallengeDefinition

	achievementByID map[string]models.AchievementDefinition
	challengeByID   map[string]models.ChallengeDefinition
}

func NewCatalogProvider() *CatalogProvider {
	return NewCatalogProviderWith(DefaultTaskPointTable, defaultAchievements, defaultChallenges)
}

func NewCatalogProviderWith(points TaskPointTable, achievements []models.AchievementDefinition, challenges []models.ChallengeDefinition) *CatalogProvider {
	p := &CatalogProvider{
		taskPoints:      points,
		achievementByID: make(map[string]models.AchievementDefinition),
		challengeByID:   make(map[string]models.ChallengeDefinition),
	}
	for _, a := range achievements {
		if a.ID == "" {
			a.ID = defID(a.Title)
		}
		p.achievements = append(p.achievements, a)
		p.achievementByID[a.ID] = a
	}
	for _, c := range challenges {
		if c.ID == "" {
			c.ID = defID(c.Title)
		}
		p.challenges = append(p.challenges, c)
		p.challengeByID[c.ID] = c
	}
	return p
}

func roleApplies(roles []string, role string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func taskApplies(taskTypes []string, taskType string) bool {
	for _, t := range taskTypes {
		if t == taskType {
			return true
		}
	}
	return false
}

// PointsForTask returns the award for a task type, defaulting to
// DefaultTaskPoints for unrecognized types rather than rejecting them.
func (p *CatalogProvider) PointsForTask(taskType string) int64 {
	if points, ok := p.taskPoints[taskType]; ok {
		return points
	}
	return DefaultTaskPoints
}

func (p *CatalogProvider) AchievementsFor(role string) []models.AchievementDefinition {
	var defs []models.AchievementDefinition
	for _, a := range p.achievements {
		if roleApplies(a.Roles, role) {
			defs = append(defs, a)
		}
	}
	return defs
}

func (p *CatalogProvider) ChallengesFor(role string) []models.ChallengeDefinition {
	var defs []models.ChallengeDefinition
	for _, c := range p.challenges {
		if roleApplies(c.Roles, role) {
			defs = append(defs, c)
		}
	}
	return defs
}

// AchievementsForTask routes a task type to the achievements it advances for
// the given role. A task can advance several (role-specific and general ones).
func (p *CatalogProvider) AchievementsForTask(role, taskType string) []models.AchievementDefinition {
	var defs []models.AchievementDefinition
	for _, a := range p.AchievementsFor(role) {
		if taskApplies(a.TaskTypes, taskType) {
			defs = append(defs, a)
		}
	}
	return defs
}

func (p *CatalogProvider) ChallengesForTask(role, taskType string) []models.ChallengeDefinition {
	var defs []models.ChallengeDefinition
	for _, c := range p.ChallengesFor(role) {
		if taskApplies(c.TaskTypes, taskType) {
			defs = append(defs, c)
		}
	}
	return defs
}

func (p *CatalogProvider) Achievement(id string) (models.AchievementDefinition, bool) {
	a, ok := p.achievementByID[id]
	return a, ok
}

func (p *CatalogProvider) Challenge(id string) (models.ChallengeDefinition, bool) {
	c, ok := p.challengeByID[id]
	return c, ok
}

// DurationFor maps a challenge type to its row lifetime.
func (p *CatalogProvider) DurationFor(t models.ChallengeType) time.Duration {
	if d, ok := challengeDurations[t]; ok {
		return d
	}
	return challengeDurations[models.ChallengeDaily]
}
