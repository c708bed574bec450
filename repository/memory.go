package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"school-progression-service/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of every repository, with the
// same atomic-add / conditional-write semantics as the Postgres one. It backs
// the service tests, including the concurrent completion races.
type MemoryStore struct {
	mu sync.Mutex

	users        map[string]models.PortalUser               // external user ID → user
	profiles     map[string]*models.UserProgress            // external user ID → profile
	achievements map[string]*models.UserAchievementProgress // userID + "/" + achievementID
	challenges   map[string]*models.UserChallengeProgress   // row ID
	activity     []models.ActivityLog
	badgeTypes   map[string]models.BadgeType // badge type ID
	userBadges   []models.UserBadge
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]models.PortalUser),
		profiles:     make(map[string]*models.UserProgress),
		achievements: make(map[string]*models.UserAchievementProgress),
		challenges:   make(map[string]*models.UserChallengeProgress),
		badgeTypes:   make(map[string]models.BadgeType),
	}
}

func (s *MemoryStore) Users() UserRepo                       { return &memoryUsers{s} }
func (s *MemoryStore) Profiles() ProfileRepo                 { return &memoryProfiles{s} }
func (s *MemoryStore) Achievements() AchievementProgressRepo { return &memoryAchievements{s} }
func (s *MemoryStore) Challenges() ChallengeProgressRepo     { return &memoryChallenges{s} }
func (s *MemoryStore) Activity() ActivityLogRepo             { return &memoryActivity{s} }
func (s *MemoryStore) Ledger() LedgerRepo                    { return &memoryLedger{s} }
func (s *MemoryStore) Badges() BadgeRepo                     { return &memoryBadges{s} }

type memoryUsers struct{ s *MemoryStore }

func (r *memoryUsers) Get(ctx context.Context, externalUserID string) (*models.PortalUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[externalUserID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := user
	return &copied, nil
}

func (r *memoryUsers) Exists(ctx context.Context, externalUserID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.users[externalUserID]
	return ok, nil
}

func (r *memoryUsers) Upsert(ctx context.Context, users []models.PortalUser) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range users {
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		r.s.users[u.ExternalUserID] = u
	}
	return nil
}

type memoryProfiles struct{ s *MemoryStore }

func (r *memoryProfiles) Get(ctx context.Context, externalUserID string) (*models.UserProgress, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	profile, ok := r.s.profiles[externalUserID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *profile
	return &copied, nil
}

func (r *memoryProfiles) Create(ctx context.Context, profile *models.UserProgress) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.profiles[profile.ExternalUserID]; exists {
		return nil // ON CONFLICT DO NOTHING
	}
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	copied := *profile
	r.s.profiles[profile.ExternalUserID] = &copied
	return nil
}

func (r *memoryProfiles) AddPoints(ctx context.Context, externalUserID string, points int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	profile, ok := r.s.profiles[externalUserID]
	if !ok {
		return ErrNotFound
	}
	profile.TotalPoints += points
	profile.LastActivityAt = &at
	return nil
}

func (r *memoryProfiles) CountWithMorePoints(ctx context.Context, points int64, schoolID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, p := range r.s.profiles {
		if schoolID != "" && p.SchoolID != schoolID {
			continue
		}
		if p.TotalPoints > points {
			count++
		}
	}
	return count, nil
}

type memoryAchievements struct{ s *MemoryStore }

func achievementKey(externalUserID, achievementID string) string {
	return externalUserID + "/" + achievementID
}

func (r *memoryAchievements) ListByUser(ctx context.Context, externalUserID string) ([]models.UserAchievementProgress, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var rows []models.UserAchievementProgress
	for _, row := range r.s.achievements {
		if row.ExternalUserID == externalUserID {
			rows = append(rows, *row)
		}
	}
	return rows, nil
}

func (r *memoryAchievements) Seed(ctx context.Context, rows []models.UserAchievementProgress) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range rows {
		key := achievementKey(row.ExternalUserID, row.AchievementID)
		if _, exists := r.s.achievements[key]; exists {
			continue
		}
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		copied := row
		r.s.achievements[key] = &copied
	}
	return nil
}

func (r *memoryAchievements) Increment(ctx context.Context, externalUserID, achievementID string, target int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.achievements[achievementKey(externalUserID, achievementID)]
	if !ok || row.Completed {
		return nil
	}
	if row.Progress < target {
		row.Progress++
	}
	return nil
}

func (r *memoryAchievements) Complete(ctx context.Context, externalUserID, achievementID string, target int64, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.achievements[achievementKey(externalUserID, achievementID)]
	if !ok || row.Completed || row.Progress < target {
		return false, nil
	}
	row.Completed = true
	row.Claimed = true
	completedAt := at
	row.CompletedAt = &completedAt
	return true, nil
}

type memoryChallenges struct{ s *MemoryStore }

func (r *memoryChallenges) ListByUser(ctx context.Context, externalUserID string) ([]models.UserChallengeProgress, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var rows []models.UserChallengeProgress
	for _, row := range r.s.challenges {
		if row.ExternalUserID == externalUserID {
			rows = append(rows, *row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return rows, nil
}

func (r *memoryChallenges) Latest(ctx context.Context, externalUserID, challengeID string) (*models.UserChallengeProgress, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *models.UserChallengeProgress
	for _, row := range r.s.challenges {
		if row.ExternalUserID != externalUserID || row.ChallengeID != challengeID {
			continue
		}
		if latest == nil || row.Deadline.After(latest.Deadline) {
			latest = row
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (r *memoryChallenges) Create(ctx context.Context, row *models.UserChallengeProgress) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.challenges {
		if existing.ExternalUserID == row.ExternalUserID &&
			existing.ChallengeID == row.ChallengeID &&
			existing.PeriodKey == row.PeriodKey {
			return nil // ON CONFLICT DO NOTHING
		}
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	copied := *row
	r.s.challenges[row.ID] = &copied
	return nil
}

func (r *memoryChallenges) Increment(ctx context.Context, rowID string, target int64, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.challenges[rowID]
	if !ok || row.Completed || !row.Deadline.After(now) {
		return nil
	}
	if row.Progress < target {
		row.Progress++
	}
	return nil
}

func (r *memoryChallenges) Complete(ctx context.Context, rowID string, target int64, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.challenges[rowID]
	if !ok || row.Completed || row.Progress < target || !row.Deadline.After(at) {
		return false, nil
	}
	row.Completed = true
	completedAt := at
	row.CompletedAt = &completedAt
	return true, nil
}

func (r *memoryChallenges) ExpiredNeedingReissue(ctx context.Context, now time.Time) ([]models.UserChallengeProgress, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	latest := make(map[string]*models.UserChallengeProgress)
	for _, row := range r.s.challenges {
		key := row.ExternalUserID + "/" + row.ChallengeID
		if cur, ok := latest[key]; !ok || row.Deadline.After(cur.Deadline) {
			latest[key] = row
		}
	}
	var rows []models.UserChallengeProgress
	for _, row := range latest {
		if !row.Completed && !row.Deadline.After(now) {
			rows = append(rows, *row)
		}
	}
	return rows, nil
}

type memoryLedger struct{ s *MemoryStore }

func (r *memoryLedger) Record(ctx context.Context, entry *models.ActivityLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	profile, ok := r.s.profiles[entry.ExternalUserID]
	if !ok {
		return ErrNotFound
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	profile.TotalPoints += entry.Points
	at := entry.CreatedAt
	profile.LastActivityAt = &at
	r.s.activity = append(r.s.activity, *entry)
	return nil
}

type memoryActivity struct{ s *MemoryStore }

func (r *memoryActivity) Append(ctx context.Context, entry *models.ActivityLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.s.activity = append(r.s.activity, *entry)
	return nil
}

func (r *memoryActivity) Recent(ctx context.Context, externalUserID string, limit int) ([]models.ActivityLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var entries []models.ActivityLog
	for _, e := range r.s.activity {
		if e.ExternalUserID == externalUserID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *memoryActivity) ListByTypeSince(ctx context.Context, externalUserID, entryType string, since time.Time) ([]models.ActivityLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var entries []models.ActivityLog
	for _, e := range r.s.activity {
		if e.ExternalUserID == externalUserID && e.Type == entryType && !e.CreatedAt.Before(since) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	return entries, nil
}

func (r *memoryActivity) SumPointsSince(ctx context.Context, externalUserID string, since time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var total int64
	for _, e := range r.s.activity {
		if e.ExternalUserID == externalUserID && !e.CreatedAt.Before(since) {
			total += e.Points
		}
	}
	return total, nil
}

func (r *memoryActivity) SumPoints(ctx context.Context, externalUserID string) (int64, error) {
	return r.SumPointsSince(ctx, externalUserID, time.Time{})
}

type memoryBadges struct{ s *MemoryStore }

func (r *memoryBadges) ListByUser(ctx context.Context, externalUserID string) ([]models.BadgeView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var views []models.BadgeView
	for _, ub := range r.s.userBadges {
		if ub.ExternalUserID != externalUserID {
			continue
		}
		bt := r.s.badgeTypes[ub.BadgeTypeID]
		views = append(views, models.BadgeView{
			ID:        ub.ID,
			Code:      bt.Code,
			Name:      bt.Name,
			Rarity:    bt.Rarity,
			IconURL:   bt.IconURL,
			AwardedAt: ub.AwardedAt,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].AwardedAt.After(views[j].AwardedAt) })
	return views, nil
}

func (r *memoryBadges) CreateType(ctx context.Context, badgeType *models.BadgeType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if badgeType.ID == "" {
		badgeType.ID = uuid.NewString()
	}
	r.s.badgeTypes[badgeType.ID] = *badgeType
	return nil
}

func (r *memoryBadges) GetTypeByCode(ctx context.Context, code string) (*models.BadgeType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, bt := range r.s.badgeTypes {
		if bt.Code == code {
			copied := bt
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryBadges) Award(ctx context.Context, badge *models.UserBadge) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if badge.ID == "" {
		badge.ID = uuid.NewString()
	}
	if badge.AwardedAt.IsZero() {
		badge.AwardedAt = time.Now()
	}
	r.s.userBadges = append(r.s.userBadges, *badge)
	return nil
}
