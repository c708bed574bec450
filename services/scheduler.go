// services/scheduler.go
package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// StartReissueSweep pre-issues the next period's row for challenges that
// expired incomplete, so dashboards see a fresh period without waiting for
// user traffic. The lazy re-issue path in Apply/StatusesFor stays
// authoritative; disabling the sweep changes nothing semantically.
func (s *ChallengeService) StartReissueSweep() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			ctx := context.Background()
			now := s.now()
			rows, err := s.progress.ExpiredNeedingReissue(ctx, now)
			if err != nil {
				s.log.Error("challenge sweep query failed", zap.Error(err))
				return
			}
			for _, row := range rows {
				def, ok := s.catalog.Challenge(row.ChallengeID)
				if !ok {
					continue // definition removed from the catalog
				}
				if _, err := s.ensureCurrentRow(ctx, row.ExternalUserID, def); err != nil {
					s.log.Error("challenge re-issue failed",
						zap.String("user_id", row.ExternalUserID),
						zap.String("challenge_id", row.ChallengeID),
						zap.Error(err))
				}
			}
			if len(rows) > 0 {
				s.log.Info("challenge sweep re-issued rows", zap.Int("count", len(rows)))
			}
		}),
	)
}
