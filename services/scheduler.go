// services/scheduler.go
package services

import (
	"log"
	"time"

	"sk8-backend/models"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// StartTimeoutScheduler runs a periodic sweep over active matches and
// forfeits any whose turn-holder has exceeded the timeout window. The lazy
// check-on-read in GetMatchChecked remains the contract; the sweep just keeps
// matches from sitting "active but dead" between reads.
func (s *MatchService) StartTimeoutScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			now := time.Now().UTC()

			var stale []models.Match
			err := s.DB.
				Where("status = ? AND last_activity IS NOT NULL", models.MatchActive).
				Where(
					s.DB.Where("mode = ? AND last_activity < ?", models.ModeNormal, now.Add(-s.rules.normalTimeout)).
						Or("mode = ? AND last_activity < ?", models.ModeLong, now.Add(-s.rules.longTimeout)),
				).
				Find(&stale).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for i := range stale {
				id := stale[i].ID
				err := s.DB.Transaction(func(tx *gorm.DB) error {
					m, err := lockMatch(tx, id)
					if err != nil {
						return err
					}
					// Re-check under the lock: a concurrent read may have
					// already resolved the timeout.
					if !s.rules.timedOut(m, time.Now().UTC()) {
						return nil
					}
					return s.forfeitLocked(tx, m, *m.CurrentTurnUserID)
				})
				if err != nil {
					log.Printf("[Scheduler] Failed to forfeit timed-out match %s: %v", id, err)
				} else {
					log.Printf("⏰ Auto-forfeited timed-out match: %s", id)
				}
			}
		}),
	)
}
