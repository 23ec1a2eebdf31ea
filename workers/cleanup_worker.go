package workers

import (
	"context"
	"log"
	"time"

	"sk8-backend/models"
	"sk8-backend/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChallengeReaper expires pending challenges nobody accepted. A match owns
// its clips, so archival enumerates and removes them explicitly — rows in the
// same transaction, objects from S3 after commit.
type ChallengeReaper struct {
	DB     *gorm.DB
	MaxAge time.Duration
}

func NewChallengeReaper(db *gorm.DB, maxAge time.Duration) *ChallengeReaper {
	return &ChallengeReaper{DB: db, MaxAge: maxAge}
}

// PollStaleChallenges sweeps until ctx is cancelled.
func PollStaleChallenges(ctx context.Context, reaper *ChallengeReaper, pollInterval time.Duration) {
	log.Println("Starting stale challenge reaper...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Challenge reaper stopped.")
			return
		case <-ticker.C:
			if err := reaper.SweepOnce(ctx); err != nil {
				log.Printf("❌ Challenge reaper sweep failed: %v", err)
			}
		}
	}
}

// SweepOnce abandons every pending match older than MaxAge.
func (r *ChallengeReaper) SweepOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-r.MaxAge)

	var stale []models.Match
	if err := r.DB.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.MatchPending, cutoff).
		Find(&stale).Error; err != nil {
		return err
	}

	if len(stale) == 0 {
		return nil
	}
	log.Printf("📥 Found %d stale challenge(s) to expire.", len(stale))

	for i := range stale {
		if err := r.expire(ctx, stale[i].ID); err != nil {
			log.Printf("❌ Failed to expire challenge match %s: %v", stale[i].ID, err)
			continue
		}
		log.Printf("✅ Expired stale challenge match %s", stale[i].ID)
	}
	return nil
}

func (r *ChallengeReaper) expire(ctx context.Context, matchID string) error {
	var orphanKeys []string

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.Match
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&m, "id = ?", matchID).Error; err != nil {
			return err
		}
		// Someone accepted between the sweep query and the lock.
		if m.Status != models.MatchPending {
			return nil
		}

		var clips []models.Clip
		if err := tx.Where("match_id = ?", m.ID).Find(&clips).Error; err != nil {
			return err
		}
		for j := range clips {
			if key, ok := clips[j].ExtraData["object_key"].(string); ok && key != "" {
				orphanKeys = append(orphanKeys, key)
			}
		}
		if len(clips) > 0 {
			if err := tx.Where("match_id = ?", m.ID).Delete(&models.Clip{}).Error; err != nil {
				return err
			}
		}

		m.Status = models.MatchAbandoned
		return tx.Save(&m).Error
	})
	if err != nil {
		return err
	}

	// Object removal is best-effort after the rows are gone; a leaked object
	// costs storage, a dangling row costs correctness.
	for _, key := range orphanKeys {
		if err := utils.DeleteClipObject(ctx, key); err != nil {
			log.Printf("⚠️ Failed to delete orphaned clip object %s: %v", key, err)
		}
	}
	return nil
}
