package services

import (
	"errors"
	"log"
	"time"

	"sk8-backend/config"
	"sk8-backend/models"
	"sk8-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClipService handles the clip lifecycle: presigned upload handout, upload
// completion (which drives the trick-set / trick-attempt rules) and judging.
type ClipService struct {
	DB      *gorm.DB
	matches *MatchService
	cfg     config.Config
}

func NewClipService(db *gorm.DB, matches *MatchService, cfg config.Config) *ClipService {
	return &ClipService{DB: db, matches: matches, cfg: cfg}
}

// ClipUploadRequest initializes a clip upload.
type ClipUploadRequest struct {
	MatchID          string  `json:"match_id"`
	ClipType         string  `json:"clip_type"`
	GPSLat           float64 `json:"gps_lat"`
	GPSLng           float64 `json:"gps_lng"`
	DurationSeconds  float64 `json:"duration_seconds"`
	FileSizeBytes    int64   `json:"file_size_bytes"`
	TrickName        string  `json:"trick_name"`
	TrickDescription string  `json:"trick_description"`
}

// ClipJudgementRequest resolves a pending attempt.
type ClipJudgementRequest struct {
	ClipID   string `json:"clip_id"`
	Approved bool   `json:"approved"`
}

// InitUpload validates the clip metadata, records the clip row and returns a
// presigned S3 PUT URL. The client uploads straight to S3 and then calls
// CompleteUpload.
func (s *ClipService) InitUpload(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req ClipUploadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	if req.ClipType != models.ClipTrickSet && req.ClipType != models.ClipTrickMatch {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "clip_type must be 'trick_set' or 'trick_match'"})
	}
	if err := utils.ValidateClipDuration(req.DurationSeconds, s.cfg.MaxClipDurationSeconds); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := utils.ValidateClipSize(req.FileSizeBytes, s.cfg.MaxClipSizeMB); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := utils.ValidateGPSCoordinates(req.GPSLat, req.GPSLng); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	match, err := s.matches.GetMatchChecked(req.MatchID)
	if err != nil {
		if isRuleError(err) {
			return fail(c, err)
		}
		log.Printf("❌ [CLIP] failed to load match %s: %v", req.MatchID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	// Turn legality is re-validated under the lock at completion; this early
	// check just keeps dead uploads off S3.
	if err := s.matches.rules.validateTurn(match, userID); err != nil {
		return fail(c, err)
	}

	clipID := uuid.NewString()
	key := utils.ClipKey(clipID, req.TrickName)

	clip := &models.Clip{
		ID:               clipID,
		MatchID:          match.ID,
		UserID:           userID,
		ClipType:         req.ClipType,
		Status:           models.ClipPending,
		GPSLat:           req.GPSLat,
		GPSLng:           req.GPSLng,
		DurationSeconds:  req.DurationSeconds,
		FileSizeBytes:    req.FileSizeBytes,
		TrickName:        req.TrickName,
		TrickDescription: req.TrickDescription,
		RecordedAt:       time.Now().UTC(),
		// Object key recorded so completion/cleanup can find the video.
		ExtraData: map[string]any{"object_key": key},
	}

	if err := s.DB.Create(clip).Error; err != nil {
		log.Printf("❌ [CLIP] failed to create clip: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create clip"})
	}

	uploadURL, err := utils.GenerateClipUploadURL(c.Context(), key, s.cfg.UploadURLExpiry)
	if err != nil {
		log.Printf("❌ [CLIP] failed to presign upload for clip %s: %v", clip.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to generate upload URL"})
	}

	return c.JSON(fiber.Map{
		"clip_id":    clip.ID,
		"upload_url": uploadURL,
		"expires_in": int(s.cfg.UploadURLExpiry.Seconds()),
	})
}

// CompleteUpload marks the upload done and runs the game rules for the clip
// type: a trick_set is auto-approved and flips the turn, a trick_match stays
// pending for judgement. On a geofence miss the clip keeps its stamped
// distance and gps_verified=false, but the match is untouched.
func (s *ClipService) CompleteUpload(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	clipID := c.Params("id")

	var clip models.Clip
	if err := s.DB.First(&clip, "id = ?", clipID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, ErrClipNotFound)
		}
		log.Printf("❌ [CLIP] failed to load clip %s: %v", clipID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	if clip.UserID != userID {
		return fail(c, ErrNotYourClip)
	}

	clip.VideoURL = utils.ClipPlaybackURL(s.objectKey(&clip))

	var geoErr error
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		m, err := lockMatch(tx, clip.MatchID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		var applyErr error
		if clip.ClipType == models.ClipTrickSet {
			applyErr = s.matches.rules.applySet(m, &clip, userID, now)
		} else {
			applyErr = s.matches.rules.applyAttempt(m, &clip, userID, now)
		}

		if applyErr != nil {
			var geo *GeoOutOfRangeError
			if errors.As(applyErr, &geo) {
				// Keep the stamped distance/verdict on record even though
				// the submission is rejected.
				geoErr = applyErr
				return tx.Save(&clip).Error
			}
			return applyErr
		}

		if err := tx.Save(&clip).Error; err != nil {
			return err
		}
		return tx.Save(m).Error
	})
	if err != nil {
		if isRuleError(err) {
			return fail(c, err)
		}
		log.Printf("❌ [CLIP] failed to complete upload for clip %s: %v", clipID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to complete upload"})
	}
	if geoErr != nil {
		return fail(c, geoErr)
	}

	return c.JSON(clip)
}

// JudgeClip resolves an opponent's pending attempt and returns the updated
// match. Rejection hands out a letter and can complete the match, settling
// stats in the same transaction.
func (s *ClipService) JudgeClip(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req ClipJudgementRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	var match *models.Match
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var clip models.Clip
		if err := tx.First(&clip, "id = ?", req.ClipID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrClipNotFound
			}
			return err
		}

		m, err := lockMatch(tx, clip.MatchID)
		if err != nil {
			return err
		}

		if _, err := s.matches.rules.applyJudgement(m, &clip, userID, req.Approved, time.Now().UTC()); err != nil {
			return err
		}

		if err := tx.Save(&clip).Error; err != nil {
			return err
		}
		if err := s.matches.settleLocked(tx, m); err != nil {
			return err
		}
		match = m
		return nil
	})
	if err != nil {
		if isRuleError(err) {
			return fail(c, err)
		}
		log.Printf("❌ [CLIP] failed to judge clip %s: %v", req.ClipID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to judge clip"})
	}

	return c.JSON(match)
}

// GetMatchClips lists a match's clips in upload order.
func (s *ClipService) GetMatchClips(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	matchID := c.Params("match_id")

	var match models.Match
	if err := s.DB.First(&match, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, ErrMatchNotFound)
		}
		log.Printf("❌ [CLIP] failed to load match %s: %v", matchID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	if !match.IsParticipant(userID) {
		return fail(c, ErrNotParticipant)
	}

	var clips []models.Clip
	if err := s.DB.Where("match_id = ?", matchID).Order("uploaded_at ASC").Find(&clips).Error; err != nil {
		log.Printf("❌ [CLIP] failed to list clips for match %s: %v", matchID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	return c.JSON(fiber.Map{"clips": clips, "total": len(clips)})
}

// objectKey returns the S3 key recorded at upload init, falling back to the
// bare clip id for rows created before keys were stored.
func (s *ClipService) objectKey(clip *models.Clip) string {
	if clip.ExtraData != nil {
		if key, ok := clip.ExtraData["object_key"].(string); ok && key != "" {
			return key
		}
	}
	return utils.ClipKey(clip.ID, "")
}
