package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"time"

	"sk8-backend/config"
	"sk8-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MatchService owns the externally callable match operations: create, accept
// challenge, forfeit, timeout-checked reads. All state mutation runs inside a
// transaction holding a row lock on the match, so the two players' clients
// serialize against each other per match.
type MatchService struct {
	DB    *gorm.DB
	rules matchRules
}

func NewMatchService(db *gorm.DB, cfg config.Config) *MatchService {
	return &MatchService{
		DB: db,
		rules: matchRules{
			geo:           GeoValidator{RadiusMiles: cfg.GPSRadiusMiles},
			maxLetters:    cfg.MaxLetters,
			normalTimeout: cfg.NormalModeTimeout,
			longTimeout:   cfg.LongModeTimeout,
		},
	}
}

// CreateMatchRequest is the direct-pairing payload: both players known up
// front, match starts active with player1 (the caller) setting first.
type CreateMatchRequest struct {
	OpponentID string  `json:"opponent_id"`
	Mode       string  `json:"mode"`
	GPSLat     float64 `json:"gps_lat"`
	GPSLng     float64 `json:"gps_lng"`
}

// ChallengeRequest creates a pending match awaiting a second player.
type ChallengeRequest struct {
	Mode   string  `json:"mode"`
	GPSLat float64 `json:"gps_lat"`
	GPSLng float64 `json:"gps_lng"`
}

// CreateMatch creates an active match between the caller and a known opponent.
func (s *MatchService) CreateMatch(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req CreateMatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.OpponentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "opponent_id is required"})
	}
	if req.OpponentID == userID {
		return fail(c, ErrSelfChallengeCreate)
	}
	mode, err := normalizeMode(req.Mode)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	now := time.Now().UTC()
	match := &models.Match{
		ID:                uuid.NewString(),
		Player1ID:         userID,
		Player2ID:         &req.OpponentID,
		Mode:              mode,
		Status:            models.MatchActive,
		CurrentTurnUserID: &userID, // P1 sets the first trick
		GPSAnchorLat:      req.GPSLat,
		GPSAnchorLng:      req.GPSLng,
		StartedAt:         &now,
		LastActivity:      &now,
	}

	if err := s.DB.Create(match).Error; err != nil {
		log.Printf("❌ [MATCH] failed to create match: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create match"})
	}

	return c.Status(fiber.StatusCreated).JSON(match)
}

// CreateChallenge creates a pending match and returns a shareable challenge
// code (QR/link). The code lives in the match's extra data until accepted.
func (s *MatchService) CreateChallenge(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req ChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	mode, err := normalizeMode(req.Mode)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	code, err := newChallengeCode()
	if err != nil {
		log.Printf("❌ [MATCH] failed to generate challenge code: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create challenge"})
	}

	match := &models.Match{
		ID:           uuid.NewString(),
		Player1ID:    userID,
		Mode:         mode,
		Status:       models.MatchPending,
		GPSAnchorLat: req.GPSLat,
		GPSAnchorLng: req.GPSLng,
		ExtraData:    map[string]any{"challenge_code": code},
	}

	if err := s.DB.Create(match).Error; err != nil {
		log.Printf("❌ [MATCH] failed to create challenge: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create challenge"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"match_id":       match.ID,
		"challenge_code": code,
		"share_url":      fmt.Sprintf("sk8://challenge/%s", code),
		"mode":           match.Mode,
	})
}

// AcceptChallenge binds the caller as player2 and activates the match.
func (s *MatchService) AcceptChallenge(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	code := c.Params("code")

	var match *models.Match
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		m, err := findChallenge(tx, code)
		if err != nil {
			return err
		}
		if m.Player1ID == userID {
			return ErrSelfChallenge
		}

		now := time.Now().UTC()
		m.Player2ID = &userID
		m.Status = models.MatchActive
		m.CurrentTurnUserID = &m.Player1ID // P1 sets the first trick
		m.StartedAt = &now
		m.LastActivity = &now

		if err := tx.Save(m).Error; err != nil {
			return err
		}
		match = m
		return nil
	})
	if err != nil {
		if isRuleError(err) {
			return fail(c, err)
		}
		log.Printf("❌ [MATCH] failed to accept challenge %s: %v", code, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to accept challenge"})
	}

	return c.JSON(match)
}

// GetMatch returns a match after the lazy timeout check. Only participants
// may read a match.
func (s *MatchService) GetMatch(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	matchID := c.Params("id")

	match, err := s.GetMatchChecked(matchID)
	if err != nil {
		if isRuleError(err) {
			return fail(c, err)
		}
		log.Printf("❌ [MATCH] failed to load match %s: %v", matchID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	if !match.IsParticipant(userID) {
		return fail(c, ErrNotParticipant)
	}

	return c.JSON(match)
}

// GetActiveMatches lists the caller's active matches, most recent activity
// first.
func (s *MatchService) GetActiveMatches(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var matches []models.Match
	err := s.DB.
		Where("(player1_id = ? OR player2_id = ?) AND status = ?", userID, userID, models.MatchActive).
		Order("last_activity DESC").
		Find(&matches).Error
	if err != nil {
		log.Printf("❌ [MATCH] failed to list active matches: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	return c.JSON(fiber.Map{"matches": matches, "total": len(matches)})
}

// GetMatchHistory lists the caller's completed matches with limit/offset
// paging.
func (s *MatchService) GetMatchHistory(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	base := s.DB.Model(&models.Match{}).
		Where("(player1_id = ? OR player2_id = ?) AND status = ?", userID, userID, models.MatchCompleted)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		log.Printf("❌ [MATCH] failed to count match history: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	var matches []models.Match
	err := s.DB.
		Where("(player1_id = ? OR player2_id = ?) AND status = ?", userID, userID, models.MatchCompleted).
		Order("completed_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&matches).Error
	if err != nil {
		log.Printf("❌ [MATCH] failed to list match history: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	return c.JSON(fiber.Map{"matches": matches, "total": total})
}

// Forfeit concedes an active match.
func (s *MatchService) Forfeit(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	matchID := c.Params("id")

	var match *models.Match
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		m, err := lockMatch(tx, matchID)
		if err != nil {
			return err
		}
		if err := s.forfeitLocked(tx, m, userID); err != nil {
			return err
		}
		match = m
		return nil
	})
	if err != nil {
		if isRuleError(err) {
			return fail(c, err)
		}
		log.Printf("❌ [MATCH] failed to forfeit match %s: %v", matchID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to forfeit match"})
	}

	return c.JSON(match)
}

// GetMatchChecked loads a match and resolves a silent timeout first. Callers
// must go through this before trusting match state for turn decisions — a
// timed-out match is only forfeited the next time somebody reads it.
func (s *MatchService) GetMatchChecked(matchID string) (*models.Match, error) {
	var match models.Match
	if err := s.DB.First(&match, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	if !s.rules.timedOut(&match, time.Now().UTC()) {
		return &match, nil
	}

	// Current turn-holder defaulted. Re-check under the row lock — another
	// caller may have resolved it first.
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		m, err := lockMatch(tx, matchID)
		if err != nil {
			return err
		}
		if !s.rules.timedOut(m, time.Now().UTC()) {
			match = *m
			return nil
		}
		if err := s.forfeitLocked(tx, m, *m.CurrentTurnUserID); err != nil {
			return err
		}
		log.Printf("⏰ [MATCH] match %s timed out, %s forfeits", m.ID, *m.CurrentTurnUserID)
		match = *m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// forfeitLocked applies a forfeit to a match already locked in tx and settles
// stats in the same transaction.
func (s *MatchService) forfeitLocked(tx *gorm.DB, m *models.Match, forfeitingUserID string) error {
	if err := s.rules.applyForfeit(m, forfeitingUserID, time.Now().UTC()); err != nil {
		return err
	}
	return s.settleLocked(tx, m)
}

// settleLocked persists a concluded match and applies stat deltas to both
// players atomically. Safe to call when the match is not (yet) concluded.
func (s *MatchService) settleLocked(tx *gorm.DB, m *models.Match) error {
	if m.WinnerID != nil && !m.StatsApplied {
		loserID := m.Player1ID
		if *m.WinnerID == m.Player1ID {
			loserID = *m.Player2ID
		}

		var winner, loser models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&winner, "id = ?", *m.WinnerID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&loser, "id = ?", loserID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		s.rules.applyStats(m, &winner, &loser)

		if winner.ID != "" {
			if err := tx.Save(&winner).Error; err != nil {
				return err
			}
		}
		if loser.ID != "" {
			if err := tx.Save(&loser).Error; err != nil {
				return err
			}
		}
	}

	return tx.Save(m).Error
}

// lockMatch loads a match under SELECT ... FOR UPDATE so concurrent
// operations on the same match serialize.
func lockMatch(tx *gorm.DB, matchID string) (*models.Match, error) {
	var match models.Match
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&match, "id = ?", matchID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &match, nil
}

// findChallenge scans pending matches for the one carrying the code. Codes
// live in the JSON extra data, so this is a filter rather than an index hit.
func findChallenge(tx *gorm.DB, code string) (*models.Match, error) {
	var pending []models.Match
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("status = ?", models.MatchPending).
		Find(&pending).Error; err != nil {
		return nil, err
	}

	for i := range pending {
		if pending[i].ExtraData != nil && pending[i].ExtraData["challenge_code"] == code {
			return &pending[i], nil
		}
	}
	return nil, ErrChallengeNotFound
}

// newChallengeCode returns a short url-safe token for sharing a challenge.
func newChallengeCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func normalizeMode(mode string) (string, error) {
	switch mode {
	case "", models.ModeNormal:
		return models.ModeNormal, nil
	case models.ModeLong:
		return models.ModeLong, nil
	default:
		return "", fmt.Errorf("invalid mode %q (must be 'normal' or 'long')", mode)
	}
}

// isRuleError reports whether err belongs to the game-rule taxonomy rather
// than infrastructure.
func isRuleError(err error) bool {
	var ge *GameError
	var invalid *InvalidStateError
	var judged *AlreadyJudgedError
	var geo *GeoOutOfRangeError
	return errors.As(err, &ge) || errors.As(err, &invalid) || errors.As(err, &judged) || errors.As(err, &geo)
}
