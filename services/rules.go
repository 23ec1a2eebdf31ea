package services

import (
	"time"

	"sk8-backend/models"
)

// matchRules is the SKATE state machine: turn ownership, letter accumulation,
// judging, forfeits and timeouts. It mutates model structs in memory only —
// persistence is the orchestrator's job, committed atomically per match.
type matchRules struct {
	geo           GeoValidator
	maxLetters    int
	normalTimeout time.Duration
	longTimeout   time.Duration
}

// validateTurn checks the match is active and it is userID's turn.
func (r matchRules) validateTurn(m *models.Match, userID string) error {
	if m.Status != models.MatchActive {
		return &InvalidStateError{Status: m.Status}
	}
	if m.CurrentTurnUserID == nil || *m.CurrentTurnUserID != userID {
		return ErrNotYourTurn
	}
	return nil
}

// switchTurn hands the turn to toUserID and refreshes activity.
func (r matchRules) switchTurn(m *models.Match, toUserID string, now time.Time) {
	m.CurrentTurnUserID = &toUserID
	m.LastActivity = &now
}

// completeMatch moves the match to completed with the given winner.
func (r matchRules) completeMatch(m *models.Match, winnerID string, now time.Time) {
	m.Status = models.MatchCompleted
	m.WinnerID = &winnerID
	m.CompletedAt = &now
}

// applyLetter gives userID a letter. Reaching the full word completes the
// match with the other player as winner. Returns true if that happened.
func (r matchRules) applyLetter(m *models.Match, userID string, now time.Time) bool {
	if userID == m.Player1ID {
		m.Player1Letters++
	} else {
		m.Player2Letters++
	}
	return r.checkWin(m, now)
}

// checkWin completes the match if either player has spelled out the word.
// Idempotent: an already-completed match is left alone.
func (r matchRules) checkWin(m *models.Match, now time.Time) bool {
	if m.Status != models.MatchActive {
		return false
	}
	if m.Player1Letters >= r.maxLetters {
		r.completeMatch(m, *m.Player2ID, now)
		return true
	}
	if m.Player2Letters >= r.maxLetters {
		r.completeMatch(m, m.Player1ID, now)
		return true
	}
	return false
}

// stampGeo writes the geofence verdict onto the clip and rejects submissions
// outside the fence. Distance is stamped regardless of the outcome.
func (r matchRules) stampGeo(m *models.Match, clip *models.Clip) error {
	ok, distance := r.geo.Validate(m, clip.GPSLat, clip.GPSLng)
	clip.GPSDistanceFromAnchorMiles = distance
	clip.GPSVerified = ok
	if !ok {
		return &GeoOutOfRangeError{DistanceMiles: distance, LimitMiles: r.geo.RadiusMiles}
	}
	return nil
}

// applySet processes a trick_set clip: the turn-holder establishes the trick
// the opponent must match. The set clip is auto-approved and the turn passes
// to the opponent.
func (r matchRules) applySet(m *models.Match, clip *models.Clip, userID string, now time.Time) error {
	if clip.Status != models.ClipPending || clip.JudgedAt != nil {
		// Replayed completion of an already judged clip.
		return &AlreadyJudgedError{Status: clip.Status}
	}
	if err := r.validateTurn(m, userID); err != nil {
		return err
	}
	if err := r.stampGeo(m, clip); err != nil {
		return err
	}

	clip.Status = models.ClipApproved
	clip.JudgedAt = &now

	r.switchTurn(m, m.Opponent(userID), now)
	return nil
}

// applyAttempt processes a trick_match clip: the attempt stays pending until
// the opponent judges it, and the turn does not move.
func (r matchRules) applyAttempt(m *models.Match, clip *models.Clip, userID string, now time.Time) error {
	if clip.Status != models.ClipPending || clip.JudgedAt != nil {
		// An approved attempt hands the turn back to its owner, so turn
		// checks alone cannot stop a replayed completion from resetting a
		// judged clip.
		return &AlreadyJudgedError{Status: clip.Status}
	}
	if err := r.validateTurn(m, userID); err != nil {
		return err
	}
	if err := r.stampGeo(m, clip); err != nil {
		return err
	}

	clip.Status = models.ClipPending
	m.LastActivity = &now
	return nil
}

// applyJudgement resolves a pending attempt. Approved: the attempter earned
// the right to set the next trick. Rejected: the attempter takes a letter and
// the judge sets next. Both branches re-check the win condition.
func (r matchRules) applyJudgement(m *models.Match, clip *models.Clip, judgeUserID string, approved bool, now time.Time) (bool, error) {
	if m.Status != models.MatchActive {
		// A stale pending clip on a concluded match must not mint letters.
		return false, &InvalidStateError{Status: m.Status}
	}
	if !m.IsParticipant(judgeUserID) {
		return false, ErrNotParticipant
	}
	if judgeUserID == clip.UserID {
		return false, ErrSelfJudge
	}
	if clip.Status != models.ClipPending {
		return false, &AlreadyJudgedError{Status: clip.Status}
	}

	clip.JudgedAt = &now
	m.LastActivity = &now

	if approved {
		// They landed it — their turn to set a trick.
		clip.Status = models.ClipApproved
		m.CurrentTurnUserID = &clip.UserID
	} else {
		// They failed — letter for the attempter, judge sets next.
		clip.Status = models.ClipRejected
		if clip.UserID == m.Player1ID {
			m.Player1Letters++
		} else {
			m.Player2Letters++
		}
		m.CurrentTurnUserID = &judgeUserID
	}

	return r.checkWin(m, now), nil
}

// applyForfeit concludes the match in the other player's favor. Used for
// manual forfeits and turn timeouts alike.
func (r matchRules) applyForfeit(m *models.Match, forfeitingUserID string, now time.Time) error {
	if m.Status != models.MatchActive {
		return &InvalidStateError{Status: m.Status}
	}
	if !m.IsParticipant(forfeitingUserID) {
		return ErrNotParticipant
	}

	r.completeMatch(m, m.Opponent(forfeitingUserID), now)
	return nil
}

// timeoutWindow returns how long the turn-holder has before defaulting.
func (r matchRules) timeoutWindow(mode string) time.Duration {
	if mode == models.ModeNormal {
		return r.normalTimeout
	}
	return r.longTimeout
}

// timedOut reports whether the current turn-holder has exceeded the window.
// Evaluated lazily whenever a match is read — there is no background thread
// dedicated to a single match.
func (r matchRules) timedOut(m *models.Match, now time.Time) bool {
	if m.Status != models.MatchActive || m.LastActivity == nil {
		return false
	}
	return now.After(m.LastActivity.Add(r.timeoutWindow(m.Mode)))
}

// applyStats writes win/loss/streak deltas for a concluded match. Runs at
// most once per match, guarded by the StatsApplied flag — both the
// letter-completion and forfeit paths funnel through here.
func (r matchRules) applyStats(m *models.Match, winner, loser *models.User) bool {
	if m.WinnerID == nil || m.StatsApplied {
		return false
	}
	m.StatsApplied = true

	if winner != nil {
		winner.Wins++
		winner.CurrentStreak++
	}
	if loser != nil {
		loser.Losses++
		loser.CurrentStreak = 0
	}
	return true
}
