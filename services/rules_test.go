package services

import (
	"testing"
	"time"

	"sk8-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRules() matchRules {
	return matchRules{
		geo:           GeoValidator{RadiusMiles: 1.0},
		maxLetters:    5,
		normalTimeout: 2 * time.Minute,
		longTimeout:   6 * time.Hour,
	}
}

// activeMatch returns a normal-mode match between p1 and p2 with p1 to set.
func activeMatch() *models.Match {
	p2 := "p2"
	turn := "p1"
	now := time.Now().UTC()
	return &models.Match{
		ID:                "m1",
		Player1ID:         "p1",
		Player2ID:         &p2,
		Mode:              models.ModeNormal,
		Status:            models.MatchActive,
		CurrentTurnUserID: &turn,
		GPSAnchorLat:      34.0522,
		GPSAnchorLng:      -118.2437,
		StartedAt:         &now,
		LastActivity:      &now,
	}
}

func clipFor(m *models.Match, userID, clipType string) *models.Clip {
	return &models.Clip{
		ID:       "c1",
		MatchID:  m.ID,
		UserID:   userID,
		ClipType: clipType,
		Status:   models.ClipPending,
		GPSLat:   m.GPSAnchorLat,
		GPSLng:   m.GPSAnchorLng,
	}
}

func TestValidateTurn(t *testing.T) {
	r := testRules()

	m := activeMatch()
	require.NoError(t, r.validateTurn(m, "p1"))
	assert.Equal(t, ErrNotYourTurn, r.validateTurn(m, "p2"))

	m.Status = models.MatchCompleted
	var invalid *InvalidStateError
	require.ErrorAs(t, r.validateTurn(m, "p1"), &invalid)
	assert.Equal(t, models.MatchCompleted, invalid.Status)
}

func TestSwitchTurnRefreshesActivity(t *testing.T) {
	r := testRules()
	m := activeMatch()
	before := *m.LastActivity

	now := before.Add(time.Minute)
	r.switchTurn(m, "p2", now)

	assert.Equal(t, "p2", *m.CurrentTurnUserID)
	assert.Equal(t, now, *m.LastActivity)
}

func TestApplyLetterCompletesAtMax(t *testing.T) {
	r := testRules()
	m := activeMatch()
	now := time.Now().UTC()

	for i := 1; i <= 4; i++ {
		assert.False(t, r.applyLetter(m, "p1", now))
		assert.Equal(t, i, m.Player1Letters)
		assert.Equal(t, models.MatchActive, m.Status)
		assert.Nil(t, m.WinnerID)
	}

	// Fifth letter spells SKATE: match completes, other player wins.
	assert.True(t, r.applyLetter(m, "p1", now))
	assert.Equal(t, 5, m.Player1Letters)
	assert.Equal(t, models.MatchCompleted, m.Status)
	require.NotNil(t, m.WinnerID)
	assert.Equal(t, "p2", *m.WinnerID)
	require.NotNil(t, m.CompletedAt)
}

func TestApplySet(t *testing.T) {
	r := testRules()
	m := activeMatch()
	clip := clipFor(m, "p1", models.ClipTrickSet)
	now := time.Now().UTC()

	require.NoError(t, r.applySet(m, clip, "p1", now))

	// Set clip is auto-approved immediately, never left pending.
	assert.Equal(t, models.ClipApproved, clip.Status)
	require.NotNil(t, clip.JudgedAt)
	assert.True(t, clip.GPSVerified)
	assert.Zero(t, clip.GPSDistanceFromAnchorMiles)

	// Turn passes to the opponent, who now has to match the trick.
	assert.Equal(t, "p2", *m.CurrentTurnUserID)
	assert.Equal(t, now, *m.LastActivity)
}

func TestApplySetGeoOutOfRange(t *testing.T) {
	r := testRules()
	m := activeMatch()
	clip := clipFor(m, "p1", models.ClipTrickSet)
	clip.GPSLat = 40.7128 // NYC — nowhere near the LA anchor
	clip.GPSLng = -74.0060

	err := r.applySet(m, clip, "p1", time.Now().UTC())

	var geo *GeoOutOfRangeError
	require.ErrorAs(t, err, &geo)
	assert.Greater(t, geo.DistanceMiles, 2000.0)
	assert.Equal(t, 1.0, geo.LimitMiles)

	// Distance is stamped on the clip even though the submission failed.
	assert.False(t, clip.GPSVerified)
	assert.Greater(t, clip.GPSDistanceFromAnchorMiles, 2000.0)

	// Match untouched: still p1's turn, clip not approved.
	assert.Equal(t, "p1", *m.CurrentTurnUserID)
	assert.NotEqual(t, models.ClipApproved, clip.Status)
}

func TestApplySetWrongTurn(t *testing.T) {
	r := testRules()
	m := activeMatch()
	clip := clipFor(m, "p2", models.ClipTrickSet)

	assert.Equal(t, ErrNotYourTurn, r.applySet(m, clip, "p2", time.Now().UTC()))
}

func TestApplyAttemptStaysPending(t *testing.T) {
	r := testRules()
	m := activeMatch()
	m.CurrentTurnUserID = strPtr("p2")
	clip := clipFor(m, "p2", models.ClipTrickMatch)
	now := time.Now().UTC()

	require.NoError(t, r.applyAttempt(m, clip, "p2", now))

	assert.Equal(t, models.ClipPending, clip.Status)
	assert.Nil(t, clip.JudgedAt)
	assert.True(t, clip.GPSVerified)

	// No turn switch — the attempt awaits judgement.
	assert.Equal(t, "p2", *m.CurrentTurnUserID)
	assert.Equal(t, now, *m.LastActivity)
}

func TestJudgeApprove(t *testing.T) {
	r := testRules()
	m := activeMatch()
	m.CurrentTurnUserID = strPtr("p2")
	clip := clipFor(m, "p2", models.ClipTrickMatch)
	now := time.Now().UTC()

	completed, err := r.applyJudgement(m, clip, "p1", true, now)
	require.NoError(t, err)
	assert.False(t, completed)

	assert.Equal(t, models.ClipApproved, clip.Status)
	require.NotNil(t, clip.JudgedAt)

	// The attempter landed it — they earned the right to set next.
	assert.Equal(t, "p2", *m.CurrentTurnUserID)
	assert.Zero(t, m.Player2Letters)
}

func TestJudgeReject(t *testing.T) {
	r := testRules()
	m := activeMatch()
	m.CurrentTurnUserID = strPtr("p2")
	clip := clipFor(m, "p2", models.ClipTrickMatch)

	completed, err := r.applyJudgement(m, clip, "p1", false, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, completed)

	assert.Equal(t, models.ClipRejected, clip.Status)
	assert.Equal(t, 1, m.Player2Letters)
	assert.Zero(t, m.Player1Letters)

	// The judge sets the next trick.
	assert.Equal(t, "p1", *m.CurrentTurnUserID)
	assert.Equal(t, models.MatchActive, m.Status)
}

func TestJudgeRejectCompletesMatch(t *testing.T) {
	r := testRules()
	m := activeMatch()
	m.Player1Letters = 4
	clip := clipFor(m, "p1", models.ClipTrickMatch)

	// p1 is sitting on S-K-A-T; p2 rejects their attempt.
	completed, err := r.applyJudgement(m, clip, "p2", false, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, completed)

	assert.Equal(t, 5, m.Player1Letters)
	assert.Equal(t, models.MatchCompleted, m.Status)
	require.NotNil(t, m.WinnerID)
	assert.Equal(t, "p2", *m.WinnerID)
	require.NotNil(t, m.CompletedAt)
}

func TestJudgeErrors(t *testing.T) {
	r := testRules()
	m := activeMatch()
	clip := clipFor(m, "p2", models.ClipTrickMatch)
	now := time.Now().UTC()

	_, err := r.applyJudgement(m, clip, "stranger", true, now)
	assert.Equal(t, ErrNotParticipant, err)

	_, err = r.applyJudgement(m, clip, "p2", true, now)
	assert.Equal(t, ErrSelfJudge, err)

	clip.Status = models.ClipApproved
	_, err = r.applyJudgement(m, clip, "p1", true, now)
	var judged *AlreadyJudgedError
	require.ErrorAs(t, err, &judged)
	assert.Equal(t, models.ClipApproved, judged.Status)
}

func TestJudgedExactlyOnce(t *testing.T) {
	r := testRules()
	m := activeMatch()
	clip := clipFor(m, "p2", models.ClipTrickMatch)
	now := time.Now().UTC()

	_, err := r.applyJudgement(m, clip, "p1", false, now)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Player2Letters)

	// Re-judging the same clip must not hand out another letter.
	_, err = r.applyJudgement(m, clip, "p1", false, now)
	var judged *AlreadyJudgedError
	require.ErrorAs(t, err, &judged)
	assert.Equal(t, 1, m.Player2Letters)
}

func TestJudgeStaleClipAfterCompletion(t *testing.T) {
	r := testRules()
	m := activeMatch()
	m.Player1Letters = 4
	now := time.Now().UTC()

	// p1 has two attempts pending when the first rejection lands the fifth
	// letter and completes the match.
	first := clipFor(m, "p1", models.ClipTrickMatch)
	second := clipFor(m, "p1", models.ClipTrickMatch)
	second.ID = "c2"

	completed, err := r.applyJudgement(m, first, "p2", false, now)
	require.NoError(t, err)
	require.True(t, completed)
	require.Equal(t, 5, m.Player1Letters)

	// The leftover pending clip is no longer judgeable; letters stay at 5.
	_, err = r.applyJudgement(m, second, "p2", false, now)
	var invalid *InvalidStateError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, models.MatchCompleted, invalid.Status)
	assert.Equal(t, 5, m.Player1Letters)
	assert.Equal(t, models.ClipPending, second.Status)
}

func TestJudgeRequiresActiveMatch(t *testing.T) {
	r := testRules()
	now := time.Now().UTC()

	for _, status := range []string{models.MatchPending, models.MatchCompleted, models.MatchAbandoned, models.MatchDisputed} {
		m := activeMatch()
		m.Status = status
		clip := clipFor(m, "p2", models.ClipTrickMatch)

		_, err := r.applyJudgement(m, clip, "p1", false, now)
		var invalid *InvalidStateError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, status, invalid.Status)
		assert.Zero(t, m.Player2Letters)
	}
}

func TestResubmitJudgedAttemptRejected(t *testing.T) {
	r := testRules()
	m := activeMatch()
	m.CurrentTurnUserID = strPtr("p2")
	now := time.Now().UTC()

	clip := clipFor(m, "p2", models.ClipTrickMatch)
	require.NoError(t, r.applyAttempt(m, clip, "p2", now))
	_, err := r.applyJudgement(m, clip, "p1", true, now)
	require.NoError(t, err)
	require.Equal(t, "p2", *m.CurrentTurnUserID)

	// Approval handed the turn back to p2, but replaying the completion
	// must not reset the judged clip to pending.
	var judged *AlreadyJudgedError
	require.ErrorAs(t, r.applyAttempt(m, clip, "p2", now), &judged)
	assert.Equal(t, models.ClipApproved, judged.Status)
	assert.Equal(t, models.ClipApproved, clip.Status)
	require.NotNil(t, clip.JudgedAt)
}

func TestResubmitApprovedSetRejected(t *testing.T) {
	r := testRules()
	m := activeMatch()
	now := time.Now().UTC()

	set := clipFor(m, "p1", models.ClipTrickSet)
	require.NoError(t, r.applySet(m, set, "p1", now))
	require.Equal(t, models.ClipApproved, set.Status)

	var judged *AlreadyJudgedError
	require.ErrorAs(t, r.applySet(m, set, "p1", now), &judged)
	assert.Equal(t, "p2", *m.CurrentTurnUserID)
}

func TestSubmitDisputedClipRejected(t *testing.T) {
	r := testRules()
	m := activeMatch()
	m.CurrentTurnUserID = strPtr("p2")
	now := time.Now().UTC()

	clip := clipFor(m, "p2", models.ClipTrickMatch)
	clip.Status = models.ClipDisputed

	var judged *AlreadyJudgedError
	require.ErrorAs(t, r.applyAttempt(m, clip, "p2", now), &judged)
	assert.Equal(t, models.ClipDisputed, judged.Status)
}

func TestTurnAlternation(t *testing.T) {
	r := testRules()
	m := activeMatch()
	now := time.Now().UTC()

	// p1 sets. Turn flips to p2.
	set := clipFor(m, "p1", models.ClipTrickSet)
	require.NoError(t, r.applySet(m, set, "p1", now))
	assert.Equal(t, "p2", *m.CurrentTurnUserID)

	// p2 attempts. Turn stays with p2 until judged.
	attempt := clipFor(m, "p2", models.ClipTrickMatch)
	require.NoError(t, r.applyAttempt(m, attempt, "p2", now))
	assert.Equal(t, "p2", *m.CurrentTurnUserID)

	// p1 rejects: p2 takes a letter, p1 sets next.
	_, err := r.applyJudgement(m, attempt, "p1", false, now)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Player2Letters)
	assert.Equal(t, "p1", *m.CurrentTurnUserID)

	// Next round: p1 sets, p2 attempts and lands it — p2 sets next.
	set2 := clipFor(m, "p1", models.ClipTrickSet)
	require.NoError(t, r.applySet(m, set2, "p1", now))
	attempt2 := clipFor(m, "p2", models.ClipTrickMatch)
	require.NoError(t, r.applyAttempt(m, attempt2, "p2", now))
	_, err = r.applyJudgement(m, attempt2, "p1", true, now)
	require.NoError(t, err)
	assert.Equal(t, "p2", *m.CurrentTurnUserID)
	assert.Equal(t, 1, m.Player2Letters)
}

func TestLettersOnlyIncrease(t *testing.T) {
	r := testRules()
	m := activeMatch()
	now := time.Now().UTC()
	prevSum := 0

	for i := 0; i < 5; i++ {
		clip := clipFor(m, "p2", models.ClipTrickMatch)
		clip.ID = string(rune('a' + i))
		_, err := r.applyJudgement(m, clip, "p1", false, now)
		require.NoError(t, err)

		sum := m.Player1Letters + m.Player2Letters
		assert.Greater(t, sum, prevSum)
		assert.LessOrEqual(t, m.Player1Letters, 5)
		assert.LessOrEqual(t, m.Player2Letters, 5)
		prevSum = sum
	}

	// Completed exactly on the step the fifth letter landed, never later.
	assert.Equal(t, models.MatchCompleted, m.Status)
	assert.Equal(t, 5, m.Player2Letters)
	assert.Zero(t, m.Player1Letters)
	assert.Equal(t, "p1", *m.WinnerID)
}

func TestForfeit(t *testing.T) {
	r := testRules()
	m := activeMatch()
	now := time.Now().UTC()

	require.NoError(t, r.applyForfeit(m, "p1", now))
	assert.Equal(t, models.MatchCompleted, m.Status)
	assert.Equal(t, "p2", *m.WinnerID)
	require.NotNil(t, m.CompletedAt)
}

func TestForfeitErrors(t *testing.T) {
	r := testRules()
	now := time.Now().UTC()

	m := activeMatch()
	assert.Equal(t, ErrNotParticipant, r.applyForfeit(m, "stranger", now))

	m.Status = models.MatchCompleted
	var invalid *InvalidStateError
	require.ErrorAs(t, r.applyForfeit(m, "p1", now), &invalid)
}

func TestTimedOut(t *testing.T) {
	r := testRules()
	now := time.Now().UTC()

	m := activeMatch()
	fresh := now.Add(-time.Minute)
	m.LastActivity = &fresh
	assert.False(t, r.timedOut(m, now))

	stale := now.Add(-3 * time.Minute)
	m.LastActivity = &stale
	assert.True(t, r.timedOut(m, now))

	// Long mode gets hours, not minutes.
	m.Mode = models.ModeLong
	assert.False(t, r.timedOut(m, now))
	veryStale := now.Add(-7 * time.Hour)
	m.LastActivity = &veryStale
	assert.True(t, r.timedOut(m, now))

	// Non-active matches and matches without activity never time out.
	m.Status = models.MatchCompleted
	assert.False(t, r.timedOut(m, now))
	m.Status = models.MatchActive
	m.LastActivity = nil
	assert.False(t, r.timedOut(m, now))
}

func TestTimeoutForfeitsTurnHolder(t *testing.T) {
	r := testRules()
	m := activeMatch()
	now := time.Now().UTC()
	stale := now.Add(-3 * time.Minute)
	m.LastActivity = &stale
	m.CurrentTurnUserID = strPtr("p2")

	require.True(t, r.timedOut(m, now))
	require.NoError(t, r.applyForfeit(m, *m.CurrentTurnUserID, now))

	assert.Equal(t, models.MatchCompleted, m.Status)
	assert.Equal(t, "p1", *m.WinnerID)
}

func TestApplyStatsExactlyOnce(t *testing.T) {
	r := testRules()
	m := activeMatch()
	require.NoError(t, r.applyForfeit(m, "p2", time.Now().UTC()))

	winner := &models.User{ID: "p1", Wins: 3, CurrentStreak: 2}
	loser := &models.User{ID: "p2", Losses: 1, CurrentStreak: 4}

	assert.True(t, r.applyStats(m, winner, loser))
	assert.Equal(t, 4, winner.Wins)
	assert.Equal(t, 3, winner.CurrentStreak)
	assert.Equal(t, 2, loser.Losses)
	assert.Zero(t, loser.CurrentStreak)

	// Second application is a no-op.
	assert.False(t, r.applyStats(m, winner, loser))
	assert.Equal(t, 4, winner.Wins)
	assert.Equal(t, 2, loser.Losses)
}

func TestApplyStatsNoWinner(t *testing.T) {
	r := testRules()
	m := activeMatch()
	winner := &models.User{ID: "p1"}
	loser := &models.User{ID: "p2"}

	assert.False(t, r.applyStats(m, winner, loser))
	assert.Zero(t, winner.Wins)
	assert.Zero(t, loser.Losses)
}

func strPtr(s string) *string { return &s }
