package services

import (
	"testing"

	"sk8-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChallengeCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code, err := newChallengeCode()
		require.NoError(t, err)
		assert.Len(t, code, 11) // 8 bytes, base64url, no padding
		assert.NotContains(t, code, "+")
		assert.NotContains(t, code, "/")
		assert.NotContains(t, code, "=")
		assert.False(t, seen[code], "challenge codes must not repeat")
		seen[code] = true
	}
}

func TestNormalizeMode(t *testing.T) {
	mode, err := normalizeMode("")
	require.NoError(t, err)
	assert.Equal(t, models.ModeNormal, mode)

	mode, err = normalizeMode("normal")
	require.NoError(t, err)
	assert.Equal(t, models.ModeNormal, mode)

	mode, err = normalizeMode("long")
	require.NoError(t, err)
	assert.Equal(t, models.ModeLong, mode)

	_, err = normalizeMode("speedrun")
	assert.Error(t, err)
}

func TestIsRuleError(t *testing.T) {
	assert.True(t, isRuleError(ErrNotYourTurn))
	assert.True(t, isRuleError(ErrChallengeNotFound))
	assert.True(t, isRuleError(&InvalidStateError{Status: models.MatchPending}))
	assert.True(t, isRuleError(&AlreadyJudgedError{Status: models.ClipApproved}))
	assert.True(t, isRuleError(&GeoOutOfRangeError{DistanceMiles: 2, LimitMiles: 1}))
	assert.False(t, isRuleError(assert.AnError))
}

func TestMatchParticipants(t *testing.T) {
	m := activeMatch()
	assert.True(t, m.IsParticipant("p1"))
	assert.True(t, m.IsParticipant("p2"))
	assert.False(t, m.IsParticipant("stranger"))

	assert.Equal(t, "p2", m.Opponent("p1"))
	assert.Equal(t, "p1", m.Opponent("p2"))

	// Pending challenge: only the creator is bound.
	pending := &models.Match{Player1ID: "p1", Status: models.MatchPending}
	assert.True(t, pending.IsParticipant("p1"))
	assert.False(t, pending.IsParticipant("p2"))
}
