package models

import (
	"time"
)

const (
	ModeNormal = "normal"
	ModeLong   = "long"
)

const (
	MatchPending   = "pending"
	MatchActive    = "active"
	MatchCompleted = "completed"
	MatchAbandoned = "abandoned"
	MatchDisputed  = "disputed"
)

// Match is one game of SKATE between two players. While a challenge is
// outstanding the match sits in pending with Player2ID unset and the
// challenge code stored in ExtraData.
type Match struct {
	ID string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`

	// Players
	Player1ID string  `gorm:"index;not null" json:"player1_id"`
	Player2ID *string `gorm:"index" json:"player2_id,omitempty"` // nil until challenge accepted

	// Match config
	Mode   string `gorm:"type:varchar(16);not null;default:'normal';check:mode IN ('normal','long')" json:"mode"`
	Status string `gorm:"index;type:varchar(16);not null;default:'pending';check:status IN ('pending','active','completed','abandoned','disputed')" json:"status"`

	// Game state
	CurrentTurnUserID *string `json:"current_turn_user_id,omitempty"`
	Player1Letters    int     `gorm:"not null;default:0" json:"player1_letters"`
	Player2Letters    int     `gorm:"not null;default:0" json:"player2_letters"`

	// Winner
	WinnerID     *string `gorm:"index" json:"winner_id,omitempty"`
	StatsApplied bool    `gorm:"not null;default:false" json:"-"` // guards exactly-once stat accounting

	// GPS anchor — geofence center fixed at creation
	GPSAnchorLat float64 `json:"gps_anchor_lat"`
	GPSAnchorLng float64 `json:"gps_anchor_lng"`

	// Timestamps
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	LastActivity *time.Time `json:"last_activity,omitempty"`

	ExtraData map[string]any `gorm:"serializer:json" json:"extra_data,omitempty"`

	// Match owns its clips. Removal/archival of a match must enumerate and
	// remove these in the same transaction — there is no DB-level cascade.
	Clips []Clip `gorm:"foreignKey:MatchID" json:"clips,omitempty"`
}

// IsParticipant reports whether userID is one of the two bound players.
func (m *Match) IsParticipant(userID string) bool {
	if m.Player1ID == userID {
		return true
	}
	return m.Player2ID != nil && *m.Player2ID == userID
}

// Opponent returns the other player's id. Both players must be bound.
func (m *Match) Opponent(userID string) string {
	if m.Player1ID == userID && m.Player2ID != nil {
		return *m.Player2ID
	}
	return m.Player1ID
}
