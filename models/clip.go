package models

import (
	"time"
)

const (
	ClipTrickSet   = "trick_set"
	ClipTrickMatch = "trick_match"
)

const (
	ClipPending  = "pending"
	ClipApproved = "approved"
	ClipRejected = "rejected"
	ClipDisputed = "disputed"
)

// Clip is a single one-take video submission inside a match. A trick_set clip
// is judged automatically on submit; a trick_match clip stays pending until
// the opponent judges it, and is judged exactly once.
type Clip struct {
	ID      string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	MatchID string `gorm:"index;not null" json:"match_id"`
	UserID  string `gorm:"index;not null" json:"user_id"`

	ClipType string `gorm:"type:varchar(16);not null;check:clip_type IN ('trick_set','trick_match')" json:"clip_type"`
	Status   string `gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','approved','rejected','disputed')" json:"status"`

	// Video storage
	VideoURL        string  `json:"video_url"`
	ThumbnailURL    string  `json:"thumbnail_url,omitempty"`
	DurationSeconds float64 `gorm:"not null" json:"duration_seconds"`
	FileSizeBytes   int64   `gorm:"not null" json:"file_size_bytes"`

	// Trick description
	TrickName        string `gorm:"size:200" json:"trick_name,omitempty"`
	TrickDescription string `gorm:"size:500" json:"trick_description,omitempty"`

	// GPS verification — distance is stamped regardless of the geofence outcome
	GPSLat                     float64 `gorm:"not null" json:"gps_lat"`
	GPSLng                     float64 `gorm:"not null" json:"gps_lng"`
	GPSDistanceFromAnchorMiles float64 `json:"gps_distance_from_anchor_miles"`
	GPSVerified                bool    `gorm:"not null;default:false" json:"gps_verified"`

	WatermarkData map[string]any `gorm:"serializer:json" json:"watermark_data,omitempty"`

	// Timestamps
	RecordedAt time.Time  `gorm:"not null" json:"recorded_at"`
	UploadedAt time.Time  `json:"uploaded_at" gorm:"autoCreateTime"`
	JudgedAt   *time.Time `json:"judged_at,omitempty"`

	ExtraData map[string]any `gorm:"serializer:json" json:"extra_data,omitempty"`
}
