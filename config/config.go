package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries all tunables for the service. Loaded once in main and passed
// into services explicitly — nothing reads ambient env after startup.
type Config struct {
	DatabaseURL string

	// Storage
	S3Bucket        string
	S3Region        string
	S3EndpointURL   string // optional, for R2/minio style endpoints
	AWSAccessKeyID  string
	AWSSecretKey    string
	UploadURLExpiry time.Duration

	// Gateway / CORS
	GatewayToken   string
	AllowedOrigins string

	// Match settings
	GPSRadiusMiles    float64
	NormalModeTimeout time.Duration
	LongModeTimeout   time.Duration
	MaxLetters        int // S-K-A-T-E

	// Video settings — enforced before game logic ever sees a clip
	MaxClipDurationSeconds float64
	MaxClipSizeMB          int64

	ListenAddr string
}

// Load reads configuration from the environment. DATABASE_URL and
// GAME_SERVICE_TOKEN are required; everything else has a default.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		S3Bucket:       os.Getenv("S3_BUCKET_NAME"),
		S3Region:       envOr("S3_REGION", "us-east-1"),
		S3EndpointURL:  os.Getenv("S3_ENDPOINT_URL"),
		AWSAccessKeyID: os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:   os.Getenv("AWS_SECRET_ACCESS_KEY"),
		GatewayToken:   os.Getenv("GAME_SERVICE_TOKEN"),
		AllowedOrigins: envOr("ALLOWED_ORIGINS", "http://localhost:3000"),
		ListenAddr:     envOr("LISTEN_ADDR", ":5200"),

		UploadURLExpiry: 300 * time.Second,
		MaxLetters:      5,
	}

	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.GatewayToken == "" {
		return cfg, fmt.Errorf("GAME_SERVICE_TOKEN environment variable not set")
	}

	radius, err := envFloat("GPS_RADIUS_MILES", 1.0)
	if err != nil {
		return cfg, err
	}
	cfg.GPSRadiusMiles = radius

	normalMinutes, err := envInt("NORMAL_MODE_TIMEOUT_MINUTES", 2)
	if err != nil {
		return cfg, err
	}
	cfg.NormalModeTimeout = time.Duration(normalMinutes) * time.Minute

	longHours, err := envInt("LONG_MODE_TIMEOUT_HOURS", 6)
	if err != nil {
		return cfg, err
	}
	cfg.LongModeTimeout = time.Duration(longHours) * time.Hour

	maxDuration, err := envFloat("MAX_CLIP_DURATION_SECONDS", 30)
	if err != nil {
		return cfg, err
	}
	cfg.MaxClipDurationSeconds = maxDuration

	maxSize, err := envInt("MAX_CLIP_SIZE_MB", 50)
	if err != nil {
		return cfg, err
	}
	cfg.MaxClipSizeMB = maxSize

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
