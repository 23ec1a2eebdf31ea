package utils

import (
	"fmt"
)

// Clip metadata limits are enforced here, before any game logic runs.

func ValidateClipDuration(durationSeconds, maxSeconds float64) error {
	if durationSeconds <= 0 {
		return fmt.Errorf("clip duration must be positive")
	}
	if durationSeconds > maxSeconds {
		return fmt.Errorf("clip duration %gs exceeds maximum %gs", durationSeconds, maxSeconds)
	}
	return nil
}

func ValidateClipSize(sizeBytes, maxMB int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("clip size must be positive")
	}
	sizeMB := float64(sizeBytes) / (1024 * 1024)
	if sizeMB > float64(maxMB) {
		return fmt.Errorf("clip size %.1fMB exceeds maximum %dMB", sizeMB, maxMB)
	}
	return nil
}

func ValidateGPSCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	return nil
}
