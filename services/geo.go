package services

import (
	"math"

	"sk8-backend/models"
)

const earthRadiusMiles = 3959

// GeoValidator decides whether a clip's recorded location counts against a
// match's anchor. Radius comes from config, not ambient state.
type GeoValidator struct {
	RadiusMiles float64
}

// DistanceMiles returns the great-circle distance between two GPS coordinates
// in miles using the haversine formula.
func DistanceMiles(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Asin(math.Sqrt(a))

	return earthRadiusMiles * c
}

// Validate computes the clip's distance from the match anchor and the
// geofence verdict. Normal mode enforces the radius (boundary inclusive);
// long mode has no GPS restriction. Distance is returned either way.
func (g GeoValidator) Validate(m *models.Match, clipLat, clipLng float64) (bool, float64) {
	distance := DistanceMiles(m.GPSAnchorLat, m.GPSAnchorLng, clipLat, clipLng)

	if m.Mode == models.ModeNormal {
		return distance <= g.RadiusMiles, distance
	}
	return true, distance
}
