package models

import (
	"errors"
	"math"
	"time"
)

var ErrInvalidCoordinate = errors.New("invalid coordinate")

const earthRadiusMeters = 6371000.0

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// IsValid reports whether the coordinate is finite and within WGS84 bounds.
func (c Coordinate) IsValid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// DistanceMeters returns the great-circle (Haversine) distance to other.
func (c Coordinate) DistanceMeters(other Coordinate) float64 {
	lat1 := toRadians(c.Latitude)
	lat2 := toRadians(other.Latitude)
	dLat := toRadians(other.Latitude - c.Latitude)
	dLng := toRadians(other.Longitude - c.Longitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// LocationReading is one fix delivered by a location provider.
type LocationReading struct {
	Coordinate     Coordinate `json:"coordinate"`
	AccuracyMeters float64    `json:"accuracy_meters"`
	Timestamp      time.Time  `json:"timestamp"`
	Simulated      bool       `json:"simulated"`
}
