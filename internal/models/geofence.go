package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidGeofence     = errors.New("invalid geofence")
	ErrInvalidGeofenceKind = errors.New("invalid geofence kind")
)

type GeofenceKind string

const (
	GeofenceKindMerchant GeofenceKind = "merchant"
	GeofenceKindHighRisk GeofenceKind = "high_risk"
	GeofenceKindSafeZone GeofenceKind = "safe_zone"
)

// IsValidGeofenceKind checks if the kind is one of the known geofence kinds
func IsValidGeofenceKind(kind string) bool {
	switch GeofenceKind(kind) {
	case GeofenceKindMerchant, GeofenceKindHighRisk, GeofenceKindSafeZone:
		return true
	default:
		return false
	}
}

// Geofence is a named circular region.
type Geofence struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Center       Coordinate   `json:"center"`
	RadiusMeters float64      `json:"radius_meters"`
	Kind         GeofenceKind `json:"kind"`
}

// Validate validates the geofence fields
func (g *Geofence) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return errors.Join(ErrInvalidGeofence, errors.New("name is required"))
	}
	if !g.Center.IsValid() {
		return errors.Join(ErrInvalidGeofence, ErrInvalidCoordinate)
	}
	if !(g.RadiusMeters > 0) {
		return errors.Join(ErrInvalidGeofence, errors.New("radius must be positive"))
	}
	if !IsValidGeofenceKind(string(g.Kind)) {
		return ErrInvalidGeofenceKind
	}
	return nil
}

// Contains reports whether the coordinate lies within the fence (distance <= radius).
func (g *Geofence) Contains(c Coordinate) bool {
	return g.Center.DistanceMeters(c) <= g.RadiusMeters
}

type GeofenceEventType string

const (
	GeofenceEventEnter GeofenceEventType = "enter"
	GeofenceEventExit  GeofenceEventType = "exit"
)

// GeofenceEvent records a boundary crossing.
type GeofenceEvent struct {
	ID           uuid.UUID         `json:"id"`
	GeofenceID   uuid.UUID         `json:"geofence_id"`
	GeofenceName string            `json:"geofence_name"`
	Kind         GeofenceKind      `json:"kind"`
	Type         GeofenceEventType `json:"type"`
	Location     Coordinate        `json:"location"`
	OccurredAt   time.Time         `json:"occurred_at"`
}
