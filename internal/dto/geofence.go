package dto

import (
	"time"

	"spending-guard/internal/models"
)

type CreateGeofenceRequest struct {
	Name         string            `json:"name" validate:"required,max=100"`
	Center       CoordinateRequest `json:"center"`
	RadiusMeters float64           `json:"radius_meters" validate:"gt=0,lte=50000"`
	Kind         string            `json:"kind" validate:"required,geofence_kind"`
}

func (r CreateGeofenceRequest) ToModel() models.Geofence {
	return models.Geofence{
		Name:         r.Name,
		Center:       r.Center.ToModel(),
		RadiusMeters: r.RadiusMeters,
		Kind:         models.GeofenceKind(r.Kind),
	}
}

type ListGeofencesResponse struct {
	Geofences []models.Geofence `json:"geofences"`
	Inside    []models.Geofence `json:"inside"`
}

type GeofenceEventsResponse struct {
	Events []models.GeofenceEvent `json:"events"`
	Count  int                    `json:"count"`
}

// PushLocationRequest is a live fix posted by a tracking client
type PushLocationRequest struct {
	Lat            float64    `json:"lat" validate:"latitude_deg"`
	Lng            float64    `json:"lng" validate:"longitude_deg"`
	AccuracyMeters float64    `json:"accuracy_meters" validate:"gte=0"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
}

// LocationUpdateResponse reports the transitions a location update caused
type LocationUpdateResponse struct {
	Location models.Coordinate      `json:"location"`
	Events   []models.GeofenceEvent `json:"events"`
	Inside   []models.Geofence      `json:"inside"`
}

type TrackingStatusResponse struct {
	Tracking bool                    `json:"tracking"`
	Location *models.LocationReading `json:"location,omitempty"`
}
