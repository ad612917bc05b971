package handlers

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"spending-guard/internal/dto"
	"spending-guard/internal/errors"
	"spending-guard/internal/models"
	"spending-guard/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// GeofenceHandler manages geofences and location input
type GeofenceHandler struct {
	session *services.Session
}

func NewGeofenceHandler(session *services.Session) *GeofenceHandler {
	return &GeofenceHandler{session: session}
}

// ListGeofences returns all fences and the ones currently containing the device
// @Summary List geofences
// @Tags Geofences
// @Produce json
// @Success 200 {object} dto.ListGeofencesResponse
// @Router /geofences [get]
func (h *GeofenceHandler) ListGeofences(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.ListGeofencesResponse{
		Geofences: nonNilFences(h.session.Geofences.Geofences()),
		Inside:    nonNilFences(h.session.Geofences.Inside()),
	})
}

// CreateGeofence registers a new fence. No event is raised if the device is already inside.
// @Summary Create geofence
// @Tags Geofences
// @Accept json
// @Produce json
// @Param request body dto.CreateGeofenceRequest true "Geofence"
// @Success 201 {object} models.Geofence
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001, GEOFENCE_002 or GEOFENCE_003"
// @Router /geofences [post]
func (h *GeofenceHandler) CreateGeofence(c echo.Context) error {
	var req dto.CreateGeofenceRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if err := c.Validate(req); err != nil {
		return SendValidationError(c, err)
	}

	fence, err := h.session.Geofences.AddGeofence(c.Request().Context(), req.ToModel())
	if err != nil {
		switch {
		case stderrors.Is(err, models.ErrInvalidGeofenceKind):
			return SendError(c, errors.GeofenceInvalidKind)
		case stderrors.Is(err, models.ErrInvalidGeofence):
			return SendError(c, errors.GeofenceInvalid, errors.WithDetails(err.Error()))
		default:
			return SendSystemError(c, err)
		}
	}

	return c.JSON(http.StatusCreated, fence)
}

// DeleteGeofence removes a fence
// @Summary Delete geofence
// @Tags Geofences
// @Param id path string true "Geofence ID (UUID)"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse "GEOFENCE_001 - Geofence not found"
// @Router /geofences/{id} [delete]
func (h *GeofenceHandler) DeleteGeofence(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return SendError(c, errors.ValidationInvalidFormat, errors.WithDetails("Invalid geofence ID"))
	}

	if err := h.session.Geofences.RemoveGeofence(c.Request().Context(), id); err != nil {
		if stderrors.Is(err, services.ErrGeofenceNotFound) {
			return SendError(c, errors.GeofenceNotFound)
		}
		return SendSystemError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// ListEvents returns the most recent enter/exit events, oldest first
// @Summary Recent geofence events
// @Tags Geofences
// @Produce json
// @Success 200 {object} dto.GeofenceEventsResponse
// @Router /geofences/events [get]
func (h *GeofenceHandler) ListEvents(c echo.Context) error {
	events := h.session.Geofences.RecentEvents()
	return c.JSON(http.StatusOK, dto.GeofenceEventsResponse{Events: events, Count: len(events)})
}

// SimulateLocation runs a manual location through the geofence state machine
// @Summary Simulate location
// @Tags Location
// @Accept json
// @Produce json
// @Param request body dto.CoordinateRequest true "Location"
// @Success 200 {object} dto.LocationUpdateResponse
// @Failure 400 {object} errors.ErrorResponse "LOCATION_001 - Invalid coordinate"
// @Router /location/simulate [post]
func (h *GeofenceHandler) SimulateLocation(c echo.Context) error {
	var req dto.CoordinateRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}
	if err := c.Validate(req); err != nil {
		return SendError(c, errors.LocationInvalidCoordinate)
	}

	coord := req.ToModel()
	events, err := h.session.Geofences.SimulateLocation(c.Request().Context(), coord)
	if err != nil {
		if stderrors.Is(err, models.ErrInvalidCoordinate) {
			return SendError(c, errors.LocationInvalidCoordinate)
		}
		return SendSystemError(c, err)
	}
	if events == nil {
		events = []models.GeofenceEvent{}
	}

	return c.JSON(http.StatusOK, dto.LocationUpdateResponse{
		Location: coord,
		Events:   events,
		Inside:   nonNilFences(h.session.Geofences.Inside()),
	})
}

// PushLocation delivers a live fix from a tracking client
// @Summary Push live location
// @Tags Location
// @Accept json
// @Produce json
// @Param request body dto.PushLocationRequest true "Location fix"
// @Success 202 {object} dto.TrackingStatusResponse
// @Failure 400 {object} errors.ErrorResponse "LOCATION_001 - Invalid coordinate"
// @Failure 503 {object} errors.ErrorResponse "LOCATION_002 - Tracking not started"
// @Router /location [post]
func (h *GeofenceHandler) PushLocation(c echo.Context) error {
	var req dto.PushLocationRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}
	if err := c.Validate(req); err != nil {
		return SendError(c, errors.LocationInvalidCoordinate)
	}

	reading := models.LocationReading{
		Coordinate:     models.Coordinate{Latitude: req.Lat, Longitude: req.Lng},
		AccuracyMeters: req.AccuracyMeters,
		Timestamp:      time.Now().UTC(),
	}
	if req.Timestamp != nil {
		reading.Timestamp = *req.Timestamp
	}

	if err := h.session.LocationFeed().Push(reading); err != nil {
		switch {
		case stderrors.Is(err, models.ErrInvalidCoordinate):
			return SendError(c, errors.LocationInvalidCoordinate)
		case stderrors.Is(err, services.ErrLocationUnavailable):
			return SendError(c, errors.LocationUnavailable, errors.WithDetails("Location tracking is not started"))
		default:
			return SendSystemError(c, err)
		}
	}

	return c.JSON(http.StatusAccepted, h.trackingStatus())
}

// StartTracking subscribes the geofence monitor to pushed locations
// @Summary Start location tracking
// @Tags Location
// @Produce json
// @Success 200 {object} dto.TrackingStatusResponse
// @Failure 503 {object} errors.ErrorResponse "LOCATION_002 - Provider unavailable"
// @Router /location/tracking/start [post]
func (h *GeofenceHandler) StartTracking(c echo.Context) error {
	// Tracking outlives the request that started it
	ctx := context.WithoutCancel(c.Request().Context())
	if err := h.session.StartTracking(ctx); err != nil && !stderrors.Is(err, services.ErrTrackingActive) {
		if stderrors.Is(err, services.ErrLocationUnavailable) {
			return SendError(c, errors.LocationUnavailable)
		}
		return SendSystemError(c, err)
	}
	return c.JSON(http.StatusOK, h.trackingStatus())
}

// StopTracking stops location tracking. Stopping an idle tracker is a no-op.
// @Summary Stop location tracking
// @Tags Location
// @Produce json
// @Success 200 {object} dto.TrackingStatusResponse
// @Router /location/tracking/stop [post]
func (h *GeofenceHandler) StopTracking(c echo.Context) error {
	h.session.StopTracking()
	return c.JSON(http.StatusOK, h.trackingStatus())
}

// TrackingStatus reports whether tracking is active and the last known location
// @Summary Location tracking status
// @Tags Location
// @Produce json
// @Success 200 {object} dto.TrackingStatusResponse
// @Router /location [get]
func (h *GeofenceHandler) TrackingStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.trackingStatus())
}

func (h *GeofenceHandler) trackingStatus() dto.TrackingStatusResponse {
	status := dto.TrackingStatusResponse{Tracking: h.session.Geofences.IsTracking()}
	if reading, ok := h.session.Geofences.CurrentLocation(); ok {
		status.Location = &reading
	}
	return status
}

func nonNilFences(fences []models.Geofence) []models.Geofence {
	if fences == nil {
		return []models.Geofence{}
	}
	return fences
}
