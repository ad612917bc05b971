package handlers

import (
	stderrors "errors"
	"net/http"

	"spending-guard/internal/dto"
	"spending-guard/internal/errors"
	"spending-guard/internal/models"
	"spending-guard/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type PreferencesHandler struct {
	prefs *services.PreferencesService
}

func NewPreferencesHandler(prefs *services.PreferencesService) *PreferencesHandler {
	return &PreferencesHandler{prefs: prefs}
}

// GetPreferences returns the active limits and toggles
// @Summary Get preferences
// @Tags Preferences
// @Produce json
// @Success 200 {object} dto.PreferencesResponse
// @Router /preferences [get]
func (h *PreferencesHandler) GetPreferences(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.NewPreferencesResponse(h.prefs.Current()))
}

// UpdatePreferences replaces the limits and toggles. Changes take effect for the next
// assessment; risk tiers are recomputed immediately.
// @Summary Update preferences
// @Tags Preferences
// @Accept json
// @Produce json
// @Param request body dto.UpdatePreferencesRequest true "Preferences"
// @Success 200 {object} dto.PreferencesResponse
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001 or PREFERENCES_001"
// @Router /preferences [put]
func (h *PreferencesHandler) UpdatePreferences(c echo.Context) error {
	var req dto.UpdatePreferencesRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if err := c.Validate(req); err != nil {
		return SendValidationError(c, err)
	}

	prefs := models.Preferences{
		DailyLimit:      decimal.RequireFromString(req.DailyLimit),
		WeeklyLimit:     decimal.RequireFromString(req.WeeklyLimit),
		MonthlyLimit:    decimal.RequireFromString(req.MonthlyLimit),
		TrackingEnabled: *req.TrackingEnabled,
		AlertsEnabled:   *req.AlertsEnabled,
	}

	updated, err := h.prefs.Update(c.Request().Context(), prefs)
	if err != nil {
		if stderrors.Is(err, models.ErrInvalidPreferences) {
			return SendError(c, errors.PreferencesInvalid, errors.WithDetails(err.Error()))
		}
		return SendSystemError(c, err)
	}

	return c.JSON(http.StatusOK, dto.NewPreferencesResponse(updated))
}
