package handlers

import (
	"spending-guard/internal/validation"

	"github.com/labstack/echo/v4"
)

// NewValidator returns the echo validator carrying the custom money, coordinate,
// category and geofence rules.
func NewValidator() echo.Validator {
	return validation.GetValidator()
}
