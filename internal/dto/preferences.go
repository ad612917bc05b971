package dto

import "spending-guard/internal/models"

// UpdatePreferencesRequest replaces all preferences. Limits are decimal strings.
type UpdatePreferencesRequest struct {
	DailyLimit      string `json:"daily_limit" validate:"required,money_string"`
	WeeklyLimit     string `json:"weekly_limit" validate:"required,money_string"`
	MonthlyLimit    string `json:"monthly_limit" validate:"required,money_string"`
	TrackingEnabled *bool  `json:"tracking_enabled" validate:"required"`
	AlertsEnabled   *bool  `json:"alerts_enabled" validate:"required"`
}

type PreferencesResponse struct {
	DailyLimit      string `json:"daily_limit"`
	WeeklyLimit     string `json:"weekly_limit"`
	MonthlyLimit    string `json:"monthly_limit"`
	TrackingEnabled bool   `json:"tracking_enabled"`
	AlertsEnabled   bool   `json:"alerts_enabled"`
}

func NewPreferencesResponse(p models.Preferences) PreferencesResponse {
	return PreferencesResponse{
		DailyLimit:      p.DailyLimit.StringFixed(2),
		WeeklyLimit:     p.WeeklyLimit.StringFixed(2),
		MonthlyLimit:    p.MonthlyLimit.StringFixed(2),
		TrackingEnabled: p.TrackingEnabled,
		AlertsEnabled:   p.AlertsEnabled,
	}
}
