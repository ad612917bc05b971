package services

import (
	"spending-guard/internal/models"

	"github.com/shopspring/decimal"
)

type staticPrefs struct {
	prefs models.Preferences
}

func (s *staticPrefs) Current() models.Preferences {
	return s.prefs
}

func defaultTestPrefs() models.Preferences {
	return models.Preferences{
		DailyLimit:      decimal.NewFromInt(200),
		WeeklyLimit:     decimal.NewFromInt(1000),
		MonthlyLimit:    decimal.NewFromInt(4000),
		TrackingEnabled: true,
		AlertsEnabled:   true,
	}
}

type staticFences []models.Geofence

func (f staticFences) Geofences() []models.Geofence {
	return f
}
