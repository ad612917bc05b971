package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePreferences() Preferences {
	return Preferences{
		DailyLimit:      decimal.NewFromInt(200),
		WeeklyLimit:     decimal.NewFromInt(1000),
		MonthlyLimit:    decimal.NewFromInt(4000),
		TrackingEnabled: true,
		AlertsEnabled:   false,
	}
}

func TestPreferences_Validate(t *testing.T) {
	assert.NoError(t, samplePreferences().Validate())

	p := samplePreferences()
	p.DailyLimit = decimal.Zero
	assert.ErrorIs(t, p.Validate(), ErrInvalidPreferences)

	p = samplePreferences()
	p.DailyLimit = decimal.NewFromInt(1500)
	assert.ErrorIs(t, p.Validate(), ErrInvalidPreferences)

	p = samplePreferences()
	p.WeeklyLimit = decimal.NewFromInt(5000)
	assert.ErrorIs(t, p.Validate(), ErrInvalidPreferences)
}

func TestPreferences_KeyValueRoundTrip(t *testing.T) {
	original := Preferences{
		DailyLimit:      decimal.RequireFromString("199.99"),
		WeeklyLimit:     decimal.RequireFromString("1000.5"),
		MonthlyLimit:    decimal.NewFromInt(4000),
		TrackingEnabled: true,
		AlertsEnabled:   true,
	}

	restored, err := PreferencesFromKeyValues(Preferences{}, original.ToKeyValues())
	require.NoError(t, err)

	assert.True(t, original.DailyLimit.Equal(restored.DailyLimit))
	assert.True(t, original.WeeklyLimit.Equal(restored.WeeklyLimit))
	assert.True(t, original.MonthlyLimit.Equal(restored.MonthlyLimit))
	assert.Equal(t, original.TrackingEnabled, restored.TrackingEnabled)
	assert.Equal(t, original.AlertsEnabled, restored.AlertsEnabled)
}

func TestPreferencesFromKeyValues_PartialAndMalformed(t *testing.T) {
	base := samplePreferences()

	p, err := PreferencesFromKeyValues(base, map[string]string{
		PrefKeyDailyLimit:    "250",
		PrefKeyWeeklyLimit:   "lots",
		PrefKeyAlertsEnabled: "maybe",
	})

	assert.Error(t, err)
	assert.True(t, p.DailyLimit.Equal(decimal.NewFromInt(250)))
	assert.True(t, p.WeeklyLimit.Equal(base.WeeklyLimit))
	assert.Equal(t, base.AlertsEnabled, p.AlertsEnabled)
	assert.Equal(t, base.TrackingEnabled, p.TrackingEnabled)
}
