package models

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Preference keys in the flat key-value store.
const (
	PrefKeyDailyLimit      = "daily_limit"
	PrefKeyWeeklyLimit     = "weekly_limit"
	PrefKeyMonthlyLimit    = "monthly_limit"
	PrefKeyTrackingEnabled = "tracking_enabled"
	PrefKeyAlertsEnabled   = "alerts_enabled"
	PrefKeyGeofences       = "geofences"
)

var ErrInvalidPreferences = errors.New("invalid preferences")

// Preferences are the user-tunable thresholds feeding the risk assessor.
type Preferences struct {
	DailyLimit      decimal.Decimal `json:"daily_limit"`
	WeeklyLimit     decimal.Decimal `json:"weekly_limit"`
	MonthlyLimit    decimal.Decimal `json:"monthly_limit"`
	TrackingEnabled bool            `json:"tracking_enabled"`
	AlertsEnabled   bool            `json:"alerts_enabled"`
}

// Validate requires positive limits ordered daily <= weekly <= monthly.
func (p Preferences) Validate() error {
	if !p.DailyLimit.IsPositive() || !p.WeeklyLimit.IsPositive() || !p.MonthlyLimit.IsPositive() {
		return fmt.Errorf("%w: limits must be positive", ErrInvalidPreferences)
	}
	if p.DailyLimit.GreaterThan(p.WeeklyLimit) {
		return fmt.Errorf("%w: daily limit exceeds weekly limit", ErrInvalidPreferences)
	}
	if p.WeeklyLimit.GreaterThan(p.MonthlyLimit) {
		return fmt.Errorf("%w: weekly limit exceeds monthly limit", ErrInvalidPreferences)
	}
	return nil
}

// ToKeyValues flattens preferences for the key-value store.
func (p Preferences) ToKeyValues() map[string]string {
	return map[string]string{
		PrefKeyDailyLimit:      p.DailyLimit.String(),
		PrefKeyWeeklyLimit:     p.WeeklyLimit.String(),
		PrefKeyMonthlyLimit:    p.MonthlyLimit.String(),
		PrefKeyTrackingEnabled: strconv.FormatBool(p.TrackingEnabled),
		PrefKeyAlertsEnabled:   strconv.FormatBool(p.AlertsEnabled),
	}
}

// PreferencesFromKeyValues overlays stored values on top of base. Missing keys keep the
// base value; malformed values are reported and skipped.
func PreferencesFromKeyValues(base Preferences, kv map[string]string) (Preferences, error) {
	p := base
	var errs []error

	parseDecimal := func(key string, dst *decimal.Decimal) {
		raw, ok := kv[key]
		if !ok {
			return
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
	parseBool := func(key string, dst *bool) {
		raw, ok := kv[key]
		if !ok {
			return
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}

	parseDecimal(PrefKeyDailyLimit, &p.DailyLimit)
	parseDecimal(PrefKeyWeeklyLimit, &p.WeeklyLimit)
	parseDecimal(PrefKeyMonthlyLimit, &p.MonthlyLimit)
	parseBool(PrefKeyTrackingEnabled, &p.TrackingEnabled)
	parseBool(PrefKeyAlertsEnabled, &p.AlertsEnabled)

	return p, errors.Join(errs...)
}

// PreferenceEntry is one row of the key-value preference store.
type PreferenceEntry struct {
	Key       string    `gorm:"type:varchar(100);primary_key" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName returns the table name for PreferenceEntry
func (p *PreferenceEntry) TableName() string {
	return "preferences"
}
