package services

import (
	"context"
	"time"

	"spending-guard/internal/models"
)

// MetricsRecorderInterface records operational metrics by name
type MetricsRecorderInterface interface {
	IncrementCounter(name string, tags map[string]string)
	RecordProcessingTime(name string, duration time.Duration)
	RecordGauge(name string, value float64, tags map[string]string)
}

type CircuitBreakerInterface interface {
	IsOpen() bool
	RecordSuccess()
	RecordFailure()
	GetState() CircuitBreakerState
	Reset()
	GetFailureCount() int
}

// CategorizerInterface infers a spending category for a merchant
type CategorizerInterface interface {
	// CategorizeMerchant returns the best category guess and its confidence in [0,1]
	CategorizeMerchant(merchantName string) (category string, confidence float64)

	// FuzzyMatchMerchant performs fuzzy matching on known merchant names
	FuzzyMatchMerchant(input string) (merchant string, score float64)
}

// PreferencesProvider exposes the current in-memory preferences.
type PreferencesProvider interface {
	Current() models.Preferences
}

// GeofenceLister exposes the configured geofences.
type GeofenceLister interface {
	Geofences() []models.Geofence
}

// LocationSource pushes location fixes to the registered callback until Stop is called.
// Start fails with ErrLocationUnavailable when the provider cannot be started.
type LocationSource interface {
	Start(ctx context.Context, onUpdate func(models.LocationReading)) error
	Stop()
}

// NotificationSink receives structured notifications. Implementations must not block for long.
type NotificationSink interface {
	Notify(ctx context.Context, n models.Notification)
}

// NotificationSinkFunc adapts a plain function to NotificationSink.
type NotificationSinkFunc func(ctx context.Context, n models.Notification)

func (f NotificationSinkFunc) Notify(ctx context.Context, n models.Notification) {
	f(ctx, n)
}
