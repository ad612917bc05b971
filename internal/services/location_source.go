package services

import (
	"context"
	"errors"
	"sync"

	"spending-guard/internal/models"
)

var (
	ErrLocationUnavailable = errors.New("location provider unavailable")
)

// FeedLocationSource is a push-based LocationSource. A client such as a phone posts its
// fixes through Push while the source is started.
type FeedLocationSource struct {
	mu        sync.RWMutex
	available bool
	onUpdate  func(models.LocationReading)
}

// NewFeedLocationSource creates a source. An unavailable source refuses to start, which
// models a provider without permission.
func NewFeedLocationSource(available bool) *FeedLocationSource {
	return &FeedLocationSource{available: available}
}

func (f *FeedLocationSource) Start(_ context.Context, onUpdate func(models.LocationReading)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.available {
		return ErrLocationUnavailable
	}
	f.onUpdate = onUpdate
	return nil
}

func (f *FeedLocationSource) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onUpdate = nil
}

// Push delivers a reading to the registered callback. It fails with
// ErrLocationUnavailable when the source is not started.
func (f *FeedLocationSource) Push(reading models.LocationReading) error {
	if !reading.Coordinate.IsValid() {
		return models.ErrInvalidCoordinate
	}

	f.mu.RLock()
	onUpdate := f.onUpdate
	f.mu.RUnlock()

	if onUpdate == nil {
		return ErrLocationUnavailable
	}
	onUpdate(reading)
	return nil
}
