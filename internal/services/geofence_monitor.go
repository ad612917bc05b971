package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"spending-guard/internal/models"
	"spending-guard/internal/repositories"

	"github.com/google/uuid"
)

const recentEventLimit = 50

var (
	ErrGeofenceNotFound = errors.New("geofence not found")
	ErrGeofenceExists   = errors.New("geofence already exists")
	ErrTrackingActive   = errors.New("location tracking already active")
)

// GeofenceMonitor tracks the device location against named circular regions. Each fence
// is either outside or inside; a location update that flips that state emits exactly
// one enter or exit event.
type GeofenceMonitor struct {
	mu          sync.RWMutex
	fences      map[uuid.UUID]models.Geofence
	order       []uuid.UUID
	inside      map[uuid.UUID]bool
	recent      []models.GeofenceEvent
	current     *models.LocationReading
	subscribers map[int]func(models.GeofenceEvent)
	nextSubID   int
	source      LocationSource

	// updateMu serializes location updates and fence membership changes so transitions
	// are evaluated in arrival order.
	updateMu sync.Mutex

	store   repositories.PreferenceRepositoryInterface
	sink    NotificationSink
	metrics MetricsRecorderInterface
	logger  *slog.Logger
	now     func() time.Time
}

func NewGeofenceMonitor(
	store repositories.PreferenceRepositoryInterface,
	sink NotificationSink,
	metrics MetricsRecorderInterface,
	logger *slog.Logger,
) *GeofenceMonitor {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeofenceMonitor{
		fences:      make(map[uuid.UUID]models.Geofence),
		inside:      make(map[uuid.UUID]bool),
		subscribers: make(map[int]func(models.GeofenceEvent)),
		store:       store,
		sink:        sink,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// LoadGeofences restores fences persisted under the geofences preference key.
// A missing key is not an error.
func (m *GeofenceMonitor) LoadGeofences(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	raw, err := m.store.Get(ctx, models.PrefKeyGeofences)
	if err != nil {
		if errors.Is(err, repositories.ErrPreferenceNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load geofences: %w", err)
	}

	var fences []models.Geofence
	if err := json.Unmarshal([]byte(raw), &fences); err != nil {
		return fmt.Errorf("failed to decode geofences: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range fences {
		if err := g.Validate(); err != nil {
			m.logger.Warn("skipping invalid stored geofence", "geofence_id", g.ID, "error", err)
			continue
		}
		m.putLocked(g)
	}
	return nil
}

// AddGeofence validates and registers a fence. The initial state is taken from the last
// known location without emitting an event. An ID that is already registered is
// rejected with ErrGeofenceExists; remove the fence first to replace it.
func (m *GeofenceMonitor) AddGeofence(ctx context.Context, g models.Geofence) (models.Geofence, error) {
	if err := g.Validate(); err != nil {
		return models.Geofence{}, err
	}
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}

	m.updateMu.Lock()
	m.mu.Lock()
	if _, exists := m.fences[g.ID]; exists {
		m.mu.Unlock()
		m.updateMu.Unlock()
		return models.Geofence{}, fmt.Errorf("%w: %s", ErrGeofenceExists, g.ID)
	}
	m.putLocked(g)
	m.mu.Unlock()
	m.updateMu.Unlock()

	m.persist(ctx)
	m.logger.Info("geofence added", "geofence_id", g.ID, "name", g.Name, "kind", g.Kind)
	return g, nil
}

func (m *GeofenceMonitor) putLocked(g models.Geofence) {
	if _, exists := m.fences[g.ID]; !exists {
		m.order = append(m.order, g.ID)
	}
	m.fences[g.ID] = g
	m.inside[g.ID] = m.current != nil && g.Contains(m.current.Coordinate)
}

// RemoveGeofence unregisters a fence. Removing a fence the device is inside emits a
// closing exit event so the fence's history always ends outside.
func (m *GeofenceMonitor) RemoveGeofence(ctx context.Context, id uuid.UUID) error {
	m.updateMu.Lock()
	defer m.updateMu.Unlock()

	m.mu.Lock()
	g, ok := m.fences[id]
	if !ok {
		m.mu.Unlock()
		return ErrGeofenceNotFound
	}

	var events []models.GeofenceEvent
	if m.inside[id] && m.current != nil {
		events = append(events, newGeofenceEvent(g, models.GeofenceEventExit, m.current.Coordinate, m.now()))
	}

	delete(m.fences, id)
	delete(m.inside, id)
	for i, fid := range m.order {
		if fid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	subscribers := m.recordLocked(events)
	m.mu.Unlock()

	m.dispatch(ctx, events, subscribers, false)
	m.persist(ctx)
	m.logger.Info("geofence removed", "geofence_id", id)
	return nil
}

// Geofences returns the fences in the order they were added.
func (m *GeofenceMonitor) Geofences() []models.Geofence {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Geofence, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.fences[id])
	}
	return out
}

func (m *GeofenceMonitor) Geofence(id uuid.UUID) (models.Geofence, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.fences[id]
	return g, ok
}

// Inside returns the fences that currently contain the device.
func (m *GeofenceMonitor) Inside() []models.Geofence {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Geofence
	for _, id := range m.order {
		if m.inside[id] {
			out = append(out, m.fences[id])
		}
	}
	return out
}

// persist writes the fence list; failures are logged and never returned.
func (m *GeofenceMonitor) persist(ctx context.Context) {
	if m.store == nil {
		return
	}

	data, err := json.Marshal(m.Geofences())
	if err != nil {
		m.logger.Error("failed to encode geofences", "error", err)
		return
	}
	if err := m.store.Set(ctx, models.PrefKeyGeofences, string(data)); err != nil {
		m.logger.Warn("failed to persist geofences", "error", err)
	}
}

// Subscribe registers fn for every enter/exit event and returns the unsubscribe function.
func (m *GeofenceMonitor) Subscribe(fn func(models.GeofenceEvent)) func() {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

// Start begins tracking with source. A failing provider is reported as
// ErrLocationUnavailable and not retried; callers fall back to SimulateLocation.
func (m *GeofenceMonitor) Start(ctx context.Context, source LocationSource) error {
	m.mu.Lock()
	if m.source != nil {
		m.mu.Unlock()
		return ErrTrackingActive
	}
	m.source = source
	m.mu.Unlock()

	err := source.Start(ctx, func(reading models.LocationReading) {
		m.processReading(ctx, reading)
	})
	if err != nil {
		m.mu.Lock()
		m.source = nil
		m.mu.Unlock()

		if !errors.Is(err, ErrLocationUnavailable) {
			err = fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
		}
		m.logger.Warn("location tracking unavailable, use simulated locations", "error", err)
		return err
	}

	m.logger.Info("location tracking started")
	return nil
}

// Stop unregisters from the location source. An update already being processed finishes.
func (m *GeofenceMonitor) Stop() {
	m.mu.Lock()
	source := m.source
	m.source = nil
	m.mu.Unlock()

	if source != nil {
		source.Stop()
		m.logger.Info("location tracking stopped")
	}
}

func (m *GeofenceMonitor) IsTracking() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.source != nil
}

// SimulateLocation feeds a manual fix through the same state machine as real updates.
func (m *GeofenceMonitor) SimulateLocation(ctx context.Context, coord models.Coordinate) ([]models.GeofenceEvent, error) {
	if !coord.IsValid() {
		return nil, models.ErrInvalidCoordinate
	}
	return m.processReading(ctx, models.LocationReading{
		Coordinate: coord,
		Timestamp:  m.now(),
		Simulated:  true,
	}), nil
}

func (m *GeofenceMonitor) CurrentLocation() (models.LocationReading, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return models.LocationReading{}, false
	}
	return *m.current, true
}

// RecentEvents returns up to the last 50 events, oldest first.
func (m *GeofenceMonitor) RecentEvents() []models.GeofenceEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.GeofenceEvent, len(m.recent))
	copy(out, m.recent)
	return out
}

func (m *GeofenceMonitor) processReading(ctx context.Context, reading models.LocationReading) []models.GeofenceEvent {
	if !reading.Coordinate.IsValid() {
		m.logger.Debug("ignoring invalid location reading")
		return nil
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = m.now()
	}

	m.updateMu.Lock()
	defer m.updateMu.Unlock()

	m.mu.Lock()
	r := reading
	m.current = &r

	var events []models.GeofenceEvent
	for _, id := range m.order {
		g := m.fences[id]
		nowInside := g.Contains(reading.Coordinate)
		if nowInside == m.inside[id] {
			continue
		}
		m.inside[id] = nowInside

		eventType := models.GeofenceEventExit
		if nowInside {
			eventType = models.GeofenceEventEnter
		}
		events = append(events, newGeofenceEvent(g, eventType, reading.Coordinate, reading.Timestamp))
	}
	subscribers := m.recordLocked(events)
	m.mu.Unlock()

	m.dispatch(ctx, events, subscribers, reading.Simulated)
	return events
}

func newGeofenceEvent(g models.Geofence, t models.GeofenceEventType, at models.Coordinate, when time.Time) models.GeofenceEvent {
	return models.GeofenceEvent{
		ID:           uuid.New(),
		GeofenceID:   g.ID,
		GeofenceName: g.Name,
		Kind:         g.Kind,
		Type:         t,
		Location:     at,
		OccurredAt:   when,
	}
}

// recordLocked appends events to the recent buffer and snapshots the subscribers in
// registration order. Caller holds m.mu.
func (m *GeofenceMonitor) recordLocked(events []models.GeofenceEvent) []func(models.GeofenceEvent) {
	m.recent = append(m.recent, events...)
	if overflow := len(m.recent) - recentEventLimit; overflow > 0 {
		m.recent = append([]models.GeofenceEvent(nil), m.recent[overflow:]...)
	}

	ids := make([]int, 0, len(m.subscribers))
	for id := range m.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subscribers := make([]func(models.GeofenceEvent), 0, len(ids))
	for _, id := range ids {
		subscribers = append(subscribers, m.subscribers[id])
	}
	return subscribers
}

func (m *GeofenceMonitor) dispatch(ctx context.Context, events []models.GeofenceEvent, subscribers []func(models.GeofenceEvent), simulated bool) {
	for _, event := range events {
		m.metrics.IncrementCounter("geofence.event", map[string]string{"type": string(event.Type), "kind": string(event.Kind)})
		m.logger.Info("geofence transition",
			"geofence_id", event.GeofenceID,
			"name", event.GeofenceName,
			"type", event.Type,
			"simulated", simulated,
		)
		for _, fn := range subscribers {
			fn(event)
		}
		if m.sink != nil {
			m.sink.Notify(ctx, notificationForEvent(event))
		}
	}
}

func notificationForEvent(e models.GeofenceEvent) models.Notification {
	n := models.Notification{
		Severity:  models.NotificationInfo,
		Source:    "geofence",
		Timestamp: e.OccurredAt,
	}

	switch {
	case e.Type == models.GeofenceEventEnter && e.Kind == models.GeofenceKindHighRisk:
		n.Title = "Entering a high-risk area"
		n.Message = fmt.Sprintf("You just entered %s. Think twice before spending here.", e.GeofenceName)
		n.Severity = models.NotificationWarning
	case e.Type == models.GeofenceEventEnter && e.Kind == models.GeofenceKindMerchant:
		n.Title = "Near a merchant"
		n.Message = fmt.Sprintf("You are at %s.", e.GeofenceName)
	case e.Type == models.GeofenceEventEnter:
		n.Title = "Entered safe zone"
		n.Message = fmt.Sprintf("You are back in %s.", e.GeofenceName)
	default:
		n.Title = "Left area"
		n.Message = fmt.Sprintf("You left %s.", e.GeofenceName)
	}
	return n
}
