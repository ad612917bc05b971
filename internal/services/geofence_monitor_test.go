package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"spending-guard/internal/models"
	"spending-guard/internal/repositories"
	"spending-guard/internal/repositories/repository_mocks"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type GeofenceMonitorTestSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockStore *repository_mocks.MockPreferenceRepositoryInterface
	sink      *recordingSink
	monitor   *GeofenceMonitor
	ctx       context.Context
	center    models.Coordinate
}

func TestGeofenceMonitorSuite(t *testing.T) {
	suite.Run(t, new(GeofenceMonitorTestSuite))
}

func (s *GeofenceMonitorTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = repository_mocks.NewMockPreferenceRepositoryInterface(s.ctrl)
	s.sink = &recordingSink{}
	s.monitor = NewGeofenceMonitor(s.mockStore, s.sink, nil, discardLogger())
	s.monitor.now = func() time.Time { return time.Date(2024, 6, 12, 14, 0, 0, 0, time.UTC) }
	s.ctx = context.Background()
	s.center = models.Coordinate{Latitude: 37.7749, Longitude: -122.4194}
}

func (s *GeofenceMonitorTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *GeofenceMonitorTestSuite) addFence(name string, kind models.GeofenceKind, radius float64) models.Geofence {
	s.mockStore.EXPECT().Set(gomock.Any(), models.PrefKeyGeofences, gomock.Any()).Return(nil)
	g, err := s.monitor.AddGeofence(s.ctx, models.Geofence{
		Name:         name,
		Center:       s.center,
		RadiusMeters: radius,
		Kind:         kind,
	})
	s.Require().NoError(err)
	return g
}

// north returns a point roughly meters north of the fence center.
func (s *GeofenceMonitorTestSuite) north(meters float64) models.Coordinate {
	return models.Coordinate{Latitude: s.center.Latitude + meters/111195.0, Longitude: s.center.Longitude}
}

func (s *GeofenceMonitorTestSuite) TestEnterAndExit() {
	g := s.addFence("Casino", models.GeofenceKindHighRisk, 200)

	events, err := s.monitor.SimulateLocation(s.ctx, s.north(1000))
	s.Require().NoError(err)
	s.Empty(events)

	events, err = s.monitor.SimulateLocation(s.ctx, s.north(50))
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(models.GeofenceEventEnter, events[0].Type)
	s.Equal(g.ID, events[0].GeofenceID)

	events, _ = s.monitor.SimulateLocation(s.ctx, s.north(100))
	s.Empty(events)

	events, _ = s.monitor.SimulateLocation(s.ctx, s.north(500))
	s.Require().Len(events, 1)
	s.Equal(models.GeofenceEventExit, events[0].Type)

	s.Require().Len(s.sink.received, 2)
	s.Equal(models.NotificationWarning, s.sink.received[0].Severity)
	s.Equal("geofence", s.sink.received[0].Source)
	s.Equal(models.NotificationInfo, s.sink.received[1].Severity)
}

func (s *GeofenceMonitorTestSuite) TestBoundaryIsInside() {
	s.addFence("Cafe", models.GeofenceKindMerchant, 100)

	events, _ := s.monitor.SimulateLocation(s.ctx, s.north(99.5))

	s.Require().Len(events, 1)
	s.Equal(models.GeofenceEventEnter, events[0].Type)
}

func (s *GeofenceMonitorTestSuite) TestEventsAlternatePerFence() {
	s.addFence("Mall", models.GeofenceKindMerchant, 300)
	s.addFence("Home", models.GeofenceKindSafeZone, 50)

	last := make(map[uuid.UUID]models.GeofenceEventType)
	unsubscribe := s.monitor.Subscribe(func(e models.GeofenceEvent) {
		prev, seen := last[e.GeofenceID]
		if seen {
			s.NotEqual(prev, e.Type, "consecutive %s events for %s", e.Type, e.GeofenceName)
		} else {
			s.Equal(models.GeofenceEventEnter, e.Type)
		}
		last[e.GeofenceID] = e.Type
	})
	defer unsubscribe()

	for i := 0; i < 500; i++ {
		_, err := s.monitor.SimulateLocation(s.ctx, s.north(gofakeit.Float64Range(0, 600)))
		s.Require().NoError(err)
	}

	s.NotEmpty(last)
}

func (s *GeofenceMonitorTestSuite) TestRecentEventsBounded() {
	s.addFence("Bar", models.GeofenceKindHighRisk, 100)

	for i := 0; i < 40; i++ {
		_, _ = s.monitor.SimulateLocation(s.ctx, s.north(10))
		_, _ = s.monitor.SimulateLocation(s.ctx, s.north(1000))
	}

	recent := s.monitor.RecentEvents()
	s.Len(recent, recentEventLimit)
	s.Equal(models.GeofenceEventExit, recent[len(recent)-1].Type)
}

func (s *GeofenceMonitorTestSuite) TestSubscribeAndUnsubscribe() {
	s.addFence("Gym", models.GeofenceKindSafeZone, 100)
	count := 0
	unsubscribe := s.monitor.Subscribe(func(models.GeofenceEvent) { count++ })

	_, _ = s.monitor.SimulateLocation(s.ctx, s.north(0))
	unsubscribe()
	_, _ = s.monitor.SimulateLocation(s.ctx, s.north(1000))

	s.Equal(1, count)
}

func (s *GeofenceMonitorTestSuite) TestAddWhileInsideDoesNotEmit() {
	_, _ = s.monitor.SimulateLocation(s.ctx, s.north(0))
	s.addFence("Office", models.GeofenceKindSafeZone, 100)

	s.Len(s.monitor.Inside(), 1)
	s.Empty(s.monitor.RecentEvents())

	events, _ := s.monitor.SimulateLocation(s.ctx, s.north(1000))
	s.Require().Len(events, 1)
	s.Equal(models.GeofenceEventExit, events[0].Type)
}

func (s *GeofenceMonitorTestSuite) TestAddInvalidGeofence() {
	testCases := []struct {
		name  string
		fence models.Geofence
		err   error
	}{
		{"missing name", models.Geofence{Center: s.center, RadiusMeters: 10, Kind: models.GeofenceKindMerchant}, models.ErrInvalidGeofence},
		{"bad center", models.Geofence{Name: "x", Center: models.Coordinate{Latitude: 95}, RadiusMeters: 10, Kind: models.GeofenceKindMerchant}, models.ErrInvalidGeofence},
		{"zero radius", models.Geofence{Name: "x", Center: s.center, Kind: models.GeofenceKindMerchant}, models.ErrInvalidGeofence},
		{"unknown kind", models.Geofence{Name: "x", Center: s.center, RadiusMeters: 10, Kind: "volcano"}, models.ErrInvalidGeofenceKind},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := s.monitor.AddGeofence(s.ctx, tc.fence)
			s.ErrorIs(err, tc.err)
		})
	}
	s.Empty(s.monitor.Geofences())
}

func (s *GeofenceMonitorTestSuite) TestRemoveGeofence() {
	g := s.addFence("Casino", models.GeofenceKindHighRisk, 100)
	s.mockStore.EXPECT().Set(gomock.Any(), models.PrefKeyGeofences, "[]").Return(nil)

	s.NoError(s.monitor.RemoveGeofence(s.ctx, g.ID))
	s.ErrorIs(s.monitor.RemoveGeofence(s.ctx, g.ID), ErrGeofenceNotFound)
	s.Empty(s.monitor.Geofences())
}

func (s *GeofenceMonitorTestSuite) TestAddExistingIDRejected() {
	g := s.addFence("Casino", models.GeofenceKindHighRisk, 100)
	_, err := s.monitor.SimulateLocation(s.ctx, s.center)
	s.Require().NoError(err)

	elsewhere := models.Coordinate{Latitude: 40.7128, Longitude: -74.0060}
	moved := g
	moved.Center = elsewhere
	_, err = s.monitor.AddGeofence(s.ctx, moved)
	s.ErrorIs(err, ErrGeofenceExists)

	_, err = s.monitor.SimulateLocation(s.ctx, elsewhere)
	s.Require().NoError(err)

	stored, ok := s.monitor.Geofence(g.ID)
	s.Require().True(ok)
	s.Equal(s.center, stored.Center)

	recent := s.monitor.RecentEvents()
	s.Require().Len(recent, 2)
	s.Equal(models.GeofenceEventEnter, recent[0].Type)
	s.Equal(models.GeofenceEventExit, recent[1].Type)
}

func (s *GeofenceMonitorTestSuite) TestRemoveWhileInsideEmitsExit() {
	g := s.addFence("Casino", models.GeofenceKindHighRisk, 100)
	var seen []models.GeofenceEventType
	unsubscribe := s.monitor.Subscribe(func(e models.GeofenceEvent) {
		if e.GeofenceID == g.ID {
			seen = append(seen, e.Type)
		}
	})
	defer unsubscribe()

	_, err := s.monitor.SimulateLocation(s.ctx, s.north(10))
	s.Require().NoError(err)

	s.mockStore.EXPECT().Set(gomock.Any(), models.PrefKeyGeofences, "[]").Return(nil)
	s.Require().NoError(s.monitor.RemoveGeofence(s.ctx, g.ID))
	s.Empty(s.monitor.Inside())

	elsewhere := models.Coordinate{Latitude: 40.7128, Longitude: -74.0060}
	readded := g
	readded.Center = elsewhere
	s.mockStore.EXPECT().Set(gomock.Any(), models.PrefKeyGeofences, gomock.Any()).Return(nil)
	_, err = s.monitor.AddGeofence(s.ctx, readded)
	s.Require().NoError(err)

	_, err = s.monitor.SimulateLocation(s.ctx, elsewhere)
	s.Require().NoError(err)

	s.Equal([]models.GeofenceEventType{
		models.GeofenceEventEnter,
		models.GeofenceEventExit,
		models.GeofenceEventEnter,
	}, seen)
	s.Require().Len(s.sink.received, 3)
	s.Equal("Left area", s.sink.received[1].Title)
}

func (s *GeofenceMonitorTestSuite) TestPersistFailureIsNotFatal() {
	s.mockStore.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("read-only"))

	_, err := s.monitor.AddGeofence(s.ctx, models.Geofence{
		Name: "Casino", Center: s.center, RadiusMeters: 100, Kind: models.GeofenceKindHighRisk,
	})

	s.NoError(err)
	s.Len(s.monitor.Geofences(), 1)
}

func (s *GeofenceMonitorTestSuite) TestPersistedJSONRoundTrip() {
	var saved string
	s.mockStore.EXPECT().Set(gomock.Any(), models.PrefKeyGeofences, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, value string) error {
			saved = value
			return nil
		})
	g, err := s.monitor.AddGeofence(s.ctx, models.Geofence{
		Name: "Casino", Center: s.center, RadiusMeters: 150, Kind: models.GeofenceKindHighRisk,
	})
	s.Require().NoError(err)

	restored := NewGeofenceMonitor(s.mockStore, nil, nil, discardLogger())
	s.mockStore.EXPECT().Get(gomock.Any(), models.PrefKeyGeofences).Return(saved, nil)

	s.Require().NoError(restored.LoadGeofences(s.ctx))
	fences := restored.Geofences()
	s.Require().Len(fences, 1)
	s.Equal(g, fences[0])
}

func (s *GeofenceMonitorTestSuite) TestLoadGeofences() {
	valid := models.Geofence{ID: uuid.New(), Name: "Mall", Center: s.center, RadiusMeters: 50, Kind: models.GeofenceKindMerchant}
	invalid := models.Geofence{ID: uuid.New(), Name: "", Center: s.center, RadiusMeters: 50, Kind: models.GeofenceKindMerchant}
	data, err := json.Marshal([]models.Geofence{valid, invalid})
	s.Require().NoError(err)

	s.mockStore.EXPECT().Get(gomock.Any(), models.PrefKeyGeofences).Return(string(data), nil)

	s.NoError(s.monitor.LoadGeofences(s.ctx))
	s.Len(s.monitor.Geofences(), 1)
}

func (s *GeofenceMonitorTestSuite) TestLoadGeofences_Errors() {
	s.mockStore.EXPECT().Get(gomock.Any(), models.PrefKeyGeofences).Return("", repositories.ErrPreferenceNotFound)
	s.NoError(s.monitor.LoadGeofences(s.ctx))

	s.mockStore.EXPECT().Get(gomock.Any(), models.PrefKeyGeofences).Return("{not json", nil)
	s.Error(s.monitor.LoadGeofences(s.ctx))

	s.mockStore.EXPECT().Get(gomock.Any(), models.PrefKeyGeofences).Return("", errors.New("db down"))
	s.Error(s.monitor.LoadGeofences(s.ctx))
}

func (s *GeofenceMonitorTestSuite) TestStartWithUnavailableSource() {
	err := s.monitor.Start(s.ctx, NewFeedLocationSource(false))

	s.ErrorIs(err, ErrLocationUnavailable)
	s.False(s.monitor.IsTracking())

	events, err := s.monitor.SimulateLocation(s.ctx, s.north(0))
	s.NoError(err)
	s.Empty(events)
	current, ok := s.monitor.CurrentLocation()
	s.True(ok)
	s.True(current.Simulated)
}

func (s *GeofenceMonitorTestSuite) TestStartWrapsProviderErrors() {
	err := s.monitor.Start(s.ctx, failingSource{err: errors.New("permission denied")})

	s.ErrorIs(err, ErrLocationUnavailable)
	s.Contains(err.Error(), "permission denied")
}

func (s *GeofenceMonitorTestSuite) TestStartPushStop() {
	s.addFence("Casino", models.GeofenceKindHighRisk, 100)
	source := NewFeedLocationSource(true)

	s.Require().NoError(s.monitor.Start(s.ctx, source))
	s.True(s.monitor.IsTracking())
	s.ErrorIs(s.monitor.Start(s.ctx, source), ErrTrackingActive)

	s.NoError(source.Push(models.LocationReading{Coordinate: s.north(10), AccuracyMeters: 5}))
	s.Len(s.monitor.RecentEvents(), 1)
	current, ok := s.monitor.CurrentLocation()
	s.True(ok)
	s.False(current.Simulated)

	s.ErrorIs(source.Push(models.LocationReading{Coordinate: models.Coordinate{Latitude: 300}}), models.ErrInvalidCoordinate)

	s.monitor.Stop()
	s.False(s.monitor.IsTracking())
	s.ErrorIs(source.Push(models.LocationReading{Coordinate: s.north(1000)}), ErrLocationUnavailable)
	s.Len(s.monitor.RecentEvents(), 1)
}

func (s *GeofenceMonitorTestSuite) TestSimulateInvalidCoordinate() {
	_, err := s.monitor.SimulateLocation(s.ctx, models.Coordinate{Latitude: -91})
	s.ErrorIs(err, models.ErrInvalidCoordinate)
}

type failingSource struct {
	err error
}

func (f failingSource) Start(context.Context, func(models.LocationReading)) error { return f.err }
func (f failingSource) Stop()                                                     {}
