package services

import (
	"context"
	"testing"
	"time"

	"spending-guard/internal/config"
	"spending-guard/internal/database"
	"spending-guard/internal/models"
	"spending-guard/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SessionTestSuite struct {
	suite.Suite
	cfg     *config.Config
	sink    *recordingSink
	session *Session
	ctx     context.Context
	now     time.Time
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}

func testConfig() *config.Config {
	return &config.Config{
		Risk: config.DefaultRiskConfig(),
		Scheduler: config.SchedulerConfig{
			ShallowScanInterval: time.Minute,
			DeepScanInterval:    time.Hour,
		},
		Defaults: config.PreferenceDefaults{
			DailyLimit:      decimal.NewFromInt(200),
			WeeklyLimit:     decimal.NewFromInt(1000),
			MonthlyLimit:    decimal.NewFromInt(4000),
			TrackingEnabled: true,
			AlertsEnabled:   true,
		},
	}
}

func (s *SessionTestSuite) SetupTest() {
	s.cfg = testConfig()
	s.sink = &recordingSink{}
	// Wednesday afternoon
	s.now = time.Date(2024, 6, 12, 14, 0, 0, 0, time.UTC)
	s.session = s.newSession(SessionStores{})
	s.ctx = context.Background()
}

func (s *SessionTestSuite) TearDownTest() {
	s.session.Stop()
}

func (s *SessionTestSuite) newSession(stores SessionStores) *Session {
	session := NewSession(s.cfg, stores, nil, discardLogger(), s.sink)
	clock := func() time.Time { return s.now }
	session.Ledger.now = clock
	session.Patterns.now = clock
	session.Assessor.now = clock
	session.Geofences.now = clock
	session.Insights.now = clock
	session.Notifier.now = clock
	return session
}

func (s *SessionTestSuite) TestAssess_SmallCoffeeIsSafe() {
	assessment, err := s.session.Assess(s.ctx, AssessmentRequest{
		Amount:   decimal.NewFromInt(10),
		Merchant: "Starbucks",
	})

	s.Require().NoError(err)
	s.Equal(models.RiskLevelSafe, assessment.Level)
	s.Equal(models.ActionAllow, assessment.Action)
	s.Empty(s.sink.received)
}

func (s *SessionTestSuite) TestAssess_OverDailyLimitBlocks() {
	assessment, err := s.session.Assess(s.ctx, AssessmentRequest{
		Amount:   decimal.NewFromInt(220),
		Merchant: "Starbucks",
	})

	s.Require().NoError(err)
	amount, ok := assessment.Factor(models.FactorAmount)
	s.Require().True(ok)
	s.Equal(models.SeverityCritical, amount.Severity)
	s.Equal(models.ActionBlock, assessment.Action)
	s.Require().Len(s.sink.received, 1)
	s.Equal(models.NotificationCritical, s.sink.received[0].Severity)
	s.Equal("risk", s.sink.received[0].Source)
}

func (s *SessionTestSuite) TestAssess_AlertsDisabledSuppressesNotification() {
	prefs := s.session.Preferences.Current()
	prefs.AlertsEnabled = false
	_, err := s.session.Preferences.Update(s.ctx, prefs)
	s.Require().NoError(err)

	assessment, err := s.session.Assess(s.ctx, AssessmentRequest{
		Amount:   decimal.NewFromInt(500),
		Merchant: "Electronics Hut",
	})

	s.Require().NoError(err)
	s.Equal(models.ActionBlock, assessment.Action)
	s.Empty(s.sink.received)
}

func (s *SessionTestSuite) TestRecordTransaction_Categorizes() {
	tx := newTx("Starbucks", "5.25", s.now.Add(-time.Hour))
	tx.Category = ""

	s.Require().NoError(s.session.RecordTransaction(s.ctx, tx))

	s.Equal(models.CategoryDining, tx.Category)
	p, ok := s.session.Patterns.Pattern("starbucks")
	s.Require().True(ok)
	s.Equal(1, p.VisitCount)
}

func (s *SessionTestSuite) TestRecordTransaction_KeepsExplicitCategory() {
	tx := newTx("Starbucks", "5.25", s.now.Add(-time.Hour))
	tx.Category = models.CategoryEntertainment

	s.Require().NoError(s.session.RecordTransaction(s.ctx, tx))

	s.Equal(models.CategoryEntertainment, tx.Category)
}

func (s *SessionTestSuite) TestRecordTransaction_Invalid() {
	s.ErrorIs(s.session.RecordTransaction(s.ctx, nil), ErrTransactionNil)
	s.ErrorIs(s.session.RecordTransaction(s.ctx, newTx("Starbucks", "0", s.now)), models.ErrInvalidAmount)
	s.Empty(s.session.Patterns.Snapshot())
}

func (s *SessionTestSuite) TestPreferenceChangeRefreshesTiers() {
	s.Require().NoError(s.session.RecordTransaction(s.ctx, newTx("Bakery", "400", s.now.Add(-time.Hour))))
	s.Equal(models.RiskTierMedium, s.session.Patterns.Tier("Bakery"))

	prefs := s.session.Preferences.Current()
	prefs.WeeklyLimit = decimal.NewFromInt(700)
	_, err := s.session.Preferences.Update(s.ctx, prefs)
	s.Require().NoError(err)

	s.Equal(models.RiskTierHigh, s.session.Patterns.Tier("Bakery"))
}

func (s *SessionTestSuite) TestFrequentVisitsRaiseRisk() {
	for i := 3; i >= 1; i-- {
		s.Require().NoError(s.session.RecordTransaction(s.ctx, newTx("Bar Louie", "12", s.now.Add(-time.Duration(i)*time.Hour))))
	}

	assessment, err := s.session.Assess(s.ctx, AssessmentRequest{
		Amount:   decimal.NewFromInt(12),
		Merchant: "Bar Louie",
	})

	s.Require().NoError(err)
	frequency, ok := assessment.Factor(models.FactorFrequency)
	s.Require().True(ok)
	s.Equal(models.SeverityHigh, frequency.Severity)
	s.Equal(models.ActionRequireApproval, assessment.Action)
	s.Equal(models.NotificationWarning, s.sink.received[0].Severity)
}

func (s *SessionTestSuite) TestScanInsights() {
	s.Require().NoError(s.session.RecordTransaction(s.ctx, newTx("Grocer", "160", s.now.Add(-time.Hour))))

	insights := s.session.ScanInsights(s.ctx)

	s.Equal([]string{"daily-spend-high"}, keysOf(insights))
	s.Empty(s.session.ScanInsights(s.ctx))
}

func (s *SessionTestSuite) TestStartTracksWhenEnabled() {
	_, err := s.session.Geofences.AddGeofence(s.ctx, models.Geofence{
		Name:         "Casino",
		Center:       models.Coordinate{Latitude: 36.1147, Longitude: -115.1728},
		RadiusMeters: 150,
		Kind:         models.GeofenceKindHighRisk,
	})
	s.Require().NoError(err)

	s.Require().NoError(s.session.Start(s.ctx))
	s.True(s.session.Geofences.IsTracking())

	err = s.session.LocationFeed().Push(models.LocationReading{
		Coordinate: models.Coordinate{Latitude: 36.1147, Longitude: -115.1728},
	})
	s.Require().NoError(err)
	s.Len(s.session.Geofences.RecentEvents(), 1)
	s.Require().Len(s.sink.received, 1)
	s.Equal("geofence", s.sink.received[0].Source)

	s.session.Stop()
	s.False(s.session.Geofences.IsTracking())
	s.ErrorIs(s.session.LocationFeed().Push(models.LocationReading{}), ErrLocationUnavailable)
}

func (s *SessionTestSuite) TestStartWithoutTracking() {
	s.cfg.Defaults.TrackingEnabled = false
	s.session = s.newSession(SessionStores{})

	s.Require().NoError(s.session.Start(s.ctx))

	s.False(s.session.Geofences.IsTracking())
}

func (s *SessionTestSuite) TestInitRestoresPersistedState() {
	db := database.SetupTestDB(s.T())
	stores := SessionStores{
		Transactions: repositories.NewTransactionRepository(db.DB),
		Preferences:  repositories.NewPreferenceRepository(db.DB),
	}

	first := s.newSession(stores)
	first.Init(s.ctx)
	for i := 0; i < 11; i++ {
		tx := newTx("Casino Royale", "60", s.now.AddDate(0, 0, -i-1))
		s.Require().NoError(first.RecordTransaction(s.ctx, tx))
	}
	_, err := first.Geofences.AddGeofence(s.ctx, models.Geofence{
		Name:         "Casino Royale",
		Center:       models.Coordinate{Latitude: 36.1147, Longitude: -115.1728},
		RadiusMeters: 150,
		Kind:         models.GeofenceKindHighRisk,
	})
	s.Require().NoError(err)
	prefs := first.Preferences.Current()
	prefs.DailyLimit = decimal.RequireFromString("150.50")
	_, err = first.Preferences.Update(s.ctx, prefs)
	s.Require().NoError(err)

	second := s.newSession(stores)
	second.Init(s.ctx)

	s.Equal(11, second.Ledger.Len())
	s.Equal(models.RiskTierHigh, second.Patterns.Tier("casino royale"))
	s.Len(second.Geofences.Geofences(), 1)
	s.True(second.Preferences.Current().DailyLimit.Equal(decimal.RequireFromString("150.50")))
}
