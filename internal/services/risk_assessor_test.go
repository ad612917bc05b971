package services

import (
	"context"
	"testing"
	"time"

	"spending-guard/internal/config"
	"spending-guard/internal/models"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type RiskAssessorTestSuite struct {
	suite.Suite
	ledger     *Ledger
	prefs      *staticPrefs
	fences     staticFences
	aggregator *PatternAggregator
	assessor   *RiskAssessor
	ctx        context.Context
	// Wednesday 2pm
	weekdayAfternoon time.Time
}

func TestRiskAssessorSuite(t *testing.T) {
	suite.Run(t, new(RiskAssessorTestSuite))
}

func (s *RiskAssessorTestSuite) SetupTest() {
	s.weekdayAfternoon = time.Date(2024, 6, 12, 14, 0, 0, 0, time.UTC)
	s.ctx = context.Background()
	s.ledger = NewLedger(nil, nil, discardLogger())
	s.prefs = &staticPrefs{prefs: defaultTestPrefs()}
	s.fences = nil
	s.aggregator = NewPatternAggregator(s.ledger, s.prefs, nil)
	s.aggregator.now = func() time.Time { return s.weekdayAfternoon }
	s.newAssessor(config.DefaultRiskConfig())
}

func (s *RiskAssessorTestSuite) newAssessor(cfg config.RiskConfig) {
	s.assessor = NewRiskAssessor(cfg, s.ledger, s.aggregator, &s.fences, s.prefs, nil)
	s.assessor.now = func() time.Time { return s.weekdayAfternoon }
}

func (s *RiskAssessorTestSuite) record(merchant, amount string, at time.Time) {
	tx := newTx(merchant, amount, at)
	s.Require().NoError(s.ledger.Append(s.ctx, tx))
	s.aggregator.RecordTransaction(s.ctx, *tx)
}

func (s *RiskAssessorTestSuite) assess(amount string, merchant string, at time.Time, loc *models.Coordinate) *models.RiskAssessment {
	result, err := s.assessor.Assess(s.ctx, AssessmentRequest{
		Amount:   decimal.RequireFromString(amount),
		Merchant: merchant,
		Category: models.CategoryDining,
		Location: loc,
		At:       at,
	})
	s.Require().NoError(err)
	return result
}

func (s *RiskAssessorTestSuite) TestStarbucksSmallWeekdayPurchaseIsSafe() {
	result := s.assess("10", "Starbucks", s.weekdayAfternoon, nil)

	s.Equal(20.0, result.Score)
	s.Equal(models.RiskLevelSafe, result.Level)
	s.Equal(models.ActionAllow, result.Action)
	s.Len(result.Factors, 4)
	_, hasLocation := result.Factor(models.FactorLocation)
	s.False(hasLocation)
	s.Equal("10.00", result.Amount)
}

func (s *RiskAssessorTestSuite) TestAmountOverDailyLimitBlocks() {
	for _, amount := range []string{"220", "250", "200.01"} {
		s.Run(amount, func() {
			result := s.assess(amount, "Starbucks", s.weekdayAfternoon, nil)

			factor, ok := result.Factor(models.FactorAmount)
			s.Require().True(ok)
			s.Equal(models.SeverityCritical, factor.Severity)
			s.Equal(30.0, factor.Weight)
			s.Equal(100.0, result.Score)
			s.Equal(models.RiskLevelCritical, result.Level)
			s.Equal(models.ActionBlock, result.Action)
		})
	}
}

func (s *RiskAssessorTestSuite) TestAmountAtDailyLimitIsNotCritical() {
	result := s.assess("200", "Starbucks", s.weekdayAfternoon, nil)

	factor, _ := result.Factor(models.FactorAmount)
	s.NotEqual(models.SeverityCritical, factor.Severity)
}

func (s *RiskAssessorTestSuite) TestAmountBands() {
	s.prefs.prefs = models.Preferences{
		DailyLimit:   decimal.NewFromInt(1000),
		WeeklyLimit:  decimal.NewFromInt(2000),
		MonthlyLimit: decimal.NewFromInt(4000),
	}

	testCases := []struct {
		amount   string
		severity models.Severity
		weight   float64
	}{
		{"601", models.SeverityHigh, 20},
		{"401", models.SeverityMedium, 10},
		{"400", models.SeverityLow, 5},
		{"1000.01", models.SeverityCritical, 30},
	}

	for _, tc := range testCases {
		s.Run(tc.amount, func() {
			result := s.assess(tc.amount, "Electronics Hub", s.weekdayAfternoon, nil)
			factor, ok := result.Factor(models.FactorAmount)
			s.Require().True(ok)
			s.Equal(tc.severity, factor.Severity)
			s.Equal(tc.weight, factor.Weight)
		})
	}
}

func (s *RiskAssessorTestSuite) TestTimeFactor() {
	testCases := []struct {
		name     string
		at       time.Time
		severity models.Severity
		level    models.RiskLevel
		action   models.GatingAction
	}{
		{"weekday 10pm", time.Date(2024, 6, 12, 22, 0, 0, 0, time.UTC), models.SeverityHigh, models.RiskLevelWarning, models.ActionWarn},
		{"weekday 11pm", time.Date(2024, 6, 12, 23, 30, 0, 0, time.UTC), models.SeverityHigh, models.RiskLevelWarning, models.ActionWarn},
		{"weekday 6am", time.Date(2024, 6, 12, 6, 59, 0, 0, time.UTC), models.SeverityHigh, models.RiskLevelWarning, models.ActionWarn},
		{"weekday 7am", time.Date(2024, 6, 12, 7, 0, 0, 0, time.UTC), models.SeverityLow, models.RiskLevelSafe, models.ActionAllow},
		{"saturday afternoon", time.Date(2024, 6, 15, 14, 0, 0, 0, time.UTC), models.SeverityMedium, models.RiskLevelCaution, models.ActionAllow},
		{"sunday midnight", time.Date(2024, 6, 16, 0, 30, 0, 0, time.UTC), models.SeverityHigh, models.RiskLevelWarning, models.ActionWarn},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			result := s.assess("10", "Starbucks", tc.at, nil)
			factor, ok := result.Factor(models.FactorTime)
			s.Require().True(ok)
			s.Equal(tc.severity, factor.Severity)
			s.Equal(tc.level, result.Level)
			s.Equal(tc.action, result.Action)
		})
	}
}

func (s *RiskAssessorTestSuite) TestFrequencyFactor() {
	s.record("Boba Shop", "6", s.weekdayAfternoon.Add(-3*time.Hour))

	result := s.assess("6", "Boba Shop", s.weekdayAfternoon, nil)
	factor, _ := result.Factor(models.FactorFrequency)
	s.Equal(models.SeverityLow, factor.Severity)

	s.record("Boba Shop", "6", s.weekdayAfternoon.Add(-2*time.Hour))
	result = s.assess("6", "Boba Shop", s.weekdayAfternoon, nil)
	factor, _ = result.Factor(models.FactorFrequency)
	s.Equal(models.SeverityMedium, factor.Severity)

	s.record("Boba Shop", "6", s.weekdayAfternoon.Add(-time.Hour))
	result = s.assess("6", "Boba Shop", s.weekdayAfternoon, nil)
	factor, _ = result.Factor(models.FactorFrequency)
	s.Equal(models.SeverityHigh, factor.Severity)
	s.Equal(75.0, result.Score)
	s.Equal(models.RiskLevelDanger, result.Level)
	s.Equal(models.ActionRequireApproval, result.Action)
}

func (s *RiskAssessorTestSuite) TestFrequencyIgnoresOlderThanADay() {
	for i := 0; i < 4; i++ {
		s.record("Boba Shop", "6", s.weekdayAfternoon.Add(-25*time.Hour-time.Duration(i)*time.Hour))
	}

	result := s.assess("6", "Boba Shop", s.weekdayAfternoon, nil)

	factor, _ := result.Factor(models.FactorFrequency)
	s.Equal(models.SeverityLow, factor.Severity)
}

func (s *RiskAssessorTestSuite) TestHistoryFactor() {
	old := s.weekdayAfternoon.AddDate(0, -2, 0)
	for i := 0; i < 11; i++ {
		s.record("Casino Royale", "60", old.Add(time.Duration(i)*time.Hour))
	}
	for i := 0; i < 6; i++ {
		s.record("Kroger", "20", old.Add(time.Duration(i)*time.Hour))
	}

	result := s.assess("10", "Casino Royale", s.weekdayAfternoon, nil)
	factor, _ := result.Factor(models.FactorHistory)
	s.Equal(models.SeverityHigh, factor.Severity)
	s.Equal(25.0, factor.Weight)
	s.Contains(result.Recommendation, "Casino Royale")

	result = s.assess("10", "kroger", s.weekdayAfternoon, nil)
	factor, _ = result.Factor(models.FactorHistory)
	s.Equal(models.SeverityMedium, factor.Severity)
	s.Equal(15.0, factor.Weight)
}

func (s *RiskAssessorTestSuite) TestHistoryFactorUsesCurrentLimits() {
	s.record("Electronics Hub", "600", s.weekdayAfternoon.Add(-24*time.Hour))
	s.Require().Equal(models.RiskTierHigh, s.aggregator.Tier("Electronics Hub"))

	s.prefs.prefs.WeeklyLimit = decimal.NewFromInt(5000)
	s.prefs.prefs.MonthlyLimit = decimal.NewFromInt(20000)

	result := s.assess("10", "Electronics Hub", s.weekdayAfternoon, nil)
	factor, ok := result.Factor(models.FactorHistory)
	s.Require().True(ok)
	s.Equal(models.SeverityMedium, factor.Severity)
	s.Equal(15.0, factor.Weight)
}

func (s *RiskAssessorTestSuite) TestLocationFactor() {
	storeLoc := models.Coordinate{Latitude: 40.7580, Longitude: -73.9855}
	s.fences = staticFences{{
		ID:           uuid.New(),
		Name:         "Times Square Mall",
		Center:       storeLoc,
		RadiusMeters: 100,
		Kind:         models.GeofenceKindMerchant,
	}}

	near := models.Coordinate{Latitude: 40.7590, Longitude: -73.9850}
	result := s.assess("10", "Starbucks", s.weekdayAfternoon, &near)
	factor, ok := result.Factor(models.FactorLocation)
	s.Require().True(ok)
	s.Equal(models.SeverityMedium, factor.Severity)
	s.Contains(factor.Message, "Times Square Mall")
	s.Equal(40.0, result.Score)
	s.Equal(models.RiskLevelCaution, result.Level)

	far := models.Coordinate{Latitude: 34.0522, Longitude: -118.2437}
	result = s.assess("10", "Starbucks", s.weekdayAfternoon, &far)
	factor, ok = result.Factor(models.FactorLocation)
	s.Require().True(ok)
	s.Equal(models.SeverityLow, factor.Severity)
	s.Equal(25.0, result.Score)
}

func (s *RiskAssessorTestSuite) TestLocationFromLedgerMerchants() {
	shop := models.Coordinate{Latitude: 51.5007, Longitude: -0.1246}
	tx := newTx("Pub on the Corner", "12", s.weekdayAfternoon.AddDate(0, 0, -10))
	tx.SetLocation(&shop)
	s.Require().NoError(s.ledger.Append(s.ctx, tx))

	here := models.Coordinate{Latitude: 51.5010, Longitude: -0.1240}
	result := s.assess("10", "Starbucks", s.weekdayAfternoon, &here)

	factor, _ := result.Factor(models.FactorLocation)
	s.Equal(models.SeverityMedium, factor.Severity)
	s.Contains(factor.Message, "Pub on the Corner")
}

func (s *RiskAssessorTestSuite) TestMalformedLocationIsOmitted() {
	bad := models.Coordinate{Latitude: 200, Longitude: 0}

	result := s.assess("10", "Starbucks", s.weekdayAfternoon, &bad)

	_, ok := result.Factor(models.FactorLocation)
	s.False(ok)
	s.Len(result.Factors, 4)
}

func (s *RiskAssessorTestSuite) TestInvalidInputs() {
	_, err := s.assessor.Assess(s.ctx, AssessmentRequest{Amount: decimal.Zero, Merchant: "Starbucks"})
	s.ErrorIs(err, models.ErrInvalidAmount)

	_, err = s.assessor.Assess(s.ctx, AssessmentRequest{Amount: decimal.NewFromInt(-5), Merchant: "Starbucks"})
	s.ErrorIs(err, models.ErrInvalidAmount)

	_, err = s.assessor.Assess(s.ctx, AssessmentRequest{Amount: decimal.NewFromInt(5), Merchant: " "})
	s.ErrorIs(err, models.ErrMerchantRequired)
}

func (s *RiskAssessorTestSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.assessor.Assess(ctx, AssessmentRequest{Amount: decimal.NewFromInt(5), Merchant: "Starbucks"})

	s.ErrorIs(err, context.Canceled)
}

func (s *RiskAssessorTestSuite) TestUsesClockWhenNoTimeGiven() {
	result, err := s.assessor.Assess(s.ctx, AssessmentRequest{Amount: decimal.NewFromInt(5), Merchant: "Starbucks"})

	s.Require().NoError(err)
	s.Equal(s.weekdayAfternoon, result.AssessedAt)
}

func (s *RiskAssessorTestSuite) TestScoreAlwaysClamped() {
	for i := 0; i < 100; i++ {
		cfg := config.DefaultRiskConfig()
		cfg.AmountCriticalWeight = gofakeit.Float64Range(-100, 500)
		cfg.AmountHighWeight = gofakeit.Float64Range(-100, 500)
		cfg.AmountMediumWeight = gofakeit.Float64Range(-100, 500)
		cfg.HistoryHighWeight = gofakeit.Float64Range(-100, 500)
		cfg.TimeNightWeight = gofakeit.Float64Range(-100, 500)
		cfg.FrequencyHighWeight = gofakeit.Float64Range(-100, 500)
		cfg.BaselineWeight = gofakeit.Float64Range(-100, 500)
		s.newAssessor(cfg)

		at := s.weekdayAfternoon.Add(time.Duration(gofakeit.IntRange(0, 167)) * time.Hour)
		amount := decimal.NewFromFloat(gofakeit.Float64Range(0.01, 5000)).Round(2)
		if !amount.IsPositive() {
			amount = decimal.NewFromInt(1)
		}

		result := s.assess(amount.String(), "Starbucks", at, nil)

		s.GreaterOrEqual(result.Score, 0.0)
		s.LessOrEqual(result.Score, 100.0)
	}
}

func (s *RiskAssessorTestSuite) TestGatingThresholds() {
	cfg := config.DefaultRiskConfig()
	s.newAssessor(cfg)

	testCases := []struct {
		score  float64
		level  models.RiskLevel
		action models.GatingAction
	}{
		{0, models.RiskLevelSafe, models.ActionAllow},
		{20, models.RiskLevelSafe, models.ActionAllow},
		{21, models.RiskLevelCaution, models.ActionAllow},
		{40, models.RiskLevelCaution, models.ActionAllow},
		{41, models.RiskLevelWarning, models.ActionWarn},
		{60, models.RiskLevelWarning, models.ActionWarn},
		{61, models.RiskLevelDanger, models.ActionRequireApproval},
		{80, models.RiskLevelDanger, models.ActionRequireApproval},
		{81, models.RiskLevelCritical, models.ActionBlock},
		{100, models.RiskLevelCritical, models.ActionBlock},
	}

	for _, tc := range testCases {
		level := s.assessor.levelFor(tc.score)
		s.Equal(tc.level, level, "score %v", tc.score)
		s.Equal(tc.action, s.assessor.actionFor(tc.score, level), "score %v", tc.score)
	}
}
