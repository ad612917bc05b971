package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"spending-guard/internal/config"
	"spending-guard/internal/models"

	"github.com/shopspring/decimal"
)

const (
	maxRiskScore          = 100.0
	frequencyWindow       = 24 * time.Hour
	frequencyHighMinCount = 3
	frequencyMedMinCount  = 2
)

// AssessmentRequest describes a prospective purchase. Location is optional; an invalid
// one is ignored. At defaults to the assessor's clock.
type AssessmentRequest struct {
	Amount   decimal.Decimal
	Merchant string
	Category string
	Location *models.Coordinate
	At       time.Time
}

// RiskAssessor scores a prospective purchase against history, limits and location.
// It only reads state owned by other components.
type RiskAssessor struct {
	cfg      config.RiskConfig
	ledger   *Ledger
	patterns *PatternAggregator
	fences   GeofenceLister
	prefs    PreferencesProvider
	metrics  MetricsRecorderInterface
	now      func() time.Time
}

func NewRiskAssessor(
	cfg config.RiskConfig,
	ledger *Ledger,
	patterns *PatternAggregator,
	fences GeofenceLister,
	prefs PreferencesProvider,
	metrics MetricsRecorderInterface,
) *RiskAssessor {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &RiskAssessor{
		cfg:      cfg,
		ledger:   ledger,
		patterns: patterns,
		fences:   fences,
		prefs:    prefs,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Assess computes the five factors, the clamped score, the level and the gating action.
func (r *RiskAssessor) Assess(ctx context.Context, req AssessmentRequest) (*models.RiskAssessment, error) {
	start := time.Now()

	if err := models.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Merchant) == "" {
		return nil, models.ErrMerchantRequired
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	at := req.At
	if at.IsZero() {
		at = r.now()
	}
	prefs := r.prefs.Current()

	factors := []models.RiskFactor{
		r.amountFactor(req.Amount, prefs),
		r.historyFactor(req.Merchant),
	}
	if req.Location != nil && req.Location.IsValid() {
		factors = append(factors, r.locationFactor(*req.Location))
	}
	factors = append(factors,
		r.timeFactor(at),
		r.frequencyFactor(req.Merchant, at),
	)

	score := 0.0
	for _, f := range factors {
		score += f.Contribution()
	}
	score = clampScore(score)

	level := r.levelFor(score)
	action := r.actionFor(score, level)

	assessment := &models.RiskAssessment{
		Score:          score,
		Level:          level,
		Factors:        factors,
		Recommendation: recommendationFor(level, action, factors),
		Action:         action,
		Merchant:       req.Merchant,
		Amount:         req.Amount.StringFixed(2),
		AssessedAt:     at,
	}

	r.metrics.IncrementCounter("risk.assessed", map[string]string{"level": string(level), "action": string(action)})
	r.metrics.RecordGauge("risk.score", score, nil)
	r.metrics.RecordProcessingTime("risk.assessment", time.Since(start))

	return assessment, nil
}

func (r *RiskAssessor) amountFactor(amount decimal.Decimal, prefs models.Preferences) models.RiskFactor {
	weeklyShare := prefs.WeeklyLimit.Mul(decimal.NewFromFloat(r.cfg.WeeklyShareThreshold))
	monthlyShare := prefs.MonthlyLimit.Mul(decimal.NewFromFloat(r.cfg.MonthlyShareThreshold))

	switch {
	case amount.GreaterThan(prefs.DailyLimit):
		return models.RiskFactor{
			Category: models.FactorAmount,
			Severity: models.SeverityCritical,
			Message:  fmt.Sprintf("$%s exceeds your daily limit of $%s", amount.StringFixed(2), prefs.DailyLimit.StringFixed(2)),
			Weight:   r.cfg.AmountCriticalWeight,
		}
	case amount.GreaterThan(weeklyShare):
		return models.RiskFactor{
			Category: models.FactorAmount,
			Severity: models.SeverityHigh,
			Message:  fmt.Sprintf("$%s is more than %.0f%% of your weekly limit", amount.StringFixed(2), r.cfg.WeeklyShareThreshold*100),
			Weight:   r.cfg.AmountHighWeight,
		}
	case amount.GreaterThan(monthlyShare):
		return models.RiskFactor{
			Category: models.FactorAmount,
			Severity: models.SeverityMedium,
			Message:  fmt.Sprintf("$%s is more than %.0f%% of your monthly limit", amount.StringFixed(2), r.cfg.MonthlyShareThreshold*100),
			Weight:   r.cfg.AmountMediumWeight,
		}
	default:
		return models.RiskFactor{
			Category: models.FactorAmount,
			Severity: models.SeverityLow,
			Message:  "Amount is within your normal limits",
			Weight:   r.cfg.BaselineWeight,
		}
	}
}

func (r *RiskAssessor) historyFactor(merchant string) models.RiskFactor {
	switch r.patterns.CurrentTier(merchant) {
	case models.RiskTierHigh:
		return models.RiskFactor{
			Category: models.FactorHistory,
			Severity: models.SeverityHigh,
			Message:  fmt.Sprintf("%s is flagged as a high-risk merchant for you", merchant),
			Weight:   r.cfg.HistoryHighWeight,
		}
	case models.RiskTierMedium:
		return models.RiskFactor{
			Category: models.FactorHistory,
			Severity: models.SeverityMedium,
			Message:  fmt.Sprintf("You spend regularly at %s", merchant),
			Weight:   r.cfg.HistoryMediumWeight,
		}
	default:
		return models.RiskFactor{
			Category: models.FactorHistory,
			Severity: models.SeverityLow,
			Message:  "No concerning history with this merchant",
			Weight:   r.cfg.BaselineWeight,
		}
	}
}

func (r *RiskAssessor) locationFactor(loc models.Coordinate) models.RiskFactor {
	if nearby := r.nearbyMerchants(loc); len(nearby) > 0 {
		return models.RiskFactor{
			Category: models.FactorLocation,
			Severity: models.SeverityMedium,
			Message:  fmt.Sprintf("You are near %s", strings.Join(nearby, ", ")),
			Weight:   r.cfg.LocationNearbyWeight,
		}
	}
	return models.RiskFactor{
		Category: models.FactorLocation,
		Severity: models.SeverityLow,
		Message:  "No known merchants nearby",
		Weight:   r.cfg.BaselineWeight,
	}
}

// nearbyMerchants lists merchant geofences and ledger merchant locations within the
// configured radius.
func (r *RiskAssessor) nearbyMerchants(loc models.Coordinate) []string {
	seen := make(map[string]struct{})
	var names []string
	add := func(name string) {
		key := models.NormalizeMerchant(name)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}

	if r.fences != nil {
		for _, g := range r.fences.Geofences() {
			if g.Kind != models.GeofenceKindMerchant {
				continue
			}
			if g.Center.DistanceMeters(loc) <= math.Max(r.cfg.NearbyRadiusMeters, g.RadiusMeters) {
				add(g.Name)
			}
		}
	}
	for _, ml := range r.ledger.KnownMerchantLocations() {
		if ml.Location.DistanceMeters(loc) <= r.cfg.NearbyRadiusMeters {
			add(ml.Merchant)
		}
	}
	return names
}

func (r *RiskAssessor) timeFactor(at time.Time) models.RiskFactor {
	hour := at.Hour()
	switch {
	case hour >= r.cfg.NightStartHour || hour <= r.cfg.NightEndHour:
		return models.RiskFactor{
			Category: models.FactorTime,
			Severity: models.SeverityHigh,
			Message:  "Late-night purchases are more likely to be impulsive",
			Weight:   r.cfg.TimeNightWeight,
		}
	case at.Weekday() == time.Saturday || at.Weekday() == time.Sunday:
		return models.RiskFactor{
			Category: models.FactorTime,
			Severity: models.SeverityMedium,
			Message:  "Weekend spending tends to run higher",
			Weight:   r.cfg.TimeWeekendWeight,
		}
	default:
		return models.RiskFactor{
			Category: models.FactorTime,
			Severity: models.SeverityLow,
			Message:  "Normal time of day",
			Weight:   r.cfg.BaselineWeight,
		}
	}
}

func (r *RiskAssessor) frequencyFactor(merchant string, at time.Time) models.RiskFactor {
	count := 0
	for _, tx := range r.ledger.MerchantSince(merchant, at.Add(-frequencyWindow)) {
		if !tx.Timestamp.After(at) {
			count++
		}
	}

	switch {
	case count >= frequencyHighMinCount:
		return models.RiskFactor{
			Category: models.FactorFrequency,
			Severity: models.SeverityHigh,
			Message:  fmt.Sprintf("%d purchases at %s in the last 24 hours", count, merchant),
			Weight:   r.cfg.FrequencyHighWeight,
		}
	case count >= frequencyMedMinCount:
		return models.RiskFactor{
			Category: models.FactorFrequency,
			Severity: models.SeverityMedium,
			Message:  fmt.Sprintf("%d purchases at %s in the last 24 hours", count, merchant),
			Weight:   r.cfg.FrequencyMedWeight,
		}
	default:
		return models.RiskFactor{
			Category: models.FactorFrequency,
			Severity: models.SeverityLow,
			Message:  "Normal purchase frequency",
			Weight:   r.cfg.BaselineWeight,
		}
	}
}

// levelFor maps a score onto a level. Band floors are exclusive: a score equal to a
// threshold stays in the lower band.
func (r *RiskAssessor) levelFor(score float64) models.RiskLevel {
	switch {
	case score > r.cfg.CriticalThreshold:
		return models.RiskLevelCritical
	case score > r.cfg.DangerThreshold:
		return models.RiskLevelDanger
	case score > r.cfg.WarningThreshold:
		return models.RiskLevelWarning
	case score > r.cfg.CautionThreshold:
		return models.RiskLevelCaution
	default:
		return models.RiskLevelSafe
	}
}

func (r *RiskAssessor) actionFor(score float64, level models.RiskLevel) models.GatingAction {
	switch {
	case score >= r.cfg.BlockScore || level == models.RiskLevelCritical:
		return models.ActionBlock
	case score >= r.cfg.RequireApprovalScore || level == models.RiskLevelDanger:
		return models.ActionRequireApproval
	case score >= r.cfg.WarnScore || level == models.RiskLevelWarning:
		return models.ActionWarn
	default:
		return models.ActionAllow
	}
}

func clampScore(score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > maxRiskScore {
		return maxRiskScore
	}
	return score
}

// recommendationFor builds the advice text from the level and the strongest factor.
func recommendationFor(level models.RiskLevel, action models.GatingAction, factors []models.RiskFactor) string {
	var strongest *models.RiskFactor
	for i := range factors {
		if factors[i].Severity == models.SeverityLow {
			continue
		}
		if strongest == nil || factors[i].Contribution() > strongest.Contribution() {
			strongest = &factors[i]
		}
	}

	var base string
	switch action {
	case models.ActionBlock:
		base = "Stop. This purchase breaks your spending rules."
	case models.ActionRequireApproval:
		base = "Take a moment before buying. This purchase needs a second look."
	case models.ActionWarn:
		base = "Proceed with care."
	default:
		base = "Looks fine. Enjoy your purchase."
	}

	if strongest == nil || level == models.RiskLevelSafe {
		return base
	}
	return base + " " + strongest.Message + "."
}
