package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"spending-guard/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	weeklyWarnShare       = 0.80
	spikeMultiple         = 2
	spikeMinVisits        = 3
	forecastRecentWeight  = 0.7
	forecastHistoryWeight = 0.3
	minTrendFactor        = 0.5
	maxTrendFactor        = 1.5
	dayLayout             = "2006-01-02"
)

var dailySpendTrendThreshold = decimal.NewFromInt(150)

// InsightGenerator scans the ledger and merchant patterns for noteworthy spending and
// keeps the resulting insights for the lifetime of the session.
type InsightGenerator struct {
	mu       sync.RWMutex
	insights []models.Insight
	emitted  map[string]string
	hooks    []func(models.Insight)

	ledger   *Ledger
	patterns *PatternAggregator
	prefs    PreferencesProvider
	sink     NotificationSink
	metrics  MetricsRecorderInterface
	logger   *slog.Logger
	now      func() time.Time
}

func NewInsightGenerator(
	ledger *Ledger,
	patterns *PatternAggregator,
	prefs PreferencesProvider,
	sink NotificationSink,
	metrics MetricsRecorderInterface,
	logger *slog.Logger,
) *InsightGenerator {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InsightGenerator{
		emitted:  make(map[string]string),
		ledger:   ledger,
		patterns: patterns,
		prefs:    prefs,
		sink:     sink,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// ShallowScan looks at today's activity only.
func (g *InsightGenerator) ShallowScan(ctx context.Context) []models.Insight {
	start := time.Now()
	defer func() { g.metrics.RecordProcessingTime("insight.scan.shallow", time.Since(start)) }()

	now := g.now()
	prefs := g.prefs.Current()
	dayStart := startOfDay(now)
	today := g.ledger.SpentBetween(dayStart, dayStart.AddDate(0, 0, 1))

	var candidates []models.Insight
	if today.GreaterThan(dailySpendTrendThreshold) {
		candidates = append(candidates, models.Insight{
			Key:      "daily-spend-high",
			Type:     models.InsightTrend,
			Severity: models.InsightSeverityHigh,
			Title:    "High spending today",
			Message:  fmt.Sprintf("You have spent $%s today.", today.StringFixed(2)),
		})
	}
	if prefs.DailyLimit.IsPositive() && today.GreaterThan(prefs.DailyLimit) {
		candidates = append(candidates, models.Insight{
			Key:      "daily-limit-exceeded",
			Type:     models.InsightAnomaly,
			Severity: models.InsightSeverityHigh,
			Title:    "Daily limit exceeded",
			Message: fmt.Sprintf("Today's spending of $%s is over your $%s daily limit.",
				today.StringFixed(2), prefs.DailyLimit.StringFixed(2)),
		})
	}
	for _, p := range g.patterns.Snapshot() {
		if p.RiskTier != models.RiskTierHigh || p.LastVisit.Before(dayStart) {
			continue
		}
		candidates = append(candidates, models.Insight{
			Key:      "high-risk-visit:" + models.NormalizeMerchant(p.Merchant),
			Type:     models.InsightRecommendation,
			Severity: models.InsightSeverityWarning,
			Title:    "Visited a high-risk merchant",
			Message:  fmt.Sprintf("You spent at %s today, where you tend to overspend.", p.Merchant),
			Merchant: p.Merchant,
		})
	}

	return g.emit(ctx, now, candidates)
}

// DeepScan looks at the trailing week and month plus per-merchant behaviour.
func (g *InsightGenerator) DeepScan(ctx context.Context) []models.Insight {
	start := time.Now()
	defer func() { g.metrics.RecordProcessingTime("insight.scan.deep", time.Since(start)) }()

	now := g.now()
	prefs := g.prefs.Current()
	weekly := sumAmounts(g.ledger.Since(now.Add(-weekWindow)))
	monthly := sumAmounts(g.ledger.Since(now.Add(-monthWindow)))

	var candidates []models.Insight
	if prefs.WeeklyLimit.IsPositive() && weekly.GreaterThan(prefs.WeeklyLimit.Mul(decimal.NewFromFloat(weeklyWarnShare))) {
		candidates = append(candidates, models.Insight{
			Key:      "weekly-limit-approaching",
			Type:     models.InsightTrend,
			Severity: models.InsightSeverityWarning,
			Title:    "Approaching weekly limit",
			Message: fmt.Sprintf("You have spent $%s of your $%s weekly limit.",
				weekly.StringFixed(2), prefs.WeeklyLimit.StringFixed(2)),
		})
	}
	if prefs.MonthlyLimit.IsPositive() && monthly.GreaterThan(prefs.MonthlyLimit) {
		candidates = append(candidates, models.Insight{
			Key:      "monthly-limit-exceeded",
			Type:     models.InsightAnomaly,
			Severity: models.InsightSeverityHigh,
			Title:    "Monthly limit exceeded",
			Message: fmt.Sprintf("Spending over the last 30 days is $%s, above your $%s monthly limit.",
				monthly.StringFixed(2), prefs.MonthlyLimit.StringFixed(2)),
		})
	}

	for _, p := range g.patterns.Snapshot() {
		key := models.NormalizeMerchant(p.Merchant)
		if p.RiskTier == models.RiskTierHigh {
			candidates = append(candidates, models.Insight{
				Key:      "high-risk-merchant:" + key,
				Type:     models.InsightRecommendation,
				Severity: models.InsightSeverityWarning,
				Title:    "Consider a budget for " + p.Merchant,
				Message: fmt.Sprintf("%d visits averaging $%s. Setting a cap for %s would help.",
					p.VisitCount, p.AverageAmount().StringFixed(2), p.Merchant),
				Merchant: p.Merchant,
			})
		}
		if p.VisitCount < spikeMinVisits {
			continue
		}
		latest, ok := latestTransaction(g.ledger.ByMerchant(p.Merchant))
		if !ok {
			continue
		}
		avg := p.AverageAmount()
		if latest.Amount.GreaterThan(avg.Mul(decimal.NewFromInt(spikeMultiple))) {
			candidates = append(candidates, models.Insight{
				Key:      "merchant-spike:" + key,
				Type:     models.InsightAnomaly,
				Severity: models.InsightSeverityWarning,
				Title:    "Unusual purchase at " + p.Merchant,
				Message: fmt.Sprintf("Your latest purchase of $%s is more than twice your usual $%s.",
					latest.Amount.StringFixed(2), avg.StringFixed(2)),
				Merchant: p.Merchant,
			})
		}
	}

	return g.emit(ctx, now, candidates)
}

// Scan runs both scans and returns everything newly emitted.
func (g *InsightGenerator) Scan(ctx context.Context) []models.Insight {
	return append(g.ShallowScan(ctx), g.DeepScan(ctx)...)
}

// emit records candidates whose key has not been emitted on the same day.
func (g *InsightGenerator) emit(ctx context.Context, now time.Time, candidates []models.Insight) []models.Insight {
	day := now.Format(dayLayout)

	g.mu.Lock()
	hooks := g.hooks
	var fresh []models.Insight
	for _, in := range candidates {
		if g.emitted[in.Key] == day {
			continue
		}
		g.emitted[in.Key] = day
		in.ID = uuid.New()
		in.GeneratedAt = now
		g.insights = append(g.insights, in)
		fresh = append(fresh, in)
	}
	g.mu.Unlock()

	for _, in := range fresh {
		g.metrics.IncrementCounter("insight.generated", map[string]string{
			"type":     string(in.Type),
			"severity": string(in.Severity),
		})
		g.logger.Info("insight generated", "key", in.Key, "type", in.Type, "severity", in.Severity)
		if in.Severity == models.InsightSeverityHigh && g.sink != nil {
			g.sink.Notify(ctx, models.Notification{
				Title:     in.Title,
				Message:   in.Message,
				Severity:  models.NotificationCritical,
				Source:    "insights",
				Timestamp: now,
			})
		}
		for _, fn := range hooks {
			fn(in)
		}
	}
	return fresh
}

// OnInsight registers fn to run for every newly emitted insight.
func (g *InsightGenerator) OnInsight(fn func(models.Insight)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hooks = append(g.hooks, fn)
}

// Insights returns every insight of the session, newest first.
func (g *InsightGenerator) Insights() []models.Insight {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]models.Insight, len(g.insights))
	for i, in := range g.insights {
		out[len(out)-1-i] = in
	}
	return out
}

// ForecastNextWeek blends the trailing week with the average of older whole weeks.
// Without older history the recent week stands in for the historical average.
func (g *InsightGenerator) ForecastNextWeek() models.Forecast {
	now := g.now()
	recentStart := now.Add(-weekWindow)
	recent := sumAmounts(g.ledger.Since(recentStart))

	var earliest time.Time
	for _, tx := range g.ledger.All() {
		if earliest.IsZero() || tx.Timestamp.Before(earliest) {
			earliest = tx.Timestamp
		}
	}

	weeks := 0
	historical := recent
	if !earliest.IsZero() && earliest.Before(recentStart) {
		weeks = int(math.Ceil(float64(recentStart.Sub(earliest)) / float64(weekWindow)))
		historical = g.ledger.SpentBetween(earliest, recentStart).Div(decimal.NewFromInt(int64(weeks)))
	}

	trend := 1.0
	if weeks > 0 && historical.IsPositive() {
		ratio, _ := recent.Div(historical).Float64()
		trend = math.Max(minTrendFactor, math.Min(maxTrendFactor, ratio))
	}

	blended := recent.Mul(decimal.NewFromFloat(forecastRecentWeight)).
		Add(historical.Mul(decimal.NewFromFloat(forecastHistoryWeight)))
	next := blended.Mul(decimal.NewFromFloat(trend)).Round(2)

	forecast := models.Forecast{
		NextWeek:          next,
		RecentWeek:        recent.Round(2),
		HistoricalAverage: historical.Round(2),
		TrendFactor:       trend,
		Confidence:        forecastConfidence(weeks),
		WeeksOfHistory:    weeks,
		GeneratedAt:       now,
	}

	value, _ := next.Float64()
	g.metrics.RecordGauge("forecast.next_week", value, nil)
	return forecast
}

// forecastConfidence grows by 0.1 per week of history from 0.3, capped at 0.9.
func forecastConfidence(weeks int) float64 {
	return math.Min(0.9, 0.3+0.1*float64(weeks))
}

func latestTransaction(txs []models.Transaction) (models.Transaction, bool) {
	if len(txs) == 0 {
		return models.Transaction{}, false
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Timestamp.Before(txs[j].Timestamp) })
	return txs[len(txs)-1], true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
