package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"spending-guard/internal/models"

	"github.com/shopspring/decimal"
)

const (
	highTierMinVisits    = 10
	mediumTierMinVisits  = 5
	weeklyMerchantShare  = 0.50
	monthlyMerchantShare = 0.30
	weekWindow           = 7 * 24 * time.Hour
	monthWindow          = 30 * 24 * time.Hour
)

var (
	highTierMinAverage   = decimal.NewFromInt(50)
	mediumTierMinAverage = decimal.NewFromInt(100)
)

// MerchantWindow is a merchant's spend over the trailing 7 and 30 days.
type MerchantWindow struct {
	Last7Days  decimal.Decimal
	Last30Days decimal.Decimal
}

// DeriveRiskTier classifies a merchant from its pattern, trailing spend and limits.
func DeriveRiskTier(p models.SpendingPattern, window MerchantWindow, prefs models.Preferences) models.RiskTier {
	avg := p.AverageAmount()

	if p.VisitCount > highTierMinVisits && avg.GreaterThan(highTierMinAverage) {
		return models.RiskTierHigh
	}
	if prefs.WeeklyLimit.IsPositive() &&
		window.Last7Days.GreaterThan(prefs.WeeklyLimit.Mul(decimal.NewFromFloat(weeklyMerchantShare))) {
		return models.RiskTierHigh
	}
	if prefs.MonthlyLimit.IsPositive() &&
		window.Last30Days.GreaterThan(prefs.MonthlyLimit.Mul(decimal.NewFromFloat(monthlyMerchantShare))) {
		return models.RiskTierHigh
	}

	if avg.GreaterThan(mediumTierMinAverage) || p.VisitCount > mediumTierMinVisits {
		return models.RiskTierMedium
	}
	return models.RiskTierLow
}

// PatternAggregator keeps per-merchant rolling statistics. Patterns are created on the
// first transaction for a merchant and never removed.
type PatternAggregator struct {
	mu       sync.RWMutex
	patterns map[string]*models.SpendingPattern

	// deriveMu orders window reads with tier commits, so the last commit for a merchant
	// always sees every transaction appended before it.
	deriveMu sync.Mutex

	ledger  *Ledger
	prefs   PreferencesProvider
	metrics MetricsRecorderInterface
	now     func() time.Time
}

func NewPatternAggregator(ledger *Ledger, prefs PreferencesProvider, metrics MetricsRecorderInterface) *PatternAggregator {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &PatternAggregator{
		patterns: make(map[string]*models.SpendingPattern),
		ledger:   ledger,
		prefs:    prefs,
		metrics:  metrics,
		now:      time.Now,
	}
}

// RecordTransaction folds an already-appended transaction into its merchant pattern
// and re-derives the tier.
func (a *PatternAggregator) RecordTransaction(_ context.Context, tx models.Transaction) {
	key := tx.MerchantKey()

	a.deriveMu.Lock()
	defer a.deriveMu.Unlock()

	window := a.window(key)
	prefs := a.prefs.Current()

	a.mu.Lock()
	p, ok := a.patterns[key]
	if !ok {
		p = &models.SpendingPattern{
			Merchant:   tx.Merchant,
			TotalSpent: decimal.Zero,
			RiskTier:   models.RiskTierLow,
		}
		a.patterns[key] = p
	}
	p.TotalSpent = p.TotalSpent.Add(tx.Amount)
	p.VisitCount++
	if tx.Timestamp.After(p.LastVisit) {
		p.LastVisit = tx.Timestamp
	}
	p.RiskTier = DeriveRiskTier(*p, window, prefs)
	a.mu.Unlock()

	a.publishGauges()
}

// Rebuild discards all patterns and replays the ledger.
func (a *PatternAggregator) Rebuild(ctx context.Context) {
	a.mu.Lock()
	a.patterns = make(map[string]*models.SpendingPattern)
	a.mu.Unlock()

	for _, tx := range a.ledger.All() {
		a.RecordTransaction(ctx, tx)
	}
}

// RefreshTiers re-derives every tier, e.g. after limits change or windows have slid.
func (a *PatternAggregator) RefreshTiers(prefs models.Preferences) {
	a.deriveMu.Lock()
	defer a.deriveMu.Unlock()

	a.mu.RLock()
	keys := make([]string, 0, len(a.patterns))
	for k := range a.patterns {
		keys = append(keys, k)
	}
	a.mu.RUnlock()

	windows := make(map[string]MerchantWindow, len(keys))
	for _, k := range keys {
		windows[k] = a.window(k)
	}

	a.mu.Lock()
	for k, p := range a.patterns {
		p.RiskTier = DeriveRiskTier(*p, windows[k], prefs)
	}
	a.mu.Unlock()

	a.publishGauges()
}

func (a *PatternAggregator) Pattern(merchant string) (models.SpendingPattern, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	p, ok := a.patterns[models.NormalizeMerchant(merchant)]
	if !ok {
		return models.SpendingPattern{}, false
	}
	return *p, true
}

// Tier returns the merchant's tier, low when the merchant is unknown.
func (a *PatternAggregator) Tier(merchant string) models.RiskTier {
	if p, ok := a.Pattern(merchant); ok {
		return p.RiskTier
	}
	return models.RiskTierLow
}

// CurrentTier re-derives the merchant's tier from the trailing windows as of now and
// the current limits. The stored tier can lag until the next refresh.
func (a *PatternAggregator) CurrentTier(merchant string) models.RiskTier {
	p, ok := a.Pattern(merchant)
	if !ok {
		return models.RiskTierLow
	}
	return DeriveRiskTier(p, a.window(models.NormalizeMerchant(merchant)), a.prefs.Current())
}

// Snapshot returns copies of all patterns ordered by total spent, largest first.
func (a *PatternAggregator) Snapshot() []models.SpendingPattern {
	a.mu.RLock()
	out := make([]models.SpendingPattern, 0, len(a.patterns))
	for _, p := range a.patterns {
		out = append(out, *p)
	}
	a.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].TotalSpent.Equal(out[j].TotalSpent) {
			return out[i].TotalSpent.GreaterThan(out[j].TotalSpent)
		}
		return out[i].Merchant < out[j].Merchant
	})
	return out
}

func (a *PatternAggregator) window(key string) MerchantWindow {
	now := a.now()
	return MerchantWindow{
		Last7Days:  a.ledger.MerchantSpentSince(key, now.Add(-weekWindow)),
		Last30Days: a.ledger.MerchantSpentSince(key, now.Add(-monthWindow)),
	}
}

func (a *PatternAggregator) publishGauges() {
	a.mu.RLock()
	total := len(a.patterns)
	high := 0
	for _, p := range a.patterns {
		if p.RiskTier == models.RiskTierHigh {
			high++
		}
	}
	a.mu.RUnlock()

	a.metrics.RecordGauge("patterns.tracked", float64(total), nil)
	a.metrics.RecordGauge("patterns.high_risk", float64(high), nil)
}
