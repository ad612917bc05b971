package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"spending-guard/internal/config"
	"spending-guard/internal/models"
	"spending-guard/internal/repositories"
)

// minCategoryConfidence is the lowest categorizer confidence accepted for an
// uncategorized transaction.
const minCategoryConfidence = 0.5

// SessionStores are the persistence collaborators. Either may be nil for an
// in-memory session.
type SessionStores struct {
	Transactions repositories.TransactionRepositoryInterface
	Preferences  repositories.PreferenceRepositoryInterface
}

// Session owns every component of one spending-guard process. It is built once and
// handed to the HTTP layer; there is no package-level state.
type Session struct {
	Ledger      *Ledger
	Patterns    *PatternAggregator
	Assessor    *RiskAssessor
	Geofences   *GeofenceMonitor
	Insights    *InsightGenerator
	Preferences *PreferencesService
	Notifier    *Notifier
	Categorizer CategorizerInterface

	locationFeed *FeedLocationSource
	shallowScan  *PeriodicTask
	deepScan     *PeriodicTask
	logger       *slog.Logger
}

func NewSession(cfg *config.Config, stores SessionStores, metrics MetricsRecorderInterface, logger *slog.Logger, sinks ...NotificationSink) *Session {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	prefs := NewPreferencesService(stores.Preferences, PreferencesFromDefaults(cfg.Defaults), logger)
	notifier := NewNotifier(prefs, metrics, sinks...)
	ledger := NewLedger(stores.Transactions, metrics, logger)
	patterns := NewPatternAggregator(ledger, prefs, metrics)
	geofences := NewGeofenceMonitor(stores.Preferences, notifier, metrics, logger)
	insights := NewInsightGenerator(ledger, patterns, prefs, notifier, metrics, logger)

	s := &Session{
		Ledger:       ledger,
		Patterns:     patterns,
		Assessor:     NewRiskAssessor(cfg.Risk, ledger, patterns, geofences, prefs, metrics),
		Geofences:    geofences,
		Insights:     insights,
		Preferences:  prefs,
		Notifier:     notifier,
		Categorizer:  NewCategoryService(),
		locationFeed: NewFeedLocationSource(true),
		logger:       logger,
	}
	s.shallowScan = NewPeriodicTask("insight-shallow-scan", cfg.Scheduler.ShallowScanInterval,
		func(ctx context.Context) { insights.ShallowScan(ctx) }, logger)
	s.deepScan = NewPeriodicTask("insight-deep-scan", cfg.Scheduler.DeepScanInterval,
		func(ctx context.Context) {
			patterns.RefreshTiers(prefs.Current())
			insights.DeepScan(ctx)
		}, logger)

	prefs.OnChange(patterns.RefreshTiers)
	return s
}

// Init restores persisted state: preferences, geofences, then the ledger and the
// patterns derived from it. Store failures leave the session empty but usable.
func (s *Session) Init(ctx context.Context) {
	s.Preferences.Load(ctx)

	if err := s.Geofences.LoadGeofences(ctx); err != nil {
		s.logger.Warn("failed to restore geofences", "error", err)
	}

	txs, err := s.Ledger.Hydrate(ctx)
	if err != nil {
		s.logger.Warn("failed to restore transactions", "error", err)
	}
	s.Patterns.Rebuild(ctx)

	s.logger.Info("session initialized",
		"transactions", len(txs),
		"geofences", len(s.Geofences.Geofences()),
	)
}

// Start launches the insight scans and, when enabled, location tracking. A tracking
// failure is logged; simulated locations remain available.
func (s *Session) Start(ctx context.Context) error {
	if err := s.shallowScan.Start(ctx); err != nil {
		return fmt.Errorf("failed to start shallow scan: %w", err)
	}
	if err := s.deepScan.Start(ctx); err != nil {
		s.shallowScan.Stop()
		return fmt.Errorf("failed to start deep scan: %w", err)
	}

	if s.Preferences.Current().TrackingEnabled {
		if err := s.StartTracking(ctx); err != nil && !errors.Is(err, ErrTrackingActive) {
			s.logger.Warn("location tracking disabled", "error", err)
		}
	}
	return nil
}

func (s *Session) Stop() {
	s.shallowScan.Stop()
	s.deepScan.Stop()
	s.Geofences.Stop()
}

func (s *Session) StartTracking(ctx context.Context) error {
	return s.Geofences.Start(ctx, s.locationFeed)
}

func (s *Session) StopTracking() {
	s.Geofences.Stop()
}

// LocationFeed is the push source clients post live fixes to.
func (s *Session) LocationFeed() *FeedLocationSource {
	return s.locationFeed
}

// RecordTransaction fills in a missing category, appends tx to the ledger and folds it
// into the merchant's pattern.
func (s *Session) RecordTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx == nil {
		return ErrTransactionNil
	}
	if strings.TrimSpace(tx.Category) == "" {
		category, confidence := s.Categorizer.CategorizeMerchant(tx.Merchant)
		if confidence < minCategoryConfidence {
			category = models.CategoryOther
		}
		tx.Category = category
	}

	if err := s.Ledger.Append(ctx, tx); err != nil {
		return err
	}
	s.Patterns.RecordTransaction(ctx, *tx)

	s.logger.Info("transaction recorded",
		"transaction_id", tx.ID,
		"merchant", tx.Merchant,
		"amount", tx.Amount.String(),
		"category", tx.Category,
	)
	return nil
}

// Assess scores a purchase. Blocked and approval-gated purchases also raise a notification.
func (s *Session) Assess(ctx context.Context, req AssessmentRequest) (*models.RiskAssessment, error) {
	assessment, err := s.Assessor.Assess(ctx, req)
	if err != nil {
		return nil, err
	}

	switch assessment.Action {
	case models.ActionBlock:
		s.Notifier.Notify(ctx, models.Notification{
			Title:    "Purchase blocked",
			Message:  fmt.Sprintf("$%s at %s: %s", assessment.Amount, assessment.Merchant, assessment.Recommendation),
			Severity: models.NotificationCritical,
			Source:   "risk",
		})
	case models.ActionRequireApproval:
		s.Notifier.Notify(ctx, models.Notification{
			Title:    "Purchase needs approval",
			Message:  fmt.Sprintf("$%s at %s: %s", assessment.Amount, assessment.Merchant, assessment.Recommendation),
			Severity: models.NotificationWarning,
			Source:   "risk",
		})
	}
	return assessment, nil
}

// ScanInsights runs both scans immediately and returns the newly emitted insights.
func (s *Session) ScanInsights(ctx context.Context) []models.Insight {
	s.Patterns.RefreshTiers(s.Preferences.Current())
	return s.Insights.Scan(ctx)
}
